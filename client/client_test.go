package client_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samsarahq/graphcache/cache"
	"github.com/samsarahq/graphcache/client"
	"github.com/samsarahq/graphcache/client/transport/inmemory"
	"github.com/samsarahq/graphcache/graphql"
	"github.com/samsarahq/graphcache/internal/testutil"
)

func field(name string) *graphql.Selection {
	return &graphql.Selection{Name: name}
}

func object(name string, children ...*graphql.Selection) *graphql.Selection {
	return &graphql.Selection{Name: name, SelectionSet: &graphql.SelectionSet{Selections: children}}
}

func queryDoc(selections ...*graphql.Selection) *graphql.Document {
	return &graphql.Document{
		Operation: &graphql.Operation{
			Type:         graphql.Query,
			SelectionSet: &graphql.SelectionSet{Selections: selections},
		},
	}
}

func mutationDoc(selections ...*graphql.Selection) *graphql.Document {
	return &graphql.Document{
		Operation: &graphql.Operation{
			Type:         graphql.Mutation,
			SelectionSet: &graphql.SelectionSet{Selections: selections},
		},
	}
}

func drain(t *testing.T, stream *client.Stream) []*client.Message {
	t.Helper()
	var out []*client.Message
	for msg := range stream.Messages() {
		out = append(out, msg)
	}
	return out
}

func viewerDoc() *graphql.Document {
	return queryDoc(object("viewer", field("__typename"), field("id"), field("name")))
}

// Scenario E — local-first hit then miss.
func TestQueryLocalFirstHit(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"Person/id"}})
	d := viewerDoc()
	data := testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada"}}`).(map[string]interface{})
	require.NoError(t, store.Write(context.Background(), data, d, nil))

	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		t.Fatal("transport should not be called on a local-first hit")
		return nil, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), d, nil, client.WithFetchPolicy(client.LocalFirst))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 1)
	assert.Equal(t, client.StatusReady, msgs[0].NetworkStatus)
	assert.False(t, msgs[0].InFlight)
	assert.Equal(t, data, msgs[0].Data)
}

func TestQueryLocalFirstMiss(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"Person/id"}})
	d := viewerDoc()
	fetched := testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada"}}`).(map[string]interface{})

	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return fetched, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), d, nil, client.WithFetchPolicy(client.LocalFirst))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)
	assert.Equal(t, client.StatusFetching, msgs[0].NetworkStatus)
	assert.True(t, msgs[0].InFlight)
	assert.Nil(t, msgs[0].Data)

	assert.Equal(t, client.StatusReady, msgs[1].NetworkStatus)
	assert.False(t, msgs[1].InFlight)
	assert.Equal(t, fetched, msgs[1].Data)
}

func TestQueryLocalOnly(t *testing.T) {
	store := cache.NewStore(cache.Config{})
	d := viewerDoc()

	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		t.Fatal("local-only must never fetch")
		return nil, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), d, nil)
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 1)
	assert.Equal(t, client.StatusReady, msgs[0].NetworkStatus)
	assert.Nil(t, msgs[0].Data)
}

func TestQueryLocalThenRemoteAlwaysFetches(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"Person/id"}})
	d := viewerDoc()
	local := testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada"}}`).(map[string]interface{})
	require.NoError(t, store.Write(context.Background(), local, d, nil))

	fetched := testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada Lovelace"}}`).(map[string]interface{})
	called := false
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		called = true
		return fetched, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), d, nil, client.WithFetchPolicy(client.LocalThenRemote))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)
	assert.Equal(t, client.StatusFetching, msgs[0].NetworkStatus)
	assert.Equal(t, local, msgs[0].Data)
	assert.True(t, called)
	assert.Equal(t, client.StatusReady, msgs[1].NetworkStatus)
	assert.Equal(t, fetched, msgs[1].Data)
}

func TestQueryRemoteOnlyIgnoresLocalData(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"Person/id"}})
	d := viewerDoc()
	require.NoError(t, store.Write(context.Background(),
		testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada"}}`).(map[string]interface{}), d, nil))

	fetched := testutil.ParseJSON(`{"viewer":{"__typename":"Person","id":"p1","name":"Ada Lovelace"}}`).(map[string]interface{})
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return fetched, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), d, nil, client.WithFetchPolicy(client.RemoteOnly))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].Data)
	assert.Equal(t, client.StatusFetching, msgs[0].NetworkStatus)
	assert.Equal(t, fetched, msgs[1].Data)
	assert.Equal(t, client.StatusReady, msgs[1].NetworkStatus)
}

func TestQueryInvalidFetchPolicy(t *testing.T) {
	store := cache.NewStore(cache.Config{})
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return nil, nil
	})
	c := client.NewClient(store, transport)

	_, err := c.Query(context.Background(), viewerDoc(), nil, client.WithFetchPolicy(client.FetchPolicy(99)))
	assert.ErrorIs(t, err, client.ErrInvalidFetchPolicy)
}

func TestQueryNetworkErrorFailsAndCloses(t *testing.T) {
	store := cache.NewStore(cache.Config{})
	boom := assert.AnError
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return nil, boom
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), viewerDoc(), nil, client.WithFetchPolicy(client.RemoteOnly))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)
	assert.Equal(t, client.StatusFetching, msgs[0].NetworkStatus)
	assert.Equal(t, client.StatusFailed, msgs[1].NetworkStatus)
	assert.Error(t, msgs[1].Err)
}

// Scenario F — mutation with optimistic result.
func TestMutateOptimisticThenReal(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"User/id"}})
	d := mutationDoc(object("addUser", field("__typename"), field("id"), field("name")))

	real := testutil.ParseJSON(`{"addUser":{"__typename":"User","id":"u5","name":"Ada"}}`).(map[string]interface{})
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return real, nil
	})
	c := client.NewClient(store, transport)

	optimistic := testutil.ParseJSON(`{"addUser":{"__typename":"User","id":"tmp","name":"Ada"}}`).(map[string]interface{})
	stream, err := c.Mutate(context.Background(), d, nil, client.WithOptimisticResult(optimistic))
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)

	assert.Equal(t, client.StatusFetching, msgs[0].NetworkStatus)
	assert.True(t, msgs[0].InFlight)
	assert.Equal(t, optimistic, msgs[0].Data)

	assert.Equal(t, client.StatusReady, msgs[1].NetworkStatus)
	assert.False(t, msgs[1].InFlight)
	assert.Equal(t, real, msgs[1].Data)

	// The mutation root now points at the real entity, so reading back
	// yields the real result (the optimistic "tmp" entity is not rolled
	// back and stays in the store).
	got, err := store.Read(context.Background(), d, nil, false)
	require.NoError(t, err)
	assert.Equal(t, real, got)
}

func TestMutateWithoutOptimisticResult(t *testing.T) {
	store := cache.NewStore(cache.Config{IDAttrs: []string{"User/id"}})
	d := mutationDoc(object("addUser", field("__typename"), field("id"), field("name")))

	real := testutil.ParseJSON(`{"addUser":{"__typename":"User","id":"u5","name":"Ada"}}`).(map[string]interface{})
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return real, nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Mutate(context.Background(), d, nil)
	require.NoError(t, err)

	msgs := drain(t, stream)
	require.Len(t, msgs, 2)
	assert.Nil(t, msgs[0].Data)
	assert.Equal(t, real, msgs[1].Data)
}

// Closing the output stream early stops delivery without panicking the
// producer goroutine.
func TestClosingStreamStopsDelivery(t *testing.T) {
	store := cache.NewStore(cache.Config{})
	transport := inmemory.New(func(ctx context.Context, op *graphql.Operation, vars, reqCtx map[string]interface{}) (map[string]interface{}, error) {
		return testutil.ParseJSON(`{"viewer":null}`).(map[string]interface{}), nil
	})
	c := client.NewClient(store, transport)

	stream, err := c.Query(context.Background(), viewerDoc(), nil, client.WithFetchPolicy(client.RemoteOnly))
	require.NoError(t, err)

	stream.Close()
	// Draining must terminate (the channel is closed by the producer
	// even though delivery was cancelled) rather than block forever.
	for range stream.Messages() {
	}
}
