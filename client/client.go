package client

import (
	"context"

	"github.com/samsarahq/go/oops"
	"golang.org/x/sync/errgroup"

	"github.com/samsarahq/graphcache/cache"
	"github.com/samsarahq/graphcache/concurrencylimiter"
	"github.com/samsarahq/graphcache/graphql"
	"github.com/samsarahq/graphcache/internal/tracing"
	"github.com/samsarahq/graphcache/logger"
)

// defaultMaxConcurrentFetches bounds how many Transport.Execute calls a
// Client runs at once when the caller doesn't override it.
const defaultMaxConcurrentFetches = 8

// noopLogger discards every call; the Client's default until a caller
// supplies one with WithLogger.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

// Client drives the fetch-policy state machine for queries and the
// optimistic-update flow for mutations against a shared cache.Store and
// Transport, delivering each as an ordered Stream of Messages.
//
// One goroutine owns an operation's state machine end to end and pushes
// every transition onto an outbound channel, the same shape as a
// connection loop that pushes messages to a single subscriber — except
// here there's no dependency graph driving incremental recomputation:
// every message this engine emits carries a full denormalized snapshot,
// never a diff.
type Client struct {
	store      *cache.Store
	transport  Transport
	limiterCtx context.Context
	log        logger.Logger
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithMaxConcurrentFetches bounds how many Transport.Execute calls across
// every Query and Mutate on this Client may be in flight at once. Default 8.
func WithMaxConcurrentFetches(n int) ClientOption {
	return func(c *Client) {
		c.limiterCtx = concurrencylimiter.With(context.Background(), n)
	}
}

// WithLogger routes the Client's diagnostic logging (fetch attempts, store
// and transport failures) through l instead of discarding it.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient builds a Client backed by store and transport.
func NewClient(store *cache.Store, transport Transport, opts ...ClientOption) *Client {
	c := &Client{
		store:      store,
		transport:  transport,
		limiterCtx: concurrencylimiter.With(context.Background(), defaultMaxConcurrentFetches),
		log:        noopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query runs doc's fetch-policy state machine, returning immediately with
// a Stream that the state machine delivers to from a new goroutine. An
// unrecognized FetchPolicy fails synchronously.
func (c *Client) Query(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, opts ...Option) (*Stream, error) {
	o := &operationOptions{fetchPolicy: LocalOnly}
	for _, opt := range opts {
		opt(o)
	}
	if !o.fetchPolicy.valid() {
		return nil, ErrInvalidFetchPolicy
	}

	stream := o.stream
	if stream == nil {
		stream = newStream()
	}

	go c.runQuery(ctx, doc, vars, o, stream)
	return stream, nil
}

// Mutate runs doc's optimistic-update flow, returning immediately with a
// Stream.
func (c *Client) Mutate(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, opts ...Option) (*Stream, error) {
	o := &operationOptions{}
	for _, opt := range opts {
		opt(o)
	}

	stream := o.stream
	if stream == nil {
		stream = newStream()
	}

	go c.runMutate(ctx, doc, vars, o, stream)
	return stream, nil
}

func (c *Client) runQuery(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, o *operationOptions, stream *Stream) {
	defer stream.closeMessages()

	span, ctx := tracing.StartSpan(ctx, "graphcache.client.Query")
	defer span.Finish()

	// RemoteOnly never consumes the local cache, so it skips the read
	// entirely rather than failing a query outright over a local snapshot
	// its own policy doesn't care about.
	if o.fetchPolicy == RemoteOnly {
		if !stream.send(&Message{Variables: vars, InFlight: true, NetworkStatus: StatusFetching}) {
			return
		}
		c.fetchAndEmit(ctx, doc, vars, o, stream)
		return
	}

	local, err := c.store.Read(ctx, doc, vars, o.returnPartial)
	if err != nil {
		tracing.LogError(span, err)
		c.log.Error("store read failed", "fetchPolicy", o.fetchPolicy, "err", err)
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}

	switch o.fetchPolicy {
	case LocalOnly:
		stream.send(&Message{Data: local, Variables: vars, NetworkStatus: StatusReady})

	case LocalFirst:
		if local != nil {
			stream.send(&Message{Data: local, Variables: vars, NetworkStatus: StatusReady})
			return
		}
		if !stream.send(&Message{Variables: vars, InFlight: true, NetworkStatus: StatusFetching}) {
			return
		}
		c.fetchAndEmit(ctx, doc, vars, o, stream)

	case LocalThenRemote:
		if !stream.send(&Message{Data: local, Variables: vars, InFlight: true, NetworkStatus: StatusFetching}) {
			return
		}
		c.fetchAndEmit(ctx, doc, vars, o, stream)
	}
}

func (c *Client) runMutate(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, o *operationOptions, stream *Stream) {
	defer stream.closeMessages()

	span, ctx := tracing.StartSpan(ctx, "graphcache.client.Mutate")
	defer span.Finish()

	if o.optimisticResult != nil {
		if err := c.store.Write(ctx, o.optimisticResult, doc, vars); err != nil {
			tracing.LogError(span, err)
			stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
			return
		}
	}

	if !stream.send(&Message{Data: o.optimisticResult, Variables: vars, InFlight: true, NetworkStatus: StatusFetching}) {
		return
	}

	result, err := c.execute(ctx, doc.Operation, vars, o.requestContext)
	if err != nil {
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}
	if len(result.Errors) > 0 {
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: result.Errors[0]})
		return
	}

	// Real result is merged over the optimistic write via mergeRecord's
	// last-writer-wins; an optimistic entity stored under a different id
	// than the real one stays in the store.
	if err := c.store.Write(ctx, result.Data, doc, vars); err != nil {
		tracing.LogError(span, err)
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}

	data, err := c.store.Read(ctx, doc, vars, o.returnPartial)
	if err != nil {
		tracing.LogError(span, err)
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}
	stream.send(&Message{Data: data, Variables: vars, NetworkStatus: StatusReady})
}

// fetchAndEmit runs the network chain, merges its result into the store,
// reads back, and emits the terminal message — the tail shared by every
// query fetch policy that contacts the network.
func (c *Client) fetchAndEmit(ctx context.Context, doc *graphql.Document, vars map[string]interface{}, o *operationOptions, stream *Stream) {
	c.log.Debug("fetching", "fetchPolicy", o.fetchPolicy)

	result, err := c.execute(ctx, doc.Operation, vars, o.requestContext)
	if err != nil {
		c.log.Error("transport execute failed", "err", err)
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}
	if len(result.Errors) > 0 {
		c.log.Warn("transport returned errors", "err", result.Errors[0])
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: result.Errors[0]})
		return
	}

	if err := c.store.Write(ctx, result.Data, doc, vars); err != nil {
		c.log.Error("store write failed", "err", err)
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}

	data, err := c.store.Read(ctx, doc, vars, o.returnPartial)
	if err != nil {
		stream.send(&Message{Variables: vars, NetworkStatus: StatusFailed, Err: err})
		return
	}
	stream.send(&Message{Data: data, Variables: vars, NetworkStatus: StatusReady})
}

// execute runs one transport round trip, bounded by the Client's shared
// concurrency limiter and traced as its own span. It uses c.limiterCtx
// (not ctx) to acquire a slot so the limit is shared across every call on
// this Client regardless of each caller's own context; the transport call
// itself then runs under the context Acquire returned, not ctx, so a
// TemporarilyRelease from inside the transport can find its acquisition.
func (c *Client) execute(ctx context.Context, op *graphql.Operation, vars map[string]interface{}, reqCtx map[string]interface{}) (Result, error) {
	span, _ := tracing.StartSpan(ctx, "graphcache.client.transport.Execute")
	defer span.Finish()

	acqCtx, release := concurrencylimiter.Acquire(c.limiterCtx)
	defer release()

	// gctx (and so the context the transport actually runs with) derives
	// from acqCtx, not ctx: TemporarilyRelease looks up its acquisition by
	// context value, so a Transport that wants to give back its slot while
	// blocked on an upstream call needs that value reachable from the
	// context it was handed.
	g, gctx := errgroup.WithContext(acqCtx)
	var result Result
	g.Go(func() error {
		ch, err := c.transport.Execute(gctx, op, vars, reqCtx)
		if err != nil {
			return err
		}
		select {
		case r, ok := <-ch:
			if !ok {
				return oops.Errorf("transport closed its result stream without a result")
			}
			result = r
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})

	if err := g.Wait(); err != nil {
		tracing.LogError(span, err)
		return Result{}, err
	}
	return result, nil
}
