// Package inmemory provides a client.Transport that resolves operations
// against an in-process Go function instead of a network call, for tests
// and demos that don't need a real server.
package inmemory

import (
	"context"

	"github.com/samsarahq/graphcache/client"
	"github.com/samsarahq/graphcache/graphql"
)

// Resolver computes a response for an operation, synchronously.
type Resolver func(ctx context.Context, op *graphql.Operation, vars map[string]interface{}, reqCtx map[string]interface{}) (map[string]interface{}, error)

// Transport adapts a Resolver to client.Transport.
type Transport struct {
	resolve Resolver
}

// New builds a Transport that calls resolve for every operation.
func New(resolve Resolver) *Transport {
	return &Transport{resolve: resolve}
}

// Execute implements client.Transport by running resolve synchronously and
// delivering its outcome as the stream's one result.
func (t *Transport) Execute(ctx context.Context, op *graphql.Operation, vars map[string]interface{}, reqCtx map[string]interface{}) (<-chan client.Result, error) {
	ch := make(chan client.Result, 1)

	data, err := t.resolve(ctx, op, vars, reqCtx)
	if err != nil {
		ch <- client.Result{Errors: []error{err}}
	} else {
		ch <- client.Result{Data: data}
	}
	close(ch)

	return ch, nil
}
