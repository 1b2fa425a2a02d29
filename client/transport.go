package client

import (
	"context"

	"github.com/samsarahq/graphcache/graphql"
)

// Result is a transport's single outbound message for one operation: a
// result stream delivers exactly one Result, then closes.
type Result struct {
	Data   map[string]interface{}
	Errors []error
}

// Transport executes one operation against a network collaborator.
// Implementations must be safe for concurrent use. Execute returns a
// channel that carries exactly one Result and is then closed; reqCtx is
// the caller's opaque per-call context map (set with WithRequestContext),
// forwarded as-is.
type Transport interface {
	Execute(ctx context.Context, op *graphql.Operation, vars map[string]interface{}, reqCtx map[string]interface{}) (<-chan Result, error)
}
