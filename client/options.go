package client

// Option configures a single Query or Mutate call.
type Option func(*operationOptions)

type operationOptions struct {
	stream           *Stream
	fetchPolicy      FetchPolicy
	requestContext   map[string]interface{}
	returnPartial    bool
	optimisticResult map[string]interface{}
}

// WithOutStream delivers messages on s instead of a freshly created
// Stream, so a caller can pass the same Stream across several related
// calls.
func WithOutStream(s *Stream) Option {
	return func(o *operationOptions) { o.stream = s }
}

// WithFetchPolicy selects p (query only; ignored by Mutate, whose flow is
// fixed). Default LocalOnly.
func WithFetchPolicy(p FetchPolicy) Option {
	return func(o *operationOptions) { o.fetchPolicy = p }
}

// WithRequestContext attaches an opaque map forwarded to the transport
// verbatim.
func WithRequestContext(reqCtx map[string]interface{}) Option {
	return func(o *operationOptions) { o.requestContext = reqCtx }
}

// WithReturnPartial is forwarded to the Reader. It has no observable
// effect (see cache.Store.Read's doc comment and DESIGN.md); kept for API
// parity with the full option set a caller may expect.
func WithReturnPartial(v bool) Option {
	return func(o *operationOptions) { o.returnPartial = v }
}

// WithOptimisticResult is mutation-only: data is written to the store
// immediately, before the network chain executes.
func WithOptimisticResult(data map[string]interface{}) Option {
	return func(o *operationOptions) { o.optimisticResult = data }
}
