package client

import "github.com/samsarahq/go/oops"

// ErrInvalidFetchPolicy is returned synchronously by Query when given a
// FetchPolicy it doesn't recognize. This is a fatal, caller-facing error,
// never delivered as a Message.
var ErrInvalidFetchPolicy = oops.Errorf("invalid fetch policy")
