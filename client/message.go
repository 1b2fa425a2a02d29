// Package client implements the fetch-policy state machine for queries
// and the optimistic-update flow for mutations, each delivering an
// ordered stream of status messages to the caller.
package client

// NetworkStatus is one of the three states a Message's network leg can be
// in.
type NetworkStatus int

const (
	// StatusReady indicates data reflects the most recent completed read
	// or fetch.
	StatusReady NetworkStatus = iota
	// StatusFetching indicates a network fetch is in flight.
	StatusFetching
	// StatusFailed indicates the network leg of the operation failed; not
	// retried.
	StatusFailed
)

func (s NetworkStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFetching:
		return "fetching"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Message is one entry of a query or mutation's message stream.
type Message struct {
	Data          map[string]interface{}
	Variables     map[string]interface{}
	InFlight      bool
	NetworkStatus NetworkStatus
	// Err is set when NetworkStatus is StatusFailed.
	Err error
}

// Stream is a one-shot-close push channel of Messages: a producer
// goroutine attempts to push each message and silently drops it if the
// stream has already been closed, rather than panicking on a
// send-to-closed-channel or blocking forever on a caller who stopped
// listening.
type Stream struct {
	messages chan *Message
	done     chan struct{}
}

func newStream() *Stream {
	return &Stream{
		messages: make(chan *Message, 1),
		done:     make(chan struct{}),
	}
}

// Messages returns the channel messages are delivered on. It is closed
// once the stream's terminal message has been sent, or the stream is
// closed early, whichever comes first.
func (s *Stream) Messages() <-chan *Message {
	return s.messages
}

// Close cancels delivery of further messages. It does not abort an
// in-flight transport request already under way. Safe to call more than
// once.
func (s *Stream) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// send attempts to deliver msg, returning false if the stream was closed
// first. The caller's goroutine must stop running the state machine as
// soon as send returns false.
func (s *Stream) send(msg *Message) bool {
	select {
	case s.messages <- msg:
		return true
	case <-s.done:
		return false
	}
}

// closeMessages closes the outbound channel, signalling callers ranging
// over Messages() that the stream has reached its terminal state.
func (s *Stream) closeMessages() {
	close(s.messages)
}
