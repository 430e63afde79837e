// Package transport defines the single request/response port the
// geoproc client drives the remote service through, and provides the
// default HTTP implementation of it.
package transport

import "context"

// Transport performs one request/response exchange against the service
// and returns the raw response body. Implementations must be safe for
// concurrent use. Any returned error is a transport-level failure; the
// client layers its retry and failure taxonomy on top.
type Transport interface {
	Send(ctx context.Context, method, url string, body []byte) ([]byte, error)
}

// TokenProvider supplies the credential attached to each request.
// Acquisition, refresh, and expiry tracking live behind this interface;
// the transport only asks for whatever credential is current at call
// time and assumes it is valid for the duration of one request.
type TokenProvider interface {
	CurrentCredential(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider that always returns the same token.
// An empty StaticToken sends requests unauthenticated.
type StaticToken string

// CurrentCredential returns the fixed token.
func (t StaticToken) CurrentCredential(context.Context) (string, error) {
	return string(t), nil
}

// Func adapts a plain function to the Transport interface. Handy for
// tests that script exchanges without a network.
type Func func(ctx context.Context, method, url string, body []byte) ([]byte, error)

// Send calls f.
func (f Func) Send(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	return f(ctx, method, url, body)
}
