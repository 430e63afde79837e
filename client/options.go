package client

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mapflow/geoproc/job"
	"github.com/mapflow/geoproc/transport"
)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client's logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport replaces the default HTTP transport. Tests script
// exchanges through transport.Func; production setups use this to add
// breakers or rate limits via transport.NewHTTP options.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.tr = t }
}

// WithRegistry sets the job registry. Defaults to a fresh instance per
// client; sharing one across clients is possible but rarely wanted.
func WithRegistry(r *job.Registry) Option {
	return func(c *Client) { c.registry = r }
}

// WithTracerProvider sets a custom OTel TracerProvider for submit and
// await spans. If not set, the global provider is used, which defaults
// to a noop tracer with zero overhead.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithClock overrides the client's time source. Tests use it to drive
// the wall-clock wait budget without sleeping for real.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}
