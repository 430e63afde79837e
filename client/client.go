// Package client drives asynchronous geoprocessing jobs on a remote
// geospatial REST service: submit, poll to completion, decode, cancel.
//
// Usage:
//
//	c, err := client.New(cfg)
//
//	id, err := c.Submit(ctx, job.KindViewshed, viewshedParams)
//	env, err := c.AwaitCompletion(ctx, id, poll.DefaultPolicy())
//
//	// Progress display without blocking:
//	state, err := c.Peek(ctx, id)
//
// Each job is polled by its own loop; any number of jobs may be awaited
// concurrently. Between polls the loop suspends on a timer and the
// caller's context, never busy-waiting.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mapflow/geoproc"
	"github.com/mapflow/geoproc/job"
	"github.com/mapflow/geoproc/poll"
	"github.com/mapflow/geoproc/result"
	"github.com/mapflow/geoproc/transport"
)

// tracerName is the instrumentation scope name for client tracing.
const tracerName = "github.com/mapflow/geoproc/client"

// Client submits geoprocessing jobs and drives them to completion.
// It is safe for concurrent use; each awaited job owns its own poll
// loop. The registry is the only shared mutable state.
type Client struct {
	cfg      geoproc.Config
	tr       transport.Transport
	registry *job.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates a Client for the service described by cfg.
func New(cfg geoproc.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Client{
		cfg:      cfg,
		registry: job.NewRegistry(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tr == nil {
		c.tr = transport.NewHTTP(
			transport.WithTokenProvider(transport.StaticToken(cfg.Token)),
			transport.WithTimeout(cfg.RequestTimeout),
			transport.WithLogger(c.logger),
		)
	}
	return c, nil
}

// Registry returns the client's job registry.
func (c *Client) Registry() *job.Registry { return c.registry }

// Submit sends one job creation request and registers the accepted job.
// On transport failure nothing is registered. An acceptance without a
// job identifier is reported as ErrMalformedAcceptance.
func (c *Client) Submit(ctx context.Context, kind job.Kind, params Parameters) (job.ID, error) {
	if _, known := operationOutputs[kind]; !known {
		return "", fmt.Errorf("geoproc: unsupported operation kind %q", kind)
	}

	correl := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "geoproc.submit",
		trace.WithAttributes(
			attribute.String("geoproc.job.kind", string(kind)),
			attribute.String("geoproc.correl_id", correl),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	body, err := encodeParameters(params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	raw, err := c.tr.Send(ctx, http.MethodPost, c.operationURL(kind), body)
	if err != nil {
		err = fmt.Errorf("%w: submit %s: %v", geoproc.ErrTransportFailure, kind, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	id, err := parseAcceptance(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	c.registry.Insert(job.Handle{
		ID:          id,
		Kind:        kind,
		CorrelID:    correl,
		SubmittedAt: c.now(),
		State:       job.StateSubmitted,
	})
	span.SetAttributes(attribute.String("geoproc.job.id", id.String()))
	span.SetStatus(codes.Ok, "")

	c.logger.Info("job submitted",
		slog.String("job_id", id.String()),
		slog.String("kind", string(kind)),
		slog.String("correl_id", correl),
	)
	return id, nil
}

// AwaitCompletion polls the job until it reaches a terminal state and
// returns its decoded result envelope. Backoff, total wait budget, and
// transport-failure tolerance come from policy; policy is not mutated.
//
// Terminal outcomes reported here (success, remote failure, timeout)
// deregister the job. ErrUnreachable and ErrUnknownState leave the
// handle registered with its last known state, since the remote job may
// still be progressing.
func (c *Client) AwaitCompletion(ctx context.Context, id job.ID, policy poll.Policy) (*result.Envelope, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	h, ok := c.registry.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", geoproc.ErrJobNotFound, id)
	}

	ctx, span := c.tracer.Start(ctx, "geoproc.await",
		trace.WithAttributes(
			attribute.String("geoproc.job.id", id.String()),
			attribute.String("geoproc.job.kind", string(h.Kind)),
			attribute.String("geoproc.correl_id", h.CorrelID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	env, err := c.await(ctx, id, h, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return env, nil
}

// await is the poll loop behind AwaitCompletion.
func (c *Client) await(ctx context.Context, id job.ID, h job.Handle, policy poll.Policy) (*result.Envelope, error) {
	deadline := h.SubmittedAt.Add(policy.MaxTotalWait)
	failures := 0

	for n := 1; ; n++ {
		// Cancellation is checked before each request, so a cancel
		// issued mid-flight lets the outstanding exchange finish and
		// stops the loop here, on the next iteration.
		cur, tracked := c.registry.Lookup(id)
		if !tracked || cur.CancelRequested || cur.State == job.StateCancelled {
			return nil, fmt.Errorf("%w: %s", geoproc.ErrJobCancelled, id)
		}

		env, done, err := c.step(ctx, id, cur.Kind)
		if done {
			return env, err
		}

		var transient *transientError
		switch {
		case errors.As(err, &transient):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			c.logger.Warn("status poll failed",
				slog.String("job_id", id.String()),
				slog.Int("consecutive_failures", failures),
				slog.String("error", transient.Error()),
			)
			if failures > policy.MaxTransportFailures {
				// The handle keeps its last known state: the job may
				// still be progressing server-side even though this
				// client cannot observe it.
				return nil, fmt.Errorf("%w: %d consecutive transport failures, last: %v",
					geoproc.ErrUnreachable, failures, transient.Unwrap())
			}
		default:
			failures = 0
		}

		// The deadline check runs only after the poll outcome has been
		// processed, so a status response that already arrived always
		// beats the timeout: a job that just completed never reports a
		// false timeout.
		if c.now().After(deadline) {
			c.registry.Update(id, func(h job.Handle) job.Handle {
				h.Advance(job.StateTimedOut)
				return h
			})
			c.registry.Remove(id)
			return nil, fmt.Errorf("%w: no terminal state within %v (job %s not cancelled remotely)",
				geoproc.ErrTimeout, policy.MaxTotalWait, id)
		}

		if err := c.sleep(ctx, policy.Interval(n)); err != nil {
			return nil, err
		}
	}
}

// step performs one poll iteration: request status, apply it to the
// handle, and on success fetch and decode the result. done reports a
// final outcome; a *transientError signals a transport-level failure
// the loop may retry.
func (c *Client) step(ctx context.Context, id job.ID, kind job.Kind) (*result.Envelope, bool, error) {
	st, err := c.status(ctx, id)
	if err != nil {
		var transient *transientError
		if errors.As(err, &transient) {
			return nil, false, err
		}
		// Unparseable or unrecognized status: surfaced immediately,
		// never silently treated as any known state.
		return nil, true, err
	}

	state := wireStates[st.Status]
	switch state {
	case job.StateSubmitted:
		return nil, false, nil

	case job.StateExecuting:
		c.registry.Update(id, func(h job.Handle) job.Handle {
			h.Advance(job.StateExecuting)
			if st.Progress != nil {
				h.Progress, h.HasProgress = *st.Progress, true
			}
			return h
		})
		return nil, false, nil

	case job.StateFailed:
		reason := st.failureReason()
		c.registry.Update(id, func(h job.Handle) job.Handle {
			h.Advance(job.StateFailed)
			h.FailureReason = reason
			return h
		})
		c.registry.Remove(id)
		return nil, true, fmt.Errorf("%w: %s", geoproc.ErrRemoteFailure, reason)

	case job.StateCancelled:
		c.registry.Update(id, func(h job.Handle) job.Handle {
			h.Advance(job.StateCancelled)
			return h
		})
		c.registry.Remove(id)
		return nil, true, fmt.Errorf("%w: %s: reported by service", geoproc.ErrJobCancelled, id)

	case job.StateSucceeded:
		payload := []byte(st.Results)
		if len(payload) == 0 {
			payload, err = c.tr.Send(ctx, http.MethodGet, c.jobURL(id)+"/results?f=json", nil)
			if err != nil {
				// The job has succeeded server-side; only this fetch
				// failed. Retry it like any other transport failure.
				return nil, false, &transientError{err: fmt.Errorf("fetch results: %w", err)}
			}
		}

		c.registry.Update(id, func(h job.Handle) job.Handle {
			h.Advance(job.StateSucceeded)
			return h
		})
		c.registry.Remove(id)

		env, decErr := result.Decode(operationOutputs[kind], payload)
		if decErr != nil {
			// Distinct from a server-reported job failure: the job
			// succeeded, this client cannot interpret its result.
			return nil, true, fmt.Errorf("%w: job %s: %v", geoproc.ErrResultUndecodable, id, decErr)
		}
		c.logger.Info("job succeeded",
			slog.String("job_id", id.String()),
			slog.String("output_kind", string(env.Kind)),
		)
		return env, true, nil

	default:
		// status() rejects vocabulary outside wireStates.
		return nil, true, fmt.Errorf("%w: %q", geoproc.ErrUnknownState, st.Status)
	}
}

// Peek performs a single status poll without looping, for UI-style
// progress display. A handle already in a terminal state is answered
// from the registry without a network call.
func (c *Client) Peek(ctx context.Context, id job.ID) (job.State, error) {
	h, ok := c.registry.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", geoproc.ErrJobNotFound, id)
	}
	if h.State.Terminal() {
		return h.State, nil
	}

	st, err := c.status(ctx, id)
	if err != nil {
		var transient *transientError
		if errors.As(err, &transient) {
			return h.State, fmt.Errorf("%w: %v", geoproc.ErrUnreachable, transient.Unwrap())
		}
		return h.State, err
	}

	state := wireStates[st.Status]
	updated, _ := c.registry.Update(id, func(h job.Handle) job.Handle {
		h.Advance(state)
		if st.Progress != nil {
			h.Progress, h.HasProgress = *st.Progress, true
		}
		if state == job.StateFailed {
			h.FailureReason = st.failureReason()
		}
		return h
	})
	return updated.State, nil
}

// Cancel requests cancellation of a non-terminal job. The remote request
// is best-effort and advisory; local state becomes Cancelled and the job
// is deregistered regardless of the remote acknowledgment, since the
// server remains the source of truth and may still complete the job.
func (c *Client) Cancel(ctx context.Context, id job.ID) error {
	h, ok := c.registry.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", geoproc.ErrJobNotFound, id)
	}
	if h.State.Terminal() {
		return fmt.Errorf("%w: %s is %s", geoproc.ErrAlreadyTerminal, id, h.State)
	}

	// Flag first: a concurrent await loop stops at its next iteration,
	// after its in-flight exchange completes.
	c.registry.Update(id, func(h job.Handle) job.Handle {
		h.CancelRequested = true
		return h
	})

	if _, err := c.tr.Send(ctx, http.MethodPost, c.jobURL(id)+"/cancel?f=json", nil); err != nil {
		c.logger.Warn("remote cancellation request failed, cancelling locally",
			slog.String("job_id", id.String()),
			slog.String("error", err.Error()),
		)
	}

	c.registry.Update(id, func(h job.Handle) job.Handle {
		h.Advance(job.StateCancelled)
		return h
	})
	c.registry.Remove(id)

	c.logger.Info("job cancelled", slog.String("job_id", id.String()))
	return nil
}

// Abandon stops tracking a job without contacting the service. The
// remote job keeps running. An await loop on the abandoned job exits
// with ErrJobCancelled at its next iteration.
func (c *Client) Abandon(id job.ID) error {
	if _, ok := c.registry.Lookup(id); !ok {
		return fmt.Errorf("%w: %s", geoproc.ErrJobNotFound, id)
	}
	c.registry.Remove(id)
	return nil
}

// AwaitAll awaits several jobs concurrently, each with its own poll
// loop, and returns their envelopes keyed by job ID. The first failure
// cancels the remaining waits and is returned.
func (c *Client) AwaitAll(ctx context.Context, ids []job.ID, policy poll.Policy) (map[job.ID]*result.Envelope, error) {
	g, ctx := errgroup.WithContext(ctx)

	var mu sync.Mutex
	out := make(map[job.ID]*result.Envelope, len(ids))

	for _, id := range ids {
		id := id
		g.Go(func() error {
			env, err := c.AwaitCompletion(ctx, id, policy)
			if err != nil {
				return fmt.Errorf("job %s: %w", id, err)
			}
			mu.Lock()
			out[id] = env
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// status performs one status request. Transport failures come back as
// *transientError; an unparseable body is an ErrUnknownState outcome.
func (c *Client) status(ctx context.Context, id job.ID) (*statusResponse, error) {
	raw, err := c.tr.Send(ctx, http.MethodGet, c.jobURL(id)+"?f=json", nil)
	if err != nil {
		return nil, &transientError{err: err}
	}
	st, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	if _, known := wireStates[st.Status]; !known {
		return nil, fmt.Errorf("%w: %q", geoproc.ErrUnknownState, st.Status)
	}
	return st, nil
}

// sleep suspends until d elapses or ctx is done.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) operationURL(kind job.Kind) string {
	return c.cfg.BaseURL + "/operations/" + url.PathEscape(string(kind)) + "/jobs"
}

func (c *Client) jobURL(id job.ID) string {
	return c.cfg.BaseURL + "/jobs/" + url.PathEscape(string(id))
}

// transientError marks a transport-level failure within one poll
// iteration, retried up to the policy's tolerance.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }
