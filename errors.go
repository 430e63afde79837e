package geoproc

import "errors"

var (
	// Submission errors.
	ErrTransportFailure    = errors.New("geoproc: transport failure")
	ErrMalformedAcceptance = errors.New("geoproc: job accepted without a job identifier")

	// Await errors.
	ErrUnreachable       = errors.New("geoproc: service unreachable")
	ErrRemoteFailure     = errors.New("geoproc: job failed on the service")
	ErrResultUndecodable = errors.New("geoproc: job succeeded but result is undecodable")
	ErrUnknownState      = errors.New("geoproc: service reported an unknown job state")
	ErrTimeout           = errors.New("geoproc: wait budget exhausted")
	ErrJobCancelled      = errors.New("geoproc: job cancelled")

	// Decode errors.
	ErrShapeMismatch = errors.New("geoproc: result shape mismatch")
	ErrTypeMismatch  = errors.New("geoproc: result type mismatch")

	// Registry and cancellation errors.
	ErrAlreadyTerminal = errors.New("geoproc: job already in a terminal state")
	ErrJobNotFound     = errors.New("geoproc: job not found")
)
