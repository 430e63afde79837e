package job

import "time"

// ID is the opaque job identifier assigned by the service at submission.
type ID string

func (id ID) String() string { return string(id) }

// Kind identifies the geoprocessing operation a job runs. The string
// value doubles as the operation's path segment in the REST API.
type Kind string

const (
	KindElevationSummary Kind = "elevation-summary"
	KindViewshed         Kind = "viewshed"
	KindProfile          Kind = "profile"
	KindWatershed        Kind = "watershed"
	KindHillshade        Kind = "hillshade"
	KindSurfaceVolume    Kind = "surface-volume"
)

// State represents the lifecycle state of a remote job as last observed
// by this client.
type State string

const (
	// StateSubmitted means the service accepted the job but has not
	// started it.
	StateSubmitted State = "submitted"
	// StateExecuting means the service is running the job. It may be
	// observed repeatedly across polls.
	StateExecuting State = "executing"
	// StateSucceeded means the job finished and produced a result.
	StateSucceeded State = "succeeded"
	// StateFailed means the service reported the job failed.
	StateFailed State = "failed"
	// StateTimedOut means this client gave up waiting. The remote job
	// may still be running; timing out does not cancel it.
	StateTimedOut State = "timed-out"
	// StateCancelled means cancellation was requested through this
	// client. Cancellation is advisory; the service may still finish
	// the job.
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition can occur from s.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Handle is the authoritative client-side record of one remote job.
// The Registry stores handles by value; callers hold only the job ID
// and read snapshots through the Registry, never a shared mutable copy.
type Handle struct {
	ID          ID
	Kind        Kind
	SubmittedAt time.Time
	State       State

	// CorrelID is a client-generated correlation identifier carried in
	// logs and trace attributes. It is never sent to the service.
	CorrelID string

	// Progress is the last reported completion percentage. Meaningful
	// only when HasProgress is true; the service omits it for some
	// operations.
	Progress    int
	HasProgress bool

	// FailureReason holds the server-supplied failure detail, verbatim,
	// once State is StateFailed.
	FailureReason string

	// CancelRequested is set by Cancel and observed at the top of each
	// poll iteration, so an in-flight status request always completes
	// before the loop exits.
	CancelRequested bool
}

// Advance moves the handle to next and returns true, unless the current
// state is terminal, in which case the handle is unchanged and Advance
// returns false. Terminal states are final; there is no way back.
func (h *Handle) Advance(next State) bool {
	if h.State.Terminal() {
		return false
	}
	h.State = next
	return true
}
