// Package job defines the client-side record of a remote geoprocessing
// job and the registry that tracks in-flight jobs.
//
// # State Machine
//
// A [Handle] mirrors the remote job's lifecycle as last observed:
//
//	submitted → executing → succeeded
//	submitted → executing → failed
//	submitted → executing → ... → timed-out
//	submitted → cancelled
//
// Executing may recur across polls. Succeeded, failed, timed-out and
// cancelled are terminal: [Handle.Advance] refuses any transition out
// of them, which makes state progression monotonic by construction.
//
// Timed-out and cancelled describe this client's view, not necessarily
// the server's. A client-side timeout does not cancel the remote job,
// and cancellation is advisory: the service may complete the job anyway.
//
// # Registry
//
// [Registry] is the process-wide bookkeeping of in-flight jobs. It is
// an injected, explicitly owned instance rather than a package-level
// singleton, so every client (and every test) gets isolated tracking.
// Callers identify jobs by [ID] and read handle snapshots; only the
// poller writes, through [Registry.Update].
package job
