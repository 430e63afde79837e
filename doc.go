// Package geoproc provides a Go client for driving long-running,
// asynchronous geoprocessing jobs on a remote geospatial REST service.
//
// The service executes operations such as elevation summarization or
// viewshed computation as server-side jobs with no push notification.
// geoproc handles the client side of that protocol: submitting a job,
// polling its status with bounded exponential backoff, decoding the
// heterogeneous result payloads into one typed envelope, and reporting
// a precise failure taxonomy when the job or the network misbehaves.
//
// # Quick Start
//
//	cfg, err := geoproc.ConfigFromEnv()
//	c, err := client.New(cfg)
//
//	id, err := c.Submit(ctx, job.KindViewshed, params)
//	env, err := c.AwaitCompletion(ctx, id, poll.DefaultPolicy())
//
// # Architecture
//
// The root package holds the error taxonomy and connection config.
// Subpackages split along the protocol's seams: job (lifecycle states
// and the in-flight registry), poll (backoff and wait policy), result
// (payload shape normalization), transport (the request/response port),
// and client (the poller tying them together).
//
// Job state lives on the server; this client keeps only in-process
// bookkeeping. A restart loses track of in-flight handles. The remote
// jobs keep running regardless; geoproc does not persist anything.
package geoproc
