package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/mapflow/geoproc"
	"github.com/mapflow/geoproc/job"
	"github.com/mapflow/geoproc/result"
)

// operationOutputs declares the output shape each operation kind
// produces. The decoder only ever sees a kind declared here; it never
// infers one from the payload.
var operationOutputs = map[job.Kind]result.OutputKind{
	job.KindElevationSummary: result.OutputFeatureCollection,
	job.KindViewshed:         result.OutputFeatureCollection,
	job.KindProfile:          result.OutputFeatureCollection,
	job.KindWatershed:        result.OutputNamedMap,
	job.KindHillshade:        result.OutputRaster,
	job.KindSurfaceVolume:    result.OutputScalar,
}

// wireStates maps the service's status vocabulary to client states.
// A status outside this map is an unknown state, reported as such.
var wireStates = map[string]job.State{
	"submitted": job.StateSubmitted,
	"executing": job.StateExecuting,
	"succeeded": job.StateSucceeded,
	"failed":    job.StateFailed,
	"cancelled": job.StateCancelled,
}

// acceptance is the response to a job submission.
type acceptance struct {
	JobID  string `json:"jobId"`
	Status string `json:"status,omitempty"`
}

func parseAcceptance(raw []byte) (job.ID, error) {
	var acc acceptance
	if err := json.Unmarshal(raw, &acc); err != nil {
		return "", fmt.Errorf("%w: %v", geoproc.ErrMalformedAcceptance, err)
	}
	if strings.TrimSpace(acc.JobID) == "" {
		return "", fmt.Errorf("%w: response %.200s", geoproc.ErrMalformedAcceptance, raw)
	}
	return job.ID(acc.JobID), nil
}

// statusMessage is one entry of the service's message log for a job.
type statusMessage struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// statusResponse is the body of a status poll. Results may arrive
// inline on success; when absent they are fetched separately.
type statusResponse struct {
	JobID    string          `json:"jobId"`
	Status   string          `json:"status"`
	Progress *int            `json:"progress,omitempty"`
	Messages []statusMessage `json:"messages,omitempty"`
	Results  json.RawMessage `json:"results,omitempty"`
}

func parseStatus(raw []byte) (*statusResponse, error) {
	var st statusResponse
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("%w: unparseable status payload: %v", geoproc.ErrUnknownState, err)
	}
	return &st, nil
}

// failureReason collects the server-supplied failure detail, verbatim.
// Error-typed messages win; with none present, all message text is
// kept rather than substituting a generic phrase.
func (s *statusResponse) failureReason() string {
	var errs, all []string
	for _, m := range s.Messages {
		if m.Description == "" {
			continue
		}
		all = append(all, m.Description)
		if strings.EqualFold(m.Type, "error") {
			errs = append(errs, m.Description)
		}
	}
	switch {
	case len(errs) > 0:
		return strings.Join(errs, "; ")
	case len(all) > 0:
		return strings.Join(all, "; ")
	default:
		return "no failure detail supplied"
	}
}

// Parameters is an operation's input parameter set: either url.Values
// passed through as-is, or any struct encodable through go-querystring
// `url` tags. Typed per-operation builders live with callers; the
// client only flattens them onto the wire.
type Parameters any

// encodeParameters form-encodes params and forces f=json, the response
// format this client speaks.
func encodeParameters(params Parameters) ([]byte, error) {
	vals := url.Values{}
	switch p := params.(type) {
	case nil:
	case url.Values:
		for k, vs := range p {
			vals[k] = append([]string(nil), vs...)
		}
	default:
		qv, err := query.Values(p)
		if err != nil {
			return nil, fmt.Errorf("encode parameters: %w", err)
		}
		vals = qv
	}
	vals.Set("f", "json")
	return []byte(vals.Encode()), nil
}
