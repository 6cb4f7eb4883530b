// Package workflow runs the upload-and-verification sequence against a
// document service: authenticate, probe the listing, submit a document,
// and verify the submission shows up in a fresh listing. Every stage is
// reported as a tagged outcome so callers can render precise diagnostics
// instead of a single pass/fail boolean.
package workflow

import (
	"time"

	"github.com/notebooklab/ragcheck/internal/api"
)

// State tags the result of one workflow stage.
type State string

const (
	// StateSuccess means the stage completed its intended effect.
	StateSuccess State = "success"
	// StateWarning means the stage observed a non-blocking anomaly;
	// the workflow continued.
	StateWarning State = "warning"
	// StateError means the stage could not complete its intended effect.
	StateError State = "error"
	// StateSkipped means an earlier fatal stage prevented this one from
	// being attempted.
	StateSkipped State = "skipped"
)

// Outcome is the common result of one stage. HTTPStatus and Body are set
// when the service answered; Transport marks failures that never produced
// a response (connection refused, timeout), with the reason in Detail.
type Outcome struct {
	State      State  `json:"state"`
	HTTPStatus int    `json:"http_status,omitempty"`
	Body       string `json:"body,omitempty"`
	Transport  bool   `json:"transport,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// AuthOutcome is the result of the authentication stage.
type AuthOutcome struct {
	Outcome
}

// ProbeOutcome is the result of the diagnostic listing probe. A probe
// failure is a warning, never a precondition.
type ProbeOutcome struct {
	Outcome
	DocumentCount int `json:"document_count,omitempty"`
}

// SubmissionOutcome is the result of the document upload, carrying the
// full registered record on success.
type SubmissionOutcome struct {
	Outcome
	Document *api.DocumentRecord `json:"document,omitempty"`
}

// VerificationOutcome distinguishes three terminal cases: the listing
// fetch failed (error), the identifier was absent (warning, since
// propagation may be asynchronous), or the identifier was found (success,
// with the record's current state passed through).
type VerificationOutcome struct {
	Outcome
	Found    bool                `json:"found"`
	Document *api.DocumentRecord `json:"document,omitempty"`
}

// Report aggregates the outcome of every stage of one run.
type Report struct {
	Auth         AuthOutcome         `json:"auth"`
	Probe        ProbeOutcome        `json:"probe"`
	Submission   SubmissionOutcome   `json:"submission"`
	Verification VerificationOutcome `json:"verification"`
	StartedAt    time.Time           `json:"started_at"`
	Duration     time.Duration       `json:"duration"`
}

// Succeeded reports whether no stage ended in an error state. Warnings do
// not count against success.
func (r *Report) Succeeded() bool {
	for _, s := range []State{
		r.Auth.State, r.Probe.State, r.Submission.State, r.Verification.State,
	} {
		if s == StateError {
			return false
		}
	}
	return true
}

func skipped() Outcome {
	return Outcome{State: StateSkipped}
}

func success() Outcome {
	return Outcome{State: StateSuccess}
}

// failure converts a client error into an outcome with the given state,
// preserving status code, raw body and the transport distinction.
func failure(state State, err error) Outcome {
	if apiErr, ok := api.AsError(err); ok {
		return Outcome{
			State:      state,
			HTTPStatus: apiErr.StatusCode,
			Body:       apiErr.Body,
			Transport:  apiErr.Transport,
			Detail:     apiErr.Reason,
		}
	}
	return Outcome{State: state, Detail: err.Error()}
}
