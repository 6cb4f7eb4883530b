package workflow

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/notebooklab/ragcheck/internal/api"
	"github.com/notebooklab/ragcheck/internal/logger"
	"go.uber.org/zap"
)

var validate = validator.New()

// Runner executes upload verification runs. Dependencies are explicit;
// there is no ambient configuration and no state shared between runs, so
// concurrent Run calls are independent.
type Runner struct {
	client *api.Client
	logger *zap.Logger
}

// NewRunner creates a runner bound to one service client.
func NewRunner(client *api.Client, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		client: client,
		logger: logger,
	}
}

// Run executes the four stages in strict sequence and never fails past its
// own boundary: every stage result, including transport failures, lands in
// the returned report. Authentication and submission failures short-circuit
// the remaining stages, which are then tagged skipped. The session token
// acquired in stage one is discarded when Run returns.
//
// Side effects per invocation: exactly one login, one upload, and one or
// two listing fetches. Retries of the non-idempotent stages are
// deliberately left to the caller.
func (r *Runner) Run(ctx context.Context, creds api.Credentials, sub api.Submission) (report Report) {
	report = Report{
		StartedAt:    time.Now().UTC(),
		Auth:         AuthOutcome{Outcome: skipped()},
		Probe:        ProbeOutcome{Outcome: skipped()},
		Submission:   SubmissionOutcome{Outcome: skipped()},
		Verification: VerificationOutcome{Outcome: skipped()},
	}
	defer func() {
		report.Duration = time.Since(report.StartedAt)
	}()

	if err := validate.Struct(creds); err != nil {
		report.Auth.Outcome = Outcome{State: StateError, Detail: "invalid credentials: " + err.Error()}
		return report
	}
	if err := validate.Struct(sub); err != nil {
		report.Auth.Outcome = Outcome{State: StateError, Detail: "invalid submission: " + err.Error()}
		return report
	}

	// Stage 1: authenticate. Fatal on failure.
	log := logger.WithStage(r.logger, "authenticate")
	session, err := r.client.Login(ctx, creds)
	if err != nil {
		report.Auth.Outcome = failure(StateError, err)
		log.Warn("authentication failed", zap.String("detail", report.Auth.Detail), zap.Int("status", report.Auth.HTTPStatus))
		return report
	}
	report.Auth.Outcome = success()
	log.Info("session acquired")

	// Stage 2: probe the listing endpoint. Diagnostic only; a failure is
	// recorded as a warning and never gates submission.
	log = logger.WithStage(r.logger, "probe")
	listing, err := r.client.ListDocuments(ctx, session)
	if err != nil {
		report.Probe.Outcome = failure(StateWarning, err)
		log.Warn("listing probe failed, continuing", zap.Int("status", report.Probe.HTTPStatus))
	} else {
		report.Probe.Outcome = success()
		report.Probe.DocumentCount = len(listing.Documents)
		log.Info("listing probe ok", zap.Int("documents", len(listing.Documents)))
	}

	// Stage 3: submit the document. Fatal on failure.
	log = logger.WithStage(r.logger, "submit")
	doc, err := r.client.UploadDocument(ctx, session, sub)
	if err != nil {
		report.Submission.Outcome = failure(StateError, err)
		log.Warn("submission failed", zap.Int("status", report.Submission.HTTPStatus))
		return report
	}
	report.Submission.Outcome = success()
	report.Submission.Document = doc
	log.Info("document submitted",
		zap.String("document_id", doc.ID),
		zap.String("status", doc.Status),
		zap.Int64("file_size", doc.FileSize),
	)

	// Stage 4: verify registration with a fresh listing fetch.
	report.Verification = r.verify(ctx, session, doc.ID)

	return report
}

func (r *Runner) verify(ctx context.Context, session *api.Session, id string) VerificationOutcome {
	log := logger.WithStage(r.logger, "verify")
	listing, err := r.client.ListDocuments(ctx, session)
	if err != nil {
		log.Warn("verification fetch failed", zap.String("document_id", id))
		return VerificationOutcome{Outcome: failure(StateError, err)}
	}

	for i := range listing.Documents {
		if listing.Documents[i].ID == id {
			log.Info("document found in listing",
				zap.String("document_id", id),
				zap.String("status", listing.Documents[i].Status),
			)
			return VerificationOutcome{
				Outcome:  success(),
				Found:    true,
				Document: &listing.Documents[i],
			}
		}
	}

	// Absence is an observable outcome, not a hard failure: registration
	// may propagate to the listing asynchronously.
	log.Warn("document not yet present in listing", zap.String("document_id", id))
	return VerificationOutcome{
		Outcome: Outcome{
			State:  StateWarning,
			Detail: "document not present in listing",
		},
	}
}
