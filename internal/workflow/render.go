package workflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const bodyPreviewLimit = 300

// JSON renders the report as indented JSON.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Render produces a human-readable, stage-by-stage account of the run.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "upload verification report (%s)\n", r.Duration.Truncate(time.Millisecond))

	writeStage(&b, "authenticate", r.Auth.Outcome, "")

	probeNote := ""
	if r.Probe.State == StateSuccess {
		probeNote = fmt.Sprintf("%d document(s) listed", r.Probe.DocumentCount)
	}
	writeStage(&b, "probe listing", r.Probe.Outcome, probeNote)

	subNote := ""
	if r.Submission.Document != nil {
		subNote = fmt.Sprintf("id=%s status=%s size=%d",
			r.Submission.Document.ID,
			r.Submission.Document.Status,
			r.Submission.Document.FileSize,
		)
	}
	writeStage(&b, "submit document", r.Submission.Outcome, subNote)

	verNote := ""
	switch {
	case r.Verification.Found && r.Verification.Document != nil:
		verNote = fmt.Sprintf("found, status=%s size=%d",
			r.Verification.Document.Status,
			r.Verification.Document.FileSize,
		)
	case r.Verification.State == StateWarning:
		verNote = "not found in listing yet"
	}
	writeStage(&b, "verify registration", r.Verification.Outcome, verNote)

	if r.Succeeded() {
		b.WriteString("result: ok\n")
	} else {
		b.WriteString("result: failed\n")
	}

	return b.String()
}

func writeStage(b *strings.Builder, name string, o Outcome, note string) {
	fmt.Fprintf(b, "  %-20s %s", name, o.State)

	switch {
	case o.Transport:
		fmt.Fprintf(b, " (transport failure: %s)", o.Detail)
	case o.HTTPStatus != 0 && o.State != StateSuccess:
		fmt.Fprintf(b, " (status %d)", o.HTTPStatus)
	}

	if note != "" {
		fmt.Fprintf(b, ": %s", note)
	} else if o.Detail != "" && !o.Transport {
		fmt.Fprintf(b, ": %s", o.Detail)
	}
	b.WriteString("\n")

	if o.Body != "" && o.State != StateSuccess {
		fmt.Fprintf(b, "%24s body: %s\n", "", previewBody(o.Body))
	}
}

func previewBody(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > bodyPreviewLimit {
		return body[:bodyPreviewLimit] + "..."
	}
	return body
}
