package emulator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/notebooklab/ragcheck/internal/api"
	"github.com/notebooklab/ragcheck/internal/config"
	"github.com/notebooklab/ragcheck/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEmulatorConfig(t *testing.T) *config.EmulatorConfig {
	t.Helper()
	return &config.EmulatorConfig{
		JWTSecret:       "server-test-secret",
		TokenTTLMinutes: 5,
		StoragePath:     t.TempDir(),
		StorageBucket:   "ragcheck-test",
		MaxUploadSizeMB: 1,
		SeedIdentifier:  "test@example.com",
		SeedSecret:      "testpassword123",
		RateLimit:       config.RateLimitConfig{Enabled: false},
		CORS:            config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func startEmulator(t *testing.T, cfg *config.EmulatorConfig) (*httptest.Server, *api.Client) {
	t.Helper()
	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return ts, api.NewClient(ts.URL, 5*time.Second, nil)
}

func seedCredentials() api.Credentials {
	return api.Credentials{Identifier: "test@example.com", Secret: "testpassword123"}
}

func testSubmission() api.Submission {
	return api.Submission{
		Payload:     []byte("end to end payload"),
		ContentType: "text/plain",
		Filename:    "test-document.txt",
	}
}

func TestWorkflowAgainstEmulator(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))

	report := workflow.NewRunner(client, nil).Run(context.Background(), seedCredentials(), testSubmission())

	assert.Equal(t, workflow.StateSuccess, report.Auth.State)
	assert.Equal(t, workflow.StateSuccess, report.Probe.State)
	assert.Equal(t, 0, report.Probe.DocumentCount)

	require.Equal(t, workflow.StateSuccess, report.Submission.State)
	require.NotNil(t, report.Submission.Document)
	assert.Equal(t, api.StatusPending, report.Submission.Document.Status)
	assert.Equal(t, int64(len("end to end payload")), report.Submission.Document.FileSize)
	assert.Contains(t, report.Submission.Document.GCSPath, "ragcheck-test/")

	require.Equal(t, workflow.StateSuccess, report.Verification.State)
	assert.True(t, report.Verification.Found)
	assert.True(t, report.Succeeded())
}

func TestWorkflowSeesRegistrationDelayAsWarning(t *testing.T) {
	cfg := testEmulatorConfig(t)
	cfg.RegistrationDelaySeconds = 60
	_, client := startEmulator(t, cfg)

	report := workflow.NewRunner(client, nil).Run(context.Background(), seedCredentials(), testSubmission())

	require.Equal(t, workflow.StateSuccess, report.Submission.State)
	assert.Equal(t, workflow.StateWarning, report.Verification.State)
	assert.False(t, report.Verification.Found)
	// propagation lag is not a failure
	assert.True(t, report.Succeeded())
}

func TestWorkflowRejectedCredentials(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))

	report := workflow.NewRunner(client, nil).Run(context.Background(), api.Credentials{
		Identifier: "test@example.com",
		Secret:     "wrong-password",
	}, testSubmission())

	assert.Equal(t, workflow.StateError, report.Auth.State)
	assert.Equal(t, http.StatusUnauthorized, report.Auth.HTTPStatus)
	assert.Equal(t, workflow.StateSkipped, report.Probe.State)
	assert.Equal(t, workflow.StateSkipped, report.Submission.State)
	assert.Equal(t, workflow.StateSkipped, report.Verification.State)
}

func TestFlatTokenResponseShape(t *testing.T) {
	cfg := testEmulatorConfig(t)
	cfg.FlatTokenResponse = true
	_, client := startEmulator(t, cfg)

	session, err := client.Login(context.Background(), seedCredentials())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	listing, err := client.ListDocuments(context.Background(), session)
	require.NoError(t, err)
	assert.Empty(t, listing.Documents)
}

func TestRegisterThenLogin(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))
	ctx := context.Background()

	creds := api.Credentials{Identifier: "new@example.com", Secret: "new-password-1"}

	session, err := client.Register(ctx, creds)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)

	// duplicate registration conflicts
	_, err = client.Register(ctx, creds)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	session, err = client.Login(ctx, creds)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
}

func TestListingRequiresSession(t *testing.T) {
	ts, _ := startEmulator(t, testEmulatorConfig(t))

	res, err := http.Get(ts.URL + "/api/v1/rag/documents")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/rag/documents", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer bogus")
	res2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res2.StatusCode)
}

func TestDocumentStatusAndDelete(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))
	ctx := context.Background()

	session, err := client.Login(ctx, seedCredentials())
	require.NoError(t, err)

	doc, err := client.UploadDocument(ctx, session, testSubmission())
	require.NoError(t, err)

	info, err := client.DocumentStatus(ctx, session, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, info.ID)
	assert.Equal(t, api.StatusPending, info.Status)
	assert.Equal(t, 0.0, info.Progress)

	require.NoError(t, client.DeleteDocument(ctx, session, doc.ID))

	_, err = client.DocumentStatus(ctx, session, doc.ID)
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	listing, err := client.ListDocuments(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, listing.Documents)
}

func TestProbeIdempotence(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))
	ctx := context.Background()

	session, err := client.Login(ctx, seedCredentials())
	require.NoError(t, err)

	_, err = client.UploadDocument(ctx, session, testSubmission())
	require.NoError(t, err)

	first, err := client.ListDocuments(ctx, session)
	require.NoError(t, err)
	second, err := client.ListDocuments(ctx, session)
	require.NoError(t, err)

	require.Len(t, first.Documents, 1)
	assert.Equal(t, first.Documents, second.Documents)
}

func TestHealthEndpoint(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))

	report, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "healthy", report.Services["registry"].Status)
	assert.Equal(t, "healthy", report.Services["storage"].Status)
}

func TestUploadRejectsEmptyFile(t *testing.T) {
	_, client := startEmulator(t, testEmulatorConfig(t))
	ctx := context.Background()

	session, err := client.Login(ctx, seedCredentials())
	require.NoError(t, err)

	_, err = client.UploadDocument(ctx, session, api.Submission{
		Payload:     nil,
		ContentType: "text/plain",
		Filename:    "empty.txt",
	})
	apiErr, ok := api.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
