package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	loginPath     = "/api/v1/auth/login"
	registerPath  = "/api/v1/auth/register"
	documentsPath = "/api/v1/rag/documents"
	uploadPath    = "/api/v1/rag/documents/upload"
	healthPath    = "/api/v1/rag/health"
)

// Client talks to one document service instance. It holds no session state;
// callers pass the Session returned by Login to subsequent operations, so a
// single Client is safe for concurrent use.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for the service rooted at baseURL.
// A nil logger disables client-side logging.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("User-Agent", "ragcheck")

	return &Client{
		http:   hc,
		logger: logger,
	}
}

// Login authenticates with the service and returns a fresh session.
// Both accepted token response shapes (nested token object, flat field)
// are handled; a 2xx response carrying neither is reported as an error
// with the raw body attached.
func (c *Client) Login(ctx context.Context, creds Credentials) (*Session, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post(loginPath)
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	token, err := parseSessionToken(res.Body())
	if err != nil {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     err.Error(),
		}
	}

	c.logger.Debug("session acquired", zap.Int("status", res.StatusCode()))

	return &Session{Token: token}, nil
}

// Register creates a new account. The service answers with the same login
// response shape, so the resulting session is returned directly.
func (c *Client) Register(ctx context.Context, creds Credentials) (*Session, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(creds).
		Post(registerPath)
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	token, err := parseSessionToken(res.Body())
	if err != nil {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     err.Error(),
		}
	}

	return &Session{Token: token}, nil
}

// ListDocuments fetches the current document listing. No caching: every
// call is a fresh round-trip.
func (c *Client) ListDocuments(ctx context.Context, session *Session) (*DocumentListing, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.Token).
		Get(documentsPath)
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	var listing DocumentListing
	if err := json.Unmarshal(res.Body(), &listing); err != nil {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     fmt.Sprintf("malformed listing: %v", err),
		}
	}

	return &listing, nil
}

// UploadDocument submits one document as a multipart body with a single
// "file" field and returns the registered record.
func (c *Client) UploadDocument(ctx context.Context, session *Session, sub Submission) (*DocumentRecord, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.Token).
		SetMultipartField("file", sub.Filename, sub.ContentType, bytes.NewReader(sub.Payload)).
		Post(uploadPath)
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	var out UploadResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil || out.Document.ID == "" {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     "malformed upload response",
		}
	}

	c.logger.Debug("document submitted",
		zap.String("document_id", out.Document.ID),
		zap.Int64("file_size", out.Document.FileSize),
	)

	return &out.Document, nil
}

// DocumentStatus fetches the processing status of one document.
func (c *Client) DocumentStatus(ctx context.Context, session *Session, id string) (*StatusInfo, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.Token).
		Get(documentsPath + "/" + id + "/status")
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	var info StatusInfo
	if err := json.Unmarshal(res.Body(), &info); err != nil {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     fmt.Sprintf("malformed status response: %v", err),
		}
	}

	return &info, nil
}

// DeleteDocument removes one document and its stored bytes.
func (c *Client) DeleteDocument(ctx context.Context, session *Session, id string) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.Token).
		Delete(documentsPath + "/" + id)
	if err != nil {
		return transportError(err)
	}
	if res.IsError() {
		return statusError(res)
	}
	return nil
}

// Health fetches the service's subsystem health report. It requires no
// session.
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get(healthPath)
	if err != nil {
		return nil, transportError(err)
	}
	if res.IsError() {
		return nil, statusError(res)
	}

	var report HealthReport
	if err := json.Unmarshal(res.Body(), &report); err != nil {
		return nil, &Error{
			StatusCode: res.StatusCode(),
			Body:       string(res.Body()),
			Reason:     fmt.Sprintf("malformed health response: %v", err),
		}
	}

	return &report, nil
}
