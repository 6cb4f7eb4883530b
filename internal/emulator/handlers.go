package emulator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/notebooklab/ragcheck/internal/api"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var validate = validator.New()

// apiError is the problem-style error body used by every handler.
type apiError struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, apiError{
		Type:   errorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	default:
		return "internal_error"
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(creds); err != nil {
		respondWithError(w, http.StatusBadRequest, "identifier and secret are required")
		return
	}

	if _, err := s.registry.GetUser(creds.Identifier); err == nil {
		respondWithError(w, http.StatusConflict, "Account already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Secret), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash secret", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user := &User{Email: creds.Identifier, PasswordHash: hash}
	if err := s.registry.CreateUser(user); err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	s.respondWithSession(w, http.StatusCreated, creds.Identifier)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds api.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(creds); err != nil {
		respondWithError(w, http.StatusBadRequest, "identifier and secret are required")
		return
	}

	user, err := s.registry.GetUser(creds.Identifier)
	if err != nil {
		respondWithError(w, http.StatusUnauthorized, "Incorrect identifier or secret")
		return
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Secret)); err != nil {
		respondWithError(w, http.StatusUnauthorized, "Incorrect identifier or secret")
		return
	}

	s.respondWithSession(w, http.StatusOK, creds.Identifier)
}

// respondWithSession issues a token and answers with the configured login
// response shape: nested {user, token} by default, flat {access_token}
// when FlatTokenResponse is set.
func (s *Server) respondWithSession(w http.ResponseWriter, status int, email string) {
	token, expiresIn, err := s.issuer.Issue(email)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to issue session token")
		return
	}

	payload := api.TokenPayload{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	}

	if s.cfg.FlatTokenResponse {
		respondJSON(w, status, payload)
		return
	}

	respondJSON(w, status, map[string]interface{}{
		"user":  api.UserPayload{Email: email},
		"token": payload,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	owner, _ := SubjectFromContext(r.Context())

	maxBytes := s.cfg.MaxUploadSizeMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, "File too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondWithError(w, http.StatusBadRequest, "No filename provided")
		return
	}

	storagePath, locator, size, err := s.store.Save(header.Filename, file)
	if err != nil {
		s.logger.Error("failed to store upload", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to store document")
		return
	}
	if size == 0 {
		_ = s.store.Delete(storagePath)
		respondWithError(w, http.StatusBadRequest, "Empty file provided")
		return
	}

	now := time.Now().UTC()
	doc := &Document{
		ID:          "doc-" + uuid.New().String(),
		Owner:       owner,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Status:      api.StatusPending,
		FileSize:    size,
		StoragePath: storagePath,
		Locator:     locator,
		VisibleAt:   now.Add(s.cfg.RegistrationDelayDuration()),
	}
	if err := s.registry.CreateDocument(doc); err != nil {
		s.logger.Error("failed to register document", zap.Error(err))
		_ = s.store.Delete(storagePath)
		respondWithError(w, http.StatusInternalServerError, "Failed to register document")
		return
	}

	s.logger.Info("document registered",
		zap.String("document_id", doc.ID),
		zap.String("owner", owner),
		zap.Int64("file_size", size),
	)

	respondJSON(w, http.StatusOK, api.UploadResponse{Document: toRecord(doc)})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	owner, _ := SubjectFromContext(r.Context())

	limit := queryInt(r, "limit", 50)
	if limit <= 0 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	status := r.URL.Query().Get("status")

	docs, total, err := s.registry.ListDocuments(owner, time.Now().UTC(), limit, offset, status)
	if err != nil {
		s.logger.Error("failed to list documents", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	records := make([]api.DocumentRecord, 0, len(docs))
	for i := range docs {
		records = append(records, toRecord(&docs[i]))
	}

	respondJSON(w, http.StatusOK, api.DocumentListing{
		Documents: records,
		Metadata: &api.ListingMetadata{
			TotalCount: int(total),
			Page:       offset/limit + 1,
			PerPage:    limit,
			HasNext:    int64(offset+limit) < total,
			HasPrev:    offset > 0,
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	owner, _ := SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	doc, err := s.registry.GetDocument(id, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(w, http.StatusNotFound, "Document not found")
			return
		}
		s.logger.Error("failed to fetch document", zap.Error(err), zap.String("document_id", id))
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch document")
		return
	}

	respondJSON(w, http.StatusOK, api.StatusInfo{
		ID:       doc.ID,
		Status:   doc.Status,
		Progress: statusProgress(doc.Status),
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	owner, _ := SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	doc, err := s.registry.DeleteDocument(id, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondWithError(w, http.StatusNotFound, "Document not found")
			return
		}
		s.logger.Error("failed to delete document", zap.Error(err), zap.String("document_id", id))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	if err := s.store.Delete(doc.StoragePath); err != nil {
		s.logger.Warn("failed to delete stored bytes", zap.Error(err), zap.String("document_id", id))
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	services := map[string]api.ServiceHealth{}
	overall := "healthy"

	if err := s.registry.Ping(); err != nil {
		services["registry"] = api.ServiceHealth{Status: "unhealthy", Detail: err.Error()}
		overall = "unhealthy"
	} else {
		services["registry"] = api.ServiceHealth{Status: "healthy"}
	}

	if err := s.store.Available(); err != nil {
		services["storage"] = api.ServiceHealth{Status: "unhealthy", Detail: err.Error()}
		overall = "unhealthy"
	} else {
		services["storage"] = api.ServiceHealth{Status: "healthy"}
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, api.HealthReport{Status: overall, Services: services})
}

func toRecord(doc *Document) api.DocumentRecord {
	return api.DocumentRecord{
		ID:          doc.ID,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		Status:      doc.Status,
		FileSize:    doc.FileSize,
		GCSPath:     doc.Locator,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}

func statusProgress(status string) float64 {
	switch status {
	case api.StatusProcessing:
		return 0.5
	case api.StatusReady:
		return 1.0
	default:
		return 0.0
	}
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}
