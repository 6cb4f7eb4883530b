// Package emulator implements a local stand-in for the notebook document
// service: JWT-authenticated upload, listing, status and delete endpoints
// backed by a sqlite registry and local disk storage. It exists so the
// upload verification workflow can be exercised end to end without a
// deployed backend. The real persistence, auth provider and object storage
// stay external collaborators; nothing here is meant for production.
package emulator

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// User is an emulator account. The secret is stored as a bcrypt hash.
type User struct {
	Email        string `gorm:"primaryKey"`
	PasswordHash []byte
	CreatedAt    time.Time
}

// Document is one registered upload.
type Document struct {
	ID          string `gorm:"primaryKey"`
	Owner       string `gorm:"index"`
	Filename    string
	ContentType string
	Status      string
	FileSize    int64
	// StoragePath locates the bytes on disk; Locator is the opaque
	// gcs_path value exposed on the wire
	StoragePath string
	Locator     string
	// VisibleAt delays the document's appearance in listings, mimicking
	// asynchronous index propagation
	VisibleAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Registry stores users and document records in sqlite.
type Registry struct {
	db *gorm.DB
}

// NewRegistry opens the registry at path. An empty path yields a private
// in-memory database.
func NewRegistry(path string) (*Registry, error) {
	if path == "" {
		// Named in-memory database so all pooled connections share it
		path = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	if err := db.AutoMigrate(&User{}, &Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate registry: %w", err)
	}

	return &Registry{db: db}, nil
}

// Ping verifies the underlying database connection.
func (r *Registry) Ping() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// CreateUser registers a new account.
func (r *Registry) CreateUser(user *User) error {
	return r.db.Create(user).Error
}

// GetUser fetches an account by email. Returns gorm.ErrRecordNotFound when
// the account does not exist.
func (r *Registry) GetUser(email string) (*User, error) {
	var user User
	if err := r.db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateDocument registers a new document record.
func (r *Registry) CreateDocument(doc *Document) error {
	return r.db.Create(doc).Error
}

// GetDocument fetches one document owned by owner.
func (r *Registry) GetDocument(id, owner string) (*Document, error) {
	var doc Document
	if err := r.db.First(&doc, "id = ? AND owner = ?", id, owner).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns the owner's documents that are visible at the given
// instant, newest first. The status filter is optional. total counts all
// matching documents regardless of pagination.
func (r *Registry) ListDocuments(owner string, now time.Time, limit, offset int, status string) ([]Document, int64, error) {
	q := r.db.Model(&Document{}).
		Where("owner = ? AND visible_at <= ?", owner, now)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var docs []Document
	err := q.Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// DeleteDocument removes one document owned by owner. Returns the deleted
// record so the caller can also remove the stored bytes.
func (r *Registry) DeleteDocument(id, owner string) (*Document, error) {
	doc, err := r.GetDocument(id, owner)
	if err != nil {
		return nil, err
	}
	if err := r.db.Delete(&Document{}, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return doc, nil
}

// AdvanceStatuses moves every document one step along the processing
// lifecycle: processing becomes ready, then pending becomes processing.
// The order prevents a document from advancing twice in one sweep.
func (r *Registry) AdvanceStatuses() error {
	if err := r.db.Model(&Document{}).
		Where("status = ?", "processing").
		Update("status", "ready").Error; err != nil {
		return err
	}
	return r.db.Model(&Document{}).
		Where("status = ?", "pending").
		Update("status", "processing").Error
}

// CountDocuments returns the total number of registered documents.
func (r *Registry) CountDocuments() (int64, error) {
	var n int64
	err := r.db.Model(&Document{}).Count(&n).Error
	return n, err
}
