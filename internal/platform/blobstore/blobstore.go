// Package blobstore stores the skin photos that triage reports are generated
// from. It defines the PhotoStore interface, an in-memory implementation for
// development and tests, an S3-compatible implementation, and Echo HTTP
// handlers for upload and download.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPhotoNotFound      = errors.New("photo not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrMissingFileName    = errors.New("file name is required")
)

// MaxPhotoSize is the maximum allowed photo size in bytes (10 MB).
const MaxPhotoSize = 10 * 1024 * 1024

// AllowedContentTypes lists the image MIME types patients may upload.
var AllowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
}

// PhotoMetadata describes a stored photo.
type PhotoMetadata struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	PatientID   string    `json:"patient_id"`
	Hash        string    `json:"hash"`
	CreatedAt   time.Time `json:"created_at"`
}

// PhotoStore defines the contract for photo storage backends.
type PhotoStore interface {
	Upload(ctx context.Context, meta PhotoMetadata, content io.Reader) (*PhotoMetadata, error)
	Download(ctx context.Context, id string) (io.ReadCloser, *PhotoMetadata, error)
	GetMetadata(ctx context.Context, id string) (*PhotoMetadata, error)
	Delete(ctx context.Context, id string) error
	ListByPatient(ctx context.Context, patientID string, limit, offset int) ([]*PhotoMetadata, int, error)
}

// validateUpload enforces the shared upload preconditions and reads the
// content, computing size and hash.
func validateUpload(meta *PhotoMetadata, content io.Reader) ([]byte, error) {
	if meta.FileName == "" {
		return nil, ErrMissingFileName
	}
	if !AllowedContentTypes[meta.ContentType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContentType, meta.ContentType)
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxPhotoSize {
		return nil, ErrFileTooLarge
	}

	h := sha256.Sum256(data)
	meta.ID = uuid.New().String()
	meta.Size = int64(len(data))
	meta.Hash = fmt.Sprintf("%x", h)
	meta.CreatedAt = time.Now().UTC()
	return data, nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

type storedPhoto struct {
	metadata PhotoMetadata
	content  []byte
}

// InMemoryPhotoStore is a thread-safe, in-memory PhotoStore for testing/dev.
type InMemoryPhotoStore struct {
	mu     sync.RWMutex
	photos map[string]*storedPhoto
}

// NewInMemoryPhotoStore returns a ready-to-use InMemoryPhotoStore.
func NewInMemoryPhotoStore() *InMemoryPhotoStore {
	return &InMemoryPhotoStore{
		photos: make(map[string]*storedPhoto),
	}
}

func (s *InMemoryPhotoStore) Upload(_ context.Context, meta PhotoMetadata, content io.Reader) (*PhotoMetadata, error) {
	data, err := validateUpload(&meta, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.photos[meta.ID] = &storedPhoto{metadata: meta, content: data}
	s.mu.Unlock()

	out := meta // copy
	return &out, nil
}

func (s *InMemoryPhotoStore) Download(_ context.Context, id string) (io.ReadCloser, *PhotoMetadata, error) {
	s.mu.RLock()
	photo, ok := s.photos[id]
	s.mu.RUnlock()

	if !ok {
		return nil, nil, ErrPhotoNotFound
	}

	meta := photo.metadata // copy
	return io.NopCloser(bytes.NewReader(photo.content)), &meta, nil
}

func (s *InMemoryPhotoStore) GetMetadata(_ context.Context, id string) (*PhotoMetadata, error) {
	s.mu.RLock()
	photo, ok := s.photos[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrPhotoNotFound
	}

	meta := photo.metadata // copy
	return &meta, nil
}

func (s *InMemoryPhotoStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[id]; !ok {
		return ErrPhotoNotFound
	}
	delete(s.photos, id)
	return nil
}

func (s *InMemoryPhotoStore) ListByPatient(_ context.Context, patientID string, limit, offset int) ([]*PhotoMetadata, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*PhotoMetadata
	for _, p := range s.photos {
		if p.metadata.PatientID != patientID {
			continue
		}
		m := p.metadata // copy
		matched = append(matched, &m)
	}

	total := len(matched)
	if limit <= 0 {
		limit = 20
	}
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}

	return matched[offset:end], total, nil
}
