package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ycsa-dashboard/backend/internal/models"
)

// ErrEmptyFile is returned when an upload carries no bytes.
var ErrEmptyFile = errors.New("uploaded file is empty")

// ErrFileNotFound is returned for unknown file ids.
var ErrFileNotFound = errors.New("file not found")

// ErrFileTooLarge is returned when an upload exceeds the store limit.
var ErrFileTooLarge = errors.New("file too large")

// Store defines the interface for uploaded file storage.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	Bytes(id string) ([]byte, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
}

type storedFile struct {
	info *models.FileInfo
	data []byte
}

// MemoryStore keeps uploaded files in memory for the lifetime of their
// dashboard session. Files are only written to disk inside a request scope.
type MemoryStore struct {
	mu       sync.RWMutex
	files    map[string]*storedFile
	maxBytes int64
}

// NewMemoryStore creates a MemoryStore. maxBytes <= 0 disables the size limit.
func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		files:    make(map[string]*storedFile),
		maxBytes: maxBytes,
	}
}

// Save reads r fully and registers it under a new id.
func (s *MemoryStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	var buf bytes.Buffer
	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	size, err := io.Copy(&buf, src)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, fmt.Errorf("%w: upload exceeds %d bytes", ErrFileTooLarge, s.maxBytes)
	}

	info := &models.FileInfo{
		ID:         uuid.New().String(),
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
		Status:     "uploaded",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[info.ID] = &storedFile{info: info, data: buf.Bytes()}

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *MemoryStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return f.info, nil
}

// Bytes returns the stored content. Callers must not modify it.
func (s *MemoryStore) Bytes(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return f.data, nil
}

// List returns the most recent files.
func (s *MemoryStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, f := range s.files {
		list = append(list, f.info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete drops a file and its bytes.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	f.info.Status = "released"
	delete(s.files, id)
	return nil
}
