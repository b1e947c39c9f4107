package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrUnsupported = errors.New("unsupported image type")
)

const MaxImageSize = 8 << 20

type Object struct {
	Name        string
	ContentType string
	Size        uint64
	ModTime     time.Time
	Data        []byte
}

type ObjectStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Get(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ObjectName picks a fresh name for an upload, keeping only a known image
// extension. The content type is taken from the extension when the client
// sent none.
func ObjectName(filename, contentType string) (name, ct string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	known, ok := imageTypes[ext]
	if !ok {
		return "", "", fmt.Errorf("%q: %w", filename, ErrUnsupported)
	}
	ct = strings.TrimSpace(contentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = known
	}
	if !strings.HasPrefix(ct, "image/") {
		return "", "", fmt.Errorf("content type %q: %w", ct, ErrUnsupported)
	}
	return uuid.NewString() + ext, ct, nil
}

// PublicURL is where GET /images/:name serves the object.
func PublicURL(baseURL, name string) string {
	return strings.TrimRight(baseURL, "/") + "/images/" + name
}

type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (m *MemoryStore) Put(_ context.Context, name, contentType string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = Object{
		Name:        name,
		ContentType: contentType,
		Size:        uint64(len(buf)),
		ModTime:     time.Now().UTC(),
		Data:        buf,
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, name string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	o.Data = append([]byte(nil), o.Data...)
	return &o, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	delete(m.objects, name)
	return nil
}
