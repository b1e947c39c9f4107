package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/storage"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Editor is the admin side of the catalog. Every call checks the session
// before anything reaches the repository or the image store.
type Editor struct {
	Catalog *CatalogService
	Images  storage.ObjectStore
	BaseURL string
}

func (e *Editor) List(ctx context.Context, sess domain.Session, f repo.ListFilter) (int64, []models.Product, error) {
	if err := sess.RequireAdmin(); err != nil {
		return 0, nil, err
	}
	return e.Catalog.List(ctx, f)
}

func (e *Editor) Create(ctx context.Context, sess domain.Session, req transport.CreateProductRequest, file *Upload) (*models.Product, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validateCreate(req, file != nil); err != nil {
		return nil, err
	}

	if file == nil {
		return e.Catalog.Create(ctx, req)
	}

	name, url, err := e.store(ctx, file)
	if err != nil {
		return nil, err
	}
	req.Image = url
	prod, err := e.Catalog.Create(ctx, req)
	if err != nil {
		e.discard(ctx, name)
		return nil, err
	}
	return prod, nil
}

func (e *Editor) Update(ctx context.Context, sess domain.Session, id uuid.UUID, req transport.PatchProductRequest, file *Upload) (*models.Product, error) {
	if err := sess.RequireAdmin(); err != nil {
		return nil, err
	}
	if err := validatePatch(req); err != nil {
		return nil, err
	}

	if file == nil {
		return e.Catalog.Update(ctx, id, req)
	}

	// nothing is uploaded for a product that does not exist
	if _, err := e.Catalog.Get(ctx, id); err != nil {
		return nil, err
	}
	name, url, err := e.store(ctx, file)
	if err != nil {
		return nil, err
	}
	req.Image = &url
	prod, err := e.Catalog.Update(ctx, id, req)
	if err != nil {
		e.discard(ctx, name)
		return nil, err
	}
	return prod, nil
}

// Delete removes the product and, when its image lives in our store, the
// image object too. A failed image cleanup is only logged.
func (e *Editor) Delete(ctx context.Context, sess domain.Session, id uuid.UUID) error {
	if err := sess.RequireAdmin(); err != nil {
		return err
	}

	prod, err := e.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := e.Catalog.Delete(ctx, id); err != nil {
		return err
	}

	if name, ok := e.ownObject(prod.Image); ok {
		e.discard(ctx, name)
	}
	return nil
}

// discard removes an object from the image store. A failed cleanup is only
// logged; the caller's result does not depend on it.
func (e *Editor) discard(ctx context.Context, name string) {
	if err := e.Images.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logging.FromContext(ctx).Warn("image_cleanup_failed", "object", name, "error", err)
	}
}

// store uploads the file and returns its object name and public URL.
func (e *Editor) store(ctx context.Context, file *Upload) (string, string, error) {
	if len(file.Data) == 0 {
		return "", "", invalid("image file is empty")
	}
	if len(file.Data) > storage.MaxImageSize {
		return "", "", invalid("image file is larger than %d bytes", storage.MaxImageSize)
	}

	name, ct, err := storage.ObjectName(file.Filename, file.ContentType)
	if err != nil {
		return "", "", invalid("%v", err)
	}
	if err := e.Images.Put(ctx, name, ct, file.Data); err != nil {
		logging.FromContext(ctx).Error("image_upload_failed", "status", 502, "object", name, "error", err)
		return "", "", fmt.Errorf("upload image: %w: %v", domain.ErrFetch, err)
	}
	return name, storage.PublicURL(e.BaseURL, name), nil
}

func (e *Editor) ownObject(imageURL string) (string, bool) {
	prefix := storage.PublicURL(e.BaseURL, "")
	if imageURL == "" || !strings.HasPrefix(imageURL, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(imageURL, prefix)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	return name, name != ""
}
