package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/plugtech/internal/db/dbtest"
	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/events/eventstest"
	"github.com/Skotchmaster/plugtech/internal/models"
	"github.com/Skotchmaster/plugtech/internal/repo"
	"github.com/Skotchmaster/plugtech/internal/storage"
	"github.com/Skotchmaster/plugtech/internal/transport"
)

var (
	admin = domain.Session{State: domain.AuthSignedIn, UserID: uuid.NewString(), Role: domain.RoleAdmin}
	buyer = domain.Session{State: domain.AuthSignedIn, UserID: uuid.NewString(), Role: domain.RoleUser}
)

func newCatalog(t *testing.T) (*CatalogService, *eventstest.Recorder) {
	t.Helper()
	rec := &eventstest.Recorder{}
	return &CatalogService{Repo: &repo.GormRepo{DB: dbtest.Open(t)}, Events: rec}, rec
}

func validCreate() transport.CreateProductRequest {
	return transport.CreateProductRequest{
		Name:      "HP EliteBook 840 G5",
		Category:  "laptops",
		Price:     json.Number("45000"),
		Image:     "https://cdn.example/elitebook.jpg",
		Processor: "Intel Core i5 8th Gen",
		RAM:       "8GB",
		Storage:   "256GB SSD",
		Display:   "14 inch FHD",
		Condition: "Ex-UK",
	}
}

func ptr[T any](v T) *T { return &v }

func TestParsePrice(t *testing.T) {
	t.Parallel()

	ok := map[string]int64{"50000": 50000, " 1 ": 1, "1200.0": 1200, "3e3": 3000}
	for in, want := range ok {
		got, err := ParsePrice(json.Number(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "-5", "abc", "12.5", "NaN"} {
		_, err := ParsePrice(json.Number(in))
		assert.ErrorIs(t, err, domain.ErrValidation, in)
	}
}

func TestCatalogService_CreateValidation(t *testing.T) {
	t.Parallel()
	svc, rec := newCatalog(t)
	ctx := context.Background()

	mutate := map[string]func(*transport.CreateProductRequest){
		"empty name":        func(r *transport.CreateProductRequest) { r.Name = "  " },
		"unknown category":  func(r *transport.CreateProductRequest) { r.Category = "phones" },
		"unknown condition": func(r *transport.CreateProductRequest) { r.Condition = "Used" },
		"zero price":        func(r *transport.CreateProductRequest) { r.Price = "0" },
		"text price":        func(r *transport.CreateProductRequest) { r.Price = "cheap" },
		"missing ram":       func(r *transport.CreateProductRequest) { r.RAM = "" },
		"missing image":     func(r *transport.CreateProductRequest) { r.Image = "" },
	}
	for name, m := range mutate {
		req := validCreate()
		m(&req)
		_, err := svc.Create(ctx, req)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}

	total, _, err := svc.List(ctx, repo.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, rec.All())
}

func TestCatalogService_CRUD(t *testing.T) {
	t.Parallel()
	svc, rec := newCatalog(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, int64(45000), created.Price)
	assert.True(t, created.InStock)
	assert.Equal(t, 1, created.ImageVersion)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, got.Name)

	updated, err := svc.Update(ctx, created.ID, transport.PatchProductRequest{
		Price:   ptr(json.Number("43000")),
		InStock: ptr(false),
		Image:   ptr("https://cdn.example/elitebook-2.jpg"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(43000), updated.Price)
	assert.False(t, updated.InStock)
	assert.Equal(t, 2, updated.ImageVersion)
	assert.Equal(t, "HP EliteBook 840 G5", updated.Name)

	// same image again does not bump the version
	updated, err = svc.Update(ctx, created.ID, transport.PatchProductRequest{Image: ptr("https://cdn.example/elitebook-2.jpg")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ImageVersion)

	_, err = svc.Update(ctx, created.ID, transport.PatchProductRequest{Category: ptr("phones")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Update(ctx, uuid.New(), transport.PatchProductRequest{Name: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), domain.ErrNotFound)
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t,
		[]string{"product_created", "product_updated", "product_updated", "product_deleted"},
		rec.Types(events.TopicProducts))
}

func TestCatalogService_ListFailureIsFetchError(t *testing.T) {
	t.Parallel()
	gdb := dbtest.Open(t)
	svc := &CatalogService{Repo: &repo.GormRepo{DB: gdb}}

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, _, err = svc.List(context.Background(), repo.ListFilter{})
	assert.ErrorIs(t, err, domain.ErrFetch)
}

func TestCatalogService_ListCopiesSharedResult(t *testing.T) {
	t.Parallel()
	svc, _ := newCatalog(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, validCreate())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([][]models.Product, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, items, err := svc.List(ctx, repo.ListFilter{})
			assert.NoError(t, err)
			results[i] = items
		}(i)
	}
	wg.Wait()

	results[0][0].Name = "changed"
	for _, r := range results[1:] {
		require.Len(t, r, 1)
		assert.Equal(t, "HP EliteBook 840 G5", r[0].Name)
	}
}

type spyStore struct {
	storage.ObjectStore
	puts    atomic.Int32
	deletes atomic.Int32
	putErr  error

	mu   sync.Mutex
	last string
}

func (s *spyStore) Put(ctx context.Context, name, ct string, data []byte) error {
	s.puts.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	s.mu.Lock()
	s.last = name
	s.mu.Unlock()
	return s.ObjectStore.Put(ctx, name, ct, data)
}

func (s *spyStore) Delete(ctx context.Context, name string) error {
	s.deletes.Add(1)
	return s.ObjectStore.Delete(ctx, name)
}

func (s *spyStore) lastPut() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func newEditor(t *testing.T) (*Editor, *spyStore) {
	t.Helper()
	svc, _ := newCatalog(t)
	store := &spyStore{ObjectStore: storage.NewMemoryStore()}
	return &Editor{Catalog: svc, Images: store, BaseURL: "http://shop.test"}, store
}

func countProducts(t *testing.T, e *Editor) int64 {
	t.Helper()
	total, _, err := e.Catalog.List(context.Background(), repo.ListFilter{})
	require.NoError(t, err)
	return total
}

func TestEditor_RejectsNonAdminWithoutSideEffects(t *testing.T) {
	t.Parallel()
	e, store := newEditor(t)
	ctx := context.Background()
	file := &Upload{Filename: "a.png", ContentType: "image/png", Data: []byte("png")}

	_, err := e.Create(ctx, buyer, validCreate(), file)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	_, err = e.Create(ctx, domain.Anonymous(), validCreate(), nil)
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, _, err = e.List(ctx, buyer, repo.ListFilter{})
	assert.ErrorIs(t, err, domain.ErrAccessDenied)

	assert.Zero(t, countProducts(t, e))
	assert.Zero(t, store.puts.Load())

	created, err := e.Create(ctx, admin, validCreate(), nil)
	require.NoError(t, err)

	_, err = e.Update(ctx, buyer, created.ID, transport.PatchProductRequest{Name: ptr("hijack")}, nil)
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
	assert.ErrorIs(t, e.Delete(ctx, domain.Anonymous(), created.ID), domain.ErrAuth)

	got, err := e.Catalog.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "HP EliteBook 840 G5", got.Name)
}

func TestEditor_UploadThenSave(t *testing.T) {
	t.Parallel()
	e, store := newEditor(t)
	ctx := context.Background()

	req := validCreate()
	req.Image = ""
	created, err := e.Create(ctx, admin, req, &Upload{Filename: "front.JPG", Data: []byte{0xff, 0xd8}})
	require.NoError(t, err)
	assert.Contains(t, created.Image, "http://shop.test/images/")
	assert.Equal(t, 1, created.ImageVersion)
	assert.EqualValues(t, 1, store.puts.Load())

	name, ok := e.ownObject(created.Image)
	require.True(t, ok)
	obj, err := store.Get(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", obj.ContentType)

	updated, err := e.Update(ctx, admin, created.ID, transport.PatchProductRequest{},
		&Upload{Filename: "side.png", ContentType: "image/png", Data: []byte("png")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.ImageVersion)
	assert.NotEqual(t, created.Image, updated.Image)

	require.NoError(t, e.Delete(ctx, admin, created.ID))
	_, err = store.Get(ctx, name)
	require.NoError(t, err, "only the current image is cleaned up")
	newName, _ := e.ownObject(updated.Image)
	_, err = store.Get(ctx, newName)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEditor_UploadFailureAbortsSave(t *testing.T) {
	t.Parallel()
	e, store := newEditor(t)
	store.putErr = errors.New("bucket offline")
	ctx := context.Background()

	req := validCreate()
	req.Image = ""
	_, err := e.Create(ctx, admin, req, &Upload{Filename: "a.png", ContentType: "image/png", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrFetch)
	assert.Zero(t, countProducts(t, e))

	_, err = e.Create(ctx, admin, req, nil)
	assert.ErrorIs(t, err, domain.ErrValidation, "image url or file is required")

	_, err = e.Create(ctx, admin, req, &Upload{Filename: "a.exe", Data: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.EqualValues(t, 1, store.puts.Load())
}

func TestEditor_UpdateMissingProductUploadsNothing(t *testing.T) {
	t.Parallel()
	e, store := newEditor(t)

	_, err := e.Update(context.Background(), admin, uuid.New(), transport.PatchProductRequest{},
		&Upload{Filename: "a.png", ContentType: "image/png", Data: []byte("png")})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, store.puts.Load())
}

func TestEditor_FailedSaveRemovesUpload(t *testing.T) {
	t.Parallel()
	e, store := newEditor(t)
	ctx := context.Background()

	created, err := e.Create(ctx, admin, validCreate(), nil)
	require.NoError(t, err)

	diskFull := func(db *gorm.DB) { db.AddError(errors.New("disk full")) }
	gdb := e.Catalog.Repo.DB
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:disk_full", diskFull))
	require.NoError(t, gdb.Callback().Update().Before("gorm:update").Register("test:disk_full", diskFull))

	req := validCreate()
	req.Image = ""
	_, err = e.Create(ctx, admin, req, &Upload{Filename: "a.png", ContentType: "image/png", Data: []byte("png")})
	require.Error(t, err)
	first := store.lastPut()
	_, err = store.Get(ctx, first)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = e.Update(ctx, admin, created.ID, transport.PatchProductRequest{},
		&Upload{Filename: "b.png", ContentType: "image/png", Data: []byte("png")})
	require.Error(t, err)
	second := store.lastPut()
	assert.NotEqual(t, first, second)
	_, err = store.Get(ctx, second)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.EqualValues(t, 2, store.puts.Load())
	assert.EqualValues(t, 2, store.deletes.Load())
}

func newAuth(t *testing.T) *AuthService {
	t.Helper()
	return &AuthService{
		Repo:          &repo.GormRepo{DB: dbtest.Open(t)},
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
}

func TestAuthService_RegisterAndSignIn(t *testing.T) {
	t.Parallel()
	svc := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "password123")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Register(ctx, "a@b.example", "short")
	assert.ErrorIs(t, err, domain.ErrValidation)

	u, err := svc.Register(ctx, " Owner@PlugTech.example ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "owner@plugtech.example", u.Email)

	_, err = svc.Register(ctx, "owner@plugtech.example", "password123")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.SignIn(ctx, "owner@plugtech.example", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrAuth)
	_, err = svc.SignIn(ctx, "ghost@plugtech.example", "password123")
	assert.ErrorIs(t, err, domain.ErrAuth)

	res, err := svc.SignIn(ctx, "OWNER@plugtech.example", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, res.Session.Role)
	assert.False(t, res.Session.IsAdmin())
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), res.AccessExp, 5*time.Second)

	sess, err := svc.Session(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), sess.UserID)
	assert.Equal(t, "owner@plugtech.example", sess.Email)
	assert.True(t, sess.Authenticated())

	_, err = svc.Session("garbage")
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestAuthService_RefreshRotatesAndReresolvesRole(t *testing.T) {
	t.Parallel()
	svc := newAuth(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "admin@plugtech.example", "password123")
	require.NoError(t, err)
	first, err := svc.SignIn(ctx, "admin@plugtech.example", "password123")
	require.NoError(t, err)
	assert.False(t, first.Session.IsAdmin())

	require.NoError(t, svc.Repo.SetRole(ctx, u.ID, domain.RoleAdmin))

	// the old access token still carries the old role
	sess, err := svc.Session(first.AccessToken)
	require.NoError(t, err)
	assert.False(t, sess.IsAdmin())

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.True(t, second.Session.IsAdmin())
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAuth, "rotated token cannot be reused")

	require.NoError(t, svc.LogOut(ctx, second.RefreshToken))
	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = svc.Refresh(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrAuth)
	require.NoError(t, svc.LogOut(ctx, ""))
}

func TestAuthService_ConcurrentRefreshIssuesOnePair(t *testing.T) {
	t.Parallel()
	svc := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "twice@plugtech.example", "password123")
	require.NoError(t, err)
	first, err := svc.SignIn(ctx, "twice@plugtech.example", "password123")
	require.NoError(t, err)

	const callers = 4
	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		authErr atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx, first.RefreshToken)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrAuth):
				authErr.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, callers-1, authErr.Load())
}

func TestAuthService_PromoteAdmins(t *testing.T) {
	t.Parallel()
	svc := newAuth(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "owner@plugtech.example", "password123")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "staff@plugtech.example", "password123")
	require.NoError(t, err)

	n, err := svc.PromoteAdmins(ctx, []string{" Owner@PlugTech.example ", "ghost@plugtech.example", ""})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	acc, err := svc.Account(ctx, domain.Session{State: domain.AuthSignedIn, UserID: u.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, acc.Role)

	res, err := svc.SignIn(ctx, "staff@plugtech.example", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, res.Session.Role)

	// running it again at the next startup changes nothing
	n, err = svc.PromoteAdmins(ctx, []string{"owner@plugtech.example"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	res, err = svc.SignIn(ctx, "owner@plugtech.example", "password123")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Session.Role)
}

func TestAuthService_Account(t *testing.T) {
	t.Parallel()
	svc := newAuth(t)
	ctx := context.Background()

	_, err := svc.Account(ctx, domain.Anonymous())
	assert.ErrorIs(t, err, domain.ErrAuth)

	_, err = svc.Account(ctx, domain.Session{State: domain.AuthSignedIn, UserID: uuid.NewString()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
