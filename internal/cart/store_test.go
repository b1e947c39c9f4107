package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/events/eventstest"
	"github.com/Skotchmaster/plugtech/internal/models"
)

func laptop(name string, price int64) models.Product {
	return models.Product{
		ID:           uuid.New(),
		Name:         name,
		Category:     "laptops",
		Price:        price,
		Image:        "https://cdn.example/" + name + ".jpg",
		ImageVersion: 1,
		Processor:    "Intel Core i5",
		RAM:          "8GB",
		Storage:      "256GB SSD",
		Display:      "14 inch",
		Condition:    "Refurbished",
		InStock:      true,
	}
}

func openMemory(t *testing.T, session string) (*Store, *MemoryPersister, *eventstest.Recorder) {
	t.Helper()
	p := NewMemoryPersister()
	rec := &eventstest.Recorder{}
	s, err := NewManager(p, rec).Open(context.Background(), session)
	require.NoError(t, err)
	return s, p, rec
}

func TestStore_AddTwiceMerges(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, rec := openMemory(t, "s1")

	p1 := laptop("p1", 50000)
	require.NoError(t, s.AddToCart(ctx, p1))
	require.NoError(t, s.AddToCart(ctx, p1))

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, s.ItemCount())
	assert.Equal(t, int64(100000), s.Total())
	assert.Equal(t, []string{"cart_item_added", "cart_item_added"}, rec.Types(events.TopicCarts))
}

func TestStore_InsertionOrderAndTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := openMemory(t, "s1")

	a, b, c := laptop("a", 1000), laptop("b", 250), laptop("c", 99)
	require.NoError(t, s.AddToCart(ctx, a))
	require.NoError(t, s.AddToCart(ctx, b))
	require.NoError(t, s.AddToCart(ctx, c))
	require.NoError(t, s.UpdateQuantity(ctx, b.ID, 4))

	items := s.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Name)
	assert.Equal(t, "b", items[1].Name)
	assert.Equal(t, "c", items[2].Name)
	assert.Equal(t, 6, s.ItemCount())
	assert.Equal(t, int64(1000+4*250+99), s.Total())

	sum := s.Summary()
	assert.Equal(t, 6, sum.ItemCount)
	assert.Equal(t, s.Total(), sum.Total)
}

func TestStore_UpdateQuantityZeroRemoves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, rec := openMemory(t, "s1")

	p := laptop("p", 10)
	require.NoError(t, s.AddToCart(ctx, p))
	require.NoError(t, s.UpdateQuantity(ctx, p.ID, 0))

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, []string{"cart_item_added", "cart_item_removed"}, rec.Types(events.TopicCarts))

	require.NoError(t, s.AddToCart(ctx, p))
	require.NoError(t, s.UpdateQuantity(ctx, p.ID, -3))
	assert.Equal(t, 0, s.Len())
}

func TestStore_UnknownIDIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, rec := openMemory(t, "s1")

	require.NoError(t, s.AddToCart(ctx, laptop("p", 10)))
	require.NoError(t, s.UpdateQuantity(ctx, uuid.New(), 5))
	require.NoError(t, s.RemoveFromCart(ctx, uuid.New()))

	assert.Equal(t, 1, s.ItemCount())
	assert.Len(t, rec.All(), 1)
}

func TestStore_ClearAndEmptyTotals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, p, _ := openMemory(t, "s1")

	assert.Equal(t, int64(0), s.Total())
	assert.Equal(t, 0, s.ItemCount())

	require.NoError(t, s.AddToCart(ctx, laptop("a", 10)))
	require.NoError(t, s.AddToCart(ctx, laptop("b", 20)))
	require.NoError(t, s.ClearCart(ctx))

	assert.Equal(t, 0, s.ItemCount())
	assert.Equal(t, int64(0), s.Total())
	assert.NotNil(t, s.Items())

	raw, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestStore_PersistReloadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := NewMemoryPersister()
	m := NewManager(p, nil)

	s, err := m.Open(ctx, "s1")
	require.NoError(t, err)
	a, b := laptop("a", 1500), laptop("b", 700)
	require.NoError(t, s.AddToCart(ctx, a))
	require.NoError(t, s.AddToCart(ctx, b))
	require.NoError(t, s.UpdateQuantity(ctx, a.ID, 3))

	again, err := m.Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.ItemCount(), again.ItemCount())
	assert.Equal(t, s.Total(), again.Total())

	got := again.Items()
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, a.Processor, got[0].Processor)
	assert.Equal(t, 3, got[0].Quantity)
	assert.Equal(t, b.ID, got[1].ID)

	other, err := m.Open(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())
}

func TestStore_SnapshotIsFlat(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, p, _ := openMemory(t, "s1")

	prod := laptop("flat", 42)
	require.NoError(t, s.AddToCart(ctx, prod))

	raw, err := p.Load(ctx, Key("s1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"name":"flat"`)
	assert.Contains(t, string(raw), `"quantity":1`)
	assert.NotContains(t, string(raw), `"Product"`)
}

func TestManager_MalformedSnapshotIsEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := NewMemoryPersister()
	require.NoError(t, p.Save(ctx, Key("s1"), []byte(`{not json`)))

	s, err := NewManager(p, nil).Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, int64(0), s.Total())
}

func TestDecode_SanitizesEntries(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	raw := `[
		{"id":"` + id.String() + `","name":"a","price":10,"quantity":1},
		{"id":"` + uuid.New().String() + `","name":"zero","price":10,"quantity":0},
		{"id":"` + id.String() + `","name":"a","price":10,"quantity":2}
	]`

	items, err := Decode([]byte(raw))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Quantity)
}

type failingPersister struct{ *MemoryPersister }

func (f *failingPersister) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestStore_PersistErrorIsReturned(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := &failingPersister{MemoryPersister: NewMemoryPersister()}

	s, err := NewManager(p, nil).Open(ctx, "s1")
	require.NoError(t, err)
	err = s.AddToCart(ctx, laptop("a", 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// the in-memory mutation still happened
	assert.Equal(t, 1, s.ItemCount())
}

func TestStore_PublishErrorDoesNotFailMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &eventstest.Recorder{Err: errors.New("broker down")}

	s, err := NewManager(NewMemoryPersister(), rec).Open(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, s.AddToCart(ctx, laptop("a", 10)))
	assert.Equal(t, 1, s.ItemCount())
}

func TestStore_ConcurrentAddsAreSerialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _ := openMemory(t, "s1")
	p := laptop("hot", 5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.AddToCart(ctx, p))
		}()
	}
	wg.Wait()

	require.Equal(t, 1, s.Len())
	assert.Equal(t, 50, s.ItemCount())
}

func TestRedisPersister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	p := NewRedisPersister(client, time.Hour)

	data, err := p.Load(ctx, Key("missing"))
	require.NoError(t, err)
	assert.Nil(t, data)

	m := NewManager(p, nil)
	s, err := m.Open(ctx, "s1")
	require.NoError(t, err)
	p1 := laptop("p1", 50000)
	require.NoError(t, s.AddToCart(ctx, p1))
	require.NoError(t, s.AddToCart(ctx, p1))

	assert.True(t, mr.Exists("plugtech-cart:s1"))
	assert.Equal(t, time.Hour, mr.TTL("plugtech-cart:s1"))

	again, err := m.Open(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.ItemCount())
	assert.Equal(t, int64(100000), again.Total())

	require.NoError(t, mr.Set("plugtech-cart:bad", "[{"))
	bad, err := m.Open(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, 0, bad.Len())
}

func TestRedisPersister_BackendDownFailsOpen(t *testing.T) {
	t.Parallel()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewManager(NewRedisPersister(client, 0), nil).Open(context.Background(), "s1")
	require.Error(t, err)
}
