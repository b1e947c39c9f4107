package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/Skotchmaster/plugtech/internal/events"
	"github.com/Skotchmaster/plugtech/internal/logging"
	"github.com/Skotchmaster/plugtech/internal/models"
)

// Item is a product snapshot taken when it was added, plus a quantity.
// It serializes flat: the product fields and "quantity" side by side.
type Item struct {
	models.Product
	Quantity int `json:"quantity"`
}

func (i Item) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// Manager opens per-session stores over one Persister.
type Manager struct {
	persister Persister
	publisher events.Publisher
}

func NewManager(p Persister, pub events.Publisher) *Manager {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Manager{persister: p, publisher: pub}
}

// Open loads the session's snapshot. A missing or unreadable snapshot
// yields an empty cart; only a failing backend is reported.
func (m *Manager) Open(ctx context.Context, sessionID string) (*Store, error) {
	s := &Store{
		session:   sessionID,
		key:       Key(sessionID),
		persister: m.persister,
		publisher: m.publisher,
		items:     []Item{},
	}

	data, err := m.persister.Load(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	items, err := Decode(data)
	if err != nil {
		logging.FromContext(ctx).Warn("cart_snapshot_malformed", "session", sessionID, "error", err)
		return s, nil
	}
	s.items = items
	return s, nil
}

// Decode parses a snapshot, merging duplicate ids and dropping entries
// without a positive quantity.
func Decode(data []byte) ([]Item, error) {
	var raw []Item
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	out := make([]Item, 0, len(raw))
	pos := make(map[uuid.UUID]int, len(raw))
	for _, it := range raw {
		if it.Quantity < 1 || it.ID == uuid.Nil {
			continue
		}
		if i, ok := pos[it.ID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		pos[it.ID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

// Store is the cart of one session. Mutations are serialized and each one
// writes the full snapshot back through the persister.
type Store struct {
	mu        sync.Mutex
	session   string
	key       string
	items     []Item
	persister Persister
	publisher events.Publisher
}

func (s *Store) Session() string { return s.session }

func (s *Store) AddToCart(ctx context.Context, p models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty := 1
	if i := s.indexOf(p.ID); i >= 0 {
		s.items[i].Quantity++
		qty = s.items[i].Quantity
	} else {
		s.items = append(s.items, Item{Product: p, Quantity: 1})
	}

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":       "cart_item_added",
		"session":    s.session,
		"product_id": p.ID.String(),
		"quantity":   qty,
	})
	return nil
}

// UpdateQuantity sets the quantity of an item already in the cart.
// A quantity of zero or less removes it; unknown ids are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return s.RemoveFromCart(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.items[i].Quantity = quantity

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":       "cart_item_updated",
		"session":    s.session,
		"product_id": id.String(),
		"quantity":   quantity,
	})
	return nil
}

func (s *Store) RemoveFromCart(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)

	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":       "cart_item_removed",
		"session":    s.session,
		"product_id": id.String(),
	})
	return nil
}

func (s *Store) ClearCart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []Item{}
	if err := s.persist(ctx); err != nil {
		return err
	}
	s.publish(ctx, map[string]any{
		"type":    "cart_cleared",
		"session": s.session,
	})
	return nil
}

func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return total(s.items)
}

type Summary struct {
	Items     []Item `json:"items"`
	ItemCount int    `json:"item_count"`
	Total     int64  `json:"total"`
}

// Summary reads items and both derived values under one lock.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Summary{Items: make([]Item, len(s.items)), Total: total(s.items)}
	copy(out.Items, s.items)
	for _, it := range s.items {
		out.ItemCount += it.Quantity
	}
	return out
}

func total(items []Item) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return sum
}

func (s *Store) indexOf(id uuid.UUID) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}

// caller holds s.mu
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.persister.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, event map[string]any) {
	if err := s.publisher.PublishEvent(ctx, events.TopicCarts, s.session, event); err != nil {
		logging.FromContext(ctx).Warn("cart_event_publish_failed", "type", event["type"], "error", err)
	}
}
