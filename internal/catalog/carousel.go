package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/Skotchmaster/plugtech/internal/models"
)

const (
	DefaultItemsPerView = 4
	AutoAdvanceInterval = 3 * time.Second
)

// ItemsPerView maps a viewport width in CSS pixels to the number of cards
// shown at once.
func ItemsPerView(width int) int {
	switch {
	case width <= 0:
		return DefaultItemsPerView
	case width < 640:
		return 1
	case width < 1024:
		return 2
	case width < 1280:
		return 3
	default:
		return 4
	}
}

// Carousel is a window of PerView items sliding over Total items.
// Manual navigation clamps at both ends; Tick wraps to the first page when
// auto scroll is on.
type Carousel struct {
	mu         sync.Mutex
	total      int
	perView    int
	autoScroll bool
	index      int
}

func NewCarousel(total, perView int, autoScroll bool) *Carousel {
	if total < 0 {
		total = 0
	}
	if perView < 1 {
		perView = DefaultItemsPerView
	}
	return &Carousel{total: total, perView: perView, autoScroll: autoScroll}
}

func (c *Carousel) MaxIndex() int {
	return max(0, c.total-c.perView)
}

func (c *Carousel) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Carousel) PerView() int { return c.perView }

func (c *Carousel) ScrollTo(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = c.clamp(i)
	return c.index
}

func (c *Carousel) Next() int { return c.move(1) }

func (c *Carousel) Prev() int { return c.move(-1) }

func (c *Carousel) move(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = c.clamp(c.index + delta)
	return c.index
}

func (c *Carousel) clamp(i int) int {
	return min(max(0, i), c.MaxIndex())
}

// Scrolls reports whether Tick moves the carousel at all.
func (c *Carousel) Scrolls() bool {
	return c.autoScroll && c.total > c.perView
}

func (c *Carousel) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.Scrolls() {
		return c.index
	}
	c.index = (c.index + 1) % (c.MaxIndex() + 1)
	return c.index
}

// Window returns the slice of products currently in view.
func (c *Carousel) Window(products []models.Product) []models.Product {
	i := c.Index()
	if i >= len(products) {
		return []models.Product{}
	}
	end := min(i+c.perView, len(products))
	out := make([]models.Product, end-i)
	copy(out, products[i:end])
	return out
}

// AutoAdvance ticks the carousel every interval until ctx is done. It
// returns at once when the carousel does not scroll.
func (c *Carousel) AutoAdvance(ctx context.Context, interval time.Duration, onTick func(index int)) {
	if !c.Scrolls() {
		return
	}
	if interval <= 0 {
		interval = AutoAdvanceInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i := c.Tick()
			if onTick != nil {
				onTick(i)
			}
		}
	}
}
