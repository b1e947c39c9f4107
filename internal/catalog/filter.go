// Package catalog holds the derived views the storefront renders over the
// product list. Every function is pure and keeps the input order.
package catalog

import (
	"github.com/Skotchmaster/plugtech/internal/domain"
	"github.com/Skotchmaster/plugtech/internal/models"
)

// FilterByCategory returns the products whose category equals category
// exactly. An unknown category yields an empty slice.
func FilterByCategory(products []models.Product, category string) []models.Product {
	out := make([]models.Product, 0)
	if !domain.IsCategory(category) {
		return out
	}
	for _, p := range products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// CategoryCounts has an entry for every known category, zero included.
func CategoryCounts(products []models.Product) map[string]int {
	counts := make(map[string]int, len(domain.Categories))
	for _, c := range domain.Categories {
		counts[c] = 0
	}
	for _, p := range products {
		if _, ok := counts[p.Category]; ok {
			counts[p.Category]++
		}
	}
	return counts
}

// Latest returns at most n products from the head of the list, which the
// repository orders newest first.
func Latest(products []models.Product, n int) []models.Product {
	if n <= 0 {
		return []models.Product{}
	}
	if n > len(products) {
		n = len(products)
	}
	out := make([]models.Product, n)
	copy(out, products[:n])
	return out
}

// Featured is the hero rotation: the newest n products.
func Featured(products []models.Product, n int) []models.Product {
	return Latest(products, n)
}

const (
	FeaturedCount = 5
	LatestCount   = 8
)

type Rail struct {
	Category string           `json:"category"`
	Title    string           `json:"title"`
	Count    int              `json:"count"`
	Products []models.Product `json:"products"`
}

type Home struct {
	Featured []models.Product `json:"featured"`
	Latest   []models.Product `json:"latest"`
	Rails    []Rail           `json:"rails"`
}

func BuildHome(products []models.Product) Home {
	rails := make([]Rail, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		items := FilterByCategory(products, c)
		rails = append(rails, Rail{
			Category: c,
			Title:    domain.CategoryTitle(c),
			Count:    len(items),
			Products: items,
		})
	}
	return Home{
		Featured: Featured(products, FeaturedCount),
		Latest:   Latest(products, LatestCount),
		Rails:    rails,
	}
}
