package catalog

import (
	"strings"

	"github.com/Skotchmaster/plugtech/internal/models"
)

// Search is a recall oriented filter: a product matches when the whole
// query, or any whitespace separated token of it, is a case-insensitive
// substring of one of the searchable fields. Results are not ranked.
func Search(products []models.Product, query string) []models.Product {
	out := make([]models.Product, 0)

	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return out
	}
	tokens := strings.Fields(term)

	for _, p := range products {
		fields := searchFields(p)
		if containsAny(fields, term) {
			out = append(out, p)
			continue
		}
		for _, tok := range tokens {
			if containsAny(fields, tok) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func searchFields(p models.Product) []string {
	return []string{
		strings.ToLower(p.Name),
		strings.ToLower(p.Category),
		strings.ToLower(p.Condition),
		strings.ToLower(p.Processor),
		strings.ToLower(p.RAM),
		strings.ToLower(p.Storage),
		strings.ToLower(p.Display),
	}
}

func containsAny(fields []string, needle string) bool {
	for _, f := range fields {
		if strings.Contains(f, needle) {
			return true
		}
	}
	return false
}
