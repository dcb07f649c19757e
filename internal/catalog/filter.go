package catalog

import "strings"

// Filter narrows products to an exact category (when set) and a
// case-insensitive search over title and description (when set).
func Filter(products []Product, category, search string) []Product {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}
