package promptscore

import (
	"sort"
	"strings"
)

// SearchModels returns the models whose ID, name or provider contains query,
// ignoring case. An empty query returns every model. Results are sorted by
// provider, then name.
func SearchModels(models []Model, query string) []Model {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []Model
	for _, m := range models {
		if q == "" ||
			strings.Contains(strings.ToLower(m.ID), q) ||
			strings.Contains(strings.ToLower(m.Name), q) ||
			strings.Contains(strings.ToLower(m.Provider), q) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].DisplayName() < out[j].DisplayName()
	})
	return out
}

// FindModel returns the model with the given ID.
func FindModel(models []Model, id string) (Model, bool) {
	for _, m := range models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ProviderFromID derives the provider from an "org/model" style identifier.
func ProviderFromID(id string) string {
	if i := strings.IndexByte(id, '/'); i > 0 {
		return id[:i]
	}
	return ""
}
