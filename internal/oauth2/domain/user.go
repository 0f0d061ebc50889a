package domain

import (
	"maps"
	"time"
)

// User is a resource owner, keyed by the lowercased PESU registration number.
type User struct {
	ID        string
	PESUPRN   string
	Profile   Profile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile is the attribute bag scraped from the portal. Values are strings
// or numbers as decoded from JSON.
type Profile map[string]any

// Merge returns a copy of p overlaid with the non-nil values of update.
// Attributes missing from update keep their previous value.
func (p Profile) Merge(update Profile) Profile {
	out := make(Profile, len(p)+len(update))
	maps.Copy(out, p)
	for k, v := range update {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// Has reports whether field carries a value.
func (p Profile) Has(field string) bool {
	v, ok := p[field]
	return ok && v != nil
}
