package domain

import (
	"encoding/json"
	"slices"
)

// GrantedFields is the owner's per-scope field selection, scope -> fields.
// A scope mapped to an empty list was approved with nothing disclosed.
type GrantedFields map[string][]string

// Clone deep copies g so later changes to one hop never leak into another.
func (g GrantedFields) Clone() GrantedFields {
	if g == nil {
		return GrantedFields{}
	}
	out := make(GrantedFields, len(g))
	for scope, fields := range g {
		out[scope] = append([]string{}, fields...)
	}
	return out
}

// Allows reports whether field was granted under scope.
func (g GrantedFields) Allows(scope, field string) bool {
	return slices.Contains(g[scope], field)
}

// MarshalJSON renders nil slices as [] so stored records are stable.
func (g GrantedFields) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string(g.Clone()))
}
