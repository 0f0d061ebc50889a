package consent

import (
	"slices"
	"strings"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

// ParseSelection splits a "<scope>:<field>" form value at its last colon,
// since scope names contain colons themselves.
func ParseSelection(raw string) (scope, field string, ok bool) {
	i := strings.LastIndex(raw, ":")
	if i <= 0 || i == len(raw)-1 {
		return "", "", false
	}
	return raw[:i], raw[i+1:], true
}

// Normalize turns submitted selections into a granted-fields record.
//
// Every requested, catalogued scope appears in the result, possibly with no
// fields. A selection is kept only if its scope was requested and its field
// is catalogued under that scope; anything else a tampered form adds is
// dropped. Duplicates collapse and fields follow catalog order.
func (c *Catalog) Normalize(requested []string, selections []string) domain.GrantedFields {
	picked := make(map[string]map[string]bool, len(requested))
	for _, scope := range requested {
		if c.Has(scope) {
			picked[scope] = map[string]bool{}
		}
	}

	for _, raw := range selections {
		scope, field, ok := ParseSelection(strings.TrimSpace(raw))
		if !ok {
			continue
		}
		set, requestedScope := picked[scope]
		if !requestedScope || !c.Contains(scope, field) {
			continue
		}
		set[field] = true
	}

	out := make(domain.GrantedFields, len(picked))
	for scope, set := range picked {
		fields := []string{}
		for _, f := range c.byName[scope].Fields {
			if set[f] {
				fields = append(fields, f)
			}
		}
		out[scope] = fields
	}
	return out
}

// Project returns the subset of profile the token may disclose: a field is
// included only when its scope is in tokenScopes, the owner granted it under
// that scope, and the profile has a value for it.
func (c *Catalog) Project(tokenScopes []string, granted domain.GrantedFields, profile domain.Profile) map[string]any {
	out := map[string]any{}
	for _, scope := range tokenScopes {
		s, ok := c.byName[scope]
		if !ok {
			continue
		}
		for _, field := range s.Fields {
			if !granted.Allows(scope, field) || !profile.Has(field) {
				continue
			}
			out[field] = profile[field]
		}
	}
	return out
}

// DisclosableFields flattens a granted record to "scope:field" strings in
// catalog order, for logs and audit.
func (c *Catalog) DisclosableFields(granted domain.GrantedFields) []string {
	var out []string
	for _, s := range c.scopes {
		for _, f := range s.Fields {
			if slices.Contains(granted[s.Name], f) {
				out = append(out, s.Name+":"+f)
			}
		}
	}
	return out
}
