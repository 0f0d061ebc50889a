// Package consent owns the scope catalog and the field-level consent rules:
// which fields a scope may disclose, how an owner's selection is normalized
// into a granted-fields record, and how a profile is projected through it.
package consent

import (
	"fmt"
	"slices"

	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
)

// Scope is a named bundle of disclosable fields.
type Scope struct {
	Name        string
	Description string
	Fields      []string // display order
}

// Catalog is immutable after construction.
type Catalog struct {
	scopes     []Scope
	byName     map[string]Scope
	fieldScope map[string]string
	labels     map[string]string
}

// NewCatalog validates that scope names are unique and every field belongs
// to exactly one scope.
func NewCatalog(scopes []Scope, labels map[string]string) (*Catalog, error) {
	c := &Catalog{
		byName:     make(map[string]Scope, len(scopes)),
		fieldScope: make(map[string]string),
		labels:     make(map[string]string, len(labels)),
	}

	for _, s := range scopes {
		if s.Name == "" {
			return nil, fmt.Errorf("consent: scope with empty name")
		}
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("consent: duplicate scope %q", s.Name)
		}
		for _, f := range s.Fields {
			if owner, taken := c.fieldScope[f]; taken {
				return nil, fmt.Errorf("consent: field %q listed under both %q and %q", f, owner, s.Name)
			}
			c.fieldScope[f] = s.Name
		}

		s.Fields = slices.Clone(s.Fields)
		c.scopes = append(c.scopes, s)
		c.byName[s.Name] = s
	}

	for k, v := range labels {
		c.labels[k] = v
	}
	return c, nil
}

// Default is the PESU profile catalog.
func Default() *Catalog {
	c, err := NewCatalog(
		[]Scope{
			{
				Name:        "profile:basic",
				Description: "Read your basic identity (Name, PRN, SRN).",
				Fields:      []string{"name", "prn", "srn"},
			},
			{
				Name:        "profile:academic",
				Description: "Read your academic details (Program, Branch, Semester, Section, Campus).",
				Fields:      []string{"program", "branch", "semester", "section", "campus", "campus_code"},
			},
			{
				Name:        "profile:photo",
				Description: "Read your profile photo.",
				Fields:      []string{"photo_base64"},
			},
			{
				Name:        "profile:contact",
				Description: "Read your contact information (Email, Phone Number).",
				Fields:      []string{"email", "phone"},
			},
		},
		map[string]string{
			"name":         "Full Name",
			"prn":          "PRN (PES Registration Number)",
			"srn":          "SRN (Student Registration Number)",
			"program":      "Program (e.g., B.Tech, M.Tech)",
			"branch":       "Branch/Department",
			"semester":     "Current Semester",
			"section":      "Section",
			"campus":       "Campus Name",
			"campus_code":  "Campus Code",
			"photo_base64": "Profile Photo",
			"email":        "Email Address",
			"phone":        "Phone Number",
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Scope looks up a scope by name.
func (c *Catalog) Scope(name string) (Scope, bool) {
	s, ok := c.byName[name]
	if !ok {
		return Scope{}, false
	}
	s.Fields = slices.Clone(s.Fields)
	return s, true
}

func (c *Catalog) Has(scope string) bool {
	_, ok := c.byName[scope]
	return ok
}

// Fields returns the ordered fields of scope, or nil if unknown.
func (c *Catalog) Fields(scope string) []string {
	return slices.Clone(c.byName[scope].Fields)
}

// Contains reports whether field is catalogued under scope.
func (c *Catalog) Contains(scope, field string) bool {
	return c.fieldScope[field] == scope && scope != ""
}

// Label is the human readable name of field, defaulting to the field itself.
func (c *Catalog) Label(field string) string {
	if l, ok := c.labels[field]; ok {
		return l
	}
	return field
}

// Scopes lists every scope in catalog order.
func (c *Catalog) Scopes() []Scope {
	out := make([]Scope, len(c.scopes))
	for i, s := range c.scopes {
		s.Fields = slices.Clone(s.Fields)
		out[i] = s
	}
	return out
}

// Unknown returns the members of scopes that are not catalogued.
func (c *Catalog) Unknown(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		if !c.Has(s) {
			out = append(out, s)
		}
	}
	return out
}

// Describe renders scopes for a consent screen. Unknown scopes are skipped.
func (c *Catalog) Describe(scopes []string) []authsdk.ScopeDescriptor {
	out := make([]authsdk.ScopeDescriptor, 0, len(scopes))
	for _, name := range scopes {
		s, ok := c.byName[name]
		if !ok {
			continue
		}
		d := authsdk.ScopeDescriptor{
			Name:        s.Name,
			Description: s.Description,
			Fields:      make([]authsdk.Field, 0, len(s.Fields)),
		}
		for _, f := range s.Fields {
			d.Fields = append(d.Fields, authsdk.Field{Name: f, Label: c.Label(f)})
		}
		out = append(out, d)
	}
	return out
}
