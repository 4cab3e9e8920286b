package masking

import "strings"

// Catalog is the static set of column names considered sensitive.
// Matching is case-insensitive against the header row.
//
// The catalog is configuration, not inference: a field is sensitive
// because it was named, never because of what its values look like.
type Catalog struct {
	fields map[string]struct{}
}

// DefaultFields covers the columns the service was originally deployed
// to scrub from customer CSV uploads.
var DefaultFields = []string{"cpf", "email", "telefone", "phone"}

func NewCatalog(fields []string) Catalog {
	c := Catalog{fields: make(map[string]struct{}, len(fields))}
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		c.fields[f] = struct{}{}
	}
	return c
}

// Contains reports whether the given column name is in the catalog.
func (c Catalog) Contains(field string) bool {
	_, ok := c.fields[strings.ToLower(strings.TrimSpace(field))]
	return ok
}

// Len returns the number of distinct fields in the catalog.
func (c Catalog) Len() int { return len(c.fields) }

// Fields returns the catalog contents in no particular order.
func (c Catalog) Fields() []string {
	out := make([]string, 0, len(c.fields))
	for f := range c.fields {
		out = append(out, f)
	}
	return out
}
