// Package catalog models the read-only schema the compiler validates
// relational-algebra expressions against.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var foldCase = cases.Upper(language.Und)

// Fold normalizes a relation or attribute name to the catalog's
// case-insensitive comparison form.
func Fold(name string) string {
	return foldCase.String(name)
}

// Domain is the closed set of normalized attribute types.
type Domain string

const (
	Integer Domain = "INTEGER"
	Decimal Domain = "DECIMAL"
	Varchar Domain = "VARCHAR"
)

// NormalizeDomain maps a raw SQL type name (as reported by a driver) to
// one of the three catalog domains, per the prefix rules: INT*/NUM* ->
// INTEGER, DEC* -> DECIMAL, CHAR*/VARCHAR*/TEXT* -> VARCHAR, anything
// else -> VARCHAR.
func NormalizeDomain(rawSQLType string) Domain {
	t := foldCase.String(strings.TrimSpace(rawSQLType))
	switch {
	case strings.HasPrefix(t, "INT"), strings.HasPrefix(t, "NUM"):
		return Integer
	case strings.HasPrefix(t, "DEC"):
		return Decimal
	case strings.HasPrefix(t, "CHAR"), strings.HasPrefix(t, "VARCHAR"), strings.HasPrefix(t, "TEXT"):
		return Varchar
	default:
		return Varchar
	}
}

// Column is one (name, domain) pair of a relation, order-significant.
type Column struct {
	Name   string
	Domain Domain
}

// Relation is a catalog entry: a name and its ordered columns.
type Relation struct {
	Name    string
	Columns []Column
}

// Attributes returns the relation's attribute names in declared order.
func (r *Relation) Attributes() []string {
	out := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Name
	}
	return out
}

// Domains returns the relation's domains in declared order.
func (r *Relation) Domains() []Domain {
	out := make([]Domain, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = c.Domain
	}
	return out
}

// DomainOf returns the domain of the named attribute.
func (r *Relation) DomainOf(attr string) (Domain, bool) {
	attr = Fold(attr)
	for _, c := range r.Columns {
		if c.Name == attr {
			return c.Domain, true
		}
	}
	return "", false
}

// Catalog is a read-only, in-memory schema: relation name -> definition.
type Catalog struct {
	relations map[string]*Relation
	order     []string
}

// New builds an empty catalog.
func New() *Catalog {
	return &Catalog{relations: make(map[string]*Relation)}
}

// Add registers a relation, folding its name and every column name to
// upper case per §3.1.
func (c *Catalog) Add(name string, columns []Column) *Relation {
	folded := make([]Column, len(columns))
	for i, col := range columns {
		folded[i] = Column{Name: Fold(col.Name), Domain: col.Domain}
	}
	rel := &Relation{Name: Fold(name), Columns: folded}
	if _, exists := c.relations[rel.Name]; !exists {
		c.order = append(c.order, rel.Name)
	}
	c.relations[rel.Name] = rel
	return rel
}

// ErrUnknownRelation is returned by Lookup for a name with no catalog entry.
var ErrUnknownRelation = fmt.Errorf("relation does not exist")

// Lookup finds a relation by name (case-insensitive).
func (c *Catalog) Lookup(name string) (*Relation, error) {
	rel, ok := c.relations[Fold(name)]
	if !ok {
		return nil, fmt.Errorf("relation '%s' does not exist: %w", Fold(name), ErrUnknownRelation)
	}
	return rel, nil
}

// Relations returns every relation in registration order.
func (c *Catalog) Relations() []*Relation {
	out := make([]*Relation, len(c.order))
	for i, name := range c.order {
		out[i] = c.relations[name]
	}
	return out
}

// ColumnInfo is one row of a driver's list_columns response: an
// attribute name paired with its raw, dialect-specific SQL type.
type ColumnInfo struct {
	Name       string
	RawSQLType string
}

// SchemaSource is the driver-side surface the catalog loads itself
// from (§6.2): list_relations / list_columns.
type SchemaSource interface {
	ListRelations(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, relation string) ([]ColumnInfo, error)
}

// Load builds a Catalog by querying a live schema source, normalizing
// every reported SQL type via NormalizeDomain.
func Load(ctx context.Context, src SchemaSource) (*Catalog, error) {
	names, err := src.ListRelations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}
	cat := New()
	for _, name := range names {
		cols, err := src.ListColumns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("listing columns of %s: %w", name, err)
		}
		columns := make([]Column, len(cols))
		for i, col := range cols {
			columns[i] = Column{Name: col.Name, Domain: NormalizeDomain(col.RawSQLType)}
		}
		cat.Add(name, columns)
	}
	return cat, nil
}
