package database

import (
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
)

// Base names of the templates store tables. The configured prefix is
// prepended to each of them.
const (
	templatesTable     = "nbt_templates"
	categoriesTable    = "nbt_templates_categories"
	relationshipsTable = "nbt_categories_relationships_table"
	versionTable       = "nbt_schema_version"
)

// MaxPrefixLength keeps every derived identifier within Postgres' 63-byte
// limit. The longest one is the relationships table's template_id index:
// prefix + nbt_categories_relationships_table + _template_id.
const MaxPrefixLength = maxIdentifierLength - len(relationshipsTable) - len(templateIndexSuffix)

const (
	maxIdentifierLength = 63
	catIndexSuffix      = "_cat_id"
	templateIndexSuffix = "_template_id"
)

// prefixPattern restricts prefixes to identifier-safe characters. Table
// names cannot be bound as query parameters, so the prefix ends up in SQL
// text and must never carry quotes, spaces or dots.
var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)

// Tables holds the fully qualified (prefixed) names of the store tables.
//
// The plain fields are raw names; the Quoted* methods return them
// sanitized for interpolation into SQL.
type Tables struct {
	Prefix        string
	Templates     string
	Categories    string
	Relationships string
	Version       string
}

// NewTables derives the table names for a prefix.
func NewTables(prefix string) (Tables, error) {
	if !prefixPattern.MatchString(prefix) {
		return Tables{}, fmt.Errorf("invalid table prefix %q: only letters, digits and underscores are allowed", prefix)
	}
	if len(prefix) > MaxPrefixLength {
		return Tables{}, fmt.Errorf("invalid table prefix %q: longer than %d characters", prefix, MaxPrefixLength)
	}

	return Tables{
		Prefix:        prefix,
		Templates:     prefix + templatesTable,
		Categories:    prefix + categoriesTable,
		Relationships: prefix + relationshipsTable,
		Version:       prefix + versionTable,
	}, nil
}

// MustNewTables is NewTables for prefixes known to be valid (tests, constants).
func MustNewTables(prefix string) Tables {
	t, err := NewTables(prefix)
	if err != nil {
		panic(err)
	}
	return t
}

// QuotedTemplates and the other Quoted methods return names ready to be
// formatted into SQL.
func (t Tables) QuotedTemplates() string {
	return pgx.Identifier{t.Templates}.Sanitize()
}

func (t Tables) QuotedCategories() string {
	return pgx.Identifier{t.Categories}.Sanitize()
}

func (t Tables) QuotedRelationships() string {
	return pgx.Identifier{t.Relationships}.Sanitize()
}

// templateData is what the migration templates see as `.`.
func (t Tables) templateData() map[string]any {
	return map[string]any{
		"prefix":        t.Prefix,
		"templates":     t.QuotedTemplates(),
		"categories":    t.QuotedCategories(),
		"relationships": t.QuotedRelationships(),
		"relationshipsCatIndex":      pgx.Identifier{t.relationshipsCatIndex()}.Sanitize(),
		"relationshipsTemplateIndex": pgx.Identifier{t.relationshipsTemplateIndex()}.Sanitize(),
	}
}

// Index names are derived from the raw relationships table name.
func (t Tables) relationshipsCatIndex() string {
	return t.Relationships + catIndexSuffix
}

func (t Tables) relationshipsTemplateIndex() string {
	return t.Relationships + templateIndexSuffix
}

// identifiers lists every name the store creates in the database.
func (t Tables) identifiers() []string {
	return []string{
		t.Templates,
		t.Categories,
		t.Relationships,
		t.Version,
		t.relationshipsCatIndex(),
		t.relationshipsTemplateIndex(),
	}
}
