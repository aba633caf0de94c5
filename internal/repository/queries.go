package repository

import (
	"fmt"

	"github.com/deppfellow/blogtemplates/internal/database"
)

// queries holds every statement the store runs, rendered once for the
// store's table names. Table names cannot be bind parameters, so they are
// interpolated here from sanitized identifiers and nowhere else.
type queries struct {
	insertTemplate       string
	updateTemplate       string
	deleteTemplate       string
	selectTemplate       string
	selectTemplates      string
	selectByCategory     string
	clearDefaultTemplate string
	setDefaultTemplate   string
	selectUncategorized  string

	insertCategory        string
	updateCategory        string
	deleteCategory        string
	deleteAllCategories   string
	selectCategory        string
	selectCategories      string
	selectDefaultCategory string
	selectDefaultID       string
	repairDefaultCategory string
	countCategories       string
	isDefaultCategory     string
	selectCategoryIDs     string

	insertRelationship       string
	deleteTemplateRelations  string
	deleteCategoryRelations  string
	deleteAllRelationships   string
	existsRelation           string
	selectTemplateCategories string
	recountCategories        string
	zeroEmptyCategoryCounts  string
}

const (
	templateColumns  = "id, blog_id, name, description, is_default, options"
	templateTColumns = "t.id, t.blog_id, t.name, t.description, t.is_default, t.options"
	categoryColumns  = "id, name, description, is_default, templates_count"
	categoryCColumns = "c.id, c.name, c.description, c.is_default, c.templates_count"
)

func newQueries(tables database.Tables) queries {
	t := tables.QuotedTemplates()
	c := tables.QuotedCategories()
	r := tables.QuotedRelationships()

	return queries{
		insertTemplate:  fmt.Sprintf("INSERT INTO %s (blog_id, name, description, options) VALUES ($1, $2, $3, $4) RETURNING id", t),
		updateTemplate:  fmt.Sprintf("UPDATE %s SET name = $1, description = $2, options = $3 WHERE id = $4", t),
		deleteTemplate:  fmt.Sprintf("DELETE FROM %s WHERE id = $1", t),
		selectTemplate:  fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", templateColumns, t),
		selectTemplates: fmt.Sprintf("SELECT %s FROM %s ORDER BY id", templateColumns, t),
		selectByCategory: fmt.Sprintf(
			"SELECT %s FROM %s t INNER JOIN %s r ON t.id = r.template_id WHERE r.cat_id = $1 ORDER BY t.id",
			templateTColumns, t, r),
		clearDefaultTemplate: fmt.Sprintf("UPDATE %s SET is_default = FALSE WHERE is_default", t),
		setDefaultTemplate:   fmt.Sprintf("UPDATE %s SET is_default = TRUE WHERE id = $1", t),
		selectUncategorized: fmt.Sprintf(
			"SELECT t.id FROM %s t LEFT OUTER JOIN %s r ON r.template_id = t.id WHERE r.cat_id IS NULL ORDER BY t.id",
			t, r),

		insertCategory:        fmt.Sprintf("INSERT INTO %s (name, description, is_default) VALUES ($1, $2, $3) RETURNING id", c),
		updateCategory:        fmt.Sprintf("UPDATE %s SET name = $1, description = $2 WHERE id = $3", c),
		deleteCategory:        fmt.Sprintf("DELETE FROM %s WHERE id = $1", c),
		deleteAllCategories:   fmt.Sprintf("DELETE FROM %s", c),
		selectCategory:        fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", categoryColumns, c),
		selectCategories:      fmt.Sprintf("SELECT %s FROM %s ORDER BY id", categoryColumns, c),
		selectDefaultCategory: fmt.Sprintf("SELECT %s FROM %s WHERE is_default ORDER BY id LIMIT 1", categoryColumns, c),
		selectDefaultID:       fmt.Sprintf("SELECT id FROM %s WHERE is_default ORDER BY id LIMIT 1", c),
		repairDefaultCategory: fmt.Sprintf("UPDATE %s SET is_default = FALSE WHERE is_default AND id <> $1", c),
		countCategories:       fmt.Sprintf("SELECT COUNT(id) FROM %s", c),
		isDefaultCategory:     fmt.Sprintf("SELECT is_default FROM %s WHERE id = $1", c),
		selectCategoryIDs:     fmt.Sprintf("SELECT id FROM %s WHERE id = ANY($1) ORDER BY id", c),

		insertRelationship:      fmt.Sprintf("INSERT INTO %s (cat_id, template_id) VALUES ($1, $2)", r),
		deleteTemplateRelations: fmt.Sprintf("DELETE FROM %s WHERE template_id = $1", r),
		deleteCategoryRelations: fmt.Sprintf("DELETE FROM %s WHERE cat_id = $1", r),
		deleteAllRelationships:  fmt.Sprintf("DELETE FROM %s", r),
		existsRelation:          fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE template_id = $1 AND cat_id = $2)", r),
		selectTemplateCategories: fmt.Sprintf(
			"SELECT %s FROM %s c INNER JOIN %s r ON r.cat_id = c.id WHERE r.template_id = $1 ORDER BY c.id",
			categoryCColumns, c, r),
		// Only categories that still have templates show up in the grouped
		// count, so an emptied category keeps its old count.
		recountCategories: fmt.Sprintf(
			"UPDATE %s AS c SET templates_count = counts.the_count "+
				"FROM (SELECT r.cat_id, COUNT(t.id) AS the_count FROM %s t INNER JOIN %s r ON r.template_id = t.id GROUP BY r.cat_id) AS counts "+
				"WHERE c.id = counts.cat_id",
			c, t, r),
		zeroEmptyCategoryCounts: fmt.Sprintf(
			"UPDATE %s AS c SET templates_count = 0 WHERE c.templates_count <> 0 "+
				"AND NOT EXISTS (SELECT 1 FROM %s r INNER JOIN %s t ON t.id = r.template_id WHERE r.cat_id = c.id)",
			c, r, t),
	}
}
