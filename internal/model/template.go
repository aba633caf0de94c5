// Package model defines the records persisted by the templates store:
// templates, categories and the relationship rows between them.
package model

// Template column keys, as they appear in Flatten and Nested maps.
const (
	FieldID          = "id"
	FieldSiteID      = "site_id"
	FieldName        = "name"
	FieldDescription = "description"
	FieldIsDefault   = "is_default"
	FieldOptions     = "options"
)

// Template is a named bundle of site-provisioning options.
type Template struct {
	ID          int64           `json:"id"`
	SiteID      int64           `json:"site_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsDefault   bool            `json:"is_default"`
	Options     TemplateOptions `json:"options"`
}

func (t Template) columns() map[string]any {
	return map[string]any{
		FieldID:          t.ID,
		FieldSiteID:      t.SiteID,
		FieldName:        t.Name,
		FieldDescription: t.Description,
		FieldIsDefault:   t.IsDefault,
	}
}

// Flatten renders the template with its options merged into the top
// level. The row columns are written first and the options payload on top
// of them, so a payload key that collides with a column wins. There is no
// "options" key in the result.
//
// Single-template reads and per-category listings use this form.
func (t Template) Flatten() map[string]any {
	flat := t.columns()
	for k, v := range t.Options.Map() {
		flat[k] = v
	}
	delete(flat, FieldOptions)
	return flat
}

// Nested renders the template with the decoded options kept under the
// "options" key. The full listing uses this form.
func (t Template) Nested() map[string]any {
	nested := t.columns()
	nested[FieldOptions] = t.Options.normalized()
	return nested
}

// UpdateTemplateInput is the full replacement of a template's editable
// fields. Every field is explicit: zero values are stored as given, and
// only Name is required.
type UpdateTemplateInput struct {
	Name             string     `json:"name" validate:"required,max=255"`
	Description      string     `json:"description"`
	ToCopy           []string   `json:"to_copy" validate:"dive,required"`
	AdditionalTables []string   `json:"additional_tables" validate:"dive,required"`
	CopyStatus       bool       `json:"copy_status"`
	BlockPostsPages  bool       `json:"block_posts_pages"`
	PostCategory     int64      `json:"post_category" validate:"gte=0"`
	Screenshot       Screenshot `json:"screenshot"`
	PagesIDs         []int64    `json:"pages_ids" validate:"dive,gt=0"`
	UpdateDates      bool       `json:"update_dates"`
}

// Options repacks the payload part of the input. An empty screenshot
// becomes "no screenshot" (stored as false).
func (in UpdateTemplateInput) Options() TemplateOptions {
	return TemplateOptions{
		ToCopy:           in.ToCopy,
		AdditionalTables: in.AdditionalTables,
		CopyStatus:       in.CopyStatus,
		BlockPostsPages:  in.BlockPostsPages,
		PostCategory:     in.PostCategory,
		Screenshot:       in.Screenshot,
		PagesIDs:         in.PagesIDs,
		UpdateDates:      in.UpdateDates,
	}.normalized()
}
