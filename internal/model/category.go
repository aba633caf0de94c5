package model

// DefaultCategoryName is the name of the category seeded on install and upgrade.
const DefaultCategoryName = "Default category"

// Category groups templates. TemplatesCount is a cache refreshed by a
// recount, not maintained on every write.
type Category struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	IsDefault      bool   `json:"is_default"`
	TemplatesCount int64  `json:"templates_count"`
}

// CategoryRelationship is one (category, template) membership row.
type CategoryRelationship struct {
	CategoryID int64 `json:"cat_id"`
	TemplateID int64 `json:"template_id"`
}
