package handler

import (
	"github.com/deppfellow/blogtemplates/internal/model"
	"github.com/deppfellow/blogtemplates/internal/validation"
)

// EmptyRequest is bound by routes that take no input.
type EmptyRequest struct{}

func (r *EmptyRequest) Validate() error { return nil }

// IDRequest carries the :id path parameter.
type IDRequest struct {
	ID int64 `param:"id" json:"-" validate:"gt=0"`
}

func (r *IDRequest) Validate() error {
	return validation.ValidateStruct(r)
}

type ListTemplatesRequest struct {
	CategoryID int64 `query:"category_id" validate:"gte=0"`
}

func (r *ListTemplatesRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// CreateTemplateRequest files the new template under category_ids in the
// same transaction as the insert.
type CreateTemplateRequest struct {
	SiteID int64 `json:"site_id" validate:"gte=0"`
	model.UpdateTemplateInput
	CategoryIDs []int64 `json:"category_ids" validate:"unique,dive,gt=0"`
}

func (r *CreateTemplateRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// UpdateTemplateRequest replaces every editable field. Leaving out
// category_ids keeps the template's categories; an empty list clears them.
type UpdateTemplateRequest struct {
	ID int64 `param:"id" json:"-" validate:"gt=0"`
	model.UpdateTemplateInput
	CategoryIDs []int64 `json:"category_ids" validate:"unique,dive,gt=0"`
}

func (r *UpdateTemplateRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// SetTemplateCategoriesRequest replaces the template's categories.
type SetTemplateCategoriesRequest struct {
	ID          int64   `param:"id" json:"-" validate:"gt=0"`
	CategoryIDs []int64 `json:"category_ids" validate:"required,unique,dive,gt=0"`
}

func (r *SetTemplateCategoriesRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// MembershipRequest names one template and one category.
type MembershipRequest struct {
	ID         int64 `param:"id" json:"-" validate:"gt=0"`
	CategoryID int64 `param:"category_id" json:"-" validate:"gt=0"`
}

func (r *MembershipRequest) Validate() error {
	return validation.ValidateStruct(r)
}

type CreateCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default"`
}

func (r *CreateCategoryRequest) Validate() error {
	return validation.ValidateStruct(r)
}

type UpdateCategoryRequest struct {
	ID          int64  `param:"id" json:"-" validate:"gt=0"`
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
}

func (r *UpdateCategoryRequest) Validate() error {
	return validation.ValidateStruct(r)
}
