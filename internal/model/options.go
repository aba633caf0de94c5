package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Options payload keys. They are also the top-level keys of a flattened template.
const (
	OptionToCopy           = "to_copy"
	OptionAdditionalTables = "additional_tables"
	OptionCopyStatus       = "copy_status"
	OptionBlockPostsPages  = "block_posts_pages"
	OptionPostCategory     = "post_category"
	OptionScreenshot       = "screenshot"
	OptionPagesIDs         = "pages_ids"
	OptionUpdateDates      = "update_dates"
)

var knownOptionKeys = map[string]bool{
	OptionToCopy:           true,
	OptionAdditionalTables: true,
	OptionCopyStatus:       true,
	OptionBlockPostsPages:  true,
	OptionPostCategory:     true,
	OptionScreenshot:       true,
	OptionPagesIDs:         true,
	OptionUpdateDates:      true,
}

// Screenshot is the path or URL of a template preview image.
//
// An empty screenshot is stored as JSON false, which is how the payload
// has always marked "no screenshot"; decoding accepts false, null or a string.
type Screenshot string

// MarshalJSON writes false for an empty screenshot.
func (s Screenshot) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("false"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON reads false and null as no screenshot.
func (s *Screenshot) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch string(trimmed) {
	case "false", "null", "":
		*s = ""
		return nil
	}

	var path string
	if err := json.Unmarshal(trimmed, &path); err != nil {
		return fmt.Errorf("screenshot must be false or a string: %w", err)
	}
	*s = Screenshot(path)
	return nil
}

// TemplateOptions is the options payload of a template: what to copy into
// a site provisioned from it, and how.
//
// Keys the store does not know about are kept in Extra so a payload
// written by a newer client survives a read-modify-write.
type TemplateOptions struct {
	// ToCopy lists the content groups to copy (settings, posts, pages, terms, users, menus, files).
	ToCopy           []string   `json:"to_copy"`
	AdditionalTables []string   `json:"additional_tables"`
	CopyStatus       bool       `json:"copy_status"`
	BlockPostsPages  bool       `json:"block_posts_pages"`
	PostCategory     int64      `json:"post_category"`
	Screenshot       Screenshot `json:"screenshot"`
	PagesIDs         []int64    `json:"pages_ids"`
	UpdateDates      bool       `json:"update_dates"`

	Extra map[string]any `json:"-"`
}

// templateOptionsFields has the same fields without the methods, so the
// custom (un)marshalers can reuse the default encoding.
type templateOptionsFields TemplateOptions

// normalized returns a copy with nil slices replaced by empty ones, so the
// stored payload always has arrays, never nulls.
func (o TemplateOptions) normalized() TemplateOptions {
	if o.ToCopy == nil {
		o.ToCopy = []string{}
	}
	if o.AdditionalTables == nil {
		o.AdditionalTables = []string{}
	}
	if o.PagesIDs == nil {
		o.PagesIDs = []int64{}
	}
	return o
}

// MarshalJSON writes the known options with nil lists as [], merged
// with the keys in Extra. Known keys win over Extra.
func (o TemplateOptions) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(templateOptionsFields(o.normalized()))
	if err != nil {
		return nil, err
	}
	if len(o.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(o.Extra)+len(knownOptionKeys))
	for k, v := range o.Extra {
		if knownOptionKeys[k] {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding option %q: %w", k, err)
		}
		merged[k] = raw
	}
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the known options and keeps every other key in Extra.
func (o *TemplateOptions) UnmarshalJSON(data []byte) error {
	var fields templateOptionsFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	for k, raw := range all {
		if knownOptionKeys[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding option %q: %w", k, err)
		}
		if fields.Extra == nil {
			fields.Extra = make(map[string]any)
		}
		fields.Extra[k] = v
	}

	*o = TemplateOptions(fields)
	return nil
}

// Map returns the payload as a key/value map: the known options with their
// typed values plus every Extra key. Known keys win over Extra.
func (o TemplateOptions) Map() map[string]any {
	n := o.normalized()
	m := make(map[string]any, len(knownOptionKeys)+len(o.Extra))
	for k, v := range o.Extra {
		m[k] = v
	}

	m[OptionToCopy] = n.ToCopy
	m[OptionAdditionalTables] = n.AdditionalTables
	m[OptionCopyStatus] = n.CopyStatus
	m[OptionBlockPostsPages] = n.BlockPostsPages
	m[OptionPostCategory] = n.PostCategory
	m[OptionScreenshot] = n.Screenshot
	m[OptionPagesIDs] = n.PagesIDs
	m[OptionUpdateDates] = n.UpdateDates
	return m
}

// EncodeOptions serializes a payload for the options column.
func EncodeOptions(o TemplateOptions) ([]byte, error) {
	return json.Marshal(o)
}

// DecodeOptions rehydrates the options column. An empty column decodes to
// the zero payload.
func DecodeOptions(data []byte) (TemplateOptions, error) {
	var o TemplateOptions
	if len(bytes.TrimSpace(data)) == 0 {
		return o.normalized(), nil
	}
	if err := json.Unmarshal(data, &o); err != nil {
		return TemplateOptions{}, fmt.Errorf("decoding template options: %w", err)
	}
	return o.normalized(), nil
}
