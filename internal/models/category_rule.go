package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// TagMap maps classification field names to the values a rule assigns
type TagMap map[string]string

// StringList is an ordered list of strings persisted as JSON text
type StringList []string

// CategoryRule assigns classification tags to transactions whose
// description contains every keyword, ignoring case.
type CategoryRule struct {
	ID       string
	Keywords StringList
	Priority int
	Enabled  bool
	Tags     TagMap
}

// RuleUpdate carries the fields to change on an existing rule; nil means keep
type RuleUpdate struct {
	Keywords []string
	Priority *int
	Enabled  *bool
	Tags     TagMap
}

// FromLegacy converts the single (field, category) shape into a rule tag map
func FromLegacy(field, category string) TagMap {
	if category == "" {
		return TagMap{}
	}
	if field == "" {
		field = FieldCategory
	}
	return TagMap{field: category}
}

// LegacyPair returns the single (field, value) a rule assigns, if it assigns exactly one
func (r *CategoryRule) LegacyPair() (field, value string, ok bool) {
	if len(r.Tags) != 1 {
		return "", "", false
	}
	for f, v := range r.Tags {
		return f, v, true
	}
	return "", "", false
}

// Copy returns a deep copy safe to hand out of the engine
func (r CategoryRule) Copy() CategoryRule {
	c := r
	c.Keywords = append(StringList(nil), r.Keywords...)
	c.Tags = make(TagMap, len(r.Tags))
	for k, v := range r.Tags {
		c.Tags[k] = v
	}
	return c
}

// NormalizedKeywords returns trimmed, non-empty keywords
func NormalizedKeywords(keywords []string) StringList {
	out := make(StringList, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// SortedFields returns the tag fields in a stable order
func (m TagMap) SortedFields() []string {
	fields := make([]string, 0, len(m))
	for f := range m {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

type categoryRuleJSON struct {
	ID       string   `json:"id"`
	Keywords []string `json:"keywords"`
	Priority int      `json:"priority"`
	Enabled  *bool    `json:"enabled,omitempty"`
	Tags     TagMap   `json:"tags,omitempty"`
	Field    string   `json:"field,omitempty"`
	Category string   `json:"category,omitempty"`
}

// MarshalJSON writes the tag map and, for single-tag rules, the legacy field/category pair
func (r CategoryRule) MarshalJSON() ([]byte, error) {
	enabled := r.Enabled
	out := categoryRuleJSON{
		ID:       r.ID,
		Keywords: r.Keywords,
		Priority: r.Priority,
		Enabled:  &enabled,
		Tags:     r.Tags,
	}
	if out.Keywords == nil {
		out.Keywords = []string{}
	}
	if field, value, ok := r.LegacyPair(); ok {
		out.Field = field
		out.Category = value
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads both the tag shape and the legacy field/category shape
func (r *CategoryRule) UnmarshalJSON(data []byte) error {
	var raw categoryRuleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = CategoryRule{
		ID:       raw.ID,
		Keywords: raw.Keywords,
		Priority: raw.Priority,
		Enabled:  true,
		Tags:     raw.Tags,
	}
	if raw.Enabled != nil {
		r.Enabled = *raw.Enabled
	}
	if len(r.Tags) == 0 {
		r.Tags = FromLegacy(raw.Field, raw.Category)
	}
	if r.Keywords == nil {
		r.Keywords = StringList{}
	}
	return nil
}

// Value implements driver.Valuer interface
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	// Return string for SQLite compatibility
	return string(bytes), nil
}

func (l *StringList) Scan(value interface{}) error {
	bytes, err := scanBytes(value, "StringList")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// Value implements driver.Valuer interface
func (m TagMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	bytes, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (m *TagMap) Scan(value interface{}) error {
	bytes, err := scanBytes(value, "TagMap")
	if err != nil {
		return err
	}
	if len(bytes) == 0 {
		*m = TagMap{}
		return nil
	}
	return json.Unmarshal(bytes, m)
}

func scanBytes(value interface{}, target string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into %s", value, target)
	}
}

// CategoryRuleRecord is the persisted row of a rule in the SQL rule store
type CategoryRuleRecord struct {
	ID       string     `gorm:"type:varchar(36);primary_key"`
	Position int        `gorm:"not null;index"`
	Keywords StringList `gorm:"type:text;not null"`
	Priority int        `gorm:"not null;default:0"`
	Enabled  bool       `gorm:"not null"`
	Tags     TagMap     `gorm:"type:text;not null"`
	Field    string     `gorm:"type:varchar(20)"`
	Category string     `gorm:"type:varchar(100)"`
}

func (CategoryRuleRecord) TableName() string {
	return "category_rules"
}

// NewCategoryRuleRecord converts a rule into its row at the given position
func NewCategoryRuleRecord(rule CategoryRule, position int) CategoryRuleRecord {
	rec := CategoryRuleRecord{
		ID:       rule.ID,
		Position: position,
		Keywords: rule.Keywords,
		Priority: rule.Priority,
		Enabled:  rule.Enabled,
		Tags:     rule.Tags,
	}
	if field, value, ok := rule.LegacyPair(); ok {
		rec.Field = field
		rec.Category = value
	}
	return rec
}

// ToRule converts a persisted row back into a rule, upgrading legacy rows
func (rec CategoryRuleRecord) ToRule() CategoryRule {
	rule := CategoryRule{
		ID:       rec.ID,
		Keywords: rec.Keywords,
		Priority: rec.Priority,
		Enabled:  rec.Enabled,
		Tags:     rec.Tags,
	}
	if len(rule.Tags) == 0 {
		rule.Tags = FromLegacy(rec.Field, rec.Category)
	}
	if rule.Keywords == nil {
		rule.Keywords = StringList{}
	}
	return rule
}
