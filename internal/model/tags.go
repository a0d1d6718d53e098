package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// Tags is an ordered list of trimmed, non-empty labels.
//
// Duplicates are kept and order is preserved. Clients may send tags either
// as a JSON array (["a","b"]) or as a single comma-separated string
// ("a, b ,c"); both normalise to the same value.
//
// In the database the list is stored as a JSON array in a TEXT column, so
// commas inside a tag survive a round trip.
type Tags []string

// ParseTags splits a comma-separated string into normalised tags.
func ParseTags(s string) Tags {
	return NormalizeTags(strings.Split(s, ","))
}

// NormalizeTags trims every entry and drops the empty ones.
// It always returns a non-nil slice so the JSON form is [] rather than null.
func NormalizeTags(in []string) Tags {
	out := make(Tags, 0, len(in))
	for _, tag := range in {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// UnmarshalJSON accepts a string, an array of strings, or null.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*t = Tags{}
	case string:
		*t = ParseTags(v)
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("tags: expected string elements, got %T", item)
			}
			items = append(items, s)
		}
		*t = NormalizeTags(items)
	default:
		return fmt.Errorf("tags: expected string or array, got %T", raw)
	}
	return nil
}

// MarshalJSON never emits null.
func (t Tags) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(t))
}

// Value implements driver.Valuer.
func (t Tags) Value() (driver.Value, error) {
	b, err := t.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (t *Tags) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("tags: cannot scan %T", src)
	}

	if len(data) == 0 {
		*t = Tags{}
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("tags: decoding stored value: %w", err)
	}
	*t = NormalizeTags(items)
	return nil
}
