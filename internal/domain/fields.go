package domain

import (
	"encoding/json"
	"maps"
	"slices"
)

// CustomFields returns the attribute names of item that fall outside the
// baseline schema, sorted.
func CustomFields(item *Item) []string {
	names := make([]string, 0, len(item.Custom))
	for name := range maps.Keys(item.Custom) {
		if !IsBaseline(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ValidateFields rejects the batch if any name is not already an attribute of
// target. All missing names are reported together.
func ValidateFields(target *OrderItem, names []string) error {
	var missing []string
	for _, name := range names {
		if !target.HasAttribute(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &UndefinedFieldError{OrderItemID: target.ID, Fields: missing}
	}
	return nil
}

// FieldValues copies the named custom values off item.
func FieldValues(item *Item, names []string) map[string]json.RawMessage {
	values := make(map[string]json.RawMessage, len(names))
	for _, name := range names {
		if v, ok := item.Custom[name]; ok {
			values[name] = v
		}
	}
	return values
}
