package parse

import "slices"

// FieldValues is a field-to-values multimap that keeps fields in
// insertion order and de-duplicates values per field. Filters and
// exclusions use it so that repeated parameters stay stable for
// round-tripping.
type FieldValues struct {
	fields []string
	values map[string][]string
}

// NewFieldValues returns an empty multimap.
func NewFieldValues() *FieldValues {
	return &FieldValues{values: map[string][]string{}}
}

// Add appends value under field, ignoring values the field already
// holds.
func (fv *FieldValues) Add(field, value string) {
	if _, ok := fv.values[field]; !ok {
		fv.fields = append(fv.fields, field)
	}
	if slices.Contains(fv.values[field], value) {
		return
	}
	fv.values[field] = append(fv.values[field], value)
}

// Fields returns the fields in insertion order.
func (fv *FieldValues) Fields() []string {
	if fv == nil {
		return nil
	}

	return slices.Clone(fv.fields)
}

// Get returns the values of field, in insertion order.
func (fv *FieldValues) Get(field string) []string {
	if fv == nil {
		return nil
	}

	return slices.Clone(fv.values[field])
}

// Has reports whether field holds any value.
func (fv *FieldValues) Has(field string) bool {
	if fv == nil {
		return false
	}

	return len(fv.values[field]) > 0
}

// Delete removes field and its values.
func (fv *FieldValues) Delete(field string) {
	if fv == nil {
		return
	}
	if _, ok := fv.values[field]; !ok {
		return
	}
	delete(fv.values, field)
	fv.fields = slices.DeleteFunc(fv.fields, func(f string) bool {
		return f == field
	})
}

// Len returns the number of fields holding values.
func (fv *FieldValues) Len() int {
	if fv == nil {
		return 0
	}

	return len(fv.fields)
}

// Empty reports whether no field holds a value.
func (fv *FieldValues) Empty() bool {
	return fv.Len() == 0
}
