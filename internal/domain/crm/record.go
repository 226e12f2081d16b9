package crm

import (
	"fmt"
	"strconv"
	"strings"
)

// Record is a generic view over a Salesforce sobject
type Record struct {
	Type   ObjectType
	ID     string
	Fields map[string]interface{}
}

// NewRecord creates a record of the given type, copying fields
func NewRecord(objectType ObjectType, id string, fields map[string]interface{}) *Record {
	copied := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		copied[k] = v
	}
	if id != "" {
		copied[FieldID] = id
	}
	return &Record{Type: objectType, ID: id, Fields: copied}
}

// Get resolves a dotted path through nested relationship objects already
// present on the record. It does not perform lookups.
func (r *Record) Get(path string) (interface{}, bool) {
	if r == nil {
		return nil, false
	}
	var current interface{} = r.Fields
	for _, segment := range strings.Split(path, ".") {
		fields, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = fields[segment]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

// GetString returns the field as a string, or "" when absent
func (r *Record) GetString(path string) string {
	v, ok := r.Get(path)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// GetBool returns the field as a boolean, false when absent
func (r *Record) GetBool(path string) bool {
	v, ok := r.Get(path)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(t)
		return b
	default:
		return false
	}
}

// Has reports whether the field is present and non-nil
func (r *Record) Has(path string) bool {
	_, ok := r.Get(path)
	return ok
}

// Set assigns a top-level field
func (r *Record) Set(field string, value interface{}) {
	if r.Fields == nil {
		r.Fields = map[string]interface{}{}
	}
	r.Fields[field] = value
}

// Merge copies fields into the record, overwriting existing values
func (r *Record) Merge(fields map[string]interface{}) {
	for k, v := range fields {
		r.Set(k, v)
	}
}

func (r *Record) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", r.Type, r.ID)
}
