package product

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrNothingToSave = errors.New("no fields to update")
	ErrInUse         = errors.New("product is referenced by existing orders")
)

// ValidationError carries per-field messages for an invalid catalog entry.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, e.Fields[k])
	}
	return "invalid product: " + strings.Join(parts, "; ")
}
