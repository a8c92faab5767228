package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// enumNames maps every valid value of a closed enum to its wire name.
// The zero value of each enum is deliberately absent so it never
// round-trips through JSON or the database.
type enumNames[T ~int] map[T]string

func (n enumNames[T]) name(v T) string {
	if s, ok := n[v]; ok {
		return s
	}
	return "unknown"
}

func (n enumNames[T]) parse(kind, raw string) (T, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	for v, s := range n {
		if s == raw {
			return v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: invalid %s %q", ErrValidation, kind, raw)
}

func (n enumNames[T]) marshal(kind string, v T) ([]byte, error) {
	s, ok := n[v]
	if !ok {
		return nil, fmt.Errorf("%w: invalid %s %d", ErrValidation, kind, int(v))
	}
	return []byte(s), nil
}

func (n enumNames[T]) value(kind string, v T) (driver.Value, error) {
	b, err := n.marshal(kind, v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (n enumNames[T]) scan(kind string, src any) (T, error) {
	switch raw := src.(type) {
	case string:
		return n.parse(kind, raw)
	case []byte:
		return n.parse(kind, string(raw))
	default:
		var zero T
		return zero, fmt.Errorf("cannot scan %T into %s", src, kind)
	}
}
