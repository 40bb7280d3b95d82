package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	keyValue = "value"
	keyOrder = "$order"
)

// ParseFilterBy decodes a filter_by request parameter, keeping field order.
//
// Behavior:
//   - Empty input and `null` yield an empty FilterBy.
//   - A field mapped to `null` or `{}` is kept as a blank entry (Normalize drops it).
//   - Operator keys are resolved with ParseOperator and checked against their value class.
//   - A "value" key is decoded into Ref.Point.
//
// Example:
//
//	f, err := query.ParseFilterBy([]byte(`{"age":{"$gte":18},"location":{"$lt":50}}`))
func ParseFilterBy(data []byte) (FilterBy, error) {
	var out FilterBy
	err := eachMember(data, func(field string, raw json.RawMessage) error {
		item, err := parseFilterItem(field, raw)
		if err != nil {
			return err
		}
		out = append(out, FieldFilter{Field: field, Item: item})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseSortBy decodes a sort_by request parameter, keeping field order.
//
// Example:
//
//	s, err := query.ParseSortBy([]byte(`{"location":{"$order":"asc"},"age":{"$order":"desc"}}`))
func ParseSortBy(data []byte) (SortBy, error) {
	var out SortBy
	err := eachMember(data, func(field string, raw json.RawMessage) error {
		item, err := parseSortItem(field, raw)
		if err != nil {
			return err
		}
		out = append(out, FieldSort{Field: field, Item: item})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func parseFilterItem(field string, raw json.RawMessage) (FilterItem, error) {
	var item FilterItem
	err := eachMember(raw, func(key string, val json.RawMessage) error {
		if key == keyValue {
			p, err := parsePoint(val)
			if err != nil {
				return err
			}
			item.Ref.Point = p
			return nil
		}
		op, err := ParseOperator(key)
		if err != nil {
			return fmt.Errorf("%w (field %q)", err, field)
		}
		v, err := parseValue(val)
		if err != nil {
			return fmt.Errorf("%w (field %q, %s)", err, field, op)
		}
		cond, err := NewCondition(op, v)
		if err != nil {
			return fmt.Errorf("%w (field %q)", err, field)
		}
		item.Conditions = append(item.Conditions, cond)
		return nil
	})
	return item, err
}

func parseSortItem(field string, raw json.RawMessage) (SortItem, error) {
	var item SortItem
	err := eachMember(raw, func(key string, val json.RawMessage) error {
		switch key {
		case keyValue:
			p, err := parsePoint(val)
			if err != nil {
				return err
			}
			item.Ref.Point = p
			return nil
		case keyOrder:
			var token string
			if err := json.Unmarshal(val, &token); err != nil {
				return fmt.Errorf("%w: %s.$order must be a string", ErrInvalidSortOrder, field)
			}
			dir, err := ParseDirection(token)
			if err != nil {
				return err
			}
			item.Order = dir
			return nil
		}
		return fmt.Errorf("%w: unknown key %q on %q", ErrInvalidSortConfiguration, key, field)
	})
	return item, err
}

func parsePoint(raw json.RawMessage) (*GeoPoint, error) {
	if isNull(raw) {
		return nil, nil
	}
	var p GeoPoint
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: value must be {longitude, latitude}", ErrMalformed)
	}
	return &p, nil
}

// parseValue decodes one operand. Arrays become sets of scalars; nested arrays and objects are rejected.
func parseValue(raw json.RawMessage) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if arr, ok := v.([]any); ok {
		items := make([]Value, 0, len(arr))
		for _, elem := range arr {
			item, err := scalar(elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Set(items...), nil
	}
	return scalar(v)
}

func scalar(v any) (Value, error) {
	switch t := v.(type) {
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: bad number %s", ErrMalformed, t)
		}
		return Number(n), nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Value{}, fmt.Errorf("%w: null operand", ErrTypeMismatch)
	default:
		return Value{}, fmt.Errorf("%w: operand must be a scalar or a list of scalars", ErrTypeMismatch)
	}
}

// eachMember walks a JSON object in document order. Empty input and null are empty objects.
// Repeated keys fail with ErrDuplicateField.
func eachMember(data []byte, fn func(key string, raw json.RawMessage) error) error {
	if len(bytes.TrimSpace(data)) == 0 || isNull(data) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("%w: expected an object", ErrMalformed)
	}

	seen := make(map[string]struct{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: expected a key", ErrMalformed)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateField, key)
		}
		seen[key] = struct{}{}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data", ErrMalformed)
	}
	return nil
}

func isNull(raw []byte) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
