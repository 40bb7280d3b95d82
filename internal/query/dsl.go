// Package query implements the profile discovery DSL: a structured filter/sort
// document keyed by profile field, compiled into parameterized SQL fragments.
//
// A filter document looks like:
//
//	{"age": {"$gte": 18, "$lt": 30}, "location": {"$lt": 50}, "interests": {"$overlap": ["music"]}}
//
// and a sort document like:
//
//	{"location": {"$order": "asc"}, "fame_rating": {"$order": "desc"}}
//
// Field order is preserved from the input so compiled output is deterministic.
package query

import (
	"fmt"
	"math"
	"strings"
)

// Operator is one entry of the fixed filter operator table.
type Operator string

const (
	OpEq        Operator = "$eq"
	OpNeq       Operator = "$neq"
	OpGt        Operator = "$gt"
	OpGte       Operator = "$gte"
	OpLt        Operator = "$lt"
	OpLte       Operator = "$lte"
	OpLike      Operator = "$like"
	OpILike     Operator = "$ilike"
	OpIn        Operator = "$in"
	OpNin       Operator = "$nin"
	OpContains  Operator = "$contains"
	OpContained Operator = "$contained"
	OpOverlap   Operator = "$overlap"
	OpExists    Operator = "$exists"
	OpNexists   Operator = "$nexists"
)

// opClass groups operators by the shape of value they take.
type opClass uint8

const (
	classEquality opClass = iota + 1 // any scalar
	classOrdering                    // number
	classPattern                     // string
	classMembership                  // non-empty set of scalars
	classSetRelation                 // non-empty set of strings
	classPresence                    // bool
)

type operatorSpec struct {
	class opClass
	sql   string
}

var operators = map[Operator]operatorSpec{
	OpEq:        {classEquality, "="},
	OpNeq:       {classEquality, "<>"},
	OpGt:        {classOrdering, ">"},
	OpGte:       {classOrdering, ">="},
	OpLt:        {classOrdering, "<"},
	OpLte:       {classOrdering, "<="},
	OpLike:      {classPattern, "LIKE"},
	OpILike:     {classPattern, "LIKE"},
	OpIn:        {classMembership, "IN"},
	OpNin:       {classMembership, "NOT IN"},
	OpContains:  {classSetRelation, ""},
	OpContained: {classSetRelation, ""},
	OpOverlap:   {classSetRelation, ""},
	OpExists:    {classPresence, "IS NOT NULL"},
	OpNexists:   {classPresence, "IS NULL"},
}

// Operators returns the operator table in a stable order.
func Operators() []Operator {
	return []Operator{
		OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpLike, OpILike,
		OpIn, OpNin, OpContains, OpContained, OpOverlap, OpExists, OpNexists,
	}
}

// ParseOperator resolves a DSL token. Tokens outside the table fail with ErrInvalidOperator.
func ParseOperator(token string) (Operator, error) {
	op := Operator(token)
	if _, ok := operators[op]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidOperator, token)
	}
	return op, nil
}

func (o Operator) spec() operatorSpec { return operators[o] }

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindNumber
	KindString
	KindBool
	KindSet
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindSet:
		return "set"
	default:
		return "invalid"
	}
}

// Value is the typed operand of a Condition.
type Value struct {
	kind ValueKind
	num  float64
	str  string
	b    bool
	set  []Value
}

func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }

// Set builds a set value. Elements must be scalars; nested sets are flattened away by the parser.
func Set(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindSet, set: cp}
}

// Strings is a convenience for Set(String(a), String(b), ...).
func Strings(items ...string) Value {
	vals := make([]Value, len(items))
	for i, s := range items {
		vals[i] = String(s)
	}
	return Value{kind: KindSet, set: vals}
}

func (v Value) Kind() ValueKind { return v.kind }

// Arg returns the SQL bind argument for the value. Integral numbers bind as int64.
func (v Value) Arg() any {
	switch v.kind {
	case KindNumber:
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1<<53 {
			return int64(v.num)
		}
		return v.num
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindSet:
		out := make([]any, len(v.set))
		for i, item := range v.set {
			out[i] = item.Arg()
		}
		return out
	default:
		return nil
	}
}

func (v Value) isScalar() bool {
	return v.kind == KindNumber || v.kind == KindString || v.kind == KindBool
}

func (v Value) allOf(kind ValueKind) bool {
	for _, item := range v.set {
		if item.kind != kind {
			return false
		}
	}
	return true
}

// distinctStrings returns the set's string members without duplicates, in input order.
func (v Value) distinctStrings() []any {
	seen := make(map[string]struct{}, len(v.set))
	out := make([]any, 0, len(v.set))
	for _, item := range v.set {
		if _, dup := seen[item.str]; dup {
			continue
		}
		seen[item.str] = struct{}{}
		out = append(out, item.str)
	}
	return out
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber, KindBool:
		return fmt.Sprint(v.Arg())
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindSet:
		parts := make([]string, len(v.set))
		for i, item := range v.set {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return "<invalid>"
	}
}

// Condition is one operator/value pair inside a FilterItem.
type Condition struct {
	Op    Operator
	Value Value
}

// NewCondition validates that value fits the operator's value class.
func NewCondition(op Operator, value Value) (Condition, error) {
	spec, ok := operators[op]
	if !ok {
		return Condition{}, fmt.Errorf("%w: %q", ErrInvalidOperator, string(op))
	}
	if !accepts(spec.class, value) {
		return Condition{}, fmt.Errorf("%w: %s expects %s, got %s", ErrTypeMismatch, op, describeClass(spec.class), value.kind)
	}
	return Condition{Op: op, Value: value}, nil
}

func accepts(class opClass, v Value) bool {
	switch class {
	case classEquality:
		return v.isScalar()
	case classOrdering:
		return v.kind == KindNumber
	case classPattern:
		return v.kind == KindString
	case classMembership:
		if v.kind != KindSet || len(v.set) == 0 {
			return false
		}
		for _, item := range v.set {
			if !item.isScalar() {
				return false
			}
		}
		return true
	case classSetRelation:
		return v.kind == KindSet && len(v.set) > 0 && v.allOf(KindString)
	case classPresence:
		return v.kind == KindBool
	}
	return false
}

func describeClass(c opClass) string {
	switch c {
	case classEquality:
		return "a scalar"
	case classOrdering:
		return "a number"
	case classPattern:
		return "a string"
	case classMembership:
		return "a non-empty set"
	case classSetRelation:
		return "a non-empty set of strings"
	case classPresence:
		return "a bool"
	}
	return "nothing"
}

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Reference is the side-channel payload a clause may need from the acting user.
// Location clauses read Point, common_interests clauses read UserID.
type Reference struct {
	Point  *GeoPoint
	UserID string
}

func (r Reference) clone() Reference {
	if r.Point != nil {
		p := *r.Point
		r.Point = &p
	}
	return r
}

// FilterItem is one field's constraint set.
type FilterItem struct {
	Conditions []Condition
	Ref        Reference
}

// Blank reports whether the item carries no operator.
func (i FilterItem) Blank() bool { return len(i.Conditions) == 0 }

func (i FilterItem) clone() FilterItem {
	conds := make([]Condition, len(i.Conditions))
	copy(conds, i.Conditions)
	return FilterItem{Conditions: conds, Ref: i.Ref.clone()}
}

// FieldFilter binds a FilterItem to a profile field.
type FieldFilter struct {
	Field string
	Item  FilterItem
}

func (f FieldFilter) key() string { return f.Field }
func (f FieldFilter) clone() FieldFilter { return FieldFilter{Field: f.Field, Item: f.Item.clone()} }
func (f FieldFilter) blank() bool { return f.Field == "" || f.Item.Blank() }
func (f FieldFilter) withRef(r Reference) FieldFilter {
	f.Item.Ref = r.clone()
	return f
}

// FilterBy is an ordered mapping from field name to FilterItem.
type FilterBy []FieldFilter

// Where starts or extends a FilterBy with one field.
//
// Example:
//
//	f := query.FilterBy{}.Where("age", query.Condition{Op: query.OpGte, Value: query.Number(18)})
func (f FilterBy) Where(field string, conds ...Condition) FilterBy {
	c := make([]Condition, len(conds))
	copy(c, conds)
	return append(f.clone(), FieldFilter{Field: field, Item: FilterItem{Conditions: c}})
}

// Get returns the item for field, if present.
func (f FilterBy) Get(field string) (FilterItem, bool) {
	for _, ff := range f {
		if ff.Field == field {
			return ff.Item, true
		}
	}
	return FilterItem{}, false
}

// Normalize drops entries without a field name or without any operator.
func (f FilterBy) Normalize() FilterBy { return normalize(f) }

func (f FilterBy) clone() FilterBy { return cloneAll(f) }

// Bind returns a copy where every field that consumes a Reference carries ref.
func (f FilterBy) Bind(ref Reference) FilterBy { return bind(f, ref) }

// Direction is a sort direction token.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection resolves a sort direction token. Only "asc" and "desc" are accepted.
func ParseDirection(token string) (Direction, error) {
	switch d := Direction(token); d {
	case Asc, Desc:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, token)
}

func (d Direction) sql() (string, error) {
	switch d {
	case Asc:
		return "ASC", nil
	case Desc:
		return "DESC", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortOrder, string(d))
}

// SortItem is a field's ordering directive.
type SortItem struct {
	Order Direction
	Ref   Reference
}

// FieldSort binds a SortItem to a profile field.
type FieldSort struct {
	Field string
	Item  SortItem
}

func (s FieldSort) key() string { return s.Field }
func (s FieldSort) clone() FieldSort { s.Item.Ref = s.Item.Ref.clone(); return s }
func (s FieldSort) blank() bool { return s.Field == "" || s.Item.Order == "" }
func (s FieldSort) withRef(r Reference) FieldSort {
	s.Item.Ref = r.clone()
	return s
}

// SortBy is an ordered mapping from field name to SortItem.
type SortBy []FieldSort

// By starts or extends a SortBy with one field.
func (s SortBy) By(field string, order Direction) SortBy {
	return append(s.clone(), FieldSort{Field: field, Item: SortItem{Order: order}})
}

// Get returns the item for field, if present.
func (s SortBy) Get(field string) (SortItem, bool) {
	for _, fs := range s {
		if fs.Field == field {
			return fs.Item, true
		}
	}
	return SortItem{}, false
}

// Normalize drops entries without a field name or direction.
func (s SortBy) Normalize() SortBy { return normalize(s) }

func (s SortBy) clone() SortBy { return cloneAll(s) }

// Bind returns a copy where every field that consumes a Reference carries ref.
func (s SortBy) Bind(ref Reference) SortBy { return bind(s, ref) }

// entry is implemented by FieldFilter and FieldSort.
type entry[T any] interface {
	key() string
	clone() T
	blank() bool
	withRef(Reference) T
}

func cloneAll[T entry[T]](in []T) []T {
	out := make([]T, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}

func normalize[T entry[T]](in []T) []T {
	out := make([]T, 0, len(in))
	for _, e := range in {
		if e.blank() {
			continue
		}
		out = append(out, e.clone())
	}
	return out
}

func bind[T entry[T]](in []T, ref Reference) []T {
	out := make([]T, len(in))
	for i, e := range in {
		fd, ok := lookupField(e.key())
		if !ok || fd.needs == needsNothing {
			out[i] = e.clone()
			continue
		}
		var r Reference
		switch fd.needs {
		case needsPoint:
			r.Point = ref.Point
		case needsSubject:
			r.UserID = ref.UserID
		}
		out[i] = e.withRef(r)
	}
	return out
}
