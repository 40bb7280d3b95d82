package query

import (
	"fmt"
	"strings"
)

// Predicate is a boolean SQL fragment with positional (?) arguments.
type Predicate struct {
	SQL  string
	Args []any
}

// Order is an ORDER BY fragment (without the keyword) with positional arguments.
type Order struct {
	SQL  string
	Args []any
}

// Empty reports whether the order holds no expression.
func (o Order) Empty() bool { return o.SQL == "" }

// Compiler turns FilterBy/SortBy documents into SQL fragments.
// It holds no mutable state and is safe for concurrent use.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a compiler for the given dialect.
func NewCompiler(d Dialect) *Compiler {
	if d == nil {
		d = MySQL
	}
	return &Compiler{dialect: d}
}

// Dialect returns the dialect the compiler renders for.
func (c *Compiler) Dialect() Dialect { return c.dialect }

const (
	interestsFrom = "FROM profile_interests pi WHERE pi.user_id = profiles.user_id"
	sharedCount   = "(SELECT COUNT(*) FROM profile_interests pi JOIN profile_interests mine ON mine.interest = pi.interest " +
		"WHERE pi.user_id = profiles.user_id AND mine.user_id = ?)"
)

// Filter compiles f into a single predicate.
//
// Behavior:
//   - Blank entries are dropped first; nothing left fails with ErrEmptyFilter.
//   - Conditions of one field are AND-ed and parenthesised only when there are several.
//   - Fields are AND-ed in input order.
//   - location and common_interests need a bound Reference, else ErrMissingReference.
//
// Example:
//
//	c.Filter(FilterBy{}.Where("age", Condition{OpGte, Number(18)}))
//	// -> "profiles.age >= ?", [18]
func (c *Compiler) Filter(f FilterBy) (Predicate, error) {
	f = f.Normalize()
	if len(f) == 0 {
		return Predicate{}, ErrEmptyFilter
	}

	seen := make(map[string]struct{}, len(f))
	groups := make([]string, 0, len(f))
	var args []any

	for _, ff := range f {
		if _, dup := seen[ff.Field]; dup {
			return Predicate{}, fmt.Errorf("%w: %q", ErrDuplicateField, ff.Field)
		}
		seen[ff.Field] = struct{}{}

		fd, ok := lookupField(ff.Field)
		if !ok {
			return Predicate{}, fmt.Errorf("%w: %q", ErrInvalidField, ff.Field)
		}

		parts := make([]string, 0, len(ff.Item.Conditions))
		for _, cond := range ff.Item.Conditions {
			frag, fragArgs, err := c.condition(ff.Field, fd, ff.Item.Ref, cond)
			if err != nil {
				return Predicate{}, err
			}
			parts = append(parts, frag)
			args = append(args, fragArgs...)
		}

		group := strings.Join(parts, " AND ")
		if len(parts) > 1 {
			group = "(" + group + ")"
		}
		groups = append(groups, group)
	}

	return Predicate{SQL: strings.Join(groups, " AND "), Args: args}, nil
}

func (c *Compiler) condition(field string, fd fieldDef, ref Reference, cond Condition) (string, []any, error) {
	spec, ok := operators[cond.Op]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrInvalidOperator, string(cond.Op))
	}
	if !accepts(spec.class, cond.Value) {
		return "", nil, fmt.Errorf("%w: %s on %q expects %s, got %s",
			ErrTypeMismatch, cond.Op, field, describeClass(spec.class), cond.Value.kind)
	}
	if !fd.kind.allowed(cond.Op) {
		return "", nil, fmt.Errorf("%w: %s is not supported on %q", ErrTypeMismatch, cond.Op, field)
	}
	if spec.class != classPresence && !fd.kind.valueFits(cond.Value) {
		return "", nil, fmt.Errorf("%w: %s on %q got %s", ErrTypeMismatch, cond.Op, field, cond.Value)
	}

	switch fd.kind {
	case fieldGeo:
		if ref.Point == nil {
			return "", nil, fmt.Errorf("%w: %q has no point", ErrMissingReference, field)
		}
		expr, exprArgs := c.dialect.Distance(latColumn, lonColumn, *ref.Point)
		return expr + " " + spec.sql + " ?", append(exprArgs, cond.Value.Arg()), nil

	case fieldSharedCount:
		if ref.UserID == "" {
			return "", nil, fmt.Errorf("%w: %q has no user", ErrMissingReference, field)
		}
		return sharedCount + " " + spec.sql + " ?", []any{ref.UserID, cond.Value.Arg()}, nil

	case fieldSet:
		return setCondition(cond)

	default:
		return scalarCondition(fd.column, cond)
	}
}

func scalarCondition(column string, cond Condition) (string, []any, error) {
	spec := cond.Op.spec()
	switch spec.class {
	case classPresence:
		return column + " " + presenceSQL(cond), nil, nil
	case classPattern:
		if cond.Op == OpILike {
			return "LOWER(" + column + ") LIKE LOWER(?)", []any{cond.Value.Arg()}, nil
		}
		return column + " LIKE ?", []any{cond.Value.Arg()}, nil
	default:
		return column + " " + spec.sql + " ?", []any{cond.Value.Arg()}, nil
	}
}

// presenceSQL resolves $exists/$nexists with their bool operand: {"$exists": false} means IS NULL.
func presenceSQL(cond Condition) string {
	present := cond.Op == OpExists
	if !cond.Value.b {
		present = !present
	}
	if present {
		return "IS NOT NULL"
	}
	return "IS NULL"
}

func setCondition(cond Condition) (string, []any, error) {
	switch cond.Op {
	case OpContains:
		members := cond.Value.distinctStrings()
		return "(SELECT COUNT(DISTINCT pi.interest) " + interestsFrom + " AND pi.interest IN ?) = ?",
			[]any{members, int64(len(members))}, nil
	case OpContained:
		return "NOT EXISTS (SELECT 1 " + interestsFrom + " AND pi.interest NOT IN ?)",
			[]any{cond.Value.distinctStrings()}, nil
	case OpOverlap:
		return "EXISTS (SELECT 1 " + interestsFrom + " AND pi.interest IN ?)",
			[]any{cond.Value.distinctStrings()}, nil
	case OpExists, OpNexists:
		if presenceSQL(cond) == "IS NOT NULL" {
			return "EXISTS (SELECT 1 " + interestsFrom + ")", nil, nil
		}
		return "NOT EXISTS (SELECT 1 " + interestsFrom + ")", nil, nil
	}
	return "", nil, fmt.Errorf("%w: %s is not supported on %q", ErrTypeMismatch, cond.Op, FieldInterests)
}
