package query

import (
	"fmt"
	"strings"
)

// Sort compiles s into an ORDER BY list.
//
// Behavior:
//   - Blank entries are dropped first; nothing left fails with ErrInvalidSortConfiguration.
//   - Each field renders as "<expr> ASC|DESC", comma-joined in input order.
//   - location sorts by distance from the bound point; common_interests by the shared count.
//
// Example:
//
//	c.Sort(SortBy{}.By("fame_rating", Desc)) // -> "profiles.fame_rating DESC"
func (c *Compiler) Sort(s SortBy) (Order, error) {
	s = s.Normalize()
	if len(s) == 0 {
		return Order{}, ErrInvalidSortConfiguration
	}

	seen := make(map[string]struct{}, len(s))
	parts := make([]string, 0, len(s))
	var args []any

	for _, fs := range s {
		if _, dup := seen[fs.Field]; dup {
			return Order{}, fmt.Errorf("%w: %q", ErrDuplicateField, fs.Field)
		}
		seen[fs.Field] = struct{}{}

		fd, ok := lookupField(fs.Field)
		if !ok || !fd.kind.sortable() {
			return Order{}, fmt.Errorf("%w: cannot sort by %q", ErrInvalidField, fs.Field)
		}

		dir, err := fs.Item.Order.sql()
		if err != nil {
			return Order{}, err
		}

		var expr string
		switch fd.kind {
		case fieldGeo:
			if fs.Item.Ref.Point == nil {
				return Order{}, fmt.Errorf("%w: %q has no point", ErrMissingReference, fs.Field)
			}
			var exprArgs []any
			expr, exprArgs = c.dialect.Distance(latColumn, lonColumn, *fs.Item.Ref.Point)
			args = append(args, exprArgs...)
		case fieldSharedCount:
			if fs.Item.Ref.UserID == "" {
				return Order{}, fmt.Errorf("%w: %q has no user", ErrMissingReference, fs.Field)
			}
			expr = sharedCount
			args = append(args, fs.Item.Ref.UserID)
		default:
			expr = fd.column
		}

		parts = append(parts, expr+" "+dir)
	}

	return Order{SQL: strings.Join(parts, ", "), Args: args}, nil
}
