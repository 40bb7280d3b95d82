package query

// fieldKind tells the compilers how a DSL field maps onto the profile schema.
type fieldKind uint8

const (
	fieldText     fieldKind = iota + 1 // text column on profiles
	fieldNumeric                       // numeric column on profiles
	fieldGeo                           // gps_latitude/gps_longitude pair
	fieldSet                           // rows in profile_interests
	fieldSharedCount                   // interests shared with the acting user
)

// reference requirement per field
type needs uint8

const (
	needsNothing needs = iota
	needsPoint
	needsSubject
)

type fieldDef struct {
	kind   fieldKind
	column string
	needs  needs
}

// Field names understood by the DSL.
const (
	FieldUserID           = "user_id"
	FieldGender           = "gender"
	FieldSexualPreference = "sexual_preference"
	FieldAge              = "age"
	FieldBiography        = "biography"
	FieldFameRating       = "fame_rating"
	FieldLocation         = "location"
	FieldInterests        = "interests"
	FieldCommonInterests  = "common_interests"
)

const (
	latColumn = "profiles.gps_latitude"
	lonColumn = "profiles.gps_longitude"
)

var fields = map[string]fieldDef{
	FieldUserID:           {kind: fieldText, column: "profiles.user_id"},
	FieldGender:           {kind: fieldText, column: "profiles.gender"},
	FieldSexualPreference: {kind: fieldText, column: "profiles.sexual_preference"},
	FieldAge:              {kind: fieldNumeric, column: "profiles.age"},
	FieldBiography:        {kind: fieldText, column: "profiles.biography"},
	FieldFameRating:       {kind: fieldNumeric, column: "profiles.fame_rating"},
	FieldLocation:         {kind: fieldGeo, needs: needsPoint},
	FieldInterests:        {kind: fieldSet},
	FieldCommonInterests:  {kind: fieldSharedCount, needs: needsSubject},
}

func lookupField(name string) (fieldDef, bool) {
	fd, ok := fields[name]
	return fd, ok
}

// allowed reports whether op may be used on a field of this kind.
func (k fieldKind) allowed(op Operator) bool {
	class := op.spec().class
	switch k {
	case fieldText:
		return class == classEquality || class == classPattern || class == classMembership || class == classPresence
	case fieldNumeric:
		return class == classEquality || class == classOrdering || class == classMembership || class == classPresence
	case fieldGeo, fieldSharedCount:
		// distance and shared-count bounds are numeric comparisons
		return op == OpEq || op == OpNeq || class == classOrdering
	case fieldSet:
		return class == classSetRelation || class == classPresence
	}
	return false
}

// valueFits enforces the column type on comparison and membership operands.
// Presence operators are not checked here.
func (k fieldKind) valueFits(v Value) bool {
	want := KindString
	switch k {
	case fieldNumeric, fieldGeo, fieldSharedCount:
		want = KindNumber
	case fieldSet:
		return true
	}
	switch v.kind {
	case KindSet:
		return v.allOf(want)
	default:
		return v.kind == want
	}
}

func (k fieldKind) sortable() bool {
	return k != fieldSet
}
