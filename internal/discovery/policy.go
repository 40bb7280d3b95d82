package discovery

import (
	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/query"
)

// Policy selects and parameterises the default filter and sort.
type Policy struct {
	SmartFilter        bool
	SmartSort          bool
	RadiusKm           float64
	MinFameRating      int
	MinCommonInterests int
}

func PolicyFromConfig(c config.DiscoveryConfig) Policy {
	return Policy{
		SmartFilter:        c.SmartFilter,
		SmartSort:          c.SmartSort,
		RadiusKm:           c.RadiusKm,
		MinFameRating:      c.MinFameRating,
		MinCommonInterests: c.MinCommonInterests,
	}
}

// DefaultFilter returns the filter applied before caller overrides.
//
// Smart filter on:
//
//	gender $eq <self.sexual_preference>, location $lt RadiusKm,
//	fame_rating $gte MinFameRating, common_interests $gte MinCommonInterests
//
// Smart filter off:
//
//	user_id $neq <self.user_id>
//
// References (caller point and id) are not set here, Bind does that after merging.
func DefaultFilter(self *db.Profile, p Policy) query.FilterBy {
	if !p.SmartFilter {
		return query.FilterBy{}.
			Where(query.FieldUserID, query.Condition{Op: query.OpNeq, Value: query.String(self.UserID)})
	}
	return query.FilterBy{}.
		Where(query.FieldGender, query.Condition{Op: query.OpEq, Value: query.String(self.SexualPreference)}).
		Where(query.FieldLocation, query.Condition{Op: query.OpLt, Value: query.Number(p.RadiusKm)}).
		Where(query.FieldFameRating, query.Condition{Op: query.OpGte, Value: query.Number(float64(p.MinFameRating))}).
		Where(query.FieldCommonInterests, query.Condition{Op: query.OpGte, Value: query.Number(float64(p.MinCommonInterests))})
}

// DefaultSort is location ascending with smart sort on, empty otherwise.
func DefaultSort(_ *db.Profile, p Policy) query.SortBy {
	if !p.SmartSort {
		return query.SortBy{}
	}
	return query.SortBy{}.By(query.FieldLocation, query.Asc)
}

// reference is the side-channel data every location and common_interests clause receives.
func reference(self *db.Profile) query.Reference {
	return query.Reference{
		Point:  &query.GeoPoint{Longitude: self.GPSLongitude, Latitude: self.GPSLatitude},
		UserID: self.UserID,
	}
}
