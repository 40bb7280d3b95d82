package discovery

import (
	"github.com/samber/lo"

	"github.com/oggyb/discovery/internal/db"
)

// Profile is the wire view of a profile.
type Profile struct {
	UserID           string   `json:"user_id"`
	Gender           string   `json:"gender"`
	SexualPreference string   `json:"sexual_preference"`
	Age              int      `json:"age"`
	Biography        string   `json:"biography,omitempty"`
	ProfilePicture   string   `json:"profile_picture,omitempty"`
	Longitude        float64  `json:"longitude"`
	Latitude         float64  `json:"latitude"`
	FameRating       int      `json:"fame_rating"`
	Interests        []string `json:"interests,omitempty"`
	Pictures         []string `json:"pictures,omitempty"`
}

// ProfileFromModel converts a stored profile to its wire view.
func ProfileFromModel(p db.Profile) Profile {
	return Profile{
		UserID:           p.UserID,
		Gender:           p.Gender,
		SexualPreference: p.SexualPreference,
		Age:              p.Age,
		Biography:        lo.FromPtr(p.Biography),
		ProfilePicture:   lo.FromPtr(p.ProfilePicture),
		Longitude:        p.GPSLongitude,
		Latitude:         p.GPSLatitude,
		FameRating:       p.FameRating,
		Interests:        lo.Map(p.Interests, func(i db.ProfileInterest, _ int) string { return i.Interest }),
		Pictures:         lo.Map(p.Pictures, func(pic db.ProfilePicture, _ int) string { return pic.PictureURL }),
	}
}

func ProfilesFromModels(ps []db.Profile) []Profile {
	return lo.Map(ps, func(p db.Profile, _ int) Profile { return ProfileFromModel(p) })
}

// SearchProfilesRequest carries the filter_by/sort_by JSON documents as text.
type SearchProfilesRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	FilterBy string `json:"filter_by,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Limit    int    `json:"limit,omitempty" validate:"gte=0,lte=200"`
	Offset   int    `json:"offset,omitempty" validate:"gte=0"`
}

type SearchProfilesResponse struct {
	Profiles []Profile `json:"profiles"`
}

type GetProfileRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type GetProfileResponse struct {
	Profile Profile `json:"profile"`
}

// UpdateProfileRequest is a partial update. Nil fields are left untouched.
type UpdateProfileRequest struct {
	UserID           string   `json:"user_id" validate:"required,uuid"`
	Gender           *string  `json:"gender,omitempty" validate:"omitempty,oneof=male female other"`
	SexualPreference *string  `json:"sexual_preference,omitempty" validate:"omitempty,oneof=male female other"`
	Age              *int     `json:"age,omitempty" validate:"omitempty,gte=18,lte=120"`
	Biography        *string  `json:"biography,omitempty" validate:"omitempty,max=1000"`
	ProfilePicture   *string  `json:"profile_picture,omitempty" validate:"omitempty,url"`
	Latitude         *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude        *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	AddInterests     []string `json:"add_interests,omitempty" validate:"omitempty,dive,required,max=64"`
	RemoveInterests  []string `json:"remove_interests,omitempty" validate:"omitempty,dive,required,max=64"`
	AddPictures      []string `json:"add_pictures,omitempty" validate:"omitempty,max=5,dive,url"`
	RemovePictures   []string `json:"remove_pictures,omitempty" validate:"omitempty,dive,url"`
}

type UpdateProfileResponse struct {
	Profile Profile `json:"profile"`
}

// PairRequest names the acting user and the user acted upon.
type PairRequest struct {
	ActorUserID     string `json:"actor_user_id" validate:"required,uuid"`
	RecipientUserID string `json:"recipient_user_id" validate:"required,uuid"`
}

type LikeResponse struct {
	Inserted      bool   `json:"inserted"`
	MutualLikes   bool   `json:"mutual_likes"`
	UnixTimestamp uint64 `json:"unix_timestamp,omitempty"`
}

type UnlikeResponse struct {
	Removed   bool `json:"removed"`
	Unmatched bool `json:"unmatched"`
}

type UserRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type Match struct {
	UserID        string `json:"user_id"`
	MatcherUserID string `json:"matcher_user_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

// MatchFromModel renders m from the point of view of userID.
func MatchFromModel(userID string, m db.Match) Match {
	return Match{
		UserID:        m.Counterpart(userID),
		MatcherUserID: m.MatcherUserID,
		UnixTimestamp: uint64(m.MatchTime.UnixMilli()),
	}
}

type ListMatchesResponse struct {
	Matches []Match `json:"matches"`
}

type Like struct {
	UserID        string `json:"user_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListLikesResponse struct {
	Likes []Like `json:"likes"`
}

type ListLikedYouRequest struct {
	RecipientUserID string  `json:"recipient_user_id" validate:"required,uuid"`
	PaginationToken *string `json:"pagination_token,omitempty"`
	Limit           int     `json:"limit,omitempty" validate:"gte=0,lte=100"`
	OnlyNew         bool    `json:"only_new,omitempty"`
}

type Liker struct {
	ActorID       string `json:"actor_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListLikedYouResponse struct {
	Likers              []Liker `json:"likers"`
	NextPaginationToken *string `json:"next_pagination_token,omitempty"`
}

type CountLikedYouResponse struct {
	Count uint64 `json:"count"`
}

type RelationResponse struct {
	Changed bool `json:"changed"`
}

type ReportRequest struct {
	ActorUserID     string `json:"actor_user_id" validate:"required,uuid"`
	RecipientUserID string `json:"recipient_user_id" validate:"required,uuid"`
	Reason          string `json:"reason" validate:"required,max=255"`
}

type ReportResponse struct{}

type RecordVisitResponse struct {
	VisitID       uint64 `json:"visit_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type BlockedProfile struct {
	UserID        string `json:"user_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListBlocksResponse struct {
	Blocks []BlockedProfile `json:"blocks"`
}

type ReportedProfile struct {
	UserID        string `json:"user_id"`
	Reason        string `json:"reason"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListReportsResponse struct {
	Reports []ReportedProfile `json:"reports"`
}

// ListVisitsRequest asks for the latest views of UserID's profile.
// Limit 0 means the server default.
type ListVisitsRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Limit  int    `json:"limit,omitempty" validate:"gte=0,lte=100"`
}

type Visit struct {
	VisitID       uint64 `json:"visit_id"`
	VisitorID     string `json:"visitor_id"`
	UnixTimestamp uint64 `json:"unix_timestamp"`
}

type ListVisitsResponse struct {
	Visits []Visit `json:"visits"`
}

func BlocksFromModel(rows []db.BlockedUser) []BlockedProfile {
	return lo.Map(rows, func(b db.BlockedUser, _ int) BlockedProfile {
		return BlockedProfile{UserID: b.BlockedUserID, UnixTimestamp: uint64(b.CreatedAt.UnixMilli())}
	})
}

func ReportsFromModel(rows []db.UserReport) []ReportedProfile {
	return lo.Map(rows, func(r db.UserReport, _ int) ReportedProfile {
		return ReportedProfile{UserID: r.ReportedUserID, Reason: r.Reason, UnixTimestamp: uint64(r.CreatedAt.UnixMilli())}
	})
}

func VisitsFromModel(rows []db.Visit) []Visit {
	return lo.Map(rows, func(v db.Visit, _ int) Visit {
		return Visit{VisitID: v.ID, VisitorID: v.VisitorUserID, UnixTimestamp: uint64(v.CreatedAt.UnixMilli())}
	})
}
