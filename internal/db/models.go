package db

import (
	"time"
)

// User is the account row. Profiles hang off it one-to-one.
type User struct {
	UserID       string `gorm:"primaryKey;size:36"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Profile is the searchable part of a user.
//
// Indexes:
//   - idx_profiles_geo(gps_latitude, gps_longitude) narrows distance scans.
//   - idx_profiles_gender_fame(gender, fame_rating) serves the default filter.
type Profile struct {
	UserID           string    `gorm:"primaryKey;size:36" json:"user_id"`
	Gender           string    `gorm:"size:16;not null;index:idx_profiles_gender_fame,priority:1" json:"gender"`
	SexualPreference string    `gorm:"size:16;not null" json:"sexual_preference"`
	Age              int       `gorm:"not null" json:"age"`
	Biography        *string   `gorm:"type:text" json:"biography,omitempty"`
	ProfilePicture   *string   `gorm:"size:512" json:"profile_picture,omitempty"`
	GPSLatitude      float64   `gorm:"column:gps_latitude;not null;index:idx_profiles_geo,priority:1" json:"gps_latitude"`
	GPSLongitude     float64   `gorm:"column:gps_longitude;not null;index:idx_profiles_geo,priority:2" json:"gps_longitude"`
	FameRating       int       `gorm:"not null;default:0;index:idx_profiles_gender_fame,priority:2" json:"fame_rating"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Interests []ProfileInterest `gorm:"foreignKey:UserID;references:UserID" json:"interests,omitempty"`
	Pictures  []ProfilePicture  `gorm:"foreignKey:UserID;references:UserID" json:"pictures,omitempty"`
}

// ProfileInterest is one tag of a profile. Composite PK (UserID, Interest).
type ProfileInterest struct {
	UserID   string `gorm:"primaryKey;size:36" json:"-"`
	Interest string `gorm:"primaryKey;size:64;index" json:"interest"`
}

// ProfilePicture is one picture URL. A profile holds at most MaxPictures.
type ProfilePicture struct {
	UserID     string    `gorm:"primaryKey;size:36" json:"-"`
	PictureURL string    `gorm:"primaryKey;size:512" json:"picture_url"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// MaxPictures caps ProfilePicture rows per user.
const MaxPictures = 5

// Like is a directed like: LikerUserID likes LikedUserID.
//
// Composite PK (LikerUserID, LikedUserID) makes a re-like a no-op insert.
// idx_likes_liked_created(liked_user_id, created_at DESC, liker_user_id) serves "who liked me".
type Like struct {
	LikerUserID string    `gorm:"primaryKey;size:36" json:"liker_user_id"`
	LikedUserID string    `gorm:"primaryKey;size:36;index:idx_likes_liked_created,priority:1" json:"liked_user_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index:idx_likes_liked_created,priority:2,sort:desc" json:"created_at"`
}

// Match records reciprocity for an unordered pair.
//
// The PK is (UserLow, UserHigh), the pair in lexical order, so the store itself
// refuses a second match for the same two users whichever side liked last.
// MatcherUserID is the user whose like completed the pair.
type Match struct {
	UserLow       string    `gorm:"primaryKey;size:36" json:"-"`
	UserHigh      string    `gorm:"primaryKey;size:36;index" json:"-"`
	MatcherUserID string    `gorm:"size:36;not null" json:"matcher_user_id"`
	MatchedUserID string    `gorm:"size:36;not null" json:"matched_user_id"`
	BothMatched   bool      `gorm:"not null;default:true" json:"both_matched"`
	MatchTime     time.Time `gorm:"not null" json:"match_time"`
}

// Counterpart returns the other party of the match.
func (m Match) Counterpart(userID string) string {
	if m.UserLow == userID {
		return m.UserHigh
	}
	return m.UserLow
}

// OrderedPair returns a and b in the order used by Match keys.
func OrderedPair(a, b string) (low, high string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// BlockedUser hides BlockedUserID from BlockerUserID's searches.
type BlockedUser struct {
	BlockerUserID string    `gorm:"primaryKey;size:36" json:"blocker_user_id"`
	BlockedUserID string    `gorm:"primaryKey;size:36" json:"blocked_user_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// UserReport flags a profile as fake or abusive.
type UserReport struct {
	ReporterUserID string    `gorm:"primaryKey;size:36" json:"reporter_user_id"`
	ReportedUserID string    `gorm:"primaryKey;size:36" json:"reported_user_id"`
	Reason         string    `gorm:"size:255" json:"reason,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Visit is one profile view.
type Visit struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	VisitorUserID string    `gorm:"size:36;not null;index" json:"visitor_user_id"`
	VisitedUserID string    `gorm:"size:36;not null;index:idx_visits_visited_created,priority:1" json:"visited_user_id"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index:idx_visits_visited_created,priority:2,sort:desc" json:"created_at"`
}

// Notification is one delivered event per receiver.
type Notification struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string    `gorm:"size:32;not null" json:"entity_type"`
	EntityID   string    `gorm:"size:36;not null" json:"entity_id"`
	Status     string    `gorm:"size:16;not null" json:"status"`
	Sender     string    `gorm:"size:36;not null" json:"sender"`
	Receiver   string    `gorm:"size:36;not null;index" json:"receiver"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&User{}, &Profile{}, &ProfileInterest{}, &ProfilePicture{},
		&Like{}, &Match{}, &BlockedUser{}, &UserReport{}, &Visit{}, &Notification{},
	}
}
