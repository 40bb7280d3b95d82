package db

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/discovery/internal/logger"
)

var seedInterests = []string{
	"music", "hiking", "cooking", "travel", "cinema", "books",
	"gaming", "yoga", "photography", "climbing", "chess", "jazz",
}

// children first so foreign keys never block the wipe
var seedTables = []string{
	"notifications", "visits", "user_reports", "blocked_users", "matches", "likes",
	"profile_pictures", "profile_interests", "profiles", "users",
}

// Clear deletes every row of every table.
func Clear(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if db.Dialector.Name() == "sqlite" {
		db.Exec("DELETE FROM sqlite_sequence WHERE name IN ('visits', 'notifications')")
	}
	return nil
}

// SeedTestData resets the database and populates it with demo users.
//
// Behavior:
//  1. Clears every table.
//  2. Creates n users (half male, half female) with hashed passwords and a profile
//     scattered around a centre point, each with 3-5 interests.
//  3. Each user likes ~6 random others of the preferred gender; every 3rd pair is made mutual
//     and gets its match row.
//  4. fame_rating is set to the number of likes received.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB, n int, centre Point) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := Clear(db); err != nil {
		return err
	}
	logger.Info("cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	profiles := make([]Profile, 0, n)
	for i := 1; i <= n; i++ {
		gender, pref := "male", "female"
		if i > n/2 {
			gender, pref = "female", "male"
		}

		id := uuid.NewString()
		user := User{
			UserID:       id,
			Username:     fmt.Sprintf("user%d", i),
			Email:        fmt.Sprintf("user%d@example.com", i),
			FirstName:    fmt.Sprintf("First%d", i),
			LastName:     fmt.Sprintf("Last%d", i),
			PasswordHash: string(hash),
			Active:       true,
			LastLoginAt:  time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		bio := fmt.Sprintf("Hi, I am user%d.", i)
		interests := lo.Samples(seedInterests, 3+r.Intn(3))
		profile := Profile{
			UserID:           id,
			Gender:           gender,
			SexualPreference: pref,
			Age:              18 + r.Intn(30),
			Biography:        &bio,
			GPSLatitude:      centre.Latitude + (r.Float64()-0.5)*0.5,
			GPSLongitude:     centre.Longitude + (r.Float64()-0.5)*0.5,
			Interests: lo.Map(interests, func(tag string, _ int) ProfileInterest {
				return ProfileInterest{UserID: id, Interest: tag}
			}),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	logger.Info("seeded users", "count", n)

	counter := 0
	for _, liker := range profiles {
		candidates := lo.Filter(profiles, func(p Profile, _ int) bool {
			return p.UserID != liker.UserID && p.Gender == liker.SexualPreference
		})
		for _, liked := range lo.Samples(candidates, 6) {
			if err := insertLike(db, liker.UserID, liked.UserID); err != nil {
				return err
			}
			if counter%3 == 0 {
				if err := insertLike(db, liked.UserID, liker.UserID); err != nil {
					return err
				}
			}
			counter++
		}
	}

	if err := seedMatches(db); err != nil {
		return err
	}

	if err := db.Exec(
		"UPDATE profiles SET fame_rating = (SELECT COUNT(*) FROM likes WHERE likes.liked_user_id = profiles.user_id)",
	).Error; err != nil {
		return fmt.Errorf("failed to compute fame ratings: %w", err)
	}
	return nil
}

func insertLike(db *gorm.DB, liker, liked string) error {
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Like{LikerUserID: liker, LikedUserID: liked}).Error
	if err != nil {
		return fmt.Errorf("failed to seed like: %w", err)
	}
	return nil
}

// seedMatches derives one match row per mutual pair already present in likes.
func seedMatches(db *gorm.DB) error {
	var pairs []Like
	if err := db.Raw(`SELECT a.liker_user_id, a.liked_user_id FROM likes a
		JOIN likes b ON b.liker_user_id = a.liked_user_id AND b.liked_user_id = a.liker_user_id
		WHERE a.liker_user_id < a.liked_user_id`).Scan(&pairs).Error; err != nil {
		return fmt.Errorf("failed to find mutual likes: %w", err)
	}

	now := time.Now().UTC()
	matches := lo.Map(pairs, func(l Like, _ int) Match {
		return Match{
			UserLow:       l.LikerUserID,
			UserHigh:      l.LikedUserID,
			MatcherUserID: l.LikedUserID,
			MatchedUserID: l.LikerUserID,
			BothMatched:   true,
			MatchTime:     now,
		}
	})
	if len(matches) == 0 {
		return nil
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&matches).Error; err != nil {
		return fmt.Errorf("failed to seed matches: %w", err)
	}
	logger.Info("seeded matches", "count", len(matches))
	return nil
}

// Point is a longitude/latitude pair.
type Point struct {
	Longitude float64
	Latitude  float64
}

// Fixture ids of SeedMinimalTestData.
const (
	FixtureC = "00000000-0000-4000-8000-00000000000c"
	FixtureD = "00000000-0000-4000-8000-00000000000d"
	FixtureE = "00000000-0000-4000-8000-00000000000e"
)

// SeedMinimalTestData loads three fixed profiles:
//   - C: female, wants male, at (10.0, 20.0)
//   - D: male, wants female, at (10.0, 20.01), fame 3, shares two interests with C
//   - E: male, wants female, at (50.0, 60.0), shares two interests with C
//
// Coordinates are (longitude, latitude).
func SeedMinimalTestData(db *gorm.DB) error {
	if err := Clear(db); err != nil {
		return err
	}

	users := []User{
		{UserID: FixtureC, Username: "c", Email: "c@test.com", PasswordHash: "x"},
		{UserID: FixtureD, Username: "d", Email: "d@test.com", PasswordHash: "x"},
		{UserID: FixtureE, Username: "e", Email: "e@test.com", PasswordHash: "x"},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	interests := func(id string, tags ...string) []ProfileInterest {
		return lo.Map(tags, func(tag string, _ int) ProfileInterest {
			return ProfileInterest{UserID: id, Interest: tag}
		})
	}

	profiles := []Profile{
		{UserID: FixtureC, Gender: "female", SexualPreference: "male", Age: 27,
			GPSLongitude: 10.0, GPSLatitude: 20.0, Interests: interests(FixtureC, "music", "hiking", "chess")},
		{UserID: FixtureD, Gender: "male", SexualPreference: "female", Age: 29, FameRating: 3,
			GPSLongitude: 10.0, GPSLatitude: 20.01, Interests: interests(FixtureD, "music", "hiking", "gaming")},
		{UserID: FixtureE, Gender: "male", SexualPreference: "female", Age: 31, FameRating: 1,
			GPSLongitude: 50.0, GPSLatitude: 60.0, Interests: interests(FixtureE, "music", "chess")},
	}
	return db.Create(&profiles).Error
}
