package repository_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/oggyb/discovery/internal/db"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/query"
	"github.com/oggyb/discovery/internal/repository"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setup in-memory DB with the geo function registered
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(database) })
	return database
}

func mkProfile(t *testing.T, database *gorm.DB, id, gender, pref string, lon, lat float64, interests ...string) {
	t.Helper()
	p := db.Profile{
		UserID:           id,
		Gender:           gender,
		SexualPreference: pref,
		Age:              25,
		GPSLongitude:     lon,
		GPSLatitude:      lat,
		Interests: lo.Map(interests, func(tag string, _ int) db.ProfileInterest {
			return db.ProfileInterest{UserID: id, Interest: tag}
		}),
	}
	require.NoError(t, database.Create(&p).Error)
}

func TestProfileFindOne(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "c", "female", "male", 10, 20, "music", "chess")

	p, err := repo.FindOne(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "female", p.Gender)
	assert.Equal(t, []string{"chess", "music"}, lo.Map(p.Interests, func(i db.ProfileInterest, _ int) string { return i.Interest }))

	_, err = repo.FindOne(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
	assert.ErrorIs(t, err, svcErr.NotFound)
}

func TestProfileSearch(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)
	relations := repository.NewRelationRepository(dbase)

	mkProfile(t, dbase, "c", "female", "male", 10.0, 20.0)
	mkProfile(t, dbase, "d", "male", "female", 10.0, 20.01)
	mkProfile(t, dbase, "e", "male", "female", 50.0, 60.0)

	c := query.NewCompiler(query.SQLite)
	f := query.FilterBy{}.
		Where("gender", query.Condition{Op: query.OpEq, Value: query.String("male")}).
		Where("location", query.Condition{Op: query.OpLt, Value: query.Number(100)}).
		Bind(query.Reference{Point: &query.GeoPoint{Longitude: 10.0, Latitude: 20.0}})
	where, err := c.Filter(f)
	require.NoError(t, err)

	got, err := repo.Search(ctx, repository.SearchScope{ViewerID: "c"}, where, query.Order{})
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, lo.Map(got, func(p db.Profile, _ int) string { return p.UserID }))

	// blocked profiles disappear from the viewer's results only
	_, err = relations.Block(ctx, "c", "d")
	require.NoError(t, err)
	got, err = repo.Search(ctx, repository.SearchScope{ViewerID: "c"}, where, query.Order{})
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = repo.Search(ctx, repository.SearchScope{}, where, query.Order{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestProfileSearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "far", "male", "female", 12.0, 22.0)
	mkProfile(t, dbase, "near", "male", "female", 10.0, 20.1)
	mkProfile(t, dbase, "mid", "male", "female", 11.0, 21.0)

	c := query.NewCompiler(query.SQLite)
	ref := query.Reference{Point: &query.GeoPoint{Longitude: 10.0, Latitude: 20.0}}
	where, err := c.Filter(query.FilterBy{}.Where("gender", query.Condition{Op: query.OpEq, Value: query.String("male")}))
	require.NoError(t, err)
	order, err := c.Sort(query.SortBy{}.By("location", query.Asc).Bind(ref))
	require.NoError(t, err)

	got, err := repo.Search(ctx, repository.SearchScope{}, where, order)
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "mid", "far"}, lo.Map(got, func(p db.Profile, _ int) string { return p.UserID }))
}

func TestProfileSearchByInterests(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "me", "female", "male", 0, 0, "music", "chess", "yoga")
	mkProfile(t, dbase, "two", "male", "female", 0, 0, "music", "chess")
	mkProfile(t, dbase, "one", "male", "female", 0, 0, "music", "gaming")
	mkProfile(t, dbase, "none", "male", "female", 0, 0)

	c := query.NewCompiler(query.SQLite)
	ids := func(f query.FilterBy) []string {
		t.Helper()
		where, err := c.Filter(f.Bind(query.Reference{UserID: "me"}))
		require.NoError(t, err)
		got, err := repo.Search(ctx, repository.SearchScope{}, where, query.Order{})
		require.NoError(t, err)
		return lo.Map(got, func(p db.Profile, _ int) string { return p.UserID })
	}
	male := query.Condition{Op: query.OpEq, Value: query.String("male")}

	assert.Equal(t, []string{"two"},
		ids(query.FilterBy{}.Where("gender", male).Where("common_interests", query.Condition{Op: query.OpGte, Value: query.Number(2)})))
	assert.Equal(t, []string{"one", "two"},
		ids(query.FilterBy{}.Where("interests", query.Condition{Op: query.OpOverlap, Value: query.Strings("music")}).Where("gender", male)))
	assert.Equal(t, []string{"two"},
		ids(query.FilterBy{}.Where("interests", query.Condition{Op: query.OpContains, Value: query.Strings("music", "chess")}).Where("gender", male)))
	assert.Equal(t, []string{"none", "two"},
		ids(query.FilterBy{}.Where("interests", query.Condition{Op: query.OpContained, Value: query.Strings("music", "chess")}).Where("gender", male)))
	assert.Equal(t, []string{"none"},
		ids(query.FilterBy{}.Where("interests", query.Condition{Op: query.OpNexists, Value: query.Bool(true)})))
}

func TestProfileUpdatePartial(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "c", "female", "male", 10, 20)

	p, err := repo.Update(ctx, "c", repository.ProfileUpdate{Biography: lo.ToPtr("hello"), Age: lo.ToPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, "hello", *p.Biography)
	assert.Equal(t, 30, p.Age)
	assert.Equal(t, "female", p.Gender)

	_, err = repo.Update(ctx, "c", repository.ProfileUpdate{})
	assert.ErrorIs(t, err, repository.ErrEmptyUpdate)

	_, err = repo.Update(ctx, "missing", repository.ProfileUpdate{Age: lo.ToPtr(1)})
	assert.ErrorIs(t, err, svcErr.NotFound)
}

func TestProfileWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "c", "female", "male", 10, 20, "music")
	pics := lo.Times(db.MaxPictures, func(i int) string { return fmt.Sprintf("https://img/%d", i) })
	_, err := repo.AddPictures(ctx, "c", pics)
	require.NoError(t, err)

	err = repo.WithTx(ctx, func(tx *repository.ProfileRepository) error {
		if _, err := tx.Update(ctx, "c", repository.ProfileUpdate{Age: lo.ToPtr(40)}); err != nil {
			return err
		}
		if _, err := tx.RemoveInterests(ctx, "c", []string{"music"}); err != nil {
			return err
		}
		_, err := tx.AddPictures(ctx, "c", []string{"https://img/extra"})
		return err
	})
	assert.ErrorIs(t, err, repository.ErrTooManyPictures)

	p, err := repo.FindOne(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 25, p.Age)
	assert.Len(t, p.Interests, 1)
	assert.Len(t, p.Pictures, db.MaxPictures)
}

func TestProfileCreate(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	p := &db.Profile{UserID: "n", Gender: "male", SexualPreference: "female", Age: 20,
		Interests: []db.ProfileInterest{{Interest: "music"}, {Interest: "music"}, {Interest: "jazz"}}}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindOne(ctx, "n")
	require.NoError(t, err)
	assert.Len(t, got.Interests, 2)

	err = repo.Create(ctx, &db.Profile{UserID: "n", Gender: "male", SexualPreference: "female", Age: 20})
	assert.ErrorIs(t, err, repository.ErrProfileExists)
}

func TestInterestsAndPictures(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	mkProfile(t, dbase, "c", "female", "male", 0, 0, "music")

	p, err := repo.AddInterests(ctx, "c", []string{"music", "chess"})
	require.NoError(t, err)
	assert.Len(t, p.Interests, 2)

	p, err = repo.RemoveInterests(ctx, "c", []string{"music"})
	require.NoError(t, err)
	assert.Len(t, p.Interests, 1)

	_, err = repo.AddInterests(ctx, "missing", []string{"x"})
	assert.ErrorIs(t, err, svcErr.NotFound)

	urls := []string{"https://p/1", "https://p/2", "https://p/3", "https://p/4"}
	p, err = repo.AddPictures(ctx, "c", urls)
	require.NoError(t, err)
	assert.Len(t, p.Pictures, 4)

	// re-adding existing ones is free, the sixth distinct one is not
	_, err = repo.AddPictures(ctx, "c", []string{"https://p/1", "https://p/5"})
	require.NoError(t, err)
	_, err = repo.AddPictures(ctx, "c", []string{"https://p/6"})
	assert.ErrorIs(t, err, repository.ErrTooManyPictures)

	p, err = repo.RemovePictures(ctx, "c", []string{"https://p/1"})
	require.NoError(t, err)
	assert.Len(t, p.Pictures, 4)
}

func TestAddLikeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	inserted, err := repo.AddLike(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.AddLike(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.FindLike(ctx, "a", "b")
	assert.NoError(t, err)
	_, err = repo.FindLike(ctx, "b", "a")
	assert.ErrorIs(t, err, repository.ErrLikeNotFound)

	ok, err := repo.LockLike(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := repo.RemoveLike(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.RemoveLike(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCreateMatchRejectsSecondForPair(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	m, err := repo.CreateMatch(ctx, "b", "a", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "a", m.UserLow)
	assert.Equal(t, "b", m.MatcherUserID)

	// same unordered pair, other direction
	_, err = repo.CreateMatch(ctx, "a", "b", time.Now().UTC())
	assert.ErrorIs(t, err, repository.ErrDuplicateMatch)
	assert.ErrorIs(t, err, svcErr.Conflict)

	ok, err := repo.LockMatch(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := repo.DeleteMatch(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = repo.FindMatch(ctx, "a", "b")
	assert.ErrorIs(t, err, repository.ErrMatchNotFound)
}

func TestFindMatchesRequiresBothLikes(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, _ = repo.AddLike(ctx, "a", "b")
	_, _ = repo.AddLike(ctx, "b", "a")
	_, err := repo.CreateMatch(ctx, "b", "a", time.Now().UTC())
	require.NoError(t, err)

	// stale match: like c→a is gone
	_, _ = repo.AddLike(ctx, "a", "c")
	_, err = repo.CreateMatch(ctx, "a", "c", time.Now().UTC())
	require.NoError(t, err)

	matches, err := repo.FindMatches(ctx, "a")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b", matches[0].Counterpart("a"))

	matches, err = repo.FindMatches(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestLockProfilesAndIncrementFame(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	mkProfile(t, dbase, "b", "male", "female", 0, 0)
	mkProfile(t, dbase, "a", "female", "male", 0, 0)

	err := repo.WithTx(ctx, func(tx *repository.LikeRepository) error {
		locked, err := tx.LockProfiles(ctx, "b", "a", "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, lo.Map(locked, func(p db.Profile, _ int) string { return p.UserID }))
		return tx.IncrementFame(ctx, "b", 1)
	})
	require.NoError(t, err)

	var b db.Profile
	require.NoError(t, dbase.First(&b, "user_id = ?", "b").Error)
	assert.Equal(t, 1, b.FameRating)

	_, err = repo.LockProfiles(ctx, "a", "ghost")
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
	assert.ErrorIs(t, repo.IncrementFame(ctx, "ghost", 1), svcErr.NotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	err := repo.WithTx(ctx, func(tx *repository.LikeRepository) error {
		if _, err := tx.AddLike(ctx, "a", "b"); err != nil {
			return err
		}
		return repository.ErrDuplicateMatch
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateMatch)

	_, err = repo.FindLike(ctx, "a", "b")
	assert.ErrorIs(t, err, repository.ErrLikeNotFound)
}

func TestListLikersAndPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)
	relations := repository.NewRelationRepository(dbase)

	for _, liker := range []string{"u1", "u2", "u3", "u4", "u5"} {
		_, err := repo.AddLike(ctx, liker, "me")
		require.NoError(t, err)
	}
	// blocked likers are hidden
	_, err := relations.Block(ctx, "me", "u5")
	require.NoError(t, err)

	var seen []string
	var token *string
	for page := 0; page < 5; page++ {
		likes, next, err := repo.ListLikers(ctx, "me", token, 2)
		require.NoError(t, err)
		seen = append(seen, lo.Map(likes, func(l db.Like, _ int) string { return l.LikerUserID })...)
		if next == nil {
			break
		}
		token = next
	}
	assert.ElementsMatch(t, []string{"u1", "u2", "u3", "u4"}, seen)
	assert.Len(t, lo.Uniq(seen), 4)

	count, err := repo.CountLikers(ctx, "me")
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	_, _, err = repo.ListLikers(ctx, "me", lo.ToPtr("garbage!"), 2)
	assert.ErrorIs(t, err, svcErr.Validation)

	_, _, err = repo.ListLikers(ctx, "me", nil, 0)
	assert.ErrorIs(t, err, repository.ErrInvalidPageLimit)
}

func TestListLikersSameMillisecond(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	base := time.Date(2024, 5, 1, 12, 0, 0, 123_000_000, time.UTC)
	for i, liker := range []string{"u1", "u2", "u3"} {
		at := base.Add(time.Duration(300-100*i) * time.Microsecond) // .1233, .1232, .1231
		require.NoError(t, dbase.Create(&db.Like{LikerUserID: liker, LikedUserID: "me", CreatedAt: at}).Error)
	}

	var seen []string
	var token *string
	for page := 0; page < 5; page++ {
		likes, next, err := repo.ListLikers(ctx, "me", token, 1)
		require.NoError(t, err)
		seen = append(seen, lo.Map(likes, func(l db.Like, _ int) string { return l.LikerUserID })...)
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, seen)
}

func TestListNewLikers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	// u1 liked me and I liked back → mutual
	_, _ = repo.AddLike(ctx, "u1", "me")
	_, _ = repo.AddLike(ctx, "me", "u1")
	// u2 liked me, not mutual
	_, _ = repo.AddLike(ctx, "u2", "me")

	likes, next, err := repo.ListNewLikers(ctx, "me", nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, likes, 1)
	assert.Equal(t, "u2", likes[0].LikerUserID)

	outgoing, err := repo.FindLikes(ctx, "me")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "u1", outgoing[0].LikedUserID)
}

func TestRelations(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewRelationRepository(dbase)

	created, err := repo.Block(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Block(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, created)

	blocked, err := repo.IsBlocked(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, blocked)
	blocked, err = repo.IsBlocked(ctx, "b", "a")
	require.NoError(t, err)
	assert.False(t, blocked)

	list, err := repo.ListBlocks(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	removed, err := repo.Unblock(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, repo.Report(ctx, "a", "c", "fake"))
	require.NoError(t, repo.Report(ctx, "a", "c", "spam"))
	reports, err := repo.ListReports(ctx, "a")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "spam", reports[0].Reason)
}

func TestVisitsAndNotifications(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	visits := repository.NewVisitRepository(dbase)
	notes := repository.NewNotificationRepository(dbase)

	v, err := visits.Create(ctx, "a", "b")
	require.NoError(t, err)
	assert.NotZero(t, v.ID)
	_, err = visits.Create(ctx, "c", "b")
	require.NoError(t, err)

	list, err := visits.ListVisits(ctx, "b", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, notes.CreateMany(ctx, nil))
	require.NoError(t, notes.CreateMany(ctx, []db.Notification{
		{EntityType: "profile_view", EntityID: "a", Status: "sent", Sender: "a", Receiver: "b"},
		{EntityType: "like", EntityID: "c", Status: "sent", Sender: "c", Receiver: "b"},
	}))
	got, err := notes.ListForReceiver(ctx, "b", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
