package discovery_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/discovery"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/logger"
	"github.com/oggyb/discovery/internal/query"
	"github.com/oggyb/discovery/internal/repository"
)

var smart = discovery.Policy{SmartFilter: true, SmartSort: true, RadiusKm: 100, MinFameRating: 0, MinCommonInterests: 2}

func setup(t *testing.T) (*gorm.DB, *repository.ProfileRepository) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.SeedMinimalTestData(database))
	return database, repository.NewProfileRepository(database)
}

func newService(repo discovery.ProfileStore, p discovery.Policy) *discovery.Service {
	return discovery.NewService(repo, query.NewCompiler(query.SQLite), p, logger.Discard())
}

func ids(profiles []db.Profile) []string {
	return lo.Map(profiles, func(p db.Profile, _ int) string { return p.UserID })
}

func TestPolicyFromConfig(t *testing.T) {
	p := discovery.PolicyFromConfig(config.DiscoveryConfig{
		SmartFilter: true, SmartSort: false, RadiusKm: 25, MinFameRating: 1, MinCommonInterests: 3,
	})
	assert.Equal(t, discovery.Policy{SmartFilter: true, RadiusKm: 25, MinFameRating: 1, MinCommonInterests: 3}, p)
}

func TestDefaultFilterSmart(t *testing.T) {
	self := &db.Profile{UserID: "me", SexualPreference: "male"}
	f := discovery.DefaultFilter(self, smart)

	fields := lo.Map(f, func(ff query.FieldFilter, _ int) string { return ff.Field })
	assert.Equal(t, []string{"gender", "location", "fame_rating", "common_interests"}, fields)

	gender, _ := f.Get("gender")
	assert.Equal(t, query.OpEq, gender.Conditions[0].Op)
	assert.Equal(t, "male", gender.Conditions[0].Value.Arg())

	loc, _ := f.Get("location")
	assert.Equal(t, query.OpLt, loc.Conditions[0].Op)
	assert.Equal(t, int64(100), loc.Conditions[0].Value.Arg())
}

func TestDefaultFilterPlain(t *testing.T) {
	self := &db.Profile{UserID: "me"}
	f := discovery.DefaultFilter(self, discovery.Policy{})

	require.Len(t, f, 1)
	item, ok := f.Get("user_id")
	require.True(t, ok)
	assert.Equal(t, query.OpNeq, item.Conditions[0].Op)
	assert.Equal(t, "me", item.Conditions[0].Value.Arg())
}

func TestDefaultSort(t *testing.T) {
	assert.Empty(t, discovery.DefaultSort(nil, discovery.Policy{}))

	s := discovery.DefaultSort(nil, smart)
	require.Len(t, s, 1)
	item, _ := s.Get("location")
	assert.Equal(t, query.Asc, item.Order)
}

func TestPlanBindsCallerPoint(t *testing.T) {
	self := &db.Profile{UserID: "me", SexualPreference: "female", GPSLongitude: 2.35, GPSLatitude: 48.85}
	svc := newService(nil, smart)

	plan, err := svc.Plan(self, discovery.SearchRequest{
		SortBy: query.SortBy{}.By("fame_rating", query.Desc),
	})
	require.NoError(t, err)

	loc, ok := plan.FilterBy.Get("location")
	require.True(t, ok)
	require.NotNil(t, loc.Ref.Point)
	assert.Equal(t, query.GeoPoint{Longitude: 2.35, Latitude: 48.85}, *loc.Ref.Point)

	shared, _ := plan.FilterBy.Get("common_interests")
	assert.Equal(t, "me", shared.Ref.UserID)

	sortLoc, ok := plan.SortBy.Get("location")
	require.True(t, ok)
	require.NotNil(t, sortLoc.Ref.Point)
	assert.Len(t, plan.SortBy, 2, "override appended after default location sort")
	assert.True(t, strings.HasSuffix(plan.Order.SQL, "profiles.fame_rating DESC"))
}

func TestPlanOverrideReplacesWholeField(t *testing.T) {
	self := &db.Profile{UserID: "me", SexualPreference: "female"}
	svc := newService(nil, smart)

	plan, err := svc.Plan(self, discovery.SearchRequest{
		FilterBy: query.FilterBy{}.Where("location", query.Condition{Op: query.OpLte, Value: query.Number(5)}),
	})
	require.NoError(t, err)

	loc, _ := plan.FilterBy.Get("location")
	require.Len(t, loc.Conditions, 1)
	assert.Equal(t, query.OpLte, loc.Conditions[0].Op)
	assert.Equal(t, int64(5), loc.Conditions[0].Value.Arg())
	assert.Equal(t, "location", plan.FilterBy[1].Field, "override keeps the default's position")
}

func TestPlanWithoutSortHasEmptyOrder(t *testing.T) {
	svc := newService(nil, discovery.Policy{})
	plan, err := svc.Plan(&db.Profile{UserID: "me"}, discovery.SearchRequest{})
	require.NoError(t, err)
	assert.True(t, plan.Order.Empty())
	assert.Equal(t, "profiles.user_id <> ?", plan.Predicate.SQL)
}

func TestSearchSmartDefaults(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, smart)

	got, err := svc.Search(context.Background(), discovery.SearchRequest{UserID: db.FixtureC})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureD}, ids(got), "E is outside the default radius")
}

func TestSearchPlainDefaultsExcludeSelf(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, discovery.Policy{SmartSort: true})

	got, err := svc.Search(context.Background(), discovery.SearchRequest{UserID: db.FixtureC})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureD, db.FixtureE}, ids(got), "nearest first")
}

func TestSearchOverrideRadius(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, smart)

	got, err := svc.Search(context.Background(), discovery.SearchRequest{
		UserID:   db.FixtureC,
		FilterBy: query.FilterBy{}.Where("location", query.Condition{Op: query.OpLt, Value: query.Number(10000)}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureD, db.FixtureE}, ids(got))

	got, err = svc.Search(context.Background(), discovery.SearchRequest{
		UserID: db.FixtureC,
		FilterBy: query.FilterBy{}.
			Where("location", query.Condition{Op: query.OpLt, Value: query.Number(10000)}).
			Where("fame_rating", query.Condition{Op: query.OpGte, Value: query.Number(2)}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureD}, ids(got))
}

func TestSearchBlankOverrideDisablesDefault(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, smart)

	override, err := query.ParseFilterBy([]byte(`{"location":{}}`))
	require.NoError(t, err)
	got, err := svc.Search(context.Background(), discovery.SearchRequest{UserID: db.FixtureC, FilterBy: override})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureD, db.FixtureE}, ids(got), "no radius limit, still nearest first")
}

func TestSearchSortOverride(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, discovery.Policy{SmartSort: true})

	got, err := svc.Search(context.Background(), discovery.SearchRequest{
		UserID: db.FixtureC,
		SortBy: query.SortBy{}.By("location", query.Desc),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{db.FixtureE, db.FixtureD}, ids(got))
}

func TestSearchHidesBlocked(t *testing.T) {
	database, repo := setup(t)
	_, err := repository.NewRelationRepository(database).Block(context.Background(), db.FixtureC, db.FixtureD)
	require.NoError(t, err)

	got, err := newService(repo, smart).Search(context.Background(), discovery.SearchRequest{UserID: db.FixtureC})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchUnknownCaller(t *testing.T) {
	_, repo := setup(t)
	_, err := newService(repo, smart).Search(context.Background(), discovery.SearchRequest{UserID: "nobody"})
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
	assert.ErrorIs(t, err, svcErr.NotFound)
}

func TestSearchPropagatesCompileErrors(t *testing.T) {
	_, repo := setup(t)
	svc := newService(repo, smart)

	_, err := svc.Search(context.Background(), discovery.SearchRequest{
		UserID:   db.FixtureC,
		FilterBy: query.FilterBy{}.Where("height", query.Condition{Op: query.OpGt, Value: query.Number(1)}),
	})
	assert.ErrorIs(t, err, query.ErrInvalidField)

	_, err = svc.Search(context.Background(), discovery.SearchRequest{
		UserID: db.FixtureC,
		SortBy: query.SortBy{}.By("biography", query.Direction("sideways")),
	})
	assert.ErrorIs(t, err, svcErr.Validation)
}
