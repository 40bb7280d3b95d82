package httpapi_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/app"
	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/logger"
	discoverysvc "github.com/oggyb/discovery/internal/service/discovery"
	"github.com/oggyb/discovery/internal/transport/httpapi"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func setupRouter(t *testing.T) (http.Handler, *gorm.DB) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := db.OpenSQLite(fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(database) })
	require.NoError(t, db.SeedMinimalTestData(database))

	cfg := &config.Config{
		DB: config.DBConfig{Driver: "sqlite"},
		Discovery: config.DiscoveryConfig{
			SmartFilter: true, SmartSort: true, RadiusKm: 100, MinCommonInterests: 2,
		},
	}
	sink, closeSink, err := app.NewSink(cfg, database, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeSink() })

	appCtx := app.New(cfg, database, nil, sink, logger.Discard())
	return httpapi.NewRouter(appCtx), database
}

// do sends one request as user and decodes the envelope.
func do(t *testing.T, h http.Handler, method, target, user, body string) (int, envelope) {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if user != "" {
		req.Header.Set(httpapi.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := setupRouter(t)

	code, _ := do(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestProfilesRequireUser(t *testing.T) {
	h, _ := setupRouter(t)

	code, env := do(t, h, http.MethodGet, "/profiles", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "fail", env.Message)

	code, _ = do(t, h, http.MethodGet, "/profiles", "not-a-uuid", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSearchProfiles(t *testing.T) {
	h, _ := setupRouter(t)

	code, env := do(t, h, http.MethodGet, "/profiles", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", env.Message)
	resp := decode[discoverysvc.SearchProfilesResponse](t, env)
	assert.Equal(t, []string{db.FixtureD}, lo.Map(resp.Profiles, func(p discoverysvc.Profile, _ int) string { return p.UserID }))

	q := url.Values{}
	q.Set("filter_by", `{"location":{"$lt":10000}}`)
	q.Set("sort_by", `{"location":{"$order":"desc"}}`)
	code, env = do(t, h, http.MethodGet, "/profiles?"+q.Encode(), db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	resp = decode[discoverysvc.SearchProfilesResponse](t, env)
	assert.Equal(t, []string{db.FixtureE, db.FixtureD}, lo.Map(resp.Profiles, func(p discoverysvc.Profile, _ int) string { return p.UserID }))
}

func TestSearchProfilesBadInput(t *testing.T) {
	h, _ := setupRouter(t)

	cases := map[string]string{
		"malformed filter": "/profiles?filter_by=" + url.QueryEscape(`{"age":`),
		"unknown operator": "/profiles?filter_by=" + url.QueryEscape(`{"age":{"$between":[1,2]}}`),
		"negative limit":   "/profiles?limit=-1",
		"limit not an int":  "/profiles?limit=lots",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			code, env := do(t, h, http.MethodGet, target, db.FixtureC, "")
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, env.Error)
		})
	}

	code, _ := do(t, h, http.MethodGet, "/profiles", "00000000-0000-4000-8000-0000000000ff", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetAndUpdateProfile(t *testing.T) {
	h, _ := setupRouter(t)

	code, env := do(t, h, http.MethodGet, "/profiles/"+db.FixtureD, db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	got := decode[discoverysvc.GetProfileResponse](t, env)
	assert.Equal(t, 29, got.Profile.Age)

	code, env = do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{"age":30,"add_interests":["cooking"]}`)
	require.Equal(t, http.StatusOK, code)
	upd := decode[discoverysvc.UpdateProfileResponse](t, env)
	assert.Equal(t, db.FixtureC, upd.Profile.UserID)
	assert.Equal(t, 30, upd.Profile.Age)
	assert.Contains(t, upd.Profile.Interests, "cooking")

	code, _ = do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{"age":12}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{"age":`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLikeFlow(t *testing.T) {
	h, _ := setupRouter(t)

	code, env := do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/like", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	like := decode[discoverysvc.LikeResponse](t, env)
	assert.True(t, like.Inserted)
	assert.False(t, like.MutualLikes)

	code, env = do(t, h, http.MethodGet, "/profiles/liked-you/count", db.FixtureD, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(1), decode[discoverysvc.CountLikedYouResponse](t, env).Count)

	code, env = do(t, h, http.MethodGet, "/profiles/liked-you?only_new=true", db.FixtureD, "")
	require.Equal(t, http.StatusOK, code)
	likers := decode[discoverysvc.ListLikedYouResponse](t, env)
	require.Len(t, likers.Likers, 1)
	assert.Equal(t, db.FixtureC, likers.Likers[0].ActorID)

	code, env = do(t, h, http.MethodPost, "/profiles/"+db.FixtureC+"/like", db.FixtureD, "")
	require.Equal(t, http.StatusOK, code)
	like = decode[discoverysvc.LikeResponse](t, env)
	assert.True(t, like.MutualLikes)
	assert.NotZero(t, like.UnixTimestamp)

	code, env = do(t, h, http.MethodGet, "/profiles/matched", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	matches := decode[discoverysvc.ListMatchesResponse](t, env)
	require.Len(t, matches.Matches, 1)
	assert.Equal(t, db.FixtureD, matches.Matches[0].UserID)

	code, env = do(t, h, http.MethodGet, "/profiles/likes", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[discoverysvc.ListLikesResponse](t, env).Likes, 1)

	code, env = do(t, h, http.MethodDelete, "/profiles/"+db.FixtureD+"/like", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	unlike := decode[discoverysvc.UnlikeResponse](t, env)
	assert.True(t, unlike.Removed)
	assert.True(t, unlike.Unmatched)

	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureC+"/like", db.FixtureC, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/profiles/not-a-uuid/like", db.FixtureC, "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBlockReportVisit(t *testing.T) {
	h, database := setupRouter(t)

	code, env := do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/block", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[discoverysvc.RelationResponse](t, env).Changed)

	code, env = do(t, h, http.MethodGet, "/profiles", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[discoverysvc.SearchProfilesResponse](t, env).Profiles)

	code, env = do(t, h, http.MethodDelete, "/profiles/"+db.FixtureD+"/block", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[discoverysvc.RelationResponse](t, env).Changed)

	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/report", db.FixtureC, `{"reason":""}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/report", db.FixtureC, `{"reason":"spam"}`)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/visits", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.NotZero(t, decode[discoverysvc.RecordVisitResponse](t, env).VisitID)

	var n int64
	require.NoError(t, database.Model(&db.Notification{}).
		Where("receiver = ? AND entity_type = ?", db.FixtureD, "profile_view").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestListBlocksReportsAndVisits(t *testing.T) {
	h, _ := setupRouter(t)

	code, _ := do(t, h, http.MethodPost, "/profiles/"+db.FixtureD+"/block", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureE+"/report", db.FixtureC, `{"reason":"spam"}`)
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureC+"/visits", db.FixtureD, "")
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, h, http.MethodPost, "/profiles/"+db.FixtureC+"/visits", db.FixtureE, "")
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, h, http.MethodGet, "/profiles/blocks", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	blocks := decode[discoverysvc.ListBlocksResponse](t, env)
	require.Len(t, blocks.Blocks, 1)
	assert.Equal(t, db.FixtureD, blocks.Blocks[0].UserID)

	code, env = do(t, h, http.MethodGet, "/profiles/reports", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	reports := decode[discoverysvc.ListReportsResponse](t, env)
	require.Len(t, reports.Reports, 1)
	assert.Equal(t, db.FixtureE, reports.Reports[0].UserID)
	assert.Equal(t, "spam", reports.Reports[0].Reason)

	code, env = do(t, h, http.MethodGet, "/profiles/visits", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	visits := decode[discoverysvc.ListVisitsResponse](t, env)
	assert.ElementsMatch(t, []string{db.FixtureD, db.FixtureE},
		lo.Map(visits.Visits, func(v discoverysvc.Visit, _ int) string { return v.VisitorID }))

	code, env = do(t, h, http.MethodGet, "/profiles/visits?limit=1", db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[discoverysvc.ListVisitsResponse](t, env).Visits, 1)

	code, _ = do(t, h, http.MethodGet, "/profiles/visits?limit=500", db.FixtureC, "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodGet, "/profiles/blocks", "", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateProfileIsAtomic(t *testing.T) {
	h, _ := setupRouter(t)

	pics := lo.Times(5, func(i int) string { return fmt.Sprintf(`"https://img.example.com/%d.jpg"`, i) })
	code, _ := do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{"add_pictures":[`+strings.Join(pics, ",")+`]}`)
	require.Equal(t, http.StatusOK, code)

	code, _ = do(t, h, http.MethodPatch, "/profiles", db.FixtureC, `{"age":44,"add_pictures":["https://img.example.com/x.jpg"]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := do(t, h, http.MethodGet, "/profiles/"+db.FixtureC, db.FixtureC, "")
	require.Equal(t, http.StatusOK, code)
	got := decode[discoverysvc.GetProfileResponse](t, env)
	assert.NotEqual(t, 44, got.Profile.Age)
	assert.Len(t, got.Profile.Pictures, 5)
}
