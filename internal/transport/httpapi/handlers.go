package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/samber/lo"

	"github.com/oggyb/discovery/internal/db"
	orchestrator "github.com/oggyb/discovery/internal/discovery"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/query"
	discoverysvc "github.com/oggyb/discovery/internal/service/discovery"
	"github.com/oggyb/discovery/internal/validation"
)

const defaultLikersPage = 20

// intParam reads an optional non-negative integer query parameter.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, svcErr.New(svcErr.Validation, name+" must be a non-negative integer")
	}
	return n, nil
}

// pair builds the actor/target request from the header and the path.
func pair(r *http.Request) discoverysvc.PairRequest {
	return discoverysvc.PairRequest{
		ActorUserID:     userFrom(r.Context()),
		RecipientUserID: chi.URLParam(r, "user_id"),
	}
}

// GET /profiles?filter_by=&sort_by=&limit=&offset=
func (h *Handler) searchProfiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := discoverysvc.SearchProfilesRequest{
		UserID:   userFrom(r.Context()),
		FilterBy: q.Get("filter_by"),
		SortBy:   q.Get("sort_by"),
	}
	var err error
	if req.Limit, err = intParam(r, "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Offset, err = intParam(r, "offset"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}

	filter, err := query.ParseFilterBy([]byte(req.FilterBy))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sortBy, err := query.ParseSortBy([]byte(req.SortBy))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	profiles, err := h.appCtx.Discovery.Search(r.Context(), orchestrator.SearchRequest{
		UserID:   req.UserID,
		FilterBy: filter,
		SortBy:   sortBy,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.SearchProfilesResponse{Profiles: discoverysvc.ProfilesFromModels(profiles)})
}

// GET /profiles/{user_id}
func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	req := discoverysvc.GetProfileRequest{UserID: chi.URLParam(r, "user_id")}
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.appCtx.Profiles.FindOne(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.GetProfileResponse{Profile: discoverysvc.ProfileFromModel(*p)})
}

// PATCH /profiles; the body may not change whose profile is updated.
func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req discoverysvc.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, svcErr.New(svcErr.Validation, "malformed JSON body"))
		return
	}
	req.UserID = userFrom(r.Context())
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := discoverysvc.ApplyUpdate(r.Context(), h.appCtx.Profiles, &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.UpdateProfileResponse{Profile: discoverysvc.ProfileFromModel(*p)})
}

func (h *Handler) listMatches(w http.ResponseWriter, r *http.Request) {
	me := userFrom(r.Context())
	matches, err := h.appCtx.Engine.FindMatches(r.Context(), me)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListMatchesResponse{
		Matches: lo.Map(matches, func(m db.Match, _ int) discoverysvc.Match { return discoverysvc.MatchFromModel(me, m) }),
	})
}

func (h *Handler) listLikes(w http.ResponseWriter, r *http.Request) {
	likes, err := h.appCtx.Engine.FindLikes(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListLikesResponse{
		Likes: lo.Map(likes, func(l db.Like, _ int) discoverysvc.Like {
			return discoverysvc.Like{UserID: l.LikedUserID, UnixTimestamp: uint64(l.CreatedAt.UnixMilli())}
		}),
	})
}

// GET /profiles/liked-you?only_new=&pagination_token=&limit=
func (h *Handler) listLikedYou(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := discoverysvc.ListLikedYouRequest{RecipientUserID: userFrom(r.Context())}
	if tok := q.Get("pagination_token"); tok != "" {
		req.PaginationToken = &tok
	}
	if raw := q.Get("only_new"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, svcErr.New(svcErr.Validation, "only_new must be a boolean"))
			return
		}
		req.OnlyNew = b
	}
	var err error
	if req.Limit, err = intParam(r, "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultLikersPage
	}

	likes, next, err := h.appCtx.Engine.ListLikers(r.Context(), req.RecipientUserID, req.PaginationToken, limit, req.OnlyNew)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListLikedYouResponse{
		Likers: lo.Map(likes, func(l db.Like, _ int) discoverysvc.Liker {
			return discoverysvc.Liker{ActorID: l.LikerUserID, UnixTimestamp: uint64(l.CreatedAt.UnixMilli())}
		}),
		NextPaginationToken: next,
	})
}

func (h *Handler) countLikedYou(w http.ResponseWriter, r *http.Request) {
	n, err := h.appCtx.Engine.CountLikers(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.CountLikedYouResponse{Count: uint64(n)})
}

func (h *Handler) like(w http.ResponseWriter, r *http.Request) {
	req := pair(r)
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.appCtx.Engine.Like(r.Context(), req.ActorUserID, req.RecipientUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := discoverysvc.LikeResponse{Inserted: res.Inserted, MutualLikes: res.Matched}
	if res.Match != nil {
		resp.UnixTimestamp = uint64(res.Match.MatchTime.UnixMilli())
	}
	writeOK(w, resp)
}

func (h *Handler) unlike(w http.ResponseWriter, r *http.Request) {
	req := pair(r)
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.appCtx.Engine.Unlike(r.Context(), req.ActorUserID, req.RecipientUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.UnlikeResponse{Removed: res.Removed, Unmatched: res.Unmatched})
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	req := pair(r)
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	changed, err := h.appCtx.Engine.Block(r.Context(), req.ActorUserID, req.RecipientUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.RelationResponse{Changed: changed})
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	req := pair(r)
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	changed, err := h.appCtx.Engine.Unblock(r.Context(), req.ActorUserID, req.RecipientUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.RelationResponse{Changed: changed})
}

// POST /profiles/{user_id}/report with {"reason": "..."}
func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, r, svcErr.New(svcErr.Validation, "malformed JSON body"))
		return
	}
	p := pair(r)
	req := discoverysvc.ReportRequest{ActorUserID: p.ActorUserID, RecipientUserID: p.RecipientUserID, Reason: body.Reason}
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.appCtx.Engine.Report(r.Context(), req.ActorUserID, req.RecipientUserID, req.Reason); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ReportResponse{})
}

func (h *Handler) recordVisit(w http.ResponseWriter, r *http.Request) {
	req := pair(r)
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.appCtx.Engine.RecordVisit(r.Context(), req.ActorUserID, req.RecipientUserID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.RecordVisitResponse{VisitID: v.ID, UnixTimestamp: uint64(v.CreatedAt.UnixMilli())})
}

// GET /profiles/blocks
func (h *Handler) listBlocks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.appCtx.Engine.ListBlocks(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListBlocksResponse{Blocks: discoverysvc.BlocksFromModel(rows)})
}

// GET /profiles/reports
func (h *Handler) listReports(w http.ResponseWriter, r *http.Request) {
	rows, err := h.appCtx.Engine.ListReports(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListReportsResponse{Reports: discoverysvc.ReportsFromModel(rows)})
}

// GET /profiles/visits?limit=
func (h *Handler) listVisits(w http.ResponseWriter, r *http.Request) {
	req := discoverysvc.ListVisitsRequest{UserID: userFrom(r.Context())}
	var err error
	if req.Limit, err = intParam(r, "limit"); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := validation.Struct(&req); err != nil {
		h.writeError(w, r, err)
		return
	}
	rows, err := h.appCtx.Engine.ListVisits(r.Context(), req.UserID, req.Limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeOK(w, discoverysvc.ListVisitsResponse{Visits: discoverysvc.VisitsFromModel(rows)})
}
