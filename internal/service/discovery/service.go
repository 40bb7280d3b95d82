package discovery

import (
	"context"

	"github.com/samber/lo"

	"github.com/oggyb/discovery/internal/app"
	"github.com/oggyb/discovery/internal/db"
	orchestrator "github.com/oggyb/discovery/internal/discovery"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/logger"
	"github.com/oggyb/discovery/internal/query"
	"github.com/oggyb/discovery/internal/repository"
	"github.com/oggyb/discovery/internal/validation"
)

const defaultLikersPage = 20

// Service implements the DiscoveryService gRPC API on top of the discovery
// orchestrator and the match engine held by AppContext.
type Service struct {
	appCtx *app.AppContext
}

func NewDiscoveryService(appCtx *app.AppContext) *Service {
	return &Service{appCtx: appCtx}
}

// fail logs and maps err to a gRPC status.
func (s *Service) fail(ctx context.Context, method string, err error) error {
	logger.FromContext(ctx, s.appCtx.Logger).Debug(method+" failed", "err", err)
	return svcErr.Map(err)
}

// SearchProfiles runs a discovery search for the caller.
//
// Behavior:
//   - filter_by and sort_by are JSON documents; field order is preserved.
//   - Missing documents fall back to the configured defaults.
//   - DSL errors map to InvalidArgument, an unknown caller to NotFound.
//
// Example:
//
//	svc.SearchProfiles(ctx, &SearchProfilesRequest{UserID: me, FilterBy: `{"age":{"$gte":25}}`})
func (s *Service) SearchProfiles(ctx context.Context, req *SearchProfilesRequest) (*SearchProfilesResponse, error) {
	s.appCtx.Logger.Debug("SearchProfiles called", "user_id", req.UserID, "filter_by", req.FilterBy, "sort_by", req.SortBy)

	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	filter, err := query.ParseFilterBy([]byte(req.FilterBy))
	if err != nil {
		return nil, s.fail(ctx, "SearchProfiles", err)
	}
	sortBy, err := query.ParseSortBy([]byte(req.SortBy))
	if err != nil {
		return nil, s.fail(ctx, "SearchProfiles", err)
	}

	profiles, err := s.appCtx.Discovery.Search(ctx, orchestrator.SearchRequest{
		UserID:   req.UserID,
		FilterBy: filter,
		SortBy:   sortBy,
		Limit:    req.Limit,
		Offset:   req.Offset,
	})
	if err != nil {
		return nil, s.fail(ctx, "SearchProfiles", err)
	}
	return &SearchProfilesResponse{Profiles: ProfilesFromModels(profiles)}, nil
}

func (s *Service) GetProfile(ctx context.Context, req *GetProfileRequest) (*GetProfileResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	p, err := s.appCtx.Profiles.FindOne(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "GetProfile", err)
	}
	return &GetProfileResponse{Profile: ProfileFromModel(*p)}, nil
}

// UpdateProfile applies scalar changes first, then interest and picture changes.
func (s *Service) UpdateProfile(ctx context.Context, req *UpdateProfileRequest) (*UpdateProfileResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	p, err := ApplyUpdate(ctx, s.appCtx.Profiles, req)
	if err != nil {
		return nil, s.fail(ctx, "UpdateProfile", err)
	}
	return &UpdateProfileResponse{Profile: ProfileFromModel(*p)}, nil
}

// ApplyUpdate runs the steps of an already validated req in one transaction
// and returns the profile after the last one. A failing step rolls back the
// ones before it. An update with nothing to change fails with
// repository.ErrEmptyUpdate.
func ApplyUpdate(ctx context.Context, profiles *repository.ProfileRepository, req *UpdateProfileRequest) (*db.Profile, error) {
	upd := repository.ProfileUpdate{
		Gender:           req.Gender,
		SexualPreference: req.SexualPreference,
		Age:              req.Age,
		Biography:        req.Biography,
		ProfilePicture:   req.ProfilePicture,
		GPSLatitude:      req.Latitude,
		GPSLongitude:     req.Longitude,
	}
	hasScalar := upd != (repository.ProfileUpdate{})
	hasSets := len(req.AddInterests)+len(req.RemoveInterests)+len(req.AddPictures)+len(req.RemovePictures) > 0
	if !hasScalar && !hasSets {
		return nil, repository.ErrEmptyUpdate
	}

	var p *db.Profile
	err := profiles.WithTx(ctx, func(tx *repository.ProfileRepository) error {
		steps := []func() (*db.Profile, error){}
		if hasScalar {
			steps = append(steps, func() (*db.Profile, error) { return tx.Update(ctx, req.UserID, upd) })
		}
		if len(req.AddInterests) > 0 {
			steps = append(steps, func() (*db.Profile, error) { return tx.AddInterests(ctx, req.UserID, req.AddInterests) })
		}
		if len(req.RemoveInterests) > 0 {
			steps = append(steps, func() (*db.Profile, error) { return tx.RemoveInterests(ctx, req.UserID, req.RemoveInterests) })
		}
		if len(req.AddPictures) > 0 {
			steps = append(steps, func() (*db.Profile, error) { return tx.AddPictures(ctx, req.UserID, req.AddPictures) })
		}
		if len(req.RemovePictures) > 0 {
			steps = append(steps, func() (*db.Profile, error) { return tx.RemovePictures(ctx, req.UserID, req.RemovePictures) })
		}

		for _, step := range steps {
			var err error
			if p, err = step(); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Like records actor -> recipient and reports whether it completed a match.
//
// Example:
//
//	svc.Like(ctx, &PairRequest{ActorUserID: a, RecipientUserID: b})
func (s *Service) Like(ctx context.Context, req *PairRequest) (*LikeResponse, error) {
	s.appCtx.Logger.Debug("Like called", "actor", req.ActorUserID, "recipient", req.RecipientUserID)

	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	res, err := s.appCtx.Engine.Like(ctx, req.ActorUserID, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "Like", err)
	}
	resp := &LikeResponse{Inserted: res.Inserted, MutualLikes: res.Matched}
	if res.Match != nil {
		resp.UnixTimestamp = uint64(res.Match.MatchTime.UnixMilli())
	}
	return resp, nil
}

func (s *Service) Unlike(ctx context.Context, req *PairRequest) (*UnlikeResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	res, err := s.appCtx.Engine.Unlike(ctx, req.ActorUserID, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "Unlike", err)
	}
	return &UnlikeResponse{Removed: res.Removed, Unmatched: res.Unmatched}, nil
}

func (s *Service) ListMatches(ctx context.Context, req *UserRequest) (*ListMatchesResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	matches, err := s.appCtx.Engine.FindMatches(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListMatches", err)
	}
	return &ListMatchesResponse{
		Matches: lo.Map(matches, func(m db.Match, _ int) Match { return MatchFromModel(req.UserID, m) }),
	}, nil
}

func (s *Service) ListLikes(ctx context.Context, req *UserRequest) (*ListLikesResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	likes, err := s.appCtx.Engine.FindLikes(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListLikes", err)
	}
	return &ListLikesResponse{
		Likes: lo.Map(likes, func(l db.Like, _ int) Like {
			return Like{UserID: l.LikedUserID, UnixTimestamp: uint64(l.CreatedAt.UnixMilli())}
		}),
	}, nil
}

// ListLikedYou returns the users who liked the recipient.
//
// Behavior:
//   - Likers the recipient blocked are hidden.
//   - only_new also hides likers the recipient liked back.
//   - Cursor-based pagination with pagination_token; limit defaults to 20.
func (s *Service) ListLikedYou(ctx context.Context, req *ListLikedYouRequest) (*ListLikedYouResponse, error) {
	s.appCtx.Logger.Debug("ListLikedYou called", "recipient", req.RecipientUserID, "token", lo.FromPtr(req.PaginationToken))

	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultLikersPage
	}

	likes, next, err := s.appCtx.Engine.ListLikers(ctx, req.RecipientUserID, req.PaginationToken, limit, req.OnlyNew)
	if err != nil {
		return nil, s.fail(ctx, "ListLikedYou", err)
	}
	return &ListLikedYouResponse{
		Likers: lo.Map(likes, func(l db.Like, _ int) Liker {
			return Liker{ActorID: l.LikerUserID, UnixTimestamp: uint64(l.CreatedAt.UnixMilli())}
		}),
		NextPaginationToken: next,
	}, nil
}

// CountLikedYou returns how many users liked the recipient (cache-first).
func (s *Service) CountLikedYou(ctx context.Context, req *UserRequest) (*CountLikedYouResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	n, err := s.appCtx.Engine.CountLikers(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "CountLikedYou", err)
	}
	return &CountLikedYouResponse{Count: uint64(n)}, nil
}

func (s *Service) Block(ctx context.Context, req *PairRequest) (*RelationResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	changed, err := s.appCtx.Engine.Block(ctx, req.ActorUserID, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "Block", err)
	}
	return &RelationResponse{Changed: changed}, nil
}

func (s *Service) Unblock(ctx context.Context, req *PairRequest) (*RelationResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	changed, err := s.appCtx.Engine.Unblock(ctx, req.ActorUserID, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "Unblock", err)
	}
	return &RelationResponse{Changed: changed}, nil
}

func (s *Service) Report(ctx context.Context, req *ReportRequest) (*ReportResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	if err := s.appCtx.Engine.Report(ctx, req.ActorUserID, req.RecipientUserID, req.Reason); err != nil {
		return nil, s.fail(ctx, "Report", err)
	}
	return &ReportResponse{}, nil
}

func (s *Service) RecordVisit(ctx context.Context, req *PairRequest) (*RecordVisitResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	v, err := s.appCtx.Engine.RecordVisit(ctx, req.ActorUserID, req.RecipientUserID)
	if err != nil {
		return nil, s.fail(ctx, "RecordVisit", err)
	}
	return &RecordVisitResponse{VisitID: v.ID, UnixTimestamp: uint64(v.CreatedAt.UnixMilli())}, nil
}

func (s *Service) ListBlocks(ctx context.Context, req *UserRequest) (*ListBlocksResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	rows, err := s.appCtx.Engine.ListBlocks(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListBlocks", err)
	}
	return &ListBlocksResponse{Blocks: BlocksFromModel(rows)}, nil
}

func (s *Service) ListReports(ctx context.Context, req *UserRequest) (*ListReportsResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	rows, err := s.appCtx.Engine.ListReports(ctx, req.UserID)
	if err != nil {
		return nil, s.fail(ctx, "ListReports", err)
	}
	return &ListReportsResponse{Reports: ReportsFromModel(rows)}, nil
}

// ListVisits returns who viewed the caller's profile, newest first.
func (s *Service) ListVisits(ctx context.Context, req *ListVisitsRequest) (*ListVisitsResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, svcErr.Map(err)
	}
	rows, err := s.appCtx.Engine.ListVisits(ctx, req.UserID, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, "ListVisits", err)
	}
	return &ListVisitsResponse{Visits: VisitsFromModel(rows)}, nil
}
