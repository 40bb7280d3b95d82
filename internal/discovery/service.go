// Package discovery computes the effective filter and sort of a profile search
// and runs it against the profile store.
package discovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/oggyb/discovery/internal/db"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/metrics"
	"github.com/oggyb/discovery/internal/query"
	"github.com/oggyb/discovery/internal/repository"
)

// ProfileStore is the part of the profile repository a search needs.
type ProfileStore interface {
	FindOne(ctx context.Context, userID string) (*db.Profile, error)
	Search(ctx context.Context, scope repository.SearchScope, where query.Predicate, order query.Order) ([]db.Profile, error)
}

// SearchRequest carries the caller id and its optional overrides.
type SearchRequest struct {
	UserID   string
	FilterBy query.FilterBy
	SortBy   query.SortBy
	Limit    int
	Offset   int
}

// Plan is the effective, bound and compiled form of a request.
type Plan struct {
	FilterBy  query.FilterBy
	SortBy    query.SortBy
	Predicate query.Predicate
	Order     query.Order
}

type Service struct {
	store    ProfileStore
	compiler *query.Compiler
	policy   Policy
	log      *slog.Logger
}

func NewService(store ProfileStore, compiler *query.Compiler, policy Policy, log *slog.Logger) *Service {
	if compiler == nil {
		compiler = query.NewCompiler(query.MySQL)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, compiler: compiler, policy: policy, log: log.With("component", "discovery")}
}

// Search returns the candidates for req.UserID.
//
// Behavior:
//   - Reads the caller's profile once; absent -> repository.ErrProfileNotFound.
//   - Merges defaults with overrides, binds the caller's point and id, compiles.
//   - Runs one store search scoped to the caller (blocked profiles hidden).
//   - Compiler and store errors are returned unchanged.
//
// Example:
//
//	svc.Search(ctx, discovery.SearchRequest{UserID: me, FilterBy: query.FilterBy{}.Where("age", ...)})
func (s *Service) Search(ctx context.Context, req SearchRequest) (out []db.Profile, err error) {
	start := time.Now()
	defer func() {
		kind := ""
		if err != nil {
			kind = svcErr.KindOf(err).String()
		}
		metrics.ObserveSearch(start, kind)
	}()

	self, err := s.store.FindOne(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	plan, err := s.Plan(self, req)
	if err != nil {
		s.log.Debug("search rejected", "user_id", req.UserID, "err", err)
		return nil, err
	}
	s.log.Debug("search compiled",
		"user_id", req.UserID,
		"where", plan.Predicate.SQL,
		"order", plan.Order.SQL,
	)

	scope := repository.SearchScope{ViewerID: self.UserID, Limit: req.Limit, Offset: req.Offset}
	return s.store.Search(ctx, scope, plan.Predicate, plan.Order)
}

// Plan builds the effective documents for self and compiles them without touching the store.
func (s *Service) Plan(self *db.Profile, req SearchRequest) (Plan, error) {
	ref := reference(self)

	filter := query.MergeFilter(DefaultFilter(self, s.policy), req.FilterBy).Bind(ref)
	sortBy := query.MergeSort(DefaultSort(self, s.policy), req.SortBy).Bind(ref)

	pred, err := s.compiler.Filter(filter)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{FilterBy: filter, SortBy: sortBy, Predicate: pred}
	if len(sortBy) == 0 {
		return plan, nil
	}
	if plan.Order, err = s.compiler.Sort(sortBy); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Policy returns the policy the service was built with.
func (s *Service) Policy() Policy { return s.policy }
