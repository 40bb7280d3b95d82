// Package match implements likes, reciprocal matching and the user relations around them.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/db"
	svcErr "github.com/oggyb/discovery/internal/errors"
	"github.com/oggyb/discovery/internal/metrics"
	"github.com/oggyb/discovery/internal/notify"
	"github.com/oggyb/discovery/internal/repository"
)

// LikeCounter caches received-like counts. *cache.RedisCache implements it.
type LikeCounter interface {
	GetLikeCount(ctx context.Context, userID string) (int64, bool, error)
	UpdateLikeCount(ctx context.Context, userID string, count int64) error
	InvalidateLikeCount(ctx context.Context, userID string) error
}

// LikeResult reports what a Like call changed.
type LikeResult struct {
	Inserted bool      // false for an idempotent re-like
	Matched  bool      // the like completed a pair
	Match    *db.Match // set when Matched
}

type UnlikeResult struct {
	Removed   bool
	Unmatched bool
}

// Engine owns the like/unlike state machine of each user pair.
type Engine struct {
	likes     *repository.LikeRepository
	relations *repository.RelationRepository
	visits    *repository.VisitRepository
	profiles  *repository.ProfileRepository
	counter   LikeCounter
	sink      notify.Sink
	log       *slog.Logger
	now       func() time.Time
}

// NewEngine builds the engine on database. counter and sink may be nil.
func NewEngine(database *gorm.DB, counter LikeCounter, sink notify.Sink, log *slog.Logger) *Engine {
	if sink == nil {
		sink = notify.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		likes:     repository.NewLikeRepository(database),
		relations: repository.NewRelationRepository(database),
		visits:    repository.NewVisitRepository(database),
		profiles:  repository.NewProfileRepository(database),
		counter:   counter,
		sink:      sink,
		log:       log.With("component", "match"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Like records liker -> liked and detects reciprocity.
//
// Behavior (one transaction):
//   - Locks both profiles in id order; a missing one -> repository.ErrProfileNotFound.
//   - liker == liked -> ErrSelfLike.
//   - An existing like is a no-op: no fame change, no notification.
//   - A new like adds exactly 1 to liked's fame rating.
//   - If liked -> liker exists the match of the pair is created. A match already
//     present -> ErrConflict and the whole call rolls back.
//
// Notifications go out after commit: like to liked, match to both users.
func (e *Engine) Like(ctx context.Context, liker, liked string) (LikeResult, error) {
	var res LikeResult

	err := e.likes.WithTx(ctx, func(tx *repository.LikeRepository) error {
		if _, err := tx.LockProfiles(ctx, liker, liked); err != nil {
			return err
		}
		if liker == liked {
			return ErrSelfLike
		}

		inserted, err := tx.AddLike(ctx, liker, liked)
		if err != nil || !inserted {
			return err
		}
		res.Inserted = true

		if err := tx.IncrementFame(ctx, liked, 1); err != nil {
			return err
		}

		reciprocal, err := tx.LockLike(ctx, liked, liker)
		if err != nil || !reciprocal {
			return err
		}

		exists, err := tx.LockMatch(ctx, liker, liked)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("match.Like %s/%s: %w", liker, liked, ErrConflict)
		}

		m, err := tx.CreateMatch(ctx, liker, liked, e.now())
		if errors.Is(err, repository.ErrDuplicateMatch) {
			return fmt.Errorf("match.Like %s/%s: %w", liker, liked, ErrConflict)
		}
		if err != nil {
			return err
		}
		res.Matched, res.Match = true, m
		return nil
	})
	if err != nil {
		e.failed("like", liker, liked, err)
		metrics.LikesTotal.WithLabelValues("error").Inc()
		return LikeResult{}, err
	}

	if !res.Inserted {
		metrics.LikesTotal.WithLabelValues("idempotent").Inc()
		return res, nil
	}
	metrics.LikesTotal.WithLabelValues("inserted").Inc()
	e.invalidateCount(ctx, liked)

	ctx = context.WithoutCancel(ctx)
	notify.Deliver(ctx, e.sink, e.log, notify.NewEvent(notify.TypeLike, liker, liker, liked))
	if res.Matched {
		metrics.MatchesCreated.Inc()
		e.log.Info("match created", "matcher", liker, "matched", liked)
		notify.Deliver(ctx, e.sink, e.log, notify.NewEvent(notify.TypeMatch, liker, liker, liker, liked))
	}
	return res, nil
}

// Unlike removes liker -> liked and the pair's match if any.
// The fame rating of liked is left unchanged.
func (e *Engine) Unlike(ctx context.Context, liker, liked string) (UnlikeResult, error) {
	var res UnlikeResult

	err := e.likes.WithTx(ctx, func(tx *repository.LikeRepository) error {
		if _, err := tx.LockProfiles(ctx, liker, liked); err != nil {
			return err
		}
		if liker == liked {
			return ErrSelfLike
		}

		var err error
		if res.Removed, err = tx.RemoveLike(ctx, liker, liked); err != nil {
			return err
		}
		res.Unmatched, err = tx.DeleteMatch(ctx, liker, liked)
		return err
	})
	if err != nil {
		e.failed("unlike", liker, liked, err)
		return UnlikeResult{}, err
	}

	if res.Removed {
		e.invalidateCount(ctx, liked)
	}
	if res.Unmatched {
		metrics.MatchesRemoved.Inc()
		e.log.Info("match removed", "by", liker, "counterpart", liked)
		notify.Deliver(context.WithoutCancel(ctx), e.sink, e.log, notify.NewEvent(notify.TypeUnmatch, liker, liker, liked))
	}
	return res, nil
}

// FindMatches returns the matches of userID whose two likes still exist.
func (e *Engine) FindMatches(ctx context.Context, userID string) ([]db.Match, error) {
	return e.likes.FindMatches(ctx, userID)
}

// FindLikes returns the outgoing likes of userID.
func (e *Engine) FindLikes(ctx context.Context, userID string) ([]db.Like, error) {
	return e.likes.FindLikes(ctx, userID)
}

// ListLikers pages through the incoming likes of userID.
// onlyNew hides likers userID already liked back.
func (e *Engine) ListLikers(ctx context.Context, userID string, token *string, limit int, onlyNew bool) ([]db.Like, *string, error) {
	if onlyNew {
		return e.likes.ListNewLikers(ctx, userID, token, limit)
	}
	return e.likes.ListLikers(ctx, userID, token, limit)
}

// CountLikers returns how many users liked userID.
// Cache-first: a miss or cache failure falls back to the store and refills the cache.
func (e *Engine) CountLikers(ctx context.Context, userID string) (int64, error) {
	if e.counter != nil {
		n, hit, err := e.counter.GetLikeCount(ctx, userID)
		switch {
		case err != nil:
			metrics.CacheLookups.WithLabelValues("error").Inc()
			e.log.Warn("like count cache read failed", "user_id", userID, "err", err)
		case hit:
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return n, nil
		default:
			metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
	}

	n, err := e.likes.CountLikers(ctx, userID)
	if err != nil {
		return 0, err
	}
	if e.counter != nil {
		if err := e.counter.UpdateLikeCount(ctx, userID, n); err != nil {
			e.log.Warn("like count cache write failed", "user_id", userID, "err", err)
		}
	}
	return n, nil
}

// Block hides blocked from blocker's searches. Likes and matches are kept.
func (e *Engine) Block(ctx context.Context, blocker, blocked string) (bool, error) {
	if err := e.checkTarget(ctx, blocker, blocked); err != nil {
		return false, err
	}
	created, err := e.relations.Block(ctx, blocker, blocked)
	if err != nil {
		return false, err
	}
	// blocked likers are not counted
	e.invalidateCount(ctx, blocker)
	return created, nil
}

func (e *Engine) Unblock(ctx context.Context, blocker, blocked string) (bool, error) {
	if blocker == blocked {
		return false, ErrSelfRelation
	}
	removed, err := e.relations.Unblock(ctx, blocker, blocked)
	if err != nil {
		return false, err
	}
	e.invalidateCount(ctx, blocker)
	return removed, nil
}

// ListBlocks returns the users blocker has blocked.
func (e *Engine) ListBlocks(ctx context.Context, blocker string) ([]db.BlockedUser, error) {
	return e.relations.ListBlocks(ctx, blocker)
}

// ListReports returns the reports reporter has filed.
func (e *Engine) ListReports(ctx context.Context, reporter string) ([]db.UserReport, error) {
	return e.relations.ListReports(ctx, reporter)
}

// Report files, or replaces, reporter's report about reported.
func (e *Engine) Report(ctx context.Context, reporter, reported, reason string) error {
	if reason == "" {
		return ErrEmptyReason
	}
	if err := e.checkTarget(ctx, reporter, reported); err != nil {
		return err
	}
	return e.relations.Report(ctx, reporter, reported, reason)
}

// RecordVisit stores a profile view and notifies the visited user.
func (e *Engine) RecordVisit(ctx context.Context, visitor, visited string) (*db.Visit, error) {
	if err := e.checkTarget(ctx, visitor, visited); err != nil {
		return nil, err
	}
	v, err := e.visits.Create(ctx, visitor, visited)
	if err != nil {
		return nil, err
	}
	notify.Deliver(context.WithoutCancel(ctx), e.sink, e.log, notify.NewEvent(notify.TypeProfileView, visitor, visitor, visited))
	return v, nil
}

// ListVisits returns the latest views of userID's profile.
func (e *Engine) ListVisits(ctx context.Context, userID string, limit int) ([]db.Visit, error) {
	return e.visits.ListVisits(ctx, userID, limit)
}

// checkTarget rejects self-targeting and unknown target profiles.
func (e *Engine) checkTarget(ctx context.Context, actor, target string) error {
	if actor == target {
		return ErrSelfRelation
	}
	_, err := e.profiles.FindOne(ctx, target)
	return err
}

func (e *Engine) invalidateCount(ctx context.Context, userID string) {
	if e.counter == nil {
		return
	}
	if err := e.counter.InvalidateLikeCount(ctx, userID); err != nil {
		e.log.Warn("like count cache invalidation failed", "user_id", userID, "err", err)
	}
}

// failed logs a rolled-back transition. Conflicts are invariant violations.
func (e *Engine) failed(action, liker, liked string, err error) {
	if errors.Is(err, svcErr.Conflict) {
		metrics.MatchConflicts.Inc()
		e.log.Error("match invariant violated", "action", action, "liker", liker, "liked", liked, "err", err)
		return
	}
	e.log.Debug(action+" failed", "liker", liker, "liked", liked, "err", err)
}
