package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/utils/pagination"
)

// LikeRepository provides data access for likes and matches.
// Inside WithTx every method runs on the same transaction.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// WithTx runs fn inside one transaction. fn's error rolls everything back.
//
// Example:
//
//	err := repo.WithTx(ctx, func(tx *LikeRepository) error {
//	    if _, err := tx.LockProfiles(ctx, a, b); err != nil { return err }
//	    _, err := tx.AddLike(ctx, a, b)
//	    return err
//	})
func (r *LikeRepository) WithTx(ctx context.Context, fn func(tx *LikeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LikeRepository{db: tx})
	})
}

// LockProfiles takes a row lock on every given profile, in ascending id order.
//
// Behavior:
//   - Duplicate ids are locked once.
//   - A missing profile → ErrProfileNotFound.
//   - Every writer of a pair locks the same rows in the same order, so two writers on one
//     pair serialize instead of deadlocking.
func (r *LikeRepository) LockProfiles(ctx context.Context, userIDs ...string) ([]db.Profile, error) {
	const op = "repository.like.LockProfiles"

	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	out := make([]db.Profile, 0, len(ids))
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		var p db.Profile
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", id).
			Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wrap(op, ErrProfileNotFound)
		}
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// AddLike inserts liker → liked.
//
// Behavior:
//   - Returns inserted=false when the like already exists (no-op).
func (r *LikeRepository) AddLike(ctx context.Context, liker, liked string) (bool, error) {
	const op = "repository.like.AddLike"

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Like{LikerUserID: liker, LikedUserID: liked})
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// RemoveLike deletes liker → liked. Returns removed=false if there was none.
func (r *LikeRepository) RemoveLike(ctx context.Context, liker, liked string) (bool, error) {
	const op = "repository.like.RemoveLike"

	res := r.db.WithContext(ctx).
		Where("liker_user_id = ? AND liked_user_id = ?", liker, liked).
		Delete(&db.Like{})
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindLike returns liker → liked or ErrLikeNotFound.
func (r *LikeRepository) FindLike(ctx context.Context, liker, liked string) (*db.Like, error) {
	const op = "repository.like.FindLike"

	var l db.Like
	err := r.db.WithContext(ctx).
		Where("liker_user_id = ? AND liked_user_id = ?", liker, liked).
		Take(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(op, ErrLikeNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return &l, nil
}

// LockLike is a locking existence check of liker → liked.
func (r *LikeRepository) LockLike(ctx context.Context, liker, liked string) (bool, error) {
	const op = "repository.like.LockLike"

	var likes []db.Like
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("liker_user_id = ? AND liked_user_id = ?", liker, liked).
		Limit(1).
		Find(&likes).Error
	if err != nil {
		return false, wrap(op, err)
	}
	return len(likes) > 0, nil
}

// FindLikes returns the outgoing likes of liker, newest first.
func (r *LikeRepository) FindLikes(ctx context.Context, liker string) ([]db.Like, error) {
	const op = "repository.like.FindLikes"

	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liker_user_id = ?", liker).
		Order("created_at DESC, liked_user_id ASC").
		Find(&likes).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return likes, nil
}

// FindMatches returns the matches userID takes part in.
//
// Behavior:
//   - Only matches whose two likes still exist are returned.
//   - Ordered by match_time DESC.
func (r *LikeRepository) FindMatches(ctx context.Context, userID string) ([]db.Match, error) {
	const op = "repository.like.FindMatches"

	var matches []db.Match
	err := r.db.WithContext(ctx).
		Table("matches m").
		Where("m.user_low = ? OR m.user_high = ?", userID, userID).
		Where("EXISTS (SELECT 1 FROM likes l WHERE l.liker_user_id = m.user_low AND l.liked_user_id = m.user_high)").
		Where("EXISTS (SELECT 1 FROM likes l WHERE l.liker_user_id = m.user_high AND l.liked_user_id = m.user_low)").
		Order("m.match_time DESC, m.user_low ASC, m.user_high ASC").
		Find(&matches).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return matches, nil
}

// FindMatch returns the match of the unordered pair {a, b} or ErrMatchNotFound.
func (r *LikeRepository) FindMatch(ctx context.Context, a, b string) (*db.Match, error) {
	const op = "repository.like.FindMatch"

	low, high := db.OrderedPair(a, b)
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(op, ErrMatchNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return &m, nil
}

// LockMatch is a locking existence check of the match of {a, b}.
func (r *LikeRepository) LockMatch(ctx context.Context, a, b string) (bool, error) {
	const op = "repository.like.LockMatch"

	low, high := db.OrderedPair(a, b)
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_low = ? AND user_high = ?", low, high).
		Limit(1).
		Find(&matches).Error
	if err != nil {
		return false, wrap(op, err)
	}
	return len(matches) > 0, nil
}

// CreateMatch records that matcher's like completed the pair with matched.
//
// Behavior:
//   - The pair key is unordered; a second match for it → ErrDuplicateMatch (Conflict).
func (r *LikeRepository) CreateMatch(ctx context.Context, matcher, matched string, at time.Time) (*db.Match, error) {
	const op = "repository.like.CreateMatch"

	low, high := db.OrderedPair(matcher, matched)
	m := db.Match{
		UserLow:       low,
		UserHigh:      high,
		MatcherUserID: matcher,
		MatchedUserID: matched,
		BothMatched:   true,
		MatchTime:     at,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return nil, wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap(op, ErrDuplicateMatch)
	}
	return &m, nil
}

// DeleteMatch removes the match of {a, b}. Returns removed=false if there was none.
func (r *LikeRepository) DeleteMatch(ctx context.Context, a, b string) (bool, error) {
	const op = "repository.like.DeleteMatch"

	low, high := db.OrderedPair(a, b)
	res := r.db.WithContext(ctx).
		Where("user_low = ? AND user_high = ?", low, high).
		Delete(&db.Match{})
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IncrementFame adds delta to the fame rating in one UPDATE (no read-modify-write).
func (r *LikeRepository) IncrementFame(ctx context.Context, userID string, delta int) error {
	const op = "repository.like.IncrementFame"

	res := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		UpdateColumn("fame_rating", gorm.Expr("fame_rating + ?", delta))
	if res.Error != nil {
		return wrap(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap(op, ErrProfileNotFound)
	}
	return nil
}

// likersQuery selects incoming likes of likedID, hiding likers the user blocked.
func (r *LikeRepository) likersQuery(ctx context.Context, likedID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.liked_user_id = ?", likedID).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM blocked_users b
				WHERE b.blocker_user_id = ?
				  AND b.blocked_user_id = l.liker_user_id
			)`, likedID)
}

// ListLikers returns the users who liked likedID.
//
// Behavior:
//   - Excludes likers that likedID blocked.
//   - Ordered by created_at DESC, liker_user_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.ListLikers(ctx, me, nil, 20) // first 20 people who liked me
func (r *LikeRepository) ListLikers(
	ctx context.Context,
	likedID string,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	return r.pageLikers(ctx, "repository.like.ListLikers", r.likersQuery(ctx, likedID), paginationToken, limit)
}

// ListNewLikers is ListLikers minus the likers already liked back.
func (r *LikeRepository) ListNewLikers(
	ctx context.Context,
	likedID string,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	q := r.likersQuery(ctx, likedID).Where(`
		NOT EXISTS (
			SELECT 1 FROM likes back
			WHERE back.liker_user_id = l.liked_user_id
			  AND back.liked_user_id = l.liker_user_id
		)`)
	return r.pageLikers(ctx, "repository.like.ListNewLikers", q, paginationToken, limit)
}

func (r *LikeRepository) pageLikers(
	ctx context.Context,
	op string,
	q *gorm.DB,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	if limit <= 0 {
		return nil, nil, wrap(op, ErrInvalidPageLimit)
	}

	// decode cursor if provided
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, wrap(op, err)
	}

	q = q.Select("l.liker_user_id, l.liked_user_id, l.created_at").
		Order("l.created_at DESC, l.liker_user_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		q = q.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.liker_user_id < ?))",
			ts, ts, cursor.UserID,
		)
	}

	var likes []db.Like
	if err := q.Find(&likes).Error; err != nil {
		return nil, nil, wrap(op, err)
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			UserID:          last.LikerUserID,
			CreatedUnixNano: last.CreatedAt.UnixNano(),
		})
		nextToken = &token
		likes = likes[:limit]
	}
	return likes, nextToken, nil
}

// CountLikers returns how many users liked likedID (blocked likers excluded).
// Used in conjunction with the Redis cache (DB is fallback).
func (r *LikeRepository) CountLikers(ctx context.Context, likedID string) (int64, error) {
	const op = "repository.like.CountLikers"

	var count int64
	if err := r.likersQuery(ctx, likedID).Count(&count).Error; err != nil {
		return 0, wrap(op, err)
	}
	return count, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
