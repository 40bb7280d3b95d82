package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/db"
)

type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(database *gorm.DB) *VisitRepository {
	return &VisitRepository{db: database}
}

// Create records one view of visited by visitor.
func (r *VisitRepository) Create(ctx context.Context, visitor, visited string) (*db.Visit, error) {
	const op = "repository.visit.Create"

	v := db.Visit{VisitorUserID: visitor, VisitedUserID: visited}
	if err := r.db.WithContext(ctx).Create(&v).Error; err != nil {
		return nil, wrap(op, err)
	}
	return &v, nil
}

// ListVisits returns the latest views of visited. limit <= 0 means DefaultSearchLimit.
func (r *VisitRepository) ListVisits(ctx context.Context, visited string, limit int) ([]db.Visit, error) {
	const op = "repository.visit.ListVisits"

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var out []db.Visit
	err := r.db.WithContext(ctx).
		Where("visited_user_id = ?", visited).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}
