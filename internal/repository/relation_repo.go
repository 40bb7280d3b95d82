package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/discovery/internal/db"
)

// RelationRepository stores blocks and reports. Neither touches likes or matches.
type RelationRepository struct {
	db *gorm.DB
}

// NewRelationRepository creates a new repository bound to the given DB connection.
func NewRelationRepository(database *gorm.DB) *RelationRepository {
	return &RelationRepository{db: database}
}

// Block records blocker → blocked. Returns created=false if it already existed.
func (r *RelationRepository) Block(ctx context.Context, blocker, blocked string) (bool, error) {
	const op = "repository.relation.Block"

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.BlockedUser{BlockerUserID: blocker, BlockedUserID: blocked})
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unblock removes blocker → blocked. Returns removed=false if there was none.
func (r *RelationRepository) Unblock(ctx context.Context, blocker, blocked string) (bool, error) {
	const op = "repository.relation.Unblock"

	res := r.db.WithContext(ctx).
		Where("blocker_user_id = ? AND blocked_user_id = ?", blocker, blocked).
		Delete(&db.BlockedUser{})
	if res.Error != nil {
		return false, wrap(op, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// IsBlocked reports whether blocker blocked blocked.
func (r *RelationRepository) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	const op = "repository.relation.IsBlocked"

	var n int64
	err := r.db.WithContext(ctx).
		Model(&db.BlockedUser{}).
		Where("blocker_user_id = ? AND blocked_user_id = ?", blocker, blocked).
		Count(&n).Error
	return n > 0, wrap(op, err)
}

// ListBlocks returns who blocker blocked, newest first.
func (r *RelationRepository) ListBlocks(ctx context.Context, blocker string) ([]db.BlockedUser, error) {
	const op = "repository.relation.ListBlocks"

	var out []db.BlockedUser
	err := r.db.WithContext(ctx).
		Where("blocker_user_id = ?", blocker).
		Order("created_at DESC, blocked_user_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}

// Report records reporter → reported. Reporting again refreshes the reason.
func (r *RelationRepository) Report(ctx context.Context, reporter, reported, reason string) error {
	const op = "repository.relation.Report"

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reporter_user_id"}, {Name: "reported_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"reason"}),
		}).
		Create(&db.UserReport{ReporterUserID: reporter, ReportedUserID: reported, Reason: reason}).Error
	return wrap(op, err)
}

// ListReports returns what reporter reported, newest first.
func (r *RelationRepository) ListReports(ctx context.Context, reporter string) ([]db.UserReport, error) {
	const op = "repository.relation.ListReports"

	var out []db.UserReport
	err := r.db.WithContext(ctx).
		Where("reporter_user_id = ?", reporter).
		Order("created_at DESC, reported_user_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}
