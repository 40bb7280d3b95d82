package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/discovery/internal/db"
	"github.com/oggyb/discovery/internal/query"
)

// DefaultSearchLimit caps a search page when the caller gives no limit.
const DefaultSearchLimit = 50

// ProfileRepository provides data access for profiles, their interests and pictures.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// WithTx runs fn against a repository bound to one transaction.
// Any error from fn rolls back every write made through tx.
func (r *ProfileRepository) WithTx(ctx context.Context, fn func(tx *ProfileRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ProfileRepository{db: tx})
	})
}

// SearchScope bounds a search independently of the DSL predicate.
type SearchScope struct {
	// ViewerID hides every profile the viewer blocked. Empty disables the check.
	ViewerID string
	Limit    int
	Offset   int
}

// ProfileUpdate carries a partial update. Nil fields are left untouched.
type ProfileUpdate struct {
	Gender           *string
	SexualPreference *string
	Age              *int
	Biography        *string
	ProfilePicture   *string
	GPSLatitude      *float64
	GPSLongitude     *float64
}

func (u ProfileUpdate) columns() map[string]any {
	cols := map[string]any{}
	if u.Gender != nil {
		cols["gender"] = *u.Gender
	}
	if u.SexualPreference != nil {
		cols["sexual_preference"] = *u.SexualPreference
	}
	if u.Age != nil {
		cols["age"] = *u.Age
	}
	if u.Biography != nil {
		cols["biography"] = *u.Biography
	}
	if u.ProfilePicture != nil {
		cols["profile_picture"] = *u.ProfilePicture
	}
	if u.GPSLatitude != nil {
		cols["gps_latitude"] = *u.GPSLatitude
	}
	if u.GPSLongitude != nil {
		cols["gps_longitude"] = *u.GPSLongitude
	}
	return cols
}

// FindOne loads a profile with its interests and pictures.
//
// Behavior:
//   - Missing profile → ErrProfileNotFound (NotFound kind).
func (r *ProfileRepository) FindOne(ctx context.Context, userID string) (*db.Profile, error) {
	const op = "repository.profile.FindOne"

	var p db.Profile
	err := r.db.WithContext(ctx).
		Preload("Interests", func(tx *gorm.DB) *gorm.DB { return tx.Order("interest") }).
		Preload("Pictures", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at") }).
		Where("user_id = ?", userID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, wrap(op, ErrProfileNotFound)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	return &p, nil
}

// Search runs a compiled predicate/order against profiles.
//
// Behavior:
//   - where is required; order may be empty.
//   - profiles.user_id is always the last sort key so pages are stable.
//   - Interests are preloaded.
//
// Example:
//
//	p, _ := compiler.Filter(f)
//	repo.Search(ctx, SearchScope{ViewerID: me}, p, query.Order{})
func (r *ProfileRepository) Search(
	ctx context.Context,
	scope SearchScope,
	where query.Predicate,
	order query.Order,
) ([]db.Profile, error) {
	const op = "repository.profile.Search"

	limit := scope.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	q := r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Preload("Interests", func(tx *gorm.DB) *gorm.DB { return tx.Order("interest") }).
		Where(where.SQL, where.Args...)

	if scope.ViewerID != "" {
		q = q.Where(`NOT EXISTS (
			SELECT 1 FROM blocked_users b
			WHERE b.blocker_user_id = ? AND b.blocked_user_id = profiles.user_id
		)`, scope.ViewerID)
	}

	orderSQL := "profiles.user_id ASC"
	if !order.Empty() {
		orderSQL = order.SQL + ", " + orderSQL
	}
	q = q.Order(clause.OrderBy{Expression: clause.Expr{SQL: orderSQL, Vars: order.Args, WithoutParentheses: true}})

	var profiles []db.Profile
	if err := q.Limit(limit).Offset(scope.Offset).Find(&profiles).Error; err != nil {
		return nil, wrap(op, err)
	}
	return profiles, nil
}

// Create inserts a profile with its interests. An existing profile → ErrProfileExists.
func (r *ProfileRepository) Create(ctx context.Context, p *db.Profile) error {
	const op = "repository.profile.Create"

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Profile{}).Where("user_id = ?", p.UserID).Count(&n).Error; err != nil {
			return wrap(op, err)
		}
		if n > 0 {
			return wrap(op, ErrProfileExists)
		}
		if len(p.Pictures) > db.MaxPictures {
			return wrap(op, ErrTooManyPictures)
		}
		p.Interests = lo.UniqBy(p.Interests, func(i db.ProfileInterest) string { return i.Interest })
		for i := range p.Interests {
			p.Interests[i].UserID = p.UserID
		}
		for i := range p.Pictures {
			p.Pictures[i].UserID = p.UserID
		}
		return wrap(op, tx.Create(p).Error)
	})
}

// Update applies the non-nil fields of upd and returns the fresh profile.
//
// Behavior:
//   - No field set → ErrEmptyUpdate.
//   - Missing profile → ErrProfileNotFound.
func (r *ProfileRepository) Update(ctx context.Context, userID string, upd ProfileUpdate) (*db.Profile, error) {
	const op = "repository.profile.Update"

	cols := upd.columns()
	if len(cols) == 0 {
		return nil, wrap(op, ErrEmptyUpdate)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&db.Profile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrProfileNotFound
		}
		return tx.Model(&db.Profile{}).Where("user_id = ?", userID).Updates(cols).Error
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return r.FindOne(ctx, userID)
}

// AddInterests tags a profile. Existing tags are skipped.
func (r *ProfileRepository) AddInterests(ctx context.Context, userID string, interests []string) (*db.Profile, error) {
	const op = "repository.profile.AddInterests"

	rows := lo.Map(lo.Uniq(interests), func(tag string, _ int) db.ProfileInterest {
		return db.ProfileInterest{UserID: userID, Interest: tag}
	})
	if len(rows) > 0 {
		if err := r.requireProfile(ctx, userID); err != nil {
			return nil, wrap(op, err)
		}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return nil, wrap(op, err)
		}
	}
	return r.FindOne(ctx, userID)
}

// RemoveInterests drops the given tags from a profile.
func (r *ProfileRepository) RemoveInterests(ctx context.Context, userID string, interests []string) (*db.Profile, error) {
	const op = "repository.profile.RemoveInterests"

	if len(interests) > 0 {
		err := r.db.WithContext(ctx).
			Where("user_id = ? AND interest IN ?", userID, interests).
			Delete(&db.ProfileInterest{}).Error
		if err != nil {
			return nil, wrap(op, err)
		}
	}
	return r.FindOne(ctx, userID)
}

// AddPictures attaches picture URLs.
//
// Behavior:
//   - Already attached URLs are skipped.
//   - More than db.MaxPictures in total → ErrTooManyPictures, nothing is inserted.
func (r *ProfileRepository) AddPictures(ctx context.Context, userID string, urls []string) (*db.Profile, error) {
	const op = "repository.profile.AddPictures"

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p db.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Pictures").
			Where("user_id = ?", userID).
			Take(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return err
		}

		have := lo.Map(p.Pictures, func(pic db.ProfilePicture, _ int) string { return pic.PictureURL })
		fresh := lo.Without(lo.Uniq(urls), have...)
		if len(have)+len(fresh) > db.MaxPictures {
			return ErrTooManyPictures
		}
		if len(fresh) == 0 {
			return nil
		}
		rows := lo.Map(fresh, func(u string, _ int) db.ProfilePicture {
			return db.ProfilePicture{UserID: userID, PictureURL: u}
		})
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, wrap(op, err)
	}
	return r.FindOne(ctx, userID)
}

// RemovePictures detaches picture URLs.
func (r *ProfileRepository) RemovePictures(ctx context.Context, userID string, urls []string) (*db.Profile, error) {
	const op = "repository.profile.RemovePictures"

	if len(urls) > 0 {
		err := r.db.WithContext(ctx).
			Where("user_id = ? AND picture_url IN ?", userID, urls).
			Delete(&db.ProfilePicture{}).Error
		if err != nil {
			return nil, wrap(op, err)
		}
	}
	return r.FindOne(ctx, userID)
}

func (r *ProfileRepository) requireProfile(ctx context.Context, userID string) error {
	var n int64
	if err := r.db.WithContext(ctx).Model(&db.Profile{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return nil
}
