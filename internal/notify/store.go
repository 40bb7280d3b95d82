package notify

import (
	"context"

	"github.com/samber/lo"

	"github.com/oggyb/discovery/internal/db"
)

type rowWriter interface {
	CreateMany(ctx context.Context, rows []db.Notification) error
}

// Store persists one notifications row per receiver.
type Store struct {
	repo rowWriter
}

func NewStore(repo rowWriter) *Store {
	return &Store{repo: repo}
}

func (s *Store) Create(ctx context.Context, ev Event) error {
	rows := lo.Map(lo.Uniq(ev.Receivers), func(receiver string, _ int) db.Notification {
		return db.Notification{
			EntityType: string(ev.Type),
			EntityID:   ev.EntityID,
			Status:     ev.Status,
			Sender:     ev.Sender,
			Receiver:   receiver,
			CreatedAt:  ev.CreatedAt,
		}
	})
	return s.repo.CreateMany(ctx, rows)
}
