package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/cache"
	"github.com/oggyb/discovery/internal/config"
	"github.com/oggyb/discovery/internal/discovery"
	"github.com/oggyb/discovery/internal/match"
	"github.com/oggyb/discovery/internal/notify"
	"github.com/oggyb/discovery/internal/query"
	"github.com/oggyb/discovery/internal/repository"
)

// AppContext holds shared dependencies (DB, Redis, Logger, etc.)
// and the services built on them.
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Logger     *slog.Logger
	Sink       notify.Sink

	Profiles  *repository.ProfileRepository
	Discovery *discovery.Service
	Engine    *match.Engine
}

// New creates a new AppContext. rdb and sink may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, sink notify.Sink, logger *slog.Logger) *AppContext {
	if sink == nil {
		sink = notify.Nop{}
	}

	// a nil *RedisCache must not become a non-nil interface
	var counter match.LikeCounter
	if rdb != nil {
		counter = rdb
	}

	profiles := repository.NewProfileRepository(db)
	compiler := query.NewCompiler(query.DialectFor(cfg.DB.Driver))

	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Logger:     logger,
		Sink:       sink,
		Profiles:   profiles,
		Discovery:  discovery.NewService(profiles, compiler, discovery.PolicyFromConfig(cfg.Discovery), logger),
		Engine:     match.NewEngine(db, counter, sink, logger),
	}
}
