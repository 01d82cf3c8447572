// Package metrics records monitor snapshots in a SQLite database.
package metrics

import (
	"context"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"github.com/google/uuid"
)

type service struct {
	repo    Repository
	cfg     Config
	session string
	logger  logger.Logger
}

type noopCollector struct {
	session string
}

// NewService returns a Collector backed by the repository at cfg.DBPath, or
// a no-op collector when cfg.Enabled is false. Every collector gets a fresh
// session id stamped on the snapshots it records.
func NewService(cfg Config, log logger.Logger) (Collector, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	session := uuid.NewString()

	if !cfg.Enabled {
		log.Debug().Msg("Metrics collection disabled, using no-op collector")
		return &noopCollector{session: session}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to create metrics repository")
		return nil, err
	}

	log.Debug().
		Str("db_path", cfg.DBPath).
		Str("session", session).
		Msg("Metrics service initialized")

	return &service{
		repo:    repo,
		cfg:     cfg,
		session: session,
		logger:  log,
	}, nil
}

func (s *service) Record(ctx context.Context, snapshot *Snapshot) error {
	errFactory := errors.New()

	if snapshot == nil || snapshot.Timestamp.IsZero() {
		return errFactory.New(ErrInvalidSnapshot)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	stamped := *snapshot
	stamped.SessionID = s.session

	if err := s.repo.Record(&stamped); err != nil {
		return errFactory.Wrap(ErrMetricsCollection, err)
	}

	return nil
}

func (s *service) SessionID() string {
	return s.session
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	return nil
}

func (*noopCollector) Record(context.Context, *Snapshot) error {
	return nil
}

func (n *noopCollector) SessionID() string {
	return n.session
}

func (*noopCollector) Close() error {
	return nil
}
