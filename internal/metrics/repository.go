package metrics

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []*Snapshot
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
	closeOnce     sync.Once
}

// NewRepository opens or creates the database at cfg.DBPath. Snapshots are
// buffered and written in batches of cfg.BatchSize, or every
// cfg.BatchTimeout, whichever comes first.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WrapWithData(ErrStorageInit, err, struct {
			Phase string
			Path  string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WrapWithData(ErrStorageInit, err, struct {
			Phase string
		}{
			Phase: "open_database",
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.backupDir(), log); err != nil {
		db.Close()
		return nil, errFactory.WrapWithData(ErrStorageInit, err, struct {
			Phase string
		}{
			Phase: "schema_version",
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Msg("Metrics repository initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]*Snapshot, 0, cfg.BatchSize),
		flushTicker:   time.NewTicker(cfg.BatchTimeout),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	go repo.flusher()

	return repo, nil
}

func (r *repository) Record(snapshot *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, snapshot)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Recent(limit int) ([]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.flush(); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(selectRecentSQL, limit)
	if err != nil {
		return nil, errors.New().Wrap(ErrStorageQuery, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			s               Snapshot
			ts              int64
			avg, minF, maxF uint
			turbo           int
		)
		if err := rows.Scan(&ts, &s.SessionID, &avg, &minF, &maxF,
			&s.Thermal.CPU, &s.Thermal.Hottest, &s.State.Governor, &turbo); err != nil {
			return nil, errors.New().Wrap(ErrStorageQuery, err)
		}

		s.Timestamp = time.UnixMilli(ts)
		s.Frequency = FrequencyMetrics{Average: cpu.Frequency(avg), Min: cpu.Frequency(minF), Max: cpu.Frequency(maxF)}
		s.State.Turbo = turbo == 1
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.New().Wrap(ErrStorageQuery, err)
	}

	return out, nil
}

// Close flushes buffered snapshots and closes the database. Calls after the
// first return nil.
func (r *repository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.close()
	})

	return err
}

func (r *repository) close() error {
	close(r.shutdownChan)
	r.flushTicker.Stop()
	<-r.flushDoneChan

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.db.Close()
		return errors.New().WrapWithData(ErrStorageClose, err, struct {
			Phase string
		}{
			Phase: "checkpoint_wal",
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WrapWithData(ErrStorageClose, err, struct {
			Phase string
		}{
			Phase: "close_database",
		})
	}

	r.logger.Info().Msg("Metrics repository closed")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Final flush failed")
			}
			r.mu.Unlock()
			return
		}
	}
}

// flush writes the buffer in one transaction. The buffer is kept on failure
// so the next flush retries it.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertSnapshotSQL)
	if err != nil {
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, s := range r.buffer {
		values := []any{
			s.Timestamp.UnixMilli(),
			s.SessionID,
			int64(s.Frequency.Average),
			int64(s.Frequency.Min),
			int64(s.Frequency.Max),
			s.Thermal.CPU,
			s.Thermal.Hottest,
			s.State.Governor,
			boolToInt(s.State.Turbo),
		}

		if _, err := stmt.Exec(values...); err != nil {
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed snapshots to database")
	r.buffer = r.buffer[:0]

	return nil
}
