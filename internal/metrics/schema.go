package metrics

import (
	"database/sql"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS snapshots (
	       id           INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp    INTEGER NOT NULL,
	       session_id   TEXT NOT NULL,
	       freq_average INTEGER NOT NULL CHECK (freq_average >= 0),
	       freq_min     INTEGER NOT NULL CHECK (freq_min >= 0),
	       freq_max     INTEGER NOT NULL CHECK (freq_max >= 0),
	       temp_cpu     REAL NOT NULL,
	       temp_hottest REAL NOT NULL,
	       governor     TEXT NOT NULL,
	       turbo        INTEGER NOT NULL CHECK (turbo IN (0, 1))
	   );
	   CREATE INDEX IF NOT EXISTS snapshots_session ON snapshots (session_id, timestamp);`

	insertSnapshotSQL = `
    INSERT INTO snapshots (
        timestamp, session_id,
        freq_average, freq_min, freq_max,
        temp_cpu, temp_hottest,
        governor, turbo
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectRecentSQL = `
    SELECT timestamp, session_id,
           freq_average, freq_min, freq_max,
           temp_cpu, temp_hottest,
           governor, turbo
    FROM snapshots
    ORDER BY timestamp DESC, id DESC
    LIMIT ?`
)

// InitSchema creates the tables and records SchemaVersion.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WrapWithData(ErrSchemaInitFailed, err, struct {
			Phase string
		}{
			Phase: "create_tables",
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WrapWithData(ErrSchemaInitFailed, err, struct {
			Phase string
		}{
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for an empty
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WrapWithData(ErrSchemaValidationFailed, err, struct {
			Phase string
		}{
			Phase: "get_version",
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errors.New().WrapWithData(ErrSchemaValidationFailed, err, struct {
			Phase string
			Table string
		}{
			Phase: "check_table_exists",
			Table: tableName,
		})
	}

	return exists, nil
}
