package store

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
)

const metaSidecarSuffix = ".meta.db"

// MetaPath returns the sqlite sidecar holding database metadata: the
// pseudonymization salt and the intake journal.
func MetaPath(dbPath string) string {
	return dbPath + metaSidecarSuffix
}

// OpenMeta opens (creating if needed) the metadata sidecar of a CSV database.
func OpenMeta(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", MetaPath(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS intake_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		did INTEGER NOT NULL,
		pid TEXT NOT NULL,
		source_file TEXT NOT NULL,
		committed_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create intake_log table: %w", err)
	}
	return db, nil
}

// Salt returns the pseudonymization salt for a database, creating it on
// first use. Databases that predate the metadata sidecar keep using their
// plain-file salt.
func Salt(dbPath string) (string, error) {
	if _, err := os.Stat(pseudo.SaltSidecarPath(dbPath)); err == nil {
		return pseudo.GetOrCreateSaltFile(dbPath)
	}

	meta, err := OpenMeta(dbPath)
	if err != nil {
		return pseudo.GetOrCreateSaltFile(dbPath)
	}
	defer meta.Close()
	return pseudo.GetOrCreateSalt(meta)
}

// RecordIntake journals committed documents in the metadata sidecar.
// Journal failures are returned but the CSV write has already happened, so
// callers typically just log them.
func RecordIntake(dbPath string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	meta, err := OpenMeta(dbPath)
	if err != nil {
		return err
	}
	defer meta.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range rows {
		if _, err := meta.Exec(
			`INSERT INTO intake_log(did, pid, source_file, committed_at) VALUES (?, ?, ?, ?)`,
			r.DID, r.Fields["PID"], r.Fields["SOURCE_FILE"], now,
		); err != nil {
			return fmt.Errorf("journal intake for DID=%d: %w", r.DID, err)
		}
	}
	return nil
}
