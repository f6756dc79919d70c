package pseudo

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	saltSidecarSuffix = ".pseudonym_salt"
	saltKey           = "pseudonymization_salt"
)

// GenerateSalt returns a cryptographically secure URL-safe base64 salt.
func GenerateSalt() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// SaltSidecarPath returns the sidecar file holding the salt for a CSV
// database, e.g. patients.csv.pseudonym_salt.
func SaltSidecarPath(dbPath string) string {
	return dbPath + saltSidecarSuffix
}

// GetOrCreateSaltFile loads the persistent salt for a CSV database,
// creating it atomically on first use.
func GetOrCreateSaltFile(dbPath string) (string, error) {
	sidecar := SaltSidecarPath(dbPath)
	if err := os.MkdirAll(filepath.Dir(sidecar), 0o755); err != nil {
		return "", err
	}

	if raw, err := os.ReadFile(sidecar); err == nil {
		salt := strings.TrimSpace(string(raw))
		if salt == "" {
			return "", fmt.Errorf("salt sidecar exists but is empty: %s", sidecar)
		}
		return salt, nil
	} else if !os.IsNotExist(err) {
		return "", err
	}

	salt, err := GenerateSalt()
	if err != nil {
		return "", err
	}

	tmp := sidecar + ".tmp"
	if err := os.WriteFile(tmp, []byte(salt+"\n"), 0o600); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, sidecar); err != nil {
		return "", err
	}
	return salt, nil
}

// GetOrCreateSalt stores the salt in a sqlite meta table. Safe against two
// instances racing on first start.
func GetOrCreateSalt(db *sql.DB) (string, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		return "", fmt.Errorf("create meta table: %w", err)
	}

	var salt string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, saltKey).Scan(&salt)
	if err == nil && salt != "" {
		return salt, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", err
	}

	salt, err = GenerateSalt()
	if err != nil {
		return "", err
	}
	if _, err := db.Exec(
		`INSERT OR IGNORE INTO meta(key, value, created_at) VALUES (?, ?, ?)`,
		saltKey, salt, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return "", err
	}

	// Re-read so both racers end up with the persisted value.
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = ?`, saltKey).Scan(&salt); err != nil {
		return "", fmt.Errorf("retrieve pseudonymization salt: %w", err)
	}
	return salt, nil
}
