package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/constants"
)

// FileResult describes one discovered report.
type FileResult struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats aggregates one directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// ScanDirectory walks root, filters by extension (defaults to .pdf), skips
// hidden entries when requested, and hashes each file so the same report
// dropped twice in the inbox is flagged as a duplicate.
func ScanDirectory(root string, includeExts []string, skipHidden bool) ([]FileResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, os.ErrInvalid
	}

	exts := map[string]struct{}{}
	if len(includeExts) == 0 {
		for e := range defaultExts {
			exts[e] = struct{}{}
		}
	} else {
		for _, e := range includeExts {
			e = constants.NormalizeExt(strings.TrimSpace(e))
			if e != "" {
				exts[e] = struct{}{}
			}
		}
	}

	var results []FileResult
	var stats DirStats
	seen := map[string]struct{}{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, FileResult{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !allowed(path, exts) {
			return nil
		}
		stats.Matched++

		sum, err := hashFile(path)
		if err != nil {
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		_, dedup := seen[sum]
		seen[sum] = struct{}{}
		results = append(results, FileResult{Path: path, HashHex: sum, Deduplicated: dedup})
		stats.Succeeded++
		if dedup {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, err
	}
	return results, stats, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
