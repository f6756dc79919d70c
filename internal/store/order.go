package store

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// parseOrder returns (value, present). Empty or non-numeric means absent.
func parseOrder(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return int(f), true
	}
	return 0, false
}

func requireColumns(columns []string, newRows []map[string]string) error {
	var missing []string
	for _, col := range columns {
		for _, row := range newRows {
			if _, ok := row[col]; !ok {
				missing = append(missing, col)
				break
			}
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required DB columns in new rows: %v", missing)
	}
	return nil
}

// InsertDocumentsWithOrder inserts new documents keeping ORDER unique and
// contiguous per PID.
//
// For each PID the existing rows, sorted by (ORDER, DID), define the baseline
// sequence. A brand-new PID gets ORDER assigned sequentially in input order,
// ignoring any provided value. For an existing PID every new row must carry
// ORDER in [1, len(sequence)+1] and is spliced in at that position. After all
// inserts the final sequence is renumbered 1..N.
func InsertDocumentsWithOrder(db *Database, newRows []map[string]string) error {
	if err := requireColumns(db.Columns, newRows); err != nil {
		return err
	}

	// Group new rows by PID, preserving input order within and across groups.
	var pidOrder []string
	batches := map[string][]map[string]string{}
	for _, raw := range newRows {
		row := make(map[string]string, len(raw))
		for k, v := range raw {
			row[k] = v
		}
		pid := NormalizePID(row["PID"])
		row["PID"] = pid
		if _, seen := batches[pid]; !seen {
			pidOrder = append(pidOrder, pid)
		}
		batches[pid] = append(batches[pid], row)
	}

	rowByDID := make(map[int]*Row, len(db.Rows))
	for i := range db.Rows {
		rowByDID[db.Rows[i].DID] = &db.Rows[i]
	}

	nextDID := db.nextDID()

	for _, pid := range pidOrder {
		batch := batches[pid]

		// Baseline sequence: existing DIDs for this PID by (ORDER, DID).
		type ordered struct{ order, did int }
		var existing []ordered
		for _, r := range db.Rows {
			if r.Fields["PID"] != pid {
				continue
			}
			o, ok := parseOrder(r.Fields["ORDER"])
			if !ok {
				return fmt.Errorf(
					"DB has missing ORDER values for PID=%s, cannot safely perform ordered insertion", pid)
			}
			existing = append(existing, ordered{o, r.DID})
		}
		sort.Slice(existing, func(i, j int) bool {
			if existing[i].order != existing[j].order {
				return existing[i].order < existing[j].order
			}
			return existing[i].did < existing[j].did
		})
		sequence := make([]int, 0, len(existing)+len(batch))
		for _, e := range existing {
			sequence = append(sequence, e.did)
		}

		if len(sequence) == 0 {
			for _, row := range batch {
				did := nextDID
				nextDID++
				fields := projectColumns(db.Columns, row)
				db.Rows = append(db.Rows, Row{DID: did, Fields: fields})
				rowByDID[did] = &db.Rows[len(db.Rows)-1]
				sequence = append(sequence, did)
			}
		} else {
			for _, row := range batch {
				requested, ok := parseOrder(row["ORDER"])
				if !ok {
					return fmt.Errorf("ORDER is required when PID already exists (PID=%s)", pid)
				}
				if requested < 1 || requested > len(sequence)+1 {
					return fmt.Errorf("invalid ORDER for PID=%s: %d, must be between 1 and %d",
						pid, requested, len(sequence)+1)
				}

				did := nextDID
				nextDID++
				fields := projectColumns(db.Columns, row)
				fields["ORDER"] = ""
				db.Rows = append(db.Rows, Row{DID: did, Fields: fields})
				rowByDID[did] = &db.Rows[len(db.Rows)-1]

				sequence = append(sequence, 0)
				copy(sequence[requested:], sequence[requested-1:])
				sequence[requested-1] = did
			}
		}

		// Appending to db.Rows may have reallocated the backing array.
		rowByDID = make(map[int]*Row, len(db.Rows))
		for i := range db.Rows {
			rowByDID[db.Rows[i].DID] = &db.Rows[i]
		}
		for i, did := range sequence {
			rowByDID[did].Fields["ORDER"] = strconv.Itoa(i + 1)
		}
	}
	return nil
}

func projectColumns(columns []string, row map[string]string) map[string]string {
	fields := make(map[string]string, len(columns))
	for _, col := range columns {
		fields[col] = row[col]
	}
	return fields
}
