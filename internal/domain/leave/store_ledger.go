package leave

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const ledgerColumns = "id, emp_id, granted_for_year, policies, is_lapsed, lapsed_date, batch_id, created_at"

func scanLedgerEntry(row pgx.Row) (LedgerEntry, error) {
	var (
		e        LedgerEntry
		policies []byte
	)
	if err := row.Scan(&e.ID, &e.EmpID, &e.GrantedForYear, &policies, &e.IsLapsed, &e.LapsedDate, &e.BatchID, &e.CreatedAt); err != nil {
		return LedgerEntry{}, err
	}
	if err := json.Unmarshal(policies, &e.Policies); err != nil {
		return LedgerEntry{}, fmt.Errorf("decode policies of ledger entry %s: %w", e.ID, err)
	}
	for _, p := range e.Policies {
		if err := p.Validate(); err != nil {
			return LedgerEntry{}, fmt.Errorf("ledger entry %s: %w", e.ID, err)
		}
	}
	return e, nil
}

// UnlapsedEntries returns the year's unlapsed entries for the given employees ordered by employee then creation.
func (s *Store) UnlapsedEntries(ctx context.Context, empIDs []string, year int) ([]LedgerEntry, error) {
	if len(empIDs) == 0 {
		return nil, nil
	}
	rows, err := s.DB.Query(ctx, `
    SELECT `+ledgerColumns+`
    FROM leave_ledger_entries
    WHERE emp_id = ANY($1) AND granted_for_year = $2 AND is_lapsed = false
    ORDER BY emp_id, created_at
  `, empIDs, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) InsertLedgerEntry(ctx context.Context, entry LedgerEntry) (LedgerEntry, error) {
	policies, err := json.Marshal(entry.Policies)
	if err != nil {
		return LedgerEntry{}, err
	}
	return scanLedgerEntry(s.DB.QueryRow(ctx, `
    INSERT INTO leave_ledger_entries (emp_id, granted_for_year, policies, batch_id)
    VALUES ($1,$2,$3,$4)
    RETURNING `+ledgerColumns, entry.EmpID, entry.GrantedForYear, policies, entry.BatchID))
}

// LapseEntries locks the entries, verifies none is lapsed or missing, then marks all of them
// lapsed at now. Any conflict rolls the whole batch back with a LapseConflictError.
func (s *Store) LapseEntries(ctx context.Context, entryIDs []string, now time.Time) (int, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
    SELECT id::text, is_lapsed
    FROM leave_ledger_entries
    WHERE id::text = ANY($1)
    ORDER BY id
    FOR UPDATE
  `, entryIDs)
	if err != nil {
		return 0, err
	}
	found := make(map[string]bool, len(entryIDs))
	for rows.Next() {
		var (
			id     string
			lapsed bool
		)
		if err := rows.Scan(&id, &lapsed); err != nil {
			rows.Close()
			return 0, err
		}
		found[id] = lapsed
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	var conflicts []string
	for _, id := range entryIDs {
		lapsed, ok := found[id]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrLedgerNotFound, id)
		}
		if lapsed {
			conflicts = append(conflicts, id)
		}
	}
	if len(conflicts) > 0 {
		return 0, &LapseConflictError{EntryIDs: conflicts}
	}

	cmd, err := tx.Exec(ctx, `
    UPDATE leave_ledger_entries
    SET is_lapsed = true, lapsed_date = $1
    WHERE id::text = ANY($2) AND is_lapsed = false
  `, now, entryIDs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}
