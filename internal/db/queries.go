package db

import (
	"database/sql"
	"strings"

	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/game"
)

// ErrUniqueConstraint is returned when an insert violates a UNIQUE constraint.
var ErrUniqueConstraint = &errors.KifuError{
	Code:    "UNIQUE_CONSTRAINT",
	Status:  409,
	Message: "unique constraint violation",
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetCachedResponse returns the memoized body for url.
func (s *Store) GetCachedResponse(url string) (string, bool, error) {
	var content string
	err := s.tx.QueryRow(`SELECT content FROM http_cache WHERE url = ?`, url).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return content, true, nil
}

// PutCachedResponse memoizes a body. The first write for a URL wins.
func (s *Store) PutCachedResponse(url, content string) error {
	_, err := s.tx.Exec(`INSERT OR IGNORE INTO http_cache (url, content) VALUES (?, ?)`, url, content)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetResolvedIdentity returns the remote id previously resolved for name.
func (s *Store) GetResolvedIdentity(name string) (int64, bool, error) {
	var id int64
	err := s.tx.QueryRow(`SELECT id FROM identities WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.NewInternal(err)
	}
	return id, true, nil
}

// PutResolvedIdentity records name -> id. The first write for a name wins.
func (s *Store) PutResolvedIdentity(name string, id int64) error {
	_, err := s.tx.Exec(`INSERT OR IGNORE INTO identities (name, id) VALUES (?, ?)`, name, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// RecordMirrored adds a ledger row. A second row for the same game id is
// rejected by the primary key and reported as ErrUniqueConstraint.
func (s *Store) RecordMirrored(r game.Record) error {
	query := `
		INSERT INTO games (id, white, black, started_at, ended_at, is_bot, mirrored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.tx.Exec(query,
		r.ID, r.White, r.Black,
		toNullString(r.StartedAt), toNullString(r.EndedAt),
		boolToInt(r.IsBot), r.MirroredAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// HasMirrored reports whether the ledger has a row for id.
func (s *Store) HasMirrored(id int64) (bool, error) {
	var exists int
	err := s.tx.QueryRow(`SELECT 1 FROM games WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// GetMirrored returns the ledger row for id.
func (s *Store) GetMirrored(id int64) (*game.Record, error) {
	row := s.tx.QueryRow(`
		SELECT id, white, black, started_at, ended_at, is_bot, mirrored_at
		FROM games WHERE id = ?
	`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, &errors.KifuError{Code: errors.ErrNotFound, Status: 404, Message: "game not in ledger"}
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// CountMirrored returns the number of ledger rows.
func (s *Store) CountMirrored() (int, error) {
	var n int
	if err := s.tx.QueryRow(`SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// LedgerFilter narrows ListMirrored.
type LedgerFilter struct {
	Limit  int
	Offset int
	// IsBot restricts to bot (true) or human (false) games when set.
	IsBot *bool
}

// ListMirrored returns ledger rows, newest game id first, plus the total
// number of rows matching the filter.
func (s *Store) ListMirrored(f LedgerFilter) ([]game.Record, int, error) {
	where := ""
	args := []any{}
	if f.IsBot != nil {
		where = " WHERE is_bot = ?"
		args = append(args, boolToInt(*f.IsBot))
	}

	var total int
	if err := s.tx.QueryRow(`SELECT COUNT(*) FROM games`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `
		SELECT id, white, black, started_at, ended_at, is_bot, mirrored_at
		FROM games` + where + `
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.tx.Query(query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []game.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return out, total, nil
}

// MirroredIDs returns the set of every game id in the ledger.
func (s *Store) MirroredIDs() (map[int64]bool, error) {
	rows, err := s.tx.Query(`SELECT id FROM games`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

// Run is one row of mirror run history.
type Run struct {
	ID         string `json:"id"`
	Names      string `json:"names"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt *int64 `json:"finished_at,omitempty"`
	Found      int    `json:"found"`
	Saved      int    `json:"saved"`
	Cancelled  bool   `json:"cancelled"`
}

// StartRun records the beginning of a mirror run.
func (s *Store) StartRun(id string, names []string, startedAt int64) error {
	_, err := s.tx.Exec(`INSERT INTO runs (id, names, started_at) VALUES (?, ?, ?)`,
		id, strings.Join(names, ","), startedAt)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}
	return nil
}

// FinishRun stamps totals and the finish time on a run.
func (s *Store) FinishRun(id string, found, saved int, cancelled bool, finishedAt int64) error {
	result, err := s.tx.Exec(`
		UPDATE runs SET finished_at = ?, found = ?, saved = ?, cancelled = ?
		WHERE id = ?
	`, finishedAt, found, saved, boolToInt(cancelled), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return &errors.KifuError{Code: errors.ErrNotFound, Status: 404, Message: "run not found: " + id}
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	var (
		r          Run
		finishedAt sql.NullInt64
		cancelled  int
	)
	err := s.tx.QueryRow(`
		SELECT id, names, started_at, finished_at, found, saved, cancelled
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Names, &r.StartedAt, &finishedAt, &r.Found, &r.Saved, &cancelled)
	if err == sql.ErrNoRows {
		return nil, &errors.KifuError{Code: errors.ErrNotFound, Status: 404, Message: "run not found: " + id}
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if finishedAt.Valid {
		r.FinishedAt = &finishedAt.Int64
	}
	r.Cancelled = cancelled != 0
	return &r, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a single row into a game.Record.
func scanRecord(row scanner) (*game.Record, error) {
	var (
		r         game.Record
		startedAt sql.NullString
		endedAt   sql.NullString
		isBot     int
	)
	if err := row.Scan(&r.ID, &r.White, &r.Black, &startedAt, &endedAt, &isBot, &r.MirroredAt); err != nil {
		return nil, err
	}
	r.StartedAt = fromNullString(startedAt)
	r.EndedAt = fromNullString(endedAt)
	r.IsBot = isBot != 0
	return &r, nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
