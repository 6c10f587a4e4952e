package window

import (
	"context"
	"database/sql"
	"time"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const windowColumns = `window_id, window_ulid, session_id, round, status,
	open_time, close_time, opened_by, expected_count, actual_count`

// ExecOpen handles the full transaction flow for opening a round:
// cancel any prior open window, compute the next round, insert the new one.
// The UNIQUE(session_id, round) key makes the loser of a racing open fail
// with a duplicate-key error; the service retries that once.
func (s *Store) ExecOpen(ctx context.Context, w *Window) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// 1. Supersede the prior round (conditional, not read-then-write)
	const cancelQ = `
	UPDATE verification_windows
	SET status = 'cancelled'
	WHERE session_id = ? AND status = 'open'`
	if _, err = tx.ExecContext(ctx, cancelQ, w.SessionID); err != nil {
		return err
	}

	// 2. Next round number. Never reused, even across cancelled rounds.
	const roundQ = `
	SELECT COALESCE(MAX(round), 0) + 1
	FROM verification_windows
	WHERE session_id = ?`
	if err = tx.QueryRowContext(ctx, roundQ, w.SessionID).Scan(&w.Round); err != nil {
		return err
	}

	// 3. Insert the new open window
	const insertQ = `
	INSERT INTO verification_windows
	(window_ulid, session_id, round, status, open_time, close_time, opened_by, expected_count, actual_count)
	VALUES (?, ?, ?, 'open', ?, ?, ?, ?, 0)`
	var res sql.Result
	res, err = tx.ExecContext(ctx, insertQ,
		w.WindowULID, w.SessionID, w.Round, w.OpenTime, w.CloseTime, w.OpenedBy, w.ExpectedCount,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	w.WindowID = uint64(id)
	w.Status = WindowOpen

	return tx.Commit()
}

// Close: conditional update, succeeds only while the window is still open.
func (s *Store) Close(ctx context.Context, windowULID string) (int64, error) {
	const q = `
	UPDATE verification_windows
	SET status = 'closed'
	WHERE window_ulid = ? AND status = 'open'`
	res, err := s.db.ExecContext(ctx, q, windowULID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SweepExpired: single conditional UPDATE, safe to run from many workers.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `
	UPDATE verification_windows
	SET status = 'expired'
	WHERE status = 'open' AND close_time < ?`
	res, err := s.db.ExecContext(ctx, q, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) GetByULID(ctx context.Context, windowULID string) (*Window, error) {
	q := `
	SELECT ` + windowColumns + `
	FROM verification_windows
	WHERE window_ulid = ?`
	return s.scanOne(s.db.QueryRowContext(ctx, q, windowULID))
}

// LatestRound: the greatest round for a session regardless of status.
// Whether it counts as "current" is the service's call.
func (s *Store) LatestRound(ctx context.Context, sessionID uint64) (*Window, error) {
	q := `
	SELECT ` + windowColumns + `
	FROM verification_windows
	WHERE session_id = ?
	ORDER BY round DESC
	LIMIT 1`
	return s.scanOne(s.db.QueryRowContext(ctx, q, sessionID))
}

func (s *Store) CountOpen(ctx context.Context, sessionID uint64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM verification_windows
	WHERE session_id = ? AND status = 'open'`, sessionID,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) BumpActual(ctx context.Context, windowULID string) error {
	const q = `
	UPDATE verification_windows
	SET actual_count = actual_count + 1
	WHERE window_ulid = ?`
	_, err := s.db.ExecContext(ctx, q, windowULID)
	return err
}

func (s *Store) scanOne(row *sql.Row) (*Window, error) {
	var w Window
	var status string
	err := row.Scan(
		&w.WindowID, &w.WindowULID, &w.SessionID, &w.Round, &status,
		&w.OpenTime, &w.CloseTime, &w.OpenedBy, &w.ExpectedCount, &w.ActualCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	w.Status = WindowStatus(status)
	return &w, nil
}
