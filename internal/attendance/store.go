package attendance

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row
}

type Store struct{ db DBTX }

func NewStore(db DBTX) *Store { return &Store{db: db} }

const recordColumns = `record_id, session_id, student_id, status, checkin_time,
	latitude, longitude, accuracy, ip, window_ulid, override_by, override_reason, created_at`

// Append inserts a new immutable row. There is deliberately no UNIQUE
// constraint on (session_id, student_id); corrections are new rows.
func (s *Store) Append(ctx context.Context, r *Record) error {
	const q = `
	INSERT INTO attendance_records
	(session_id, student_id, status, checkin_time, latitude, longitude, accuracy, ip, window_ulid, override_by, override_reason, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP(6))`

	res, err := s.db.ExecContext(ctx, q,
		r.SessionID, r.StudentID, string(r.Status), r.CheckinTime,
		r.Latitude, r.Longitude, r.Accuracy, r.IP, r.WindowULID,
		r.OverrideBy, r.OverrideReason,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	r.RecordID = uint64(id)
	return nil
}

// Latest: greatest record_id for the pair. Insertion order, not wall clock,
// defines "current" (avoids clock skew across concurrent writers).
func (s *Store) Latest(ctx context.Context, sessionID uint64, studentID string) (*Record, error) {
	q := `
	SELECT ` + recordColumns + `
	FROM attendance_records
	WHERE session_id = ? AND student_id = ?
	ORDER BY record_id DESC
	LIMIT 1`

	return s.scanOne(s.db.QueryRowContext(ctx, q, sessionID, studentID))
}

// LatestBoundToWindow: latest row for the pair carrying the given window id.
func (s *Store) LatestBoundToWindow(ctx context.Context, sessionID uint64, studentID, windowULID string) (*Record, error) {
	q := `
	SELECT ` + recordColumns + `
	FROM attendance_records
	WHERE session_id = ? AND student_id = ? AND window_ulid = ?
	ORDER BY record_id DESC
	LIMIT 1`

	return s.scanOne(s.db.QueryRowContext(ctx, q, sessionID, studentID, windowULID))
}

// HasStrayCheckin: a present/late row bound to some other window, or to none.
// The canonical proxy-signing signal.
func (s *Store) HasStrayCheckin(ctx context.Context, sessionID uint64, studentID, excludeWindowULID string) (bool, error) {
	const q = `
	SELECT 1 FROM attendance_records
	WHERE session_id = ? AND student_id = ?
	  AND status IN ('present', 'late')
	  AND override_by IS NULL
	  AND (window_ulid IS NULL OR window_ulid <> ?)
	LIMIT 1`

	var one int
	err := s.db.QueryRowContext(ctx, q, sessionID, studentID, excludeWindowULID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) ListBySession(ctx context.Context, q ListQuery) ([]Record, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`
	SELECT ` + recordColumns + `
	FROM attendance_records
	WHERE session_id = ?`)

	args := []any{q.SessionID}
	if q.StudentID != nil && *q.StudentID != "" {
		sb.WriteString(` AND student_id = ?`)
		args = append(args, *q.StudentID)
	}
	sb.WriteString(` ORDER BY record_id DESC`)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	sb.WriteString(` LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var status string
		if err := rows.Scan(
			&r.RecordID, &r.SessionID, &r.StudentID, &status, &r.CheckinTime,
			&r.Latitude, &r.Longitude, &r.Accuracy, &r.IP, &r.WindowULID,
			&r.OverrideBy, &r.OverrideReason, &r.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		r.Status = Status(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM attendance_records WHERE session_id = ?`)
	argsCnt := []any{q.SessionID}
	if q.StudentID != nil && *q.StudentID != "" {
		cb.WriteString(` AND student_id = ?`)
		argsCnt = append(argsCnt, *q.StudentID)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) scanOne(row *sql.Row) (*Record, error) {
	var r Record
	var status string
	err := row.Scan(
		&r.RecordID, &r.SessionID, &r.StudentID, &status, &r.CheckinTime,
		&r.Latitude, &r.Longitude, &r.Accuracy, &r.IP, &r.WindowULID,
		&r.OverrideBy, &r.OverrideReason, &r.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}
