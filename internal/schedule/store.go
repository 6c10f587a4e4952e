package schedule

import (
	"context"
	"database/sql"
	"strings"

	platformdb "ATLAS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// UpsertSession: keyed by external_id (UNIQUE). The sync feed owns session
// content and may resend corrected rows; soft-deleted rows are revived.
func (s *Store) UpsertSession(ctx context.Context, tx platformdb.DBTX, in SessionUpsert) error {
	const q = `
	INSERT INTO course_sessions
	(external_id, course_code, course_name, start_time, end_time, semester, teaching_week, week_day, periods, need_checkin, is_deleted)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	ON DUPLICATE KEY UPDATE
	course_code = VALUES(course_code),
	course_name = VALUES(course_name),
	start_time  = VALUES(start_time),
	end_time    = VALUES(end_time),
	semester    = VALUES(semester),
	teaching_week = VALUES(teaching_week),
	week_day    = VALUES(week_day),
	periods     = VALUES(periods),
	need_checkin = VALUES(need_checkin),
	is_deleted  = 0`

	_, err := tx.ExecContext(ctx, q,
		in.ExternalID, in.CourseCode, in.CourseName, in.StartTime, in.EndTime,
		in.Semester, in.TeachingWeek, in.WeekDay, in.Periods, in.NeedCheckin,
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, sessionID uint64) (*Session, error) {
	const q = `
	SELECT session_id, external_id, course_code, course_name, start_time, end_time,
	       semester, teaching_week, week_day, periods, need_checkin, is_deleted
	FROM course_sessions
	WHERE session_id = ?`

	var m Session
	err := s.db.QueryRowContext(ctx, q, sessionID).Scan(
		&m.SessionID, &m.ExternalID, &m.CourseCode, &m.CourseName, &m.StartTime, &m.EndTime,
		&m.Semester, &m.TeachingWeek, &m.WeekDay, &m.Periods, &m.NeedCheckin, &m.IsDeleted,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListSessions(ctx context.Context, q ListQuery) ([]Session, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`
	SELECT session_id, external_id, course_code, course_name, start_time, end_time,
	       semester, teaching_week, week_day, periods, need_checkin, is_deleted
	FROM course_sessions
	WHERE is_deleted = 0`)

	args := []any{}
	if q.Semester != nil {
		sb.WriteString(` AND semester = ?`)
		args = append(args, *q.Semester)
	}
	if q.CourseCode != nil {
		sb.WriteString(` AND course_code = ?`)
		args = append(args, *q.CourseCode)
	}
	if q.TeachingWeek != nil {
		sb.WriteString(` AND teaching_week = ?`)
		args = append(args, *q.TeachingWeek)
	}
	sb.WriteString(` ORDER BY start_time ASC, session_id ASC`)

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

	var out []Session
	for rows.Next() {
		var m Session
		if err := rows.Scan(
			&m.SessionID, &m.ExternalID, &m.CourseCode, &m.CourseName, &m.StartTime, &m.EndTime,
			&m.Semester, &m.TeachingWeek, &m.WeekDay, &m.Periods, &m.NeedCheckin, &m.IsDeleted,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// COUNT with the same WHERE (before ORDER/LIMIT)
	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM course_sessions WHERE is_deleted = 0`)
	argsCnt := []any{}
	if q.Semester != nil {
		cb.WriteString(` AND semester = ?`)
		argsCnt = append(argsCnt, *q.Semester)
	}
	if q.CourseCode != nil {
		cb.WriteString(` AND course_code = ?`)
		argsCnt = append(argsCnt, *q.CourseCode)
	}
	if q.TeachingWeek != nil {
		cb.WriteString(` AND teaching_week = ?`)
		argsCnt = append(argsCnt, *q.TeachingWeek)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// SoftDeleteSession flips is_deleted. Session rows are never physically removed.
func (s *Store) SoftDeleteSession(ctx context.Context, sessionID uint64) (int64, error) {
	const q = `UPDATE course_sessions SET is_deleted = 1 WHERE session_id = ? AND is_deleted = 0`
	res, err := s.db.ExecContext(ctx, q, sessionID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// ReplaceRoster swaps the full membership of a course in one Tx.
func (s *Store) ReplaceRoster(ctx context.Context, tx platformdb.DBTX, courseCode string, studentIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM roster_entries WHERE course_code = ?`, courseCode); err != nil {
		return err
	}
	const q = `INSERT INTO roster_entries (course_code, student_id) VALUES (?, ?)`
	for _, sid := range studentIDs {
		if _, err := tx.ExecContext(ctx, q, courseCode, sid); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) IsMember(ctx context.Context, courseCode, studentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
	SELECT 1 FROM roster_entries
	WHERE course_code = ? AND student_id = ? LIMIT 1`, courseCode, studentID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Roster(ctx context.Context, courseCode string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT student_id FROM roster_entries
	WHERE course_code = ? ORDER BY student_id`, courseCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		out = append(out, sid)
	}
	return out, rows.Err()
}

func (s *Store) RosterSize(ctx context.Context, courseCode string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roster_entries WHERE course_code = ?`, courseCode,
	).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
