package history

import (
	"context"
	"database/sql"
	"time"

	"ATLAS-backend/internal/attendance"
	platformdb "ATLAS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// SessionsEndedOn lists check-in sessions that finished on the stat date and
// are actually over, so a midday run never archives the afternoon classes.
func (s *Store) SessionsEndedOn(ctx context.Context, statDate, now time.Time) ([]uint64, error) {
	const q = `
	SELECT session_id
	FROM course_sessions
	WHERE DATE(end_time) = DATE(?)
	  AND end_time < ?
	  AND need_checkin = 1
	  AND is_deleted = 0
	ORDER BY session_id`

	rows, err := s.db.QueryContext(ctx, q, statDate, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Archive writes one session's frozen counts and per-student rows in a single
// Tx. Re-runs are harmless: the stat row upserts on (stat_date, session_id)
// and the relation rows are rewritten, so the last run wins.
func (s *Store) Archive(ctx context.Context, stat *DailyStat, relations []AbsentRelation) error {
	return platformdb.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx platformdb.DBTX) error {
		if err := upsertDailyStat(ctx, tx, stat); err != nil {
			return err
		}
		return replaceAbsentRelations(ctx, tx, stat.StatDate, stat.SessionID, relations)
	})
}

func upsertDailyStat(ctx context.Context, tx platformdb.DBTX, d *DailyStat) error {
	const q = `
	INSERT INTO daily_stats
	(stat_date, session_id, course_code, course_name, should_attend, present, absent, truant, leave_count)
	VALUES (DATE(?), ?, ?, ?, ?, ?, ?, ?, ?)
	ON DUPLICATE KEY UPDATE
		course_code = VALUES(course_code),
		course_name = VALUES(course_name),
		should_attend = VALUES(should_attend),
		present = VALUES(present),
		absent = VALUES(absent),
		truant = VALUES(truant),
		leave_count = VALUES(leave_count)`
	_, err := tx.ExecContext(ctx, q,
		d.StatDate, d.SessionID, d.CourseCode, d.CourseName,
		d.ShouldAttend, d.Present, d.Absent, d.Truant, d.Leave,
	)
	return err
}

// Delete plus insert keeps a re-run from leaving stale names behind.
func replaceAbsentRelations(ctx context.Context, tx platformdb.DBTX, statDate time.Time, sessionID uint64, relations []AbsentRelation) error {
	const dq = `DELETE FROM absent_student_relations WHERE stat_date = DATE(?) AND session_id = ?`
	if _, err := tx.ExecContext(ctx, dq, statDate, sessionID); err != nil {
		return err
	}

	const iq = `
	INSERT INTO absent_student_relations (stat_date, session_id, student_id, status)
	VALUES (DATE(?), ?, ?, ?)`
	for i := range relations {
		r := &relations[i]
		if _, err := tx.ExecContext(ctx, iq, statDate, sessionID, r.StudentID, string(r.Status)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListDailyStats(ctx context.Context, statDate time.Time) ([]DailyStat, error) {
	const q = `
	SELECT stat_id, stat_date, session_id, course_code, course_name,
	       should_attend, present, absent, truant, leave_count, created_at
	FROM daily_stats
	WHERE stat_date = DATE(?)
	ORDER BY session_id`

	rows, err := s.db.QueryContext(ctx, q, statDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyStat
	for rows.Next() {
		var d DailyStat
		if err := rows.Scan(
			&d.StatID, &d.StatDate, &d.SessionID, &d.CourseCode, &d.CourseName,
			&d.ShouldAttend, &d.Present, &d.Absent, &d.Truant, &d.Leave, &d.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// StudentTotals pulls the raw archive counts for one student and semester.
// Presence is derived by the service, not stored: archived sessions the
// student was rostered for, minus the rows naming them as something else.
func (s *Store) StudentTotals(ctx context.Context, studentID, semester string) (StudentTotals, error) {
	var out StudentTotals

	const tq = `
	SELECT COUNT(*)
	FROM daily_stats ds
	JOIN course_sessions cs ON cs.session_id = ds.session_id
	JOIN roster_entries re ON re.course_code = cs.course_code AND re.student_id = ?
	WHERE cs.semester = ?`
	if err := s.db.QueryRowContext(ctx, tq, studentID, semester).Scan(&out.TotalSessions); err != nil {
		return out, err
	}

	const rq = `
	SELECT rel.status, COUNT(*)
	FROM absent_student_relations rel
	JOIN course_sessions cs ON cs.session_id = rel.session_id
	WHERE rel.student_id = ? AND cs.semester = ?
	GROUP BY rel.status`
	rows, err := s.db.QueryContext(ctx, rq, studentID, semester)
	if err != nil {
		return out, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return out, err
		}
		switch attendance.Status(status) {
		case attendance.StatusTruant:
			out.Truant += n
		case attendance.StatusLeave, attendance.StatusLeavePending:
			out.Leave += n
		default:
			out.Absent += n
		}
	}
	return out, rows.Err()
}
