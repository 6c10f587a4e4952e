package leave

import (
	"context"
	"database/sql"
	"strings"
	"time"

	platformdb "ATLAS-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const applicationColumns = `application_id, application_ulid, session_id, student_id,
	reason, attachment_count, status, submitted_at`

// CreateApplication inserts the application plus one pending approval row per
// approver, all in the caller's Tx.
func (s *Store) CreateApplication(ctx context.Context, tx platformdb.DBTX, a *Application, approverIDs []string) error {
	const q = `
	INSERT INTO leave_applications
	(application_ulid, session_id, student_id, reason, attachment_count, status, submitted_at)
	VALUES (?, ?, ?, ?, ?, 'pending', ?)`
	res, err := tx.ExecContext(ctx, q,
		a.ApplicationULID, a.SessionID, a.StudentID, a.Reason, a.AttachmentCount, a.SubmittedAt,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	a.ApplicationID = uint64(id)
	a.Status = OutcomePending

	const aq = `
	INSERT INTO leave_approvals (application_id, approver_id, result)
	VALUES (?, ?, 'pending')`
	for _, approverID := range approverIDs {
		if _, err := tx.ExecContext(ctx, aq, a.ApplicationID, approverID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetApplicationByULID(ctx context.Context, applicationULID string) (*Application, error) {
	q := `
	SELECT ` + applicationColumns + `
	FROM leave_applications
	WHERE application_ulid = ?`
	return s.scanApplication(s.db.QueryRowContext(ctx, q, applicationULID))
}

// LatestApplicationForPair: the most recent non-cancelled application for a
// (session, student) pair; resubmission after cancellation is allowed.
func (s *Store) LatestApplicationForPair(ctx context.Context, sessionID uint64, studentID string) (*Application, error) {
	q := `
	SELECT ` + applicationColumns + `
	FROM leave_applications
	WHERE session_id = ? AND student_id = ? AND status <> 'cancelled'
	ORDER BY application_id DESC
	LIMIT 1`
	return s.scanApplication(s.db.QueryRowContext(ctx, q, sessionID, studentID))
}

func (s *Store) ListApprovals(ctx context.Context, applicationID uint64) ([]Approval, error) {
	const q = `
	SELECT approval_id, application_id, approver_id, result, comment, decided_at
	FROM leave_approvals
	WHERE application_id = ?
	ORDER BY approval_id`

	rows, err := s.db.QueryContext(ctx, q, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Approval
	for rows.Next() {
		var a Approval
		var result string
		if err := rows.Scan(&a.ApprovalID, &a.ApplicationID, &a.ApproverID, &result, &a.Comment, &a.DecidedAt); err != nil {
			return nil, err
		}
		a.Result = ApprovalResult(result)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetApproval(ctx context.Context, applicationID uint64, approverID string) (*Approval, error) {
	const q = `
	SELECT approval_id, application_id, approver_id, result, comment, decided_at
	FROM leave_approvals
	WHERE application_id = ? AND approver_id = ?`

	var a Approval
	var result string
	err := s.db.QueryRowContext(ctx, q, applicationID, approverID).Scan(
		&a.ApprovalID, &a.ApplicationID, &a.ApproverID, &result, &a.Comment, &a.DecidedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Result = ApprovalResult(result)
	return &a, nil
}

// DecideApproval: conditional update, only a pending approval may be decided.
func (s *Store) DecideApproval(ctx context.Context, applicationID uint64, approverID string, decision ApprovalResult, comment *string, decidedAt time.Time) (int64, error) {
	const q = `
	UPDATE leave_approvals
	SET result = ?, comment = ?, decided_at = ?
	WHERE application_id = ? AND approver_id = ? AND result = 'pending'`
	res, err := s.db.ExecContext(ctx, q, string(decision), commentOrNil(comment), decidedAt, applicationID, approverID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) UpdateCachedStatus(ctx context.Context, applicationID uint64, status Outcome) error {
	const q = `UPDATE leave_applications SET status = ? WHERE application_id = ?`
	_, err := s.db.ExecContext(ctx, q, string(status), applicationID)
	return err
}

// CancelApplication withdraws the application and voids its pending approvals.
func (s *Store) CancelApplication(ctx context.Context, tx platformdb.DBTX, applicationID uint64) (int64, error) {
	const q = `
	UPDATE leave_applications
	SET status = 'cancelled'
	WHERE application_id = ? AND status <> 'cancelled'`
	res, err := tx.ExecContext(ctx, q, applicationID)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, nil
	}

	const aq = `
	UPDATE leave_approvals
	SET result = 'cancelled'
	WHERE application_id = ? AND result = 'pending'`
	if _, err := tx.ExecContext(ctx, aq, applicationID); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListApplications(ctx context.Context, q ListQuery) ([]Application, int64, error) {
	sb := strings.Builder{}
	sb.WriteString(`
	SELECT ` + applicationColumns + `
	FROM leave_applications
	WHERE 1=1`)

	args := []any{}
	if q.SessionID != nil {
		sb.WriteString(` AND session_id = ?`)
		args = append(args, *q.SessionID)
	}
	if q.StudentID != nil {
		sb.WriteString(` AND student_id = ?`)
		args = append(args, *q.StudentID)
	}
	if q.ApproverID != nil {
		sb.WriteString(` AND application_id IN (SELECT application_id FROM leave_approvals WHERE approver_id = ?)`)
		args = append(args, *q.ApproverID)
	}
	sb.WriteString(` ORDER BY application_id DESC`)

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

	var out []Application
	for rows.Next() {
		var a Application
		var status string
		if err := rows.Scan(
			&a.ApplicationID, &a.ApplicationULID, &a.SessionID, &a.StudentID,
			&a.Reason, &a.AttachmentCount, &status, &a.SubmittedAt,
		); err != nil {
			return nil, 0, err
		}
		a.Status = Outcome(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	cb := strings.Builder{}
	cb.WriteString(`SELECT COUNT(*) FROM leave_applications WHERE 1=1`)
	argsCnt := []any{}
	if q.SessionID != nil {
		cb.WriteString(` AND session_id = ?`)
		argsCnt = append(argsCnt, *q.SessionID)
	}
	if q.StudentID != nil {
		cb.WriteString(` AND student_id = ?`)
		argsCnt = append(argsCnt, *q.StudentID)
	}
	if q.ApproverID != nil {
		cb.WriteString(` AND application_id IN (SELECT application_id FROM leave_approvals WHERE approver_id = ?)`)
		argsCnt = append(argsCnt, *q.ApproverID)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, cb.String(), argsCnt...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Store) scanApplication(row *sql.Row) (*Application, error) {
	var a Application
	var status string
	err := row.Scan(
		&a.ApplicationID, &a.ApplicationULID, &a.SessionID, &a.StudentID,
		&a.Reason, &a.AttachmentCount, &status, &a.SubmittedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Status = Outcome(status)
	return &a, nil
}

func commentOrNil(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
