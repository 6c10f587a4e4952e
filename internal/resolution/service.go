package resolution

import (
	"context"
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/leave"
	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/schedule"
	"ATLAS-backend/internal/window"
)

// ===== interfaces =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// The resolver reads every feature through a narrow source interface; the
// feature services implement them and tests swap in fakes.

type SessionSource interface {
	Session(ctx context.Context, sessionID uint64) (*schedule.Session, error)
	IsMember(ctx context.Context, courseCode, studentID string) (bool, error)
	Roster(ctx context.Context, courseCode string) ([]string, error)
}

type RecordSource interface {
	Latest(ctx context.Context, sessionID uint64, studentID string) (*attendance.Record, error)
	LatestBoundToWindow(ctx context.Context, sessionID uint64, studentID, windowULID string) (*attendance.Record, error)
	HasStrayCheckin(ctx context.Context, sessionID uint64, studentID, excludeWindowULID string) (bool, error)
}

type WindowSource interface {
	Current(ctx context.Context, sessionID uint64) (*window.Window, error)
}

type LeaveSource interface {
	Outcome(ctx context.Context, sessionID uint64, studentID string) (leave.Outcome, error)
}

// ===== Service =====

type Service struct {
	sessions SessionSource
	records  RecordSource
	windows  WindowSource
	leaves   LeaveSource
	clock    Clock
	grace    time.Duration
}

func NewService(sessions SessionSource, records RecordSource, windows WindowSource, leaves LeaveSource, grace time.Duration) *Service {
	return &Service{
		sessions: sessions,
		records:  records,
		windows:  windows,
		leaves:   leaves,
		clock:    realClock{},
		grace:    grace,
	}
}

// StudentStatus resolves one pair. Non-members get NOT_FOUND: the resolver
// never guesses a status for a student who was never on the roster.
func (s *Service) StudentStatus(ctx context.Context, sessionID uint64, studentID string) (StatusResponse, error) {
	sess, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return StatusResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return StatusResponse{}, apperr.ErrNotFound("session not found")
	}
	member, err := s.sessions.IsMember(ctx, sess.CourseCode, studentID)
	if err != nil {
		return StatusResponse{}, apperr.ErrInternal("failed to check roster")
	}
	if !member {
		return StatusResponse{}, apperr.ErrNotFound("student is not on the session roster")
	}

	status, err := s.resolveMember(ctx, sess, studentID)
	if err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{SessionID: sessionID, StudentID: studentID, Status: status}, nil
}

// SessionSummary buckets the full roster. present and late count as presence;
// approved and pending leave both land in the leave bucket so a class that is
// still deciding does not read as absenteeism.
func (s *Service) SessionSummary(ctx context.Context, sessionID uint64) (SummaryResponse, error) {
	sess, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return SummaryResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return SummaryResponse{}, apperr.ErrNotFound("session not found")
	}

	statuses, err := s.ResolveRoster(ctx, sess)
	if err != nil {
		return SummaryResponse{}, err
	}

	out := SummaryResponse{SessionID: sessionID, ShouldAttend: len(statuses)}
	for _, st := range statuses {
		switch st.Status {
		case attendance.StatusPresent, attendance.StatusLate:
			out.Present++
		case attendance.StatusTruant:
			out.Truant++
		case attendance.StatusLeave, attendance.StatusLeavePending:
			out.Leave++
		default:
			out.Absent++
		}
	}
	return out, nil
}

// ResolveRoster resolves every roster member of a session. Shared by the
// summary endpoint and the daily aggregator.
func (s *Service) ResolveRoster(ctx context.Context, sess *schedule.Session) ([]StudentStatus, error) {
	roster, err := s.sessions.Roster(ctx, sess.CourseCode)
	if err != nil {
		return nil, apperr.ErrInternal("failed to load roster")
	}

	out := make([]StudentStatus, 0, len(roster))
	for _, studentID := range roster {
		status, err := s.resolveMember(ctx, sess, studentID)
		if err != nil {
			return nil, err
		}
		out = append(out, StudentStatus{StudentID: studentID, Status: status})
	}
	return out, nil
}

// resolveMember gathers the inputs and hands them to the pure Resolve.
// Membership has already been established by the caller.
func (s *Service) resolveMember(ctx context.Context, sess *schedule.Session, studentID string) (attendance.Status, error) {
	in := Input{
		SessionStart: sess.StartTime,
		SessionEnd:   sess.EndTime,
		Grace:        s.grace,
		Now:          s.clock.Now(),
	}

	var err error
	in.Latest, err = s.records.Latest(ctx, sess.SessionID, studentID)
	if err != nil {
		return "", apperr.ErrInternal("failed to load records")
	}

	in.LeaveOutcome, err = s.leaves.Outcome(ctx, sess.SessionID, studentID)
	if err != nil {
		return "", apperr.ErrInternal("failed to load leave outcome")
	}

	in.CurrentWindow, err = s.windows.Current(ctx, sess.SessionID)
	if err != nil {
		// an invariant violation must reach the caller untouched
		if apperr.IsCode(err, apperr.CodeInvariantViolation) {
			return "", err
		}
		return "", apperr.ErrInternal("failed to load window")
	}

	if in.CurrentWindow != nil {
		in.LatestInWindow, err = s.records.LatestBoundToWindow(ctx, sess.SessionID, studentID, in.CurrentWindow.WindowULID)
		if err != nil {
			return "", apperr.ErrInternal("failed to load records")
		}
		if in.LatestInWindow == nil {
			in.HasStrayCheckin, err = s.records.HasStrayCheckin(ctx, sess.SessionID, studentID, in.CurrentWindow.WindowULID)
			if err != nil {
				return "", apperr.ErrInternal("failed to load records")
			}
		}
	}

	return Resolve(in), nil
}
