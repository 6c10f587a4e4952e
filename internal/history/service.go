package history

import (
	"context"
	"database/sql"
	"log"
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/resolution"
	"ATLAS-backend/internal/schedule"
)

// ===== interfaces =====

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type SessionSource interface {
	Session(ctx context.Context, sessionID uint64) (*schedule.Session, error)
}

// Resolver freezes the live statuses the archive is built from.
type Resolver interface {
	ResolveRoster(ctx context.Context, sess *schedule.Session) ([]resolution.StudentStatus, error)
}

// StatStore is implemented by *Store; tests swap in a fake.
type StatStore interface {
	SessionsEndedOn(ctx context.Context, statDate, now time.Time) ([]uint64, error)
	Archive(ctx context.Context, stat *DailyStat, relations []AbsentRelation) error
	ListDailyStats(ctx context.Context, statDate time.Time) ([]DailyStat, error)
	StudentTotals(ctx context.Context, studentID, semester string) (StudentTotals, error)
}

// ===== Service =====

type Service struct {
	store    StatStore
	sessions SessionSource
	resolver Resolver
	clock    Clock
}

func NewService(db *sql.DB, sessions SessionSource, resolver Resolver) *Service {
	return &Service{
		store:    NewStore(db),
		sessions: sessions,
		resolver: resolver,
		clock:    realClock{},
	}
}

// Run is the scheduled entry point. It archives the given day plus the day
// before: a session ending inside the last ticker interval of a day would
// otherwise only come up for a tick whose wall-clock date no longer matches,
// and never be archived. The overlap is harmless, re-runs win by upsert.
func (s *Service) Run(ctx context.Context, now time.Time) (int, error) {
	n, err := s.RunOnce(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		return n, err
	}
	m, err := s.RunOnce(ctx, now)
	return n + m, err
}

// RunOnce archives every finished check-in session of statDate. Safe to call
// repeatedly: stats upsert on (stat_date, session_id) and relations are
// rewritten, so the last run wins. A session that fails to archive is logged
// and skipped rather than aborting the whole day.
func (s *Service) RunOnce(ctx context.Context, statDate time.Time) (int, error) {
	ids, err := s.store.SessionsEndedOn(ctx, statDate, s.clock.Now())
	if err != nil {
		return 0, apperr.ErrInternal("failed to list sessions to archive")
	}

	archived := 0
	for _, sessionID := range ids {
		if err := s.archiveSession(ctx, statDate, sessionID); err != nil {
			log.Printf("[ERROR] archive session %d for %s: %v", sessionID, statDate.Format("2006-01-02"), err)
			continue
		}
		archived++
	}
	return archived, nil
}

func (s *Service) archiveSession(ctx context.Context, statDate time.Time, sessionID uint64) error {
	sess, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	statuses, err := s.resolver.ResolveRoster(ctx, sess)
	if err != nil {
		return err
	}

	stat := &DailyStat{
		StatDate:     statDate,
		SessionID:    sessionID,
		CourseCode:   sess.CourseCode,
		CourseName:   sess.CourseName,
		ShouldAttend: len(statuses),
	}
	var relations []AbsentRelation
	for _, st := range statuses {
		switch st.Status {
		case attendance.StatusPresent, attendance.StatusLate:
			stat.Present++
			continue
		case attendance.StatusTruant:
			stat.Truant++
		case attendance.StatusLeave, attendance.StatusLeavePending:
			stat.Leave++
		default:
			stat.Absent++
		}
		relations = append(relations, AbsentRelation{
			StatDate:  statDate,
			SessionID: sessionID,
			StudentID: st.StudentID,
			Status:    st.Status,
		})
	}

	return s.store.Archive(ctx, stat, relations)
}

func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (AggregateResponse, error) {
	statDate := s.clock.Now()
	if req.StatDate != "" {
		var err error
		statDate, err = time.Parse("2006-01-02", req.StatDate)
		if err != nil {
			return AggregateResponse{}, apperr.ErrInvalid("stat_date must be YYYY-MM-DD")
		}
	}

	n, err := s.RunOnce(ctx, statDate)
	if err != nil {
		return AggregateResponse{}, err
	}
	return AggregateResponse{StatDate: statDate.Format("2006-01-02"), SessionsArchived: n}, nil
}

func (s *Service) DailyStats(ctx context.Context, statDate string) ([]DailyStatResponse, error) {
	d, err := time.Parse("2006-01-02", statDate)
	if err != nil {
		return nil, apperr.ErrInvalid("stat_date must be YYYY-MM-DD")
	}
	stats, err := s.store.ListDailyStats(ctx, d)
	if err != nil {
		return nil, apperr.ErrInternal("failed to list daily stats")
	}
	out := make([]DailyStatResponse, 0, len(stats))
	for i := range stats {
		out = append(out, stats[i].toDTO())
	}
	return out, nil
}

func (s *Service) StudentSummary(ctx context.Context, studentID, semester string) (StudentSummaryResponse, error) {
	if studentID == "" {
		return StudentSummaryResponse{}, apperr.ErrInvalid("student id is required")
	}
	if semester == "" {
		return StudentSummaryResponse{}, apperr.ErrInvalid("semester is required")
	}

	t, err := s.store.StudentTotals(ctx, studentID, semester)
	if err != nil {
		return StudentSummaryResponse{}, apperr.ErrInternal("failed to summarise history")
	}

	out := StudentSummaryResponse{
		StudentID:     studentID,
		Semester:      semester,
		TotalSessions: t.TotalSessions,
		Absent:        t.Absent,
		Truant:        t.Truant,
		Leave:         t.Leave,
	}
	out.Present = t.TotalSessions - t.Absent - t.Truant - t.Leave
	if out.Present < 0 {
		// relation rows exceed rostered archives: stale roster or a defect,
		// worth a trace either way
		log.Printf("[ERROR] student %s semester %s: %d archived rows vs %d rostered sessions",
			studentID, semester, t.Absent+t.Truant+t.Leave, t.TotalSessions)
		out.Present = 0
	}
	return out, nil
}
