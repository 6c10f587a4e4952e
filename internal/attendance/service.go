package attendance

import (
	"context"
	"database/sql"
	"log"
	"time"

	"ATLAS-backend/internal/platform/apperr"
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

// SessionDirectory is the slice of the schedule service this feature needs.
type SessionDirectory interface {
	Session(ctx context.Context, sessionID uint64) (*schedule.Session, error)
	IsMember(ctx context.Context, courseCode, studentID string) (bool, error)
}

// WindowRegistry lets a check-in be validated against and counted on a window.
type WindowRegistry interface {
	SessionForWindow(ctx context.Context, windowULID string) (uint64, bool, error)
	BumpActual(ctx context.Context, windowULID string) error
}

// ===== Service =====

type Service struct {
	db       *sql.DB
	store    *Store
	sessions SessionDirectory
	windows  WindowRegistry
	clock    Clock
	grace    time.Duration
}

func NewService(db *sql.DB, sessions SessionDirectory, windows WindowRegistry, grace time.Duration) *Service {
	return &Service{
		db:       db,
		store:    NewStore(db),
		sessions: sessions,
		windows:  windows,
		clock:    realClock{},
		grace:    grace,
	}
}

// RecordCheckin appends the raw signal. A check-in is never rejected because
// its window round may later be superseded; only resolution can be unfavorable.
func (s *Service) RecordCheckin(ctx context.Context, req CheckinRequest, studentID, clientIP string) (RecordResponse, error) {
	if studentID == "" {
		return RecordResponse{}, apperr.ErrInvalid("student id is required")
	}

	sess, err := s.sessions.Session(ctx, req.SessionID)
	if err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return RecordResponse{}, apperr.ErrNotFound("session not found")
	}

	member, err := s.sessions.IsMember(ctx, sess.CourseCode, studentID)
	if err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to check roster")
	}
	if !member {
		return RecordResponse{}, apperr.ErrNotFound("student is not on the session roster")
	}

	now := s.clock.Now()

	rec := &Record{
		SessionID:   req.SessionID,
		StudentID:   studentID,
		Status:      rawCheckinStatus(now, sess.StartTime, s.grace),
		CheckinTime: now,
	}
	if req.Latitude != nil {
		rec.Latitude = sql.NullFloat64{Float64: *req.Latitude, Valid: true}
	}
	if req.Longitude != nil {
		rec.Longitude = sql.NullFloat64{Float64: *req.Longitude, Valid: true}
	}
	if req.Accuracy != nil {
		rec.Accuracy = sql.NullFloat64{Float64: *req.Accuracy, Valid: true}
	}
	if clientIP != "" {
		rec.IP = sql.NullString{String: clientIP, Valid: true}
	}

	if req.WindowULID != nil && *req.WindowULID != "" {
		// The window must exist and belong to the session. Its lifecycle state
		// does not matter here: a row bound to a cancelled round is exactly
		// the audit trail the resolver needs.
		winSession, ok, err := s.windows.SessionForWindow(ctx, *req.WindowULID)
		if err != nil {
			return RecordResponse{}, apperr.ErrInternal("failed to look up window")
		}
		if !ok {
			return RecordResponse{}, apperr.ErrInvalid("unknown window id")
		}
		if winSession != req.SessionID {
			return RecordResponse{}, apperr.ErrInvalid("window does not belong to this session")
		}
		rec.WindowULID = sql.NullString{String: *req.WindowULID, Valid: true}
	}

	if err := s.store.Append(ctx, rec); err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to append record")
	}
	rec.CreatedAt = now

	if rec.WindowULID.Valid {
		if err := s.windows.BumpActual(ctx, rec.WindowULID.String); err != nil {
			log.Printf("failed to bump window actual_count: %v", err)
		}
	}

	return rec.toDTO(), nil
}

// OverrideStatus appends a distinguished correction row. Never an in-place
// edit; the full signal history stays auditable.
func (s *Service) OverrideStatus(ctx context.Context, req OverrideRequest, actorID string) (RecordResponse, error) {
	if actorID == "" {
		return RecordResponse{}, apperr.ErrInvalid("actor id is required")
	}
	if !req.Status.OverridableStatus() {
		return RecordResponse{}, apperr.ErrInvalid("status cannot be set manually")
	}

	sess, err := s.sessions.Session(ctx, req.SessionID)
	if err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return RecordResponse{}, apperr.ErrNotFound("session not found")
	}

	member, err := s.sessions.IsMember(ctx, sess.CourseCode, req.StudentID)
	if err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to check roster")
	}
	if !member {
		return RecordResponse{}, apperr.ErrNotFound("student is not on the session roster")
	}

	now := s.clock.Now()
	rec := &Record{
		SessionID:      req.SessionID,
		StudentID:      req.StudentID,
		Status:         req.Status,
		CheckinTime:    now,
		OverrideBy:     sql.NullString{String: actorID, Valid: true},
		OverrideReason: sql.NullString{String: req.Reason, Valid: true},
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return RecordResponse{}, apperr.ErrInternal("failed to append override")
	}
	rec.CreatedAt = now
	return rec.toDTO(), nil
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]RecordResponse, int64, error) {
	rows, total, err := s.store.ListBySession(ctx, q)
	if err != nil {
		return nil, 0, apperr.ErrInternal("failed to list records")
	}
	out := make([]RecordResponse, 0, len(rows))
	for i := 0; i < len(rows); i++ {
		out = append(out, rows[i].toDTO())
	}
	return out, total, nil
}

// ===== lookups used by the resolution service =====

func (s *Service) Latest(ctx context.Context, sessionID uint64, studentID string) (*Record, error) {
	return s.store.Latest(ctx, sessionID, studentID)
}

func (s *Service) LatestBoundToWindow(ctx context.Context, sessionID uint64, studentID, windowULID string) (*Record, error) {
	return s.store.LatestBoundToWindow(ctx, sessionID, studentID, windowULID)
}

func (s *Service) HasStrayCheckin(ctx context.Context, sessionID uint64, studentID, excludeWindowULID string) (bool, error) {
	return s.store.HasStrayCheckin(ctx, sessionID, studentID, excludeWindowULID)
}

func rawCheckinStatus(now, sessionStart time.Time, grace time.Duration) Status {
	if now.After(sessionStart.Add(grace)) {
		return StatusLate
	}
	return StatusPresent
}
