package window

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

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

type IDGen interface {
	New() (string, error)
}

type ulidGen struct{}

func (ulidGen) New() (string, error) {
	t := time.Now().UTC()
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

type SessionDirectory interface {
	Session(ctx context.Context, sessionID uint64) (*schedule.Session, error)
	RosterSize(ctx context.Context, courseCode string) (int, error)
}

// WindowStore is implemented by *Store; tests swap in a fake.
type WindowStore interface {
	ExecOpen(ctx context.Context, w *Window) error
	Close(ctx context.Context, windowULID string) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	GetByULID(ctx context.Context, windowULID string) (*Window, error)
	LatestRound(ctx context.Context, sessionID uint64) (*Window, error)
	CountOpen(ctx context.Context, sessionID uint64) (int, error)
	BumpActual(ctx context.Context, windowULID string) error
}

// ===== Service =====

type Service struct {
	store           WindowStore
	sessions        SessionDirectory
	clock           Clock
	id              IDGen
	defaultDuration time.Duration
}

func NewService(db *sql.DB, sessions SessionDirectory, defaultDuration time.Duration) *Service {
	return &Service{
		store:           NewStore(db),
		sessions:        sessions,
		clock:           realClock{},
		id:              ulidGen{},
		defaultDuration: defaultDuration,
	}
}

// Open starts a new verification round: the prior open round (if any) is
// cancelled and the round number advances. A racing open loses on the
// UNIQUE(session_id, round) key and is retried exactly once with a freshly
// computed round.
func (s *Service) Open(ctx context.Context, sessionID uint64, actorID string, durationMinutes *int) (WindowResponse, error) {
	if actorID == "" {
		return WindowResponse{}, apperr.ErrInvalid("actor id is required")
	}

	sess, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return WindowResponse{}, apperr.ErrInternal("failed to load session")
	}
	if sess == nil {
		return WindowResponse{}, apperr.ErrNotFound("session not found")
	}
	if !sess.NeedCheckin {
		return WindowResponse{}, apperr.ErrInvalid("session does not take check-ins")
	}

	duration := s.defaultDuration
	if durationMinutes != nil {
		if *durationMinutes <= 0 {
			return WindowResponse{}, apperr.ErrInvalid("duration_minutes must be > 0")
		}
		duration = time.Duration(*durationMinutes) * time.Minute
	}

	expected, err := s.sessions.RosterSize(ctx, sess.CourseCode)
	if err != nil {
		return WindowResponse{}, apperr.ErrInternal("failed to count roster")
	}

	w, err := s.tryOpen(ctx, sessionID, actorID, duration, expected)
	if err != nil && apperr.IsDuplicateKey(err) {
		// lost the race for the round number; recompute and retry once
		w, err = s.tryOpen(ctx, sessionID, actorID, duration, expected)
		if err != nil && apperr.IsDuplicateKey(err) {
			return WindowResponse{}, apperr.ErrConflict("concurrent window open, please retry")
		}
	}
	if err != nil {
		return WindowResponse{}, apperr.ErrInternal("failed to open window")
	}
	return w.toDTO(), nil
}

func (s *Service) tryOpen(ctx context.Context, sessionID uint64, actorID string, duration time.Duration, expected int) (*Window, error) {
	idStr, err := s.id.New()
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	w := &Window{
		WindowULID:    idStr,
		SessionID:     sessionID,
		OpenTime:      now,
		CloseTime:     now.Add(duration),
		OpenedBy:      actorID,
		ExpectedCount: expected,
	}
	if err := s.store.ExecOpen(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Close ends a round by hand. A closed round drops out of resolution,
// unlike an expired one.
func (s *Service) Close(ctx context.Context, windowULID, actorID string) error {
	if actorID == "" {
		return apperr.ErrInvalid("actor id is required")
	}

	n, err := s.store.Close(ctx, windowULID)
	if err != nil {
		return apperr.ErrInternal("failed to close window")
	}
	if n > 0 {
		return nil
	}

	w, err := s.store.GetByULID(ctx, windowULID)
	if err != nil {
		return apperr.ErrInternal("failed to load window")
	}
	if w == nil {
		return apperr.ErrNotFound("window not found")
	}
	if w.Status == WindowExpired {
		// the sweep got there first
		return apperr.ErrConflict("window expired before it could be closed")
	}
	return apperr.ErrInvalid("window is not open")
}

// SweepExpired is idempotent and safe under concurrent workers.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.store.SweepExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, apperr.ErrInternal("failed to sweep windows")
	}
	return n, nil
}

// Current returns the round that decides resolution: the greatest round,
// while it is open or expired. A manually closed latest round means no
// current window at all.
func (s *Service) Current(ctx context.Context, sessionID uint64) (*Window, error) {
	open, err := s.store.CountOpen(ctx, sessionID)
	if err != nil {
		return nil, apperr.ErrInternal("failed to inspect windows")
	}
	if open > 1 {
		// a defect, not a caller mistake; never silently repaired
		log.Printf("[ERROR] session %d has %d open verification windows", sessionID, open)
		return nil, apperr.ErrInvariant("multiple open verification windows for one session")
	}

	w, err := s.store.LatestRound(ctx, sessionID)
	if err != nil {
		return nil, apperr.ErrInternal("failed to load window")
	}
	if w == nil || !w.Status.CountsAsCurrent() {
		return nil, nil
	}
	return w, nil
}

func (s *Service) CurrentDTO(ctx context.Context, sessionID uint64) (*WindowResponse, error) {
	w, err := s.Current(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, nil
	}
	dto := w.toDTO()
	return &dto, nil
}

// ===== attendance.WindowRegistry =====

func (s *Service) SessionForWindow(ctx context.Context, windowULID string) (uint64, bool, error) {
	w, err := s.store.GetByULID(ctx, windowULID)
	if err != nil {
		return 0, false, err
	}
	if w == nil {
		return 0, false, nil
	}
	return w.SessionID, true, nil
}

func (s *Service) BumpActual(ctx context.Context, windowULID string) error {
	return s.store.BumpActual(ctx, windowULID)
}
