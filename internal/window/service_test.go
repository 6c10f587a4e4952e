package window

import (
	"context"
	"fmt"
	"testing"
	"time"

	mysql "github.com/go-sql-driver/mysql"

	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/schedule"
)

// ===== fakes =====

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type seqIDGen struct{ n int }

func (g *seqIDGen) New() (string, error) {
	g.n++
	return fmt.Sprintf("01TESTWINDOW%014d", g.n), nil
}

type fakeDirectory struct {
	sess       *schedule.Session
	rosterSize int
}

func (f *fakeDirectory) Session(_ context.Context, sessionID uint64) (*schedule.Session, error) {
	if f.sess != nil && f.sess.SessionID == sessionID {
		return f.sess, nil
	}
	return nil, nil
}

func (f *fakeDirectory) RosterSize(_ context.Context, _ string) (int, error) {
	return f.rosterSize, nil
}

// fakeStore mimics the MySQL store in memory, including the duplicate-key
// behaviour of UNIQUE(session_id, round) via a queue of injected errors.
type fakeStore struct {
	windows  []*Window
	openErrs []error
}

func (f *fakeStore) ExecOpen(_ context.Context, w *Window) error {
	if len(f.openErrs) > 0 {
		err := f.openErrs[0]
		f.openErrs = f.openErrs[1:]
		if err != nil {
			return err
		}
	}
	maxRound := 0
	for _, ex := range f.windows {
		if ex.SessionID != w.SessionID {
			continue
		}
		if ex.Status == WindowOpen {
			ex.Status = WindowCancelled
		}
		if ex.Round > maxRound {
			maxRound = ex.Round
		}
	}
	w.Round = maxRound + 1
	w.Status = WindowOpen
	w.WindowID = uint64(len(f.windows) + 1)
	f.windows = append(f.windows, w)
	return nil
}

func (f *fakeStore) Close(_ context.Context, windowULID string) (int64, error) {
	for _, w := range f.windows {
		if w.WindowULID == windowULID && w.Status == WindowOpen {
			w.Status = WindowClosed
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for _, w := range f.windows {
		if w.Status == WindowOpen && w.CloseTime.Before(now) {
			w.Status = WindowExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetByULID(_ context.Context, windowULID string) (*Window, error) {
	for _, w := range f.windows {
		if w.WindowULID == windowULID {
			return w, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) LatestRound(_ context.Context, sessionID uint64) (*Window, error) {
	var latest *Window
	for _, w := range f.windows {
		if w.SessionID == sessionID && (latest == nil || w.Round > latest.Round) {
			latest = w
		}
	}
	return latest, nil
}

func (f *fakeStore) CountOpen(_ context.Context, sessionID uint64) (int, error) {
	n := 0
	for _, w := range f.windows {
		if w.SessionID == sessionID && w.Status == WindowOpen {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) BumpActual(_ context.Context, windowULID string) error {
	for _, w := range f.windows {
		if w.WindowULID == windowULID {
			w.ActualCount++
		}
	}
	return nil
}

// ===== fixtures =====

var testNow = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore, sess *schedule.Session, rosterSize int) *Service {
	return &Service{
		store:           store,
		sessions:        &fakeDirectory{sess: sess, rosterSize: rosterSize},
		clock:           fakeClock{t: testNow},
		id:              &seqIDGen{},
		defaultDuration: 3 * time.Minute,
	}
}

func checkinSession() *schedule.Session {
	return &schedule.Session{
		SessionID:   7,
		CourseCode:  "CS101",
		StartTime:   testNow,
		EndTime:     testNow.Add(100 * time.Minute),
		NeedCheckin: true,
	}
}

func dupKeyErr() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-2' for key 'uq_windows_round'"}
}

// ===== tests =====

func TestOpenAdvancesRoundsAndCancelsPrior(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, checkinSession(), 30)

	first, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if first.Round != 1 {
		t.Errorf("first round = %d, want 1", first.Round)
	}
	if first.ExpectedCount != 30 {
		t.Errorf("expected_count = %d, want roster size 30", first.ExpectedCount)
	}

	second, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if second.Round != 2 {
		t.Errorf("second round = %d, want 2", second.Round)
	}

	open, _ := store.CountOpen(context.Background(), 7)
	if open != 1 {
		t.Errorf("open windows = %d, want exactly 1", open)
	}
	prior, _ := store.GetByULID(context.Background(), first.WindowULID)
	if prior.Status != WindowCancelled {
		t.Errorf("prior window status = %v, want cancelled", prior.Status)
	}
}

func TestOpenRetriesOnceOnRoundRace(t *testing.T) {
	store := &fakeStore{openErrs: []error{dupKeyErr()}}
	svc := newTestService(store, checkinSession(), 30)

	res, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if err != nil {
		t.Fatalf("Open() error: %v, want retried success", err)
	}
	if res.Round != 1 {
		t.Errorf("round = %d, want 1", res.Round)
	}
}

func TestOpenGivesUpAfterSecondRaceLoss(t *testing.T) {
	store := &fakeStore{openErrs: []error{dupKeyErr(), dupKeyErr()}}
	svc := newTestService(store, checkinSession(), 30)

	_, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("Open() error = %v, want CONFLICT", err)
	}
}

func TestOpenValidation(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		svc := newTestService(&fakeStore{}, checkinSession(), 30)
		_, err := svc.Open(context.Background(), 999, "t_wang", nil)
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			t.Errorf("Open() error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("session without check-ins", func(t *testing.T) {
		sess := checkinSession()
		sess.NeedCheckin = false
		svc := newTestService(&fakeStore{}, sess, 30)
		_, err := svc.Open(context.Background(), 7, "t_wang", nil)
		if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
			t.Errorf("Open() error = %v, want INVALID_ARGUMENT", err)
		}
	})

	t.Run("non-positive duration", func(t *testing.T) {
		svc := newTestService(&fakeStore{}, checkinSession(), 30)
		d := 0
		_, err := svc.Open(context.Background(), 7, "t_wang", &d)
		if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
			t.Errorf("Open() error = %v, want INVALID_ARGUMENT", err)
		}
	})
}

func TestClose(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, checkinSession(), 30)

	res, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	if err := svc.Close(context.Background(), res.WindowULID, "t_wang"); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	w, _ := store.GetByULID(context.Background(), res.WindowULID)
	if w.Status != WindowClosed {
		t.Errorf("status = %v, want closed", w.Status)
	}

	t.Run("already closed", func(t *testing.T) {
		err := svc.Close(context.Background(), res.WindowULID, "t_wang")
		if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
			t.Errorf("Close() error = %v, want INVALID_ARGUMENT", err)
		}
	})

	t.Run("unknown window", func(t *testing.T) {
		err := svc.Close(context.Background(), "no-such-window", "t_wang")
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			t.Errorf("Close() error = %v, want NOT_FOUND", err)
		}
	})
}

func TestCloseAfterSweepIsConflict(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, checkinSession(), 30)

	res, err := svc.Open(context.Background(), 7, "t_wang", nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	// sweep runs after close_time has passed
	if _, err := svc.store.SweepExpired(context.Background(), testNow.Add(10*time.Minute)); err != nil {
		t.Fatalf("SweepExpired() error: %v", err)
	}

	if err := svc.Close(context.Background(), res.WindowULID, "t_wang"); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("Close() error = %v, want CONFLICT", err)
	}
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()

	t.Run("no windows", func(t *testing.T) {
		svc := newTestService(&fakeStore{}, checkinSession(), 30)
		w, err := svc.Current(ctx, 7)
		if err != nil || w != nil {
			t.Errorf("Current() = %v, %v; want nil, nil", w, err)
		}
	})

	t.Run("open window is current", func(t *testing.T) {
		svc := newTestService(&fakeStore{}, checkinSession(), 30)
		res, _ := svc.Open(ctx, 7, "t_wang", nil)
		w, err := svc.Current(ctx, 7)
		if err != nil {
			t.Fatalf("Current() error: %v", err)
		}
		if w == nil || w.WindowULID != res.WindowULID {
			t.Errorf("Current() = %v, want the open window", w)
		}
	})

	t.Run("expired window is still current", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store, checkinSession(), 30)
		res, _ := svc.Open(ctx, 7, "t_wang", nil)
		_, _ = store.SweepExpired(ctx, testNow.Add(10*time.Minute))
		w, err := svc.Current(ctx, 7)
		if err != nil {
			t.Fatalf("Current() error: %v", err)
		}
		if w == nil || w.WindowULID != res.WindowULID || w.Status != WindowExpired {
			t.Errorf("Current() = %v, want the expired window", w)
		}
	})

	t.Run("manually closed latest round means none", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store, checkinSession(), 30)
		res, _ := svc.Open(ctx, 7, "t_wang", nil)
		_ = svc.Close(ctx, res.WindowULID, "t_wang")
		w, err := svc.Current(ctx, 7)
		if err != nil || w != nil {
			t.Errorf("Current() = %v, %v; want nil, nil", w, err)
		}
	})

	t.Run("two open windows is an invariant violation", func(t *testing.T) {
		store := &fakeStore{windows: []*Window{
			{WindowULID: "A", SessionID: 7, Round: 1, Status: WindowOpen},
			{WindowULID: "B", SessionID: 7, Round: 2, Status: WindowOpen},
		}}
		svc := newTestService(store, checkinSession(), 30)
		_, err := svc.Current(ctx, 7)
		if !apperr.IsCode(err, apperr.CodeInvariantViolation) {
			t.Errorf("Current() error = %v, want INVARIANT_VIOLATION", err)
		}
	})
}
