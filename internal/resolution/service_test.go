package resolution

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/leave"
	"ATLAS-backend/internal/platform/apperr"
	"ATLAS-backend/internal/schedule"
	"ATLAS-backend/internal/window"
)

// ===== in-memory fakes for the source interfaces =====

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeSessions struct {
	sess   *schedule.Session
	roster []string
}

func (f *fakeSessions) Session(_ context.Context, sessionID uint64) (*schedule.Session, error) {
	if f.sess != nil && f.sess.SessionID == sessionID {
		return f.sess, nil
	}
	return nil, nil
}

func (f *fakeSessions) IsMember(_ context.Context, _, studentID string) (bool, error) {
	for _, s := range f.roster {
		if s == studentID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSessions) Roster(_ context.Context, _ string) ([]string, error) {
	return f.roster, nil
}

type fakeRecords struct{ rows []attendance.Record }

func (f *fakeRecords) Latest(_ context.Context, sessionID uint64, studentID string) (*attendance.Record, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.SessionID == sessionID && r.StudentID == studentID {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRecords) LatestBoundToWindow(_ context.Context, sessionID uint64, studentID, windowULID string) (*attendance.Record, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.SessionID == sessionID && r.StudentID == studentID &&
			r.WindowULID.Valid && r.WindowULID.String == windowULID {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeRecords) HasStrayCheckin(_ context.Context, sessionID uint64, studentID, excludeWindowULID string) (bool, error) {
	for _, r := range f.rows {
		if r.SessionID != sessionID || r.StudentID != studentID || r.OverrideBy.Valid {
			continue
		}
		if r.Status != attendance.StatusPresent && r.Status != attendance.StatusLate {
			continue
		}
		if !r.WindowULID.Valid || r.WindowULID.String != excludeWindowULID {
			return true, nil
		}
	}
	return false, nil
}

type fakeWindows struct {
	w   *window.Window
	err error
}

func (f *fakeWindows) Current(_ context.Context, _ uint64) (*window.Window, error) {
	return f.w, f.err
}

type fakeLeaves struct{ outcomes map[string]leave.Outcome }

func (f *fakeLeaves) Outcome(_ context.Context, _ uint64, studentID string) (leave.Outcome, error) {
	if o, ok := f.outcomes[studentID]; ok {
		return o, nil
	}
	return leave.OutcomeNone, nil
}

// ===== fixtures =====

const testSessionID = 42

func testSession() *schedule.Session {
	return &schedule.Session{
		SessionID:   testSessionID,
		CourseCode:  "CS101",
		CourseName:  "Operating Systems",
		StartTime:   sessionStart,
		EndTime:     sessionEnd,
		Semester:    "2024-2025-2",
		NeedCheckin: true,
	}
}

func boundRow(studentID, windowULID string, status attendance.Status, checkin time.Time) attendance.Record {
	return attendance.Record{
		SessionID:   testSessionID,
		StudentID:   studentID,
		Status:      status,
		CheckinTime: checkin,
		WindowULID:  sql.NullString{String: windowULID, Valid: true},
	}
}

func newTestService(sessions *fakeSessions, records *fakeRecords, windows *fakeWindows, leaves *fakeLeaves, now time.Time) *Service {
	return &Service{
		sessions: sessions,
		records:  records,
		windows:  windows,
		leaves:   leaves,
		clock:    fakeClock{t: now},
		grace:    grace,
	}
}

// Round 2 superseded round 1 mid-session: only the round-2 check-in counts as
// presence, the round-1-only student reads as truant, silence reads as absent.
func TestSessionSummaryAfterSupersession(t *testing.T) {
	during := sessionStart.Add(20 * time.Minute)

	sessions := &fakeSessions{sess: testSession(), roster: []string{"s_alice", "s_bob", "s_carol"}}
	records := &fakeRecords{rows: []attendance.Record{
		boundRow("s_alice", "W1", attendance.StatusPresent, sessionStart.Add(2*time.Minute)),
		boundRow("s_bob", "W1", attendance.StatusPresent, sessionStart.Add(3*time.Minute)),
		boundRow("s_alice", "W2", attendance.StatusPresent, sessionStart.Add(16*time.Minute)),
	}}
	windows := &fakeWindows{w: &window.Window{
		WindowULID: "W2", SessionID: testSessionID, Round: 2, Status: window.WindowOpen,
	}}
	leaves := &fakeLeaves{}

	svc := newTestService(sessions, records, windows, leaves, during)

	got, err := svc.SessionSummary(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("SessionSummary() error: %v", err)
	}
	want := SummaryResponse{
		SessionID:    testSessionID,
		ShouldAttend: 3,
		Present:      1,
		Absent:       1,
		Truant:       1,
		Leave:        0,
	}
	if got != want {
		t.Errorf("SessionSummary() = %+v, want %+v", got, want)
	}
}

func TestSessionSummaryLeaveBucket(t *testing.T) {
	during := sessionStart.Add(20 * time.Minute)

	sessions := &fakeSessions{sess: testSession(), roster: []string{"s_alice", "s_bob"}}
	leaves := &fakeLeaves{outcomes: map[string]leave.Outcome{
		"s_alice": leave.OutcomeApproved,
		"s_bob":   leave.OutcomePending,
	}}
	svc := newTestService(sessions, &fakeRecords{}, &fakeWindows{}, leaves, during)

	got, err := svc.SessionSummary(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("SessionSummary() error: %v", err)
	}
	if got.Leave != 2 || got.Absent != 0 {
		t.Errorf("SessionSummary() = %+v, want both students in the leave bucket", got)
	}
}

func TestStudentStatus(t *testing.T) {
	during := sessionStart.Add(5 * time.Minute)
	sessions := &fakeSessions{sess: testSession(), roster: []string{"s_alice"}}
	svc := newTestService(sessions, &fakeRecords{}, &fakeWindows{}, &fakeLeaves{}, during)

	t.Run("member with no signal", func(t *testing.T) {
		got, err := svc.StudentStatus(context.Background(), testSessionID, "s_alice")
		if err != nil {
			t.Fatalf("StudentStatus() error: %v", err)
		}
		if got.Status != attendance.StatusNotStarted {
			t.Errorf("Status = %v, want %v", got.Status, attendance.StatusNotStarted)
		}
	})

	t.Run("non-member is not found", func(t *testing.T) {
		_, err := svc.StudentStatus(context.Background(), testSessionID, "s_mallory")
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			t.Errorf("StudentStatus() error = %v, want NOT_FOUND", err)
		}
	})

	t.Run("unknown session is not found", func(t *testing.T) {
		_, err := svc.StudentStatus(context.Background(), 999, "s_alice")
		if !apperr.IsCode(err, apperr.CodeNotFound) {
			t.Errorf("StudentStatus() error = %v, want NOT_FOUND", err)
		}
	})
}

func TestStudentStatusSurfacesInvariantViolation(t *testing.T) {
	during := sessionStart.Add(5 * time.Minute)
	sessions := &fakeSessions{sess: testSession(), roster: []string{"s_alice"}}
	windows := &fakeWindows{err: apperr.ErrInvariant("multiple open verification windows for one session")}
	svc := newTestService(sessions, &fakeRecords{}, windows, &fakeLeaves{}, during)

	_, err := svc.StudentStatus(context.Background(), testSessionID, "s_alice")
	if !apperr.IsCode(err, apperr.CodeInvariantViolation) {
		t.Errorf("StudentStatus() error = %v, want INVARIANT_VIOLATION", err)
	}
}
