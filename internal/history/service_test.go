package history

import (
	"context"
	"strconv"
	"testing"
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/resolution"
	"ATLAS-backend/internal/schedule"
)

// ===== in-memory fakes =====

type fakeClock struct{ t time.Time }

func (f fakeClock) Now() time.Time { return f.t }

type fakeSessions map[uint64]*schedule.Session

func (f fakeSessions) Session(_ context.Context, sessionID uint64) (*schedule.Session, error) {
	return f[sessionID], nil
}

type fakeResolver map[uint64][]resolution.StudentStatus

func (f fakeResolver) ResolveRoster(_ context.Context, sess *schedule.Session) ([]resolution.StudentStatus, error) {
	return f[sess.SessionID], nil
}

// fakeStatStore keys archives by (stat_date, session_id) the way the UNIQUE
// key does, so a re-run replaces instead of appending.
type fakeStatStore struct {
	ended     map[string][]uint64
	stats     map[string]DailyStat
	relations map[string][]AbsentRelation
	totals    StudentTotals
	archives  int
}

func newFakeStatStore() *fakeStatStore {
	return &fakeStatStore{
		ended:     map[string][]uint64{},
		stats:     map[string]DailyStat{},
		relations: map[string][]AbsentRelation{},
	}
}

func statKey(statDate time.Time, sessionID uint64) string {
	return statDate.Format("2006-01-02") + "/" + strconv.FormatUint(sessionID, 10)
}

func (f *fakeStatStore) SessionsEndedOn(_ context.Context, statDate, _ time.Time) ([]uint64, error) {
	return f.ended[statDate.Format("2006-01-02")], nil
}

func (f *fakeStatStore) Archive(_ context.Context, stat *DailyStat, relations []AbsentRelation) error {
	f.archives++
	k := statKey(stat.StatDate, stat.SessionID)
	f.stats[k] = *stat
	f.relations[k] = relations
	return nil
}

func (f *fakeStatStore) ListDailyStats(_ context.Context, _ time.Time) ([]DailyStat, error) {
	return nil, nil
}

func (f *fakeStatStore) StudentTotals(_ context.Context, _, _ string) (StudentTotals, error) {
	return f.totals, nil
}

// ===== fixtures =====

var archiveDay = time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

func archivedSession() *schedule.Session {
	return &schedule.Session{
		SessionID:   7,
		CourseCode:  "CS101",
		CourseName:  "Operating Systems",
		StartTime:   archiveDay.Add(9 * time.Hour),
		EndTime:     archiveDay.Add(10*time.Hour + 40*time.Minute),
		Semester:    "2024-2025-2",
		NeedCheckin: true,
	}
}

func rosterStatuses() []resolution.StudentStatus {
	return []resolution.StudentStatus{
		{StudentID: "s_alice", Status: attendance.StatusPresent},
		{StudentID: "s_bob", Status: attendance.StatusLate},
		{StudentID: "s_carol", Status: attendance.StatusTruant},
		{StudentID: "s_dave", Status: attendance.StatusLeavePending},
		{StudentID: "s_erin", Status: attendance.StatusAbsent},
	}
}

func newHistoryService(store *fakeStatStore, now time.Time) *Service {
	return &Service{
		store:    store,
		sessions: fakeSessions{7: archivedSession()},
		resolver: fakeResolver{7: rosterStatuses()},
		clock:    fakeClock{t: now},
	}
}

// ===== tests =====

func TestRunOnceBucketsStatuses(t *testing.T) {
	store := newFakeStatStore()
	store.ended[archiveDay.Format("2006-01-02")] = []uint64{7}
	svc := newHistoryService(store, archiveDay.Add(23*time.Hour))

	n, err := svc.RunOnce(context.Background(), archiveDay)
	if err != nil {
		t.Fatalf("RunOnce() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("RunOnce() archived %d sessions, want 1", n)
	}

	stat, ok := store.stats[statKey(archiveDay, 7)]
	if !ok {
		t.Fatal("no stat row written for the session")
	}
	if stat.ShouldAttend != 5 || stat.Present != 2 || stat.Truant != 1 || stat.Leave != 1 || stat.Absent != 1 {
		t.Errorf("stat = %+v, want should=5 present=2 truant=1 leave=1 absent=1", stat)
	}

	rels := store.relations[statKey(archiveDay, 7)]
	if len(rels) != 3 {
		t.Fatalf("relation rows = %d, want 3 (only non-present students)", len(rels))
	}
	byStudent := map[string]attendance.Status{}
	for _, r := range rels {
		byStudent[r.StudentID] = r.Status
	}
	if byStudent["s_carol"] != attendance.StatusTruant ||
		byStudent["s_dave"] != attendance.StatusLeavePending ||
		byStudent["s_erin"] != attendance.StatusAbsent {
		t.Errorf("relations = %v, want carol truant, dave leave_pending, erin absent", byStudent)
	}
	if _, named := byStudent["s_alice"]; named {
		t.Error("present student must not get a relation row")
	}
}

func TestRunOnceRerunDoesNotDoubleCount(t *testing.T) {
	store := newFakeStatStore()
	store.ended[archiveDay.Format("2006-01-02")] = []uint64{7}
	svc := newHistoryService(store, archiveDay.Add(23*time.Hour))

	for i := 0; i < 2; i++ {
		if _, err := svc.RunOnce(context.Background(), archiveDay); err != nil {
			t.Fatalf("RunOnce() error: %v", err)
		}
	}

	if len(store.stats) != 1 {
		t.Fatalf("stat rows = %d, want 1 after a re-run", len(store.stats))
	}
	stat := store.stats[statKey(archiveDay, 7)]
	if stat.ShouldAttend != 5 || stat.Present != 2 {
		t.Errorf("stat after re-run = %+v, counts must be unchanged", stat)
	}
	if rels := store.relations[statKey(archiveDay, 7)]; len(rels) != 3 {
		t.Errorf("relation rows = %d after re-run, want 3 (rewritten, not appended)", len(rels))
	}
}

// A session ending late in the day can miss every same-day tick; the first
// run after midnight must still pick it up under its own stat date.
func TestRunCoversThePreviousDay(t *testing.T) {
	store := newFakeStatStore()
	store.ended[archiveDay.Format("2006-01-02")] = []uint64{7}

	afterMidnight := archiveDay.AddDate(0, 0, 1).Add(10 * time.Minute)
	svc := newHistoryService(store, afterMidnight)

	n, err := svc.Run(context.Background(), afterMidnight)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if n != 1 {
		t.Fatalf("Run() archived %d sessions, want 1 from the previous day", n)
	}
	if _, ok := store.stats[statKey(archiveDay, 7)]; !ok {
		t.Error("session must be archived under the day it ended, not the run day")
	}
}

func TestStudentSummaryClampsInconsistentArchive(t *testing.T) {
	store := newFakeStatStore()
	store.totals = StudentTotals{TotalSessions: 2, Absent: 2, Truant: 1}
	svc := newHistoryService(store, archiveDay)

	got, err := svc.StudentSummary(context.Background(), "s_alice", "2024-2025-2")
	if err != nil {
		t.Fatalf("StudentSummary() error: %v", err)
	}
	if got.Present != 0 {
		t.Errorf("Present = %d, want 0 when relation rows exceed rostered sessions", got.Present)
	}
	if got.TotalSessions != 2 || got.Absent != 2 || got.Truant != 1 {
		t.Errorf("summary = %+v, raw counts must be carried through", got)
	}
}

func TestStudentSummary(t *testing.T) {
	store := newFakeStatStore()
	store.totals = StudentTotals{TotalSessions: 10, Absent: 2, Truant: 1, Leave: 3}
	svc := newHistoryService(store, archiveDay)

	got, err := svc.StudentSummary(context.Background(), "s_alice", "2024-2025-2")
	if err != nil {
		t.Fatalf("StudentSummary() error: %v", err)
	}
	if got.Present != 4 {
		t.Errorf("Present = %d, want 4 (10 - 2 - 1 - 3)", got.Present)
	}
}
