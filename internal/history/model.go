package history

import (
	"time"

	"ATLAS-backend/internal/attendance"
)

// DailyStat is one archived session, keyed by (stat_date, session_id) so the
// aggregator can re-run for a day without doubling anything.
type DailyStat struct {
	StatID       uint64
	StatDate     time.Time
	SessionID    uint64
	CourseCode   string
	CourseName   string
	ShouldAttend int
	Present      int
	Absent       int
	Truant       int
	Leave        int
	CreatedAt    time.Time
}

// StudentTotals is the raw archive count set for one (student, semester).
type StudentTotals struct {
	TotalSessions int
	Absent        int
	Truant        int
	Leave         int
}

// AbsentRelation names one student who did not resolve as present for an
// archived session, with the status they resolved to.
type AbsentRelation struct {
	RelationID uint64
	StatDate   time.Time
	SessionID  uint64
	StudentID  string
	Status     attendance.Status
}

func (d DailyStat) toDTO() DailyStatResponse {
	return DailyStatResponse{
		StatDate:     d.StatDate.Format("2006-01-02"),
		SessionID:    d.SessionID,
		CourseCode:   d.CourseCode,
		CourseName:   d.CourseName,
		ShouldAttend: d.ShouldAttend,
		Present:      d.Present,
		Absent:       d.Absent,
		Truant:       d.Truant,
		Leave:        d.Leave,
	}
}
