package schedule

import "time"

// Session corresponds to one row of course_sessions. Created by the upstream
// schedule sync; the engine only ever reads it (plus soft delete).
type Session struct {
	SessionID    uint64
	ExternalID   string
	CourseCode   string
	CourseName   string
	StartTime    time.Time
	EndTime      time.Time
	Semester     string
	TeachingWeek int
	WeekDay      int
	Periods      string
	NeedCheckin  bool
	IsDeleted    bool
}

// RosterEntry is a (course_code, student_id) membership from the enrollment feed.
type RosterEntry struct {
	RosterID   uint64
	CourseCode string
	StudentID  string
}

func (s Session) toDTO() SessionResponse {
	return SessionResponse{
		SessionID:    s.SessionID,
		ExternalID:   s.ExternalID,
		CourseCode:   s.CourseCode,
		CourseName:   s.CourseName,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Semester:     s.Semester,
		TeachingWeek: s.TeachingWeek,
		WeekDay:      s.WeekDay,
		Periods:      s.Periods,
		NeedCheckin:  s.NeedCheckin,
	}
}
