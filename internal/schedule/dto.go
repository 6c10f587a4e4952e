package schedule

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type SessionUpsert struct {
	ExternalID   string    `json:"external_id" binding:"required"`
	CourseCode   string    `json:"course_code" binding:"required"`
	CourseName   string    `json:"course_name" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	Semester     string    `json:"semester" binding:"required"`
	TeachingWeek int       `json:"teaching_week"`
	WeekDay      int       `json:"week_day"`
	Periods      string    `json:"periods"`
	NeedCheckin  bool      `json:"need_checkin"`
}

type IngestSessionsRequest struct {
	Sessions []SessionUpsert `json:"sessions" binding:"required"`
}

type SessionResponse struct {
	SessionID    uint64    `json:"session_id"`
	ExternalID   string    `json:"external_id"`
	CourseCode   string    `json:"course_code"`
	CourseName   string    `json:"course_name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Semester     string    `json:"semester"`
	TeachingWeek int       `json:"teaching_week"`
	WeekDay      int       `json:"week_day"`
	Periods      string    `json:"periods"`
	NeedCheckin  bool      `json:"need_checkin"`
}

type ListQuery struct {
	Semester     *string
	CourseCode   *string
	TeachingWeek *int
	Limit        int
	Offset       int
}

type ReplaceRosterRequest struct {
	StudentIDs []string `json:"student_ids" binding:"required"`
}

type RosterResponse struct {
	CourseCode string   `json:"course_code"`
	StudentIDs []string `json:"student_ids"`
}
