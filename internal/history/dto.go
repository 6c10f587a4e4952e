package history

type AggregateRequest struct {
	// YYYY-MM-DD; defaults to today when omitted.
	StatDate string `json:"stat_date"`
}

type AggregateResponse struct {
	StatDate         string `json:"stat_date"`
	SessionsArchived int    `json:"sessions_archived"`
}

type DailyStatResponse struct {
	StatDate     string `json:"stat_date"`
	SessionID    uint64 `json:"session_id"`
	CourseCode   string `json:"course_code"`
	CourseName   string `json:"course_name"`
	ShouldAttend int    `json:"should_attend"`
	Present      int    `json:"present"`
	Absent       int    `json:"absent"`
	Truant       int    `json:"truant"`
	Leave        int    `json:"leave"`
}

type StudentSummaryResponse struct {
	StudentID     string `json:"student_id"`
	Semester      string `json:"semester"`
	TotalSessions int    `json:"total_sessions"`
	Present       int    `json:"present"`
	Absent        int    `json:"absent"`
	Truant        int    `json:"truant"`
	Leave         int    `json:"leave"`
}
