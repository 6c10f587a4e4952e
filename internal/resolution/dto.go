package resolution

import "ATLAS-backend/internal/attendance"

type StatusResponse struct {
	SessionID uint64            `json:"session_id"`
	StudentID string            `json:"student_id"`
	Status    attendance.Status `json:"status"`
}

type SummaryResponse struct {
	SessionID    uint64 `json:"session_id"`
	ShouldAttend int    `json:"should_attend"`
	Present      int    `json:"present"`
	Absent       int    `json:"absent"`
	Truant       int    `json:"truant"`
	Leave        int    `json:"leave"`
}

// StudentStatus pairs one roster member with their resolved status.
type StudentStatus struct {
	StudentID string            `json:"student_id"`
	Status    attendance.Status `json:"status"`
}
