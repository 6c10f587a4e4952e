package window

import "time"

type OpenWindowRequest struct {
	DurationMinutes *int `json:"duration_minutes,omitempty"`
}

type WindowResponse struct {
	WindowULID    string       `json:"window_id"`
	SessionID     uint64       `json:"session_id"`
	Round         int          `json:"round"`
	Status        WindowStatus `json:"status"`
	OpenTime      time.Time    `json:"open_time"`
	CloseTime     time.Time    `json:"close_time"`
	OpenedBy      string       `json:"opened_by"`
	ExpectedCount int          `json:"expected_checkin_count"`
	ActualCount   int          `json:"actual_checkin_count"`
}
