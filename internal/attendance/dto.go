package attendance

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type CheckinRequest struct {
	SessionID  uint64   `json:"session_id" binding:"required"`
	WindowULID *string  `json:"window_id,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
}

type OverrideRequest struct {
	SessionID uint64 `json:"session_id" binding:"required"`
	StudentID string `json:"student_id" binding:"required"`
	Status    Status `json:"status" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type RecordResponse struct {
	RecordID       uint64    `json:"record_id"`
	SessionID      uint64    `json:"session_id"`
	StudentID      string    `json:"student_id"`
	Status         Status    `json:"status"`
	CheckinTime    time.Time `json:"checkin_time"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Accuracy       *float64  `json:"accuracy,omitempty"`
	IP             *string   `json:"ip,omitempty"`
	WindowULID     *string   `json:"window_id,omitempty"`
	OverrideBy     *string   `json:"override_by,omitempty"`
	OverrideReason *string   `json:"override_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListQuery struct {
	SessionID uint64
	StudentID *string
	Limit     int
	Offset    int
}
