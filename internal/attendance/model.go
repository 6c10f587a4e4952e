package attendance

import (
	"database/sql"
	"time"
)

// Status is the attendance vocabulary shared by raw records and resolution.
type Status string

const (
	StatusNotStarted      Status = "not_started"
	StatusPresent         Status = "present"
	StatusLate            Status = "late"
	StatusAbsent          Status = "absent"
	StatusTruant          Status = "truant"
	StatusLeave           Status = "leave"
	StatusLeavePending    Status = "leave_pending"
	StatusPendingApproval Status = "pending_approval"
)

// OverridableStatus reports whether a teacher may set this status manually.
func (s Status) OverridableStatus() bool {
	switch s {
	case StatusPresent, StatusLate, StatusAbsent, StatusTruant, StatusLeave:
		return true
	default:
		return false
	}
}

// Record is one immutable row of the append-only log. Resubmissions and
// overrides create new rows; record_id (AUTO_INCREMENT) defines "latest".
type Record struct {
	RecordID       uint64
	SessionID      uint64
	StudentID      string
	Status         Status
	CheckinTime    time.Time
	Latitude       sql.NullFloat64
	Longitude      sql.NullFloat64
	Accuracy       sql.NullFloat64
	IP             sql.NullString
	WindowULID     sql.NullString
	OverrideBy     sql.NullString
	OverrideReason sql.NullString
	CreatedAt      time.Time
}

// IsOverride: a distinguished correction row entered by a teacher.
func (r *Record) IsOverride() bool {
	return r.OverrideBy.Valid
}

func (r *Record) toDTO() RecordResponse {
	resp := RecordResponse{
		RecordID:    r.RecordID,
		SessionID:   r.SessionID,
		StudentID:   r.StudentID,
		Status:      r.Status,
		CheckinTime: r.CheckinTime,
		CreatedAt:   r.CreatedAt,
	}
	if r.Latitude.Valid {
		v := r.Latitude.Float64
		resp.Latitude = &v
	}
	if r.Longitude.Valid {
		v := r.Longitude.Float64
		resp.Longitude = &v
	}
	if r.Accuracy.Valid {
		v := r.Accuracy.Float64
		resp.Accuracy = &v
	}
	if r.IP.Valid {
		v := r.IP.String
		resp.IP = &v
	}
	if r.WindowULID.Valid {
		v := r.WindowULID.String
		resp.WindowULID = &v
	}
	if r.OverrideBy.Valid {
		v := r.OverrideBy.String
		resp.OverrideBy = &v
	}
	if r.OverrideReason.Valid {
		v := r.OverrideReason.String
		resp.OverrideReason = &v
	}
	return resp
}
