package leave

import "time"

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type SubmitRequest struct {
	SessionID       uint64   `json:"session_id" binding:"required"`
	Reason          string   `json:"reason" binding:"required"`
	AttachmentCount int      `json:"attachment_count"`
	ApproverIDs     []string `json:"approver_ids" binding:"required"`
}

type DecideRequest struct {
	Decision ApprovalResult `json:"decision" binding:"required"` // approved | rejected
	Comment  *string        `json:"comment,omitempty"`
}

type ApplicationResponse struct {
	ApplicationULID string             `json:"application_id"`
	SessionID       uint64             `json:"session_id"`
	StudentID       string             `json:"student_id"`
	Reason          string             `json:"reason"`
	AttachmentCount int                `json:"attachment_count"`
	Status          Outcome            `json:"status"`
	SubmittedAt     time.Time          `json:"submitted_at"`
	Approvals       []ApprovalResponse `json:"approvals,omitempty"`
}

type ApprovalResponse struct {
	ApproverID string         `json:"approver_id"`
	Result     ApprovalResult `json:"result"`
	Comment    *string        `json:"comment,omitempty"`
	DecidedAt  *time.Time     `json:"decided_at,omitempty"`
}

type ListQuery struct {
	SessionID  *uint64
	StudentID  *string
	ApproverID *string
	Limit      int
	Offset     int
}
