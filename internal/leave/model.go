package leave

import (
	"database/sql"
	"time"
)

type ApprovalResult string

const (
	ApprovalPending   ApprovalResult = "pending"
	ApprovalApproved  ApprovalResult = "approved"
	ApprovalRejected  ApprovalResult = "rejected"
	ApprovalCancelled ApprovalResult = "cancelled"
)

// Outcome is the reduced decision of an application. It is derived, never
// ground truth; the cached column on the application row is a convenience.
type Outcome string

const (
	OutcomeNone      Outcome = "none" // no application on file
	OutcomePending   Outcome = "pending"
	OutcomeApproved  Outcome = "approved"
	OutcomeRejected  Outcome = "rejected"
	OutcomeCancelled Outcome = "cancelled"
)

type Application struct {
	ApplicationID   uint64
	ApplicationULID string
	SessionID       uint64
	StudentID       string
	Reason          string
	AttachmentCount int
	Status          Outcome // cached reduction
	SubmittedAt     time.Time
}

type Approval struct {
	ApprovalID    uint64
	ApplicationID uint64
	ApproverID    string
	Result        ApprovalResult
	Comment       sql.NullString
	DecidedAt     sql.NullTime
}

func (a *Application) toDTO(approvals []Approval) ApplicationResponse {
	resp := ApplicationResponse{
		ApplicationULID: a.ApplicationULID,
		SessionID:       a.SessionID,
		StudentID:       a.StudentID,
		Reason:          a.Reason,
		AttachmentCount: a.AttachmentCount,
		Status:          a.Status,
		SubmittedAt:     a.SubmittedAt,
	}
	for i := range approvals {
		resp.Approvals = append(resp.Approvals, approvals[i].toDTO())
	}
	return resp
}

func (a *Approval) toDTO() ApprovalResponse {
	resp := ApprovalResponse{
		ApproverID: a.ApproverID,
		Result:     a.Result,
	}
	if a.Comment.Valid {
		v := a.Comment.String
		resp.Comment = &v
	}
	if a.DecidedAt.Valid {
		v := a.DecidedAt.Time
		resp.DecidedAt = &v
	}
	return resp
}
