package leave

// Reduce folds per-approver records into one outcome.
//
// Cancelled approver records are no-ops. Any rejection rejects the whole
// application; any remaining pending approver keeps it pending; only a full
// set of approvals approves it. Re-evaluated on every approver state change —
// the cached application status is never the source of truth.
func Reduce(approvals []Approval) Outcome {
	var effective, approved int
	var anyRejected, anyPending bool

	for i := range approvals {
		switch approvals[i].Result {
		case ApprovalCancelled:
			continue
		case ApprovalRejected:
			anyRejected = true
		case ApprovalPending:
			anyPending = true
		case ApprovalApproved:
			approved++
		}
		effective++
	}

	switch {
	case anyRejected:
		return OutcomeRejected
	case anyPending:
		return OutcomePending
	case approved > 0 && approved == effective:
		return OutcomeApproved
	default:
		// nothing actionable on file (all cancelled, or no approvers yet)
		return OutcomePending
	}
}
