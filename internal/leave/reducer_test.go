package leave

import "testing"

func approvals(results ...ApprovalResult) []Approval {
	out := make([]Approval, 0, len(results))
	for i, r := range results {
		out = append(out, Approval{ApprovalID: uint64(i + 1), ApproverID: string(rune('a' + i)), Result: r})
	}
	return out
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name string
		in   []Approval
		want Outcome
	}{
		{
			name: "single pending",
			in:   approvals(ApprovalPending),
			want: OutcomePending,
		},
		{
			name: "all approved",
			in:   approvals(ApprovalApproved, ApprovalApproved),
			want: OutcomeApproved,
		},
		{
			name: "one still pending blocks approval",
			in:   approvals(ApprovalApproved, ApprovalPending),
			want: OutcomePending,
		},
		{
			name: "any rejection rejects",
			in:   approvals(ApprovalApproved, ApprovalRejected, ApprovalPending),
			want: OutcomeRejected,
		},
		{
			name: "rejection beats pending",
			in:   approvals(ApprovalPending, ApprovalRejected),
			want: OutcomeRejected,
		},
		{
			name: "cancelled approver ignored",
			in:   approvals(ApprovalApproved, ApprovalCancelled),
			want: OutcomeApproved,
		},
		{
			name: "cancelled does not soften rejection",
			in:   approvals(ApprovalRejected, ApprovalCancelled),
			want: OutcomeRejected,
		},
		{
			name: "all cancelled",
			in:   approvals(ApprovalCancelled, ApprovalCancelled),
			want: OutcomePending,
		},
		{
			name: "empty",
			in:   nil,
			want: OutcomePending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reduce(tt.in); got != tt.want {
				t.Errorf("Reduce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReduceIsPure(t *testing.T) {
	in := approvals(ApprovalApproved, ApprovalPending, ApprovalRejected)
	first := Reduce(in)
	for i := 0; i < 3; i++ {
		if got := Reduce(in); got != first {
			t.Fatalf("Reduce() not deterministic: %v then %v", first, got)
		}
	}
	if in[0].Result != ApprovalApproved || in[1].Result != ApprovalPending {
		t.Error("Reduce() mutated its input")
	}
}
