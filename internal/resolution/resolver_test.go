package resolution

import (
	"database/sql"
	"testing"
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/leave"
	"ATLAS-backend/internal/window"
)

var (
	sessionStart = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	sessionEnd   = time.Date(2025, 3, 3, 10, 40, 0, 0, time.UTC)
	grace        = 10 * time.Minute
)

func baseInput(now time.Time) Input {
	return Input{
		LeaveOutcome: leave.OutcomeNone,
		SessionStart: sessionStart,
		SessionEnd:   sessionEnd,
		Grace:        grace,
		Now:          now,
	}
}

func record(status attendance.Status, checkin time.Time) *attendance.Record {
	return &attendance.Record{Status: status, CheckinTime: checkin}
}

func overrideRecord(status attendance.Status) *attendance.Record {
	return &attendance.Record{
		Status:     status,
		OverrideBy: sql.NullString{String: "t_wang", Valid: true},
	}
}

func currentWindow() *window.Window {
	return &window.Window{WindowULID: "01JABCDEF00000000000000000", SessionID: 1, Round: 2, Status: window.WindowOpen}
}

func TestResolve(t *testing.T) {
	during := sessionStart.Add(5 * time.Minute)
	afterEnd := sessionEnd.Add(time.Hour)

	tests := []struct {
		name string
		in   func() Input
		want attendance.Status
	}{
		{
			name: "override wins over everything",
			in: func() Input {
				in := baseInput(during)
				in.Latest = overrideRecord(attendance.StatusAbsent)
				in.LeaveOutcome = leave.OutcomeApproved
				in.CurrentWindow = currentWindow()
				in.LatestInWindow = record(attendance.StatusPresent, during)
				return in
			},
			want: attendance.StatusAbsent,
		},
		{
			name: "approved leave beats a window row",
			in: func() Input {
				in := baseInput(during)
				in.LeaveOutcome = leave.OutcomeApproved
				in.CurrentWindow = currentWindow()
				in.LatestInWindow = record(attendance.StatusPresent, during)
				return in
			},
			want: attendance.StatusLeave,
		},
		{
			name: "pending leave shows as leave_pending",
			in: func() Input {
				in := baseInput(during)
				in.LeaveOutcome = leave.OutcomePending
				return in
			},
			want: attendance.StatusLeavePending,
		},
		{
			name: "bound check-in inside grace is present",
			in: func() Input {
				in := baseInput(during)
				in.CurrentWindow = currentWindow()
				in.LatestInWindow = record(attendance.StatusPresent, sessionStart.Add(9*time.Minute))
				in.Latest = in.LatestInWindow
				return in
			},
			want: attendance.StatusPresent,
		},
		{
			name: "bound check-in past grace is late",
			in: func() Input {
				in := baseInput(during)
				in.CurrentWindow = currentWindow()
				in.LatestInWindow = record(attendance.StatusLate, sessionStart.Add(11*time.Minute))
				in.Latest = in.LatestInWindow
				return in
			},
			want: attendance.StatusLate,
		},
		{
			name: "check-in outside the current round is truant",
			in: func() Input {
				in := baseInput(during)
				in.CurrentWindow = currentWindow()
				in.Latest = record(attendance.StatusPresent, during)
				in.HasStrayCheckin = true
				return in
			},
			want: attendance.StatusTruant,
		},
		{
			name: "no signal under an active round is absent",
			in: func() Input {
				in := baseInput(during)
				in.CurrentWindow = currentWindow()
				return in
			},
			want: attendance.StatusAbsent,
		},
		{
			name: "no round ever opened, raw check-in stands",
			in: func() Input {
				in := baseInput(during)
				in.Latest = record(attendance.StatusPresent, during)
				return in
			},
			want: attendance.StatusPresent,
		},
		{
			name: "no signal before the session ends",
			in:   func() Input { return baseInput(during) },
			want: attendance.StatusNotStarted,
		},
		{
			name: "no signal after the session ends",
			in:   func() Input { return baseInput(afterEnd) },
			want: attendance.StatusAbsent,
		},
		{
			name: "expired round still decides",
			in: func() Input {
				in := baseInput(afterEnd)
				w := currentWindow()
				w.Status = window.WindowExpired
				in.CurrentWindow = w
				in.Latest = record(attendance.StatusPresent, during)
				in.HasStrayCheckin = true
				return in
			},
			want: attendance.StatusTruant,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in()
			got := Resolve(in)
			if got != tt.want {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
			// same input, same answer
			if again := Resolve(in); again != got {
				t.Errorf("Resolve() not deterministic: %v then %v", got, again)
			}
		})
	}
}
