package resolution

import (
	"time"

	"ATLAS-backend/internal/attendance"
	"ATLAS-backend/internal/leave"
	"ATLAS-backend/internal/window"
)

// Input is everything Resolve needs, gathered up front. Resolve itself does
// no I/O: same input, same answer.
type Input struct {
	// Latest row for the pair, override or not. nil when no signal exists.
	Latest *attendance.Record
	// Latest row bound to the current window, when one exists.
	LatestInWindow *attendance.Record
	// A present/late row bound to some other window, or to none.
	HasStrayCheckin bool
	// The round that decides resolution (open or expired), nil when none.
	CurrentWindow *window.Window
	// Reduced leave outcome for the pair.
	LeaveOutcome leave.Outcome

	SessionStart time.Time
	SessionEnd   time.Time
	Grace        time.Duration
	Now          time.Time
}

// Resolve derives the single authoritative status for a (session, student)
// pair. Precedence, first match wins:
//
//  1. A manual override row is the latest signal: its status stands,
//     no other rule may second-guess it.
//  2. An approved or still-pending leave outcome.
//  3. A current verification round exists:
//     a. a row bound to it counts as genuine presence (late past grace);
//     b. a check-in outside it is the proxy-signing signal: truant;
//     c. otherwise absent.
//  4. No round was ever opened: the raw latest status stands; with no signal
//     at all, absent once the session has ended, not_started before.
func Resolve(in Input) attendance.Status {
	if in.Latest != nil && in.Latest.IsOverride() {
		return in.Latest.Status
	}

	switch in.LeaveOutcome {
	case leave.OutcomeApproved:
		return attendance.StatusLeave
	case leave.OutcomePending:
		return attendance.StatusLeavePending
	}

	if in.CurrentWindow != nil {
		if in.LatestInWindow != nil {
			return presenceStatus(in.LatestInWindow.CheckinTime, in.SessionStart, in.Grace)
		}
		if in.HasStrayCheckin {
			return attendance.StatusTruant
		}
		return attendance.StatusAbsent
	}

	if in.Latest != nil {
		return in.Latest.Status
	}
	if in.Now.After(in.SessionEnd) {
		return attendance.StatusAbsent
	}
	return attendance.StatusNotStarted
}

func presenceStatus(checkinTime, sessionStart time.Time, grace time.Duration) attendance.Status {
	if checkinTime.After(sessionStart.Add(grace)) {
		return attendance.StatusLate
	}
	return attendance.StatusPresent
}
