package window

import "time"

// WindowStatus is the round lifecycle. All transitions leave `open`; every
// other status is terminal.
//
//	open -> closed     (manual teacher close)
//	open -> cancelled  (superseded by a newer round)
//	open -> expired    (close_time elapsed; still authoritative for resolution)
type WindowStatus string

const (
	WindowOpen      WindowStatus = "open"
	WindowClosed    WindowStatus = "closed"
	WindowCancelled WindowStatus = "cancelled"
	WindowExpired   WindowStatus = "expired"
)

// CountsAsCurrent: an expired round still decides resolution; a closed or
// cancelled one does not.
func (s WindowStatus) CountsAsCurrent() bool {
	return s == WindowOpen || s == WindowExpired
}

type Window struct {
	WindowID      uint64
	WindowULID    string
	SessionID     uint64
	Round         int
	Status        WindowStatus
	OpenTime      time.Time
	CloseTime     time.Time
	OpenedBy      string
	ExpectedCount int
	ActualCount   int
}

func (w *Window) toDTO() WindowResponse {
	return WindowResponse{
		WindowULID:    w.WindowULID,
		SessionID:     w.SessionID,
		Round:         w.Round,
		Status:        w.Status,
		OpenTime:      w.OpenTime,
		CloseTime:     w.CloseTime,
		OpenedBy:      w.OpenedBy,
		ExpectedCount: w.ExpectedCount,
		ActualCount:   w.ActualCount,
	}
}
