package attendance

import (
	"testing"
	"time"
)

func TestOverridableStatus(t *testing.T) {
	allowed := []Status{StatusPresent, StatusLate, StatusAbsent, StatusTruant, StatusLeave}
	for _, s := range allowed {
		if !s.OverridableStatus() {
			t.Errorf("%v should be settable by a teacher", s)
		}
	}
	denied := []Status{StatusNotStarted, StatusLeavePending, StatusPendingApproval, Status("bogus")}
	for _, s := range denied {
		if s.OverridableStatus() {
			t.Errorf("%v should not be settable by a teacher", s)
		}
	}
}

func TestRawCheckinStatus(t *testing.T) {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	grace := 10 * time.Minute

	tests := []struct {
		name string
		now  time.Time
		want Status
	}{
		{"before start", start.Add(-time.Minute), StatusPresent},
		{"exactly at grace boundary", start.Add(grace), StatusPresent},
		{"one second past grace", start.Add(grace + time.Second), StatusLate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rawCheckinStatus(tt.now, start, grace); got != tt.want {
				t.Errorf("rawCheckinStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}
