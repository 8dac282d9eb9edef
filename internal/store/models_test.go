package store

import "testing"

func TestStatusForward(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusPendingApproval, true},
		{StatusPendingApproval, StatusApproved, true},
		{StatusPendingApproval, StatusRejected, true},
		{StatusApproved, StatusExecuting, true},
		{StatusExecuting, StatusCompleted, true},
		{StatusExecuting, StatusFailed, true},
		{StatusApproved, StatusPendingApproval, false},
		{StatusExecuting, StatusApproved, false},
		{StatusCompleted, StatusFailed, false},
		{StatusCompleted, StatusExecuting, false},
		{StatusApproved, StatusApproved, false},
	}
	for _, c := range cases {
		if got := c.from.Forward(c.to); got != c.want {
			t.Errorf("Forward(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusDraft, StatusPendingApproval, StatusApproved, StatusExecuting} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
