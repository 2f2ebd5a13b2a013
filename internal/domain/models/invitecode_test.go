package models

import (
	"testing"
	"time"
)

func TestInviteCode_ExpiredAt(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ic := InviteCode{Code: "123456", CreatedAt: created}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"just created", created, false},
		{"six days later", created.Add(6 * 24 * time.Hour), false},
		{"just inside the window", created.Add(7*24*time.Hour - time.Second), false},
		{"exactly seven days", created.Add(7 * 24 * time.Hour), false},
		{"just past seven days", created.Add(7*24*time.Hour + time.Second), true},
		{"eight days later", created.Add(8 * 24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ic.ExpiredAt(tt.now); got != tt.want {
				t.Errorf("ExpiredAt(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}
