package domain

import (
	"testing"
	"time"
)

func TestVisitorUsable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		isActive  bool
		expiresAt time.Time
		want      bool
	}{
		{"active and unexpired", true, now.Add(time.Hour), true},
		{"active but expired", true, now.Add(-time.Hour), false},
		{"inactive and unexpired", false, now.Add(time.Hour), false},
		{"inactive and expired", false, now.Add(-time.Hour), false},
		{"expiry exactly now", true, now, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Visitor{IsActive: tc.isActive, ExpiresAt: tc.expiresAt}
			if got := v.Usable(now); got != tc.want {
				t.Errorf("Usable = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestVisitorFullName(t *testing.T) {
	v := Visitor{FirstName: "Ada", LastName: "Lovelace"}
	if got := v.FullName(); got != "Ada Lovelace" {
		t.Errorf("FullName = %q", got)
	}

	v = Visitor{FirstName: "Ada"}
	if got := v.FullName(); got != "Ada" {
		t.Errorf("FullName = %q", got)
	}

	v = Visitor{}
	if got := v.FullName(); got != "Unnamed visitor" {
		t.Errorf("FullName = %q", got)
	}
}
