package domain

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"MEMBER", RoleMember, false},
		{"member", RoleMember, false},
		{" SECURITY_GUARD ", RoleSecurityGuard, false},
		{"SYSTEM_ADMIN", RoleSystemAdmin, false},
		{"ADMIN", RoleSystemAdmin, false},
		{"admin", RoleSystemAdmin, false},
		{"GUEST", "", true},
		{"", "", true},
		{"SUPERUSER", "", true},
	}

	for _, tc := range cases {
		got, err := ParseRole(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q) expected error, got %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRole(%q) unexpected error: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseUserStatus(t *testing.T) {
	if got, err := ParseUserStatus("active"); err != nil || got != UserStatusActive {
		t.Errorf("ParseUserStatus(active) = %q, %v", got, err)
	}
	if got, err := ParseUserStatus("SUSPENDED"); err != nil || got != UserStatusSuspended {
		t.Errorf("ParseUserStatus(SUSPENDED) = %q, %v", got, err)
	}
	if _, err := ParseUserStatus("DELETED"); err == nil {
		t.Error("ParseUserStatus(DELETED) expected error")
	}
}
