package db

import "testing"

func TestUserRoles(t *testing.T) {
	user := &User{ID: 3, Roles: []Role{{ID: 1, Name: RoleAdmin}, {ID: 2, Name: RoleUser}}}

	if !user.HasRole(RoleAdmin) {
		t.Fatal("expected user to hold ADMIN")
	}
	if user.HasRole("admin") {
		t.Fatal("role names are case sensitive")
	}
	names := user.RoleNames()
	if len(names) != 2 || names[0] != RoleAdmin || names[1] != RoleUser {
		t.Fatalf("unexpected role names %v", names)
	}
	if !user.Persisted() {
		t.Fatal("expected user with id to be persisted")
	}

	var missing *User
	if missing.HasRole(RoleAdmin) || missing.Persisted() {
		t.Fatal("nil user must hold nothing")
	}
}
