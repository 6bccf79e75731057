package auth

import (
	"errors"
	"testing"

	"stageline/internal/config"
)

func TestRequireUsesConfiguredRoles(t *testing.T) {
	svc := Service{Config: config.Default()}
	if err := svc.Require("admin", PermUserManage); err != nil {
		t.Fatalf("admin should manage users: %v", err)
	}
	if err := svc.Require("member", PermActivityStatus); err != nil {
		t.Fatalf("member should change activity status: %v", err)
	}
	err := svc.Require("member", PermStageReorder)
	var forbidden ForbiddenError
	if !errors.As(err, &forbidden) || forbidden.Permission != PermStageReorder {
		t.Fatalf("expected forbidden stage.reorder, got %v", err)
	}
	if svc.RoleHasPermission("ghost", PermProjectRead) {
		t.Fatalf("unknown role must have no permissions")
	}
}

func TestRolePermissionsSortedAndUnique(t *testing.T) {
	cfg := config.Default()
	cfg.RBAC.Roles["member"] = config.RBACRole{Permissions: []string{"project.read", "activity.status", "project.read"}}
	perms := Service{Config: cfg}.RolePermissions("member")
	if len(perms) != 2 || perms[0] != "activity.status" || perms[1] != "project.read" {
		t.Fatalf("unexpected permissions %v", perms)
	}
}
