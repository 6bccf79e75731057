package auth

import (
	"fmt"
	"sort"

	"stageline/internal/config"
)

const (
	PermProjectCreate  = "project.create"
	PermProjectRead    = "project.read"
	PermProjectUpdate  = "project.update"
	PermProjectDelete  = "project.delete"
	PermProjectClose   = "project.close"
	PermStageWrite     = "stage.write"
	PermStageReorder   = "stage.reorder"
	PermActivityWrite  = "activity.write"
	PermActivityStatus = "activity.status"
	PermUserManage     = "user.manage"
	PermCatalogManage  = "catalog.manage"
	PermEventsRead     = "events.read"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Service resolves role permissions from the rbac section of the config.
type Service struct {
	Config *config.Config
}

func (s Service) RoleHasPermission(role, perm string) bool {
	for _, p := range s.Config.Permissions(role) {
		if p == perm {
			return true
		}
	}
	return false
}

// Require returns ForbiddenError when role lacks perm.
func (s Service) Require(role, perm string) error {
	if !s.RoleHasPermission(role, perm) {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

// RolePermissions returns the sorted, de-duplicated permissions of role.
func (s Service) RolePermissions(role string) []string {
	seen := map[string]struct{}{}
	perms := []string{}
	for _, p := range s.Config.Permissions(role) {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms
}
