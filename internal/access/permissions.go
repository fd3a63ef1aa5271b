// Package access maps roles to permissions and gates mutating operations.
package access

import (
	"fmt"
	"sort"

	"ms-checkin/internal/models"
)

type Permission string

const (
	CanManageUsers        Permission = "canManageUsers"
	CanCreateEvents       Permission = "canCreateEvents"
	CanEditEvents         Permission = "canEditEvents"
	CanDeleteEvents       Permission = "canDeleteEvents"
	CanManageParticipants Permission = "canManageParticipants"
	CanGenerateTickets    Permission = "canGenerateTickets"
	CanSendEmails         Permission = "canSendEmails"
	CanPerformCheckin     Permission = "canPerformCheckin"
	CanManageCertificates Permission = "canManageCertificates"
	CanExportData         Permission = "canExportData"
	CanViewReports        Permission = "canViewReports"
)

// All lists every permission known to the service.
var all = []Permission{
	CanManageUsers,
	CanCreateEvents,
	CanEditEvents,
	CanDeleteEvents,
	CanManageParticipants,
	CanGenerateTickets,
	CanSendEmails,
	CanPerformCheckin,
	CanManageCertificates,
	CanExportData,
	CanViewReports,
}

type permissionSet map[Permission]struct{}

func newSet(perms ...Permission) permissionSet {
	set := make(permissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// rolePermissions is built once at package init and never mutated afterwards.
var rolePermissions = map[models.Role]permissionSet{
	models.RoleAdmin: newSet(all...),
	models.RoleOrganizer: newSet(
		CanCreateEvents,
		CanEditEvents,
		CanManageParticipants,
		CanGenerateTickets,
		CanSendEmails,
		CanPerformCheckin,
		CanManageCertificates,
		CanExportData,
		CanViewReports,
	),
	models.RoleStaff: newSet(
		CanPerformCheckin,
		CanViewReports,
	),
	models.RoleViewer: newSet(
		CanViewReports,
	),
}

// SystemActor is used by background consumers that act on behalf of the service itself.
var SystemActor = &models.User{ID: "system", DisplayName: "System", Role: models.RoleAdmin}

// ValidRole reports whether role appears in the permission table.
func ValidRole(role models.Role) bool {
	_, ok := rolePermissions[role]
	return ok
}

// PermissionsFor returns a sorted copy of the permissions granted to role.
func PermissionsFor(role models.Role) []Permission {
	set := rolePermissions[role]
	out := make([]Permission, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Resolve fills user.Permissions from the role table.
func Resolve(user *models.User) *models.User {
	if user == nil {
		return nil
	}
	perms := PermissionsFor(user.Role)
	user.Permissions = make([]string, len(perms))
	for i, p := range perms {
		user.Permissions[i] = string(p)
	}
	return user
}

func Authorize(user *models.User, permission Permission) bool {
	if user == nil {
		return false
	}
	_, ok := rolePermissions[user.Role][permission]
	return ok
}

// Require returns an error wrapping models.ErrForbidden when user lacks permission.
func Require(user *models.User, permission Permission) error {
	if user == nil {
		return models.ErrUnauthenticated
	}
	if !Authorize(user, permission) {
		return fmt.Errorf("%w: role %q lacks %s", models.ErrForbidden, user.Role, permission)
	}
	return nil
}
