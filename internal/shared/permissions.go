package shared

// Core platform permissions.
const (
	PermUsersView        = "users.view"
	PermUsersEdit        = "users.edit"
	PermUsersManageRoles = "users.manage_roles"

	PermRolesView = "roles.view"
	PermRolesEdit = "roles.edit"

	PermPermissionsView = "permissions.view"
	PermPermissionsEdit = "permissions.edit"
)

// CoreScopes lists all permissions the service itself enforces.
func CoreScopes() []string {
	return []string{
		PermUsersView,
		PermUsersEdit,
		PermUsersManageRoles,
		PermRolesView,
		PermRolesEdit,
		PermPermissionsView,
		PermPermissionsEdit,
	}
}
