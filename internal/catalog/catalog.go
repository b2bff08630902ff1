// Package catalog defines the static permission catalog: the full universe of
// grantable capabilities, compiled into the process and immutable at runtime.
package catalog

// Category groups related permissions for display purposes.
type Category string

// Catalog categories in display order.
const (
	CategoryDashboard          Category = "Dashboard"
	CategoryEmployeeManagement Category = "Employee Management"
	CategoryUserRoleManagement Category = "User & Role Management"
	CategoryProfile            Category = "Profile"
)

// Categories lists all categories in display order.
func Categories() []Category {
	return []Category{
		CategoryDashboard,
		CategoryEmployeeManagement,
		CategoryUserRoleManagement,
		CategoryProfile,
	}
}

// Permission describes a single capability.
type Permission struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Category    Category `json:"category"`
	Description string   `json:"description,omitempty"`
}

// Stable capability identifiers referenced throughout the codebase.
const (
	PermDashboardView = "dashboard:view"

	PermEmployeeViewListPage        = "employee:view_list_page"
	PermEmployeeViewBirthdaysPage   = "employee:view_birthdays_page"
	PermEmployeeViewSixMonthService = "employee:view_six_month_service_page"
	PermEmployeeExport              = "employee:export"
	PermEmployeeAddNew              = "employee:add_new"
	PermEmployeeEditAction          = "employee:edit_action"
	PermEmployeeDeleteAction        = "employee:delete_action"
	PermEmployeeViewDetailsModal    = "employee:view_details_modal"
	PermEmployeeViewPosition        = "employee:view_position"
	PermEmployeeViewGender          = "employee:view_gender"
	PermEmployeeViewDOB             = "employee:view_dob"
	PermEmployeeViewPhone           = "employee:view_phone"
	PermEmployeeViewNRC             = "employee:view_nrc"
	PermEmployeeViewAddress         = "employee:view_address"
	PermEmployeeViewServiceYears    = "employee:view_service_years"

	PermRolesViewPage    = "user_roles:view_roles_page"
	PermRolesAddNew      = "user_roles:add_new_role"
	PermRolesEditAction  = "user_roles:edit_role_action"
	PermRolesDeleteRole  = "user_roles:delete_role_action"
	PermUsersViewPage    = "user_management:view_users_page"
	PermUsersAddNew      = "user_management:add_new_user"
	PermUsersEditAction  = "user_management:edit_user_action"
	PermUsersDeleteUser  = "user_management:delete_user_action"

	PermProfileChangeImage = "profile:change_image"
)

var all = []Permission{
	{ID: PermDashboardView, Label: "View Dashboard", Category: CategoryDashboard, Description: "Allows user to see the main dashboard overview."},

	{ID: PermEmployeeViewListPage, Label: "View Employee List Page", Category: CategoryEmployeeManagement, Description: "Allows accessing the main employee listing page."},
	{ID: PermEmployeeViewBirthdaysPage, Label: "View Employee Birthdays Page", Category: CategoryEmployeeManagement, Description: "Allows accessing the employee birthdays page."},
	{ID: PermEmployeeViewSixMonthService, Label: "View 6+ Months Service Page", Category: CategoryEmployeeManagement, Description: "Allows accessing the page for employees with 6+ months of service."},
	{ID: PermEmployeeExport, Label: "Export Employee Data", Category: CategoryEmployeeManagement, Description: "Allows exporting the employee list to a CSV file."},
	{ID: PermEmployeeAddNew, Label: "Add New Employees", Category: CategoryEmployeeManagement, Description: "Allows creating new employee records."},
	{ID: PermEmployeeEditAction, Label: "Perform Edit Action (on Employee)", Category: CategoryEmployeeManagement, Description: "Allows user to open the edit dialog for an employee."},
	{ID: PermEmployeeDeleteAction, Label: "Perform Delete Action (on Employee)", Category: CategoryEmployeeManagement, Description: "Allows user to initiate deleting an employee record."},
	{ID: PermEmployeeViewDetailsModal, Label: "View Employee Details Modal", Category: CategoryEmployeeManagement, Description: "Allows opening the modal to see details of a specific employee."},
	{ID: PermEmployeeViewPosition, Label: "View Employee Position", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"Position\" field/column for employees."},
	{ID: PermEmployeeViewGender, Label: "View Employee Gender", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"Gender\" field/column for employees."},
	{ID: PermEmployeeViewDOB, Label: "View Employee Date of Birth", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"DOB\" field/column for employees."},
	{ID: PermEmployeeViewPhone, Label: "View Employee Phone Number", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"Phone No.\" field/column for employees."},
	{ID: PermEmployeeViewNRC, Label: "View Employee NRC", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"NRC\" field/column for employees."},
	{ID: PermEmployeeViewAddress, Label: "View Employee Address", Category: CategoryEmployeeManagement, Description: "Allows viewing the \"Address\" field/column for employees."},
	{ID: PermEmployeeViewServiceYears, Label: "View Employee Service Years", Category: CategoryEmployeeManagement, Description: "Allows viewing the calculated \"Service Years\" for employees."},

	{ID: PermRolesViewPage, Label: "View User Roles Page", Category: CategoryUserRoleManagement, Description: "Allows accessing the user roles listing page."},
	{ID: PermRolesAddNew, Label: "Add New Role", Category: CategoryUserRoleManagement, Description: "Allows creating new user roles and assigning permissions to them."},
	{ID: PermRolesEditAction, Label: "Edit Role (Name & Permissions)", Category: CategoryUserRoleManagement, Description: "Allows modifying a role's name and its assigned permissions."},
	{ID: PermRolesDeleteRole, Label: "Delete Role", Category: CategoryUserRoleManagement, Description: "Allows deleting a user role."},
	{ID: PermUsersViewPage, Label: "View User List Page", Category: CategoryUserRoleManagement, Description: "Allows accessing the user account listing page."},
	{ID: PermUsersAddNew, Label: "Add New User Account", Category: CategoryUserRoleManagement, Description: "Allows creating new user accounts and assigning roles."},
	{ID: PermUsersEditAction, Label: "Edit User Account (Username/Role)", Category: CategoryUserRoleManagement, Description: "Allows modifying a user's username and role."},
	{ID: PermUsersDeleteUser, Label: "Delete User Account", Category: CategoryUserRoleManagement, Description: "Allows deleting a user account (except protected accounts like \"Admin\")."},

	{ID: PermProfileChangeImage, Label: "Change Global Profile Image", Category: CategoryProfile, Description: "Allows the user to change the global profile picture for the application."},
}

var index = func() map[string]Permission {
	m := make(map[string]Permission, len(all))
	for _, p := range all {
		m[p.ID] = p
	}
	return m
}()

// All returns every permission in catalog order.
func All() []Permission {
	out := make([]Permission, len(all))
	copy(out, all)
	return out
}

// IDs returns every permission ID in catalog order.
func IDs() []string {
	out := make([]string, len(all))
	for i, p := range all {
		out[i] = p.ID
	}
	return out
}

// Contains reports whether id is a known capability.
func Contains(id string) bool {
	_, ok := index[id]
	return ok
}

// Lookup returns the permission for id.
func Lookup(id string) (Permission, bool) {
	p, ok := index[id]
	return p, ok
}

// Grouped returns permissions grouped by category, categories in display
// order, entries within a category sorted by catalog order.
func Grouped() map[Category][]Permission {
	groups := make(map[Category][]Permission, len(Categories()))
	for _, c := range Categories() {
		groups[c] = nil
	}
	for _, p := range all {
		groups[p.Category] = append(groups[p.Category], p)
	}
	return groups
}

// Matches reports whether ids contains exactly the full catalog, ignoring
// order and duplicates.
func Matches(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !Contains(id) {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(all)
}
