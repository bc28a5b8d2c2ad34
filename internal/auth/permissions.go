package auth

import (
	"errors"

	"hrportal_backend/internal/models"
)

// Разрешения поддержки и уведомлений
const (
	PermNotificationsCreate = "notifications:create"
	PermNotificationsBulk   = "notifications:bulk"
	PermTicketsViewAll      = "tickets:view_all"
	PermTicketsUpdateStatus = "tickets:update_status"
	PermTicketsReply        = "tickets:reply"
	PermAdminChannel        = "realtime:admin_channel"
)

var staffPermissions = []string{
	PermNotificationsCreate,
	PermTicketsViewAll,
	PermTicketsUpdateStatus,
	PermTicketsReply,
	PermAdminChannel,
}

// Permissions список разрешений по ролям
var Permissions = map[models.UserRole][]string{
	models.UserRoleAdmin:       append([]string{PermNotificationsBulk}, staffPermissions...),
	models.UserRoleHRManager:   append([]string{PermNotificationsBulk}, staffPermissions...),
	models.UserRoleRecruiter:   staffPermissions,
	models.UserRoleInterviewer: staffPermissions,
	models.UserRoleCandidate:   {PermTicketsReply},
}

// roleLabels - единая таблица отображаемых имен ролей
var roleLabels = map[models.UserRole]string{
	models.UserRoleAdmin:       "Administrator",
	models.UserRoleHRManager:   "HR Manager",
	models.UserRoleRecruiter:   "Recruiter",
	models.UserRoleInterviewer: "Interviewer",
	models.UserRoleCandidate:   "Candidate",
}

// RoleInfo - элемент ответа GET /api/roles
type RoleInfo struct {
	Role    models.UserRole `json:"role"`
	Label   string          `json:"label"`
	IsStaff bool            `json:"is_staff"`
}

// HasPermission проверяет есть ли у роли указанное разрешение
func HasPermission(role models.UserRole, permission string) bool {
	for _, p := range Permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RoleName возвращает отображаемое имя роли; неизвестная роль возвращается как есть
func RoleName(role models.UserRole) string {
	if label, ok := roleLabels[role]; ok {
		return label
	}
	return string(role)
}

// Roles возвращает таблицу ролей в стабильном порядке
func Roles() []RoleInfo {
	out := make([]RoleInfo, 0, len(models.AllUserRoles))
	for _, r := range models.AllUserRoles {
		out = append(out, RoleInfo{Role: r, Label: RoleName(r), IsStaff: r.IsStaff()})
	}
	return out
}

// ValidateRole проверяет валидность роли
func ValidateRole(role string) error {
	if !models.UserRole(role).IsValid() {
		return errors.New("invalid role")
	}
	return nil
}
