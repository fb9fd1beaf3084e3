package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const RoleAdmin Role = "admin"
const RoleManager Role = "manager"
const RoleEmployee Role = "employee"

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	FullName     string    `json:"full_name" db:"full_name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Label - отображаемое название роли
func (r Role) Label() string {
	switch r {
	case RoleAdmin:
		return "Администратор"
	case RoleManager:
		return "Менеджер"
	case RoleEmployee:
		return "Сотрудник"
	}
	return string(r)
}

func (u *User) IsAdmin() bool    { return u.Role == RoleAdmin }
func (u *User) IsManager() bool  { return u.Role == RoleManager }
func (u *User) IsEmployee() bool { return u.Role == RoleEmployee }

// CanCreateTasks - админы и менеджеры создают, редактируют и удаляют задачи
func (u *User) CanCreateTasks() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanManageTemplates - шаблонами управляет только админ
func (u *User) CanManageTemplates() bool {
	return u.Role == RoleAdmin
}

// FirstName возвращает первое слово полного имени, иначе логин
func (u *User) FirstName() string {
	if fields := strings.Fields(u.FullName); len(fields) > 0 {
		return fields[0]
	}
	return u.Username
}

func (u *User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}
