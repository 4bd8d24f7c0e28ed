package db

import "time"

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// User 表示持久化的用户账户。
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Email     string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"column:password;type:varchar(255);not null" json:"-"`
	Name      string    `gorm:"column:name;type:varchar(255);index;not null" json:"name"`
	Avatar    string    `gorm:"column:avatar;type:varchar(255)" json:"avatar"`
	Roles     []Role    `gorm:"many2many:user_roles;" json:"roles,omitempty"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// Persisted 判断用户是否已持久化（已分配 ID）。
func (u *User) Persisted() bool {
	return u != nil && u.ID != 0
}

// HasRole 判断用户是否拥有指定名称的角色。
func (u *User) HasRole(name string) bool {
	if u == nil {
		return false
	}
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// RoleNames 返回用户拥有的角色名称。
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}
