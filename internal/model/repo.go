package model

import (
	"authserver/internal/entity/common"
	"authserver/internal/entity/db"
	"context"
)

// Repository 定义数据库操作接口
//
// 查询方法在记录不存在时返回 (nil, nil)。
type Repository interface {
	// 用户管理
	CreateUser(ctx context.Context, user *db.User) error
	SaveUser(ctx context.Context, user *db.User) error
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
	GetUserByID(ctx context.Context, id uint) (*db.User, error)
	ListUsers(ctx context.Context, dir common.SortDir) ([]db.User, error)
	ListUsersByRole(ctx context.Context, roleName string) ([]db.User, error)
	CountUsersByRole(ctx context.Context, roleName string) (int64, error)
	AddUserRole(ctx context.Context, user *db.User, role *db.Role) error
	DeleteUser(ctx context.Context, user *db.User) error

	// 角色
	GetRoleByName(ctx context.Context, name string) (*db.Role, error)
	CreateRole(ctx context.Context, role *db.Role) error
}
