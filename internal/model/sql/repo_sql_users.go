package sql

import (
	"authserver/internal/entity/common"
	entity "authserver/internal/entity/db"
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateUser persists a new user record.
func (r *GormRepository) CreateUser(ctx context.Context, user *entity.User) error {
	if !r.ready() {
		return errNotInitialised
	}
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// SaveUser writes every column of an existing user. Role links are left alone.
func (r *GormRepository) SaveUser(ctx context.Context, user *entity.User) error {
	if !r.ready() {
		return errNotInitialised
	}
	if user == nil || user.ID == 0 {
		return fmt.Errorf("invalid user")
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(user).Error
}

// GetUserByEmail loads a user by exact email.
func (r *GormRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	if strings.TrimSpace(email) == "" {
		return nil, nil
	}

	var user entity.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

// GetUserByID loads a user by ID.
func (r *GormRepository) GetUserByID(ctx context.Context, id uint) (*entity.User, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	if id == 0 {
		return nil, nil
	}
	var user entity.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &user, nil
}

// ListUsers returns all users ordered by name.
func (r *GormRepository) ListUsers(ctx context.Context, dir common.SortDir) ([]entity.User, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	var users []entity.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "name"}, Desc: dir.Descending()}).
		Order("id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsersByRole returns the users holding the named role.
func (r *GormRepository) ListUsersByRole(ctx context.Context, roleName string) ([]entity.User, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	var users []entity.User
	err := r.withRole(r.db.WithContext(ctx), roleName).
		Preload("Roles").
		Order("users.name").
		Order("users.id").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsersByRole counts the users holding the named role.
func (r *GormRepository) CountUsersByRole(ctx context.Context, roleName string) (int64, error) {
	if !r.ready() {
		return 0, errNotInitialised
	}
	var count int64
	if err := r.withRole(r.db.WithContext(ctx).Model(&entity.User{}), roleName).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// AddUserRole links role to user and appends it to user.Roles.
func (r *GormRepository) AddUserRole(ctx context.Context, user *entity.User, role *entity.Role) error {
	if !r.ready() {
		return errNotInitialised
	}
	if user == nil || user.ID == 0 || role == nil || role.ID == 0 {
		return fmt.Errorf("invalid user or role")
	}
	return r.db.WithContext(ctx).Model(user).Association("Roles").Append(role)
}

// DeleteUser removes a user together with its role links.
func (r *GormRepository) DeleteUser(ctx context.Context, user *entity.User) error {
	if !r.ready() {
		return errNotInitialised
	}
	if user == nil || user.ID == 0 {
		return fmt.Errorf("invalid user id")
	}
	result := r.db.WithContext(ctx).Select(clause.Associations).Delete(user)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepository) withRole(query *gorm.DB, roleName string) *gorm.DB {
	return query.
		Joins("JOIN user_roles ON user_roles.user_id = users.id").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("roles.name = ?", roleName)
}
