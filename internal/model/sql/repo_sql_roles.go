package sql

import (
	entity "authserver/internal/entity/db"
	"context"
	"fmt"
	"strings"
)

// GetRoleByName loads a role by its exact name.
func (r *GormRepository) GetRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	if !r.ready() {
		return nil, errNotInitialised
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	var role entity.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFoundAsNil(err)
	}
	return &role, nil
}

// CreateRole inserts a new role row.
func (r *GormRepository) CreateRole(ctx context.Context, role *entity.Role) error {
	if !r.ready() {
		return errNotInitialised
	}
	if role == nil {
		return fmt.Errorf("role is nil")
	}
	role.Name = strings.TrimSpace(role.Name)
	if role.Name == "" {
		return fmt.Errorf("role name is required")
	}
	return r.db.WithContext(ctx).Create(role).Error
}
