package model

import (
	"authserver/internal/config"
	"authserver/internal/entity/db"
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// SeedDefaultRoles ensures the configured roles exist in the database.
func SeedDefaultRoles(ctx context.Context, repo Repository, cfg config.Config) error {
	if repo == nil {
		return nil
	}

	for _, name := range defaultRoleNames(cfg) {
		existing, err := repo.GetRoleByName(ctx, name)
		if err != nil {
			return fmt.Errorf("load role %s: %w", name, err)
		}
		if existing != nil {
			continue
		}
		if err := repo.CreateRole(ctx, &db.Role{Name: name}); err != nil {
			return fmt.Errorf("create role %s: %w", name, err)
		}
		logrus.WithField("role", name).Info("seeded role")
	}
	return nil
}

func defaultRoleNames(cfg config.Config) []string {
	seen := make(map[string]struct{}, len(cfg.SeedRoles)+1)
	names := make([]string, 0, len(cfg.SeedRoles)+1)
	add := func(name string) {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	// ADMIN is required by the last-administrator rule.
	add(db.RoleAdmin)
	for _, name := range cfg.SeedRoles {
		add(name)
	}
	return names
}
