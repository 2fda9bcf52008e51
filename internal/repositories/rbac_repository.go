// repositories/rbac_repository.go

package repositories

import (
	"context"
	"database/sql"

	"github.com/saraspatika/absensi_backend/internal/models"
	"github.com/saraspatika/absensi_backend/internal/services/rbac"
)

// RBACRepository loads role grants and per-user overrides. It implements
// rbac.PermissionSource.
type RBACRepository struct {
	db *sql.DB
}

func NewRBACRepository(db *sql.DB) *RBACRepository {
	return &RBACRepository{db: db}
}

// PermissionSet computes the effective permission keys for a user. The two
// queries feed rbac.BuildPermissionSet so that override precedence stays in
// one auditable place.
func (r *RBACRepository) PermissionSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	rolePerms, err := r.rolePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	overrides, err := r.userOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rbac.BuildPermissionSet(rolePerms, overrides), nil
}

func (r *RBACRepository) rolePermissions(ctx context.Context, userID string) ([]models.Permission, error) {
	query := `
		SELECT p.resource, p.action
		FROM permissions p
		JOIN role_permissions rp ON p.id_permission = rp.id_permission
		JOIN user_roles ur ON rp.id_role = ur.id_role
		WHERE ur.id_user = $1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (r *RBACRepository) userOverrides(ctx context.Context, userID string) ([]models.PermissionOverride, error) {
	query := `
		SELECT upo."grant", p.resource, p.action
		FROM user_permission_overrides upo
		JOIN permissions p ON p.id_permission = upo.id_permission
		WHERE upo.id_user = $1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var overrides []models.PermissionOverride
	for rows.Next() {
		var o models.PermissionOverride
		if err := rows.Scan(&o.Grant, &o.Resource, &o.Action); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}
