package rbac

import "github.com/saraspatika/absensi_backend/internal/models"

// BuildPermissionSet assembles a user's effective permission keys in two
// passes: union of role-granted permissions first, then per-user overrides.
// Overrides run strictly after the union, so a deny-override always beats a
// role grant and a grant-override always beats role absence.
func BuildPermissionSet(rolePerms []models.Permission, overrides []models.PermissionOverride) map[string]struct{} {
	perms := make(map[string]struct{}, len(rolePerms))
	for _, p := range rolePerms {
		if p.Resource == "" || p.Action == "" {
			continue
		}
		perms[PermKey(p.Resource, p.Action)] = struct{}{}
	}

	for _, o := range overrides {
		if o.Resource == "" || o.Action == "" {
			continue
		}
		key := PermKey(o.Resource, o.Action)
		if o.Grant {
			perms[key] = struct{}{}
		} else {
			delete(perms, key)
		}
	}
	return perms
}
