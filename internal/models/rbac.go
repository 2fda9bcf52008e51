package models

type Permission struct {
	IDPermission string `json:"id_permission"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
}

// PermissionOverride is a per-user exception: grant=true adds the
// permission on top of role grants, grant=false removes it.
type PermissionOverride struct {
	IDUser       string `json:"id_user"`
	IDPermission string `json:"id_permission"`
	Grant        bool   `json:"grant"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
}
