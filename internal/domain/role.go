package domain

// Role es el rol del usuario. Los roles son datos, no jerarquia de tipos.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// Permission es una capacidad puntual que puede otorgarse a un usuario.
type Permission string

const (
	PermissionViewUsers   Permission = "users.view"
	PermissionManageUsers Permission = "users.manage"
	PermissionDeleteUsers Permission = "users.delete"
	PermissionManageRoles Permission = "roles.manage"
)

var rolePermissions = map[Role][]Permission{
	RoleUser:       nil,
	RoleAdmin:      {PermissionViewUsers, PermissionManageUsers},
	RoleSuperAdmin: {PermissionViewUsers, PermissionManageUsers, PermissionDeleteUsers, PermissionManageRoles},
}

var roleLevels = map[Role]int{
	RoleUser:       0,
	RoleAdmin:      1,
	RoleSuperAdmin: 2,
}

// IsValid verifica que el rol sea uno de los predefinidos.
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Grants indica si el rol incluye el permiso.
func (r Role) Grants(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

// IsAtLeast compara niveles de rol; roles desconocidos nunca califican.
func (r Role) IsAtLeast(min Role) bool {
	current, ok := roleLevels[r]
	if !ok {
		return false
	}
	required, ok := roleLevels[min]
	if !ok {
		return false
	}
	return current >= required
}

// ParseRole convierte un string en Role.
func ParseRole(s string) (Role, bool) {
	role := Role(s)
	return role, role.IsValid()
}

// AllPermissions devuelve los permisos conocidos.
func AllPermissions() []Permission {
	return []Permission{
		PermissionViewUsers,
		PermissionManageUsers,
		PermissionDeleteUsers,
		PermissionManageRoles,
	}
}

// IsValid verifica que el permiso sea conocido.
func (p Permission) IsValid() bool {
	for _, known := range AllPermissions() {
		if known == p {
			return true
		}
	}
	return false
}

// ParsePermissions descarta permisos desconocidos y duplicados.
func ParsePermissions(values []string) []Permission {
	out := make([]Permission, 0, len(values))
	seen := make(map[Permission]struct{}, len(values))
	for _, v := range values {
		p := Permission(v)
		if !p.IsValid() {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// PermissionStrings es el inverso de ParsePermissions para persistencia.
func PermissionStrings(perms []Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, string(p))
	}
	return out
}
