package rbac

// DiffPermissions computes the permission consequence of moving from oldKey
// to newKey. Added holds permissions only the new role grants, Removed those
// only the old role grants, Unchanged the intersection. All three slices
// follow catalog ordering; the diff never re-sorts. Diffing a role against
// itself yields empty Added/Removed and the full set as Unchanged.
func (c *Catalog) DiffPermissions(oldKey, newKey RoleKey) (Diff, error) {
	oldRole, err := c.GetRole(oldKey)
	if err != nil {
		return Diff{}, err
	}
	newRole, err := c.GetRole(newKey)
	if err != nil {
		return Diff{}, err
	}

	inOld := keySet(oldRole.Permissions)
	inNew := keySet(newRole.Permissions)

	var diff Diff
	for _, pk := range c.permOrder {
		p := c.permissions[pk]
		_, wasGranted := inOld[pk]
		_, isGranted := inNew[pk]
		switch {
		case wasGranted && isGranted:
			diff.Unchanged = append(diff.Unchanged, p)
		case isGranted:
			diff.Added = append(diff.Added, p)
		case wasGranted:
			diff.Removed = append(diff.Removed, p)
		}
	}
	return diff, nil
}

// WithoutInfrastructureOnly strips infrastructure-only permissions from every
// slice of the diff. Handlers apply it before surfacing a diff to a
// business-scoped actor.
func (d Diff) WithoutInfrastructureOnly() Diff {
	return Diff{
		Added:     dropInfraOnly(d.Added),
		Removed:   dropInfraOnly(d.Removed),
		Unchanged: dropInfraOnly(d.Unchanged),
	}
}

func dropInfraOnly(perms []Permission) []Permission {
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.InfrastructureOnly {
			continue
		}
		out = append(out, p)
	}
	return out
}

func keySet(keys []PermissionKey) map[PermissionKey]struct{} {
	set := make(map[PermissionKey]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
