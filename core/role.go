package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	scopeTokenPrefix   = "scope_token_"
	resourceRolePrefix = "resource_"
	scopeOfflineAccess = "offline_access"
)

var (
	ErrMissingOfflineAccess = errors.New("core: scope is missing offline_access")
	ErrMissingRoleScope     = errors.New("core: scope contains no role entry")
	ErrInvalidRole          = errors.New("core: invalid role")
	ErrInvalidTokenScope    = errors.New("core: invalid token scope")
)

// Role is the session-level authorization hierarchy. The order is total:
// User < PowerUser < Manager < Admin, and a higher role implicitly grants
// every lower role's permissions.
type Role string

const (
	RoleUser      Role = "user"
	RolePowerUser Role = "power_user"
	RoleManager   Role = "manager"
	RoleAdmin     Role = "admin"
)

func roleRank(role Role) int {
	switch role {
	case RoleUser:
		return 1
	case RolePowerUser:
		return 2
	case RoleManager:
		return 3
	case RoleAdmin:
		return 4
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return roleRank(r) > 0
}

// HasAccessTo reports whether the subject role satisfies the required role.
func (r Role) HasAccessTo(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return roleRank(r) >= roleRank(required)
}

func (r Role) ScopeToken() string {
	return scopeTokenPrefix + string(r)
}

func (r Role) ResourceRole() string {
	return resourceRolePrefix + string(r)
}

// IncludedRoles returns every role this role grants, highest first.
func (r Role) IncludedRoles() []Role {
	all := []Role{RoleAdmin, RoleManager, RolePowerUser, RoleUser}
	included := make([]Role, 0, len(all))
	for _, candidate := range all {
		if r.HasAccessTo(candidate) {
			included = append(included, candidate)
		}
	}
	return included
}

// ParseRole accepts the bare role name or its scope_token_/resource_ form.
func ParseRole(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, scopeTokenPrefix)
	trimmed = strings.TrimPrefix(trimmed, resourceRolePrefix)
	role := Role(trimmed)
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, value)
	}
	return role, nil
}

// RoleFromScope parses the highest role scope from a space-delimited scope
// string. The scope must carry offline_access for machine-issued tokens.
func RoleFromScope(scope string) (Role, error) {
	entries := strings.Fields(scope)
	if !containsScope(entries, scopeOfflineAccess) {
		return "", ErrMissingOfflineAccess
	}
	highest := Role("")
	for _, entry := range entries {
		if !strings.HasPrefix(entry, scopeTokenPrefix) {
			continue
		}
		candidate := Role(strings.TrimPrefix(entry, scopeTokenPrefix))
		if !candidate.Valid() {
			continue
		}
		if roleRank(candidate) > roleRank(highest) {
			highest = candidate
		}
	}
	if !highest.Valid() {
		return "", ErrMissingRoleScope
	}
	return highest, nil
}

// RoleFromResourceRoles parses the highest role from resource_* role names as
// presented in session claims.
func RoleFromResourceRoles(resourceRoles []string) (Role, error) {
	highest := Role("")
	for _, entry := range resourceRoles {
		if !strings.HasPrefix(entry, resourceRolePrefix) {
			continue
		}
		candidate := Role(strings.TrimPrefix(entry, resourceRolePrefix))
		if !candidate.Valid() {
			continue
		}
		if roleRank(candidate) > roleRank(highest) {
			highest = candidate
		}
	}
	if !highest.Valid() {
		return "", fmt.Errorf("%w: no valid resource roles found", ErrInvalidRole)
	}
	return highest, nil
}

// TokenScope is the smaller hierarchy used for machine-issued offline tokens:
// User < PowerUser.
type TokenScope string

const (
	TokenScopeUser      TokenScope = "user"
	TokenScopePowerUser TokenScope = "power_user"
)

func tokenScopeRank(scope TokenScope) int {
	switch scope {
	case TokenScopeUser:
		return 1
	case TokenScopePowerUser:
		return 2
	default:
		return 0
	}
}

func (s TokenScope) Valid() bool {
	return tokenScopeRank(s) > 0
}

func (s TokenScope) HasAccessTo(required TokenScope) bool {
	if !s.Valid() || !required.Valid() {
		return false
	}
	return tokenScopeRank(s) >= tokenScopeRank(required)
}

func (s TokenScope) ScopeToken() string {
	return scopeTokenPrefix + string(s)
}

// Role maps the token scope onto the session role hierarchy. The mapping is
// total: TokenScopeUser grants exactly RoleUser and TokenScopePowerUser
// grants exactly RolePowerUser; no token scope reaches Manager or Admin.
func (s TokenScope) Role() Role {
	switch s {
	case TokenScopePowerUser:
		return RolePowerUser
	default:
		return RoleUser
	}
}

func ParseTokenScope(value string) (TokenScope, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimPrefix(trimmed, scopeTokenPrefix)
	scope := TokenScope(trimmed)
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTokenScope, value)
	}
	return scope, nil
}

// TokenScopeFromScope parses the highest token scope from a space-delimited
// scope string; offline_access is required.
func TokenScopeFromScope(scope string) (TokenScope, error) {
	entries := strings.Fields(scope)
	if !containsScope(entries, scopeOfflineAccess) {
		return "", ErrMissingOfflineAccess
	}
	highest := TokenScope("")
	for _, entry := range entries {
		if !strings.HasPrefix(entry, scopeTokenPrefix) {
			continue
		}
		candidate := TokenScope(strings.TrimPrefix(entry, scopeTokenPrefix))
		if !candidate.Valid() {
			continue
		}
		if tokenScopeRank(candidate) > tokenScopeRank(highest) {
			highest = candidate
		}
	}
	if !highest.Valid() {
		return "", ErrMissingRoleScope
	}
	return highest, nil
}

func containsScope(entries []string, target string) bool {
	for _, entry := range entries {
		if entry == target {
			return true
		}
	}
	return false
}
