package authroles

// Package authroles maps identity-provider claim documents to provisional
// application roles. Providers differ in where they carry role information
// ("role", "realm_access.roles[0]", custom namespaced claims), so the path
// is a configurable JMESPath expression.

import (
	"fmt"

	jmespath "github.com/jmespath-community/go-jmespath"
	domainauth "github.com/salesops/ui-api/internal/domain/auth"
	"github.com/salesops/ui-api/internal/ports"
)

// ClaimRoleMapper extracts a role claim with a JMESPath expression and
// falls back to a fixed role when the claim is absent or unrecognized.
type ClaimRoleMapper struct {
	expr     string
	fallback domainauth.Role
}

// NewClaimRoleMapper compiles the expression up front so a misconfigured
// path fails at startup, not per request.
func NewClaimRoleMapper(expr string, fallback domainauth.Role) (*ClaimRoleMapper, error) {
	if expr == "" {
		return nil, fmt.Errorf("role claim path is required")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile role claim path %q: %w", expr, err)
	}
	return &ClaimRoleMapper{expr: expr, fallback: fallback}, nil
}

var _ ports.RoleMapper = (*ClaimRoleMapper)(nil)

func (m *ClaimRoleMapper) Map(claims map[string]any) domainauth.Role {
	if len(claims) == 0 {
		return m.fallback
	}
	result, err := jmespath.Search(m.expr, claims)
	if err != nil {
		return m.fallback
	}
	raw, ok := result.(string)
	if !ok {
		return m.fallback
	}
	role, err := domainauth.ParseRole(raw)
	if err != nil {
		return m.fallback
	}
	return role
}
