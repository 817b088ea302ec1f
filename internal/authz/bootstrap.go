package authz

import (
	"fmt"

	"github.com/payhub-next/internal/constants"
)

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role     string
	Inherits []string
	Policies []Policy
}

// BuiltinRoleSeeds 系统预置角色矩阵
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "viewer",
			Policies: []Policy{
				{Object: constants.AuthzObjectRecord, Action: constants.AuthzActionView},
				{Object: constants.AuthzObjectRefund, Action: constants.AuthzActionView},
				{Object: constants.AuthzObjectTransfer, Action: constants.AuthzActionView},
				{Object: constants.AuthzObjectChannel, Action: constants.AuthzActionView},
			},
		},
		{
			Role:     "auditor",
			Inherits: []string{"viewer"},
			Policies: []Policy{
				{Object: constants.AuthzObjectRecord, Action: constants.AuthzActionAudit},
				{Object: constants.AuthzObjectTransfer, Action: constants.AuthzActionAudit},
			},
		},
		{
			Role:     "finance",
			Inherits: []string{"auditor"},
			Policies: []Policy{
				{Object: constants.AuthzObjectRefund, Action: constants.AuthzActionWrite},
				{Object: constants.AuthzObjectTransfer, Action: constants.AuthzActionWrite},
				{Object: constants.AuthzObjectChannel, Action: constants.AuthzActionWrite},
			},
		},
		{
			Role: "super",
			Policies: []Policy{
				{Object: "*", Action: "*"},
			},
		},
	}
}

// BootstrapBuiltinRoles 写入预置角色与策略，可重复执行
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}
	for _, seed := range BuiltinRoleSeeds() {
		role, err := s.EnsureRole(seed.Role)
		if err != nil {
			return err
		}
		for _, parent := range seed.Inherits {
			parentRole, err := s.EnsureRole(parent)
			if err != nil {
				return err
			}
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			if _, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action); err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
		}
	}
	return nil
}
