package authz

import (
	"fmt"

	"github.com/orderdesk/internal/constants"
)

// bootstrapRoleTable 把角色能力表灌入 enforcer：
// 每个角色的专属路由、角色继承关系、以及任意已登录角色共享的路由。
func (s *Service) bootstrapRoleTable() error {
	for role, routes := range constants.RoleRoutes {
		for _, route := range routes {
			if _, err := s.enforcer.AddPolicy(role, route, "*"); err != nil {
				return fmt.Errorf("grant role route failed: %w", err)
			}
		}
	}

	for child, parents := range constants.RoleInherits {
		for _, parent := range parents {
			if _, err := s.enforcer.AddNamedGroupingPolicy("g", child, parent); err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
		}
	}

	// 所有角色都归入 role:any，共享免角色限制的路由
	for _, role := range constants.KnownRoles {
		if _, err := s.enforcer.AddNamedGroupingPolicy("g", role, anyRoleAlias); err != nil {
			return fmt.Errorf("link any-role alias failed: %w", err)
		}
	}
	for _, route := range constants.AnyAuthenticatedRoutes {
		if _, err := s.enforcer.AddPolicy(anyRoleAlias, route, "*"); err != nil {
			return fmt.Errorf("grant shared route failed: %w", err)
		}
	}
	return nil
}
