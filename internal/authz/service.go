package authz

import (
	"fmt"
	"strings"

	"github.com/orderdesk/internal/models"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
)

// 拒绝原因常量；路由层据此决定跳转
const (
	ReasonUnauthenticated  = "unauthenticated"
	ReasonInsufficientRole = "insufficient_role"
)

const (
	actionView   = "view"
	anyRoleAlias = "role:any"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Decision 授权判定结果
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Decide 纯角色判定：requiredRoles 为空表示任意已登录角色。
// 无会话角色一律拒绝。无状态，每次访问都重新判定。
func Decide(role string, requiredRoles []string) Decision {
	role = strings.TrimSpace(role)
	if role == "" {
		return deny(ReasonUnauthenticated)
	}
	if len(requiredRoles) == 0 {
		return allow()
	}
	for _, required := range requiredRoles {
		if role == strings.TrimSpace(required) {
			return allow()
		}
	}
	return deny(ReasonInsufficientRole)
}

// Service 路由授权服务
// 策略表在启动时由角色能力表一次性灌入，运行期只读。
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并灌入角色能力表
func NewService() (*Service, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model failed: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer failed: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)

	svc := &Service{enforcer: enforcer}
	if err := svc.bootstrapRoleTable(); err != nil {
		return nil, err
	}
	return svc, nil
}

// AuthorizeRoute 判定会话能否进入路由；每次访问都重新求值，不缓存结论
func (s *Service) AuthorizeRoute(session *models.Session, route string) (Decision, error) {
	if s == nil || s.enforcer == nil {
		return deny(ReasonUnauthenticated), fmt.Errorf("authz service unavailable")
	}
	if session == nil || strings.TrimSpace(session.Role) == "" {
		return deny(ReasonUnauthenticated), nil
	}
	allowed, err := s.enforcer.Enforce(strings.TrimSpace(session.Role), normalizeRoute(route), actionView)
	if err != nil {
		return deny(ReasonInsufficientRole), fmt.Errorf("authz enforce failed: %w", err)
	}
	if !allowed {
		return deny(ReasonInsufficientRole), nil
	}
	return allow(), nil
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}
