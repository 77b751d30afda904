package authz

import (
	"testing"

	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/models"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService()
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestDecideUnauthenticated(t *testing.T) {
	d := Decide("", []string{constants.RoleAdmin})
	if d.Allowed || d.Reason != ReasonUnauthenticated {
		t.Fatalf("expected unauthenticated deny, got %+v", d)
	}
}

func TestDecideInsufficientRole(t *testing.T) {
	d := Decide(constants.RoleDelivery, []string{constants.RoleAdmin})
	if d.Allowed || d.Reason != ReasonInsufficientRole {
		t.Fatalf("expected insufficient-role deny, got %+v", d)
	}
}

func TestDecideEmptyRequiredAllowsAnyRole(t *testing.T) {
	for _, role := range constants.KnownRoles {
		d := Decide(role, nil)
		if !d.Allowed {
			t.Fatalf("role %s: expected allow for empty required set, got %+v", role, d)
		}
	}
	if d := Decide("", nil); d.Allowed {
		t.Fatalf("missing session must deny even for empty required set")
	}
}

func TestDecideMemberAllowed(t *testing.T) {
	d := Decide(constants.RoleAdmin, []string{constants.RoleAdmin, constants.RoleSuperAdmin})
	if !d.Allowed {
		t.Fatalf("expected allow, got %+v", d)
	}
}

func TestAuthorizeRouteByRoleTable(t *testing.T) {
	svc := setupAuthzServiceTest(t)

	admin := &models.Session{UserID: "a1", Role: constants.RoleAdmin}
	d, err := svc.AuthorizeRoute(admin, constants.RouteAdminDashboard)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("admin must reach admin dashboard, got %+v", d)
	}

	delivery := &models.Session{UserID: "p1", Role: constants.RoleDelivery}
	d, err = svc.AuthorizeRoute(delivery, constants.RouteAdminDashboard)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonInsufficientRole {
		t.Fatalf("delivery on admin route must deny with insufficient role, got %+v", d)
	}

	d, err = svc.AuthorizeRoute(delivery, constants.RouteDeliveryAnalytics)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("delivery must reach own analytics, got %+v", d)
	}
}

func TestAuthorizeRouteNilSessionDenies(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	d, err := svc.AuthorizeRoute(nil, constants.RouteProfile)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed || d.Reason != ReasonUnauthenticated {
		t.Fatalf("nil session must deny unauthenticated, got %+v", d)
	}
}

func TestAuthorizeRouteSharedProfile(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	for _, role := range constants.KnownRoles {
		d, err := svc.AuthorizeRoute(&models.Session{UserID: "u", Role: role}, constants.RouteProfile)
		if err != nil {
			t.Fatalf("authorize failed for %s: %v", role, err)
		}
		if !d.Allowed {
			t.Fatalf("role %s must reach profile, got %+v", role, d)
		}
	}
}

func TestAuthorizeRouteSuperAdminInheritsAdmin(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	super := &models.Session{UserID: "s1", Role: constants.RoleSuperAdmin}

	d, err := svc.AuthorizeRoute(super, constants.RouteSuperAdminAnalytics)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("superadmin must reach own analytics, got %+v", d)
	}

	d, err = svc.AuthorizeRoute(super, constants.RouteAdminDashboard)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if !d.Allowed {
		t.Fatalf("superadmin must inherit admin routes, got %+v", d)
	}

	// 反向不成立
	admin := &models.Session{UserID: "a1", Role: constants.RoleAdmin}
	d, err = svc.AuthorizeRoute(admin, constants.RouteSuperAdminAnalytics)
	if err != nil {
		t.Fatalf("authorize failed: %v", err)
	}
	if d.Allowed {
		t.Fatalf("admin must not reach superadmin analytics")
	}
}

func TestAuthorizeRouteReEvaluatesPerCall(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	session := &models.Session{UserID: "u1", Role: constants.RoleDelivery}
	if d, _ := svc.AuthorizeRoute(session, constants.RouteDeliveryDashboard); !d.Allowed {
		t.Fatalf("expected allow for delivery dashboard")
	}
	// 角色变化意味着新会话；同一 user id 换角色后按新角色判定
	relogged := &models.Session{UserID: "u1", Role: constants.RoleCustomer}
	if d, _ := svc.AuthorizeRoute(relogged, constants.RouteDeliveryDashboard); d.Allowed {
		t.Fatalf("customer session must not keep delivery access")
	}
}
