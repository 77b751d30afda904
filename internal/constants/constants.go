package constants

// 会话角色常量
const (
	RoleCustomer   = "customer"
	RoleDelivery   = "delivery"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// 支付方式常量
const (
	PaymentMethodCOD     = "cod"
	PaymentMethodPrepaid = "prepaid"
	PaymentMethodOther   = "other"
)

// 配送工作流状态常量
const (
	WorkflowStateUnassigned = "unassigned"
	WorkflowStateAssigned   = "assigned"
	WorkflowStateDelivered  = "delivered"
	WorkflowStateCanceled   = "canceled"
)

// 订单列表过滤条件常量
const (
	OrderFilterAll       = "all"
	OrderFilterPaid      = "paid"
	OrderFilterUnpaid    = "unpaid"
	OrderFilterDelivered = "delivered"
	OrderFilterPending   = "pending"
	OrderFilterCanceled  = "canceled"
	OrderFilterAssigned  = "assigned"
)

// 订单列表排序条件常量
const (
	OrderSortNewest    = "newest"
	OrderSortOldest    = "oldest"
	OrderSortPriceHigh = "price_high"
	OrderSortPriceLow  = "price_low"
)

// 控制台路由常量
const (
	RouteProfile             = "/profile"
	RouteAdminDashboard      = "/admin/dashboard"
	RouteAdminAddProduct     = "/admin/add-product"
	RouteSuperAdminAnalytics = "/superadmin/analytics"
	RouteDeliveryDashboard   = "/delivery/dashboard"
	RouteDeliveryAnalytics   = "/delivery/analytics"
)

// RoleRoutes 角色能力表：角色 -> 可访问路由
// 路由权限只在这里声明，不在各处按角色字符串分支。
var RoleRoutes = map[string][]string{
	RoleAdmin: {
		RouteAdminDashboard,
		RouteAdminAddProduct,
	},
	RoleSuperAdmin: {
		RouteSuperAdminAnalytics,
	},
	RoleDelivery: {
		RouteDeliveryDashboard,
		RouteDeliveryAnalytics,
	},
	RoleCustomer: {},
}

// RoleInherits 角色继承表：子角色 -> 继承的父角色
var RoleInherits = map[string][]string{
	RoleSuperAdmin: {RoleAdmin},
}

// AnyAuthenticatedRoutes 任意已登录角色均可访问的路由
var AnyAuthenticatedRoutes = []string{
	RouteProfile,
}

// KnownRoles 全部合法角色
var KnownRoles = []string{
	RoleCustomer,
	RoleDelivery,
	RoleAdmin,
	RoleSuperAdmin,
}

// IsKnownRole 判断角色是否合法
func IsKnownRole(role string) bool {
	for _, r := range KnownRoles {
		if r == role {
			return true
		}
	}
	return false
}
