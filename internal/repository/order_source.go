package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/models"

	"gorm.io/gorm"
)

// ErrStaleOrder 条件更新未命中任何行：订单状态已被其他会话改变
var ErrStaleOrder = errors.New("order mutation had no effect")

// ListScope 订单可见范围（服务端按角色收窄）
type ListScope struct {
	Role   string
	UserID string
}

// OrderSource 订单数据源访问接口
// 读取返回当前可见订单快照；变更操作带条件守卫，
// 只有数据源确认成功才返回确认后的订单记录。
type OrderSource interface {
	ListOrders(scope ListScope) ([]models.Order, error)
	GetOrder(id string) (*models.Order, error)
	GetPartner(id string) (*models.User, error)
	ListPartners() ([]models.User, error)
	AssignPartner(orderID, partnerID string, at time.Time) (*models.Order, error)
	ClearPartner(orderID string, at time.Time) (*models.Order, error)
	MarkDelivered(orderID string, at time.Time) (*models.Order, error)
	MarkPaid(orderID string, at time.Time) (*models.Order, error)
	CancelOrder(orderID, reason string, at time.Time) (*models.Order, error)
}

// GormOrderSource GORM 实现
type GormOrderSource struct {
	db *gorm.DB
}

// NewOrderSource 创建订单数据源
func NewOrderSource(db *gorm.DB) *GormOrderSource {
	return &GormOrderSource{db: db}
}

// ListOrders 按角色范围列出订单
func (s *GormOrderSource) ListOrders(scope ListScope) ([]models.Order, error) {
	query := s.db.Model(&models.Order{})
	switch strings.TrimSpace(scope.Role) {
	case constants.RoleAdmin, constants.RoleSuperAdmin:
		// 管理端可见全部订单
	case constants.RoleDelivery:
		query = query.Where("assigned_to = ?", scope.UserID)
	case constants.RoleCustomer:
		query = query.Where("customer_id = ?", scope.UserID)
	default:
		return []models.Order{}, nil
	}
	var orders []models.Order
	if err := query.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder 根据 ID 获取订单
func (s *GormOrderSource) GetOrder(id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetPartner 根据 ID 获取配送员（仅返回 delivery 角色用户）
func (s *GormOrderSource) GetPartner(id string) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ? AND role = ?", id, constants.RoleDelivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListPartners 列出全部配送员
func (s *GormOrderSource) ListPartners() ([]models.User, error) {
	var users []models.User
	if err := s.db.Where("role = ?", constants.RoleDelivery).Order("name asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// AssignPartner 指派配送员；订单已锁定、已取消或已送达时不生效
func (s *GormOrderSource) AssignPartner(orderID, partnerID string, at time.Time) (*models.Order, error) {
	result := s.db.Model(&models.Order{}).
		Where("id = ? AND (assigned_to IS NULL OR assigned_to = '') AND is_canceled = ? AND is_delivered = ?", orderID, false, false).
		Updates(map[string]interface{}{
			"assigned_to": partnerID,
			"updated_at":  at,
		})
	return s.confirm(orderID, result)
}

// ClearPartner 显式清除指派；已送达订单不生效
func (s *GormOrderSource) ClearPartner(orderID string, at time.Time) (*models.Order, error) {
	result := s.db.Model(&models.Order{}).
		Where("id = ? AND assigned_to IS NOT NULL AND assigned_to <> '' AND is_delivered = ?", orderID, false).
		Updates(map[string]interface{}{
			"assigned_to": nil,
			"updated_at":  at,
		})
	return s.confirm(orderID, result)
}

// MarkDelivered 确认送达；已取消或已送达时不生效
func (s *GormOrderSource) MarkDelivered(orderID string, at time.Time) (*models.Order, error) {
	result := s.db.Model(&models.Order{}).
		Where("id = ? AND is_canceled = ? AND is_delivered = ?", orderID, false, false).
		Updates(map[string]interface{}{
			"is_delivered": true,
			"delivered_at": at,
			"updated_at":   at,
		})
	return s.confirm(orderID, result)
}

// MarkPaid 确认收款；已支付时不生效（已取消订单仍可确认收款）
func (s *GormOrderSource) MarkPaid(orderID string, at time.Time) (*models.Order, error) {
	result := s.db.Model(&models.Order{}).
		Where("id = ? AND is_paid = ?", orderID, false).
		Updates(map[string]interface{}{
			"is_paid":    true,
			"updated_at": at,
		})
	return s.confirm(orderID, result)
}

// CancelOrder 取消订单并记录原因；已送达或已取消时不生效
func (s *GormOrderSource) CancelOrder(orderID, reason string, at time.Time) (*models.Order, error) {
	result := s.db.Model(&models.Order{}).
		Where("id = ? AND is_delivered = ? AND is_canceled = ?", orderID, false, false).
		Updates(map[string]interface{}{
			"is_canceled":   true,
			"cancel_reason": reason,
			"updated_at":    at,
		})
	return s.confirm(orderID, result)
}

func (s *GormOrderSource) confirm(orderID string, result *gorm.DB) (*models.Order, error) {
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrStaleOrder
	}
	return s.GetOrder(orderID)
}
