package models

import (
	"time"
)

// Order 订单表
// 订单记录来自外部下单流程，本核心只读取并校验变更。
type Order struct {
	ID              string     `gorm:"type:varchar(64);primarykey" json:"id"`                        // 订单ID
	CustomerID      string     `gorm:"type:varchar(64);index" json:"customer_id,omitempty"`          // 客户ID（弱引用）
	CustomerName    string     `gorm:"type:varchar(200)" json:"customer_name,omitempty"`             // 客户姓名（仅展示）
	CustomerPhone   string     `gorm:"type:varchar(64)" json:"customer_phone,omitempty"`             // 客户电话（仅展示）
	TotalPrice      Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"`     // 订单金额
	IsPaid          bool       `gorm:"index;not null;default:false" json:"is_paid"`                  // 是否已支付
	PaymentMethod   string     `gorm:"type:varchar(20);not null" json:"payment_method"`              // 支付方式
	IsDelivered     bool       `gorm:"index;not null;default:false" json:"is_delivered"`             // 是否已送达
	DeliveredAt     *time.Time `gorm:"index" json:"delivered_at,omitempty"`                          // 送达时间
	IsCanceled      bool       `gorm:"index;not null;default:false" json:"is_canceled"`              // 是否已取消
	CancelReason    string     `gorm:"type:varchar(500)" json:"cancel_reason,omitempty"`             // 取消原因
	AssignedTo      *string    `gorm:"type:varchar(64);index" json:"assigned_to,omitempty"`          // 配送员ID（弱引用）
	ShippingAddress string     `gorm:"type:varchar(500)" json:"shipping_address,omitempty"`          // 收货地址
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                      // 创建时间（不可变）
	UpdatedAt       time.Time  `gorm:"index" json:"updated_at"`                                      // 更新时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// IsAssigned 是否已指派配送员（指派后即锁定）
func (o *Order) IsAssigned() bool {
	return o.AssignedTo != nil && *o.AssignedTo != ""
}

// EffectiveDeliveredAt 读取送达时间；上游数据可能违反软不变式，
// 未送达的订单即便带有 delivered_at 也视为无。
func (o *Order) EffectiveDeliveredAt() *time.Time {
	if !o.IsDelivered {
		return nil
	}
	return o.DeliveredAt
}
