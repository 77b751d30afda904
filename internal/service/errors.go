package service

import "errors"

// 状态机与数据源的统一错误定义；调用方用 errors.Is 判别
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrPartnerNotFound    = errors.New("delivery partner not found")
	ErrAlreadyLocked      = errors.New("order already assigned to a partner")
	ErrAlreadyDelivered   = errors.New("order already delivered")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrOrderCanceled      = errors.New("order is canceled")
	ErrOrderDelivered     = errors.New("order is delivered")
	ErrPaymentOutstanding = errors.New("cod payment not collected")
	ErrNotCashOnDelivery  = errors.New("payment method is not cash on delivery")
	ErrNotAssigned        = errors.New("order has no assigned partner")
	ErrTransitionInFlight = errors.New("another transition is in flight for this order")
	ErrUpstreamFailure    = errors.New("order source mutation failed")
)
