package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/logger"
	"github.com/orderdesk/internal/models"
	"github.com/orderdesk/internal/repository"
)

// AssignmentService 配送工作流状态机
// 每个变更都是一次请求-应答交换：先按本地快照校验守卫，
// 再提交给订单数据源，只有确认成功后才回写本地订单对象；
// 失败时本地订单保持最后确认状态，错误原样上抛且不自动重试。
type AssignmentService struct {
	source repository.OrderSource
	now    func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAssignmentService 创建配送工作流服务
func NewAssignmentService(source repository.OrderSource) *AssignmentService {
	return &AssignmentService{
		source:   source,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
	}
}

// WorkflowState 读取订单当前的工作流状态
func WorkflowState(order *models.Order) string {
	switch {
	case order == nil:
		return ""
	case order.IsCanceled:
		return constants.WorkflowStateCanceled
	case order.IsDelivered:
		return constants.WorkflowStateDelivered
	case order.IsAssigned():
		return constants.WorkflowStateAssigned
	default:
		return constants.WorkflowStateUnassigned
	}
}

// Assign 指派配送员。订单已锁定（已有指派）时拒绝，
// 改派必须先显式清除现有指派。
func (s *AssignmentService) Assign(order *models.Order, partnerID string) error {
	if order == nil {
		return ErrOrderNotFound
	}
	release, err := s.begin(order.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := validateAssign(order); err != nil {
		return err
	}
	partner, err := s.source.GetPartner(partnerID)
	if err != nil {
		return s.upstream("assign_partner_lookup", order.ID, err)
	}
	if partner == nil {
		return ErrPartnerNotFound
	}

	confirmed, err := s.source.AssignPartner(order.ID, partner.ID, s.now())
	if err != nil {
		return s.resolveMutationError("assign", order.ID, err, validateAssign)
	}
	s.commit(order, confirmed)
	logger.Infow("order_assigned", "order_id", order.ID, "partner_id", partner.ID)
	return nil
}

// ClearAssignment 显式清除配送指派；这是改派前的唯一解锁通道
func (s *AssignmentService) ClearAssignment(order *models.Order) error {
	if order == nil {
		return ErrOrderNotFound
	}
	release, err := s.begin(order.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := validateClear(order); err != nil {
		return err
	}
	confirmed, err := s.source.ClearPartner(order.ID, s.now())
	if err != nil {
		return s.resolveMutationError("clear_assignment", order.ID, err, validateClear)
	}
	s.commit(order, confirmed)
	logger.Infow("order_assignment_cleared", "order_id", order.ID)
	return nil
}

// MarkDelivered 确认送达。货到付款订单必须先收款；
// 已取消订单永远无法送达。
func (s *AssignmentService) MarkDelivered(order *models.Order) error {
	if order == nil {
		return ErrOrderNotFound
	}
	release, err := s.begin(order.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := validateDelivered(order); err != nil {
		return err
	}
	confirmed, err := s.source.MarkDelivered(order.ID, s.now())
	if err != nil {
		return s.resolveMutationError("mark_delivered", order.ID, err, validateDelivered)
	}
	s.commit(order, confirmed)
	logger.Infow("order_delivered", "order_id", order.ID)
	return nil
}

// MarkPaid 确认货到付款收款。上游需要先经过人工确认。
// 已取消的订单仍允许确认收款（退款对账场景，业务口径待产品确认）。
func (s *AssignmentService) MarkPaid(order *models.Order) error {
	if order == nil {
		return ErrOrderNotFound
	}
	release, err := s.begin(order.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := validatePaid(order); err != nil {
		return err
	}
	confirmed, err := s.source.MarkPaid(order.ID, s.now())
	if err != nil {
		return s.resolveMutationError("mark_paid", order.ID, err, validatePaid)
	}
	s.commit(order, confirmed)
	logger.Infow("order_cod_paid", "order_id", order.ID)
	return nil
}

// Cancel 取消订单并记录原因；取消后指派与送达永久拒绝
func (s *AssignmentService) Cancel(order *models.Order, reason string) error {
	if order == nil {
		return ErrOrderNotFound
	}
	release, err := s.begin(order.ID)
	if err != nil {
		return err
	}
	defer release()

	if err := validateCancel(order); err != nil {
		return err
	}
	confirmed, err := s.source.CancelOrder(order.ID, reason, s.now())
	if err != nil {
		return s.resolveMutationError("cancel", order.ID, err, validateCancel)
	}
	s.commit(order, confirmed)
	logger.Infow("order_canceled", "order_id", order.ID, "reason", reason)
	return nil
}

// begin 登记在途变更；同一订单同时只允许一笔在途变更
func (s *AssignmentService) begin(orderID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return nil, ErrTransitionInFlight
	}
	s.inFlight[orderID] = struct{}{}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.inFlight, orderID)
	}, nil
}

// commit 数据源确认后按 ID 回写本地订单对象
func (s *AssignmentService) commit(order *models.Order, confirmed *models.Order) {
	if confirmed == nil || confirmed.ID != order.ID {
		return
	}
	*order = *confirmed
}

// resolveMutationError 归类数据源变更失败。
// 条件更新未命中说明订单已被其他会话改变：重读确认状态并复跑守卫，
// 给调用方一个具体原因；其余情况一律按上游失败处理。
func (s *AssignmentService) resolveMutationError(op, orderID string, err error, validate func(*models.Order) error) error {
	if !errors.Is(err, repository.ErrStaleOrder) {
		return s.upstream(op, orderID, err)
	}
	current, fetchErr := s.source.GetOrder(orderID)
	if fetchErr != nil {
		return s.upstream(op, orderID, fetchErr)
	}
	if current == nil {
		return ErrOrderNotFound
	}
	if guardErr := validate(current); guardErr != nil {
		logger.Warnw("order_transition_rejected", "op", op, "order_id", orderID, "reason", guardErr)
		return guardErr
	}
	return s.upstream(op, orderID, err)
}

func (s *AssignmentService) upstream(op, orderID string, err error) error {
	logger.Errorw("order_source_mutation_failed", "op", op, "order_id", orderID, "error", err)
	return fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
}

func validateAssign(o *models.Order) error {
	if o.IsAssigned() {
		return ErrAlreadyLocked
	}
	if o.IsCanceled {
		return ErrOrderCanceled
	}
	if o.IsDelivered {
		return ErrOrderDelivered
	}
	return nil
}

func validateClear(o *models.Order) error {
	if !o.IsAssigned() {
		return ErrNotAssigned
	}
	if o.IsDelivered {
		return ErrOrderDelivered
	}
	return nil
}

func validateDelivered(o *models.Order) error {
	if o.IsCanceled {
		return ErrOrderCanceled
	}
	if o.IsDelivered {
		return ErrAlreadyDelivered
	}
	if o.PaymentMethod == constants.PaymentMethodCOD && !o.IsPaid {
		return ErrPaymentOutstanding
	}
	return nil
}

func validatePaid(o *models.Order) error {
	if o.PaymentMethod != constants.PaymentMethodCOD {
		return ErrNotCashOnDelivery
	}
	if o.IsPaid {
		return ErrAlreadyPaid
	}
	return nil
}

func validateCancel(o *models.Order) error {
	if o.IsDelivered {
		return ErrOrderDelivered
	}
	if o.IsCanceled {
		return ErrOrderCanceled
	}
	return nil
}
