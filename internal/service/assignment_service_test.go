package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/orderdesk/internal/constants"
	"github.com/orderdesk/internal/models"
	"github.com/orderdesk/internal/repository"
)

// fakeOrderSource 可编排的数据源替身：守卫语义与 GORM 实现一致，
// 可注入一次性的上游失败，可阻塞变更以模拟在途请求。
type fakeOrderSource struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	partners map[string]*models.User
	failNext error
	gate     chan struct{}
}

func newFakeOrderSource() *fakeOrderSource {
	return &fakeOrderSource{
		orders:   map[string]*models.Order{},
		partners: map[string]*models.User{},
	}
}

func (f *fakeOrderSource) put(order models.Order) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := order
	f.orders[order.ID] = &copied
	return &copied
}

func (f *fakeOrderSource) addPartner(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partners[id] = &models.User{ID: id, Name: name, Role: constants.RoleDelivery}
}

func (f *fakeOrderSource) takeFailure() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeOrderSource) waitGate() {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (f *fakeOrderSource) snapshot(id string) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[id]; ok {
		copied := *o
		return &copied
	}
	return nil
}

func (f *fakeOrderSource) ListOrders(scope repository.ListScope) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	orders := make([]models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		orders = append(orders, *o)
	}
	return orders, nil
}

func (f *fakeOrderSource) GetOrder(id string) (*models.Order, error) {
	return f.snapshot(id), nil
}

func (f *fakeOrderSource) GetPartner(id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.partners[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeOrderSource) ListPartners() ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	partners := make([]models.User, 0, len(f.partners))
	for _, p := range f.partners {
		partners = append(partners, *p)
	}
	return partners, nil
}

func (f *fakeOrderSource) mutate(id string, guard func(*models.Order) bool, apply func(*models.Order)) (*models.Order, error) {
	f.waitGate()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || !guard(o) {
		return nil, repository.ErrStaleOrder
	}
	apply(o)
	copied := *o
	return &copied, nil
}

func (f *fakeOrderSource) AssignPartner(orderID, partnerID string, at time.Time) (*models.Order, error) {
	return f.mutate(orderID,
		func(o *models.Order) bool { return !o.IsAssigned() && !o.IsCanceled && !o.IsDelivered },
		func(o *models.Order) { o.AssignedTo = &partnerID; o.UpdatedAt = at },
	)
}

func (f *fakeOrderSource) ClearPartner(orderID string, at time.Time) (*models.Order, error) {
	return f.mutate(orderID,
		func(o *models.Order) bool { return o.IsAssigned() && !o.IsDelivered },
		func(o *models.Order) { o.AssignedTo = nil; o.UpdatedAt = at },
	)
}

func (f *fakeOrderSource) MarkDelivered(orderID string, at time.Time) (*models.Order, error) {
	return f.mutate(orderID,
		func(o *models.Order) bool { return !o.IsCanceled && !o.IsDelivered },
		func(o *models.Order) { o.IsDelivered = true; o.DeliveredAt = &at; o.UpdatedAt = at },
	)
}

func (f *fakeOrderSource) MarkPaid(orderID string, at time.Time) (*models.Order, error) {
	return f.mutate(orderID,
		func(o *models.Order) bool { return !o.IsPaid },
		func(o *models.Order) { o.IsPaid = true; o.UpdatedAt = at },
	)
}

func (f *fakeOrderSource) CancelOrder(orderID, reason string, at time.Time) (*models.Order, error) {
	return f.mutate(orderID,
		func(o *models.Order) bool { return !o.IsDelivered && !o.IsCanceled },
		func(o *models.Order) { o.IsCanceled = true; o.CancelReason = reason; o.UpdatedAt = at },
	)
}

func setupAssignmentTest(t *testing.T) (*AssignmentService, *fakeOrderSource) {
	t.Helper()
	source := newFakeOrderSource()
	svc := NewAssignmentService(source)
	return svc, source
}

func TestAssignConfirmsThenCommits(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	order := *source.put(models.Order{ID: "o1"})

	if err := svc.Assign(&order, "p1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if !order.IsAssigned() || *order.AssignedTo != "p1" {
		t.Fatalf("local order must reflect confirmed assignment, got %+v", order.AssignedTo)
	}
	if WorkflowState(&order) != constants.WorkflowStateAssigned {
		t.Fatalf("expected assigned state, got %s", WorkflowState(&order))
	}
}

func TestAssignTwiceReturnsAlreadyLocked(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	source.addPartner("p2", "Meena")
	order := *source.put(models.Order{ID: "o1"})

	if err := svc.Assign(&order, "p1"); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if err := svc.Assign(&order, "p2"); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
	if *order.AssignedTo != "p1" {
		t.Fatalf("assignment must stay with first partner, got %s", *order.AssignedTo)
	}
}

func TestAssignRejectsUnknownPartner(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	order := *source.put(models.Order{ID: "o1"})

	if err := svc.Assign(&order, "ghost"); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected ErrPartnerNotFound, got %v", err)
	}
	if order.IsAssigned() {
		t.Fatalf("order must stay unassigned")
	}
}

func TestAssignRejectedAfterCancel(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	order := *source.put(models.Order{ID: "o1"})

	if err := svc.Cancel(&order, "out of stock"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if order.CancelReason != "out of stock" {
		t.Fatalf("expected stored cancel reason, got %q", order.CancelReason)
	}
	if err := svc.Assign(&order, "p1"); !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled, got %v", err)
	}
	if err := svc.MarkDelivered(&order); !errors.Is(err, ErrOrderCanceled) {
		t.Fatalf("expected ErrOrderCanceled for delivery, got %v", err)
	}
}

func TestClearAssignmentUnlocksReassign(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	source.addPartner("p2", "Meena")
	order := *source.put(models.Order{ID: "o1"})

	if err := svc.Assign(&order, "p1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if err := svc.ClearAssignment(&order); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if order.IsAssigned() {
		t.Fatalf("expected unassigned order after clear")
	}
	if err := svc.Assign(&order, "p2"); err != nil {
		t.Fatalf("reassign after clear failed: %v", err)
	}
	if *order.AssignedTo != "p2" {
		t.Fatalf("expected p2 after reassign, got %s", *order.AssignedTo)
	}
}

func TestMarkDeliveredRequiresCODPayment(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	order := *source.put(models.Order{ID: "o1", PaymentMethod: constants.PaymentMethodCOD})

	if err := svc.MarkDelivered(&order); !errors.Is(err, ErrPaymentOutstanding) {
		t.Fatalf("expected ErrPaymentOutstanding, got %v", err)
	}
	if order.IsDelivered {
		t.Fatalf("is_delivered must not change on rejected transition")
	}

	if err := svc.MarkPaid(&order); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if err := svc.MarkDelivered(&order); err != nil {
		t.Fatalf("mark delivered after payment failed: %v", err)
	}
	if !order.IsDelivered || order.DeliveredAt == nil {
		t.Fatalf("expected delivered order with timestamp, got %+v", order)
	}
	if err := svc.MarkDelivered(&order); !errors.Is(err, ErrAlreadyDelivered) {
		t.Fatalf("expected ErrAlreadyDelivered, got %v", err)
	}
}

func TestMarkPaidGuards(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	prepaid := *source.put(models.Order{ID: "o1", PaymentMethod: constants.PaymentMethodPrepaid})
	if err := svc.MarkPaid(&prepaid); !errors.Is(err, ErrNotCashOnDelivery) {
		t.Fatalf("expected ErrNotCashOnDelivery, got %v", err)
	}

	cod := *source.put(models.Order{ID: "o2", PaymentMethod: constants.PaymentMethodCOD, IsPaid: true})
	if err := svc.MarkPaid(&cod); !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestMarkPaidAllowedOnCanceledOrder(t *testing.T) {
	// 取消的订单仍可确认收款（对账口径，业务上待产品确认）
	svc, source := setupAssignmentTest(t)
	order := *source.put(models.Order{ID: "o1", PaymentMethod: constants.PaymentMethodCOD, IsCanceled: true})

	if err := svc.MarkPaid(&order); err != nil {
		t.Fatalf("mark paid on canceled order failed: %v", err)
	}
	if !order.IsPaid {
		t.Fatalf("expected paid order, got %+v", order)
	}
}

func TestCancelRejectedAfterDelivery(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	order := *source.put(models.Order{ID: "o1", PaymentMethod: constants.PaymentMethodPrepaid, IsPaid: true})

	if err := svc.MarkDelivered(&order); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if err := svc.Cancel(&order, "changed mind"); !errors.Is(err, ErrOrderDelivered) {
		t.Fatalf("expected ErrOrderDelivered, got %v", err)
	}
}

func TestUpstreamFailureLeavesOrderUntouchedAndRetryable(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	order := *source.put(models.Order{ID: "o1"})

	source.failNext = errors.New("connection reset")
	err := svc.Assign(&order, "p1")
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("expected ErrUpstreamFailure, got %v", err)
	}
	if order.IsAssigned() {
		t.Fatalf("local order must stay at last confirmed state")
	}

	// 未自动重试，显式重试可成功
	if err := svc.Assign(&order, "p1"); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if *order.AssignedTo != "p1" {
		t.Fatalf("expected assignment after retry, got %+v", order.AssignedTo)
	}
}

func TestStaleSnapshotClassifiedFromConfirmedState(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	source.addPartner("p2", "Meena")
	order := *source.put(models.Order{ID: "o1"})

	// 另一个控制台先完成了指派；本地快照仍是未指派
	if _, err := source.AssignPartner("o1", "p2", time.Now()); err != nil {
		t.Fatalf("concurrent assign failed: %v", err)
	}
	if err := svc.Assign(&order, "p1"); !errors.Is(err, ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked from confirmed state, got %v", err)
	}
	if order.IsAssigned() {
		t.Fatalf("failed transition must not touch the local snapshot")
	}
}

func TestDuplicateSubmissionRejectedWhileInFlight(t *testing.T) {
	svc, source := setupAssignmentTest(t)
	source.addPartner("p1", "Ravi")
	order := *source.put(models.Order{ID: "o1", PaymentMethod: constants.PaymentMethodCOD})
	gate := make(chan struct{})
	source.gate = gate

	first := make(chan error, 1)
	go func() {
		o := order
		first <- svc.MarkPaid(&o)
	}()

	// 等第一笔变更进入在途状态
	deadline := time.After(2 * time.Second)
	for {
		svc.mu.Lock()
		_, busy := svc.inFlight["o1"]
		svc.mu.Unlock()
		if busy {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first transition never became in-flight")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	dup := order
	if err := svc.MarkPaid(&dup); !errors.Is(err, ErrTransitionInFlight) {
		t.Fatalf("expected ErrTransitionInFlight, got %v", err)
	}

	close(gate)
	if err := <-first; err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
}

func TestWorkflowStateMapping(t *testing.T) {
	partner := "p1"
	deliveredAt := time.Now()
	cases := []struct {
		name  string
		order models.Order
		want  string
	}{
		{"unassigned", models.Order{ID: "a"}, constants.WorkflowStateUnassigned},
		{"assigned", models.Order{ID: "b", AssignedTo: &partner}, constants.WorkflowStateAssigned},
		{"delivered", models.Order{ID: "c", IsDelivered: true, DeliveredAt: &deliveredAt}, constants.WorkflowStateDelivered},
		{"canceled", models.Order{ID: "d", IsCanceled: true}, constants.WorkflowStateCanceled},
	}
	for _, tc := range cases {
		if got := WorkflowState(&tc.order); got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}
