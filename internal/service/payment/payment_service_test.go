package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/utils"
)

// fakeState is the shared backing state for the fake repositories.
type fakeState struct {
	payments map[uint64]*model.Payment
	orders   map[uint64]*model.Order
	txnCodes map[string]bool
}

func newFakeState() *fakeState {
	return &fakeState{
		payments: make(map[uint64]*model.Payment),
		orders:   make(map[uint64]*model.Order),
		txnCodes: make(map[string]bool),
	}
}

func (s *fakeState) snapshot() *fakeState {
	snap := newFakeState()
	for k, v := range s.payments {
		c := *v
		snap.payments[k] = &c
	}
	for k, v := range s.orders {
		c := *v
		snap.orders[k] = &c
	}
	for k := range s.txnCodes {
		snap.txnCodes[k] = true
	}
	return snap
}

func (s *fakeState) seedPayment(id uint64, status model.PaymentStatus, orderTotals ...int64) {
	s.payments[id] = &model.Payment{ID: id, Status: status}
	for i, total := range orderTotals {
		orderID := id*10 + uint64(i)
		s.orders[orderID] = &model.Order{
			ID:         orderID,
			PaymentID:  id,
			Status:     model.OrderStatusPendingPayment,
			TotalPrice: total,
		}
	}
}

type fakePaymentRepo struct{ s *fakeState }

func (r *fakePaymentRepo) Create(ctx context.Context, payment *model.Payment) error {
	r.s.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GetWithOrders(ctx context.Context, id uint64) (*model.Payment, error) {
	payment, ok := r.s.payments[id]
	if !ok {
		return nil, utils.ErrPaymentNotFound
	}
	c := *payment
	for _, o := range r.s.orders {
		if o.PaymentID == id {
			c.Orders = append(c.Orders, *o)
		}
	}
	return &c, nil
}

func (r *fakePaymentRepo) UpdateStatus(ctx context.Context, id uint64, status model.PaymentStatus) error {
	payment, ok := r.s.payments[id]
	if !ok {
		return utils.ErrPaymentNotFound
	}
	payment.Status = status
	return nil
}

func (r *fakePaymentRepo) CreateTransaction(ctx context.Context, txn *model.PaymentTransaction) error {
	if r.s.txnCodes[txn.Code] {
		return utils.ErrDuplicateTransaction
	}
	r.s.txnCodes[txn.Code] = true
	return nil
}

type fakeOrderRepo struct{ s *fakeState }

func (r *fakeOrderRepo) Create(ctx context.Context, order *model.Order) error { return nil }

func (r *fakeOrderRepo) GetActiveByID(ctx context.Context, id uint64) (*model.Order, error) {
	order, ok := r.s.orders[id]
	if !ok {
		return nil, utils.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id uint64, status model.OrderStatus, updatedBy uint64) error {
	order, ok := r.s.orders[id]
	if !ok {
		return utils.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (r *fakeOrderRepo) ListByPaymentID(ctx context.Context, paymentID uint64) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range r.s.orders {
		if o.PaymentID == paymentID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateStatusByPaymentID(ctx context.Context, paymentID uint64, status model.OrderStatus) (int64, error) {
	var n int64
	for _, o := range r.s.orders {
		if o.PaymentID == paymentID {
			o.Status = status
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) ListUserOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, nil
}

func (r *fakeOrderRepo) SumShopRevenue(ctx context.Context, shopID uint64) (int64, error) {
	return 0, nil
}

// fakeTxManager restores a snapshot on error to emulate rollback.
type fakeTxManager struct{ s *fakeState }

func (m *fakeTxManager) WithTransaction(ctx context.Context, fn func(r *repository.Repositories) error) error {
	snap := m.s.snapshot()
	repos := &repository.Repositories{
		Order:   &fakeOrderRepo{m.s},
		Payment: &fakePaymentRepo{m.s},
	}
	if err := fn(repos); err != nil {
		*m.s = *snap
		return err
	}
	return nil
}

func newTestService(s *fakeState) PaymentService {
	return NewPaymentService(&fakeTxManager{s})
}

func notification(paymentID uint64, amount int64) *TransactionNotification {
	return &TransactionNotification{
		ID:              9001,
		Gateway:         "MBBank",
		TransactionDate: "2025-06-01 10:30:00",
		AccountNumber:   "1234567890",
		Code:            "FT25152000001",
		Content:         "CK den tu 0987654321 DH5 chuyen tien",
		TransferType:    "in",
		TransferAmount:  amount,
	}
}

func TestProcessTransaction_Success(t *testing.T) {
	s := newFakeState()
	s.seedPayment(5, model.PaymentStatusPending, 25000, 35000)
	svc := newTestService(s)

	result, err := svc.ProcessTransaction(context.Background(), notification(5, 60000))
	require.NoError(t, err)

	assert.Equal(t, uint64(5), result.PaymentID)
	assert.Equal(t, int64(60000), result.TotalAmount)
	assert.Equal(t, int64(60000), result.ReceivedAmount)
	assert.Equal(t, 2, result.OrdersCount)

	assert.Equal(t, model.PaymentStatusSuccess, s.payments[5].Status)
	for _, o := range s.orders {
		assert.Equal(t, model.OrderStatusPendingPickup, o.Status)
	}
}

func TestProcessTransaction_Overpayment(t *testing.T) {
	s := newFakeState()
	s.seedPayment(5, model.PaymentStatusPending, 25000)
	svc := newTestService(s)

	result, err := svc.ProcessTransaction(context.Background(), notification(5, 99000))
	require.NoError(t, err)
	assert.Equal(t, int64(25000), result.TotalAmount)
	assert.Equal(t, int64(99000), result.ReceivedAmount)
	assert.Equal(t, model.PaymentStatusSuccess, s.payments[5].Status)
}

func TestProcessTransaction_IgnoresOutgoing(t *testing.T) {
	s := newFakeState()
	s.seedPayment(5, model.PaymentStatusPending, 25000)
	svc := newTestService(s)

	notif := notification(5, 25000)
	notif.TransferType = "out"

	result, err := svc.ProcessTransaction(context.Background(), notif)
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, model.PaymentStatusPending, s.payments[5].Status)
	assert.Empty(t, s.txnCodes)
}

func TestProcessTransaction_MissingCode(t *testing.T) {
	svc := newTestService(newFakeState())

	notif := notification(5, 25000)
	notif.Code = ""

	_, err := svc.ProcessTransaction(context.Background(), notif)
	assert.ErrorIs(t, err, utils.ErrMissingTransactionRef)
}

func TestProcessTransaction_MalformedReference(t *testing.T) {
	svc := newTestService(newFakeState())

	t.Run("NoMarker", func(t *testing.T) {
		notif := notification(5, 25000)
		notif.Content = "CK den tu 0987654321 chuyen tien"

		_, err := svc.ProcessTransaction(context.Background(), notif)
		assert.ErrorIs(t, err, utils.ErrMalformedReference)
	})

	t.Run("ZeroID", func(t *testing.T) {
		notif := notification(5, 25000)
		notif.Content = "thanh toan DH0"

		_, err := svc.ProcessTransaction(context.Background(), notif)
		assert.ErrorIs(t, err, utils.ErrMalformedReference)
	})
}

func TestProcessTransaction_DuplicateAppliesOnce(t *testing.T) {
	s := newFakeState()
	s.seedPayment(5, model.PaymentStatusPending, 25000)
	svc := newTestService(s)

	_, err := svc.ProcessTransaction(context.Background(), notification(5, 25000))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusSuccess, s.payments[5].Status)

	// Re-delivery of the same webhook hits the unique code guard.
	_, err = svc.ProcessTransaction(context.Background(), notification(5, 25000))
	assert.ErrorIs(t, err, utils.ErrDuplicateTransaction)
	assert.Equal(t, model.PaymentStatusSuccess, s.payments[5].Status)
}

func TestProcessTransaction_InsufficientFundsRollsBack(t *testing.T) {
	s := newFakeState()
	s.seedPayment(5, model.PaymentStatusPending, 25000, 35000)
	svc := newTestService(s)

	_, err := svc.ProcessTransaction(context.Background(), notification(5, 40000))
	require.Error(t, err)
	assert.Equal(t, utils.CodeInsufficientFunds, utils.GetErrorCode(err))

	// Rolled back: payment untouched, orders untouched, audit row gone so
	// a corrected retry can land.
	assert.Equal(t, model.PaymentStatusPending, s.payments[5].Status)
	for _, o := range s.orders {
		assert.Equal(t, model.OrderStatusPendingPayment, o.Status)
	}
	assert.Empty(t, s.txnCodes)
}

func TestProcessTransaction_UnknownPayment(t *testing.T) {
	s := newFakeState()
	svc := newTestService(s)

	_, err := svc.ProcessTransaction(context.Background(), notification(404, 25000))
	assert.ErrorIs(t, err, utils.ErrPaymentNotFound)
	assert.Empty(t, s.txnCodes)
}

func TestParseTransactionDate(t *testing.T) {
	parsed := parseTransactionDate("2025-06-01 10:30:00")
	assert.Equal(t, time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC), parsed)

	// A malformed date still yields a usable timestamp.
	assert.False(t, parseTransactionDate("not-a-date").IsZero())
}
