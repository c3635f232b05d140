package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/model"
	"marketplace/internal/service/order"
	"marketplace/pkg/queue"
)

// fakeOrderService records AutoCancel calls and can be told to fail.
type fakeOrderService struct {
	mu        sync.Mutex
	cancelled []uint64
	failWith  error
}

func (f *fakeOrderService) AutoCancel(ctx context.Context, orderID, userID uint64, reason string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWith != nil {
		return 0, f.failWith
	}
	f.cancelled = append(f.cancelled, orderID)
	return 1, nil
}

func (f *fakeOrderService) cancelledOrders() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.cancelled...)
}

func (f *fakeOrderService) Checkout(ctx context.Context, userID uint64, reqs []order.OrderRequest) (*order.CheckoutResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) Cancel(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID, userID uint64, status model.OrderStatus) (*model.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) GetOrder(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeOrderService) ListMyOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return nil, 0, errors.New("not implemented")
}

func (f *fakeOrderService) ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, int64, error) {
	return nil, 0, 0, errors.New("not implemented")
}

func enqueueCancel(t *testing.T, q queue.DelayQueue, orderID uint64, delay time.Duration) {
	t.Helper()
	job, err := queue.NewJob(queue.JobCancelOrder, queue.CancelOrderPayload{OrderID: orderID, UserID: 1})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), job, delay))
}

func TestDrain_ProcessesDueJobs(t *testing.T) {
	q := queue.NewMemoryDelayQueue()
	svc := &fakeOrderService{}
	c := NewCancelConsumer(svc, q, nil, Config{PollInterval: time.Millisecond})

	enqueueCancel(t, q, 42, 0)
	enqueueCancel(t, q, 43, 0)
	// Not due yet, must stay queued.
	enqueueCancel(t, q, 99, time.Hour)

	c.Drain(context.Background())

	assert.ElementsMatch(t, []uint64{42, 43}, svc.cancelledOrders())

	size, err := q.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)
}

func TestDrain_RetriesThenDeadLetters(t *testing.T) {
	q := queue.NewMemoryDelayQueue()
	svc := &fakeOrderService{failWith: errors.New("database down")}
	c := NewCancelConsumer(svc, q, nil, Config{PollInterval: time.Millisecond, MaxAttempts: 2})

	enqueueCancel(t, q, 42, 0)

	// First run fails and requeues with backoff.
	c.Drain(context.Background())
	assert.Empty(t, q.DeadLetters())

	// Second run exhausts the attempt budget.
	time.Sleep(5 * time.Millisecond)
	c.Drain(context.Background())

	dead := q.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, queue.JobCancelOrder, dead[0].Job.Name)
	assert.Equal(t, "database down", dead[0].Reason)

	size, err := q.Size(context.Background())
	require.NoError(t, err)
	assert.Zero(t, size)
}

func TestDrain_MalformedPayloadDeadLetters(t *testing.T) {
	q := queue.NewMemoryDelayQueue()
	svc := &fakeOrderService{}
	c := NewCancelConsumer(svc, q, nil, Config{PollInterval: time.Millisecond, MaxAttempts: 1})

	job := &queue.Job{ID: "bad", Name: queue.JobCancelOrder, Payload: []byte("{")}
	require.NoError(t, q.Enqueue(context.Background(), job, 0))

	c.Drain(context.Background())

	require.Len(t, q.DeadLetters(), 1)
	assert.Empty(t, svc.cancelledOrders())
}

func TestDrain_UnknownJobIsDropped(t *testing.T) {
	q := queue.NewMemoryDelayQueue()
	svc := &fakeOrderService{}
	c := NewCancelConsumer(svc, q, nil, Config{PollInterval: time.Millisecond})

	job, err := queue.NewJob("sendNewsletter", map[string]string{"to": "a@b.c"})
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), job, 0))

	c.Drain(context.Background())

	assert.Empty(t, q.DeadLetters())
	size, _ := q.Size(context.Background())
	assert.Zero(t, size)
}

func TestStartStop(t *testing.T) {
	q := queue.NewMemoryDelayQueue()
	svc := &fakeOrderService{}
	c := NewCancelConsumer(svc, q, nil, Config{PollInterval: time.Millisecond})

	enqueueCancel(t, q, 42, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)

	assert.Eventually(t, func() bool {
		return len(svc.cancelledOrders()) == 1
	}, time.Second, 5*time.Millisecond)

	c.Stop()
}
