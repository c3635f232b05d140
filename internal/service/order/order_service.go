package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/lock"
	"marketplace/pkg/log"
	"marketplace/pkg/queue"
	"marketplace/pkg/utils"
)

// Config order business configuration
type Config struct {
	LockTTL     time.Duration
	CancelDelay time.Duration
	BankAccount string
	BankName    string
	QRBaseURL   string
}

// Receiver delivery contact snapshot frozen into each order
type Receiver struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderRequest one shop's share of a checkout call
type OrderRequest struct {
	ShopID      uint64   `json:"shopId"`
	Receiver    Receiver `json:"receiver"`
	CartItemIDs []uint64 `json:"cartItemIds"`
}

// PaymentSummary shared payment view returned from checkout
type PaymentSummary struct {
	ID            uint64              `json:"id"`
	Status        model.PaymentStatus `json:"status"`
	TotalAmount   int64               `json:"totalAmount"`
	QRPaymentLink string              `json:"qrPaymentLink"`
}

// CheckoutResult result of a checkout call
type CheckoutResult struct {
	Orders      []*model.Order `json:"orders"`
	TotalOrders int            `json:"totalOrders"`
	Payment     PaymentSummary `json:"payment"`
}

// OrderService order service interface
type OrderService interface {
	// Checkout places one order per requested shop under a shared payment
	Checkout(ctx context.Context, userID uint64, reqs []OrderRequest) (*CheckoutResult, error)

	// AutoCancel cancels an unpaid order, invoked by the delayed worker.
	// Returns the number of restored stock lines.
	AutoCancel(ctx context.Context, orderID, userID uint64, reason string) (int, error)

	// Cancel manual cancellation by the buyer or the shop owner
	Cancel(ctx context.Context, orderID, userID uint64) (*model.Order, error)

	// UpdateStatus moves an order along the lifecycle state machine
	UpdateStatus(ctx context.Context, orderID, userID uint64, status model.OrderStatus) (*model.Order, error)

	// Get order visible to the buyer or the shop owner
	GetOrder(ctx context.Context, orderID, userID uint64) (*model.Order, error)

	// List orders placed by the buyer
	ListMyOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error)

	// List orders received by the shop, with delivered revenue
	ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, int64, error)
}

// orderService order service implementation
type orderService struct {
	repos *repository.Repositories
	txm   repository.TxManager
	locks lock.Coordinator
	jobs  queue.DelayQueue
	cfg   Config
}

// NewOrderService creates an order service
func NewOrderService(
	repos *repository.Repositories,
	txm repository.TxManager,
	locks lock.Coordinator,
	jobs queue.DelayQueue,
	cfg Config,
) OrderService {
	if cfg.LockTTL == 0 {
		cfg.LockTTL = 3 * time.Second
	}
	if cfg.CancelDelay == 0 {
		cfg.CancelDelay = queue.DefaultCancelDelay
	}
	return &orderService{
		repos: repos,
		txm:   txm,
		locks: locks,
		jobs:  jobs,
		cfg:   cfg,
	}
}

// Checkout places orders. All referenced cart items are fetched up front,
// the distributed lock over their SKUs wraps a single database transaction
// that creates the shared payment, the per-shop orders with frozen item
// snapshots, the guarded stock decrements and the cart cleanup. Cancel jobs
// are scheduled after commit, best-effort.
func (s *orderService) Checkout(ctx context.Context, userID uint64, reqs []OrderRequest) (*CheckoutResult, error) {
	if len(reqs) == 0 {
		return nil, utils.NewError(utils.CodeInvalidParam, "at least one order is required")
	}

	var allIDs []uint64
	seen := make(map[uint64]struct{})
	for _, req := range reqs {
		if len(req.CartItemIDs) == 0 {
			return nil, utils.ErrNoItemsForOrder
		}
		if req.Receiver.Name == "" || req.Receiver.Phone == "" || req.Receiver.Address == "" {
			return nil, utils.NewError(utils.CodeInvalidParam, "receiver name, phone and address are required")
		}
		for _, id := range req.CartItemIDs {
			if _, dup := seen[id]; dup {
				return nil, utils.ErrInvalidCartReference
			}
			seen[id] = struct{}{}
			allIDs = append(allIDs, id)
		}
	}

	items, err := s.repos.Cart.ListByIDsForUser(ctx, userID, allIDs)
	if err != nil {
		return nil, utils.WrapError(utils.CodeDatabaseError, "failed to load cart items", err)
	}
	if len(items) != len(allIDs) {
		return nil, utils.ErrInvalidCartReference
	}

	itemByID := make(map[uint64]*model.CartItem, len(items))
	skuKeys := make([]string, 0, len(items))
	for _, item := range items {
		if item.SKU == nil || item.SKU.Product == nil || item.SKU.IsDeleted() {
			return nil, utils.ErrSKUNotFound
		}
		itemByID[item.ID] = item
		skuKeys = append(skuKeys, skuLockKey(item.SKUID))
	}

	lease, err := s.locks.Acquire(ctx, skuKeys, s.cfg.LockTTL)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		}).Warn("Failed to acquire checkout lock")
		return nil, utils.ErrLockTimeout
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			log.WithFields(map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			}).Error("Failed to release checkout lock")
		}
	}()

	var (
		payment *model.Payment
		created []*model.Order
	)

	err = s.txm.WithTransaction(ctx, func(r *repository.Repositories) error {
		payment = &model.Payment{Status: model.PaymentStatusPending}
		if err := r.Payment.Create(ctx, payment); err != nil {
			return utils.WrapError(utils.CodeDatabaseError, "failed to create payment", err)
		}

		created = created[:0]
		for _, req := range reqs {
			order, err := s.createShopOrder(ctx, r, userID, payment.ID, req, itemByID)
			if err != nil {
				return err
			}
			created = append(created, order)
		}

		if err := r.Cart.DeleteByIDsForUser(ctx, userID, allIDs); err != nil {
			return utils.WrapError(utils.CodeDatabaseError, "failed to clear cart items", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var total int64
	for _, o := range created {
		total += o.TotalPrice
	}

	s.scheduleCancelJobs(ctx, created, userID)

	log.WithFields(map[string]interface{}{
		"user_id":      userID,
		"payment_id":   payment.ID,
		"total_orders": len(created),
		"total_amount": total,
	}).Info("Checkout completed")

	return &CheckoutResult{
		Orders:      created,
		TotalOrders: len(created),
		Payment: PaymentSummary{
			ID:            payment.ID,
			Status:        payment.Status,
			TotalAmount:   total,
			QRPaymentLink: s.qrPaymentLink(total, payment.ID),
		},
	}, nil
}

// createShopOrder builds and persists one shop's order inside the checkout
// transaction, decrementing stock behind each item's fingerprint.
func (s *orderService) createShopOrder(ctx context.Context, r *repository.Repositories, userID, paymentID uint64, req OrderRequest, itemByID map[uint64]*model.CartItem) (*model.Order, error) {
	var (
		orderItems []model.OrderItem
		total      int64
	)

	shopID := req.ShopID
	for _, cartID := range req.CartItemIDs {
		item := itemByID[cartID]
		sku := item.SKU

		if !sku.HasStock(item.Quantity) {
			return nil, utils.NewErrorf(utils.CodeStockNotEnough, "insufficient stock for SKU %d", sku.ID)
		}
		if shopID == 0 {
			shopID = sku.Product.ShopID
		}

		total += sku.Price * int64(item.Quantity)
		orderItems = append(orderItems, model.OrderItem{
			SKUID:               sku.ID,
			ProductID:           sku.ProductID,
			ProductName:         sku.Product.Name,
			SKUPrice:            sku.Price,
			SKUValue:            sku.Value,
			Image:               sku.Image,
			Quantity:            item.Quantity,
			ProductTranslations: sku.Product.Translations,
		})
	}

	order := &model.Order{
		UserID:          userID,
		ShopID:          shopID,
		PaymentID:       paymentID,
		Status:          model.OrderStatusPendingPayment,
		ReceiverName:    req.Receiver.Name,
		ReceiverPhone:   req.Receiver.Phone,
		ReceiverAddress: req.Receiver.Address,
		TotalPrice:      total,
		CreatedByID:     userID,
		Items:           orderItems,
	}
	if err := r.Order.Create(ctx, order); err != nil {
		return nil, utils.WrapError(utils.CodeDatabaseError, "failed to create order", err)
	}

	for _, cartID := range req.CartItemIDs {
		item := itemByID[cartID]
		if err := r.SKU.DecrementStock(ctx, item.SKUID, item.Quantity, item.SKU.UpdatedAt); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// scheduleCancelJobs enqueues one delayed cancel job per created order.
// Queue failure never affects the committed checkout.
func (s *orderService) scheduleCancelJobs(ctx context.Context, orders []*model.Order, userID uint64) {
	for _, o := range orders {
		job, err := queue.NewJob(queue.JobCancelOrder, queue.CancelOrderPayload{
			OrderID: o.ID,
			UserID:  userID,
		})
		if err == nil {
			err = s.jobs.Enqueue(ctx, job, s.cfg.CancelDelay)
		}
		if err != nil {
			log.WithFields(map[string]interface{}{
				"order_id": o.ID,
				"user_id":  userID,
				"error":    err.Error(),
			}).Error("Failed to schedule auto-cancel job")
		}
	}
}

// AutoCancel cancels an order that never got paid. Safe to re-run: a
// missing order or any status other than PENDING_PAYMENT is a no-op.
// Payment state is left to reconciliation and manual cancel.
func (s *orderService) AutoCancel(ctx context.Context, orderID, userID uint64, reason string) (int, error) {
	if reason == "" {
		reason = "payment timeout"
	}

	restored := 0
	err := s.txm.WithTransaction(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetActiveByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, utils.ErrOrderNotFound) {
				log.WithFields(map[string]interface{}{
					"order_id": orderID,
				}).Warn("Auto-cancel skipped, order not found")
				return nil
			}
			return err
		}

		if !order.IsPendingPayment() {
			log.WithFields(map[string]interface{}{
				"order_id": orderID,
				"status":   order.Status,
			}).Info("Auto-cancel skipped, order already progressed")
			return nil
		}

		if err := r.Order.UpdateStatus(ctx, orderID, model.OrderStatusCancelled, userID); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := r.SKU.IncrementStock(ctx, item.SKUID, item.Quantity); err != nil {
				return err
			}
			restored++
		}

		log.WithFields(map[string]interface{}{
			"order_id":       orderID,
			"reason":         reason,
			"restored_lines": restored,
		}).Info("Order auto-cancelled")
		return nil
	})
	if err != nil {
		restored = 0
	}
	return restored, err
}

// Cancel manually cancels an order. Allowed to the buyer or the shop owner
// while the order has not been handed to delivery. Stock is restored and a
// still-pending payment is marked FAILED.
func (s *orderService) Cancel(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	var cancelled *model.Order

	err := s.txm.WithTransaction(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetActiveByID(ctx, orderID)
		if err != nil {
			return err
		}

		if !order.CanBeSeenBy(userID) {
			return utils.NewError(utils.CodeForbidden, "you do not have permission to cancel this order")
		}
		if !order.CanCancel() {
			return utils.NewErrorf(utils.CodeInvalidTransition, "order cannot be cancelled in status %s", order.Status)
		}

		if err := r.Order.UpdateStatus(ctx, orderID, model.OrderStatusCancelled, userID); err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := r.SKU.IncrementStock(ctx, item.SKUID, item.Quantity); err != nil {
				return err
			}
		}

		payment, err := r.Payment.GetWithOrders(ctx, order.PaymentID)
		if err != nil {
			return err
		}
		if payment.IsPending() {
			if err := r.Payment.UpdateStatus(ctx, payment.ID, model.PaymentStatusFailed); err != nil {
				return err
			}
		}

		order.Status = model.OrderStatusCancelled
		order.UpdatedByID = &userID
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"user_id":  userID,
	}).Info("Order cancelled")
	return cancelled, nil
}

// UpdateStatus moves an order along the state machine. Only the shop owner
// may do this, and only along a valid edge.
func (s *orderService) UpdateStatus(ctx context.Context, orderID, userID uint64, status model.OrderStatus) (*model.Order, error) {
	if !model.IsValidOrderStatus(status) {
		return nil, utils.NewErrorf(utils.CodeInvalidParam, "unknown order status %q", status)
	}

	var updated *model.Order
	err := s.txm.WithTransaction(ctx, func(r *repository.Repositories) error {
		order, err := r.Order.GetActiveByID(ctx, orderID)
		if err != nil {
			return err
		}

		if order.ShopID != userID {
			return utils.NewError(utils.CodeForbidden, "only the shop owner can update order status")
		}
		if !model.CanTransition(order.Status, status) {
			return utils.NewErrorf(utils.CodeInvalidTransition, "cannot transition order from %s to %s", order.Status, status)
		}

		if err := r.Order.UpdateStatus(ctx, orderID, status, userID); err != nil {
			return err
		}

		order.Status = status
		order.UpdatedByID = &userID
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"order_id": orderID,
		"user_id":  userID,
		"status":   status,
	}).Info("Order status updated")
	return updated, nil
}

// GetOrder gets an order visible to the buyer or the shop owner
func (s *orderService) GetOrder(ctx context.Context, orderID, userID uint64) (*model.Order, error) {
	order, err := s.repos.Order.GetActiveByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeSeenBy(userID) {
		return nil, utils.NewError(utils.CodeForbidden, "you do not have permission to view this order")
	}
	return order, nil
}

// ListMyOrders lists orders placed by the buyer
func (s *orderService) ListMyOrders(ctx context.Context, userID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, error) {
	return s.repos.Order.ListUserOrders(ctx, userID, status, page, pageSize)
}

// ListShopOrders lists orders received by the shop and the shop's
// delivered revenue
func (s *orderService) ListShopOrders(ctx context.Context, shopID uint64, status model.OrderStatus, page, pageSize int) ([]*model.Order, int64, int64, error) {
	orders, total, err := s.repos.Order.ListShopOrders(ctx, shopID, status, page, pageSize)
	if err != nil {
		return nil, 0, 0, err
	}

	revenue, err := s.repos.Order.SumShopRevenue(ctx, shopID)
	if err != nil {
		return nil, 0, 0, err
	}
	return orders, total, revenue, nil
}

// qrPaymentLink builds the bank-transfer QR link. The payment reference
// token DH<paymentID> in the description is what reconciliation parses
// back out of the bank statement.
func (s *orderService) qrPaymentLink(amount int64, paymentID uint64) string {
	q := url.Values{}
	q.Set("acc", s.cfg.BankAccount)
	q.Set("bank", s.cfg.BankName)
	q.Set("amount", strconv.FormatInt(amount, 10))
	q.Set("des", fmt.Sprintf("DH%d", paymentID))
	return s.cfg.QRBaseURL + "?" + q.Encode()
}

func skuLockKey(skuID uint64) string {
	return fmt.Sprintf("lock:sku:%d", skuID)
}
