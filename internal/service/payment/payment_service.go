package payment

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/repository"
	"marketplace/pkg/log"
	"marketplace/pkg/utils"
)

// paymentRef matches the DH<paymentID> token the checkout embeds into the
// transfer description.
var paymentRef = regexp.MustCompile(`DH(\d+)`)

// TransactionNotification inbound bank webhook payload (Sepay format)
type TransactionNotification struct {
	ID              int64  `json:"id"`
	Gateway         string `json:"gateway"`
	TransactionDate string `json:"transactionDate"`
	AccountNumber   string `json:"accountNumber"`
	Code            string `json:"code"`
	Content         string `json:"content"`
	TransferType    string `json:"transferType"`
	TransferAmount  int64  `json:"transferAmount"`
	Accumulated     int64  `json:"accumulated"`
	SubAccount      string `json:"subAccount"`
	ReferenceCode   string `json:"referenceCode"`
	Description     string `json:"description"`
}

// ReconcileResult outcome of processing one notification
type ReconcileResult struct {
	Ignored        bool   `json:"ignored,omitempty"`
	PaymentID      uint64 `json:"paymentId,omitempty"`
	TotalAmount    int64  `json:"totalAmount,omitempty"`
	ReceivedAmount int64  `json:"receivedAmount,omitempty"`
	OrdersCount    int    `json:"ordersCount,omitempty"`
}

// PaymentService payment reconciliation interface
type PaymentService interface {
	// Process an inbound transfer notification
	ProcessTransaction(ctx context.Context, notif *TransactionNotification) (*ReconcileResult, error)
}

// paymentService payment service implementation
type paymentService struct {
	txm repository.TxManager
}

// NewPaymentService creates a payment service
func NewPaymentService(txm repository.TxManager) PaymentService {
	return &paymentService{txm: txm}
}

// ProcessTransaction reconciles one bank notification against its payment.
// Outgoing transfers are ignored. The audit-row insert doubles as the
// idempotency guard: a re-delivered webhook hits the unique code index and
// rolls the whole transaction back before any state is touched.
func (s *paymentService) ProcessTransaction(ctx context.Context, notif *TransactionNotification) (*ReconcileResult, error) {
	if notif.TransferType != "in" {
		log.WithFields(map[string]interface{}{
			"transfer_type": notif.TransferType,
			"code":          notif.Code,
		}).Warn("Ignoring outgoing transaction")
		return &ReconcileResult{Ignored: true}, nil
	}

	if notif.Code == "" {
		return nil, utils.ErrMissingTransactionRef
	}

	paymentID, err := extractPaymentID(notif.Content)
	if err != nil {
		return nil, err
	}

	var result *ReconcileResult
	err = s.txm.WithTransaction(ctx, func(r *repository.Repositories) error {
		txn := &model.PaymentTransaction{
			Gateway:            notif.Gateway,
			TransactionDate:    parseTransactionDate(notif.TransactionDate),
			AccountNumber:      notif.AccountNumber,
			SubAccount:         notif.SubAccount,
			AmountIn:           notif.TransferAmount,
			AmountOut:          0,
			Accumulated:        notif.Accumulated,
			Code:               notif.Code,
			TransactionContent: notif.Content,
			ReferenceNumber:    notif.ReferenceCode,
			Body:               notif.Description,
		}
		if err := r.Payment.CreateTransaction(ctx, txn); err != nil {
			return err
		}

		payment, err := r.Payment.GetWithOrders(ctx, paymentID)
		if err != nil {
			return err
		}
		if len(payment.Orders) == 0 {
			return utils.ErrNoOrdersForPayment
		}

		var total int64
		for _, o := range payment.Orders {
			total += o.TotalPrice
		}

		if notif.TransferAmount < total {
			return utils.NewErrorf(utils.CodeInsufficientFunds,
				"payment amount insufficient, required %d, received %d", total, notif.TransferAmount)
		}

		if err := r.Payment.UpdateStatus(ctx, paymentID, model.PaymentStatusSuccess); err != nil {
			return err
		}
		if _, err := r.Order.UpdateStatusByPaymentID(ctx, paymentID, model.OrderStatusPendingPickup); err != nil {
			return err
		}

		result = &ReconcileResult{
			PaymentID:      paymentID,
			TotalAmount:    total,
			ReceivedAmount: notif.TransferAmount,
			OrdersCount:    len(payment.Orders),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"payment_id":      result.PaymentID,
		"total_amount":    result.TotalAmount,
		"received_amount": result.ReceivedAmount,
		"orders_count":    result.OrdersCount,
	}).Info("Payment reconciled")
	return result, nil
}

// extractPaymentID pulls the payment id out of the free-text transfer
// content via the DH<id> marker
func extractPaymentID(content string) (uint64, error) {
	m := paymentRef.FindStringSubmatch(content)
	if m == nil {
		return 0, utils.ErrMalformedReference
	}

	id, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil || id == 0 {
		return 0, utils.ErrMalformedReference
	}
	return id, nil
}

// parseTransactionDate accepts the provider's timestamp formats, falling
// back to now so a malformed date never drops an audit row
func parseTransactionDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
