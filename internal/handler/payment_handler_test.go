package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"marketplace/internal/service/payment"
	"marketplace/pkg/utils"
)

type stubPaymentService struct {
	err    error
	result *payment.ReconcileResult
	got    *payment.TransactionNotification
}

func (s *stubPaymentService) ProcessTransaction(ctx context.Context, notif *payment.TransactionNotification) (*payment.ReconcileResult, error) {
	s.got = notif
	return s.result, s.err
}

func newPaymentRouter(svc payment.PaymentService) *gin.Engine {
	h := NewPaymentHandler(svc, nil)

	r := gin.New()
	r.POST("/api/v1/payment/receiver", h.Receiver)
	return r
}

func TestReceiver(t *testing.T) {
	t.Run("Settled", func(t *testing.T) {
		svc := &stubPaymentService{
			result: &payment.ReconcileResult{PaymentID: 5, TotalAmount: 60000, ReceivedAmount: 60000, OrdersCount: 2},
		}
		r := newPaymentRouter(svc)

		w := jsonRequest(t, r, http.MethodPost, "/api/v1/payment/receiver", payment.TransactionNotification{
			Gateway:        "MBBank",
			Code:           "FT25152000001",
			Content:        "thanh toan DH5",
			TransferType:   "in",
			TransferAmount: 60000,
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "FT25152000001", svc.got.Code)

		resp := decodeResponse(t, w)
		assert.Equal(t, utils.CodeSuccess, resp.Code)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		r := newPaymentRouter(&stubPaymentService{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/receiver", bytes.NewBufferString("{oops"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DuplicateMapsTo409", func(t *testing.T) {
		svc := &stubPaymentService{err: utils.ErrDuplicateTransaction}
		r := newPaymentRouter(svc)

		w := jsonRequest(t, r, http.MethodPost, "/api/v1/payment/receiver", payment.TransactionNotification{
			Code:         "FT25152000001",
			Content:      "thanh toan DH5",
			TransferType: "in",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("InsufficientFundsMapsTo409", func(t *testing.T) {
		svc := &stubPaymentService{err: utils.ErrInsufficientFunds}
		r := newPaymentRouter(svc)

		w := jsonRequest(t, r, http.MethodPost, "/api/v1/payment/receiver", payment.TransactionNotification{
			Code:         "FT25152000001",
			Content:      "thanh toan DH5",
			TransferType: "in",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}
