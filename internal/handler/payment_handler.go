package handler

import (
	"github.com/gin-gonic/gin"

	"marketplace/internal/monitor"
	"marketplace/internal/service/payment"
	"marketplace/pkg/utils"
)

// PaymentHandler payment webhook handler
type PaymentHandler struct {
	paymentService payment.PaymentService
	metrics        *monitor.MetricsCollector
}

// NewPaymentHandler creates a payment handler
func NewPaymentHandler(paymentService payment.PaymentService, metrics *monitor.MetricsCollector) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		metrics:        metrics,
	}
}

// Receiver accepts the bank gateway's transfer notification and settles
// the referenced payment
func (h *PaymentHandler) Receiver(c *gin.Context) {
	var notif payment.TransactionNotification
	if err := c.ShouldBindJSON(&notif); err != nil {
		h.recordWebhook("invalid")
		utils.Error(c, utils.CodeInvalidParam, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentService.ProcessTransaction(c.Request.Context(), &notif)
	if err != nil {
		h.recordWebhook("failure")
		utils.ErrorFromErr(c, err)
		return
	}

	if result.Ignored {
		h.recordWebhook("ignored")
	} else {
		h.recordWebhook("settled")
	}
	utils.Success(c, result)
}

func (h *PaymentHandler) recordWebhook(status string) {
	if h.metrics != nil {
		h.metrics.RecordWebhook(status)
	}
}
