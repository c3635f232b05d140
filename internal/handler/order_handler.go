package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/monitor"
	"marketplace/internal/service/order"
	"marketplace/pkg/utils"
)

// OrderHandler order handler
type OrderHandler struct {
	orderService order.OrderService
	metrics      *monitor.MetricsCollector
}

// NewOrderHandler creates an order handler
func NewOrderHandler(orderService order.OrderService, metrics *monitor.MetricsCollector) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		metrics:      metrics,
	}
}

// Checkout places orders for the items in the request body. One request
// may span several shops; all resulting orders share a single payment.
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var reqs []order.OrderRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		utils.Error(c, utils.CodeInvalidParam, "Invalid request body: "+err.Error())
		return
	}

	start := time.Now()
	result, err := h.orderService.Checkout(c.Request.Context(), userID, reqs)
	if err != nil {
		h.recordCheckout(err, time.Since(start))
		utils.ErrorFromErr(c, err)
		return
	}

	h.recordCheckout(nil, time.Since(start))
	if h.metrics != nil {
		h.metrics.RecordCheckoutOrders(result.TotalOrders)
	}
	utils.Success(c, result)
}

func (h *OrderHandler) recordCheckout(err error, duration time.Duration) {
	if h.metrics == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
		if errors.Is(err, utils.ErrLockTimeout) {
			h.metrics.RecordLockTimeout()
		}
		if errors.Is(err, utils.ErrStockConflict) {
			h.metrics.RecordStockConflict()
		}
	}
	h.metrics.RecordCheckout(status, duration)
}

// GetOrder gets one order, visible to its buyer and its shop owner
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	orderID, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	o, err := h.orderService.GetOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	utils.Success(c, o)
}

// ListMyOrders lists the authenticated buyer's orders
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	status, page, pageSize, err := listParams(c)
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	orders, total, err := h.orderService.ListMyOrders(c.Request.Context(), userID, status, page, pageSize)
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	utils.SuccessPage(c, orders, total, page, pageSize)
}

// ListShopOrders lists orders received by the authenticated shop owner,
// with the shop's delivered revenue alongside
func (h *OrderHandler) ListShopOrders(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	status, page, pageSize, err := listParams(c)
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	orders, total, revenue, err := h.orderService.ListShopOrders(c.Request.Context(), userID, status, page, pageSize)
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	utils.Success(c, gin.H{
		"list":    orders,
		"total":   total,
		"page":    page,
		"size":    pageSize,
		"revenue": revenue,
	})
}

// UpdateStatus moves an order along its lifecycle, shop owner only
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	orderID, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, utils.CodeInvalidParam, "Invalid request body: "+err.Error())
		return
	}

	o, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, userID, model.OrderStatus(req.Status))
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	utils.Success(c, o)
}

// Cancel cancels an order on behalf of its buyer or shop owner
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	orderID, err := utils.ParseID(c.Param("id"))
	if err != nil {
		utils.ErrorFromErr(c, err)
		return
	}

	o, err := h.orderService.Cancel(c.Request.Context(), orderID, userID)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordOrderCancel("failure")
		}
		utils.ErrorFromErr(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordOrderCancel("success")
	}
	utils.Success(c, o)
}

func listParams(c *gin.Context) (model.OrderStatus, int, int, error) {
	status := c.Query("status")
	if status != "" && !model.IsValidOrderStatus(model.OrderStatus(status)) {
		return "", 0, 0, utils.NewErrorf(utils.CodeInvalidParam, "unknown order status %q", status)
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	page, pageSize = utils.NormalizePage(page, pageSize)

	return model.OrderStatus(status), page, pageSize, nil
}
