package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ResponseCode business response code
type ResponseCode int

// Response codes
const (
	CodeSuccess ResponseCode = 0

	// Request errors
	CodeInvalidParam ResponseCode = 1001
	CodeUnauthorized ResponseCode = 1002
	CodeForbidden    ResponseCode = 1003
	CodeNotFound     ResponseCode = 1004
	CodeConflict     ResponseCode = 1005

	// Checkout errors
	CodeStockNotEnough    ResponseCode = 3001
	CodeStockConflict     ResponseCode = 3002
	CodeLockTimeout       ResponseCode = 3003
	CodeInvalidTransition ResponseCode = 3004

	// Payment errors
	CodeInsufficientFunds    ResponseCode = 4001
	CodeDuplicateTransaction ResponseCode = 4002
	CodePaymentNotFound      ResponseCode = 4003

	// System errors
	CodeInternalError ResponseCode = 5000
	CodeDatabaseError ResponseCode = 5001
	CodeRedisError    ResponseCode = 5002
	CodeQueueError    ResponseCode = 5003
)

// httpStatusByCode maps business codes onto HTTP statuses. Lock timeouts
// surface as 503 so callers treat them as transient.
var httpStatusByCode = map[ResponseCode]int{
	CodeSuccess:              http.StatusOK,
	CodeInvalidParam:         http.StatusBadRequest,
	CodeUnauthorized:         http.StatusUnauthorized,
	CodeForbidden:            http.StatusForbidden,
	CodeNotFound:             http.StatusNotFound,
	CodeConflict:             http.StatusConflict,
	CodeStockNotEnough:       http.StatusConflict,
	CodeStockConflict:        http.StatusConflict,
	CodeLockTimeout:          http.StatusServiceUnavailable,
	CodeInvalidTransition:    http.StatusConflict,
	CodeInsufficientFunds:    http.StatusConflict,
	CodeDuplicateTransaction: http.StatusConflict,
	CodePaymentNotFound:      http.StatusNotFound,
	CodeInternalError:        http.StatusInternalServerError,
	CodeDatabaseError:        http.StatusInternalServerError,
	CodeRedisError:           http.StatusInternalServerError,
	CodeQueueError:           http.StatusInternalServerError,
}

// HTTPStatus returns the HTTP status for a business code
func (c ResponseCode) HTTPStatus() int {
	if status, ok := httpStatusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Response standard response structure
type Response struct {
	Code      ResponseCode `json:"code"`
	Message   string       `json:"message"`
	Data      interface{}  `json:"data,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

// Success returns success response
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   "success",
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// SuccessWithMessage returns success response with a custom message
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:      CodeSuccess,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// Error returns error response for a business code
func Error(c *gin.Context, code ResponseCode, message string) {
	c.JSON(code.HTTPStatus(), Response{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().Unix(),
	})
}

// ErrorFromErr returns error response derived from an error value
func ErrorFromErr(c *gin.Context, err error) {
	if appErr, ok := IsAppError(err); ok {
		Error(c, appErr.Code, appErr.Message)
		return
	}
	Error(c, CodeInternalError, err.Error())
}

// PageResponse page response structure
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// SuccessPage returns success page response
func SuccessPage(c *gin.Context, list interface{}, total int64, page, size int) {
	Success(c, PageResponse{
		List:  list,
		Total: total,
		Page:  page,
		Size:  size,
	})
}
