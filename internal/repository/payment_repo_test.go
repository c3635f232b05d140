package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"

	"marketplace/internal/model"
	"marketplace/pkg/utils"
)

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	payment := &model.Payment{Status: model.PaymentStatusPending}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `payments`").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	if err := repo.Create(ctx, payment); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if payment.ID != 42 {
		t.Errorf("Expected payment ID 42, got %d", payment.ID)
	}
}

func TestPaymentRepository_GetWithOrders(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	paymentRows := sqlmock.NewRows([]string{"id", "status"}).
		AddRow(42, model.PaymentStatusPending)

	mock.ExpectQuery("SELECT \\* FROM `payments` WHERE id = \\? ORDER BY `payments`.`id` LIMIT \\?").
		WithArgs(uint64(42), 1).
		WillReturnRows(paymentRows)

	orderRows := sqlmock.NewRows([]string{"id", "payment_id", "status", "total_price"}).
		AddRow(1, 42, model.OrderStatusPendingPayment, 30000).
		AddRow(2, 42, model.OrderStatusPendingPayment, 20000)

	mock.ExpectQuery("SELECT \\* FROM `orders` WHERE `orders`.`payment_id` = \\? AND \\(deleted_at IS NULL\\)").
		WithArgs(uint64(42)).
		WillReturnRows(orderRows)

	payment, err := repo.GetWithOrders(ctx, 42)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if payment == nil || len(payment.Orders) != 2 {
		t.Errorf("Expected payment with 2 orders, got %+v", payment)
	}
}

func TestPaymentRepository_GetWithOrders_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT \\* FROM `payments`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetWithOrders(ctx, 404)
	if !errors.Is(err, utils.ErrPaymentNotFound) {
		t.Errorf("Expected ErrPaymentNotFound, got %v", err)
	}
}

func TestPaymentRepository_UpdateStatus(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `payments` SET .* WHERE id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.UpdateStatus(ctx, 42, model.PaymentStatusSuccess); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unfulfilled expectations: %v", err)
	}
}

func TestPaymentRepository_CreateTransaction_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	txn := &model.PaymentTransaction{
		Gateway:         "sepay",
		TransactionDate: time.Now(),
		AmountIn:        50000,
		Code:            "FT123456",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `payment_transactions`").
		WillReturnError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry 'FT123456'"})
	mock.ExpectRollback()

	err := repo.CreateTransaction(ctx, txn)
	if !errors.Is(err, utils.ErrDuplicateTransaction) {
		t.Errorf("Expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestPaymentRepository_CreateTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewPaymentRepository(db)
	ctx := context.Background()

	txn := &model.PaymentTransaction{
		Gateway:         "sepay",
		TransactionDate: time.Now(),
		AmountIn:        50000,
		Code:            "FT123457",
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `payment_transactions`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := repo.CreateTransaction(ctx, txn); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
