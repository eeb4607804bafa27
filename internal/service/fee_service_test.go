package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

func newFeeFixture(t *testing.T) (FeeService, *portalFixture) {
	t.Helper()
	f := newPortalFixture(t)
	f.seedStudent(t, models.Student{Name: "Sam", RollNumber: "R-1", ClassName: "7", DateOfBirth: "2012-05-01"})
	return NewFeeService(repository.NewFeeRepository(f.db), f.students, f.validate, f.recorder, testLogger()), f
}

func TestFeeSummaryCountsOnlyPaid(t *testing.T) {
	svc, _ := newFeeFixture(t)
	ctx := context.Background()

	for _, amount := range []int64{500, 300} {
		_, err := svc.CreateStructure(ctx, dto.FeeStructureRequest{ClassName: "7", Title: "Term", Amount: amount}, adminActor)
		require.NoError(t, err)
	}
	_, err := svc.CreateStructure(ctx, dto.FeeStructureRequest{ClassName: "8", Title: "Other class", Amount: 999}, adminActor)
	require.NoError(t, err)

	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 200, Status: "paid"}, adminActor)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100, Status: "pending"}, adminActor)
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, "R-1")
	require.NoError(t, err)
	require.EqualValues(t, 800, summary.Total)
	require.EqualValues(t, 200, summary.Paid)
	require.EqualValues(t, 600, summary.Due)
	require.Len(t, summary.Structures, 2)
}

func TestFeeSummaryIsRecomputedOnEveryRead(t *testing.T) {
	svc, _ := newFeeFixture(t)
	ctx := context.Background()

	_, err := svc.CreateStructure(ctx, dto.FeeStructureRequest{ClassName: "7", Title: "Term", Amount: 500}, adminActor)
	require.NoError(t, err)
	before, err := svc.Summary(ctx, "R-1")
	require.NoError(t, err)
	require.EqualValues(t, 500, before.Due)

	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 150}, adminActor)
	require.NoError(t, err)
	after, err := svc.Summary(ctx, "R-1")
	require.NoError(t, err)
	require.EqualValues(t, 350, after.Due)
}

func TestFeeReceiptNumbers(t *testing.T) {
	svc, _ := newFeeFixture(t)
	ctx := context.Background()

	generated, err := svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100}, adminActor)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(generated.ReceiptNumber, "REC-"))
	require.Equal(t, models.PaymentStatusPaid, generated.Status)
	require.Equal(t, "Sam", generated.StudentName)

	second, err := svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100}, adminActor)
	require.NoError(t, err)
	require.NotEqual(t, generated.ReceiptNumber, second.ReceiptNumber)

	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100, ReceiptNumber: "MAN-7"}, adminActor)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100, ReceiptNumber: "MAN-7"}, adminActor)
	require.ErrorIs(t, err, ErrReceiptTaken)

	receipt, err := svc.ReceiptByNumber(ctx, "MAN-7")
	require.NoError(t, err)
	require.Equal(t, "MAN-7", receipt.Payment.ReceiptNumber)
	_, err = svc.ReceiptByNumber(ctx, "man-7")
	require.ErrorIs(t, err, ErrPaymentNotFound)
	_, err = svc.ReceiptByNumber(ctx, "MAN")
	require.ErrorIs(t, err, ErrPaymentNotFound)

	byID, err := svc.ReceiptByPayment(ctx, generated.ID)
	require.NoError(t, err)
	require.Equal(t, generated.ReceiptNumber, byID.Payment.ReceiptNumber)
}

func TestFeeHistoryNewestFirst(t *testing.T) {
	svc, _ := newFeeFixture(t)
	ctx := context.Background()

	older := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 1, 0)
	_, err := svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 100, PaidAt: &older, ReceiptNumber: "A"}, adminActor)
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, dto.PaymentRequest{RollNumber: "R-1", Amount: 200, PaidAt: &newer, ReceiptNumber: "B"}, adminActor)
	require.NoError(t, err)

	history, err := svc.History(ctx, "R-1")
	require.NoError(t, err)
	require.Len(t, history.Items, 2)
	require.Equal(t, "B", history.Items[0].ReceiptNumber)
	require.Equal(t, "A", history.Items[1].ReceiptNumber)
}

func TestFeePaymentRequiresKnownStudent(t *testing.T) {
	svc, _ := newFeeFixture(t)

	_, err := svc.RecordPayment(context.Background(), dto.PaymentRequest{RollNumber: "R-404", Amount: 100}, adminActor)
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.RecordPayment(context.Background(), dto.PaymentRequest{RollNumber: "R-1", Amount: 0}, adminActor)
	require.Error(t, err)
}
