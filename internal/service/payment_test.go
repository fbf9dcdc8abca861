package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/sajuking/sajuking-server/internal/metrics"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/portone"
	"github.com/sajuking/sajuking-server/internal/repository"
)

var customer = model.Customer{
	Name:  "김철수",
	Email: "chulsoo@example.com",
	Phone: "010-1234-5678",
}

func paidPayment(total int64) *portone.Payment {
	return &portone.Payment{
		Status:   portone.PaymentStatusPaid,
		Currency: "KRW",
		Amount:   portone.Amount{Total: total, Paid: total},
	}
}

func TestPaymentConfig(t *testing.T) {
	f := newFixture()

	cfg, err := f.svc.PaymentConfig()
	if err != nil {
		t.Fatalf("PaymentConfig error: %v", err)
	}
	if cfg.StoreID != "store-1" || cfg.ChannelKey != "channel-1" {
		t.Fatalf("PaymentConfig = %+v", cfg)
	}

	empty := NewService(Deps{Repo: newStubRepo()})
	if _, err := empty.PaymentConfig(); !errors.Is(err, ErrPaymentsNotConfigured) {
		t.Fatalf("err = %v, want ErrPaymentsNotConfigured", err)
	}
}

func TestCreateOrder(t *testing.T) {
	f := newFixture()

	o, err := f.svc.CreateOrder(context.Background(), "dev-1", customer)
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if o.Amount != 9900 {
		t.Fatalf("amount = %d, want 9900", o.Amount)
	}
	if o.Status != model.OrderStatusPending {
		t.Fatalf("status = %s, want PENDING", o.Status)
	}
	if o.DeviceID != "dev-1" || o.ID == "" {
		t.Fatalf("unexpected order identity: %+v", o)
	}
	if !regexp.MustCompile(`^SK-20240115-[0-9A-F]{6}$`).MatchString(o.Number) {
		t.Fatalf("order number = %q", o.Number)
	}
}

func TestCreateOrder_RetriesTakenNumber(t *testing.T) {
	f := newFixture()
	f.repo.createOrderErr = []error{repository.ErrOrderNumberTaken, repository.ErrOrderNumberTaken}

	if _, err := f.svc.CreateOrder(context.Background(), "dev-1", customer); err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
}

func TestCreateOrder_GivesUpOnTakenNumbers(t *testing.T) {
	f := newFixture()
	f.repo.createOrderErr = []error{
		repository.ErrOrderNumberTaken,
		repository.ErrOrderNumberTaken,
		repository.ErrOrderNumberTaken,
	}

	_, err := f.svc.CreateOrder(context.Background(), "dev-1", customer)
	if !errors.Is(err, repository.ErrOrderNumberTaken) {
		t.Fatalf("err = %v, want ErrOrderNumberTaken", err)
	}
}

func TestCreateOrder_ValidatesCustomer(t *testing.T) {
	f := newFixture()

	bad := []model.Customer{
		{Name: "", Email: customer.Email, Phone: customer.Phone},
		{Name: customer.Name, Email: "not-an-email", Phone: customer.Phone},
		{Name: customer.Name, Email: customer.Email, Phone: "12345"},
	}
	for _, c := range bad {
		if _, err := f.svc.CreateOrder(context.Background(), "dev-1", c); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("CreateOrder(%+v) err = %v, want ErrInvalidInput", c, err)
		}
	}
}

func TestGetOrder_OtherDevice(t *testing.T) {
	f := newFixture()
	o, _ := f.svc.CreateOrder(context.Background(), "dev-1", customer)

	if _, err := f.svc.GetOrder(context.Background(), "dev-2", o.ID); !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
	if _, err := f.svc.GetOrder(context.Background(), "dev-1", o.ID); err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	tests := []struct {
		name        string
		payment     *portone.Payment
		paymentErr  error
		wantSuccess bool
		wantError   string
		wantStatus  model.OrderStatus
	}{
		{
			name:        "paid with matching amount",
			payment:     paidPayment(9900),
			wantSuccess: true,
			wantStatus:  model.OrderStatusPaid,
		},
		{
			name:       "amount mismatch",
			payment:    paidPayment(100),
			wantError:  "amount mismatch: paid 100, expected 9900",
			wantStatus: model.OrderStatusFailed,
		},
		{
			name: "wrong currency",
			payment: &portone.Payment{
				Status:   portone.PaymentStatusPaid,
				Currency: "USD",
				Amount:   portone.Amount{Total: 9900},
			},
			wantError:  "unexpected currency USD",
			wantStatus: model.OrderStatusFailed,
		},
		{
			name: "not paid yet",
			payment: &portone.Payment{
				Status:   portone.PaymentStatusReady,
				Currency: "KRW",
				Amount:   portone.Amount{Total: 9900},
			},
			wantError:  "payment status is READY",
			wantStatus: model.OrderStatusFailed,
		},
		{
			name:       "unknown payment",
			paymentErr: portone.ErrPaymentNotFound,
			wantError:  "payment not found",
			wantStatus: model.OrderStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.payments.payment = tt.payment
			f.payments.err = tt.paymentErr
			ctx := context.Background()

			o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

			res, err := f.svc.VerifyPayment(ctx, "pay-1", o.ID)
			if err != nil {
				t.Fatalf("VerifyPayment error: %v", err)
			}
			if res.Success != tt.wantSuccess || res.Error != tt.wantError {
				t.Fatalf("result = %+v, want success=%v error=%q", res, tt.wantSuccess, tt.wantError)
			}
			if tt.wantSuccess && res.OrderNumber != o.Number {
				t.Fatalf("order number = %q, want %q", res.OrderNumber, o.Number)
			}

			stored, _ := f.repo.GetOrder(ctx, o.ID)
			if stored.Status != tt.wantStatus {
				t.Fatalf("stored status = %s, want %s", stored.Status, tt.wantStatus)
			}
			if !tt.wantSuccess && stored.FailureReason != tt.wantError {
				t.Fatalf("failure reason = %q, want %q", stored.FailureReason, tt.wantError)
			}

			wantTasks := 0
			if tt.wantSuccess {
				wantTasks = 1
			}
			if len(f.queue.tasks) != wantTasks {
				t.Fatalf("queued tasks = %d, want %d", len(f.queue.tasks), wantTasks)
			}
		})
	}
}

func TestVerifyPayment_UnknownOrder(t *testing.T) {
	f := newFixture()

	res, err := f.svc.VerifyPayment(context.Background(), "pay-1", "missing")
	if err != nil {
		t.Fatalf("VerifyPayment error: %v", err)
	}
	if res.Success || res.Error != "order not found" {
		t.Fatalf("result = %+v", res)
	}
	if len(f.metrics.verifications) != 1 || f.metrics.verifications[0] != metrics.VerificationRejected {
		t.Fatalf("verifications = %v", f.metrics.verifications)
	}
}

func TestVerifyPayment_Idempotent(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	if res, _ := f.svc.VerifyPayment(ctx, "pay-1", o.ID); !res.Success {
		t.Fatalf("first verification failed: %+v", res)
	}

	f.payments.err = errBoom
	res, err := f.svc.VerifyPayment(ctx, "pay-1", o.ID)
	if err != nil || !res.Success {
		t.Fatalf("repeat verification = %+v, %v; want success without provider call", res, err)
	}

	res, err = f.svc.VerifyPayment(ctx, "pay-2", o.ID)
	if err != nil {
		t.Fatalf("VerifyPayment error: %v", err)
	}
	if res.Success || res.Error != "order already paid" {
		t.Fatalf("second payment for a paid order = %+v", res)
	}
	if len(f.queue.tasks) != 1 {
		t.Fatalf("queued tasks = %d, want 1", len(f.queue.tasks))
	}
}

func TestVerifyPayment_RetryAfterFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	f.payments.payment = paidPayment(1)
	if res, _ := f.svc.VerifyPayment(ctx, "pay-1", o.ID); res.Success {
		t.Fatalf("mismatched payment accepted")
	}

	f.payments.payment = paidPayment(9900)
	if res, _ := f.svc.VerifyPayment(ctx, "pay-2", o.ID); !res.Success {
		t.Fatalf("retry after failure rejected: %+v", res)
	}
}

func TestVerifyPayment_ProviderError(t *testing.T) {
	f := newFixture()
	f.payments.err = errBoom
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	if _, err := f.svc.VerifyPayment(ctx, "pay-1", o.ID); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	stored, _ := f.repo.GetOrder(ctx, o.ID)
	if stored.Status != model.OrderStatusPending {
		t.Fatalf("infrastructure failure must not fail the order, status = %s", stored.Status)
	}
	if f.metrics.verifications[0] != metrics.VerificationError {
		t.Fatalf("verifications = %v", f.metrics.verifications)
	}
}

func TestVerifyPayment_ConcurrentPaidElsewhere(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)
	f.repo.markPaidErr = repository.ErrOrderAlreadyPaid
	f.repo.orders[o.ID].PaymentID = "pay-1"

	res, err := f.svc.VerifyPayment(ctx, "pay-1", o.ID)
	if err != nil || !res.Success {
		t.Fatalf("result = %+v, %v; want success", res, err)
	}
	if len(f.queue.tasks) != 0 {
		t.Fatalf("analysis must be queued only by the winning verification")
	}
}

func TestVerifyPayment_DroppedTaskIsCounted(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	f.queue.full = true
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	if res, _ := f.svc.VerifyPayment(ctx, "pay-1", o.ID); !res.Success {
		t.Fatalf("full task queue must not fail the payment: %+v", res)
	}
	if len(f.metrics.dropped) != 1 || f.metrics.dropped[0] != "premium-analysis" {
		t.Fatalf("dropped = %v, want [premium-analysis]", f.metrics.dropped)
	}
}

func TestPremiumAnalysisTask(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	f.llm.reply = "성격: 리더십이 강합니다."
	ctx := context.Background()

	_ = f.svc.SaveBirthInfo(ctx, "dev-1", "김철수", "1990-08-05")
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)
	_, _ = f.svc.VerifyPayment(ctx, "pay-1", o.ID)

	if err := f.queue.tasks[0].Run(ctx); err != nil {
		t.Fatalf("task error: %v", err)
	}
	stored, _ := f.repo.GetOrder(ctx, o.ID)
	if stored.Analysis != "성격: 리더십이 강합니다." {
		t.Fatalf("analysis = %q", stored.Analysis)
	}
}

func TestPremiumAnalysisTask_NoBirthInfo(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	ctx := context.Background()

	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)
	_, _ = f.svc.VerifyPayment(ctx, "pay-1", o.ID)

	if err := f.queue.tasks[0].Run(ctx); !errors.Is(err, ErrBirthInfoRequired) {
		t.Fatalf("err = %v, want ErrBirthInfoRequired", err)
	}
}

func TestCompletePayment_Cancelled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	got, err := f.svc.CompletePayment(ctx, o.ID, "pay-1", "FAILURE_TYPE_PG", "")
	if err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}
	if got.Success || got.Status != model.OrderStatusFailed || got.Message != "payment was cancelled" {
		t.Fatalf("completion = %+v", got)
	}
}

func TestCompletePayment_CancelledKeepsPaymentID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	if _, err := f.svc.CompletePayment(ctx, o.ID, "pay-1", "FAILURE_TYPE_PG", "카드 한도 초과"); err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}
	if _, err := f.svc.CompletePayment(ctx, o.ID, "", "USER_CANCEL", ""); err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}

	stored, _ := f.repo.GetOrder(ctx, o.ID)
	if stored.PaymentID != "pay-1" {
		t.Fatalf("payment id = %q, want pay-1", stored.PaymentID)
	}
	if stored.FailureReason != "payment was cancelled" {
		t.Fatalf("reason = %q", stored.FailureReason)
	}
}

func TestCompletePayment_Verifies(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	got, err := f.svc.CompletePayment(ctx, o.ID, "pay-1", "", "")
	if err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}
	if !got.Success || got.Status != model.OrderStatusPaid || got.OrderNumber != o.Number {
		t.Fatalf("completion = %+v", got)
	}
}

func TestCompletePayment_WithoutDeviceCookie(t *testing.T) {
	f := newFixture()
	f.payments.payment = paidPayment(9900)
	ctx := context.Background()
	o, _ := f.svc.CreateOrder(ctx, "dev-1", customer)

	// Возврат из in-app браузера: устройство не известно, есть только orderId.
	got, err := f.svc.CompletePayment(ctx, o.ID, "pay-1", "", "")
	if err != nil {
		t.Fatalf("CompletePayment error: %v", err)
	}
	if !got.Success || got.Status != model.OrderStatusPaid {
		t.Fatalf("completion = %+v", got)
	}

	stored, _ := f.repo.GetOrder(ctx, o.ID)
	if stored.Status != model.OrderStatusPaid {
		t.Fatalf("stored status = %s, want PAID", stored.Status)
	}
}

func TestCompletePayment_UnknownOrder(t *testing.T) {
	f := newFixture()

	if _, err := f.svc.CompletePayment(context.Background(), "missing", "pay-1", "", ""); !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}
