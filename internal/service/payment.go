package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajuking/sajuking-server/internal/fortune"
	"github.com/sajuking/sajuking-server/internal/llm"
	"github.com/sajuking/sajuking-server/internal/metrics"
	"github.com/sajuking/sajuking-server/internal/model"
	"github.com/sajuking/sajuking-server/internal/portone"
	"github.com/sajuking/sajuking-server/internal/repository"
	"github.com/sajuking/sajuking-server/internal/tasks"
	"github.com/sajuking/sajuking-server/internal/validation"
)

// PremiumProduct — название платного продукта.
const PremiumProduct = "프리미엄 사주 분석"

const (
	currencyKRW         = "KRW"
	orderNumberAttempts = 3
	cancelledMessage    = "payment was cancelled"
)

const premiumSystemPrompt = `당신은 한국 전통 사주명리학 전문가입니다.
사용자의 사주를 바탕으로 성격, 재물운, 애정운, 건강운, 직업운, 올해의 흐름을 자세히 분석하세요.
각 항목은 제목과 3-5문장으로 작성하세요.`

// PaymentConfig возвращает публичные идентификаторы магазина PortOne.
func (s *Service) PaymentConfig() (model.PortOneConfig, error) {
	if s.portOne.StoreID == "" || s.portOne.ChannelKey == "" {
		return model.PortOneConfig{}, ErrPaymentsNotConfigured
	}
	return s.portOne, nil
}

// CreateOrder создаёт заказ платного анализа для устройства.
func (s *Service) CreateOrder(ctx context.Context, deviceID string, customer model.Customer) (*model.Order, error) {
	customer.Name = validation.SanitizeText(customer.Name)
	customer.Email = strings.TrimSpace(customer.Email)
	customer.Phone = strings.TrimSpace(customer.Phone)

	switch {
	case !validation.IsValidName(customer.Name):
		return nil, fmt.Errorf("%w: customer name", ErrInvalidInput)
	case !validation.IsValidEmail(customer.Email):
		return nil, fmt.Errorf("%w: customer email", ErrInvalidInput)
	case !validation.IsValidPhone(customer.Phone):
		return nil, fmt.Errorf("%w: customer phone", ErrInvalidInput)
	}

	for attempt := 0; ; attempt++ {
		o := &model.Order{
			ID:       uuid.NewString(),
			Number:   s.newOrderNumber(),
			DeviceID: deviceID,
			Product:  PremiumProduct,
			Amount:   s.premiumPrice,
			Customer: customer,
			Status:   model.OrderStatusPending,
		}

		err := s.repo.CreateOrder(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repository.ErrOrderNumberTaken) || attempt+1 >= orderNumberAttempts {
			return nil, err
		}
	}
}

// newOrderNumber возвращает номер вида SK-20240115-3F9A1C по дате в KST.
func (s *Service) newOrderNumber() string {
	day := strings.ReplaceAll(fortune.Today(s.now()), "-", "")
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("SK-%s-%s", day, suffix)
}

// GetOrder возвращает заказ, принадлежащий устройству.
func (s *Service) GetOrder(ctx context.Context, deviceID, orderID string) (*model.Order, error) {
	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.DeviceID != deviceID {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

// VerifyPayment сверяет платёж у провайдера с заказом и фиксирует результат.
// Ошибка возвращается только при сбое инфраструктуры; отказ описывается результатом.
func (s *Service) VerifyPayment(ctx context.Context, paymentID, orderID string) (model.VerificationResult, error) {
	res, err := s.verifyPayment(ctx, paymentID, orderID)
	switch {
	case err != nil:
		s.metrics.RecordPaymentVerification(metrics.VerificationError)
	case res.Success:
		s.metrics.RecordPaymentVerification(metrics.VerificationPaid)
	default:
		s.metrics.RecordPaymentVerification(metrics.VerificationRejected)
	}
	return res, err
}

func (s *Service) verifyPayment(ctx context.Context, paymentID, orderID string) (model.VerificationResult, error) {
	if s.payments == nil {
		return model.VerificationResult{}, ErrPaymentsNotConfigured
	}
	if paymentID == "" || orderID == "" {
		return rejected("paymentId and orderId are required"), nil
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return rejected("order not found"), nil
	}
	if err != nil {
		return model.VerificationResult{}, err
	}

	if order.Status == model.OrderStatusPaid {
		if order.PaymentID == paymentID {
			return paid(order), nil
		}
		return rejected("order already paid"), nil
	}

	payment, err := s.payments.GetPayment(ctx, paymentID)
	if errors.Is(err, portone.ErrPaymentNotFound) {
		return s.reject(ctx, order, paymentID, "payment not found")
	}
	if err != nil {
		return model.VerificationResult{}, fmt.Errorf("get payment %s: %w", paymentID, err)
	}

	if reason := mismatch(order, payment); reason != "" {
		return s.reject(ctx, order, paymentID, reason)
	}

	paidAt := s.now()
	if payment.PaidAt != nil {
		paidAt = *payment.PaidAt
	}

	err = s.repo.MarkOrderPaid(ctx, order.ID, paymentID, paidAt)
	if errors.Is(err, repository.ErrOrderAlreadyPaid) {
		// Параллельная проверка успела раньше.
		current, err := s.repo.GetOrder(ctx, order.ID)
		if err != nil {
			return model.VerificationResult{}, err
		}
		if current.PaymentID == paymentID {
			return paid(current), nil
		}
		return rejected("order already paid"), nil
	}
	if err != nil {
		return model.VerificationResult{}, err
	}

	s.enqueue(s.premiumAnalysisTask(order))

	return paid(order), nil
}

func (s *Service) reject(ctx context.Context, order *model.Order, paymentID, reason string) (model.VerificationResult, error) {
	if err := s.repo.MarkOrderFailed(ctx, order.ID, paymentID, reason); err != nil {
		return model.VerificationResult{}, err
	}
	s.logger.Info("payment rejected",
		zap.String("order", order.Number),
		zap.String("payment_id", paymentID),
		zap.String("reason", reason),
	)
	return rejected(reason), nil
}

func mismatch(order *model.Order, payment *portone.Payment) string {
	switch {
	case payment.Status != portone.PaymentStatusPaid:
		return fmt.Sprintf("payment status is %s", payment.Status)
	case payment.Currency != currencyKRW:
		return fmt.Sprintf("unexpected currency %s", payment.Currency)
	case payment.Amount.Total != order.Amount:
		return fmt.Sprintf("amount mismatch: paid %d, expected %d", payment.Amount.Total, order.Amount)
	}
	return ""
}

func paid(o *model.Order) model.VerificationResult {
	return model.VerificationResult{Success: true, OrderNumber: o.Number}
}

func rejected(reason string) model.VerificationResult {
	return model.VerificationResult{Success: false, Error: reason}
}

// CompletePayment обрабатывает возврат пользователя со страницы оплаты в мобильном сценарии.
// Возврат может прийти без cookie устройства, поэтому заказ ищется только по идентификатору,
// а в ответе нет контактных данных покупателя.
func (s *Service) CompletePayment(ctx context.Context, orderID, paymentID, code, message string) (*model.PaymentCompletion, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if code != "" {
		if message == "" {
			message = cancelledMessage
		}
		if paymentID == "" {
			paymentID = order.PaymentID
		}
		if order.Status != model.OrderStatusPaid {
			if err := s.repo.MarkOrderFailed(ctx, order.ID, paymentID, message); err != nil {
				return nil, err
			}
			order.Status = model.OrderStatusFailed
		}
		return completion(order, false, message), nil
	}

	if order.Status == model.OrderStatusPaid {
		return completion(order, true, ""), nil
	}
	if paymentID == "" {
		return completion(order, false, "payment id is missing"), nil
	}

	res, err := s.VerifyPayment(ctx, paymentID, order.ID)
	if err != nil {
		return nil, err
	}
	if res.Success {
		order.Status = model.OrderStatusPaid
	} else {
		order.Status = model.OrderStatusFailed
	}
	return completion(order, res.Success, res.Error), nil
}

func completion(o *model.Order, success bool, message string) *model.PaymentCompletion {
	return &model.PaymentCompletion{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Status:      o.Status,
		Success:     success,
		Message:     message,
	}
}

func (s *Service) premiumAnalysisTask(order *model.Order) tasks.Task {
	return tasks.Task{
		Kind: taskPremiumAnalysis,
		Name: taskPremiumAnalysis + ":" + order.Number,
		Run: func(ctx context.Context) error {
			info, ok := s.cache(order.DeviceID).UserBirthInfo(ctx)
			if !ok {
				return ErrBirthInfoRequired
			}

			text, err := s.complete(ctx, "premium", llm.Request{
				System:   premiumSystemPrompt,
				Messages: []llm.Message{{Role: llm.RoleUser, Text: fortunePrompt(info, fortune.Today(s.now()))}},
			})
			if err != nil {
				return fmt.Errorf("generate premium analysis: %w", err)
			}
			return s.repo.SaveOrderAnalysis(ctx, order.ID, text)
		},
	}
}
