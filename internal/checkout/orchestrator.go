// Package checkout проводит одну попытку оплаты: загрузка SDK, получение конфигурации,
// запрос платежа и серверная проверка результата.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sajuking/sajuking-server/internal/model"
)

const (
	currencyKRW      = "KRW"
	payMethodCard    = "CARD"
	windowRedirect   = "REDIRECTION"
	windowIframe     = "IFRAME"
	defaultOrderName = "SajuKing premium analysis"
)

var mobileUserAgent = regexp.MustCompile(`(?i)android|webos|iphone|ipad|ipod|blackberry|iemobile|opera mini`)

// IsMobile сообщает, относится ли строка User-Agent к мобильному браузеру.
func IsMobile(userAgent string) bool {
	return mobileUserAgent.MatchString(userAgent)
}

// Config задаёт окружение попытки оплаты.
type Config struct {
	// UserAgent браузера покупателя.
	UserAgent string
	// ReturnURL, на который SDK возвращает мобильный браузер.
	ReturnURL string
	// Now подменяет источник времени; по умолчанию time.Now.
	Now func() time.Time
}

// Orchestrator проводит попытки оплаты. Каждый вызов RequestPayment начинается с IDLE.
type Orchestrator struct {
	loader   Loader
	config   ConfigFetcher
	verifier Verifier
	notifier Notifier
	env      Config
}

// NewOrchestrator создаёт оркестратор оплаты.
func NewOrchestrator(loader Loader, config ConfigFetcher, verifier Verifier, notifier Notifier, env Config) *Orchestrator {
	if env.Now == nil {
		env.Now = time.Now
	}
	return &Orchestrator{
		loader:   loader,
		config:   config,
		verifier: verifier,
		notifier: notifier,
		env:      env,
	}
}

// RequestPayment проводит оплату от загрузки SDK до серверной проверки.
// Метод не возвращает ошибок: любая неудача превращается в PaymentResult с заполненным Error.
func (o *Orchestrator) RequestPayment(ctx context.Context, req model.PaymentRequest) model.PaymentResult {
	a := newAttempt()

	orderNumber, err := o.run(ctx, a, req)

	var result model.PaymentResult
	if err != nil {
		result = model.PaymentResult{
			Error: failureMessage(err),
			Err:   classify(err),
		}
	} else {
		result = model.PaymentResult{
			Success:     true,
			OrderNumber: orderNumber,
		}
	}

	if a.state != StateDone {
		_ = a.advance(StateDone)
	}

	o.notifier.Notify(ctx, Notification{
		OrderID:     req.OrderID,
		OrderNumber: result.OrderNumber,
		Success:     result.Success,
		Message:     result.Error,
	})

	return result
}

func (o *Orchestrator) run(ctx context.Context, a *attempt, req model.PaymentRequest) (orderNumber string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnknown, r)
		}
	}()

	step := func(next State) error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		if err := a.advance(next); err != nil {
			return fmt.Errorf("%w: %v", ErrUnknown, err)
		}
		return nil
	}

	if err := step(StateSDKLoading); err != nil {
		return "", err
	}
	gateway, err := o.loader.Load(ctx)
	if err != nil {
		return "", ensureClass(err, ErrSDKLoad)
	}
	if err := step(StateSDKReady); err != nil {
		return "", err
	}

	if err := step(StateConfigFetching); err != nil {
		return "", err
	}
	cfg, err := o.config.Config(ctx)
	if err != nil {
		return "", ensureClass(err, ErrConfig)
	}
	if err := step(StateConfigReady); err != nil {
		return "", err
	}

	paymentID := o.newPaymentID(req.OrderID)
	payload := o.buildPayload(cfg, paymentID, req)

	if err := step(StatePaymentRequested); err != nil {
		return "", err
	}
	resp, err := gateway.RequestPayment(ctx, payload)
	if err != nil {
		return "", ensureClass(err, ErrUnknown)
	}
	if err := step(StatePaymentResponded); err != nil {
		return "", err
	}

	if resp == nil {
		return "", fmt.Errorf("%w: empty sdk response", ErrUnknown)
	}
	if resp.Code != "" {
		msg := resp.Message
		if msg == "" {
			msg = defaultCancelMessage
		}
		return "", &failure{class: ErrPaymentCancelled, message: msg}
	}
	if resp.PaymentID != "" {
		paymentID = resp.PaymentID
	}

	if err := step(StateVerifying); err != nil {
		return "", err
	}
	verification, err := o.verifier.Verify(ctx, paymentID, req.OrderID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnknown, err)
	}
	if verification == nil {
		return "", fmt.Errorf("%w: empty verification response", ErrUnknown)
	}
	if !verification.Success {
		msg := verification.Error
		if msg == "" {
			msg = defaultVerifyMessage
		}
		return "", &failure{class: ErrVerificationFailed, message: msg}
	}

	if err := step(StateDone); err != nil {
		return "", err
	}

	return verification.OrderNumber, nil
}

// newPaymentID формирует идентификатор платежа <orderId>_<epochMillis>_<suffix>.
// Случайный суффикс исключает совпадения при попытках в одну миллисекунду.
func (o *Orchestrator) newPaymentID(orderID string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", orderID, o.env.Now().UnixMilli(), suffix)
}

func (o *Orchestrator) buildPayload(cfg model.PortOneConfig, paymentID string, req model.PaymentRequest) Payload {
	orderName := req.OrderName
	if orderName == "" {
		orderName = defaultOrderName
	}

	p := Payload{
		StoreID:     cfg.StoreID,
		ChannelKey:  cfg.ChannelKey,
		PaymentID:   paymentID,
		OrderName:   orderName,
		TotalAmount: req.Amount,
		Currency:    currencyKRW,
		PayMethod:   payMethodCard,
		Customer: Customer{
			FullName:    req.CustomerName,
			Email:       req.CustomerEmail,
			PhoneNumber: req.CustomerPhone,
		},
	}

	if IsMobile(o.env.UserAgent) {
		p.WindowType = &WindowType{Mobile: windowRedirect}
		p.RedirectURL = redirectURL(o.env.ReturnURL, req.OrderID)
	} else {
		p.WindowType = &WindowType{PC: windowIframe}
	}

	return p
}

func redirectURL(returnURL, orderID string) string {
	sep := "?"
	if strings.Contains(returnURL, "?") {
		sep = "&"
	}
	return returnURL + sep + "orderId=" + url.QueryEscape(orderID)
}

// failure — неудача с сообщением для пользователя.
type failure struct {
	class   error
	message string
}

func (f *failure) Error() string { return f.class.Error() + ": " + f.message }

func (f *failure) Unwrap() error { return f.class }

func ensureClass(err, class error) error {
	if errors.Is(err, class) {
		return err
	}
	return fmt.Errorf("%w: %v", class, err)
}

func failureMessage(err error) string {
	var f *failure
	if errors.As(err, &f) {
		return f.message
	}
	return err.Error()
}
