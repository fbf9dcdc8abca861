package checkout

import "errors"

// Классы неудач попытки оплаты.
var (
	// ErrSDKLoad — не удалось загрузить SDK платёжного провайдера.
	ErrSDKLoad = errors.New("payment sdk failed to load")
	// ErrConfig — сервер не вернул конфигурацию магазина.
	ErrConfig = errors.New("payment config unavailable")
	// ErrPaymentCancelled — SDK вернул код отмены или ошибки.
	ErrPaymentCancelled = errors.New("payment cancelled")
	// ErrVerificationFailed — сервер отклонил платёж.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrUnknown — любая другая ошибка.
	ErrUnknown = errors.New("unknown payment error")
)

const (
	defaultCancelMessage = "payment was cancelled"
	defaultVerifyMessage = "payment verification failed"
)

// classify сводит произвольную ошибку к одному из классов неудачи.
func classify(err error) error {
	for _, known := range []error{ErrSDKLoad, ErrConfig, ErrPaymentCancelled, ErrVerificationFailed, ErrUnknown} {
		if errors.Is(err, known) {
			return known
		}
	}
	return ErrUnknown
}
