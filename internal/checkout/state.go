package checkout

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition возвращается при попытке перехода вне линейной последовательности шагов.
var ErrIllegalTransition = errors.New("illegal checkout state transition")

// State — шаг попытки оплаты.
type State int

const (
	StateIdle State = iota
	StateSDKLoading
	StateSDKReady
	StateConfigFetching
	StateConfigReady
	StatePaymentRequested
	StatePaymentResponded
	StateVerifying
	StateDone
)

var stateNames = [...]string{
	StateIdle:             "IDLE",
	StateSDKLoading:       "SDK_LOADING",
	StateSDKReady:         "SDK_READY",
	StateConfigFetching:   "CONFIG_FETCHING",
	StateConfigReady:      "CONFIG_READY",
	StatePaymentRequested: "PAYMENT_REQUESTED",
	StatePaymentResponded: "PAYMENT_RESPONDED",
	StateVerifying:        "VERIFYING",
	StateDone:             "DONE",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// attempt отслеживает состояние одной попытки оплаты.
// Допустимы только переход к следующему шагу и досрочный переход в DONE.
type attempt struct {
	state   State
	history []State
}

func newAttempt() *attempt {
	return &attempt{
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

func (a *attempt) advance(next State) error {
	if a.state == StateDone {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, next)
	}
	if next != StateDone && next != a.state+1 {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, a.state, next)
	}

	a.state = next
	a.history = append(a.history, next)
	return nil
}
