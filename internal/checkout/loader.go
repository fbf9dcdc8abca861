package checkout

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultSDKURL — адрес браузерного SDK PortOne v2.
const DefaultSDKURL = "https://cdn.portone.io/v2/browser-sdk.js"

// Loader обеспечивает готовность SDK и возвращает его платёжный интерфейс.
type Loader interface {
	Load(ctx context.Context) (Gateway, error)
}

// ScriptLoader загружает скрипт SDK один раз; повторные вызовы возвращают готовый Gateway.
// Одновременные загрузки объединяются в одну.
type ScriptLoader struct {
	scriptURL  string
	httpClient *http.Client
	gateway    Gateway

	loaded atomic.Bool
	group  singleflight.Group
}

// NewScriptLoader создаёт загрузчик скрипта SDK. Пустой scriptURL заменяется на DefaultSDKURL.
func NewScriptLoader(scriptURL string, gateway Gateway) *ScriptLoader {
	if scriptURL == "" {
		scriptURL = DefaultSDKURL
	}
	return &ScriptLoader{
		scriptURL: scriptURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		gateway: gateway,
	}
}

// Load возвращает Gateway, при необходимости загрузив скрипт SDK.
func (l *ScriptLoader) Load(ctx context.Context) (Gateway, error) {
	if l.loaded.Load() {
		return l.gateway, nil
	}

	// Общая загрузка не зависит от отмены одного из ожидающих, её ограничивает таймаут клиента.
	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(l.scriptURL, func() (any, error) {
		if l.loaded.Load() {
			return nil, nil
		}
		if err := l.fetchScript(fetchCtx); err != nil {
			return nil, err
		}
		l.loaded.Store(true)
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrSDKLoad, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSDKLoad, res.Err)
		}
	}

	return l.gateway, nil
}

// Loaded сообщает, загружен ли SDK.
func (l *ScriptLoader) Loaded() bool {
	return l.loaded.Load()
}

func (l *ScriptLoader) fetchScript(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("empty script")
	}

	return nil
}

type preloaded struct {
	gateway Gateway
}

// Preloaded возвращает Loader для уже доступного SDK.
func Preloaded(gateway Gateway) Loader {
	return preloaded{gateway: gateway}
}

func (p preloaded) Load(context.Context) (Gateway, error) {
	return p.gateway, nil
}
