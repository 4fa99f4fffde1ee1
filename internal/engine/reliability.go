package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"github.com/xela07ax/atelier-gate/internal/connectors"
	"golang.org/x/time/rate"
)

// MailProvider — исходящий почтовый коннектор (внешний collaborator).
type MailProvider interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ReliabilityWrapper оборачивает почтовый коннектор в Retries / Circuit
// Breaker / Rate Limit. Это уровень инструмента, не ядра авторизации:
// ядро сбой мутации не ретраит, а отдает error-ответ.
type ReliabilityWrapper struct {
	next    MailProvider
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *Metrics
}

type ReliabilityConfig struct {
	RatePerSec    float64
	Burst         int
	CBMaxRequests uint32
	CBInterval    time.Duration
	CBTimeout     time.Duration
}

func NewReliabilityWrapper(next MailProvider, cfg ReliabilityConfig, metrics *Metrics) *ReliabilityWrapper {
	w := &ReliabilityWrapper{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		metrics: metrics,
	}

	// Настройка предохранителя
	w.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "mail-connector",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0.0
			if to == gobreaker.StateOpen {
				state = 1.0
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
		},
	})

	return w
}

func (w *ReliabilityWrapper) Send(ctx context.Context, to, subject, body string) error {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit exceeded: %w", err)
	}

	// 2. Circuit Breaker
	_, err := w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			// Умный расчет задержки
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если коннектор вернул ThrottleError (считал Retry-After заголовок)
				var tErr *connectors.ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}

				// В остальных случаях (сетевой лаг, 500-ка) — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return w.next.Send(tCtx, to, subject, body)
		})

		return nil, retryErr
	})

	return err
}
