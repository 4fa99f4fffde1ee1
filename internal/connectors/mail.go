package connectors

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"strings"
	"time"
)

// MockMailConnector — имитация исходящего почтового провайдера для
// локальной разработки и демо. В проде на его месте SMTP/API-адаптер.
type MockMailConnector struct{}

func (c *MockMailConnector) Send(ctx context.Context, to, subject, body string) error {
	// Имитируем задержку 50-300мс
	latency := time.Duration(50+rand.IntN(250)) * time.Millisecond

	select {
	case <-time.After(latency):
		// Имитация работы
	case <-ctx.Done():
		return ctx.Err()
	}

	if to == "" || !strings.Contains(to, "@") {
		return fmt.Errorf("mail: invalid recipient address %q", to)
	}

	// Адрес для проверки ветки троттлинга в ReliabilityWrapper
	if strings.HasPrefix(to, "throttle@") {
		return &ThrottleError{
			RetryAfter: 2 * time.Second,
			Cause:      fmt.Errorf("provider rate limit"),
		}
	}

	return nil
}
