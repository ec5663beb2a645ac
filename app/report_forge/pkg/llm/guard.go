package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/report_forge/app/report_forge/pkg/config"
)

// NewLimiter 按 RPM/QPS 创建限流器，所有模型调用共享
func NewLimiter(cfg *config.ConcurrencyConfig) *rate.Limiter {
	limit := rate.Limit(float64(cfg.RPM) / 60.0)
	burst := cfg.QPS
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// Guard 在每次调用前等待限流，并为单次调用加超时
type Guard struct {
	next    Generator
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGuard limiter 为 nil 时不限流，timeout <= 0 时不加超时
func NewGuard(next Generator, limiter *rate.Limiter, timeout time.Duration) *Guard {
	return &Guard{next: next, limiter: limiter, timeout: timeout}
}

// Generate 实现 Generator
func (g *Guard) Generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", NewTransientError(err)
		}
	}

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	out, err := g.next.Generate(callCtx, msgs, opts...)
	if err != nil {
		// 外层取消优先于单次超时
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", Classify(err)
	}
	return out, nil
}
