package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Func 表示可以使用上下文重试的函数
type Func func(ctx context.Context) error

// BackoffStrategy 定义退避策略
type BackoffStrategy int

const (
	ConstantBackoff BackoffStrategy = iota
	LinearBackoff
	ExponentialBackoff
)

// Config 保存重试配置
type Config struct {
	MaxAttempts     int           // 总尝试次数，<=0 时按 1 次处理
	InitialDelay    time.Duration // 首次重试前的延迟
	MaxDelay        time.Duration // 延迟上限
	BackoffStrategy BackoffStrategy
	Jitter          bool                         // 是否添加 10% 随机抖动
	RetryIf         func(error) bool             // 判断错误是否可重试，nil 表示全部可重试
	OnRetry         func(attempt int, err error) // 每次失败后的回调
}

// DefaultConfig 返回默认的单次尝试配置
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:     1,
		InitialDelay:    1 * time.Second,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: ExponentialBackoff,
		Jitter:          true,
		RetryIf:         NetworkRetryIf,
	}
}

// NetworkConfig 返回针对网络请求的重试配置
func NetworkConfig(attempts int) *Config {
	cfg := DefaultConfig()
	cfg.MaxAttempts = attempts
	cfg.InitialDelay = 500 * time.Millisecond
	return cfg
}

// Do 按配置执行 fn，直到成功、遇到不可重试错误或次数耗尽
func Do(ctx context.Context, fn Func, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		if attempt == attempts {
			break
		}

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return fmt.Errorf("non-retryable error after attempt %d: %w", attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.delay(attempt)):
		}
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", attempts, lastErr)
}

// delay 计算第 attempt 次失败后的等待时间
func (c *Config) delay(attempt int) time.Duration {
	var d time.Duration
	switch c.BackoffStrategy {
	case LinearBackoff:
		d = time.Duration(attempt) * c.InitialDelay
	case ExponentialBackoff:
		d = time.Duration(math.Pow(2, float64(attempt-1))) * c.InitialDelay
	default:
		d = c.InitialDelay
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	if c.Jitter && d > 0 {
		d += time.Duration(rand.Float64() * float64(d) * 0.1)
	}
	return d
}

var networkRetryablePatterns = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"connection aborted",
	"network unreachable",
	"no route to host",
	"temporary failure",
	"eof",
	"http 429",
	"http 502",
	"http 503",
	"http 504",
}

// NetworkRetryIf 判断网络错误是否可重试（不区分大小写）
func NetworkRetryIf(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range networkRetryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
