package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts:     attempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffStrategy: ConstantBackoff,
	}
}

// TestDo_Success 测试首次成功不重试
func TestDo_Success(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	}, fastConfig(3))

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

// TestDo_SuccessAfterRetries 测试重试后成功
func TestDo_SuccessAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

// TestDo_Exhausted 测试次数耗尽后返回包装错误
func TestDo_Exhausted(t *testing.T) {
	sentinel := errors.New("timeout")
	attempts := 0
	var seen []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error) { seen = append(seen, attempt) }

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return sentinel
	}, cfg)

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Contains(t, err.Error(), "max retry attempts (3)")
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

// TestDo_SingleAttemptReturnsRawError 测试单次尝试时错误不被包装
func TestDo_SingleAttemptReturnsRawError(t *testing.T) {
	sentinel := errors.New("boom")
	err := Do(context.Background(), func(ctx context.Context) error {
		return sentinel
	}, fastConfig(0))

	assert.Equal(t, sentinel, err)
}

// TestDo_NonRetryable 测试不可重试错误立即返回
func TestDo_NonRetryable(t *testing.T) {
	attempts := 0
	cfg := fastConfig(5)
	cfg.RetryIf = NetworkRetryIf

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("HTTP 404: 404 Not Found")
	}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-retryable")
	assert.Equal(t, 1, attempts)
}

// TestDo_ContextCancelled 测试上下文取消
func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, func(ctx context.Context) error {
		attempts++
		return nil
	}, fastConfig(3))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, attempts)
}

func TestDelay(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		attempt  int
		want     time.Duration
	}{
		{"constant", ConstantBackoff, 3, 100 * time.Millisecond},
		{"linear", LinearBackoff, 3, 300 * time.Millisecond},
		{"exponential", ExponentialBackoff, 3, 400 * time.Millisecond},
		{"capped", ExponentialBackoff, 10, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				InitialDelay:    100 * time.Millisecond,
				MaxDelay:        time.Second,
				BackoffStrategy: tt.strategy,
			}
			assert.Equal(t, tt.want, cfg.delay(tt.attempt))
		})
	}
}

func TestNetworkRetryIf(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: i/o timeout"), true},
		{errors.New("read: Connection Reset by peer"), true},
		{errors.New("HTTP 503: 503 Service Unavailable"), true},
		{errors.New("HTTP 404: 404 Not Found"), false},
		{errors.New("parse error"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NetworkRetryIf(tt.err), "%v", tt.err)
	}
}
