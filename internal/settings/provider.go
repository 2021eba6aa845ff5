package settings

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishDailyLimitKey = "settings:publish_daily_limit"

// Provider reads platform settings. Operators may override the publish
// daily limit at runtime through Redis; when the key is absent or Redis
// is unreachable the configured default applies.
type Provider struct {
	client     *redis.Client
	dailyLimit int
	logger     *zap.Logger
}

// NewProvider constructs a provider with the configured default limit.
// client may be nil when Redis is not deployed.
func NewProvider(client *redis.Client, dailyLimit int, logger *zap.Logger) *Provider {
	return &Provider{client: client, dailyLimit: dailyLimit, logger: logger}
}

// PublishDailyLimit returns the effective per-subject daily creation cap.
func (p *Provider) PublishDailyLimit(ctx context.Context) int {
	if p.client == nil {
		return p.dailyLimit
	}

	val, err := p.client.Get(ctx, publishDailyLimitKey).Result()
	if err == redis.Nil {
		return p.dailyLimit
	}
	if err != nil {
		if p.logger != nil {
			p.logger.Warn("settings lookup failed, using default", zap.Error(err))
		}
		return p.dailyLimit
	}

	limit, err := strconv.Atoi(val)
	if err != nil || limit <= 0 {
		if p.logger != nil {
			p.logger.Warn("invalid publish daily limit override", zap.String("value", val))
		}
		return p.dailyLimit
	}
	return limit
}

// SetPublishDailyLimit writes the runtime override.
func (p *Provider) SetPublishDailyLimit(ctx context.Context, limit int) error {
	return p.client.Set(ctx, publishDailyLimitKey, strconv.Itoa(limit), 0).Err()
}
