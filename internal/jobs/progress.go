package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/SscSPs/koperasi_core/internal/apperrors"
	"github.com/SscSPs/koperasi_core/internal/core/services"
	"github.com/SscSPs/koperasi_core/internal/dto"
	"github.com/redis/go-redis/v9"
)

const defaultProgressTTL = 24 * time.Hour

// progressClient is the part of redis.Cmdable used for progress hashes.
type progressClient interface {
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisProgress records the running statistics of SHU calculations in a
// Redis hash per plan so callers outside the worker can poll them.
type RedisProgress struct {
	client progressClient
	ttl    time.Duration
	logger *slog.Logger
}

var _ services.CalculationObserver = (*RedisProgress)(nil)

func NewRedisProgress(client progressClient, ttl time.Duration, logger *slog.Logger) *RedisProgress {
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}
	return &RedisProgress{client: client, ttl: ttl, logger: logger}
}

func progressKey(tenantID, planID string) string {
	return fmt.Sprintf("shu:progress:%s:%s", tenantID, planID)
}

// ChunkProcessed implements services.CalculationObserver. Progress is best
// effort: a Redis failure is logged and never fails the calculation.
func (p *RedisProgress) ChunkProcessed(ctx context.Context, tenantID, planID string, stats dto.CalculationStats) {
	key := progressKey(tenantID, planID)
	err := p.client.HSet(ctx, key,
		"run_id", stats.RunID,
		"chunks", stats.Chunks,
		"members_processed", stats.MembersProcessed,
		"flushes", stats.Flushes,
		"peak_buffered_rows", stats.PeakBufferedRows,
		"peak_chunk_size", stats.PeakChunkSize,
		"duration_ms", stats.DurationMillis,
	).Err()
	if err == nil {
		err = p.client.Expire(ctx, key, p.ttl).Err()
	}
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to record SHU progress",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// Progress returns the latest statistics recorded for the plan.
func (p *RedisProgress) Progress(ctx context.Context, tenantID, planID string) (*dto.CalculationStats, error) {
	fields, err := p.client.HGetAll(ctx, progressKey(tenantID, planID)).Result()
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrStoreUnavailable, "failed to read SHU progress", err)
	}
	if len(fields) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no SHU progress for plan %s", planID))
	}

	stats := &dto.CalculationStats{RunID: fields["run_id"]}
	ints := map[string]*int{
		"chunks":             &stats.Chunks,
		"members_processed":  &stats.MembersProcessed,
		"flushes":            &stats.Flushes,
		"peak_buffered_rows": &stats.PeakBufferedRows,
		"peak_chunk_size":    &stats.PeakChunkSize,
	}
	for name, dst := range ints {
		v, err := strconv.Atoi(fields[name])
		if err != nil {
			return nil, fmt.Errorf("corrupt SHU progress field %s: %w", name, err)
		}
		*dst = v
	}
	stats.DurationMillis, err = strconv.ParseInt(fields["duration_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt SHU progress field duration_ms: %w", err)
	}
	return stats, nil
}
