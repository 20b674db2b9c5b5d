package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"slotwise/config"
)

// CacheClient is the shared Redis client used for the work-interval cache.
var CacheClient *redis.Client

// InitCache initializes the Redis cache client.
func InitCache() {
	CacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisCacheDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := CacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Cache): %v", err)
	}
}

// GetCacheClient returns the shared cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		InitCache()
	}
	return CacheClient
}

// CalendarCacheVersion returns the current cache version for a calendar.
// Cached work-interval entries embed this version in their keys, so bumping
// it invalidates every entry of that calendar at once without a scan.
func CalendarCacheVersion(ctx context.Context, client *redis.Client, calendarID string) int64 {
	if client == nil {
		return 0
	}
	v, err := client.Get(ctx, calendarVersionKey(calendarID)).Int64()
	if err != nil {
		return 0
	}
	return v
}

// BumpCalendarCacheVersion invalidates all cached work intervals of the
// calendar. Called whenever the calendar's attendances or leaves change.
func BumpCalendarCacheVersion(ctx context.Context, client *redis.Client, calendarID string) {
	if client == nil {
		return
	}
	if err := client.Incr(ctx, calendarVersionKey(calendarID)).Err(); err != nil {
		GetLogger().Warn("failed to bump calendar cache version",
			zap.String("calendarID", calendarID))
	}
}

func calendarVersionKey(calendarID string) string {
	return fmt.Sprintf("calver:%s", calendarID)
}
