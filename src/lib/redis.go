package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"vitacal/src/types"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

func busyCacheKey(calendarId string, start, end time.Time) string {
	return fmt.Sprintf("busy:%s:%d:%d", calendarId, start.Unix(), end.Unix())
}

// CacheBusyIntervals stores a provider response for the render path.
func CacheBusyIntervals(calendarId string, start, end time.Time, intervals []types.BusyInterval, ttl time.Duration) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	b, err := json.Marshal(intervals)
	if err != nil {
		log.Printf("[redis] Error serializing busy intervals: %s\n", err.Error())
		return
	}
	if err := rdb.SetEx(context.Background(), busyCacheKey(calendarId, start, end), string(b), ttl).Err(); err != nil {
		log.Printf("[redis] Error caching busy intervals for %s: %s\n", calendarId, err.Error())
	}
}

// CachedBusyIntervals returns a previously cached provider response. The
// second result reports a hit; a stale-but-present entry is a hit.
func CachedBusyIntervals(calendarId string, start, end time.Time) ([]types.BusyInterval, bool) {
	rdb := GetRedisClient()
	if rdb == nil {
		return nil, false
	}
	val, err := rdb.Get(context.Background(), busyCacheKey(calendarId, start, end)).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		log.Printf("[redis] Error reading busy cache: %s\n", err.Error())
		return nil, false
	}
	var intervals []types.BusyInterval
	if err := json.Unmarshal([]byte(val), &intervals); err != nil {
		log.Printf("[redis] Error decoding busy cache: %s\n", err.Error())
		return nil, false
	}
	return intervals, true
}
