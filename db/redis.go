package db

import (
	"context"
	"os"
	"time"

	"chatsev-backend/utils"

	"github.com/redis/go-redis/v9"
)

// Redis backs the ephemeral presence keys and the realtime change feed.
var Redis *redis.Client

func InitRedis() {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/0"
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		utils.LogError(err, "Invalid REDIS_URL")
		panic("Could not parse the redis URL")
	}

	Redis = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := Redis.Ping(ctx).Err(); err != nil {
		utils.LogError(err, "Error connecting to redis")
		panic("Could not connect to redis")
	}

	utils.LogSuccess("Redis connection successful")
}
