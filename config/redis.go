// config/redis.go
package config

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
)

func NewRedisClient() *redis.Client {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	password := getEnv("REDIS_PASSWORD", "")
	db := 0
	if value, exists := os.LookupEnv("REDIS_DB"); exists {
		if v, err := strconv.Atoi(value); err == nil {
			db = v
		}
	}

	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
