package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/consultoria-api/pkg/config"
)

func TestAddr(t *testing.T) {
	assert.Equal(t, "cache.internal:6380", Addr(config.RedisConfig{Host: "cache.internal", Port: 6380}))
	assert.Equal(t, "localhost:6379", Addr(config.RedisConfig{}))
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewRedis(config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}
