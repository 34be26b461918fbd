package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// libera a chave só se ela ainda pertencer ao token de quem travou
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RunLock é um lock distribuído (SET NX PX) por escopo de liquidação.
// O TTL limita o tempo de vida se o processo morrer segurando o lock.
type RunLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRunLock(c *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{Client: c, TTL: ttl}
}

// TryLock tenta adquirir a chave; ok=false quando outra execução já a detém
func (l *RunLock) TryLock(ctx context.Context, key string) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil || !ok {
		return nil, false, err
	}
	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.Client, []string{key}, token).Err()
	}
	return unlock, true, nil
}
