package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// ResultSource é a fonte de verdade dos resultados (Postgres)
type ResultSource interface {
	GetResults(ctx context.Context, keys []lottery.ResultKey) (lottery.ResultSet, error)
	GetResult(ctx context.Context, provinceID, date string) (*lottery.DrawResult, error)
}

// ResultCache é um read-through de resultados no Redis.
// Só resultados existentes entram no cache: ausência nunca é cacheada,
// já que o resultado pode ser publicado a qualquer momento.
type ResultCache struct {
	Client *redis.Client
	Source ResultSource
	TTL    time.Duration
}

// NewResultCache cria o cache com TTL configurável
func NewResultCache(c *redis.Client, src ResultSource, ttl time.Duration) *ResultCache {
	return &ResultCache{Client: c, Source: src, TTL: ttl}
}

// ResultKey gera a chave Redis de um resultado
func ResultKey(provinceID, date string) string { return "result:" + provinceID + ":" + date }

// GetResults busca em lote no Redis (MGET) e completa as faltas na fonte.
// Só entram no cache resultados válidos; erros de leitura da fonte passam adiante.
func (c *ResultCache) GetResults(ctx context.Context, keys []lottery.ResultKey) (lottery.ResultSet, error) {
	out := lottery.NewResultSet()
	if len(keys) == 0 {
		return out, nil
	}
	rkeys := make([]string, len(keys))
	for i, k := range keys {
		rkeys[i] = ResultKey(k.ProvinceID, k.Date)
	}

	var misses []lottery.ResultKey
	vals, err := c.Client.MGet(ctx, rkeys...).Result()
	if err != nil {
		// Redis fora do ar não impede a liquidação
		misses = keys
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, keys[i])
				continue
			}
			var r lottery.DrawResult
			if json.Unmarshal([]byte(s), &r) != nil {
				misses = append(misses, keys[i])
				continue
			}
			out.Results[keys[i]] = &r
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.Source.GetResults(ctx, misses)
	if err != nil {
		return lottery.ResultSet{}, err
	}
	for k, err := range fetched.Errors {
		out.Errors[k] = err
	}
	pipe := c.Client.Pipeline()
	for k, r := range fetched.Results {
		out.Results[k] = r
		if b, err := json.Marshal(r); err == nil {
			pipe.Set(ctx, ResultKey(k.ProvinceID, k.Date), b, c.TTL)
		}
	}
	_, _ = pipe.Exec(ctx) // falha de escrita no cache não é erro
	return out, nil
}

// GetResult lê um resultado, preferencialmente do cache
func (c *ResultCache) GetResult(ctx context.Context, provinceID, date string) (*lottery.DrawResult, error) {
	b, err := c.Client.Get(ctx, ResultKey(provinceID, date)).Bytes()
	if err == nil {
		var r lottery.DrawResult
		if json.Unmarshal(b, &r) == nil {
			return &r, nil
		}
	}
	r, err := c.Source.GetResult(ctx, provinceID, date)
	if err != nil {
		return nil, err
	}
	_ = c.Put(ctx, r)
	return r, nil
}

// Put grava um resultado recém-publicado no cache
func (c *ResultCache) Put(ctx context.Context, r *lottery.DrawResult) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, ResultKey(r.ProvinceID, r.Date), b, c.TTL).Err()
}
