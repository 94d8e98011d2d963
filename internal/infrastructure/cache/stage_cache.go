// Package cache caché de etapas del embudo en Redis, compartida entre instancias de la API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var _ pipeline.StageCache = (*StageCache)(nil)

const stagePrefix = "stage:"

// StageCache implementa pipeline.StageCache. Un fallo de Redis se registra y se trata como miss:
// la base sigue siendo la fuente de verdad.
type StageCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewClient abre el cliente a partir de REDIS_URL y verifica la conexión.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewStageCache construye la caché; ttl <= 0 usa 10 minutos.
func NewStageCache(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *StageCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StageCache{rdb: rdb, ttl: ttl, log: logger.OrNop(log).Component("stage_cache")}
}

func stageKey(companyID, nameKey string) string {
	return stagePrefix + companyID + ":" + nameKey
}

// Get busca la etapa; cualquier error cuenta como miss.
func (c *StageCache) Get(ctx context.Context, companyID, nameKey string) (*entity.PipelineStage, bool) {
	b, err := c.rdb.Get(ctx, stageKey(companyID, nameKey)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("company_id", companyID).Msg("leer etapa de redis")
		}
		return nil, false
	}
	var st entity.PipelineStage
	if err := json.Unmarshal(b, &st); err != nil {
		c.log.Warn().Err(err).Str("company_id", companyID).Msg("etapa en redis corrupta")
		return nil, false
	}
	return &st, true
}

// Set guarda la etapa con TTL.
func (c *StageCache) Set(ctx context.Context, stage *entity.PipelineStage) {
	b, err := json.Marshal(stage)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, stageKey(stage.CompanyID, stage.NameKey), b, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("company_id", stage.CompanyID).Msg("guardar etapa en redis")
	}
}
