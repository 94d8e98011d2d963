package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/entity"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/memory"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*StageCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewStageCache(rdb, time.Minute, nil), mr
}

func TestStageCache_SetGet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, ok := c.Get(ctx, "co-1", "reservation")
	assert.False(t, ok)

	c.Set(ctx, &entity.PipelineStage{ID: "st-1", CompanyID: "co-1", Name: "Reservation", NameKey: "reservation", Position: 30})
	assert.True(t, mr.Exists("stage:co-1:reservation"))

	got, ok := c.Get(ctx, "co-1", "reservation")
	require.True(t, ok)
	assert.Equal(t, "st-1", got.ID)
	assert.Equal(t, "Reservation", got.Name)

	_, ok = c.Get(ctx, "co-2", "reservation")
	assert.False(t, ok, "la clave incluye la empresa")
}

func TestStageCache_TTL(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	c.Set(ctx, &entity.PipelineStage{ID: "st-1", CompanyID: "co-1", NameKey: "sold"})

	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "co-1", "sold")
	assert.False(t, ok)
}

func TestStageCache_CorruptOrDownIsMiss(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	require.NoError(t, mr.Set("stage:co-1:sold", "{no-json"))
	_, ok := c.Get(ctx, "co-1", "sold")
	assert.False(t, ok)

	mr.Close()
	_, ok = c.Get(ctx, "co-1", "sold")
	assert.False(t, ok)
	c.Set(ctx, &entity.PipelineStage{ID: "st-1", CompanyID: "co-1", NameKey: "sold"})
}

func TestDirectory_UsesCacheForExistingStages(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()
	store := memory.NewStore()
	store.PutStage(&entity.PipelineStage{ID: "st-res", CompanyID: "co-1", Name: "Reservation", NameKey: "reservation"})
	dir := pipeline.NewDirectory(pipeline.DefaultStageNames(), c, nil)

	// Primera resolución: la etapa ya existía, así que queda en caché.
	err := store.Run(ctx, func(uow *repository.UnitOfWork) error {
		st, err := dir.Resolve(ctx, uow, "co-1", "Reservation")
		require.NoError(t, err)
		assert.Equal(t, "st-res", st.ID)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, mr.Exists("stage:co-1:reservation"))

	// Etapa creada dentro de la transacción: no se cachea.
	err = store.Run(ctx, func(uow *repository.UnitOfWork) error {
		_, err := dir.Resolve(ctx, uow, "co-1", "Sold")
		return err
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("stage:co-1:sold"))
}
