package mongo

import (
	"context"
	"fmt"
	"testing"

	"github.com/Sokol111/ecommerce-eventbus/pkg/testutil/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type merchant struct {
	ID      string
	Email   string
	Version int
}

type merchantDocument struct {
	ID      string `bson:"_id"`
	Email   string `bson:"email"`
	Version int    `bson:"version"`
}

type merchantMapper struct{}

func (merchantMapper) ToEntity(m *merchant) *merchantDocument {
	return &merchantDocument{ID: m.ID, Email: m.Email, Version: m.Version}
}

func (merchantMapper) ToDomain(d *merchantDocument) *merchant {
	return &merchant{ID: d.ID, Email: d.Email, Version: d.Version}
}

func (merchantMapper) GetID(d *merchantDocument) string      { return d.ID }
func (merchantMapper) GetVersion(d *merchantDocument) int    { return d.Version }
func (merchantMapper) SetVersion(d *merchantDocument, v int) { d.Version = v }

func TestNewGenericRepository(t *testing.T) {
	_, err := NewGenericRepository[merchant, merchantDocument](nil, merchantMapper{})
	assert.Error(t, err)
}

func TestGenericRepository_Mongo(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	mc, err := container.StartMongoDBContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mc.Terminate(context.Background()) })

	repo, err := NewGenericRepository[merchant, merchantDocument](mc.Database("eventbus").Collection("merchants"), merchantMapper{})
	require.NoError(t, err)

	t.Run("insert and find", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, &merchant{ID: "m1", Email: "a@b.c", Version: 1}))

		got, err := repo.FindByID(ctx, "m1")

		require.NoError(t, err)
		assert.Equal(t, "a@b.c", got.Email)
	})

	t.Run("missing entity", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "nope")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("update bumps version and detects conflicts", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, &merchant{ID: "m2", Email: "old@b.c", Version: 1}))

		updated, err := repo.Update(ctx, &merchant{ID: "m2", Email: "new@b.c", Version: 1})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		_, err = repo.Update(ctx, &merchant{ID: "m2", Email: "stale@b.c", Version: 1})
		assert.ErrorIs(t, err, ErrOptimisticLocking)
	})

	t.Run("list pages in id order", func(t *testing.T) {
		for i := 3; i <= 6; i++ {
			require.NoError(t, repo.Insert(ctx, &merchant{ID: fmt.Sprintf("m%d", i), Version: 1}))
		}

		page, total, err := repo.List(ctx, 2, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(6), total)
		require.Len(t, page, 2)
		assert.Equal(t, "m3", page[0].ID)
		assert.Equal(t, "m4", page[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "m1"))

		_, err := repo.FindByID(ctx, "m1")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}
