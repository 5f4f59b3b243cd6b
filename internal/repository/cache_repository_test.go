package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/repairjunction/repairjunction-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.ErrorIs(t, repo.Get(ctx, "feed:tech-1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "feed:tech-1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "feed:tech-1"))
	n, err := repo.DeleteByPattern(ctx, "feed:*")
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, repo.Ping(ctx))
}
