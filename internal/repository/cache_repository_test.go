package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/enrollment-console/pkg/errors"
)

func TestCacheRepositoryWithoutClientIsAlwaysMiss(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest []string
	err := repo.Get(ctx, "enrollconsole:collection:/students", &dest)
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.Set(ctx, "k", []string{"v"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "k*"))
	assert.NoError(t, repo.Close())
}
