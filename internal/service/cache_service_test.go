package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/office-hours-api/internal/models"
)

type erroringCache struct{ err error }

func (e erroringCache) Get(context.Context, string, interface{}) error { return e.err }
func (e erroringCache) Set(context.Context, string, interface{}, time.Duration) error { return e.err }
func (e erroringCache) Delete(context.Context, ...string) error { return e.err }

func TestCacheServiceDisabled(t *testing.T) {
	svc := NewCacheService(newMapCache(), nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	var dest []models.Review
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	require.NoError(t, svc.Invalidate(context.Background(), "k"))

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, nilSvc.Get(context.Background(), "k", &dest))
}

func TestCacheServiceTreatsErrorsAsMiss(t *testing.T) {
	svc := NewCacheService(erroringCache{err: errors.New("conn refused")}, NewMetricsService(), time.Minute, nil, true)

	var dest []models.Review
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	svc.Set(context.Background(), "k", []models.Review{}, 0)
	assert.Error(t, svc.Invalidate(context.Background(), "k"))
}
