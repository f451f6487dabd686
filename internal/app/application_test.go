package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/config"
	"github.com/lotterylab/lotterylab/internal/system"
)

func TestNewWithDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Ingestion.Enabled = false

	application, err := New(cfg, Stores{}, nil, nil, nil)
	require.NoError(t, err)
	require.NotNil(t, application.Handler)
	assert.Nil(t, application.Ingestion)

	// A placeholder holds the updater slot when the feed is off.
	assert.Error(t, application.Manager.Register(system.NoopService{ServiceName: "feed-updater"}))

	require.NoError(t, application.Manager.Start(context.Background()))
	require.NoError(t, application.Manager.Stop(context.Background()))

	rec := httptest.NewRecorder()
	application.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := config.Default()
	cfg.Ingestion.Schedule = "bogus"

	_, err := New(cfg, Stores{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestNewWithIngestion(t *testing.T) {
	cfg := config.Default()
	cfg.Ingestion.RawDir = t.TempDir()

	application, err := New(cfg, Stores{}, nil, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, application.Ingestion)
}
