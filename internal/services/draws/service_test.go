package draws

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotterylab/lotterylab/internal/domain/draw"
	"github.com/lotterylab/lotterylab/internal/storage/memory"
)

func seedDraws(t *testing.T, store *memory.Store, count int) {
	t.Helper()
	base := draw.NewDate(2024, time.January, 6)
	for i := 0; i < count; i++ {
		_, err := store.InsertDraw(context.Background(), draw.Draw{
			DrawNumber: i + 1,
			DrawDate:   base.AddDays(i * 3),
			GameType:   "lotto",
			Numbers:    []int{1, 2, 3, 4, 5, 6},
		})
		require.NoError(t, err)
	}
}

func TestListDefaultsLimit(t *testing.T) {
	store := memory.New()
	seedDraws(t, store, 120)
	svc := New(store, store, nil)

	page, err := svc.List(context.Background(), draw.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 120, page.Total)
	assert.Len(t, page.Draws, defaultPageLimit)
	assert.Equal(t, defaultPageLimit, page.Limit)
	// Newest first.
	assert.Equal(t, 120, page.Draws[0].DrawNumber)
}

func TestListNormalizesGameType(t *testing.T) {
	store := memory.New()
	seedDraws(t, store, 5)
	svc := New(store, store, nil)

	page, err := svc.List(context.Background(), draw.Filter{GameType: "Lotto"})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
}

func TestListPagination(t *testing.T) {
	store := memory.New()
	seedDraws(t, store, 10)
	svc := New(store, store, nil)

	page, err := svc.List(context.Background(), draw.Filter{Limit: 3, Offset: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, page.Total)
	require.Len(t, page.Draws, 3)
	assert.Equal(t, 7, page.Draws[0].DrawNumber)
}

func TestGetMissing(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	_, err := svc.Get(context.Background(), 999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestImportHistory(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	_, err := store.RecordImportRun(context.Background(), draw.ImportRun{SourceURL: "https://example.com", Inserted: 5})
	require.NoError(t, err)

	runs, err := svc.ImportHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].Inserted)
}
