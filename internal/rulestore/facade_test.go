package rulestore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	rows   []Row
	relays []RelayRow
}

func (f *fakeRepo) ListEnabledOrdered(ctx context.Context) ([]Row, error) {
	return f.rows, nil
}

func (f *fakeRepo) ListEnabledRelays(ctx context.Context) ([]RelayRow, error) {
	return f.relays, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestReloadOrdersByOrderThenID(t *testing.T) {
	repo := &fakeRepo{rows: []Row{
		{ID: 2, QueryText: `kind == 2`, Enabled: true, Order: 5, UpdatedAt: time.Now()},
		{ID: 1, QueryText: `kind == 1`, Enabled: true, Order: 1, UpdatedAt: time.Now()},
		{ID: 3, QueryText: `kind == 3`, Enabled: true, Order: 1, UpdatedAt: time.Now()},
	}}
	f := NewFacade(repo, testLogger())
	require.NoError(t, f.Reload(context.Background()))

	active := f.ActiveRules()
	require.Len(t, active, 3)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)
	assert.Equal(t, int64(2), active[2].ID)
}

func TestReloadQuarantinesUncompilableRules(t *testing.T) {
	repo := &fakeRepo{rows: []Row{
		{ID: 1, QueryText: `kind = 1`, Enabled: true, Order: 1, UpdatedAt: time.Now()}, // bad: bare '='
		{ID: 2, QueryText: `kind == 2`, Enabled: true, Order: 2, UpdatedAt: time.Now()},
	}}
	f := NewFacade(repo, testLogger())
	require.NoError(t, f.Reload(context.Background()))

	active := f.ActiveRules()
	require.Len(t, active, 1)
	assert.Equal(t, int64(2), active[0].ID)
}

func TestReloadReusesCompilationWhenUnchanged(t *testing.T) {
	fixedTime := time.Now()
	repo := &fakeRepo{rows: []Row{
		{ID: 1, QueryText: `kind == 1`, Enabled: true, Order: 1, UpdatedAt: fixedTime},
	}}
	f := NewFacade(repo, testLogger())
	require.NoError(t, f.Reload(context.Background()))
	firstNode := f.ActiveRules()[0].Node

	require.NoError(t, f.Reload(context.Background()))
	secondNode := f.ActiveRules()[0].Node

	assert.Same(t, firstNode, secondNode)
}

func TestReloadRecompilesOnUpdatedAtChange(t *testing.T) {
	repo := &fakeRepo{rows: []Row{
		{ID: 1, QueryText: `kind == 1`, Enabled: true, Order: 1, UpdatedAt: time.Unix(100, 0)},
	}}
	f := NewFacade(repo, testLogger())
	require.NoError(t, f.Reload(context.Background()))
	firstNode := f.ActiveRules()[0].Node

	repo.rows[0].UpdatedAt = time.Unix(200, 0)
	repo.rows[0].QueryText = `kind == 2`
	require.NoError(t, f.Reload(context.Background()))
	secondNode := f.ActiveRules()[0].Node

	assert.NotSame(t, firstNode, secondNode)
}

func TestInvalidateForcesRecompilation(t *testing.T) {
	fixedTime := time.Now()
	repo := &fakeRepo{rows: []Row{
		{ID: 1, QueryText: `kind == 1`, Enabled: true, Order: 1, UpdatedAt: fixedTime},
	}}
	f := NewFacade(repo, testLogger())
	require.NoError(t, f.Reload(context.Background()))
	firstNode := f.ActiveRules()[0].Node

	f.Invalidate(1)
	require.NoError(t, f.Reload(context.Background()))
	secondNode := f.ActiveRules()[0].Node

	assert.NotSame(t, firstNode, secondNode)
}

func TestRelayURLsOrdersByOrder(t *testing.T) {
	repo := &fakeRepo{relays: []RelayRow{
		{URL: "wss://second", Enabled: true, Order: 2},
		{URL: "wss://first", Enabled: true, Order: 1},
	}}
	f := NewFacade(repo, testLogger())
	urls, err := f.RelayURLs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"wss://first", "wss://second"}, urls)
}

func TestValidateIsPureAndSideEffectFree(t *testing.T) {
	f := NewFacade(&fakeRepo{}, testLogger())
	result, err := f.Validate(`kind == 1`)
	require.Nil(t, err)
	assert.True(t, result.FieldsUsed["kind"])
	assert.Empty(t, f.ActiveRules())
}
