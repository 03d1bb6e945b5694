package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoPaginate_OverlappingPages(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(25))
	opts := PaginationOptions{PageSize: 10, MaxResults: 1000}

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), DefaultCursor, opts)
	require.NoError(t, err)

	// 10 + 10 (first overlaps) + 7 (first overlaps)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, res.Items, 27)
	assert.False(t, res.HitCeiling)
	assert.Equal(t, []string{DefaultCursor, graphID(9), graphID(18)}, f.cursors)

	unique := RemoveDuplicatesByID(res.Items)
	require.Len(t, unique, 25)
	for i, tx := range unique {
		assert.Equal(t, graphID(i), tx.ID)
	}
}

func TestAutoPaginate_ExactlyOneFullPage(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(10))

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), DefaultCursor, PaginationOptions{PageSize: 10})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.Len(t, res.Items, 11)
	assert.Len(t, RemoveDuplicatesByID(res.Items), 10)
}

func TestAutoPaginate_EmptyFirstPage(t *testing.T) {
	f := newFakeQuerier(nil)

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), "", PaginationOptions{PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, []string{DefaultCursor}, f.cursors)
}

func TestAutoPaginate_StopsAtCeiling(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(500))

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), DefaultCursor, PaginationOptions{PageSize: 10, MaxResults: 30})
	require.NoError(t, err)

	assert.True(t, res.HitCeiling)
	assert.Equal(t, 3, res.Pages)
	assert.Len(t, res.Items, 30)
}

func TestAutoPaginate_DefaultOptionsStopAtCeiling(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(150000))

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, DefaultPageSize), DefaultCursor, PaginationOptions{})
	require.NoError(t, err)

	assert.True(t, res.HitCeiling)
	assert.Equal(t, 100, res.Pages)
	assert.Len(t, res.Items, DefaultMaxResults)
	// each page after the first repeats its cursor record
	assert.Len(t, RemoveDuplicatesByID(res.Items), DefaultMaxResults-99)
}

func TestAutoPaginate_PageSizeOneStalls(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(5))

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 1), DefaultCursor, PaginationOptions{PageSize: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCursorStalled)
	assert.Contains(t, err.Error(), graphID(0))
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, []string{DefaultCursor, graphID(0)}, f.cursors)
}

func TestAutoPaginate_RepeatedPageStalls(t *testing.T) {
	page := makeGraphTransactions(3)
	calls := 0
	query := func(ctx context.Context, cursor string) ([]GraphTransaction, error) {
		calls++
		return page, nil
	}

	_, err := AutoPaginate(context.Background(), query, graphID(2), PaginationOptions{PageSize: 3})
	assert.ErrorIs(t, err, ErrCursorStalled)
	assert.Equal(t, 1, calls)
}

func TestAutoPaginate_CeilingOnShortPageIsNotAHit(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(15))

	res, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), DefaultCursor, PaginationOptions{PageSize: 10, MaxResults: 16})
	require.NoError(t, err)

	assert.False(t, res.HitCeiling)
	assert.Len(t, res.Items, 16)
}

func TestAutoPaginate_PropagatesFetchError(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(5))
	f.err = errors.New("subgraph down")

	_, err := AutoPaginate(context.Background(), pageQueryFor(f, 10), "0xabc", PaginationOptions{PageSize: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, f.err)
	assert.Contains(t, err.Error(), "0xabc")
}

func TestAutoPaginate_ContextCancelled(t *testing.T) {
	f := newFakeQuerier(makeGraphTransactions(5))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := AutoPaginate(ctx, pageQueryFor(f, 10), DefaultCursor, PaginationOptions{PageSize: 10})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.callCount())
}

func TestRemoveDuplicatesByID_KeepsFirst(t *testing.T) {
	items := []GraphTransaction{
		{ID: "a", BoundParamsHash: "first"},
		{ID: "b"},
		{ID: "a", BoundParamsHash: "second"},
		{ID: "c"},
		{ID: "b"},
	}

	out := RemoveDuplicatesByID(items)
	require.Len(t, out, 3)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "first", out[0].BoundParamsHash)
	assert.Equal(t, "b", out[1].ID)
	assert.Equal(t, "c", out[2].ID)

	assert.Empty(t, RemoveDuplicatesByID([]GraphTransaction{}))
}

func TestFormatRailgunTransactions(t *testing.T) {
	out, err := FormatRailgunTransactions([]GraphTransaction{{
		ID:              "0x01",
		Commitments:     []string{"0xc1", "0xc2"},
		Nullifiers:      nil,
		BoundParamsHash: "0xb",
		BlockNumber:     "14755920",
	}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, RailgunTransaction{
		GraphID:         "0x01",
		Commitments:     []string{"0xc1", "0xc2"},
		Nullifiers:      []string{},
		BoundParamsHash: "0xb",
		BlockNumber:     14755920,
	}, out[0])
}

func TestFormatRailgunTransactions_BadBlockNumber(t *testing.T) {
	_, err := FormatRailgunTransactions([]GraphTransaction{{ID: "0x01", BlockNumber: "latest"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "block number")
}
