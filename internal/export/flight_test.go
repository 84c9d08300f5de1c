package export

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
)

func startServer(t *testing.T) string {
	t.Helper()
	s := NewServer(testLayout(t), []int{0, 1}, testRecordings(t), heatmap.Options{})

	srv := flight.NewServerWithMiddleware(nil)
	require.NoError(t, srv.Init("localhost:0"))
	srv.RegisterFlightService(s)
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Shutdown)

	return srv.Addr().String()
}

func dialServer(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestFlightListAndFetch(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)
	ctx := context.Background()

	paths, err := c.Paths(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{PathLayout, PathAccumulated, "counts/token/0", "counts/token/1"}, paths)

	rows, err := c.Snapshot(ctx, PathAccumulated)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "token_embd.weight", rows[0].Name)
	assert.Equal(t, uint64(2), rows[0].Count)
	assert.Equal(t, uint64(1), rows[1].Count)
	assert.Equal(t, uint64(2), rows[2].Count)
	assert.Equal(t, 0.5, rows[1].Intensity)
}

func TestFlightPerTokenCounts(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)
	ctx := context.Background()

	rows, err := c.Snapshot(ctx, TokenPath(1))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, uint64(1), rows[0].Count)
	assert.Equal(t, uint64(0), rows[1].Count, "expert 0 not routed for token 1")
	assert.Equal(t, uint64(1), rows[2].Count)
}

func TestFlightPathFilter(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)

	paths, err := c.Paths(context.Background(), "counts/token")
	require.NoError(t, err)
	assert.Equal(t, []string{"counts/token/0", "counts/token/1"}, paths)
}

func TestFlightSchemaAndInfo(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)
	ctx := context.Background()

	schema, err := c.Schema(ctx, PathAccumulated)
	require.NoError(t, err)
	assert.True(t, schema.Equal(SnapshotSchema))

	schema, err = c.Schema(ctx, PathLayout)
	require.NoError(t, err)
	assert.True(t, schema.Equal(LayoutSchema))

	info, err := c.Info(ctx, PathLayout)
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.GetTotalRecords())
	require.Len(t, info.GetEndpoint(), 1)
	assert.Equal(t, []byte(PathLayout), info.GetEndpoint()[0].GetTicket().GetTicket())
}

func TestFlightUnknownPath(t *testing.T) {
	addr := startServer(t)
	c := dialServer(t, addr)
	ctx := context.Background()

	_, err := c.Snapshot(ctx, "counts/token/99")
	assert.Error(t, err)

	_, err = c.Info(ctx, "nope")
	assert.Error(t, err)
}
