package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
)

// Client is a thin Flight client for the snapshot paths this package serves.
type Client struct {
	fc flight.Client
}

// Dial connects to a spyglass Flight server without transport security.
func Dial(addr string) (*Client, error) {
	fc, err := flight.NewClientWithMiddleware(addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial flight server %s: %w", addr, err)
	}
	return &Client{fc: fc}, nil
}

func (c *Client) Close() error {
	return c.fc.Close()
}

// Paths lists the ticket paths the server exposes. prefix filters
// server-side; pass "" for everything.
func (c *Client) Paths(ctx context.Context, prefix string) ([]string, error) {
	stream, err := c.fc.ListFlights(ctx, &flight.Criteria{Expression: []byte(prefix)})
	if err != nil {
		return nil, err
	}
	var out []string
	for {
		info, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, strings.Join(info.GetFlightDescriptor().GetPath(), "/"))
	}
	return out, nil
}

// Info fetches the flight descriptor metadata for one path.
func (c *Client) Info(ctx context.Context, path string) (*flight.FlightInfo, error) {
	return c.fc.GetFlightInfo(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: strings.Split(path, "/"),
	})
}

// Schema fetches and deserializes the schema for one path.
func (c *Client) Schema(ctx context.Context, path string) (*arrow.Schema, error) {
	res, err := c.fc.GetSchema(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: strings.Split(path, "/"),
	})
	if err != nil {
		return nil, err
	}
	return flight.DeserializeSchema(res.GetSchema(), memory.DefaultAllocator)
}

// Snapshot fetches the rows behind one counts path.
func (c *Client) Snapshot(ctx context.Context, path string) ([]heatmap.Row, error) {
	stream, err := c.fc.DoGet(ctx, &flight.Ticket{Ticket: []byte(path)})
	if err != nil {
		return nil, err
	}
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return nil, fmt.Errorf("open record stream for %s: %w", path, err)
	}
	defer rdr.Release()

	var rows []heatmap.Row
	for rdr.Next() {
		batch, err := SnapshotRows(rdr.Record())
		if err != nil {
			return nil, err
		}
		rows = append(rows, batch...)
	}
	if err := rdr.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return rows, nil
}
