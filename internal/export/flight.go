package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/longbow-spyglass/internal/heatmap"
	"github.com/23skdu/longbow-spyglass/internal/layout"
	"github.com/23skdu/longbow-spyglass/internal/logger"
	"github.com/23skdu/longbow-spyglass/internal/metrics"
	"github.com/23skdu/longbow-spyglass/internal/trace"
)

// Flight ticket paths. Per-token counts live under counts/token/<n>.
const (
	PathLayout      = "layout"
	PathAccumulated = "counts/accumulated"
	tokenPrefix     = "counts/token/"
)

// TokenPath returns the ticket path for one token's counts.
func TokenPath(token int) string {
	return fmt.Sprintf("%s%d", tokenPrefix, token)
}

// Server serves one session's layout and count snapshots over Arrow Flight.
// All state is computed at construction; request handlers only serialize.
type Server struct {
	flight.BaseFlightServer

	log    *logger.Logger
	layout *layout.Map
	snaps  map[string]*heatmap.Snapshot
	order  []string
}

// NewServer precomputes the accumulated snapshot plus one full-timeline
// snapshot per recording. tokens and recs are parallel slices as returned by
// session.Dir.Recordings.
func NewServer(m *layout.Map, tokens []int, recs []*trace.Recording, opts heatmap.Options) *Server {
	s := &Server{
		log:    logger.Log.Component("flight"),
		layout: m,
		snaps:  make(map[string]*heatmap.Snapshot, len(recs)+1),
		order:  []string{PathLayout, PathAccumulated},
	}

	acc := heatmap.Accumulate(m, recs, opts)
	accSnap := heatmap.BuildSnapshot(m, acc, heatmap.NewScale(acc))
	s.snaps[PathAccumulated] = accSnap

	for i, token := range tokens {
		v := heatmap.NewView(m, recs[i], opts)
		path := TokenPath(token)
		s.snaps[path] = v.Snapshot()
		s.order = append(s.order, path)
	}

	for i := range accSnap.Rows {
		r := &accSnap.Rows[i]
		if r.LayerID != nil && r.ExpertID != nil {
			metrics.RecordExpertAccess(*r.LayerID, *r.ExpertID, r.Count)
		}
	}

	s.log.Info("flight dataset ready",
		"model", m.ModelName(),
		"tokens", len(tokens),
		"regions", m.Len(),
		"max_count", accSnap.Max)
	return s
}

// Paths returns the served ticket paths in listing order.
func (s *Server) Paths() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Server) schemaFor(path string) (*arrow.Schema, int64, error) {
	if path == PathLayout {
		return LayoutSchema, int64(s.layout.Len()), nil
	}
	if snap, ok := s.snaps[path]; ok {
		return SnapshotSchema, int64(len(snap.Rows)), nil
	}
	return nil, 0, status.Errorf(codes.NotFound, "no dataset at %q", path)
}

func (s *Server) recordFor(path string) (arrow.Record, error) {
	if path == PathLayout {
		return NewLayoutRecord(memory.DefaultAllocator, s.layout), nil
	}
	if snap, ok := s.snaps[path]; ok {
		return NewSnapshotRecord(memory.DefaultAllocator, snap), nil
	}
	return nil, status.Errorf(codes.NotFound, "no dataset at %q", path)
}

func (s *Server) infoFor(path string) (*flight.FlightInfo, error) {
	schema, rows, err := s.schemaFor(path)
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(schema, memory.DefaultAllocator),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{path},
		},
		Endpoint: []*flight.FlightEndpoint{{
			Ticket: &flight.Ticket{Ticket: []byte(path)},
		}},
		TotalRecords: rows,
		TotalBytes:   -1,
	}, nil
}

func descriptorPath(desc *flight.FlightDescriptor) (string, error) {
	if desc.GetType() != flight.DescriptorPATH {
		return "", status.Error(codes.InvalidArgument, "expected a path descriptor")
	}
	return strings.Join(desc.GetPath(), "/"), nil
}

// ListFlights enumerates the served datasets. A non-empty criteria expression
// filters by path prefix.
func (s *Server) ListFlights(c *flight.Criteria, fs flight.FlightService_ListFlightsServer) error {
	metrics.RecordFlightRequest("ListFlights")
	expr := string(c.GetExpression())
	for _, path := range s.order {
		if expr != "" && !strings.HasPrefix(path, expr) {
			continue
		}
		info, err := s.infoFor(path)
		if err != nil {
			return err
		}
		if err := fs.Send(info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	metrics.RecordFlightRequest("GetFlightInfo")
	path, err := descriptorPath(desc)
	if err != nil {
		return nil, err
	}
	return s.infoFor(path)
}

func (s *Server) GetSchema(ctx context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	metrics.RecordFlightRequest("GetSchema")
	path, err := descriptorPath(desc)
	if err != nil {
		return nil, err
	}
	schema, _, err := s.schemaFor(path)
	if err != nil {
		return nil, err
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(schema, memory.DefaultAllocator)}, nil
}

func (s *Server) DoGet(tkt *flight.Ticket, fs flight.FlightService_DoGetServer) error {
	metrics.RecordFlightRequest("DoGet")
	path := string(tkt.GetTicket())
	rec, err := s.recordFor(path)
	if err != nil {
		return err
	}
	defer rec.Release()

	wr := flight.NewRecordWriter(fs, ipc.WithSchema(rec.Schema()))
	defer wr.Close()
	if err := wr.Write(rec); err != nil {
		return fmt.Errorf("stream %s: %w", path, err)
	}
	metrics.RecordFlightRecords(1)
	s.log.Debug("streamed dataset", "path", path, "rows", rec.NumRows())
	return nil
}

// ListenAndServe binds a Flight gRPC server for s on addr. The returned
// server is already registered; callers run Serve and Shutdown.
func ListenAndServe(addr string, s *Server) (flight.Server, error) {
	srv := flight.NewServerWithMiddleware(nil)
	if err := srv.Init(addr); err != nil {
		return nil, fmt.Errorf("bind flight server on %s: %w", addr, err)
	}
	srv.RegisterFlightService(s)
	s.log.Info("flight server listening", "addr", srv.Addr().String())
	return srv, nil
}
