package gridserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	gridv1 "github.com/yndnr/gridsession-go/api/grid/v1"
	"github.com/yndnr/gridsession-go/pkg/grid"
)

// MembersFunc reports the current members of the grid.
type MembersFunc func() []gridv1.Member

// Service implements the map service on top of a grid.Client.
type Service struct {
	client  grid.Client
	members MembersFunc
	logger  *slog.Logger
}

// NewService creates a service for client. members may be nil for a
// single node that reports only itself through self.
func NewService(client grid.Client, members MembersFunc, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, members: members, logger: logger}
}

// Handler returns an http.Handler serving every procedure.
func (s *Service) Handler(opts ...connect.HandlerOption) http.Handler {
	opts = append([]connect.HandlerOption{connect.WithCodec(gridv1.JSONCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(gridv1.GetProcedure, connect.NewUnaryHandler(gridv1.GetProcedure, s.Get, opts...))
	mux.Handle(gridv1.SetProcedure, connect.NewUnaryHandler(gridv1.SetProcedure, s.Set, opts...))
	mux.Handle(gridv1.DeleteProcedure, connect.NewUnaryHandler(gridv1.DeleteProcedure, s.Delete, opts...))
	mux.Handle(gridv1.ClearProcedure, connect.NewUnaryHandler(gridv1.ClearProcedure, s.Clear, opts...))
	mux.Handle(gridv1.SizeProcedure, connect.NewUnaryHandler(gridv1.SizeProcedure, s.Size, opts...))
	mux.Handle(gridv1.ValuesProcedure, connect.NewUnaryHandler(gridv1.ValuesProcedure, s.Values, opts...))
	mux.Handle(gridv1.MembersProcedure, connect.NewUnaryHandler(gridv1.MembersProcedure, s.Members, opts...))
	return mux
}

func (s *Service) resolve(ctx context.Context, name string) (grid.Map, error) {
	m, err := s.client.GetMap(ctx, name)
	if err != nil {
		return nil, toConnectError(err)
	}
	return m, nil
}

// Get handles the Get RPC.
func (s *Service) Get(ctx context.Context, req *connect.Request[gridv1.KeyRequest]) (*connect.Response[gridv1.GetResponse], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	v, err := m.Get(ctx, req.Msg.Key)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.GetResponse{Found: v != nil, Value: v}), nil
}

// Set handles the Set RPC.
func (s *Service) Set(ctx context.Context, req *connect.Request[gridv1.SetRequest]) (*connect.Response[gridv1.Empty], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(req.Msg.TTLMillis) * time.Millisecond
	if err := m.Set(ctx, req.Msg.Key, req.Msg.Value, ttl); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.Empty{}), nil
}

// Delete handles the Delete RPC.
func (s *Service) Delete(ctx context.Context, req *connect.Request[gridv1.KeyRequest]) (*connect.Response[gridv1.Empty], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	if err := m.Delete(ctx, req.Msg.Key); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.Empty{}), nil
}

// Clear handles the Clear RPC.
func (s *Service) Clear(ctx context.Context, req *connect.Request[gridv1.MapRequest]) (*connect.Response[gridv1.Empty], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	if err := m.Clear(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.Empty{}), nil
}

// Size handles the Size RPC.
func (s *Service) Size(ctx context.Context, req *connect.Request[gridv1.MapRequest]) (*connect.Response[gridv1.SizeResponse], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	n, err := m.Size(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.SizeResponse{Size: int64(n)}), nil
}

// Values handles the Values RPC.
func (s *Service) Values(ctx context.Context, req *connect.Request[gridv1.MapRequest]) (*connect.Response[gridv1.ValuesResponse], error) {
	m, err := s.resolve(ctx, req.Msg.Map)
	if err != nil {
		return nil, err
	}
	values, err := m.Values(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&gridv1.ValuesResponse{Values: values}), nil
}

// Members handles the Members RPC.
func (s *Service) Members(ctx context.Context, _ *connect.Request[gridv1.MembersRequest]) (*connect.Response[gridv1.MembersResponse], error) {
	if s.members == nil {
		return nil, connect.NewError(connect.CodeUnavailable, errors.New("membership not configured"))
	}
	return connect.NewResponse(&gridv1.MembersResponse{Members: s.members()}), nil
}

// toConnectError maps grid errors to Connect codes.
func toConnectError(err error) error {
	var ce *connect.Error
	switch {
	case errors.As(err, &ce):
		return err
	case errors.Is(err, grid.ErrMapNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, grid.ErrInvalidName):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, grid.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
