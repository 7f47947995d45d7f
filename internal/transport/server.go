package transport

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/risk"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ufhelper.v1.Planner"

const (
	methodPlan     = "/" + ServiceName + "/Plan"
	methodLearn    = "/" + ServiceName + "/Learn"
	methodHistory  = "/" + ServiceName + "/History"
	methodRollback = "/" + ServiceName + "/Rollback"
)

// #region server
// PlannerServer exposes a Service over gRPC.
type PlannerServer struct {
	svc *Service
}

// NewPlannerServer wraps svc for registration on a grpc.Server.
func NewPlannerServer(svc *Service) *PlannerServer {
	return &PlannerServer{svc: svc}
}

// Register adds the Planner service to s.
func (p *PlannerServer) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&plannerServiceDesc, p)
}

func (p *PlannerServer) plan(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req PlanRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := p.svc.Plan(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(resp)
}

func (p *PlannerServer) learn(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req LearnRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := p.svc.Learn(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(resp)
}

func (p *PlannerServer) history(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req HistoryRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := p.svc.History(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(resp)
}

func (p *PlannerServer) rollback(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req RollbackRequest
	if err := fromStruct(in, &req); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	resp, err := p.svc.Rollback(ctx, req)
	if err != nil {
		return nil, toStatus(err)
	}
	return encodeResponse(resp)
}

// #endregion server

// #region service-desc
type unaryMethod func(*PlannerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, m unaryMethod) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(*PlannerServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(*PlannerServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var plannerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Plan", Handler: unaryHandler(methodPlan, (*PlannerServer).plan)},
		{MethodName: "Learn", Handler: unaryHandler(methodLearn, (*PlannerServer).learn)},
		{MethodName: "History", Handler: unaryHandler(methodHistory, (*PlannerServer).history)},
		{MethodName: "Rollback", Handler: unaryHandler(methodRollback, (*PlannerServer).rollback)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ufhelper/v1/planner.proto",
}

// #endregion service-desc

// #region errors
// toStatus maps engine and store errors to gRPC codes.
func toStatus(err error) error {
	switch {
	case risk.IsDomainError(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, state.ErrNoActiveOffset), errors.Is(err, state.ErrVersionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrNoStore):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

func encodeResponse(v any) (*structpb.Struct, error) {
	msg, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return msg, nil
}

// #endregion errors
