package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// #region client-struct
// PlannerClient wraps the gRPC connection to a Planner service.
type PlannerClient struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// #endregion client-struct

// #region constructor
// NewPlannerClient connects to a Planner server.
func NewPlannerClient(addr string) (*PlannerClient, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	return &PlannerClient{conn: conn, cc: conn}, nil
}

// NewPlannerClientWithConn creates a PlannerClient over an existing connection.
// Used for testing with an in-memory listener.
func NewPlannerClientWithConn(cc grpc.ClientConnInterface) *PlannerClient {
	return &PlannerClient{cc: cc}
}

// #endregion constructor

// #region close
// Close shuts down the gRPC connection if the client owns it.
func (c *PlannerClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// #endregion close

// #region calls
// Plan requests a session plan.
func (c *PlannerClient) Plan(ctx context.Context, req PlanRequest) (PlanResponse, error) {
	var resp PlanResponse
	if err := c.call(ctx, methodPlan, req, &resp); err != nil {
		return PlanResponse{}, fmt.Errorf("plan rpc: %w", err)
	}
	return resp, nil
}

// Learn submits post-session actuals.
func (c *PlannerClient) Learn(ctx context.Context, req LearnRequest) (LearnResponse, error) {
	var resp LearnResponse
	if err := c.call(ctx, methodLearn, req, &resp); err != nil {
		return LearnResponse{}, fmt.Errorf("learn rpc: %w", err)
	}
	return resp, nil
}

// History lists a patient's offset versions and sessions.
func (c *PlannerClient) History(ctx context.Context, req HistoryRequest) (HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.call(ctx, methodHistory, req, &resp); err != nil {
		return HistoryResponse{}, fmt.Errorf("history rpc: %w", err)
	}
	return resp, nil
}

// Rollback moves a patient's active offset.
func (c *PlannerClient) Rollback(ctx context.Context, req RollbackRequest) (RollbackResponse, error) {
	var resp RollbackResponse
	if err := c.call(ctx, methodRollback, req, &resp); err != nil {
		return RollbackResponse{}, fmt.Errorf("rollback rpc: %w", err)
	}
	return resp, nil
}

func (c *PlannerClient) call(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return err
	}
	return fromStruct(out, resp)
}

// #endregion calls
