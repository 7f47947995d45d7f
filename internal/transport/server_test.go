package transport

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/danielpatrickdp/uf-helper/go-controller/internal/replay"
	"github.com/danielpatrickdp/uf-helper/go-controller/internal/state"
)

const bufSize = 1 << 20

// startServer runs svc on an in-memory listener and returns a connected client.
func startServer(t *testing.T, svc *Service) *PlannerClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	srv := grpc.NewServer()
	NewPlannerServer(svc).Register(srv)
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewPlannerClientWithConn(conn)
}

func TestGRPCPlanMatchesDirectCall(t *testing.T) {
	svc := NewService(replay.DefaultReplayConfig(), nil)
	client := startServer(t, svc)
	ctx := context.Background()

	direct, err := svc.Plan(ctx, PlanRequest{SessionID: "s1", Inputs: sessionInputs()})
	require.NoError(t, err)
	remote, err := client.Plan(ctx, PlanRequest{SessionID: "s1", Inputs: sessionInputs()})
	require.NoError(t, err)

	assert.Equal(t, direct.Plan, remote.Plan)
	assert.Equal(t, direct.Eval, remote.Eval)
	assert.Equal(t, "s1", remote.SessionID)
}

func TestGRPCLearnAndHistory(t *testing.T) {
	store, err := state.NewStore(t.TempDir() + "/grpc.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	client := startServer(t, NewService(replay.DefaultReplayConfig(), store))
	ctx := context.Background()

	learn, err := client.Learn(ctx, LearnRequest{SessionID: "s1", Inputs: sessionInputs(), Actuals: okActuals()})
	require.NoError(t, err)
	assert.Equal(t, replay.ActionCommit, learn.Action)
	assert.NotEmpty(t, learn.VersionID)
	assert.InDelta(t, learn.Learn.State.BiasOffset, *learn.Snapshot.OffsetUpdated, 1e-12)

	hist, err := client.History(ctx, HistoryRequest{PatientID: "Case01"})
	require.NoError(t, err)
	assert.Equal(t, learn.VersionID, hist.ActiveVersionID)
	require.Len(t, hist.Versions, 2)

	rb, err := client.Rollback(ctx, RollbackRequest{PatientID: "Case01", VersionID: learn.PriorVersionID})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rb.BiasOffset)
}

func TestGRPCErrorCodes(t *testing.T) {
	client := startServer(t, NewService(replay.DefaultReplayConfig(), nil))
	ctx := context.Background()

	in := sessionInputs()
	in.TauPercent = 0
	_, err := client.Plan(ctx, PlanRequest{Inputs: in})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.History(ctx, HistoryRequest{PatientID: "Case01"})
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPCNotFound(t *testing.T) {
	store, err := state.NewStore(t.TempDir() + "/nf.db")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	client := startServer(t, NewService(replay.DefaultReplayConfig(), store))

	_, err = client.History(context.Background(), HistoryRequest{PatientID: "nobody"})
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestNewPlannerClient(t *testing.T) {
	client, err := NewPlannerClient("localhost:0")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	assert.NoError(t, NewPlannerClientWithConn(nil).Close())
}
