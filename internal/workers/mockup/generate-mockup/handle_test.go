package generatemockup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	mockuperrors "mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/models"
)

// ==========================
// Job Client Fakes
// ==========================

// recordingGateway captures the job commands the handler sends and whether
// their context was still live.
type recordingGateway struct {
	pb.GatewayClient

	mu       sync.Mutex
	calls    []string
	ctxErrs  []error
	complete *pb.CompleteJobRequest
}

func (g *recordingGateway) record(ctx context.Context, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, name)
	g.ctxErrs = append(g.ctxErrs, ctx.Err())
}

func (g *recordingGateway) CompleteJob(ctx context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.record(ctx, "complete")
	g.complete = in
	return &pb.CompleteJobResponse{}, nil
}

func (g *recordingGateway) FailJob(ctx context.Context, _ *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.record(ctx, "fail")
	return &pb.FailJobResponse{}, nil
}

func (g *recordingGateway) ThrowError(ctx context.Context, _ *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.record(ctx, "throw")
	return &pb.ThrowErrorResponse{}, nil
}

func noRetry(context.Context, error) bool { return false }

type recordingJobClient struct {
	gateway *recordingGateway
}

func (c recordingJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c recordingJobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c recordingJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

func createShortBudgetHandler(t *testing.T, runner Runner) *Handler {
	cfg := createTestConfig()
	cfg.Timeout = 20 * time.Millisecond
	return NewHandler(cfg, runner, logger.NewTestLogger(t))
}

const validVariables = `{"designId":"design-1","productId":"tee","designImageUrl":"https://images.example.com/design.png"}`

// ==========================
// Job Reporting Tests
// ==========================

func TestHandle_CompletesAfterJobBudgetIsSpent(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(&models.MockupResult{Filename: "f.png", StrategyUsed: models.StrategyBasic, FallbackUsed: true, Template: models.NoTemplate}, nil)

	gw := &recordingGateway{}
	createShortBudgetHandler(t, runner).Handle(recordingJobClient{gateway: gw}, createJob(validVariables))

	require.Equal(t, []string{"complete"}, gw.calls)
	assert.NoError(t, gw.ctxErrs[0], "complete is sent on a live context")
	assert.Equal(t, int64(42), gw.complete.JobKey)
	assert.Contains(t, gw.complete.Variables, `"mockupUrl":"https://cdn.example.com/mockups/f.png"`)
}

func TestHandle_FailsAfterJobBudgetIsSpent(t *testing.T) {
	runner := new(MockRunner)
	runner.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, mockuperrors.NewDesignFetchFailedError("https://images.example.com/design.png", 3, errors.New("timeout")))

	gw := &recordingGateway{}
	createShortBudgetHandler(t, runner).Handle(recordingJobClient{gateway: gw}, createJob(validVariables))

	require.Len(t, gw.calls, 1)
	assert.Contains(t, []string{"fail", "throw"}, gw.calls[0])
	assert.NoError(t, gw.ctxErrs[0], "failure is reported on a live context")
}

func TestHandle_InvalidVariablesAreReported(t *testing.T) {
	runner := new(MockRunner)
	gw := &recordingGateway{}

	createTestHandler(t, runner).Handle(recordingJobClient{gateway: gw}, createJob(`{"designId":"d"}`))

	require.Len(t, gw.calls, 1)
	assert.NotEqual(t, "complete", gw.calls[0])
	runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}
