package generatemockup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"mockup-workers/internal/common/errors"
	"mockup-workers/internal/common/logger"
	"mockup-workers/internal/common/metrics"
	"mockup-workers/internal/common/validation"
	"mockup-workers/internal/models"
)

const TaskType = "generate-mockup"

// Runner is the mockup pipeline. *orchestrator.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req models.MockupRequest) (*models.MockupResult, error)
}

type Handler struct {
	config       *Config
	runner       Runner
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, runner Runner, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		runner:       runner,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing mockup request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	result, err := inputSchema.ValidateJSON(job.GetVariables())
	if err != nil {
		return nil, errors.NewInvalidMockupRequestError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidMockupRequestError(strings.Join(result.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidMockupRequestError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// Execute runs the pipeline. Only a failed design fetch or a design URL that
// cannot be used is returned as an error; every other failure, an unknown
// mode included, produces a best-effort output pointing at the original design.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !validation.ValidateURL(input.DesignImageURL) {
		return nil, errors.NewInvalidMockupRequestError("designImageUrl must be an absolute http(s) URL")
	}
	req := input.Request()
	if _, ok := models.ParseMode(string(req.Mode)); !ok {
		return h.originalDesign(req, input.DesignImageURL,
			errors.NewInvalidMockupRequestError(fmt.Sprintf("unknown mode %q", req.Mode))), nil
	}

	result, err := h.runner.Run(ctx, req)
	if err != nil {
		switch errors.CodeOf(err) {
		case errors.ErrCodeDesignFetchFailed, errors.ErrCodeInvalidMockupRequest:
			return nil, err
		}
		return h.originalDesign(req, input.DesignImageURL, err), nil
	}

	return &Output{
		Success:           true,
		MockupURL:         h.config.MockupURL(result.Filename),
		Filename:          result.Filename,
		ProcessingDetails: result.Details(),
	}, nil
}

// reportContext bounds the call that reports the job result. It does not
// derive from the job context, which may already be spent.
func (h *Handler) reportContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.config.ReportTimeout)
}

// originalDesign is the last-resort body: it points the caller at the design
// it sent.
func (h *Handler) originalDesign(req models.MockupRequest, designURL string, err error) *Output {
	h.logger.Warn("Mockup generation failed, returning original design", map[string]interface{}{
		"designId":  req.DesignID,
		"productId": req.ProductID,
		"error":     err.Error(),
	})
	return &Output{
		Success:   false,
		MockupURL: designURL,
		ProcessingDetails: models.ProcessingDetails{
			TemplateType: models.TemplateKindNone,
			ErrorMessage: err.Error(),
		},
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	ctx, cancel := h.reportContext()
	defer cancel()

	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}
	h.logger.Info("Mockup job completed", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"success":   output.Success,
		"filename":  output.Filename,
		"mockupUrl": output.MockupURL,
	})
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	ctx, cancel := h.reportContext()
	defer cancel()

	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
