// internal/common/camunda/worker.go
package camunda

import (
	"sync"
	"time"

	"mockup-workers/internal/common/config"
	"mockup-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// HandlerFunc matches the Zeebe job handler signature.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// WorkerSet tracks the job workers opened by the manager so they can be closed together.
type WorkerSet struct {
	mu      sync.Mutex
	workers map[string]worker.JobWorker
	logger  logger.Logger
}

func NewWorkerSet(log logger.Logger) *WorkerSet {
	return &WorkerSet{
		workers: make(map[string]worker.JobWorker),
		logger:  log,
	}
}

// Start opens a job worker for taskType unless it is disabled in config.
func (s *WorkerSet) Start(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler HandlerFunc) bool {
	if !wcfg.Enabled {
		s.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return false
	}

	jw := client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(handler)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		PollInterval(100 * time.Millisecond).
		Open()

	s.mu.Lock()
	s.workers[taskType] = jw
	s.mu.Unlock()

	s.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return true
}

// Len reports how many workers are open.
func (s *WorkerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workers)
}

// CloseAll stops polling and waits for in-flight handlers of every worker.
func (s *WorkerSet) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for taskType, jw := range s.workers {
		s.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		jw.Close()
		jw.AwaitClose()
		delete(s.workers, taskType)
	}
}
