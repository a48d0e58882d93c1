package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/availability-api/internal/dto"
	"github.com/noah-isme/availability-api/internal/models"
	appErrors "github.com/noah-isme/availability-api/pkg/errors"
	"github.com/noah-isme/availability-api/pkg/jobs"
	"github.com/noah-isme/availability-api/pkg/middleware/requestid"
)

// BulkImportJobType tags queued availability bulk imports.
const BulkImportJobType = "availability.bulk_import"

type bulkSlotWriter interface {
	ValidateBulk(scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) (models.Scope, error)
	CreateBulk(ctx context.Context, scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) ([]models.AvailabilitySlot, error)
}

type importQueue interface {
	Enqueue(job jobs.Job) error
	Status(id string) (jobs.Status, bool)
}

type bulkImportPayload struct {
	Scope   models.Scope
	Request dto.BulkCreateAvailabilitySlotRequest
}

// AvailabilityImportService runs unchecked bulk inserts in the background.
type AvailabilityImportService struct {
	slots  bulkSlotWriter
	queue  importQueue
	logger *zap.Logger
}

// NewAvailabilityImportService builds the service. A nil queue disables
// asynchronous imports.
func NewAvailabilityImportService(slots bulkSlotWriter, logger *zap.Logger) *AvailabilityImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityImportService{slots: slots, logger: logger}
}

// AttachQueue sets the queue jobs are sent to. The queue's handler must be Handle.
func (s *AvailabilityImportService) AttachQueue(queue importQueue) {
	s.queue = queue
}

// EnqueueBulk validates req and queues it. The returned job id can be polled
// with Status.
func (s *AvailabilityImportService) EnqueueBulk(ctx context.Context, scope models.Scope, req dto.BulkCreateAvailabilitySlotRequest) (*dto.BulkImportAccepted, error) {
	if s.queue == nil {
		return nil, appErrors.ErrQueueUnavailable
	}
	resolved, err := s.slots.ValidateBulk(scope, req)
	if err != nil {
		return nil, err
	}

	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    BulkImportJobType,
		Payload: bulkImportPayload{Scope: resolved, Request: req},
	}
	if err := s.queue.Enqueue(job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, "failed to queue bulk import")
	}

	s.logger.Info("availability bulk import queued",
		zap.String("job_id", job.ID),
		zap.String("request_id", requestid.FromContext(ctx)),
		zap.String("tenant_id", resolved.TenantID),
		zap.Int("items", len(req.Items)),
	)
	return &dto.BulkImportAccepted{JobID: job.ID, Items: len(req.Items)}, nil
}

// Status reports the progress of a queued import.
func (s *AvailabilityImportService) Status(ctx context.Context, jobID string) (*jobs.Status, error) {
	if s.queue == nil {
		return nil, appErrors.ErrQueueUnavailable
	}
	status, ok := s.queue.Status(jobID)
	if !ok || status.Type != BulkImportJobType {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "import job not found")
	}
	return &status, nil
}

// Handle processes one queued import. Client errors are not retried.
func (s *AvailabilityImportService) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(bulkImportPayload)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
	}

	slots, err := s.slots.CreateBulk(ctx, payload.Scope, payload.Request)
	if err != nil {
		if appErr := appErrors.FromError(err); appErr.Status < http.StatusInternalServerError {
			return jobs.Permanent(err)
		}
		return err
	}

	s.logger.Info("availability bulk import finished",
		zap.String("job_id", job.ID),
		zap.String("tenant_id", payload.Scope.TenantID),
		zap.Int("inserted", len(slots)),
	)
	return nil
}
