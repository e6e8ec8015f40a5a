package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"

	"github.com/minjaeoh/quality-metrics-service/internal/core/services/ingest"
)

// UploadProcessor runs one ingestion end to end. Implemented by
// ingest.Service; declared here so the queue layer does not depend on the
// service's constructor wiring.
type UploadProcessor interface {
	ProcessUpload(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

// NewUploadTask builds an ingestion task for the uploads queue
func NewUploadTask(req ingest.UploadRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upload task: %w", err)
	}
	return asynq.NewTask(TaskTypeUploadIngest, payload, asynq.Queue(QueueUploads)), nil
}

// NewUploadTaskHandler returns the worker-side handler for ingestion tasks.
// The uploaded file was staged to a temp path by the API; the handler owns
// cleanup once ingestion finishes or permanently fails.
func NewUploadTaskHandler(processor UploadProcessor, logger *slog.Logger) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var req ingest.UploadRequest
		if err := json.Unmarshal(task.Payload(), &req); err != nil {
			return fmt.Errorf("failed to unmarshal upload task: %v: %w", err, asynq.SkipRetry)
		}

		result, err := processor.ProcessUpload(ctx, req)
		if err != nil {
			return err
		}

		if err := os.Remove(req.FilePath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove staged upload file",
				slog.String("path", req.FilePath),
				slog.Any("error", err))
		}

		logger.Info("upload task processed",
			slog.String("domain", result.Domain),
			slog.String("batch_id", result.BatchID.String()),
			slog.Int("record_count", result.RecordCount))
		return nil
	}
}
