package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MsgUploadFailed = "Upload failed."
	MsgNetworkError = "Network error."
)

// File is one document of a pending selection.
type File struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`
}

func (f File) Size() int { return len(f.Data) }

// IngestionSummary is what the indexing API reports for an accepted batch.
type IngestionSummary struct {
	AddedChunks int `json:"added_chunks"`
	TotalDocs   int `json:"total_docs,omitempty"`
}

// IndexStatus is the last fetched index status. It carries no freshness
// guarantee beyond the fetch that produced it.
type IndexStatus struct {
	Status          string `json:"status"`
	BackendEndpoint string `json:"backend_endpoint"`
}

type StatusType string

const (
	StatusSuccess StatusType = "success"
	StatusError   StatusType = "error"
)

type StatusMessage struct {
	Type    StatusType `json:"type"`
	Message string     `json:"message"`
}

// IngestAPI is the indexing boundary used by the admin flow.
type IngestAPI interface {
	UploadBatch(ctx context.Context, files []File) (IngestionSummary, error)
	Info(ctx context.Context) (string, error)
}

// IngestionEvent records the outcome of one settled batch submission.
type IngestionEvent struct {
	ID          string     `json:"id"`
	Actor       string     `json:"actor"`
	FileNames   []string   `json:"file_names"`
	FileCount   int        `json:"file_count"`
	AddedChunks int        `json:"added_chunks"`
	Outcome     StatusType `json:"outcome"`
	Message     string     `json:"message"`
	At          time.Time  `json:"at"`
}

type EventSink interface {
	Publish(ctx context.Context, event IngestionEvent) error
}

// NoResponder is implemented by backend errors that can tell whether an HTTP
// response was received before the failure.
type NoResponder interface {
	NoResponse() bool
}

func failedBeforeResponse(err error) bool {
	var nr NoResponder
	return errors.As(err, &nr) && nr.NoResponse()
}

// SuccessMessage renders the status shown after an accepted batch.
func SuccessMessage(fileCount, addedChunks int) string {
	return fmt.Sprintf("Successfully processed %d files. Added %d chunks.", fileCount, addedChunks)
}

// AdminView is a point-in-time snapshot for rendering.
type AdminView struct {
	Selection []string       `json:"selection"`
	Uploading bool           `json:"uploading"`
	Status    *StatusMessage `json:"status,omitempty"`
	Info      *IndexStatus   `json:"info,omitempty"`
}

type BatchCoordinator struct {
	api            IngestAPI
	ctrl           *Controller
	endpoint       string
	clearOnSuccess bool
	actor          string
	sink           EventSink
	logger         *zap.Logger

	mu         sync.RWMutex
	selection  []File
	generation uint64
	status     *StatusMessage
	info       *IndexStatus
}

type CoordinatorConfig struct {
	// Endpoint is the backend base URL shown alongside the index status.
	Endpoint string
	// ClearOnSuccess empties the selection after an accepted batch, unless it
	// was replaced while the batch was in flight.
	ClearOnSuccess bool
	Actor          string
	Sink           EventSink
}

func NewBatchCoordinator(api IngestAPI, cfg CoordinatorConfig, logger *zap.Logger) *BatchCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchCoordinator{
		api:            api,
		ctrl:           NewController(logger),
		endpoint:       cfg.Endpoint,
		clearOnSuccess: cfg.ClearOnSuccess,
		actor:          cfg.Actor,
		sink:           cfg.Sink,
		logger:         logger,
	}
}

// SelectFiles replaces the pending selection and clears the status message.
func (c *BatchCoordinator) SelectFiles(files []File) {
	selection := make([]File, len(files))
	copy(selection, files)

	c.mu.Lock()
	c.selection = selection
	c.generation++
	c.status = nil
	c.mu.Unlock()
}

func (c *BatchCoordinator) Selection() []File {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]File, len(c.selection))
	copy(out, c.selection)
	return out
}

func (c *BatchCoordinator) Status() *StatusMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.status == nil {
		return nil
	}
	status := *c.status
	return &status
}

func (c *BatchCoordinator) Info() *IndexStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return nil
	}
	info := *c.info
	return &info
}

func (c *BatchCoordinator) Uploading() bool {
	return c.ctrl.Loading(KindBatchUpload)
}

func (c *BatchCoordinator) State(kind Kind) RequestState {
	return c.ctrl.State(kind)
}

func (c *BatchCoordinator) Snapshot() AdminView {
	var view AdminView
	c.ctrl.Observe(func(state func(Kind) RequestState) {
		c.mu.RLock()
		defer c.mu.RUnlock()

		names := make([]string, 0, len(c.selection))
		for _, f := range c.selection {
			names = append(names, f.Name)
		}
		view = AdminView{
			Selection: names,
			Uploading: state(KindBatchUpload).Phase == PhaseInFlight,
		}
		if c.status != nil {
			status := *c.status
			view.Status = &status
		}
		if c.info != nil {
			info := *c.info
			view.Info = &info
		}
	})
	return view
}

// SubmitBatch uploads a snapshot of the current selection and blocks until
// the outcome is applied. On success the index status is refreshed. It
// returns false without calling the backend when the selection is empty or
// an upload is already in flight.
func (c *BatchCoordinator) SubmitBatch(ctx context.Context) bool {
	c.mu.RLock()
	snapshot := make([]File, len(c.selection))
	copy(snapshot, c.selection)
	generation := c.generation
	c.mu.RUnlock()

	if len(snapshot) == 0 {
		return false
	}

	var (
		succeeded bool
		event     IngestionEvent
	)
	accepted := Run(ctx, c.ctrl, KindBatchUpload, Operation[IngestionSummary]{
		Start: func() {
			c.mu.Lock()
			c.status = nil
			c.mu.Unlock()
		},
		Call: func(ctx context.Context) (IngestionSummary, error) {
			return c.api.UploadBatch(ctx, snapshot)
		},
		Settle: func(summary IngestionSummary, err error) {
			status := c.settleStatus(len(snapshot), summary, err)

			c.mu.Lock()
			c.status = &status
			if err == nil && c.clearOnSuccess && c.generation == generation {
				c.selection = nil
				c.generation++
			}
			c.mu.Unlock()

			succeeded = err == nil
			event = c.newEvent(snapshot, summary, status)
		},
	})
	if !accepted {
		return false
	}

	c.publish(ctx, event)
	if succeeded {
		c.FetchStatus(ctx)
	}
	return true
}

func (c *BatchCoordinator) settleStatus(fileCount int, summary IngestionSummary, err error) StatusMessage {
	if err == nil {
		c.logger.Info("batch ingested",
			zap.Int("files", fileCount),
			zap.Int("added_chunks", summary.AddedChunks),
		)
		return StatusMessage{Type: StatusSuccess, Message: SuccessMessage(fileCount, summary.AddedChunks)}
	}
	c.logger.Warn("batch upload failed", zap.Int("files", fileCount), zap.Error(err))
	if failedBeforeResponse(err) {
		return StatusMessage{Type: StatusError, Message: MsgNetworkError}
	}
	return StatusMessage{Type: StatusError, Message: MsgUploadFailed}
}

func (c *BatchCoordinator) newEvent(files []File, summary IngestionSummary, status StatusMessage) IngestionEvent {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	event := IngestionEvent{
		ID:        uuid.NewString(),
		Actor:     c.actor,
		FileNames: names,
		FileCount: len(files),
		Outcome:   status.Type,
		Message:   status.Message,
		At:        time.Now().UTC(),
	}
	if status.Type == StatusSuccess {
		event.AddedChunks = summary.AddedChunks
	}
	return event
}

func (c *BatchCoordinator) publish(ctx context.Context, event IngestionEvent) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Publish(ctx, event); err != nil {
		c.logger.Warn("publish ingestion event failed", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// FetchStatus refreshes the index status. Failures are logged and leave the
// last known status in place.
func (c *BatchCoordinator) FetchStatus(ctx context.Context) bool {
	return Run(ctx, c.ctrl, KindInfoFetch, Operation[string]{
		Call: c.api.Info,
		Settle: func(status string, err error) {
			if err != nil {
				c.logger.Warn("fetch index status failed", zap.Error(err))
				return
			}
			c.mu.Lock()
			c.info = &IndexStatus{Status: status, BackendEndpoint: c.endpoint}
			c.mu.Unlock()
		},
	})
}
