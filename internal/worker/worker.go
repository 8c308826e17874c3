// Package worker serves alignment jobs from a message queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/forPelevin/subalign/internal/domain/align"
	"github.com/forPelevin/subalign/internal/faults"
	"github.com/forPelevin/subalign/internal/ports"
	"github.com/forPelevin/subalign/internal/types"
)

// AlignJob is one request on the command queue. Sentences are split from
// Text (or from the words themselves) when absent.
type AlignJob struct {
	ID        string            `json:"id"`
	Words     []types.TimedWord `json:"words"`
	Text      string            `json:"text,omitempty"`
	Sentences []string          `json:"sentences,omitempty"`
	Mode      string            `json:"mode,omitempty"`
}

// AlignResult is published to the result queue for every job, failed or not.
type AlignResult struct {
	ID         string                   `json:"id"`
	Sentences  []types.SubtitleSentence `json:"sentences"`
	Dropped    []types.DroppedSentence  `json:"dropped"`
	Unconsumed int                      `json:"unconsumed_words"`
	Error      string                   `json:"error,omitempty"`
	ErrorKind  string                   `json:"error_kind,omitempty"`
}

type Aligner interface {
	AlignWords(ctx context.Context, words []types.TimedWord, candidates []string, text, mode string) (align.Result, error)
}

type Config struct {
	LockPath    string
	ResultQueue string
}

type Worker struct {
	cfg     Config
	source  ports.MessageSource
	pub     ports.MessagePublisher
	aligner Aligner
	logger  *slog.Logger
	lock    *flock.Flock
}

func New(cfg Config, source ports.MessageSource, pub ports.MessagePublisher, aligner Aligner, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		cfg:     cfg,
		source:  source,
		pub:     pub,
		aligner: aligner,
		logger:  logger,
		lock:    flock.New(cfg.LockPath),
	}
}

// Run holds the worker lock and processes deliveries until ctx ends or
// the source closes. Every delivery is acknowledged.
func (w *Worker) Run(ctx context.Context) error {
	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return faults.Precondition("worker", "another worker holds %s", w.cfg.LockPath)
	}
	defer func() {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release worker lock", "error", err)
		}
	}()

	msgs, err := w.source.Consume(ctx)
	if err != nil {
		return err
	}
	w.logger.Info("worker started", "lock", w.cfg.LockPath, "result_queue", w.cfg.ResultQueue)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Info("delivery channel closed")
				return nil
			}
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg ports.Message) {
	res := w.Handle(ctx, msg.Body)
	body, err := json.Marshal(res)
	if err == nil {
		err = w.pub.Publish(ctx, w.cfg.ResultQueue, body)
	}
	if err != nil {
		w.logger.Error("publish result failed", "job", res.ID, "error", err)
	}
	if err := msg.Ack(); err != nil {
		w.logger.Warn("ack failed", "job", res.ID, "error", err)
	}
}

// Handle decodes and runs one job. Failures are reported in the result.
func (w *Worker) Handle(ctx context.Context, body []byte) AlignResult {
	var job AlignJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Warn("malformed job", "bytes", len(body), "error", err)
		return failed(uuid.NewString(), faults.Wrap(faults.ErrPrecondition, "decode job", "", err))
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	logger := w.logger.With("job", job.ID)
	logger.Info("job received", "words", len(job.Words), "sentences", len(job.Sentences))

	r, err := w.aligner.AlignWords(ctx, job.Words, job.Sentences, job.Text, job.Mode)
	if err != nil {
		logger.Warn("job failed", "kind", faults.Kind(err), "error", err)
		return failed(job.ID, err)
	}
	logger.Info("job aligned", "aligned", len(r.Sentences), "dropped", len(r.Dropped), "unconsumed_words", r.Unconsumed)
	return AlignResult{
		ID:         job.ID,
		Sentences:  r.Sentences,
		Dropped:    nonNil(r.Dropped),
		Unconsumed: r.Unconsumed,
	}
}

func failed(id string, err error) AlignResult {
	return AlignResult{
		ID:        id,
		Sentences: []types.SubtitleSentence{},
		Dropped:   []types.DroppedSentence{},
		Error:     err.Error(),
		ErrorKind: faults.Kind(err),
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
