// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/observability"
	"github.com/userhub/userhub/pkg/errutil"
)

// jobTimeout bounds each job execution. Jobs are small single-row
// writes or one outbound mail call.
const jobTimeout = 30 * time.Second

// subscriber is the slice of *nats.Conn the worker uses.
type subscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Worker consumes background jobs. Subscriptions use a queue group so
// multiple worker processes share the load without duplicating work.
type Worker struct {
	conn      subscriber
	directory auth.UserDirectory
	mailer    Mailer
	metrics   *observability.Metrics
	logger    *slog.Logger

	subs []*nats.Subscription
}

// NewWorker creates a worker. metrics may be nil.
func NewWorker(conn subscriber, directory auth.UserDirectory, mailer Mailer, metrics *observability.Metrics, logger *slog.Logger) (*Worker, error) {
	if conn == nil {
		return nil, oops.Code("WORKER_CONFIG_INVALID").Errorf("nats connection is required")
	}
	if directory == nil {
		return nil, oops.Code("WORKER_CONFIG_INVALID").Errorf("user directory is required")
	}
	if mailer == nil {
		return nil, oops.Code("WORKER_CONFIG_INVALID").Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		conn:      conn,
		directory: directory,
		mailer:    mailer,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Start subscribes to all job subjects.
func (w *Worker) Start() error {
	handlers := map[string]nats.MsgHandler{
		auth.KindUpdateLastVisit: w.handleLastVisit,
		auth.KindSendEmail:       w.handleSendEmail,
	}
	for kind, handler := range handlers {
		sub, err := w.conn.QueueSubscribe(subject(kind), "userhub-workers", handler)
		if err != nil {
			w.stopSubs()
			return oops.Code("WORKER_SUBSCRIBE_FAILED").With("kind", kind).Wrap(err)
		}
		w.subs = append(w.subs, sub)
	}
	w.logger.Info("worker started", "subjects", len(w.subs))
	return nil
}

// Stop drains the subscriptions. In-flight handlers finish; no new
// messages are delivered afterwards.
func (w *Worker) Stop() {
	w.stopSubs()
	w.logger.Info("worker stopped")
}

func (w *Worker) stopSubs() {
	for _, sub := range w.subs {
		if sub == nil {
			continue
		}
		if err := sub.Drain(); err != nil {
			w.logger.Warn("failed to drain subscription", "error", err)
		}
	}
	w.subs = nil
}

// handleLastVisit applies a visit stamp. A stamp for a user deleted
// since the request is dropped silently.
func (w *Worker) handleLastVisit(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	var job auth.LastVisitJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.metrics.RecordJob(auth.KindUpdateLastVisit, "malformed")
		errutil.LogError(w.logger, "malformed last-visit job", err)
		return
	}
	id, err := ulid.Parse(job.UserID)
	if err != nil {
		w.metrics.RecordJob(auth.KindUpdateLastVisit, "malformed")
		errutil.LogError(w.logger, "malformed last-visit job", err)
		return
	}

	if err := w.directory.UpdateLastVisit(ctx, id, job.At); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			w.metrics.RecordJob(auth.KindUpdateLastVisit, "dropped")
			return
		}
		w.metrics.RecordJob(auth.KindUpdateLastVisit, "failure")
		errutil.LogError(w.logger, "failed to update last visit", err)
		return
	}
	w.metrics.RecordJob(auth.KindUpdateLastVisit, "success")
}

// handleSendEmail delivers one transactional mail.
func (w *Worker) handleSendEmail(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	var job auth.EmailJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.metrics.RecordJob(auth.KindSendEmail, "malformed")
		errutil.LogError(w.logger, "malformed email job", err)
		return
	}

	if err := w.mailer.Send(ctx, job); err != nil {
		w.metrics.RecordJob(auth.KindSendEmail, "failure")
		errutil.LogError(w.logger, "failed to send email", err)
		return
	}
	w.metrics.RecordJob(auth.KindSendEmail, "success")
}
