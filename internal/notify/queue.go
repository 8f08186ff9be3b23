// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

// Package notify moves background jobs between the API and the worker
// over NATS. The API publishes fire-and-forget jobs; the worker
// subscribes and executes them.
package notify

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"
)

// subjectPrefix namespaces job subjects so one NATS cluster can carry
// several services.
const subjectPrefix = "userhub.jobs."

// subject returns the NATS subject for a job kind.
func subject(kind string) string {
	return subjectPrefix + kind
}

// publisher is the slice of *nats.Conn the queue uses.
type publisher interface {
	Publish(subj string, data []byte) error
}

// Queue implements auth.NotificationQueue by publishing jobs to NATS.
type Queue struct {
	conn publisher
}

// NewQueue creates a queue over an established NATS connection.
func NewQueue(conn publisher) *Queue {
	return &Queue{conn: conn}
}

// Enqueue publishes a job. The payload is JSON-encoded; the kind picks
// the subject, and therefore which worker handler runs.
func (q *Queue) Enqueue(ctx context.Context, kind string, payload any) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("JOB_ENQUEUE_FAILED").With("kind", kind).Wrap(err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return oops.Code("JOB_ENQUEUE_FAILED").
			With("operation", "marshal job payload").
			With("kind", kind).
			Wrap(err)
	}

	if err := q.conn.Publish(subject(kind), data); err != nil {
		return oops.Code("JOB_ENQUEUE_FAILED").
			With("operation", "publish job").
			With("kind", kind).
			Wrap(err)
	}
	return nil
}
