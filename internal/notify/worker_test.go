// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/userhub/userhub/internal/auth"
	"github.com/userhub/userhub/internal/auth/mocks"
)

// fakeSubscriber records subscription requests.
type fakeSubscriber struct {
	subjects []string
	queues   []string
	err      error
}

func (s *fakeSubscriber) QueueSubscribe(subj, queue string, _ nats.MsgHandler) (*nats.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.subjects = append(s.subjects, subj)
	s.queues = append(s.queues, queue)
	return nil, nil
}

// fakeMailer records sent jobs.
type fakeMailer struct {
	jobs []auth.EmailJob
	err  error
}

func (m *fakeMailer) Send(_ context.Context, job auth.EmailJob) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func newTestWorker(t *testing.T) (*Worker, *mocks.MockUserDirectory, *fakeMailer) {
	t.Helper()
	directory := mocks.NewMockUserDirectory(t)
	mailer := &fakeMailer{}
	worker, err := NewWorker(&fakeSubscriber{}, directory, mailer, nil, nil)
	require.NoError(t, err)
	return worker, directory, mailer
}

func TestNewWorker_NilDependencies(t *testing.T) {
	directory := mocks.NewMockUserDirectory(t)
	mailer := &fakeMailer{}

	_, err := NewWorker(nil, directory, mailer, nil, nil)
	require.Error(t, err)

	_, err = NewWorker(&fakeSubscriber{}, nil, mailer, nil, nil)
	require.Error(t, err)

	_, err = NewWorker(&fakeSubscriber{}, directory, nil, nil, nil)
	require.Error(t, err)
}

func TestWorker_Start(t *testing.T) {
	t.Run("subscribes each job kind in a shared queue group", func(t *testing.T) {
		sub := &fakeSubscriber{}
		worker, err := NewWorker(sub, mocks.NewMockUserDirectory(t), &fakeMailer{}, nil, nil)
		require.NoError(t, err)

		require.NoError(t, worker.Start())
		assert.ElementsMatch(t, []string{
			"userhub.jobs.update_last_visit",
			"userhub.jobs.send_email",
		}, sub.subjects)
		for _, q := range sub.queues {
			assert.Equal(t, "userhub-workers", q)
		}
	})

	t.Run("subscription failure aborts startup", func(t *testing.T) {
		sub := &fakeSubscriber{err: errors.New("connection closed")}
		worker, err := NewWorker(sub, mocks.NewMockUserDirectory(t), &fakeMailer{}, nil, nil)
		require.NoError(t, err)

		require.Error(t, worker.Start())
	})
}

func TestWorker_HandleLastVisit(t *testing.T) {
	t.Run("applies the stamp", func(t *testing.T) {
		worker, directory, _ := newTestWorker(t)
		id := ulid.Make()
		at := time.Now().UTC().Truncate(time.Second)

		directory.On("UpdateLastVisit", mock.Anything, id, at).Return(nil)

		data, err := json.Marshal(auth.LastVisitJob{UserID: id.String(), At: at})
		require.NoError(t, err)
		worker.handleLastVisit(&nats.Msg{Data: data})
	})

	t.Run("malformed payload never reaches the directory", func(t *testing.T) {
		worker, directory, _ := newTestWorker(t)

		worker.handleLastVisit(&nats.Msg{Data: []byte(`{not json`)})
		worker.handleLastVisit(&nats.Msg{Data: []byte(`{"user_id":"not-a-ulid"}`)})

		directory.AssertNotCalled(t, "UpdateLastVisit", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("user deleted since the request is dropped", func(t *testing.T) {
		worker, directory, _ := newTestWorker(t)
		id := ulid.Make()

		directory.On("UpdateLastVisit", mock.Anything, id, mock.Anything).Return(auth.ErrNotFound)

		data, err := json.Marshal(auth.LastVisitJob{UserID: id.String(), At: time.Now().UTC()})
		require.NoError(t, err)
		worker.handleLastVisit(&nats.Msg{Data: data})
	})
}

func TestWorker_HandleSendEmail(t *testing.T) {
	t.Run("delivers through the mailer", func(t *testing.T) {
		worker, _, mailer := newTestWorker(t)

		job := auth.EmailJob{
			Template: "Password Recovery",
			Message: auth.EmailMessage{
				To:        "alice@example.com",
				Subject:   "Userhub Password Recovery Verification Code",
				MergeVars: map[string]string{"FR_RECOVERY_CODE": "ABCDEF"},
			},
		}
		data, err := json.Marshal(job)
		require.NoError(t, err)

		worker.handleSendEmail(&nats.Msg{Data: data})

		require.Len(t, mailer.jobs, 1)
		assert.Equal(t, job, mailer.jobs[0])
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		worker, _, mailer := newTestWorker(t)

		worker.handleSendEmail(&nats.Msg{Data: []byte(`{not json`)})

		assert.Empty(t, mailer.jobs)
	})
}
