// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package notify

import (
	"context"
	"log/slog"

	"github.com/userhub/userhub/internal/auth"
)

// Mailer delivers transactional email jobs.
type Mailer interface {
	Send(ctx context.Context, job auth.EmailJob) error
}

// LogMailer writes mail to the log instead of a provider. Used in
// development and as the default until a delivery provider is
// configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send logs the message instead of delivering it. Merge variable values
// are withheld from the log line; they can carry recovery codes.
func (m *LogMailer) Send(_ context.Context, job auth.EmailJob) error {
	vars := make([]string, 0, len(job.Message.MergeVars))
	for k := range job.Message.MergeVars {
		vars = append(vars, k)
	}
	m.logger.Info("mail delivery skipped, no provider configured",
		"template", job.Template,
		"to", job.Message.To,
		"subject", job.Message.Subject,
		"merge_vars", vars,
	)
	return nil
}
