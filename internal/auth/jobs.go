// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Userhub Contributors

package auth

import (
	"context"
	"time"
)

// Background job kinds dispatched through the NotificationQueue.
const (
	KindSendEmail       = "send_email"
	KindUpdateLastVisit = "update_last_visit"
)

// NotificationQueue is the fire-and-forget channel to the background
// worker. Delivery is at-least-once, may be delayed or dropped, and is
// never awaited by the request path.
type NotificationQueue interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

// EmailMessage is the transactional mail envelope handed to the worker.
type EmailMessage struct {
	To        string            `json:"to"`
	Subject   string            `json:"subject"`
	MergeVars map[string]string `json:"merge_vars"`
}

// EmailJob asks the worker to render the named template and send it.
type EmailJob struct {
	Template string       `json:"template"`
	Message  EmailMessage `json:"message"`
}

// LastVisitJob records when a principal was last seen.
type LastVisitJob struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}

// NewRecoveryEmailJob composes the password-recovery notification for a
// user and their freshly issued reset code.
func NewRecoveryEmailJob(user *User, code string) EmailJob {
	return EmailJob{
		Template: "Password Recovery",
		Message: EmailMessage{
			To:      user.Email,
			Subject: "Userhub Password Recovery Verification Code",
			MergeVars: map[string]string{
				"FNAME":            user.Profile.FirstName,
				"FR_RECOVERY_CODE": code,
			},
		},
	}
}
