package notification

import (
	"time"

	"nightbite-be/internal/auth"
)

type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Subscription is a browser push endpoint registered by a signed-in user.
type Subscription struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"userId"`
	Role      auth.Role `json:"role"`
	Endpoint  string    `json:"endpoint" validate:"required,url"`
	P256dh    string    `json:"p256dh" validate:"required"`
	Auth      string    `json:"auth" validate:"required"`
	CreatedAt time.Time `json:"createdAt"`
}

// Notification targets a single user, every user of a role, or everyone
// when both targets are empty.
type Notification struct {
	ID           string     `json:"id"`
	Title        string     `json:"title" validate:"required,max=120"`
	Body         string     `json:"body" validate:"required,max=500"`
	TargetRole   auth.Role  `json:"targetRole,omitempty"`
	TargetUserID *uint      `json:"targetUserId,omitempty"`
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty"`
	SentAt       *time.Time `json:"sentAt,omitempty"`
	Status       Status     `json:"status"`
	SuccessCount int        `json:"successCount"`
	FailureCount int        `json:"failureCount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Delivery is the message published for one subscription.
type Delivery struct {
	NotificationID string `json:"notificationId"`
	UserID         uint   `json:"userId"`
	Endpoint       string `json:"endpoint"`
	P256dh         string `json:"p256dh"`
	Auth           string `json:"auth"`
	Title          string `json:"title"`
	Body           string `json:"body"`
}

type Result struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Pruned  int `json:"pruned"`
}
