package domain

import "time"

// Session is an admin-visible record of a user's login/activity window.
type Session struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
	IsActive   bool      `json:"isActive"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
}

// SessionActivity is one logged action within a session.
type SessionActivity struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}

// Activity actions written by the admin directory.
const (
	ActivitySessionTerminated = "session_terminated"
	ActivitySessionPaused     = "session_paused"
	ActivitySessionResumed    = "session_resumed"
)
