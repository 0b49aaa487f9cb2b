package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

func sampleTime(month time.Month, day, hour, minute int) time.Time {
	return time.Date(2025, month, day, hour, minute, 0, 0, time.UTC)
}

// SampleSessions returns the canned admin session dataset, most recently
// active first.
func SampleSessions() []domain.Session {
	sessions := []domain.Session{
		{
			ID: "sess_123456789", UserID: "user_001", Username: "john.doe",
			CreatedAt: sampleTime(time.May, 15, 14, 30), LastActive: sampleTime(time.May, 21, 9, 45),
			IsActive: true, IPAddress: "192.168.1.1",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/90.0.4430.212",
		},
		{
			ID: "sess_987654321", UserID: "user_002", Username: "jane.smith",
			CreatedAt: sampleTime(time.May, 14, 9, 15), LastActive: sampleTime(time.May, 20, 18, 22),
			IsActive: true, IPAddress: "192.168.1.2",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Safari/605.1.15",
		},
		{
			ID: "sess_456789123", UserID: "user_003", Username: "mike.jackson",
			CreatedAt: sampleTime(time.May, 10, 11, 45), LastActive: sampleTime(time.May, 10, 17, 30),
			IsActive: false, IPAddress: "192.168.1.3",
			UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) Mobile/15E148",
		},
		{
			ID: "sess_789123456", UserID: "user_004", Username: "sarah.connor",
			CreatedAt: sampleTime(time.May, 18, 8, 0), LastActive: sampleTime(time.May, 21, 7, 55),
			IsActive: true, IPAddress: "192.168.1.4",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Firefox/89.0",
		},
		{
			ID: "sess_321654987", UserID: "user_005", Username: "alex.morgan",
			CreatedAt: sampleTime(time.May, 12, 15, 20), LastActive: sampleTime(time.May, 15, 14, 10),
			IsActive: false, IPAddress: "192.168.1.5",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) Chrome/91.0.4472.77",
		},
		{
			ID: "sess_654987321", UserID: "user_006", Username: "bob.taylor",
			CreatedAt: sampleTime(time.May, 19, 10, 30), LastActive: sampleTime(time.May, 21, 8, 40),
			IsActive: true, IPAddress: "192.168.1.6",
			UserAgent: "Mozilla/5.0 (iPad; CPU OS 14_6 like Mac OS X) Mobile/15E148",
		},
		{
			ID: "sess_159753456", UserID: "user_007", Username: "emma.wilson",
			CreatedAt: sampleTime(time.May, 17, 13, 15), LastActive: sampleTime(time.May, 20, 16, 50),
			IsActive: true, IPAddress: "192.168.1.7",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Edge/91.0.864.48",
		},
	}
	sortSessions(sessions)
	return sessions
}

// SampleSession looks up id in the canned dataset.
func SampleSession(id string) *domain.Session {
	for _, s := range SampleSessions() {
		if s.ID == id {
			return &s
		}
	}
	return nil
}

// SampleActivities returns the canned activity log. Every session id gets
// the same seven entries.
func SampleActivities(sessionID string) []domain.SessionActivity {
	entries := []struct {
		action  string
		at      time.Time
		details string
	}{
		{"Login", sampleTime(time.May, 20, 9, 30), "IP: 192.168.1.2, Browser: Chrome"},
		{"Query sent", sampleTime(time.May, 20, 9, 45), "Explain quantum computing in simple terms"},
		{"New conversation", sampleTime(time.May, 20, 10, 15), "Conversation ID: conv_89723"},
		{"Query sent", sampleTime(time.May, 20, 11, 0), "How to optimize React performance?"},
		{"API key permission request", sampleTime(time.May, 20, 14, 20), "Requested access to the image generation API"},
		{"Session paused", sampleTime(time.May, 20, 16, 30), "Session paused by user"},
		{"Session resumed", sampleTime(time.May, 20, 18, 0), "Session resumed by user"},
	}
	out := make([]domain.SessionActivity, 0, len(entries))
	for i, e := range entries {
		out = append(out, domain.SessionActivity{
			ID:        int64(i + 1),
			SessionID: sessionID,
			Action:    e.action,
			Timestamp: e.at,
			Details:   e.details,
		})
	}
	return out
}

// SampleConversationTitle is the title of the seeded welcome conversation.
const SampleConversationTitle = "Sample conversation"

// SeedSampleConversation writes a short welcome conversation when the store
// holds no conversations. It reports whether anything was written.
func SeedSampleConversation(ctx context.Context, s Store) (bool, error) {
	existing, err := s.ListConversations(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	conv, err := s.CreateConversation(ctx, SampleConversationTitle)
	if err != nil {
		return false, err
	}
	turns := []domain.NewMessage{
		{Sender: domain.SenderAI, Content: "Hello! Welcome to ChatGPT."},
		{Sender: domain.SenderUser, Content: "Hi, I need some help."},
		{Sender: domain.SenderAI, Content: "Sure, what do you need help with? Tell me your question and I'll do my best to help."},
	}
	for _, turn := range turns {
		turn.ConversationID = conv.ID
		if _, err := s.CreateMessage(ctx, turn); err != nil {
			return false, fmt.Errorf("seed message: %w", err)
		}
	}
	return true, nil
}

// sortSessions orders most recently active first; ties by id.
func sortSessions(sessions []domain.Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.LastActive.Equal(b.LastActive) {
			return a.LastActive.After(b.LastActive)
		}
		return a.ID < b.ID
	})
}
