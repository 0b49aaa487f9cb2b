package service

import (
	"context"

	"github.com/appleater7/chatgpt-ui/internal/domain"
	"github.com/appleater7/chatgpt-ui/internal/policy"
	"github.com/appleater7/chatgpt-ui/internal/repository"
)

// authorize evaluates the admin policy. Evaluation errors deny.
func (s *Service) authorize(ctx context.Context, action, sessionID string, authenticated bool) bool {
	if s.policyEngine == nil {
		return authenticated
	}
	allowed, err := s.policyEngine.Allowed(ctx, policy.Input{
		Action:        action,
		SessionID:     sessionID,
		Authenticated: authenticated,
	})
	if err != nil {
		s.logger.Warn("policy evaluation failed", "action", action, "error", err)
		return false
	}
	return allowed
}

// directory returns the session store for authenticated reads, nil otherwise.
func (s *Service) directory(authenticated bool) repository.SessionStore {
	if !authenticated {
		return nil
	}
	return s.sessions
}

// ListSessions returns sessions, most recently active first. Anonymous
// callers and store failures get the sample dataset.
func (s *Service) ListSessions(ctx context.Context, authenticated bool) ([]domain.Session, error) {
	if !s.authorize(ctx, policy.ActionListSessions, "", authenticated) {
		return nil, newError(ErrorUnauthorized, "Unauthorized", nil)
	}
	if dir := s.directory(authenticated); dir != nil {
		sessions, err := dir.ListSessions(ctx)
		if err == nil {
			return sessions, nil
		}
		s.logger.Warn("list sessions failed, serving sample data", "error", err)
	}
	return repository.SampleSessions(), nil
}

func (s *Service) GetSession(ctx context.Context, sessionID string, authenticated bool) (*domain.Session, error) {
	if !s.authorize(ctx, policy.ActionGetSession, sessionID, authenticated) {
		return nil, newError(ErrorUnauthorized, "Unauthorized", nil)
	}
	if dir := s.directory(authenticated); dir != nil {
		session, err := dir.GetSession(ctx, sessionID)
		if err == nil {
			if session == nil {
				return nil, newError(ErrorNotFound, "Session not found", nil)
			}
			return session, nil
		}
		s.logger.Warn("get session failed, serving sample data", "session_id", sessionID, "error", err)
	}
	if session := repository.SampleSession(sessionID); session != nil {
		return session, nil
	}
	return nil, newError(ErrorNotFound, "Session not found", nil)
}

// GetSessionActivities returns the activity log of a session, oldest first.
func (s *Service) GetSessionActivities(ctx context.Context, sessionID string, authenticated bool) ([]domain.SessionActivity, error) {
	if !s.authorize(ctx, policy.ActionListActivities, sessionID, authenticated) {
		return nil, newError(ErrorUnauthorized, "Unauthorized", nil)
	}
	if dir := s.directory(authenticated); dir != nil {
		activities, err := dir.ListActivities(ctx, sessionID)
		if err == nil {
			return activities, nil
		}
		s.logger.Warn("list activities failed, serving sample data", "session_id", sessionID, "error", err)
	}
	return repository.SampleActivities(sessionID), nil
}

// TerminateSession deactivates a session. It returns false without touching
// anything when the caller is not authorized.
func (s *Service) TerminateSession(ctx context.Context, sessionID string, authenticated bool) bool {
	if !s.authorize(ctx, policy.ActionTerminateSession, sessionID, authenticated) {
		return false
	}
	return s.setActive(ctx, sessionID, false, domain.ActivitySessionTerminated, "Session terminated by administrator")
}

// SetSessionStatus pauses or resumes a session under the same authorization
// rule as TerminateSession.
func (s *Service) SetSessionStatus(ctx context.Context, sessionID string, active, authenticated bool) bool {
	if !s.authorize(ctx, policy.ActionSetSessionStatus, sessionID, authenticated) {
		return false
	}
	action, details := domain.ActivitySessionPaused, "Session paused by administrator"
	if active {
		action, details = domain.ActivitySessionResumed, "Session resumed by administrator"
	}
	return s.setActive(ctx, sessionID, active, action, details)
}

// setActive applies an authorized mutation. Sessions missing from the
// directory are accepted as no-ops.
func (s *Service) setActive(ctx context.Context, sessionID string, active bool, action, details string) bool {
	if s.sessions == nil {
		return true
	}
	found, err := s.sessions.SetActive(ctx, sessionID, active, action, details)
	if err != nil {
		s.logger.Warn("update session failed", "session_id", sessionID, "action", action, "error", err)
		return false
	}
	if !found {
		s.logger.Info("session not in directory, nothing to update", "session_id", sessionID, "action", action)
	}
	return true
}
