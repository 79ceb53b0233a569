package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

const persistTimeout = 10 * time.Second

// pending records which parts of the state changed since the last write.
type pending struct {
	conversations bool
	projects      bool
	current       bool
}

func (p pending) any() bool {
	return p.conversations || p.projects || p.current
}

func (p pending) merge(o pending) pending {
	return pending{
		conversations: p.conversations || o.conversations,
		projects:      p.projects || o.projects,
		current:       p.current || o.current,
	}
}

// markDirty must be called with s.mu held. Bursts of changes collapse into a
// single write of the latest state.
func (s *Store) markDirty(p pending) {
	select {
	case <-s.done:
		s.logger.Warn("Store is closed, change will not be persisted",
			zap.Bool("conversations", p.conversations),
			zap.Bool("projects", p.projects),
			zap.Bool("current", p.current))
		return
	default:
	}
	s.pending = s.pending.merge(p)
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Store) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.signal:
			s.persist()
		case reply := <-s.flushReq:
			s.persist()
			close(reply)
		case <-s.done:
			s.persist()
			return
		}
	}
}

func (s *Store) persist() {
	s.mu.Lock()
	p := s.pending
	s.pending = pending{}
	if !p.any() {
		s.mu.Unlock()
		return
	}
	var (
		conversations []models.Conversation
		projects      []models.Project
	)
	if p.conversations {
		conversations = models.CloneConversations(s.conversations)
	}
	if p.projects {
		projects = models.CloneProjects(s.projects)
	}
	currentID := s.currentID
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if p.conversations {
		s.persister.SaveConversations(ctx, conversations)
	}
	if p.projects {
		s.persister.SaveProjects(ctx, projects)
	}
	if p.current {
		s.persister.SaveCurrentConversationID(ctx, currentID)
	}
}

// Flush blocks until every change made before the call has been handed to
// the persister.
func (s *Store) Flush(ctx context.Context) error {
	reply := make(chan struct{})
	select {
	case s.flushReq <- reply:
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes any outstanding changes and stops the persistence worker.
// It is safe to call more than once. The store stays readable and mutable
// afterwards, but later changes are only logged, never persisted.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
	return nil
}
