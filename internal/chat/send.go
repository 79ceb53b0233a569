package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/models"
)

// AttachmentPlaceholder is stored as the user message content when a message
// carries attachments but no text.
const AttachmentPlaceholder = "Sent an attachment"

const errorReplyFormat = "**Error**\n\nCould not reach the reasoning service.\n\nDetails: %s"

// SendOptions carries the per-send choices next to the message text.
type SendOptions struct {
	Attachments []models.Attachment
	WebSearch   bool
	Mode        models.ThinkingMode
}

// ErrorReply renders a failed query as the assistant message shown in place
// of a reply.
func ErrorReply(detail string) string {
	return fmt.Sprintf(errorReplyFormat, detail)
}

// SendMessage appends a user message to the current conversation (starting a
// new one when nothing is selected), queries the remote service and appends
// the reply or an error message. The user message is visible to readers
// before the query starts. It returns a copy of the conversation as it stood
// once the reply was appended, and the raw query result.
func (s *Store) SendMessage(ctx context.Context, text string, opts SendOptions) (models.Conversation, llm.Result, error) {
	if strings.TrimSpace(text) == "" && len(opts.Attachments) == 0 {
		return models.Conversation{}, llm.Result{}, ErrEmptyMessage
	}

	content := strings.TrimSpace(text)
	if content == "" {
		content = AttachmentPlaceholder
	}
	mode := opts.Mode
	if mode == "" {
		mode = s.defaultMode
	}

	s.mu.Lock()
	if s.state == StateSending {
		s.mu.Unlock()
		return models.Conversation{}, llm.Result{}, ErrSendInFlight
	}

	var conv models.Conversation
	if i := s.indexOfConversation(s.currentID); i >= 0 {
		conv = s.conversations[i].Clone()
	} else {
		conv = models.NewConversation(models.DeriveTitle(content))
	}
	conv.AppendMessage(models.NewMessage(models.RoleUser, content, opts.Attachments))
	s.upsertLocked(conv)
	s.setCurrentLocked(conv.ID)
	s.state = StateSending
	s.markDirty(pending{conversations: true})
	s.mu.Unlock()
	s.notify(StateSending)

	s.logger.Debug("Sending message",
		zap.String("conversationID", conv.ID),
		zap.String("mode", string(mode)),
		zap.Int("attachments", len(opts.Attachments)),
		zap.Bool("webSearch", opts.WebSearch))

	res := s.querier.Query(ctx, llm.Request{
		Prompt:      text,
		AuthToken:   s.authToken,
		Mode:        mode,
		Attachments: opts.Attachments,
		WebSearch:   opts.WebSearch,
	})

	reply := res.Response
	final := StateSucceeded
	if !res.Success {
		reply = ErrorReply(res.Error)
		final = StateFailed
		s.logger.Warn("Query failed",
			zap.String("conversationID", conv.ID),
			zap.String("error", res.Error),
			zap.Duration("duration", res.Duration))
	} else {
		s.logger.Info("Query succeeded",
			zap.String("conversationID", conv.ID),
			zap.Duration("duration", res.Duration))
	}
	assistant := models.NewMessage(models.RoleAssistant, reply, nil)

	s.mu.Lock()
	if i := s.indexOfConversation(conv.ID); i >= 0 {
		// Renames and moves made while the query ran are kept.
		s.conversations[i].AppendMessage(assistant)
		conv = s.conversations[i].Clone()
		s.markDirty(pending{conversations: true})
	} else {
		conv.AppendMessage(assistant)
		s.logger.Info("Conversation deleted while sending, discarding reply", zap.String("conversationID", conv.ID))
	}
	// Succeeded and Failed are only reported to listeners; the guard sees Idle.
	s.state = StateIdle
	s.mu.Unlock()
	s.notify(final)
	s.notify(StateIdle)

	return conv, res, nil
}
