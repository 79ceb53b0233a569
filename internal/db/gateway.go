package db

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

const (
	ConversationsKey         = "conversations"
	ProjectsKey              = "projects"
	CurrentConversationIDKey = "current_conversation_id"
)

// Gateway persists the conversation collection, the project collection and
// the current conversation pointer. It never returns errors: failures are
// logged and reads fall back to empty values, so a broken disk can lose data
// but cannot break the chat flow.
type Gateway struct {
	kv     KV
	logger *zap.Logger
}

func NewGateway(kv KV, logger *zap.Logger) *Gateway {
	return &Gateway{kv: kv, logger: logger}
}

func (g *Gateway) SaveConversations(ctx context.Context, conversations []models.Conversation) {
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	g.saveJSON(ctx, ConversationsKey, conversations)
}

func (g *Gateway) LoadConversations(ctx context.Context) []models.Conversation {
	var conversations []models.Conversation
	if !g.loadJSON(ctx, ConversationsKey, &conversations) || conversations == nil {
		return []models.Conversation{}
	}
	for i := range conversations {
		if conversations[i].Messages == nil {
			conversations[i].Messages = []models.Message{}
		}
	}
	return conversations
}

func (g *Gateway) SaveProjects(ctx context.Context, projects []models.Project) {
	if projects == nil {
		projects = []models.Project{}
	}
	g.saveJSON(ctx, ProjectsKey, projects)
}

func (g *Gateway) LoadProjects(ctx context.Context) []models.Project {
	var projects []models.Project
	if !g.loadJSON(ctx, ProjectsKey, &projects) || projects == nil {
		return []models.Project{}
	}
	return projects
}

// SaveCurrentConversationID stores id, or removes the key when id is empty.
func (g *Gateway) SaveCurrentConversationID(ctx context.Context, id string) {
	var err error
	if id == "" {
		err = g.kv.Delete(ctx, CurrentConversationIDKey)
	} else {
		err = g.kv.Set(ctx, CurrentConversationIDKey, id)
	}
	if err != nil {
		g.logger.Error("Failed to save current conversation", zap.Error(err))
	}
}

func (g *Gateway) LoadCurrentConversationID(ctx context.Context) string {
	id, err := g.kv.Get(ctx, CurrentConversationIDKey)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			g.logger.Error("Failed to load current conversation", zap.Error(err))
		}
		return ""
	}
	return id
}

// ClearAll removes every key the gateway owns. It is safe to call repeatedly.
func (g *Gateway) ClearAll(ctx context.Context) {
	var err error
	for _, key := range []string{ConversationsKey, ProjectsKey, CurrentConversationIDKey} {
		err = multierr.Append(err, g.kv.Delete(ctx, key))
	}
	if err != nil {
		g.logger.Error("Failed to clear data", zap.Error(err))
	}
}

func (g *Gateway) saveJSON(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("Failed to encode record", zap.String("key", key), zap.Error(err))
		return
	}
	if err := g.kv.Set(ctx, key, string(data)); err != nil {
		g.logger.Error("Failed to save record", zap.String("key", key), zap.Error(err))
		return
	}
	g.logger.Debug("Saved record", zap.String("key", key), zap.Int("bytes", len(data)))
}

// loadJSON decodes the value under key into v and reports whether it did.
func (g *Gateway) loadJSON(ctx context.Context, key string, v any) bool {
	data, err := g.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		g.logger.Error("Failed to load record", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		g.logger.Error("Failed to decode record", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
