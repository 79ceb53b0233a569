// Package chat holds the in-memory conversation and project state, applies
// optimistic updates when a message is sent, reconciles them with the remote
// reply, and keeps the persistence layer in step.
package chat

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardoC/padchat/internal/llm"
	"github.com/RichardoC/padchat/internal/models"
)

// State is the phase of the current send.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

var (
	ErrEmptyMessage = errors.New("message has no text and no attachments")
	ErrSendInFlight = errors.New("a message is already being sent")
	ErrEmptyName    = errors.New("project name is empty")
	ErrClosed       = errors.New("store is closed")
)

// Persister is the durable side of the store. Implementations swallow their
// own errors; see db.Gateway.
type Persister interface {
	SaveConversations(ctx context.Context, conversations []models.Conversation)
	LoadConversations(ctx context.Context) []models.Conversation
	SaveProjects(ctx context.Context, projects []models.Project)
	LoadProjects(ctx context.Context) []models.Project
	SaveCurrentConversationID(ctx context.Context, id string)
	LoadCurrentConversationID(ctx context.Context) string
}

// Store owns the conversation collection, the project collection and the
// current selection. All methods are safe for concurrent use; the lock is
// never held across network or storage I/O.
type Store struct {
	mu            sync.Mutex
	conversations []models.Conversation
	projects      []models.Project
	currentID     string
	state         State
	pending       pending

	querier   llm.Querier
	persister Persister
	logger    *zap.Logger

	authToken        string
	defaultMode      models.ThinkingMode
	restoreSelection bool
	listeners        []func(State)

	signal    chan struct{}
	flushReq  chan chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithAuthToken sets the bearer token passed to the querier on every send.
func WithAuthToken(token string) Option {
	return func(s *Store) { s.authToken = token }
}

// WithDefaultMode sets the thinking mode used when a send does not name one.
func WithDefaultMode(mode models.ThinkingMode) Option {
	return func(s *Store) { s.defaultMode = mode }
}

// WithRestoreSelection makes Load reselect the last current conversation.
// By default every load starts with nothing selected.
func WithRestoreSelection(restore bool) Option {
	return func(s *Store) { s.restoreSelection = restore }
}

// WithStateListener registers fn to receive the state transitions of every
// send, in order, outside the store lock. Succeeded and Failed are reported
// after the store has already returned to Idle, so State may not match the
// value being delivered.
func WithStateListener(fn func(State)) Option {
	return func(s *Store) { s.listeners = append(s.listeners, fn) }
}

// New returns a store with empty state and starts its persistence worker.
// Call Load to restore persisted state and Close to stop the worker.
func New(querier llm.Querier, persister Persister, opts ...Option) *Store {
	s := &Store{
		conversations: []models.Conversation{},
		projects:      []models.Project{},
		state:         StateIdle,
		querier:       querier,
		persister:     persister,
		logger:        zap.NewNop(),
		authToken:     "demo",
		defaultMode:   models.ModeInstant,
		signal:        make(chan struct{}, 1),
		flushReq:      make(chan chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.run()
	return s
}

// Load replaces the in-memory state with what the persister holds. A stored
// current id is dropped, and the stored key removed, unless selection restore
// is enabled and the id names a loaded conversation.
func (s *Store) Load(ctx context.Context) error {
	var (
		conversations []models.Conversation
		projects      []models.Project
		currentID     string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		conversations = s.persister.LoadConversations(gctx)
		return nil
	})
	g.Go(func() error {
		projects = s.persister.LoadProjects(gctx)
		return nil
	})
	g.Go(func() error {
		currentID = s.persister.LoadCurrentConversationID(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = conversations
	s.projects = projects
	s.currentID = ""
	if currentID != "" {
		if s.restoreSelection && s.indexOfConversation(currentID) >= 0 {
			s.currentID = currentID
		} else {
			s.logger.Info("Clearing stored current conversation",
				zap.String("conversationID", currentID),
				zap.Bool("restoreSelection", s.restoreSelection))
			s.markDirty(pending{current: true})
		}
	}

	s.logger.Info("Loaded chat state",
		zap.Int("conversations", len(conversations)),
		zap.Int("projects", len(projects)),
		zap.String("currentID", s.currentID))
	return nil
}

// Snapshot is a deep copy of the store's state at one instant.
type Snapshot struct {
	Conversations []models.Conversation `json:"conversations"`
	Projects      []models.Project      `json:"projects"`
	Current       *models.Conversation  `json:"current"`
	State         State                 `json:"state"`
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Conversations: models.CloneConversations(s.conversations),
		Projects:      models.CloneProjects(s.projects),
		State:         s.state,
	}
	if i := s.indexOfConversation(s.currentID); i >= 0 {
		c := s.conversations[i].Clone()
		snap.Current = &c
	}
	return snap
}

func (s *Store) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneConversations(s.conversations)
}

func (s *Store) Projects() []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneProjects(s.projects)
}

// Current returns the selected conversation, if any.
func (s *Store) Current() (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOfConversation(s.currentID); i >= 0 {
		return s.conversations[i].Clone(), true
	}
	return models.Conversation{}, false
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConversationsInProject lists the conversations assigned to projectID in
// collection order. With an empty projectID it lists unassigned
// conversations, including those whose project no longer exists.
func (s *Store) ConversationsInProject(projectID string) []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Conversation{}
	for _, c := range s.conversations {
		p := models.ResolveProject(s.projects, c)
		switch {
		case projectID == "" && p == nil:
			out = append(out, c.Clone())
		case projectID != "" && p != nil && p.ID == projectID:
			out = append(out, c.Clone())
		}
	}
	return out
}

// upsertLocked replaces the conversation with the same id in place, or
// prepends it when it is new.
func (s *Store) upsertLocked(conv models.Conversation) {
	if i := s.indexOfConversation(conv.ID); i >= 0 {
		s.conversations[i] = conv
		return
	}
	s.conversations = append([]models.Conversation{conv}, s.conversations...)
}

func (s *Store) indexOfConversation(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) indexOfProject(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) setCurrentLocked(id string) {
	if s.currentID == id {
		return
	}
	s.currentID = id
	s.markDirty(pending{current: true})
}

func (s *Store) notify(st State) {
	for _, fn := range s.listeners {
		fn(st)
	}
}
