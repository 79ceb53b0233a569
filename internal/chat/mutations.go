package chat

import (
	"strings"

	"go.uber.org/zap"

	"github.com/RichardoC/padchat/internal/models"
)

// StartNewChat clears the selection. The next send starts a new conversation.
func (s *Store) StartNewChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCurrentLocked("")
}

// SelectConversation makes id the current conversation. Unknown ids are ignored.
func (s *Store) SelectConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOfConversation(id) < 0 {
		return false
	}
	s.setCurrentLocked(id)
	return true
}

func (s *Store) RenameConversation(id, title string) bool {
	title = strings.TrimSpace(title)
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfConversation(id)
	if i < 0 || title == "" {
		return false
	}
	s.conversations[i].Title = title
	s.conversations[i].Touch()
	s.markDirty(pending{conversations: true})
	return true
}

// DeleteConversation removes id and clears the selection if it pointed there.
func (s *Store) DeleteConversation(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfConversation(id)
	if i < 0 {
		return false
	}
	s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
	if s.currentID == id {
		s.setCurrentLocked("")
	}
	s.markDirty(pending{conversations: true})
	s.logger.Info("Deleted conversation", zap.String("conversationID", id))
	return true
}

// AssignToProject sets the conversation's project. An empty projectID
// unassigns it. The project is not required to exist.
func (s *Store) AssignToProject(conversationID, projectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfConversation(conversationID)
	if i < 0 {
		return false
	}
	s.conversations[i].ProjectID = projectID
	s.conversations[i].Touch()
	s.markDirty(pending{conversations: true})
	return true
}

// MoveConversation is AssignToProject under the name the UI uses for dragging
// a conversation between project groups.
func (s *Store) MoveConversation(conversationID, projectID string) bool {
	return s.AssignToProject(conversationID, projectID)
}

// CreateProject appends a new project. Blank names are refused.
func (s *Store) CreateProject(name string, attrs models.ProjectAttrs) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, ErrEmptyName
	}
	p := models.NewProject(name, attrs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
	s.markDirty(pending{projects: true})
	s.logger.Info("Created project", zap.String("projectID", p.ID), zap.String("name", p.Name))
	return p, nil
}

func (s *Store) RenameProject(id, name string) bool {
	return s.UpdateProject(id, models.ProjectUpdate{Name: &name})
}

// UpdateProject applies the non-nil fields of update. A blank name leaves
// the existing name in place.
func (s *Store) UpdateProject(id string, update models.ProjectUpdate) bool {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
		if name == "" {
			update.Name = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfProject(id)
	if i < 0 {
		return false
	}
	s.projects[i].Apply(update)
	s.markDirty(pending{projects: true})
	return true
}

// DeleteProject removes the project and unassigns every conversation that
// referenced it.
func (s *Store) DeleteProject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOfProject(id)
	if i < 0 {
		return false
	}
	s.projects = append(s.projects[:i], s.projects[i+1:]...)

	unassigned := 0
	for j := range s.conversations {
		if s.conversations[j].ProjectID == id {
			s.conversations[j].ProjectID = ""
			unassigned++
		}
	}
	dirty := pending{projects: true}
	if unassigned > 0 {
		dirty.conversations = true
	}
	s.markDirty(dirty)
	s.logger.Info("Deleted project", zap.String("projectID", id), zap.Int("unassigned", unassigned))
	return true
}
