package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \n\t", ""},
		{"short", "Hello", "Hello"},
		{"trimmed", "  Hello there  ", "Hello there"},
		{"exactly forty", strings.Repeat("a", 40), strings.Repeat("a", 40)},
		{"forty one", strings.Repeat("b", 41), strings.Repeat("b", 40) + "..."},
		{"multibyte", strings.Repeat("é", 45), strings.Repeat("é", 40) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.input))
		})
	}
}

func TestDeriveTitle_IdempotentOnShortStrings(t *testing.T) {
	for _, s := range []string{"a", "Plan a trip", strings.Repeat("x", 40)} {
		assert.Equal(t, s, DeriveTitle(s))
		assert.Equal(t, DeriveTitle(s), DeriveTitle(DeriveTitle(s)))
	}
}

func TestDeriveTitle_BoundedLength(t *testing.T) {
	for n := 41; n < 300; n += 37 {
		got := DeriveTitle(strings.Repeat("z", n))
		assert.LessOrEqual(t, len([]rune(got)), 43)
		assert.True(t, strings.HasSuffix(got, "..."))
	}
}

func TestGenerateID_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := GenerateID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestGenerateID_Format(t *testing.T) {
	id := GenerateID()
	prefix, suffix, ok := strings.Cut(id, "-")
	require.True(t, ok)
	assert.NotEmpty(t, prefix)
	assert.Len(t, suffix, 9)
}

func TestNewProjectID_DistinctSource(t *testing.T) {
	a, b := NewProjectID(), NewProjectID()
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}

func TestConversation_AppendMessageBumpsUpdatedAt(t *testing.T) {
	conv := NewConversation("t")
	conv.UpdatedAt = conv.CreatedAt
	created := conv.CreatedAt

	time.Sleep(2 * time.Millisecond)
	conv.AppendMessage(NewMessage(RoleUser, "hi", nil))

	require.Len(t, conv.Messages, 1)
	assert.True(t, conv.UpdatedAt.After(created))
	assert.False(t, conv.UpdatedAt.Before(conv.CreatedAt))
}

func TestConversation_TouchNeverPrecedesCreatedAt(t *testing.T) {
	conv := NewConversation("future")
	conv.CreatedAt = time.Now().Add(time.Hour)

	conv.Touch()

	assert.Equal(t, conv.CreatedAt, conv.UpdatedAt)
}

func TestConversation_CloneIsDeep(t *testing.T) {
	conv := NewConversation("t")
	conv.AppendMessage(NewMessage(RoleUser, "look", []Attachment{{Kind: AttachmentImage, URI: "file://a.png", Name: "a.png", Base64: "AAAA"}}))

	cp := conv.Clone()
	cp.Messages[0].Content = "changed"
	cp.Messages[0].Attachments[0].Name = "b.png"
	cp.Messages = append(cp.Messages, NewMessage(RoleAssistant, "x", nil))

	assert.Equal(t, "look", conv.Messages[0].Content)
	assert.Equal(t, "a.png", conv.Messages[0].Attachments[0].Name)
	assert.Len(t, conv.Messages, 1)
}

func TestConversation_Transcript(t *testing.T) {
	conv := NewConversation("t")
	conv.AppendMessage(NewMessage(RoleUser, "Hello", nil))
	conv.AppendMessage(NewMessage(RoleAssistant, "Hi!", nil))

	assert.Equal(t, "user: Hello\nassistant: Hi!\n", conv.Transcript())
}

func TestProject_Apply(t *testing.T) {
	p := NewProject("  Work ", ProjectAttrs{Color: "#E0D7FE", Icon: "briefcase-outline"})
	require.Equal(t, "Work", p.Name)

	name := "Side project"
	empty := ""
	p.Apply(ProjectUpdate{Name: &name, Color: &empty})

	assert.Equal(t, "Side project", p.Name)
	assert.Equal(t, "", p.Color)
	assert.Equal(t, "briefcase-outline", p.Icon)
}

func TestResolveProject(t *testing.T) {
	projects := []Project{{ID: "p1", Name: "One"}, {ID: "p2", Name: "Two"}}

	conv := Conversation{ID: "c", ProjectID: "p2"}
	got := ResolveProject(projects, conv)
	require.NotNil(t, got)
	assert.Equal(t, "Two", got.Name)

	conv.ProjectID = "deleted"
	assert.Nil(t, ResolveProject(projects, conv))

	conv.ProjectID = ""
	assert.Nil(t, ResolveProject(projects, conv))
}

func TestParseThinkingMode(t *testing.T) {
	m, err := ParseThinkingMode("thinking")
	require.NoError(t, err)
	assert.Equal(t, ModeThinking, m)

	m, err = ParseThinkingMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeInstant, m)

	_, err = ParseThinkingMode("turbo")
	assert.Error(t, err)
}

func TestAttachment_Transmittable(t *testing.T) {
	assert.True(t, Attachment{Kind: AttachmentImage, Base64: "AA=="}.Transmittable())
	assert.False(t, Attachment{Kind: AttachmentFile, URI: "file://doc.pdf"}.Transmittable())
}
