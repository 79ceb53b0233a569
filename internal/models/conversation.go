package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentFile  AttachmentKind = "file"
)

// Attachment is a local reference to an image or file sent with a message.
// Base64 carries the payload and is only present when the content has been read.
type Attachment struct {
	Kind     AttachmentKind `json:"kind"`
	URI      string         `json:"uri"`
	Name     string         `json:"name"`
	Base64   string         `json:"base64,omitempty"`
	MimeType string         `json:"mimeType,omitempty"`
}

// Transmittable reports whether the attachment has a payload that can be sent upstream.
func (a Attachment) Transmittable() bool {
	return a.Base64 != ""
}

type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

func NewMessage(role Role, content string, attachments []Attachment) Message {
	return Message{
		ID:          GenerateID(),
		Role:        role,
		Content:     content,
		Attachments: cloneAttachments(attachments),
		Timestamp:   time.Now(),
	}
}

// Conversation is an append-only thread of messages. ProjectID is a soft
// reference: an id that no longer names a project reads as unassigned.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	ProjectID string    `json:"projectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewConversation(title string) Conversation {
	now := time.Now()
	return Conversation{
		ID:        GenerateID(),
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds msg to the end of the transcript and bumps UpdatedAt.
func (c *Conversation) AppendMessage(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.Touch()
}

// Touch bumps UpdatedAt to now, never earlier than CreatedAt.
func (c *Conversation) Touch() {
	now := time.Now()
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	c.UpdatedAt = now
}

// Clone returns a deep copy that shares no slices with c.
func (c Conversation) Clone() Conversation {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.Attachments = cloneAttachments(m.Attachments)
		out.Messages[i] = m
	}
	return out
}

// Transcript renders the messages as "role: content" lines.
func (c Conversation) Transcript() string {
	var b strings.Builder
	for _, m := range c.Messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}

func cloneAttachments(in []Attachment) []Attachment {
	if in == nil {
		return nil
	}
	out := make([]Attachment, len(in))
	copy(out, in)
	return out
}

func CloneConversations(in []Conversation) []Conversation {
	out := make([]Conversation, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
