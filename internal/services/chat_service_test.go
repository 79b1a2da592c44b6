package services

import (
	"context"
	"testing"

	"github.com/tradebridge/backend/internal/apperr"
	"github.com/tradebridge/backend/internal/models"
)

func TestPostMessageOrderingAndChatBump(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	contents := []string{"hello", "are the coils ready?", "yes, shipping friday"}
	var last *models.ChatMessage
	for i, c := range contents {
		sender := alice
		if i%2 == 1 {
			sender = bob
		}
		msg, err := env.chats.PostMessage(ctx, chatID, sender, PostMessageInput{Content: c})
		if err != nil {
			t.Fatalf("post %q: %v", c, err)
		}
		last = msg
	}

	msgs, err := env.chats.ListMessages(ctx, chatID, alice, 0, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(contents))
	}
	for i, m := range msgs {
		if m.Content != contents[i] {
			t.Fatalf("message %d = %q, want %q", i, m.Content, contents[i])
		}
	}

	// The chat's updated_at mirrors the latest message exactly.
	chat, err := env.store.Chats().GetChat(ctx, chatID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if !chat.UpdatedAt.Equal(last.CreatedAt) {
		t.Fatalf("chat updated_at = %v, want %v", chat.UpdatedAt, last.CreatedAt)
	}
}

func TestListMessagesPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	var ids []models.ChatMessage
	for i := 0; i < 5; i++ {
		msg, err := env.chats.PostMessage(ctx, chatID, alice, PostMessageInput{Content: "m"})
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		ids = append(ids, *msg)
	}

	page, err := env.chats.ListMessages(ctx, chatID, bob, 2, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d messages, want 2", len(page))
	}
	// Limit keeps the newest messages, still ascending.
	if page[0].ID != ids[3].ID || page[1].ID != ids[4].ID {
		t.Fatal("limit did not keep the newest messages")
	}

	// before excludes the reference message and everything after it.
	older, err := env.chats.ListMessages(ctx, chatID, bob, 0, &ids[2].ID)
	if err != nil {
		t.Fatalf("list before: %v", err)
	}
	for _, m := range older {
		if !m.CreatedAt.Before(ids[2].CreatedAt) {
			t.Fatalf("message %s not older than the cursor", m.ID)
		}
	}
}

func TestPostMessageAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	mallory := env.newUser(t, "mallory@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	_, err := env.chats.PostMessage(ctx, chatID, mallory, PostMessageInput{Content: "hi"})
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-participant post: got %v, want FORBIDDEN", err)
	}

	_, err = env.chats.ListMessages(ctx, chatID, mallory, 0, nil)
	if !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-participant list: got %v, want FORBIDDEN", err)
	}

	_, err = env.chats.PostMessage(ctx, chatID, alice, PostMessageInput{Content: "  "})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("blank content: got %v, want VALIDATION_ERROR", err)
	}
}

func TestEditMessageAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	msg, err := env.chats.PostMessage(ctx, chatID, alice, PostMessageInput{Content: "typo"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, err := env.chats.EditMessage(ctx, msg.ID, bob, "hijacked"); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-author edit: got %v, want FORBIDDEN", err)
	}

	edited, err := env.chats.EditMessage(ctx, msg.ID, alice, "fixed")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Content != "fixed" || !edited.IsEdited {
		t.Fatalf("edit not applied: %+v", edited)
	}
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	msg, err := env.chats.PostMessage(ctx, chatID, alice, PostMessageInput{Content: "read me"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if err := env.chats.MarkRead(ctx, chatID, bob, msg.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	p, err := env.store.Chats().GetParticipant(ctx, chatID, bob)
	if err != nil {
		t.Fatalf("get participant: %v", err)
	}
	if p.LastReadMessageID == nil || *p.LastReadMessageID != msg.ID {
		t.Fatal("last read message not recorded")
	}

	// A message from another chat cannot be used as the cursor.
	otherChat := env.newTradeChat(t, alice, bob)
	other, err := env.chats.PostMessage(ctx, otherChat, alice, PostMessageInput{Content: "elsewhere"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if err := env.chats.MarkRead(ctx, chatID, bob, other.ID); !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("cross-chat mark read: got %v, want VALIDATION_ERROR", err)
	}
}

// The participant list maps one row per user; duplicates would trip the
// unique constraint mid-transaction on postgres, so they are rejected up front
// on every backend.
func TestCreateChatDuplicateParticipants(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")

	_, err := env.chats.CreateChat(ctx, alice, CreateChatInput{
		Name: "dup",
		Type: models.ChatTypeGroup,
		Participants: []ParticipantInput{
			{UserID: bob, Role: models.RoleMember},
			{UserID: bob, Role: models.RoleExporter},
		},
	})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("duplicate participant: got %v, want VALIDATION_ERROR", err)
	}

	// The creator listed twice is the same defect.
	_, err = env.chats.CreateChat(ctx, alice, CreateChatInput{
		Name: "dup creator",
		Type: models.ChatTypeGroup,
		Participants: []ParticipantInput{
			{UserID: alice, Role: models.RoleImporter},
			{UserID: alice, Role: models.RoleAdmin},
		},
	})
	if !apperr.Is(err, apperr.CodeValidation) {
		t.Fatalf("duplicate creator: got %v, want VALIDATION_ERROR", err)
	}
}

func TestAddParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.newUser(t, "alice@example.com")
	bob := env.newUser(t, "bob@example.com")
	carol := env.newUser(t, "carol@example.com")
	chatID := env.newTradeChat(t, alice, bob)

	// bob is an exporter, not an admin or the creator.
	if _, err := env.chats.AddParticipant(ctx, chatID, bob, carol, models.RoleMember); !apperr.Is(err, apperr.CodeForbidden) {
		t.Fatalf("non-admin add: got %v, want FORBIDDEN", err)
	}

	// alice created the chat.
	if _, err := env.chats.AddParticipant(ctx, chatID, alice, carol, models.RoleMember); err != nil {
		t.Fatalf("creator add: %v", err)
	}
	if _, err := env.chats.AddParticipant(ctx, chatID, alice, carol, models.RoleMember); !apperr.Is(err, apperr.CodeConflict) {
		t.Fatalf("duplicate add: got %v, want CONFLICT", err)
	}
}
