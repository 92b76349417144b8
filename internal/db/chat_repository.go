package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"rentshare-backend-go/internal/models"
)

// firestoreChatRepository implements ChatRepository using Firestore.
type firestoreChatRepository struct {
	client *firestore.Client
}

// NewFirestoreChatRepository creates a new instance of firestoreChatRepository.
func NewFirestoreChatRepository(client *firestore.Client) ChatRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ChatRepository.")
	}
	return &firestoreChatRepository{client: client}
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.client.Collection(chatCollection).Doc(chatID).Collection(messagesCollection)
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, chatID string) (*models.Chat, error) {
	docSnap, err := r.client.Collection(chatCollection).Doc(chatID).Get(ctx)
	if err != nil {
		return nil, wrapGetErr(err, "chat", chatID)
	}
	var chat models.Chat
	if err := docSnap.DataTo(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode chat '%s': %w", chatID, err)
	}
	chat.ID = docSnap.Ref.ID
	return &chat, nil
}

// ListByParticipant returns the user's conversations, most recently active first.
func (r *firestoreChatRepository) ListByParticipant(ctx context.Context, userID string, limit int) ([]*models.Chat, error) {
	iter := r.client.Collection(chatCollection).
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageTime", firestore.Desc).
		Limit(clampLimit(limit)).
		Documents(ctx)
	defer iter.Stop()

	chats := []*models.Chat{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate chats for user '%s': %w", userID, err)
		}
		var chat models.Chat
		if err := doc.DataTo(&chat); err != nil {
			log.Printf("Error decoding chat (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		chat.ID = doc.Ref.ID
		chats = append(chats, &chat)
	}
	return chats, nil
}

func (r *firestoreChatRepository) recentQuery(chatID string, limit int) firestore.Query {
	return r.messages(chatID).OrderBy("createdAt", firestore.Desc).Limit(limit)
}

func decodeMessages(docs []*firestore.DocumentSnapshot) []*models.Message {
	msgs := make([]*models.Message, 0, len(docs))
	for _, doc := range docs {
		var msg models.Message
		if err := doc.DataTo(&msg); err != nil {
			log.Printf("Error decoding message (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		msg.ID = doc.Ref.ID
		msgs = append(msgs, &msg)
	}
	return msgs
}

func (r *firestoreChatRepository) ListRecentMessages(ctx context.Context, chatID string, limit int) ([]*models.Message, error) {
	docs, err := r.recentQuery(chatID, limit).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for chat '%s': %w", chatID, err)
	}
	return decodeMessages(docs), nil
}

// WatchRecentMessages follows the newest window through a snapshot listener.
// The first call to fn carries the current state.
func (r *firestoreChatRepository) WatchRecentMessages(ctx context.Context, chatID string, limit int, fn func([]*models.Message) error) error {
	it := r.recentQuery(chatID, limit).Snapshots(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled || errors.Is(err, iterator.Done) {
				return nil
			}
			return fmt.Errorf("snapshot listener for chat '%s' failed: %w", chatID, err)
		}
		docs, err := snap.Documents.GetAll()
		if err != nil {
			return fmt.Errorf("failed to read snapshot for chat '%s': %w", chatID, err)
		}
		if err := fn(decodeMessages(docs)); err != nil {
			return err
		}
	}
}

// MarkRead sets read/readAt on unread messages from the other participant and resets
// the chat's unread counter, in one transaction.
func (r *firestoreChatRepository) MarkRead(ctx context.Context, chatID, readerID string) (int, error) {
	marked := 0
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		marked = 0
		docs, err := tx.Documents(r.messages(chatID).Where("read", "==", false)).GetAll()
		if err != nil {
			return err
		}
		for _, doc := range docs {
			sender, _ := doc.DataAt("senderId")
			if sender == readerID {
				continue
			}
			if err := tx.Update(doc.Ref, []firestore.Update{
				{Path: "read", Value: true},
				{Path: "readAt", Value: firestore.ServerTimestamp},
			}); err != nil {
				return err
			}
			marked++
		}
		return tx.Update(r.client.Collection(chatCollection).Doc(chatID), []firestore.Update{
			{Path: "unreadCount", Value: 0},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark chat '%s' read: %w", chatID, err)
	}
	return marked, nil
}
