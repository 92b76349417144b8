package models

import (
	"sort"
	"strings"
	"time"
)

const (
	ChatStatusOpen      = "open"
	ChatStatusCancelled = "cancelled"
)

// MessageType discriminates message variants. Plain text messages have an empty type.
type MessageType string

const (
	MessageTypeText          MessageType = ""
	MessageTypeRentRequest   MessageType = "rentRequest"
	MessageTypeRequestStatus MessageType = "requestStatus"
	MessageTypeAssessment    MessageType = "conditionalAssessment"
)

// Chat is a two-party conversation.
type Chat struct {
	ID              string    `json:"id" firestore:"-"`
	Participants    []string  `json:"participants" firestore:"participants"`
	ItemID          string    `json:"itemId,omitempty" firestore:"itemId,omitempty"`
	RentRequestID   string    `json:"rentRequestId,omitempty" firestore:"rentRequestId,omitempty"`
	LastMessage     string    `json:"lastMessage" firestore:"lastMessage"`
	LastMessageTime time.Time `json:"lastMessageTime" firestore:"lastMessageTime"`
	LastSender      string    `json:"lastSender" firestore:"lastSender"`
	UnreadCount     int       `json:"unreadCount" firestore:"unreadCount"`
	Status          string    `json:"status" firestore:"status"`
}

// HasParticipant reports whether uid is one of the chat's two parties.
func (c *Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// PairChatID is the stable chat ID for two users regardless of who wrote first.
func PairChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// RentRequestCard is the structured payload of a rentRequest message.
type RentRequestCard struct {
	RequestID  string            `json:"requestId" firestore:"requestId"`
	ItemID     string            `json:"itemId" firestore:"itemId"`
	ItemName   string            `json:"itemName" firestore:"itemName"`
	StartDate  time.Time         `json:"startDate" firestore:"startDate"`
	EndDate    time.Time         `json:"endDate" firestore:"endDate"`
	PickupTime string            `json:"pickupTime" firestore:"pickupTime"`
	TotalPrice float64           `json:"totalPrice" firestore:"totalPrice"`
	Status     RentRequestStatus `json:"status" firestore:"status"`
}

// Message is one entry of a chat's append-only log.
type Message struct {
	ID          string           `json:"id" firestore:"-"`
	SenderID    string           `json:"senderId" firestore:"senderId"`
	Text        string           `json:"text" firestore:"text"`
	Type        MessageType      `json:"type,omitempty" firestore:"type,omitempty"`
	RentRequest *RentRequestCard `json:"rentRequest,omitempty" firestore:"rentRequest,omitempty"`
	Assessment  *Assessment      `json:"assessment,omitempty" firestore:"assessment,omitempty"`
	Read        bool             `json:"read" firestore:"read"`
	ReadAt      *time.Time       `json:"readAt,omitempty" firestore:"readAt,omitempty"`
	CreatedAt   time.Time        `json:"createdAt" firestore:"createdAt,serverTimestamp"`

	// Guidance is computed per viewer and never stored.
	Guidance string `json:"guidance,omitempty" firestore:"-"`
}

// CardMessageID is the message ID used for a request's rentRequest card.
func CardMessageID(requestID string) string {
	return "request_" + requestID
}

// MessagePage is the read-path view of a chat.
type MessagePage struct {
	ChatID   string     `json:"chatId"`
	Messages []*Message `json:"messages"`
	Pinned   *Message   `json:"pinned,omitempty"`
}
