package events

import "context"

// Channels
const (
	ChannelEscrow  = "events:escrow"
	ChannelDispute = "events:dispute"
	ChannelChat    = "events:chat"
)

// Event types
const (
	EventEscrowStatusChanged  = "escrow_status_changed"
	EventDisputeStatusChanged = "dispute_status_changed"
	EventChatMessagePosted    = "chat_message_posted"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Event)) error
}
