package model

import "time"

// Inbound is one customer message received through the webhook.
type Inbound struct {
	ID        string
	From      string
	Timestamp time.Time
	Reply     Reply
}

// Reply is one of TextReply, ButtonReply or ListReply.
type Reply interface {
	isReply()
}

type TextReply struct {
	Body string
}

type ButtonReply struct {
	ID    string
	Title string
}

type ListReply struct {
	ID    string
	Title string
}

func (TextReply) isReply()   {}
func (ButtonReply) isReply() {}
func (ListReply) isReply()   {}

// StatusUpdate is a provider callback about a previously sent message.
type StatusUpdate struct {
	ChannelMessageID string
	Recipient        string
	Status           DeliveryStatus
	Timestamp        time.Time
}
