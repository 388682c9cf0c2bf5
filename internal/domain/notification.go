package domain

import "time"

// Channel is a notification delivery channel.
type Channel string

const (
	ChannelSystem   Channel = "system"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// Notification is the persisted record of a notification attempt.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	Data      map[string]any
	Channel   Channel
	Read      bool
	Sent      bool
	ReadAt    *time.Time
	SentAt    *time.Time
	CreatedAt time.Time
}

// PrimaryChannel picks the channel recorded on the notification row.
func PrimaryChannel(channels []Channel) Channel {
	has := func(c Channel) bool {
		for _, candidate := range channels {
			if candidate == c {
				return true
			}
		}
		return false
	}
	switch {
	case has(ChannelWhatsApp):
		return ChannelWhatsApp
	case has(ChannelEmail):
		return ChannelEmail
	}
	return ChannelSystem
}
