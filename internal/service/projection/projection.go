// Package projection derives the per-screen message views from the flat
// message collection. All functions are pure and return fresh slices.
package projection

import (
	"slices"
	"sort"
	"strings"

	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
)

// Inbox keeps the messages addressed to username.
func Inbox(all []message.Message, username string) []message.Message {
	out := make([]message.Message, 0)
	if username == "" {
		return out
	}
	for _, m := range all {
		if strings.EqualFold(m.RecipientID, username) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Sent keeps the messages this device authored for tag. Both conditions are
// needed: the collection mixes everyone's inbound and outbound mail.
func Sent(all []message.Message, sentIDs []string, tag string) []message.Message {
	out := make([]message.Message, 0)
	if tag == "" || len(sentIDs) == 0 {
		return out
	}
	for _, m := range all {
		if slices.Contains(sentIDs, m.ID) && strings.EqualFold(m.RecipientID, tag) {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Search filters by case-insensitive substring and orders newest first.
func Search(msgs []message.Message, query string) []message.Message {
	q := strings.ToLower(query)
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if strings.Contains(strings.ToLower(m.Content), q) {
			out = append(out, m.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

// HasUnread reports whether any message is still unread.
func HasUnread(msgs []message.Message) bool {
	for _, m := range msgs {
		if !m.Read {
			return true
		}
	}
	return false
}

// Find returns the message with id.
func Find(msgs []message.Message, id string) (message.Message, bool) {
	for _, m := range msgs {
		if m.ID == id {
			return m.Clone(), true
		}
	}
	return message.Message{}, false
}

// Replace swaps in updated wherever its id appears.
func Replace(msgs []message.Message, updated message.Message) []message.Message {
	out := make([]message.Message, len(msgs))
	for i, m := range msgs {
		if m.ID == updated.ID {
			out[i] = updated.Clone()
		} else {
			out[i] = m
		}
	}
	return out
}

// Remove drops id.
func Remove(msgs []message.Message, id string) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
