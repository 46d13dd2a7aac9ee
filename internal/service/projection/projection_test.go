package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
)

func sample() []message.Message {
	return []message.Message{
		{ID: "1", RecipientID: "alice", Content: "Hello there", Timestamp: 100},
		{ID: "2", RecipientID: "bob", Content: "hi bob", Timestamp: 300, Read: true},
		{ID: "3", RecipientID: "Alice", Content: "who are you", Timestamp: 200, Read: true},
		{ID: "4", RecipientID: "alice", Content: "HELLO again", Timestamp: 400},
	}
}

func ids(msgs []message.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestInboxMatchesCaseInsensitively(t *testing.T) {
	all := sample()
	assert.ElementsMatch(t, []string{"1", "3", "4"}, ids(Inbox(all, "ALICE")))

	reversed := []message.Message{all[3], all[2], all[1], all[0]}
	assert.ElementsMatch(t, []string{"1", "3", "4"}, ids(Inbox(reversed, "alice")))
	assert.Empty(t, Inbox(all, ""))
	assert.Empty(t, Inbox(all, "carol"))
}

func TestSentRequiresTrackerAndRecipient(t *testing.T) {
	all := sample()
	assert.Equal(t, []string{"1"}, ids(Sent(all, []string{"1", "2"}, "Alice")))
	assert.Equal(t, []string{"2"}, ids(Sent(all, []string{"1", "2"}, "bob")))
	assert.Empty(t, Sent(all, nil, "alice"))
	assert.Empty(t, Sent(all, []string{"1"}, ""))
}

func TestSentIsolatesDevices(t *testing.T) {
	all := sample()
	deviceA := []string{"1"}
	deviceB := []string{"4"}
	assert.Equal(t, []string{"1"}, ids(Sent(all, deviceA, "alice")))
	assert.Equal(t, []string{"4"}, ids(Sent(all, deviceB, "alice")))
}

func TestSearchFiltersAndSortsNewestFirst(t *testing.T) {
	inbox := Inbox(sample(), "alice")
	assert.Equal(t, []string{"4", "3", "1"}, ids(Search(inbox, "")))
	assert.Equal(t, []string{"4", "1"}, ids(Search(inbox, "hello")))
	assert.Empty(t, Search(inbox, "zzz"))
}

func TestSearchDoesNotMutateInput(t *testing.T) {
	inbox := Inbox(sample(), "alice")
	_ = Search(inbox, "")
	assert.Equal(t, []string{"1", "3", "4"}, ids(inbox))
}

func TestHasUnread(t *testing.T) {
	assert.True(t, HasUnread(sample()))
	assert.False(t, HasUnread([]message.Message{{ID: "x", Read: true}}))
	assert.False(t, HasUnread(nil))
}

func TestReplaceAndRemove(t *testing.T) {
	all := sample()
	updated := all[0]
	updated.Read = true
	replaced := Replace(all, updated)
	assert.True(t, replaced[0].Read)
	assert.False(t, all[0].Read)

	assert.Equal(t, []string{"1", "2", "4"}, ids(Remove(all, "3")))
	assert.Len(t, Remove(all, "missing"), 4)

	got, ok := Find(all, "2")
	assert.True(t, ok)
	assert.Equal(t, "hi bob", got.Content)
	_, ok = Find(all, "nope")
	assert.False(t, ok)
}
