package message

// Role identifies which side of an anonymous thread wrote a chat line.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAnonymous Role = "anonymous"
)

// ChatMessage is one line in the reply thread attached to a Message.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Message is an anonymous note addressed to a username.
// RecipientID is always stored lowercase.
type Message struct {
	ID          string        `json:"id"`
	RecipientID string        `json:"recipientId"`
	Content     string        `json:"content"`
	Timestamp   int64         `json:"timestamp"`
	Read        bool          `json:"read"`
	Replies     []ChatMessage `json:"replies"`
}

// Clone returns a copy whose reply slice does not alias the receiver's.
func (m Message) Clone() Message {
	out := m
	out.Replies = append([]ChatMessage(nil), m.Replies...)
	if out.Replies == nil {
		out.Replies = []ChatMessage{}
	}
	return out
}
