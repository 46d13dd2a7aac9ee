package device

import (
	"github.com/zhouzirui/vibecheck/backend/internal/model/message"
	"github.com/zhouzirui/vibecheck/backend/internal/model/user"
	"github.com/zhouzirui/vibecheck/backend/internal/navigation"
	"github.com/zhouzirui/vibecheck/backend/internal/service/ai"
	"github.com/zhouzirui/vibecheck/backend/internal/service/projection"
	"github.com/zhouzirui/vibecheck/backend/internal/share"
)

// DetailTab selects the pane shown for the active message.
type DetailTab string

const (
	TabAnalysis DetailTab = "ANALYSIS"
	TabChat     DetailTab = "CHAT"
)

// State is everything a client needs to render one device's screen.
// Visible and HasUnread are derived from Inbox and SearchQuery on every
// update.
type State struct {
	DeviceID  string            `json:"deviceId"`
	Screen    navigation.Screen `json:"screen"`
	Fragment  string            `json:"fragment"`
	User      *user.User        `json:"user"`
	Recipient string            `json:"recipient"`

	Inbox       []message.Message `json:"inbox"`
	Sent        []message.Message `json:"sent"`
	SearchQuery string            `json:"searchQuery"`
	Visible     []message.Message `json:"visible"`
	HasUnread   bool              `json:"hasUnread"`

	Active     *message.Message `json:"active"`
	DetailTab  DetailTab        `json:"detailTab"`
	LoadingAI  bool             `json:"loadingAi"`
	AIAnalysis *ai.Vibe         `json:"aiAnalysis"`
	AIReplies  []string         `json:"aiReplies"`

	ShareModal bool          `json:"shareModal"`
	LastShare  *share.Action `json:"lastShare,omitempty"`

	Draft     string `json:"draft"`
	ChatDraft string `json:"chatDraft"`
	Sending   bool   `json:"sending"`
	JustSent  bool   `json:"justSent"`
}

func (s *State) derive() {
	s.Visible = projection.Search(s.Inbox, s.SearchQuery)
	s.HasUnread = projection.HasUnread(s.Inbox)
}

// clone deep-copies s so snapshots never alias controller state.
func (s State) clone() State {
	out := s
	out.Inbox = cloneMessages(s.Inbox)
	out.Sent = cloneMessages(s.Sent)
	out.Visible = cloneMessages(s.Visible)
	out.AIReplies = append([]string(nil), s.AIReplies...)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Active != nil {
		m := s.Active.Clone()
		out.Active = &m
	}
	if s.AIAnalysis != nil {
		v := *s.AIAnalysis
		out.AIAnalysis = &v
	}
	if s.LastShare != nil {
		a := *s.LastShare
		out.LastShare = &a
	}
	return out
}

func cloneMessages(in []message.Message) []message.Message {
	out := make([]message.Message, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}
