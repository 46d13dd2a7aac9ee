// Package share formats the invite link and the per-platform share actions.
package share

import (
	"net/url"
	"strings"

	"github.com/zhouzirui/vibecheck/backend/internal/navigation"
)

const (
	Title = "VibeCheck"
	Text  = "Send me anonymous secrets! 🤫✨"
)

// Platform names accepted by Build.
const (
	Native    = "native"
	Instagram = "instagram"
	WhatsApp  = "whatsapp"
	Twitter   = "twitter"
	Copy      = "copy"
)

// Kind tells the client how to carry out a share.
type Kind string

const (
	KindNativeSheet Kind = "native"
	KindClipboard   Kind = "clipboard"
	KindOpenURL     Kind = "open_url"
)

// Action is what the client should do to share the link.
type Action struct {
	Platform string `json:"platform"`
	Kind     Kind   `json:"kind"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url"`
	// Target is the intent URL to open for KindOpenURL.
	Target string `json:"target,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// URL returns base#/u/username. base is origin plus path; any fragment on it
// is dropped.
func URL(base, username string) string {
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	if username == "" {
		username = "unknown"
	}
	return base + navigation.SenderFragment(username)
}

// Build returns the share action for platform. Unknown platforms copy the
// link.
func Build(platform, base, username string) Action {
	link := URL(base, username)
	switch platform {
	case Native:
		return Action{Platform: Native, Kind: KindNativeSheet, Title: Title, Text: Text, URL: link}
	case Instagram:
		return Action{
			Platform: Instagram,
			Kind:     KindClipboard,
			URL:      link,
			Notice:   "Link copied! Paste it in your Instagram Story Link Sticker. 📸",
		}
	case WhatsApp:
		return Action{
			Platform: WhatsApp,
			Kind:     KindOpenURL,
			URL:      link,
			Target:   "https://wa.me/?text=" + url.QueryEscape(Text+" "+link),
		}
	case Twitter:
		return Action{
			Platform: Twitter,
			Kind:     KindOpenURL,
			URL:      link,
			Target:   "https://twitter.com/intent/tweet?text=" + url.QueryEscape(Text) + "&url=" + url.QueryEscape(link),
		}
	default:
		return Action{Platform: Copy, Kind: KindClipboard, URL: link, Notice: "Copied link! 🔗"}
	}
}
