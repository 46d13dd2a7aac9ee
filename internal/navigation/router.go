// Package navigation maps URL fragments to application screens.
package navigation

import "strings"

// Screen is one of the top-level views.
type Screen string

const (
	Landing    Screen = "LANDING"
	Inbox      Screen = "INBOX"
	SenderView Screen = "SENDER_VIEW"
	// Settings is reserved; no fragment resolves to it.
	Settings Screen = "SETTINGS"
)

// Canonical fragments.
const (
	FragmentLanding = "#/"
	FragmentInbox   = "#/inbox"
	senderPrefix    = "/u/"
)

// Route is the outcome of resolving a fragment.
type Route struct {
	Screen    Screen `json:"screen"`
	Recipient string `json:"recipient,omitempty"`
	// Redirect is set when the fragment must be rewritten.
	Redirect string `json:"redirect,omitempty"`
}

// SenderFragment returns the fragment that opens username's sender view.
func SenderFragment(username string) string {
	return "#" + senderPrefix + username
}

// Resolve decides which screen a fragment shows. registered reports whether
// the device has a user; the inbox requires one.
func Resolve(fragment string, registered bool) Route {
	path := strings.TrimPrefix(strings.TrimSpace(fragment), "#")
	if path == "" {
		path = "/"
	}

	switch {
	case strings.HasPrefix(path, senderPrefix):
		return Route{Screen: SenderView, Recipient: strings.ToLower(strings.TrimPrefix(path, senderPrefix))}
	case strings.Contains(path, "/inbox"):
		if !registered {
			return Route{Screen: Landing, Redirect: FragmentLanding}
		}
		return Route{Screen: Inbox}
	default:
		return Route{Screen: Landing}
	}
}
