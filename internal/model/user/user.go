package user

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// User is the single account registered on a device.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9_]`)

// Slug normalizes a display name into a routable username.
func Slug(name string) string {
	return slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}

// AvatarURL derives a stable placeholder avatar from the username.
func AvatarURL(username string) string {
	return "https://picsum.photos/seed/" + username + "/200"
}

// New builds a user from free-form input. ok is false when nothing routable
// survives normalization.
func New(name string) (User, bool) {
	username := Slug(name)
	if username == "" {
		return User{}, false
	}
	return User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: strings.TrimSpace(name),
		Avatar:      AvatarURL(username),
	}, true
}
