package helpers

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// FirstName returns the sender's first name, falling back to the username
// and then to "there".
func FirstName(c tele.Context) string {
	u := c.Sender()
	if u == nil {
		return "there"
	}
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	if name := strings.TrimSpace(u.Username); name != "" {
		return name
	}
	return "there"
}
