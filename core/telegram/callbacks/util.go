package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Data without the leading form feed is treated the same way.
func ParseCallbackData(data string) (unique, payload string) {
	raw := strings.TrimPrefix(data, "\f")
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the unique key and payload of a callback. Telebot fills
// cb.Unique only for handlers bound to a specific button, so generic
// OnCallback handlers fall back to parsing cb.Data.
func Parse(cb *tele.Callback) (unique, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseCallbackData(cb.Data)
}

// Raw rebuilds the wire form of the callback data: "\f<unique>|<payload>",
// or "\f<unique>" when the payload is empty.
func Raw(cb *tele.Callback) string {
	unique, payload := Parse(cb)
	switch {
	case unique == "":
		return ""
	case payload == "":
		return "\f" + unique
	}
	return "\f" + unique + "|" + payload
}
