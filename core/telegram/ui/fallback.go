// Package ui holds contracts between the runtime and a bot's presentation layer.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers updates that match no command or registered
// callback, typically stale buttons and free text.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
