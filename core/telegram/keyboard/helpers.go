package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// Unique and Data end up on the wire as "\f<Unique>|<Data>".
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// MaxCallbackData is Telegram's limit for callback_data, in bytes.
const MaxCallbackData = 64

// CallbackData returns the callback_data sent for b, in the form telebot
// routes to handlers registered for "\f"+Unique.
func (b InlineBtn) CallbackData() string {
	switch {
	case b.Unique == "":
		return b.Data
	case b.Data == "":
		return "\f" + b.Unique
	}
	return "\f" + b.Unique + "|" + b.Data
}

// Inline converts b to a telebot inline button carrying CallbackData.
func (b InlineBtn) Inline() tele.InlineButton {
	return tele.InlineButton{Text: b.Text, Data: b.CallbackData()}
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// It returns nil when there are no buttons so messages go out without markup.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = btn.Inline()
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
