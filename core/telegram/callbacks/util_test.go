package callbacks

import (
	"testing"

	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		in, unique, payload string
	}{
		{"\fbrand|Toyota", "brand", "Toyota"},
		{"brand|Toyota", "brand", "Toyota"},
		{"\fmain", "main", ""},
		{"\fadd|Kia|Rio|part|Side mirror|0", "add", "Kia|Rio|part|Side mirror|0"},
		{"", "", ""},
	}
	for _, tc := range cases {
		u, p := ParseCallbackData(tc.in)
		if u != tc.unique || p != tc.payload {
			t.Fatalf("ParseCallbackData(%q) = (%q, %q), want (%q, %q)", tc.in, u, p, tc.unique, tc.payload)
		}
	}
}

func TestParsePrefersUnique(t *testing.T) {
	cb := &tele.Callback{Unique: "cart", Data: ""}
	if u, p := Parse(cb); u != "cart" || p != "" {
		t.Fatalf("Parse = (%q, %q)", u, p)
	}
	if u, p := Parse(nil); u != "" || p != "" {
		t.Fatalf("Parse(nil) = (%q, %q)", u, p)
	}
	if got := Raw(&tele.Callback{Data: "\fbrand|Kia"}); got != "\fbrand|Kia" {
		t.Fatalf("Raw = %q", got)
	}
	if got := Raw(&tele.Callback{Unique: "view_cart"}); got != "\fview_cart" {
		t.Fatalf("Raw without payload = %q", got)
	}
}
