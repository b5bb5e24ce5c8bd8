package middleware

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the middleware touches.
type fakeContext struct {
	tele.Context
	update tele.Update
	sender *tele.User
	store  map[string]any
	sent   []any
}

func newFakeContext(userID int64, upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, sender: &tele.User{ID: userID}, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update   { return f.update }
func (f *fakeContext) Sender() *tele.User    { return f.sender }
func (f *fakeContext) Chat() *tele.Chat      { return &tele.Chat{ID: f.sender.ID, Type: tele.ChatPrivate} }
func (f *fakeContext) Text() string          { return "" }
func (f *fakeContext) Get(key string) any    { return f.store[key] }
func (f *fakeContext) Set(key string, v any) { f.store[key] = v }
func (f *fakeContext) Send(what any, _ ...any) error {
	f.sent = append(f.sent, what)
	return nil
}

func message() tele.Update { return tele.Update{ID: 1, Message: &tele.Message{Text: "hi"}} }

func TestAdminOnlyMiddleware(t *testing.T) {
	var called, rejected int
	h := AdminOnlyMiddleware(AdminOptions{
		AdminID:  42,
		OnReject: func(tele.Context) error { rejected++; return nil },
	})(func(tele.Context) error { called++; return nil })

	if err := h(newFakeContext(7, message())); err != nil {
		t.Fatal(err)
	}
	if err := h(newFakeContext(42, message())); err != nil {
		t.Fatal(err)
	}
	if called != 1 || rejected != 1 {
		t.Fatalf("called=%d rejected=%d", called, rejected)
	}

	noAdmin := AdminOptions{}
	if noAdmin.IsAdmin(newFakeContext(0, message())) {
		t.Fatal("zero admin id must not match anyone")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	var calls, limited int
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Hour,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	h := mw(func(tele.Context) error { calls++; return nil })

	for i := 0; i < 3; i++ {
		_ = h(newFakeContext(1, message()))
	}
	if calls != 1 || limited != 2 {
		t.Fatalf("messages: calls=%d limited=%d", calls, limited)
	}

	cb := tele.Update{ID: 2, Callback: &tele.Callback{Data: "\fview_cart"}}
	for i := 0; i < 3; i++ {
		_ = h(newFakeContext(1, cb))
	}
	if calls != 4 {
		t.Fatalf("excluded callbacks must pass, calls=%d", calls)
	}

	_ = h(newFakeContext(2, message()))
	if calls != 5 {
		t.Fatalf("other users are independent, calls=%d", calls)
	}
}

func TestMessageMetricsMiddleware(t *testing.T) {
	fc := newFakeContext(1, message())
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		if err := c.Send("one"); err != nil {
			return err
		}
		return c.Send("two", &tele.ReplyMarkup{})
	})
	if err := h(fc); err != nil {
		t.Fatal(err)
	}
	msgs, kb := GetCounters(fc)
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d %v", msgs, kb)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(newFakeContext(1, message()))
	var p ErrPanic
	if !errors.As(err, &p) || p.Value != "boom" {
		t.Fatalf("err = %v", err)
	}
}

func TestUpdateKind(t *testing.T) {
	if got := UpdateKind(message()); got != "message" {
		t.Fatalf("kind = %q", got)
	}
	if got := UpdateKind(tele.Update{Callback: &tele.Callback{}}); got != "callback" {
		t.Fatalf("kind = %q", got)
	}
	if got := UpdateKind(tele.Update{}); got != "other" {
		t.Fatalf("kind = %q", got)
	}
}
