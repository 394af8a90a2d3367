package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/eventbot/internal/broadcast"
	"github.com/m3rciful/eventbot/internal/config"
	"github.com/m3rciful/eventbot/internal/content"
	"github.com/m3rciful/eventbot/internal/dialogue"
	"github.com/m3rciful/eventbot/internal/domain"
	"github.com/m3rciful/eventbot/internal/ledger"
	"github.com/m3rciful/eventbot/internal/participants"
	"github.com/m3rciful/eventbot/internal/storage/memory"
)

const moderatorID = 1

type sent struct {
	what interface{}
	opts []interface{}
}

type fakeContext struct {
	tele.Context
	user      *tele.User
	chat      *tele.Chat
	text      string
	args      []string
	msg       *tele.Message
	cb        *tele.Callback
	values    map[string]interface{}
	sent      []sent
	responses []*tele.CallbackResponse
}

func newContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		user:   &tele.User{ID: userID},
		chat:   &tele.Chat{ID: userID},
		text:   text,
		values: map[string]interface{}{},
	}
}

func (f *fakeContext) Sender() *tele.User         { return f.user }
func (f *fakeContext) Chat() *tele.Chat           { return f.chat }
func (f *fakeContext) Text() string               { return f.text }
func (f *fakeContext) Args() []string             { return f.args }
func (f *fakeContext) Message() *tele.Message     { return f.msg }
func (f *fakeContext) Callback() *tele.Callback   { return f.cb }
func (f *fakeContext) Update() tele.Update        { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) interface{} { return f.values[key] }
func (f *fakeContext) Set(key string, val interface{}) {
	f.values[key] = val
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, sent{what: what, opts: opts})
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func (f *fakeContext) texts() []string {
	var out []string
	for _, s := range f.sent {
		if text, ok := s.what.(string); ok {
			out = append(out, text)
		}
	}
	return out
}

func (f *fakeContext) markup(i int) *tele.ReplyMarkup {
	for _, o := range f.sent[i].opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			return v.ReplyMarkup
		}
	}
	return nil
}

type fixture struct {
	app     *App
	store   *memory.Store
	content *content.Content

	mu        sync.Mutex
	broadcast map[int64]string
}

func newFixture(t *testing.T, mode string) *fixture {
	t.Helper()
	c, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	store := memory.New()
	ctx := context.Background()
	if err := store.PutTours(ctx, []domain.Tour{
		{Name: "Museum", Description: "<b>Museum</b>", FreePlaces: 2},
		{Name: "City Walk", Description: "Walk", FreePlaces: 0},
	}); err != nil {
		t.Fatalf("PutTours: %v", err)
	}
	_ = store.PutNotifications(ctx, []domain.Notification{{Date: "2026-04-11", Hour: 9, Text: "Bus at 10"}})

	f := &fixture{store: store, content: c, broadcast: map[int64]string{}}
	send := func(_ context.Context, chatID int64, text string) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.broadcast[chatID] = text
		return nil
	}
	registry := participants.New(store)
	bc := broadcast.New(store, registry, send, nil)

	cfg := &config.Config{}
	cfg.Telegram.AdminID = moderatorID
	cfg.Event.Mode = mode
	cfg.Event.Timezone = "UTC"
	cfg.Event.QuestionsChatID = moderatorID

	machine := dialogue.New(dialogue.Options{
		Ledger:        ledger.New(store),
		Registry:      registry,
		Broadcaster:   bc,
		Texts:         c.Texts,
		QuestionsChat: moderatorID,
		Release:       mode == config.ModeRelease,
	})
	app, err := New(Options{
		Config:   cfg,
		Content:  c,
		Store:    store,
		Bookings: registry,
		Machine:  machine,
		Notifier: bc,
		Now:      func() time.Time { return time.Date(2026, 4, 11, 9, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.app = app
	return f
}

func buttonKeys(m *tele.ReplyMarkup) []string {
	var keys []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			keys = append(keys, b.Unique)
		}
	}
	return keys
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error for empty options")
	}
}

func TestMenuRowsHideToursAfterBooking(t *testing.T) {
	c, err := content.Default()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	full := menuRows(c, true)
	short := menuRows(c, false)
	if len(full) != len(short)+1 {
		t.Fatalf("rows: full=%d short=%d", len(full), len(short))
	}
	if len(full[1]) != 2 || full[1][0].Unique != cbTiming || full[1][1].Unique != cbTransfer || full[1][1].Data != "1" {
		t.Fatalf("first day row = %+v", full[1])
	}
	for _, row := range short {
		for _, b := range row {
			if b.Unique == cbTour {
				t.Fatal("tours button shown to a booked user")
			}
		}
	}
	pre := preReleaseRows(c)
	for _, row := range pre {
		if len(row) != 1 {
			t.Fatalf("pre-release row with %d buttons", len(row))
		}
		if row[0].Unique == cbTour {
			t.Fatal("tours button in pre-release menu")
		}
	}
	if last := pre[len(pre)-1][0]; last.Text != c.Buttons.QuestionPreRelease {
		t.Fatalf("pre-release question label = %q", last.Text)
	}
}

func TestStartRegistersUserAndShowsMenu(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	c := newContext(42, "/start")
	if err := f.app.onStart(c); err != nil {
		t.Fatalf("onStart: %v", err)
	}
	ids, _ := f.store.UserIDs(context.Background())
	if len(ids) != 1 || ids[0] != 42 {
		t.Fatalf("users = %v", ids)
	}
	if len(c.sent) != 1 || c.texts()[0] != f.content.Texts.MainMenu {
		t.Fatalf("sent = %+v", c.sent)
	}
	if !contains(buttonKeys(c.markup(0)), cbTour) {
		t.Fatal("tours button missing for a user without booking")
	}
}

func TestPreReleaseStartSendsInvitation(t *testing.T) {
	f := newFixture(t, config.ModePreRelease)
	c := newContext(42, "/start")
	if err := f.app.onStart(c); err != nil {
		t.Fatalf("onStart: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent %d messages", len(c.sent))
	}
	if _, ok := c.sent[0].what.(*tele.Video); !ok {
		t.Fatalf("pre-release start sent %T, want invitation video", c.sent[0].what)
	}
	if contains(buttonKeys(c.markup(0)), cbTour) {
		t.Fatal("tours button in pre-release menu")
	}
}

func TestTourBookingThroughHandlers(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	ctx := context.Background()
	fsm := conversation{app: f.app}

	c := newContext(7, "")
	if err := f.app.flow("tour", f.app.machine.StartTour)(c); err != nil {
		t.Fatalf("tour callback: %v", err)
	}
	if got := c.texts(); len(got) != 2 || got[1] != f.content.Texts.ChooseTour {
		t.Fatalf("tour start replies = %q", got)
	}
	if !fsm.InProgress(ctx, 7) {
		t.Fatal("dialogue not started")
	}

	for _, msg := range []string{"Museum", f.content.Texts.SignUp, "Ivan Petrov", "+7 900 000 00 01"} {
		if err := fsm.HandleInput(newContext(7, msg)); err != nil {
			t.Fatalf("HandleInput(%q): %v", msg, err)
		}
	}
	if fsm.InProgress(ctx, 7) {
		t.Fatal("dialogue still running after booking")
	}
	tour, booked, err := f.app.bookings.ActiveBooking(ctx, 7)
	if err != nil || !booked || tour != "Museum" {
		t.Fatalf("booking = %q %v %v", tour, booked, err)
	}

	menu := newContext(7, "/start")
	if err := f.app.onStart(menu); err != nil {
		t.Fatalf("onStart: %v", err)
	}
	if contains(buttonKeys(menu.markup(0)), cbTour) {
		t.Fatal("tours button shown after booking")
	}
}

func TestCancelEndsDialogue(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	if err := f.app.flow("residence", f.app.machine.StartResidence)(newContext(7, "")); err != nil {
		t.Fatalf("residence: %v", err)
	}
	c := newContext(7, "/cancel")
	if err := f.app.onCancel(c); err != nil {
		t.Fatalf("onCancel: %v", err)
	}
	if got := c.texts(); len(got) != 1 || got[0] != f.content.Texts.Cancel {
		t.Fatalf("cancel replies = %q", got)
	}
	if f.app.machine.InProgress(context.Background(), 7) {
		t.Fatal("dialogue survived /cancel")
	}
}

func TestSendSlot(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	cases := []struct {
		args  []string
		date  string
		hour  int
		valid bool
	}{
		{nil, "2026-04-11", 9, true},
		{[]string{"12.04"}, "2026-04-12", 9, true},
		{[]string{"2026-04-10", "18"}, "2026-04-10", 18, true},
		{[]string{"tomorrow"}, "", 0, false},
		{[]string{"12.04", "24"}, "", 0, false},
		{[]string{"12.04", "9", "x"}, "", 0, false},
	}
	for _, tc := range cases {
		date, hour, ok := f.app.sendSlot(tc.args)
		if ok != tc.valid || date != tc.date || hour != tc.hour {
			t.Fatalf("sendSlot(%v) = %q %d %v", tc.args, date, hour, ok)
		}
	}
}

func TestSendBroadcastsScheduledNotification(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	ctx := context.Background()
	for _, id := range []int64{10, 11} {
		_ = f.store.UpsertUser(ctx, id)
	}
	c := newContext(moderatorID, "/send")
	if err := f.app.onSend(c); err != nil {
		t.Fatalf("onSend: %v", err)
	}
	if len(f.broadcast) != 2 || f.broadcast[10] != "Bus at 10" {
		t.Fatalf("broadcast = %v", f.broadcast)
	}
	if got := c.texts(); len(got) != 1 || !strings.Contains(got[0], "2") {
		t.Fatalf("moderator summary = %q", got)
	}

	none := newContext(moderatorID, "/send 12.04 7")
	none.args = []string{"12.04", "7"}
	if err := f.app.onSend(none); err != nil {
		t.Fatalf("onSend: %v", err)
	}
	if got := none.texts(); len(got) != 1 || !strings.Contains(got[0], "2026-04-12 07") {
		t.Fatalf("no-notification reply = %q", got)
	}
}

func TestDownloadSendsCSV(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	err := f.app.bookings.(*participants.Registry).CommitBooking(context.Background(), domain.Participant{
		UserID: 5, Tour: "Museum", UserName: "Anna", UserPhone: "+79000000001",
	})
	if err != nil {
		t.Fatalf("CommitBooking: %v", err)
	}
	c := newContext(moderatorID, "/download")
	if err := f.app.onDownload(c); err != nil {
		t.Fatalf("onDownload: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("sent %d messages", len(c.sent))
	}
	doc, ok := c.sent[0].what.(*tele.Document)
	if !ok || doc.FileName != exportFileName || doc.Caption != f.content.Texts.ExportCaption {
		t.Fatalf("download sent %+v", c.sent[0].what)
	}
}

func commandRoute(t *testing.T, f *fixture, endpoint string) tele.HandlerFunc {
	t.Helper()
	opts, err := f.app.TelegramRunOptions()
	if err != nil {
		t.Fatalf("TelegramRunOptions: %v", err)
	}
	for _, r := range opts.Routes {
		if ep, ok := r.Endpoint.(string); ok && ep == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %s", endpoint)
	return nil
}

func TestModeratorCommandsIgnoreOtherUsers(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	_ = f.store.UpsertUser(context.Background(), 42)

	for _, cmd := range []string{"/download", "/send", "/notify"} {
		c := newContext(42, cmd)
		if err := commandRoute(t, f, cmd)(c); err != nil {
			t.Fatalf("%s: %v", cmd, err)
		}
		if len(c.sent) != 0 || len(c.responses) != 0 {
			t.Fatalf("%s answered a non-moderator: %+v", cmd, c.sent)
		}
	}
	if len(f.broadcast) != 0 {
		t.Fatalf("broadcast sent to %v", f.broadcast)
	}
	if f.app.machine.InProgress(context.Background(), 42) {
		t.Fatalf("notify flow started for a non-moderator")
	}

	c := newContext(moderatorID, "/send")
	if err := commandRoute(t, f, "/send")(c); err != nil {
		t.Fatalf("/send: %v", err)
	}
	if len(c.sent) == 0 || f.broadcast[42] != "Bus at 10" {
		t.Fatalf("moderator /send: sent %+v broadcast %v", c.sent, f.broadcast)
	}
}

func TestStaticSections(t *testing.T) {
	f := newFixture(t, config.ModeRelease)

	timing := newContext(7, "")
	timing.cb = &tele.Callback{Unique: cbTiming, Data: "2"}
	if err := f.app.onTiming(timing); err != nil {
		t.Fatalf("onTiming: %v", err)
	}
	want, _ := f.content.Timing(2)
	if got := timing.texts(); len(got) != 1 || got[0] != want.Text {
		t.Fatalf("timing = %q", got)
	}

	lookup := newContext(7, "")
	lookup.cb = &tele.Callback{Unique: cbTransfer, Data: "1"}
	if err := f.app.onTransfer(lookup); err != nil {
		t.Fatalf("onTransfer: %v", err)
	}
	s, _, _ := f.app.machine.Current(context.Background(), 7)
	if s.State != dialogue.TransferEnterName {
		t.Fatalf("state after lookup transfer = %v", s.State)
	}

	bad := newContext(7, "")
	bad.cb = &tele.Callback{Unique: cbTiming, Data: "9"}
	if err := f.app.onTiming(bad); err != nil {
		t.Fatalf("onTiming: %v", err)
	}
	if len(bad.responses) != 1 || bad.responses[0].Text != f.content.Texts.Unsupported {
		t.Fatalf("responses = %+v", bad.responses)
	}
}

func TestQuestionAuthor(t *testing.T) {
	id, ok := questionAuthor("• Вопрос:\nКогда ужин? 19:00\n\nОт пользователя: 12345")
	if !ok || id != 12345 {
		t.Fatalf("questionAuthor = %d %v", id, ok)
	}
	if _, ok := questionAuthor("no id here"); ok {
		t.Fatal("parsed id from text without one")
	}
}

func TestModeratorReplyMatch(t *testing.T) {
	f := newFixture(t, config.ModeRelease)
	question := &tele.Message{Text: "• Вопрос:\nhi\n\nОт пользователя: 55", Sender: &tele.User{ID: 100, IsBot: true}}

	c := newContext(moderatorID, "answer")
	c.msg = &tele.Message{Text: "answer", ReplyTo: question}
	if !f.app.isModeratorReply(c) {
		t.Fatal("moderator reply not matched")
	}

	other := newContext(77, "answer")
	other.msg = &tele.Message{Text: "answer", ReplyTo: question}
	if f.app.isModeratorReply(other) {
		t.Fatal("reply from a regular user matched")
	}

	plain := newContext(moderatorID, "hi")
	plain.msg = &tele.Message{Text: "hi"}
	if f.app.isModeratorReply(plain) {
		t.Fatal("message without reply matched")
	}
}
