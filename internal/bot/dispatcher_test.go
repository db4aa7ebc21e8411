package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tasting_bot/internal/conversation"
	"tasting_bot/internal/core"
	"tasting_bot/internal/nodes"
	"tasting_bot/internal/storage"
	"tasting_bot/internal/tastings"
	"tasting_bot/pkg"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type message struct {
	chat  int64
	id    int64
	edit  bool
	reply Reply
}

type fakeTransport struct {
	mu      sync.Mutex
	nextID  int64
	out     []message
	editErr error
}

func (f *fakeTransport) Send(ctx context.Context, chatID int64, r Reply) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.out = append(f.out, message{chat: chatID, id: f.nextID, reply: r})
	return f.nextID, nil
}

func (f *fakeTransport) Edit(ctx context.Context, chatID, messageID int64, r Reply) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return f.editErr
	}
	f.out = append(f.out, message{chat: chatID, id: messageID, edit: true, reply: r})
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.out)
}

func (f *fakeTransport) last() message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.out) == 0 {
		return message{}
	}
	return f.out[len(f.out)-1]
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	d     *Dispatcher
	tr    *fakeTransport
	repo  *tastings.Store
	flows *core.Controller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	repo, err := tastings.OpenURL(ctx, "sqlite://"+filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	table, err := nodes.BuildTable(core.Vocabulary{})
	require.NoError(t, err)
	opts := append(nodes.Finishers(repo, repo), core.WithSeed(Seed(repo)))
	flows, err := core.NewController(table, storage.NewMemorySessionStore(time.Hour), opts...)
	require.NoError(t, err)

	tr := &fakeTransport{}
	d, err := New(Deps{
		Flows:      flows,
		Repo:       repo,
		Contexts:   storage.NewMemoryContextStore(16, time.Minute),
		Transcript: conversation.NewMemoryTranscript(50, time.Hour),
		Transport:  tr,
	}, Options{Workers: 2, QueueSize: 4, PageSize: 5})
	require.NoError(t, err)

	return &testEnv{t: t, ctx: ctx, d: d, tr: tr, repo: repo, flows: flows}
}

func (e *testEnv) text(user int64, s string) Reply {
	e.t.Helper()
	require.NoError(e.t, e.d.Handle(e.ctx, Update{UserID: user, Text: s}))
	return e.tr.last().reply
}

func (e *testEnv) press(user int64, token string) Reply {
	e.t.Helper()
	require.NoError(e.t, e.d.Handle(e.ctx, Update{UserID: user, Callback: token}))
	return e.tr.last().reply
}

func (e *testEnv) tasting(owner int64, name string) int64 {
	e.t.Helper()
	id, err := e.repo.Create(e.ctx, pkg.Tasting{OwnerID: owner, Name: name, Category: "Green", Rating: 7})
	require.NoError(e.t, err)
	return id
}

func tokens(r Reply) []string {
	out := make([]string, len(r.Buttons))
	for i, b := range r.Buttons {
		out[i] = b.Token
	}
	return out
}

func TestNewTastingEndToEnd(t *testing.T) {
	e := newTestEnv(t)

	r := e.text(42, "/new")
	assert.Equal(t, "Tea name?", r.Text)

	e.text(42, "Silver Needle")
	for _, tok := range []string{
		"year:skip", "region:skip", "cat:1", "grams:skip", "temp:skip", "time:skip", "gear:skip",
		"adry:skip", "awarm:skip",
		"isec:skip", "icolor:skip", "itaste:skip", "ispec:skip", "ibody:skip", "iafter:skip", "imore:done",
		"eff:skip", "scn:skip", "rate:8", "sum:skip",
	} {
		e.press(42, tok)
	}
	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 42, FileID: "photo-1"}))
	assert.Contains(t, e.tr.last().reply.Text, "Photo saved (1/3).")

	r = e.press(42, "photo:done")
	assert.True(t, strings.HasPrefix(r.Text, "Saved as #1."), r.Text)
	assert.Contains(t, r.Text, "[White] Silver Needle")
	assert.Contains(t, r.Text, "⭐ Rating: 8")
	assert.Contains(t, r.Text, "#1: - s;")
	assert.Equal(t, []string{"edit:1", "del:1", "pics:1"}, tokens(r))

	saved, err := e.repo.Get(e.ctx, 42, 1)
	require.NoError(t, err)
	assert.Len(t, saved.Infusions, 1)
	assert.Equal(t, []pkg.Attachment{{FileID: "photo-1"}}, saved.Attachments)

	msgs, err := e.d.Transcript.Load(e.ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, msgs, "transcript is dropped after completion")

	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 42, Callback: "pics:1"}))
	assert.Equal(t, []string{"photo-1"}, e.tr.last().reply.Photos)
}

func TestPlainTextStartsIntake(t *testing.T) {
	e := newTestEnv(t)

	r := e.text(7, "hello")
	assert.Equal(t, "Tea name?", r.Text)

	// the greeting was not taken as the name
	r = e.text(7, "Longjing")
	assert.Contains(t, r.Text, "Year of harvest?")
}

func TestStaleButtonGetsNoReply(t *testing.T) {
	e := newTestEnv(t)
	e.text(7, "/new")
	before := e.tr.count()

	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 7, Callback: "cat:1"}))
	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 7, Callback: "garbage"}))
	assert.Equal(t, before, e.tr.count())
}

func TestCancel(t *testing.T) {
	e := newTestEnv(t)

	r := e.text(7, "/cancel")
	assert.Equal(t, textNothing, r.Text)

	e.text(7, "/new")
	e.text(7, "Sencha")
	r = e.text(7, "Reset")
	assert.Equal(t, textCancelled, r.Text)

	step, err := e.flows.Current(e.ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, core.StepNone, step)
}

func TestSearchPagination(t *testing.T) {
	e := newTestEnv(t)
	for i := 1; i <= 7; i++ {
		e.tasting(42, fmt.Sprintf("tea %d", i))
	}

	r := e.text(42, "/last")
	lines := strings.Split(r.Text, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "#7 [Green] tea 7", lines[1])
	require.Len(t, r.Buttons, 6)
	more := r.Buttons[5].Token
	assert.True(t, strings.HasPrefix(more, "more:"))
	assert.True(t, strings.HasSuffix(more, ":3"))

	r = e.press(42, more)
	assert.Equal(t, "Results:\n#2 [Green] tea 2\n#1 [Green] tea 1", r.Text)
	assert.Equal(t, []string{"open:2", "open:1"}, tokens(r))

	// the token belongs to user 42
	r = e.press(43, more)
	assert.Equal(t, textNoAccess, r.Text)

	r = e.press(42, "more:000000000000:3")
	assert.True(t, strings.HasPrefix(r.Text, textExpired))
}

func TestSearchByYear(t *testing.T) {
	e := newTestEnv(t)
	id, err := e.repo.Create(e.ctx, pkg.Tasting{OwnerID: 5, Name: "Bi Luo Chun", Category: "Green", Year: func() *int { y := 2021; return &y }()})
	require.NoError(t, err)

	r := e.press(5, "find:year")
	assert.Equal(t, "Type the year:", r.Text)

	r = e.text(5, "last spring")
	assert.True(t, strings.HasPrefix(r.Text, nodes.NoticeNeedNumber), r.Text)
	assert.Contains(t, tokens(r), "find:year")

	e.press(5, "find:year")
	r = e.text(5, "2021")
	assert.Equal(t, fmt.Sprintf("Results:\n#%d [Green] Bi Luo Chun", id), r.Text)

	e.press(5, "find:year")
	r = e.text(5, "1999")
	assert.True(t, strings.HasPrefix(r.Text, textNotFound))
}

func TestOwnership(t *testing.T) {
	e := newTestEnv(t)
	id := e.tasting(1, "Mine")

	for _, do := range []func() Reply{
		func() Reply { return e.press(2, fmt.Sprintf("open:%d", id)) },
		func() Reply { return e.press(2, fmt.Sprintf("delok:%d", id)) },
		func() Reply { return e.text(2, fmt.Sprintf("/delete %d", id)) },
		func() Reply { return e.text(2, fmt.Sprintf("/edit %d", id)) },
		func() Reply { return e.press(1, fmt.Sprintf("open:%d", id+1)) },
	} {
		assert.Equal(t, textNoAccess, do().Text)
	}

	r := e.text(1, fmt.Sprintf("/delete %d", id))
	assert.Equal(t, fmt.Sprintf("Delete #%d [Green] Mine?", id), r.Text)
	r = e.press(1, fmt.Sprintf("delok:%d", id))
	assert.Equal(t, textDeleted, r.Text)

	_, err := e.repo.Get(e.ctx, 1, id)
	assert.ErrorIs(t, err, tastings.ErrNoAccess)
}

func TestEditSummary(t *testing.T) {
	e := newTestEnv(t)
	id := e.tasting(3, "Keemun")

	r := e.text(3, "/edit x")
	assert.Equal(t, textNeedID, r.Text)

	r = e.text(3, fmt.Sprintf("/edit %d", id))
	assert.Equal(t, "New value for summary?", r.Text)

	r = e.text(3, "smoky and sweet")
	assert.True(t, strings.HasPrefix(r.Text, "Updated."))
	assert.Contains(t, r.Text, "📝 Note: smoky and sweet")
}

func TestEditViaMenu(t *testing.T) {
	e := newTestEnv(t)
	id := e.tasting(3, "Keemun")

	r := e.press(3, fmt.Sprintf("edit:%d", id))
	assert.Equal(t, "Which field do you want to change?", r.Text)
	r = e.press(3, "efield:3")
	assert.Contains(t, r.Text, "New value for category?")
	r = e.press(3, "evalue:2")
	assert.Contains(t, r.Text, "[Red] Keemun")
}

func TestEditOfDeletedTasting(t *testing.T) {
	e := newTestEnv(t)
	id := e.tasting(3, "Keemun")

	r := e.text(3, fmt.Sprintf("/edit %d", id))
	assert.Equal(t, "New value for summary?", r.Text)
	require.NoError(t, e.repo.Delete(e.ctx, 3, id))

	r = e.text(3, "smoky and sweet")
	assert.Equal(t, textNoAccess, r.Text)

	step, err := e.flows.Current(e.ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, core.StepNone, step)
}

func TestTimezone(t *testing.T) {
	e := newTestEnv(t)

	r := e.text(9, "/tz")
	assert.True(t, strings.HasPrefix(r.Text, "Timezone offset: UTC+00:00"))

	r = e.text(9, "/tz -5.5")
	assert.Equal(t, "Timezone offset set to UTC-05:30", r.Text)

	r = e.text(9, "/tz soon")
	assert.Equal(t, textTZUsage, r.Text)

	u, err := e.repo.GetOrCreateUser(e.ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, -330, u.TZOffsetMin)
}

func TestSaveFailureKeepsAnswers(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.repo.DB().Exec(`CREATE TRIGGER reject_photos BEFORE INSERT ON photos BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	_, err = e.flows.StartAt(e.ctx, "11", nodes.StepPhotos, core.Draft{core.KeyOwner: int64(11), core.KeyName: "Gyokuro"})
	require.NoError(t, err)
	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 11, FileID: "p1"}))

	err = e.d.Handle(e.ctx, Update{UserID: 11, Callback: "photo:done"})
	require.Error(t, err)
	assert.Equal(t, textSaveFailed, e.tr.last().reply.Text)

	step, err := e.flows.Current(e.ctx, "11")
	require.NoError(t, err)
	assert.Equal(t, nodes.StepPhotos, step)

	_, err = e.repo.DB().Exec(`DROP TRIGGER reject_photos`)
	require.NoError(t, err)
	r := e.press(11, "photo:done")
	assert.True(t, strings.HasPrefix(r.Text, "Saved as #1."), r.Text)
}

func TestReplyEditsPressedMessage(t *testing.T) {
	e := newTestEnv(t)
	e.text(4, "/new")
	e.text(4, "Matcha")

	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 4, Callback: "year:skip", MessageID: 2}))
	last := e.tr.last()
	assert.True(t, last.edit)
	assert.Equal(t, int64(2), last.id)

	e.tr.editErr = ErrCannotEdit
	require.NoError(t, e.d.Handle(e.ctx, Update{UserID: 4, Callback: "region:skip", MessageID: 3}))
	last = e.tr.last()
	assert.False(t, last.edit)
	assert.Equal(t, "Category?", last.reply.Text)
}

func TestRunProcessesSubmittedUpdates(t *testing.T) {
	e := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.d.Run(ctx) }()

	for user := int64(1); user <= 4; user++ {
		require.NoError(t, e.d.Submit(ctx, Update{UserID: user, Text: "/new"}))
		require.NoError(t, e.d.Submit(ctx, Update{UserID: user, Text: fmt.Sprintf("tea of %d", user)}))
	}

	assert.Eventually(t, func() bool { return e.tr.count() == 8 }, 5*time.Second, 10*time.Millisecond)
	for user := int64(1); user <= 4; user++ {
		step, err := e.flows.Current(e.ctx, fmt.Sprint(user))
		require.NoError(t, err)
		assert.Equal(t, nodes.StepYear, step)
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}

func TestParseCommand(t *testing.T) {
	cmd, arg, ok := parseCommand("/Edit@tasting_bot  12 ")
	assert.True(t, ok)
	assert.Equal(t, "edit", cmd)
	assert.Equal(t, "12", arg)

	_, _, ok = parseCommand("hello")
	assert.False(t, ok)
	_, _, ok = parseCommand("/")
	assert.False(t, ok)
}

func TestFormatOffset(t *testing.T) {
	assert.Equal(t, "UTC+03:00", formatOffset(180))
	assert.Equal(t, "UTC-05:30", formatOffset(-330))
	assert.Equal(t, "UTC+00:00", formatOffset(0))
}
