package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/schema"

	"tasting_bot/internal/core"
	"tasting_bot/internal/logger"
	"tasting_bot/internal/nodes"
	"tasting_bot/internal/render"
	"tasting_bot/internal/storage"
	"tasting_bot/internal/tastings"
	"tasting_bot/pkg"
)

const (
	textWelcome = "Hi! I keep your tea tasting notes.\nStart a new tasting or search the ones you saved."
	textHelp    = "Commands:\n" +
		"/new - record a tasting\n" +
		"/find - search your tastings\n" +
		"/last - the latest tastings\n" +
		"/edit <id> - change the summary of a tasting\n" +
		"/delete <id> - delete a tasting\n" +
		"/tz [+3|-5.5] - show or set your timezone offset\n" +
		"/cancel - stop the current questionnaire"
	textCancelled    = "Cancelled."
	textNothing      = "Nothing to cancel."
	textNoAccess     = "No access to this tasting."
	textNotFound     = "Nothing found."
	textExpired      = "Search context expired, please run the search again."
	textSaveFailed   = "Could not save. Your answers are kept, please try again."
	textTZUsage      = "Use /tz +3 or /tz -5.5"
	textDeleted      = "Deleted."
	textKept         = "Kept."
	textNeedID       = "Add the tasting number, e.g. /edit 12"
	textSearchHeader = "Results:"
)

// Command names, also used for menu buttons
const (
	cmdStart  = "start"
	cmdHelp   = "help"
	cmdNew    = "new"
	cmdFind   = "find"
	cmdLast   = "last"
	cmdTZ     = "tz"
	cmdCancel = "cancel"
	cmdEdit   = "edit"
	cmdDelete = "delete"
)

// menuTexts maps reply-keyboard labels to commands
var menuTexts = map[string]string{
	"New tasting": cmdNew,
	"Find":        cmdFind,
	"Last 5":      cmdLast,
	"Help":        cmdHelp,
	"Reset":       cmdCancel,
}

// parseCommand splits "/cmd arg" and drops a "@botname" suffix
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, arg, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(arg), true
}

func mainMenu(text string) Reply {
	if text == "" {
		text = textWelcome
	}
	return Reply{Text: text, Buttons: []Button{
		{Label: "New tasting", Token: "menu:new"},
		{Label: "Find", Token: "menu:find"},
		{Label: "Last 5", Token: "menu:last"},
		{Label: "Help", Token: "menu:help"},
	}}
}

func searchMenu(notice string) Reply {
	text := "Search by:"
	if notice != "" {
		text = notice + "\n" + text
	}
	return Reply{Text: text, Buttons: []Button{
		{Label: "Name", Token: "find:name"},
		{Label: "Category", Token: "find:cat"},
		{Label: "Year", Token: "find:year"},
		{Label: "Min rating", Token: "find:rating"},
		{Label: "Last 5", Token: "find:last"},
	}}
}

func (d *Dispatcher) onCommand(ctx context.Context, u Update, cmd, arg string) error {
	sid := u.session()
	switch cmd {
	case cmdStart:
		if err := d.cancel(ctx, u); err != nil {
			return err
		}
		return d.reply(ctx, u, mainMenu(""))
	case cmdHelp:
		return d.reply(ctx, u, mainMenu(textHelp))
	case cmdNew:
		return d.startFlow(ctx, u, func(seed core.Draft) (*core.Output, error) {
			return d.Flows.Start(ctx, sid, core.FlowIntake, seed)
		})
	case cmdFind:
		if err := d.cancel(ctx, u); err != nil {
			return err
		}
		return d.reply(ctx, u, searchMenu(""))
	case cmdLast:
		if err := d.cancel(ctx, u); err != nil {
			return err
		}
		return d.runSearch(ctx, u, pkg.Query{Kind: pkg.QueryRecent, OwnerID: u.UserID}, 0, "")
	case cmdTZ:
		return d.timezone(ctx, u, arg)
	case cmdCancel:
		active, err := d.Flows.Cancel(ctx, sid)
		if err != nil {
			return err
		}
		d.clearTranscript(ctx, u)
		if !active {
			return d.reply(ctx, u, mainMenu(textNothing))
		}
		return d.reply(ctx, u, mainMenu(textCancelled))
	case cmdEdit:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return d.reply(ctx, u, Reply{Text: textNeedID})
		}
		return d.startEdit(ctx, u, id, true)
	case cmdDelete:
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return d.reply(ctx, u, Reply{Text: textNeedID})
		}
		return d.confirmDelete(ctx, u, id)
	default:
		return d.reply(ctx, u, mainMenu(textHelp))
	}
}

func (d *Dispatcher) onCallback(ctx context.Context, u Update) error {
	ns, payload, ok := core.SplitToken(u.Callback)
	if !ok {
		logger.Debug().Str("token", u.Callback).Msg("malformed callback ignored")
		return nil
	}

	switch ns {
	case "menu":
		return d.onCommand(ctx, u, payload, "")
	case "find":
		return d.onFind(ctx, u, payload)
	case "more":
		token, cursor, _ := strings.Cut(payload, ":")
		c, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil
		}
		return d.continueSearch(ctx, u, token, c)
	case "open", "edit", "del", "delok", "delno", "pics":
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return nil
		}
		switch ns {
		case "open":
			return d.showCard(ctx, u, id, "")
		case "edit":
			return d.startEdit(ctx, u, id, false)
		case "del":
			return d.confirmDelete(ctx, u, id)
		case "delok":
			return d.delete(ctx, u, id)
		case "delno":
			return d.reply(ctx, u, mainMenu(textKept))
		default:
			return d.showPhotos(ctx, u, id)
		}
	}

	ev, err := core.DecodeCallback(u.Callback)
	if err != nil {
		logger.Debug().Err(err).Msg("unknown callback ignored")
		return nil
	}
	d.record(ctx, u, schema.UserMessage("[button] "+u.Callback))
	out, err := d.Flows.Advance(ctx, u.session(), ev)
	return d.deliver(ctx, u, out, err)
}

func (d *Dispatcher) onFind(ctx context.Context, u Update, kind string) error {
	sid := u.session()
	var step core.Step
	switch kind {
	case "name":
		step = nodes.StepSearchName
	case "cat":
		step = nodes.StepSearchCategory
	case "year":
		step = nodes.StepSearchYear
	case "rating":
		step = nodes.StepSearchRating
	case "last":
		if err := d.cancel(ctx, u); err != nil {
			return err
		}
		return d.runSearch(ctx, u, pkg.Query{Kind: pkg.QueryRecent, OwnerID: u.UserID}, 0, "")
	default:
		return nil
	}
	return d.startFlow(ctx, u, func(seed core.Draft) (*core.Output, error) {
		return d.Flows.StartAt(ctx, sid, step, seed)
	})
}

// startFlow seeds a fresh session and shows the first prompt
func (d *Dispatcher) startFlow(ctx context.Context, u Update, start func(seed core.Draft) (*core.Output, error)) error {
	seed, err := seedFor(ctx, d.Repo, u.UserID)
	if err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}
	return d.startWith(ctx, u, seed, start)
}

func (d *Dispatcher) startWith(ctx context.Context, u Update, seed core.Draft, start func(seed core.Draft) (*core.Output, error)) error {
	d.clearTranscript(ctx, u)
	out, err := start(seed)
	if err != nil {
		return err
	}
	return d.deliver(ctx, u, out, nil)
}

func (d *Dispatcher) cancel(ctx context.Context, u Update) error {
	if _, err := d.Flows.Cancel(ctx, u.session()); err != nil {
		return err
	}
	d.clearTranscript(ctx, u)
	return nil
}

func (d *Dispatcher) clearTranscript(ctx context.Context, u Update) {
	if err := d.Transcript.Clear(ctx, u.session()); err != nil {
		logger.Warn().Err(err).Msg("failed to clear transcript")
	}
}

// owned loads a tasting of u, replying "no access" when it is not
func (d *Dispatcher) owned(ctx context.Context, u Update, id int64) (pkg.Tasting, bool, error) {
	t, err := d.Repo.Get(ctx, u.UserID, id)
	if errors.Is(err, tastings.ErrNoAccess) {
		return pkg.Tasting{}, false, d.reply(ctx, u, Reply{Text: textNoAccess})
	}
	if err != nil {
		return pkg.Tasting{}, false, err
	}
	return t, true, nil
}

func (d *Dispatcher) showCard(ctx context.Context, u Update, id int64, notice string) error {
	t, ok, err := d.owned(ctx, u, id)
	if !ok {
		return err
	}
	text := render.Card(t)
	if notice != "" {
		text = notice + "\n\n" + text
	}
	buttons := []Button{
		{Label: "Edit", Token: fmt.Sprintf("edit:%d", id)},
		{Label: "Delete", Token: fmt.Sprintf("del:%d", id)},
	}
	if len(t.Attachments) > 0 {
		buttons = append(buttons, Button{Label: "Photos", Token: fmt.Sprintf("pics:%d", id)})
	}
	return d.reply(ctx, u, Reply{Text: text, Buttons: buttons})
}

func (d *Dispatcher) showPhotos(ctx context.Context, u Update, id int64) error {
	t, ok, err := d.owned(ctx, u, id)
	if !ok {
		return err
	}
	r := Reply{Text: fmt.Sprintf("Photos of #%d:", id)}
	for _, a := range t.Attachments {
		r.Photos = append(r.Photos, a.FileID)
	}
	if len(r.Photos) == 0 {
		r.Text = "No photos."
	}
	// photos always go out as a new message
	_, err = d.Transport.Send(ctx, u.chat(), r)
	if err == nil {
		d.Observer.ReplySent("send")
	}
	return err
}

// startEdit checks ownership and opens the edit flow; direct edits jump to the summary
func (d *Dispatcher) startEdit(ctx context.Context, u Update, id int64, summary bool) error {
	if _, ok, err := d.owned(ctx, u, id); !ok {
		return err
	}
	seed, err := seedFor(ctx, d.Repo, u.UserID)
	if err != nil {
		return fmt.Errorf("failed to seed session: %w", err)
	}
	seed[core.KeyEditID] = id

	sid := u.session()
	return d.startWith(ctx, u, seed, func(seed core.Draft) (*core.Output, error) {
		if summary {
			seed[core.KeyEditField] = core.KeySummary
			return d.Flows.StartAt(ctx, sid, nodes.StepEditValue, seed)
		}
		return d.Flows.Start(ctx, sid, core.FlowEdit, seed)
	})
}

func (d *Dispatcher) confirmDelete(ctx context.Context, u Update, id int64) error {
	t, ok, err := d.owned(ctx, u, id)
	if !ok {
		return err
	}
	return d.reply(ctx, u, Reply{
		Text: "Delete " + render.ShortRow(t) + "?",
		Buttons: []Button{
			{Label: "Yes, delete", Token: fmt.Sprintf("delok:%d", id)},
			{Label: "No", Token: fmt.Sprintf("delno:%d", id)},
		},
	})
}

func (d *Dispatcher) delete(ctx context.Context, u Update, id int64) error {
	err := d.Repo.Delete(ctx, u.UserID, id)
	if errors.Is(err, tastings.ErrNoAccess) {
		return d.reply(ctx, u, Reply{Text: textNoAccess})
	}
	if err != nil {
		return err
	}
	return d.reply(ctx, u, mainMenu(textDeleted))
}

func (d *Dispatcher) timezone(ctx context.Context, u Update, arg string) error {
	if arg == "" {
		user, err := d.Repo.GetOrCreateUser(ctx, u.UserID)
		if err != nil {
			return err
		}
		return d.reply(ctx, u, Reply{Text: "Timezone offset: " + formatOffset(user.TZOffsetMin) + "\n" + textTZUsage})
	}

	offset, ok := nodes.ParseTZ(arg)
	if !ok {
		return d.reply(ctx, u, Reply{Text: textTZUsage})
	}
	if err := d.Repo.SetUserTZ(ctx, u.UserID, offset); err != nil {
		return err
	}
	return d.reply(ctx, u, Reply{Text: "Timezone offset set to " + formatOffset(offset)})
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}

func (d *Dispatcher) runSearch(ctx context.Context, u Update, q pkg.Query, cursor int64, token string) error {
	page, err := d.Repo.Find(ctx, q, cursor, d.pageSize)
	if err != nil {
		return err
	}
	if len(page.Items) == 0 {
		if cursor == 0 {
			return d.reply(ctx, u, searchMenu(textNotFound))
		}
		return d.reply(ctx, u, Reply{Text: textNotFound})
	}

	if page.HasMore && token == "" {
		if token, err = d.Contexts.Put(ctx, q); err != nil {
			return err
		}
	}
	page.Token = token

	lines := []string{textSearchHeader}
	var buttons []Button
	for _, t := range page.Items {
		lines = append(lines, render.ShortRow(t))
		buttons = append(buttons, Button{Label: fmt.Sprintf("Open #%d", t.ID), Token: fmt.Sprintf("open:%d", t.ID)})
	}
	if page.HasMore {
		buttons = append(buttons, Button{Label: "Show more", Token: fmt.Sprintf("more:%s:%d", page.Token, page.NextCursor)})
	}
	// result pages are new messages so earlier pages stay visible
	_, err = d.Transport.Send(ctx, u.chat(), Reply{Text: strings.Join(lines, "\n"), Buttons: buttons})
	if err == nil {
		d.Observer.ReplySent("send")
	}
	return err
}

func (d *Dispatcher) continueSearch(ctx context.Context, u Update, token string, cursor int64) error {
	q, err := d.Contexts.Get(ctx, token)
	if errors.Is(err, storage.ErrContextExpired) {
		return d.reply(ctx, u, searchMenu(textExpired))
	}
	if err != nil {
		return err
	}
	if q.OwnerID != u.UserID {
		return d.reply(ctx, u, Reply{Text: textNoAccess})
	}
	return d.runSearch(ctx, u, q, cursor, token)
}
