package bot

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	"tasting_bot/internal/conversation"
	"tasting_bot/internal/core"
	"tasting_bot/internal/logger"
	"tasting_bot/internal/render"
	"tasting_bot/internal/storage"
	"tasting_bot/internal/tastings"
)

// Deps are the collaborators of a Dispatcher
type Deps struct {
	Flows      Flows
	Repo       Repository
	Contexts   storage.ContextStore
	Transcript conversation.Transcript
	Transport  Transport
	Observer   Observer
}

// Options tune the worker pool
type Options struct {
	Workers   int
	QueueSize int
	PageSize  int
}

// Dispatcher routes updates to commands, searches and flows.
// Updates of one user are handled in arrival order by the same worker; different users run in parallel.
type Dispatcher struct {
	Deps
	pageSize int
	shards   []chan Update
}

// New creates a dispatcher; call Run to start its workers
func New(deps Deps, opts Options) (*Dispatcher, error) {
	if deps.Flows == nil || deps.Repo == nil || deps.Transport == nil || deps.Contexts == nil {
		return nil, fmt.Errorf("flows, repository, contexts and transport are required")
	}
	if deps.Transcript == nil {
		deps.Transcript = conversation.NewMemoryTranscript(0, 0)
	}
	if deps.Observer == nil {
		deps.Observer = nopObserver{}
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 16
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}

	d := &Dispatcher{Deps: deps, pageSize: opts.PageSize, shards: make([]chan Update, opts.Workers)}
	for i := range d.shards {
		d.shards[i] = make(chan Update, opts.QueueSize)
	}
	return d, nil
}

// Run processes submitted updates until ctx is done
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, ch := range d.shards {
		i, ch := i, ch
		g.Go(func() error {
			logger.Debug().Int("worker", i).Msg("dispatcher worker started")
			for {
				select {
				case <-ctx.Done():
					return nil
				case u := <-ch:
					if err := d.Handle(ctx, u); err != nil {
						logger.Error().Err(err).Int64("user", u.UserID).Msg("update failed")
					}
				}
			}
		})
	}
	return g.Wait()
}

// Submit queues u on its user's worker
func (d *Dispatcher) Submit(ctx context.Context, u Update) error {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", u.UserID)
	ch := d.shards[h.Sum32()%uint32(len(d.shards))]

	select {
	case ch <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle processes one update synchronously
func (d *Dispatcher) Handle(ctx context.Context, u Update) error {
	switch {
	case u.Callback != "":
		d.Observer.EventReceived("callback")
		return d.onCallback(ctx, u)
	case u.FileID != "":
		d.Observer.EventReceived("attachment")
		d.record(ctx, u, schema.UserMessage("[photo] "+u.FileID))
		out, err := d.Flows.Advance(ctx, u.session(), core.AttachmentEvent(u.FileID))
		return d.deliver(ctx, u, out, err)
	default:
		return d.onText(ctx, u)
	}
}

func (d *Dispatcher) onText(ctx context.Context, u Update) error {
	text := strings.TrimSpace(u.Text)
	if cmd, arg, ok := parseCommand(text); ok {
		d.Observer.EventReceived("command")
		return d.onCommand(ctx, u, cmd, arg)
	}
	if cmd, ok := menuTexts[text]; ok {
		d.Observer.EventReceived("command")
		return d.onCommand(ctx, u, cmd, "")
	}

	d.Observer.EventReceived("text")
	d.record(ctx, u, schema.UserMessage(u.Text))
	out, err := d.Flows.Advance(ctx, u.session(), core.TextEvent(u.Text))
	return d.deliver(ctx, u, out, err)
}

// deliver renders the controller output for u
func (d *Dispatcher) deliver(ctx context.Context, u Update, out *core.Output, err error) error {
	if errors.Is(err, tastings.ErrNoAccess) {
		// the tasting was deleted or changed hands while the flow was open
		if _, cerr := d.Flows.Cancel(ctx, u.session()); cerr != nil {
			return fmt.Errorf("failed to drop session: %w", cerr)
		}
		if cerr := d.Transcript.Clear(ctx, u.session()); cerr != nil {
			logger.Warn().Err(cerr).Msg("failed to clear transcript")
		}
		return d.reply(ctx, u, Reply{Text: textNoAccess})
	}
	if err != nil {
		d.dumpTranscript(ctx, u, err)
		if sendErr := d.reply(ctx, u, Reply{Text: textSaveFailed}); sendErr != nil {
			logger.Warn().Err(sendErr).Msg("failed to report error to user")
		}
		return err
	}
	if out.Ignored {
		return nil
	}
	if out.Completion != nil {
		if err := d.Transcript.Clear(ctx, u.session()); err != nil {
			logger.Warn().Err(err).Msg("failed to clear transcript")
		}
		return d.complete(ctx, u, out)
	}

	r := promptReply(out)
	d.record(ctx, u, schema.AssistantMessage(r.Text, nil))
	return d.reply(ctx, u, r)
}

func promptReply(out *core.Output) Reply {
	r := Reply{Text: render.Prompt(out.Notice, out.Prompt)}
	for _, o := range out.Prompt.Options {
		r.Buttons = append(r.Buttons, Button{Label: render.OptionLabel(o), Token: o.Token})
	}
	return r
}

func (d *Dispatcher) complete(ctx context.Context, u Update, out *core.Output) error {
	c := out.Completion
	switch c.Flow {
	case core.FlowIntake:
		return d.showCard(ctx, u, c.TastingID, fmt.Sprintf("Saved as #%d.", c.TastingID))
	case core.FlowEdit:
		return d.showCard(ctx, u, c.TastingID, "Updated.")
	case core.FlowSearch:
		if c.Search == nil {
			notice := c.Notice
			if notice == "" {
				notice = out.Notice
			}
			return d.reply(ctx, u, searchMenu(notice))
		}
		c.Search.OwnerID = u.UserID
		return d.runSearch(ctx, u, *c.Search, 0, "")
	default:
		return d.reply(ctx, u, mainMenu(out.Notice))
	}
}

// reply edits the pressed message when the update is a button press, otherwise sends.
// A failed edit falls back to a new message.
func (d *Dispatcher) reply(ctx context.Context, u Update, r Reply) error {
	if u.Callback != "" && u.MessageID != 0 {
		err := d.Transport.Edit(ctx, u.chat(), u.MessageID, r)
		if err == nil {
			d.Observer.ReplySent("edit")
			return nil
		}
		if !errors.Is(err, ErrCannotEdit) {
			logger.Warn().Err(err).Int64("user", u.UserID).Msg("edit failed, sending new message")
		}
		d.Observer.ReplySent("edit_fallback")
	} else {
		d.Observer.ReplySent("send")
	}

	if _, err := d.Transport.Send(ctx, u.chat(), r); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, u Update, msg *schema.Message) {
	if err := d.Transcript.Append(ctx, u.session(), msg); err != nil {
		logger.Warn().Err(err).Int64("user", u.UserID).Msg("failed to record transcript")
	}
}

func (d *Dispatcher) dumpTranscript(ctx context.Context, u Update, cause error) {
	msgs, err := d.Transcript.Load(ctx, u.session())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load transcript")
	}
	logger.Error().
		Err(cause).
		Int64("user", u.UserID).
		Str("transcript", conversation.Format(msgs)).
		Msg("flow failed, session kept")
}
