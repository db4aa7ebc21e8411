package core

import (
	"context"
	"fmt"
	"time"

	"tasting_bot/internal/logger"
)

// maxHistory bounds the back-navigation trail kept in the draft
const maxHistory = 64

// FinishFunc completes a flow from its final draft.
// An error leaves the session untouched so the user can retry.
type FinishFunc func(ctx context.Context, sessionID string, d Draft) (*Completion, error)

// SeedFunc returns the initial draft of a session started without an explicit seed
type SeedFunc func(ctx context.Context, sessionID string) (Draft, error)

// Controller drives sessions through the step table
type Controller struct {
	table     *Table
	store     SessionStore
	finishers map[Flow]FinishFunc
	seed      SeedFunc
	observer  Observer
	now       func() time.Time
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithFinisher sets the completion handler of a flow
func WithFinisher(flow Flow, fn FinishFunc) ControllerOption {
	return func(c *Controller) { c.finishers[flow] = fn }
}

func WithSeed(fn SeedFunc) ControllerOption {
	return func(c *Controller) { c.seed = fn }
}

func WithObserver(o Observer) ControllerOption {
	return func(c *Controller) { c.observer = o }
}

func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller over a validated step table
func NewController(table *Table, store SessionStore, opts ...ControllerOption) (*Controller, error) {
	if table == nil || store == nil {
		return nil, fmt.Errorf("table and session store are required")
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid step table: %w", err)
	}

	c := &Controller{
		table:     table,
		store:     store,
		finishers: make(map[Flow]FinishFunc),
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Table exposes the step table
func (c *Controller) Table() *Table {
	return c.table
}

// Current returns the active step of a session
func (c *Controller) Current(ctx context.Context, sessionID string) (Step, error) {
	return c.store.GetStep(ctx, sessionID)
}

// Start resets the session and enters the first step of flow
func (c *Controller) Start(ctx context.Context, sessionID string, flow Flow, seed Draft) (*Output, error) {
	first := c.table.First(flow)
	if first == StepNone {
		return nil, fmt.Errorf("flow %s has no steps", flow)
	}
	return c.StartAt(ctx, sessionID, first, seed)
}

// StartAt resets the session and enters step directly
func (c *Controller) StartAt(ctx context.Context, sessionID string, step Step, seed Draft) (*Output, error) {
	def, ok := c.table.Lookup(step)
	if !ok {
		return nil, fmt.Errorf("unknown step: %s", step)
	}

	draft := Draft{}
	if seed != nil {
		draft = seed.Clone()
	} else if c.seed != nil {
		s, err := c.seed(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to seed session: %w", err)
		}
		draft = s.Clone()
	}
	if def.Enter != nil {
		draft.Merge(def.Enter(draft))
	}

	if err := c.store.Clear(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to reset session: %w", err)
	}
	if err := c.store.UpdateDraft(ctx, sessionID, draft); err != nil {
		return nil, fmt.Errorf("failed to write draft: %w", err)
	}
	if err := c.store.SetStep(ctx, sessionID, step); err != nil {
		return nil, fmt.Errorf("failed to set step: %w", err)
	}

	c.observer.StepEntered(step)
	logger.Debug().Str("session", sessionID).Str("step", string(step)).Msg("flow started")

	return &Output{
		SessionID:  sessionID,
		Step:       step,
		Prompt:     def.Prompt(draft),
		Transition: true,
	}, nil
}

// Cancel clears the session without finishing it. It reports whether a flow was active.
func (c *Controller) Cancel(ctx context.Context, sessionID string) (bool, error) {
	step, err := c.store.GetStep(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to load step: %w", err)
	}
	if err := c.store.Clear(ctx, sessionID); err != nil {
		return false, fmt.Errorf("failed to clear session: %w", err)
	}
	if step != StepNone {
		logger.Debug().Str("session", sessionID).Str("step", string(step)).Msg("flow cancelled")
	}
	return step != StepNone, nil
}

// Advance applies one event to the session and returns the next prompt.
// A session without an active step starts the intake flow; the event itself is not consumed.
func (c *Controller) Advance(ctx context.Context, sessionID string, ev Event) (*Output, error) {
	step, err := c.store.GetStep(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load step: %w", err)
	}
	if step == StepNone {
		logger.Debug().Str("session", sessionID).Msg("no active flow, starting intake")
		return c.Start(ctx, sessionID, FlowIntake, nil)
	}

	def, ok := c.table.Lookup(step)
	if !ok {
		logger.Warn().Str("session", sessionID).Str("step", string(step)).Msg("unknown step, event ignored")
		return &Output{SessionID: sessionID, Step: step, Ignored: true}, nil
	}
	if ev.Namespace != "" && ev.Namespace != def.Namespace {
		logger.Debug().
			Str("session", sessionID).
			Str("step", string(step)).
			Str("namespace", ev.Namespace).
			Msg("stale button ignored")
		return &Output{SessionID: sessionID, Step: step, Ignored: true}, nil
	}

	draft, err := c.store.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}

	if ev.Kind == EventBack {
		if def.NoBack {
			return c.reprompt(sessionID, def, draft, ""), nil
		}
		return c.back(ctx, sessionID, def, draft)
	}

	res := def.Handle(draft.Clone(), ev, Env{Now: c.now()})
	draft.Merge(res.Set)

	if res.Finish {
		if len(res.Set) > 0 {
			if err := c.store.UpdateDraft(ctx, sessionID, res.Set); err != nil {
				return nil, fmt.Errorf("failed to write draft: %w", err)
			}
		}
		return c.finish(ctx, sessionID, step, draft, res.Notice)
	}

	if res.Stay {
		if len(res.Set) > 0 {
			if err := c.store.UpdateDraft(ctx, sessionID, res.Set); err != nil {
				return nil, fmt.Errorf("failed to write draft: %w", err)
			}
		}
		return c.reprompt(sessionID, def, draft, res.Notice), nil
	}

	next := res.Next
	if next == StepNone {
		next = def.Next
	}
	nextDef, ok := c.table.Lookup(next)
	if !ok {
		return nil, fmt.Errorf("step %s has no successor", step)
	}

	patch := Draft{}
	patch.Merge(res.Set)
	history := append(draft.Strings(KeyHistory), string(step))
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	patch[KeyHistory] = history
	patch[KeyAwaitOther] = nil
	draft.Merge(patch)
	if nextDef.Enter != nil {
		enter := nextDef.Enter(draft)
		patch.Merge(enter)
		draft.Merge(enter)
	}

	if err := c.moveTo(ctx, sessionID, next, patch); err != nil {
		return nil, err
	}

	logger.Debug().Str("session", sessionID).Str("from", string(step)).Str("to", string(next)).Msg("step transition")
	return &Output{
		SessionID:  sessionID,
		Step:       next,
		Prompt:     nextDef.Prompt(draft),
		Transition: true,
		Notice:     res.Notice,
	}, nil
}

func (c *Controller) back(ctx context.Context, sessionID string, def *StepDef, draft Draft) (*Output, error) {
	history := draft.Strings(KeyHistory)
	if len(history) == 0 {
		return c.reprompt(sessionID, def, draft, ""), nil
	}
	prev := Step(history[len(history)-1])
	prevDef, ok := c.table.Lookup(prev)
	if !ok {
		return c.reprompt(sessionID, def, draft, ""), nil
	}

	patch := Draft{KeyHistory: history[:len(history)-1], KeyAwaitOther: nil}
	draft.Merge(patch)
	if err := c.moveTo(ctx, sessionID, prev, patch); err != nil {
		return nil, err
	}

	return &Output{
		SessionID:  sessionID,
		Step:       prev,
		Prompt:     prevDef.Prompt(draft),
		Transition: true,
	}, nil
}

func (c *Controller) moveTo(ctx context.Context, sessionID string, step Step, patch Draft) error {
	if err := c.store.UpdateDraft(ctx, sessionID, patch); err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	if err := c.store.SetStep(ctx, sessionID, step); err != nil {
		return fmt.Errorf("failed to set step: %w", err)
	}
	c.observer.StepEntered(step)
	return nil
}

func (c *Controller) reprompt(sessionID string, def *StepDef, draft Draft, notice string) *Output {
	return &Output{
		SessionID: sessionID,
		Step:      def.ID,
		Prompt:    def.Prompt(draft),
		Notice:    notice,
	}
}

func (c *Controller) finish(ctx context.Context, sessionID string, step Step, draft Draft, notice string) (*Output, error) {
	flow := step.Flow()
	completion := &Completion{Flow: flow}
	if fn, ok := c.finishers[flow]; ok {
		done, err := fn(ctx, sessionID, draft)
		if err != nil {
			c.observer.FlowFailed(flow)
			return nil, fmt.Errorf("failed to finish %s flow: %w", flow, err)
		}
		if done != nil {
			completion = done
			if completion.Flow == "" {
				completion.Flow = flow
			}
		}
	}

	if err := c.store.Clear(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to clear session: %w", err)
	}
	c.observer.FlowCompleted(flow)
	logger.Debug().Str("session", sessionID).Str("flow", string(flow)).Int64("tasting_id", completion.TastingID).Msg("flow completed")

	return &Output{
		SessionID:  sessionID,
		Step:       StepNone,
		Transition: true,
		Notice:     notice,
		Completion: completion,
	}, nil
}
