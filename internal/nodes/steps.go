package nodes

import (
	"strings"

	"tasting_bot/internal/core"
)

// Generic step builders. Each returns a core.StepDef whose handler follows the field's normalization policy.

const (
	labelSkip  = "Skip"
	labelBack  = "Back"
	labelDone  = "Done"
	labelOther = "Other"
	labelNow   = "Now"

	noticeRequired = "This field is required."
	promptOther    = "Type your own value:"
)

// val stores a pointer's value in a draft, nil for nil
func val[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func controls(ns string, skip, back bool) []core.Option {
	var opts []core.Option
	if skip {
		opts = append(opts, core.Option{Label: labelSkip, Token: core.Token(ns, "skip")})
	}
	if back {
		opts = append(opts, core.Option{Label: labelBack, Token: core.Token(ns, "back")})
	}
	return opts
}

func choices(ns string, items []string, selected []string) []core.Option {
	opts := make([]core.Option, 0, len(items))
	for i, item := range items {
		opts = append(opts, core.Option{
			Label:    item,
			Token:    core.Token(ns, i),
			Selected: contains(selected, item),
		})
	}
	return opts
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func stay(set core.Draft, notice string) core.Result {
	return core.Result{Set: set, Stay: true, Notice: notice}
}

type textOpts struct {
	required bool
	// promptFn overrides the static text
	promptFn func(d core.Draft) string
}

func promptText(static string, fn func(d core.Draft) string, d core.Draft) string {
	if fn != nil {
		return fn(d)
	}
	return static
}

// textStep stores trimmed text; required steps re-prompt on empty input and refuse skip
func textStep(id core.Step, ns, field, text string, next core.Step, o textOpts) core.StepDef {
	return core.StepDef{
		ID:        id,
		Namespace: ns,
		Field:     field,
		Next:      next,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: promptText(text, o.promptFn, d), Options: controls(ns, !o.required, true)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			switch ev.Kind {
			case core.EventText:
				if o.required {
					v, ok := RequiredText(ev.Text)
					if !ok {
						return stay(nil, noticeRequired)
					}
					return core.Result{Set: core.Draft{field: v}}
				}
				return core.Result{Set: core.Draft{field: val(OptionalText(ev.Text))}}
			case core.EventSkip:
				if o.required {
					return stay(nil, noticeRequired)
				}
				return core.Result{Set: core.Draft{field: nil}}
			default:
				return stay(nil, "")
			}
		},
	}
}

// parseStep stores parse(text); skip stores nil. Parsing never rejects input.
func parseStep(id core.Step, ns, field, text string, next core.Step, parse func(string) any) core.StepDef {
	return core.StepDef{
		ID:        id,
		Namespace: ns,
		Field:     field,
		Next:      next,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: text, Options: controls(ns, true, true)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			switch ev.Kind {
			case core.EventText:
				return core.Result{Set: core.Draft{field: parse(ev.Text)}}
			case core.EventSkip:
				return core.Result{Set: core.Draft{field: nil}}
			default:
				return stay(nil, "")
			}
		},
	}
}

// timeStep accepts HH:MM text or "now" in the owner's timezone
func timeStep(id core.Step, ns, field, text string, next core.Step) core.StepDef {
	def := parseStep(id, ns, field, text, next, func(s string) any { return val(TimeOfDay(s)) })
	parse := def.Handle
	def.Prompt = func(d core.Draft) core.Prompt {
		opts := []core.Option{{Label: labelNow, Token: core.Token(ns, "now")}}
		return core.Prompt{Text: text, Options: append(opts, controls(ns, true, true)...)}
	}
	def.Handle = func(d core.Draft, ev core.Event, env core.Env) core.Result {
		if ev.Kind == core.EventNow {
			offset, _ := d.Int(core.KeyTZOffset)
			return core.Result{Set: core.Draft{field: LocalClock(env.Now, offset)}}
		}
		return parse(d, ev, env)
	}
	return def
}

type choiceOpts struct {
	skip bool
	// items is read per prompt so edit steps can vary the list
	items func(d core.Draft) []string
	// done overrides the default "store and advance" result
	done func(d core.Draft, value any) core.Result
}

// choiceStep offers a fixed vocabulary plus an "other" escape followed by one free-text turn
func choiceStep(id core.Step, ns, field, text string, next core.Step, o choiceOpts) core.StepDef {
	finish := func(d core.Draft, value any) core.Result {
		if o.done != nil {
			return o.done(d, value)
		}
		return core.Result{Set: core.Draft{field: value}}
	}
	return core.StepDef{
		ID:        id,
		Namespace: ns,
		Field:     field,
		Next:      next,
		Prompt: func(d core.Draft) core.Prompt {
			if d.Bool(core.KeyAwaitOther) {
				return core.Prompt{Text: promptOther, Options: controls(ns, false, true)}
			}
			opts := choices(ns, o.items(d), nil)
			opts = append(opts, core.Option{Label: labelOther, Token: core.Token(ns, "other")})
			return core.Prompt{Text: text, Options: append(opts, controls(ns, o.skip, true)...)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			switch ev.Kind {
			case core.EventSelect:
				items := o.items(d)
				if ev.Index >= len(items) {
					return stay(nil, "")
				}
				return finish(d, items[ev.Index])
			case core.EventOther:
				return stay(core.Draft{core.KeyAwaitOther: true}, "")
			case core.EventText:
				v, ok := RequiredText(ev.Text)
				if !ok {
					return stay(nil, "")
				}
				return finish(d, v)
			case core.EventSkip:
				if !o.skip {
					return stay(nil, "")
				}
				return finish(d, nil)
			default:
				return stay(nil, "")
			}
		},
	}
}

type multiOpts struct {
	sep string
	// done turns the joined selection into a result; default stores it in the field
	done func(d core.Draft, value *string) core.Result
}

// multiStep toggles vocabulary items and collects free-text additions until done or skip
func multiStep(id core.Step, ns, field, text string, items []string, next core.Step, o multiOpts) core.StepDef {
	selKey := core.SelectionKey(id)
	sep := o.sep
	if sep == "" {
		sep = ", "
	}
	finish := func(d core.Draft, value *string) core.Result {
		if o.done != nil {
			return o.done(d, value)
		}
		return core.Result{Set: core.Draft{field: val(value)}}
	}

	return core.StepDef{
		ID:        id,
		Namespace: ns,
		Field:     field,
		Next:      next,
		Prompt: func(d core.Draft) core.Prompt {
			if d.Bool(core.KeyAwaitOther) {
				return core.Prompt{Text: promptOther, Options: controls(ns, false, true)}
			}
			sel := d.Strings(selKey)
			t := text
			if len(sel) > 0 {
				t += "\nSelected: " + strings.Join(sel, sep)
			}
			opts := choices(ns, items, sel)
			opts = append(opts,
				core.Option{Label: labelOther, Token: core.Token(ns, "other")},
				core.Option{Label: labelDone, Token: core.Token(ns, "done")},
			)
			return core.Prompt{Text: t, Options: append(opts, controls(ns, true, true)...)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			sel := d.Strings(selKey)
			switch ev.Kind {
			case core.EventSelect:
				if ev.Index >= len(items) {
					return stay(nil, "")
				}
				return stay(core.Draft{selKey: Toggle(sel, items[ev.Index])}, "")
			case core.EventOther:
				return stay(core.Draft{core.KeyAwaitOther: true}, "")
			case core.EventText:
				v, ok := RequiredText(ev.Text)
				if !ok {
					return stay(nil, "")
				}
				return stay(core.Draft{selKey: append(sel, v), core.KeyAwaitOther: nil}, "")
			case core.EventDone:
				return finish(d, JoinSelection(sel, sep))
			case core.EventSkip:
				return finish(d, nil)
			default:
				return stay(nil, "")
			}
		},
		Enter: func(d core.Draft) core.Draft {
			return core.Draft{selKey: []string{}}
		},
	}
}
