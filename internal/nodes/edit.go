package nodes

import (
	"strconv"
	"strings"

	"tasting_bot/internal/core"
)

const (
	StepEditField core.Step = "edit.field"
	StepEditValue core.Step = "edit.value"
)

type fieldKind int

const (
	kindRequired fieldKind = iota
	kindText
	kindInt
	kindDecimal
	kindWhole
	kindTime
	kindCategory
	kindRating
	kindTags
)

// EditableField is a column that can be changed after creation
type EditableField struct {
	Key   string
	Label string
	kind  fieldKind
}

// EditableFields lists the fields offered by the edit flow, in menu order
var EditableFields = []EditableField{
	{core.KeyName, "Name", kindRequired},
	{core.KeyYear, "Year", kindInt},
	{core.KeyRegion, "Region", kindText},
	{core.KeyCategory, "Category", kindCategory},
	{core.KeyGrams, "Grams", kindDecimal},
	{core.KeyTempC, "Temperature", kindWhole},
	{core.KeyTastedAt, "Time", kindTime},
	{core.KeyGear, "Teaware", kindText},
	{core.KeyEffects, "Effects", kindTags},
	{core.KeyScenarios, "Scenarios", kindTags},
	{core.KeyRating, "Rating", kindRating},
	{core.KeySummary, "Summary", kindText},
}

// LookupEditable finds an editable field by draft key
func LookupEditable(key string) (EditableField, bool) {
	for _, f := range EditableFields {
		if f.Key == key {
			return f, true
		}
	}
	return EditableField{}, false
}

func editSteps(v core.Vocabulary) []core.StepDef {
	return []core.StepDef{editFieldStep(), editValueStep(v)}
}

func editFieldStep() core.StepDef {
	const ns = "efield"
	labels := make([]string, len(EditableFields))
	for i, f := range EditableFields {
		labels[i] = f.Label
	}
	return core.StepDef{
		ID:        StepEditField,
		Namespace: ns,
		Field:     core.KeyEditField,
		Next:      StepEditValue,
		NoBack:    true,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: "Which field do you want to change?", Options: choices(ns, labels, nil)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			if ev.Kind != core.EventSelect || ev.Index >= len(EditableFields) {
				return stay(nil, "")
			}
			return core.Result{Set: core.Draft{core.KeyEditField: EditableFields[ev.Index].Key}}
		},
	}
}

func editValueStep(v core.Vocabulary) core.StepDef {
	const ns = "evalue"
	scale := make([]string, 11)
	for i := range scale {
		scale[i] = strconv.Itoa(i)
	}

	current := func(d core.Draft) EditableField {
		key, _ := d.String(core.KeyEditField)
		f, ok := LookupEditable(key)
		if !ok {
			return EditableFields[len(EditableFields)-1]
		}
		return f
	}
	finish := func(value any) core.Result {
		return core.Result{Set: core.Draft{core.KeyEditValue: value}, Finish: true}
	}

	return core.StepDef{
		ID:        StepEditValue,
		Namespace: ns,
		Field:     core.KeyEditValue,
		Terminal:  true,
		Prompt: func(d core.Draft) core.Prompt {
			f := current(d)
			text := "New value for " + strings.ToLower(f.Label) + "?"
			var opts []core.Option
			switch f.kind {
			case kindCategory:
				opts = choices(ns, v.Categories, nil)
				text += " Pick one or type your own."
			case kindRating:
				opts = choices(ns, scale, nil)
			case kindTime:
				opts = []core.Option{{Label: labelNow, Token: core.Token(ns, "now")}}
			case kindTags:
				text += " Comma-separated."
			}
			opts = append(opts, controls(ns, f.kind != kindRequired && f.kind != kindRating && f.kind != kindCategory, true)...)
			return core.Prompt{Text: text, Options: opts}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			f := current(d)
			switch ev.Kind {
			case core.EventSkip:
				if f.kind == kindRequired || f.kind == kindRating || f.kind == kindCategory {
					return stay(nil, "")
				}
				return finish(nil)
			case core.EventNow:
				if f.kind != kindTime {
					return stay(nil, "")
				}
				offset, _ := d.Int(core.KeyTZOffset)
				return finish(LocalClock(env.Now, offset))
			case core.EventSelect:
				switch {
				case f.kind == kindCategory && ev.Index < len(v.Categories):
					return finish(v.Categories[ev.Index])
				case f.kind == kindRating:
					return finish(clampRating(ev.Index))
				}
				return stay(nil, "")
			case core.EventText:
				value, ok := normalizeEdit(f.kind, ev.Text)
				if !ok {
					return stay(nil, noticeRequired)
				}
				return finish(value)
			default:
				return stay(nil, "")
			}
		},
	}
}

// normalizeEdit applies the intake policy for a field kind. Only required text can be rejected.
func normalizeEdit(kind fieldKind, s string) (any, bool) {
	switch kind {
	case kindRequired, kindCategory:
		v, ok := RequiredText(s)
		return v, ok
	case kindInt:
		return val(OptionalInt(s)), true
	case kindDecimal:
		return val(OptionalDecimal(s)), true
	case kindWhole:
		return val(WholeNumber(s)), true
	case kindTime:
		return val(TimeOfDay(s)), true
	case kindRating:
		return Rating(s), true
	case kindTags:
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return val(JoinSelection(parts, ",")), true
	default:
		return val(OptionalText(s)), true
	}
}
