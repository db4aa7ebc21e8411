package nodes

import (
	"fmt"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

func infusionNumber(d core.Draft) int {
	n, ok := d.Int(core.KeyInfusionN)
	if !ok || n < 1 {
		return 1
	}
	return n
}

// resetInfusion clears the infusion under construction
func resetInfusion(d core.Draft) core.Draft {
	return core.Draft{
		core.KeyInfusionN:     infusionNumber(d),
		core.KeyCurSeconds:    nil,
		core.KeyCurColor:      nil,
		core.KeyCurTaste:      nil,
		core.KeyCurSpecial:    nil,
		core.KeyCurBody:       nil,
		core.KeyCurAftertaste: nil,
	}
}

// flushInfusion appends the current infusion and bumps the counter
func flushInfusion(d core.Draft, aftertaste *string) core.Draft {
	n := infusionNumber(d)
	inf := pkg.Infusion{
		N:            n,
		Seconds:      d.IntPtr(core.KeyCurSeconds),
		LiquorColor:  d.StringPtr(core.KeyCurColor),
		Taste:        d.StringPtr(core.KeyCurTaste),
		SpecialNotes: d.StringPtr(core.KeyCurSpecial),
		Body:         d.StringPtr(core.KeyCurBody),
		Aftertaste:   aftertaste,
	}
	return core.Draft{
		core.KeyInfusions:     append(d.Infusions(), inf),
		core.KeyInfusionN:     n + 1,
		core.KeyCurAftertaste: val(aftertaste),
	}
}

func infusionSteps(v core.Vocabulary) []core.StepDef {
	seconds := parseStep(StepInfSeconds, "isec", core.KeyCurSeconds, "", StepInfColor,
		func(s string) any { return val(OptionalInt(s)) })
	seconds.Prompt = func(d core.Draft) core.Prompt {
		text := fmt.Sprintf("Infusion %d. Steep time, seconds?", infusionNumber(d))
		return core.Prompt{Text: text, Options: controls("isec", true, true)}
	}
	seconds.Enter = resetInfusion

	bodies := func(core.Draft) []string { return v.Bodies }

	aftertaste := multiStep(StepInfAftertaste, "iafter", core.KeyCurAftertaste, "Aftertaste:", v.Aftertaste, StepInfMore,
		multiOpts{done: func(d core.Draft, value *string) core.Result {
			return core.Result{Set: flushInfusion(d, value)}
		}})

	return []core.StepDef{
		seconds,
		textStep(StepInfColor, "icolor", core.KeyCurColor, "Liquor color?", StepInfTaste, textOpts{}),
		multiStep(StepInfTaste, "itaste", core.KeyCurTaste, "Taste:", v.Descriptors, StepInfSpecial, multiOpts{}),
		textStep(StepInfSpecial, "ispec", core.KeyCurSpecial, "Special notes?", StepInfBody, textOpts{}),
		choiceStep(StepInfBody, "ibody", core.KeyCurBody, "Body?", StepInfAftertaste, choiceOpts{items: bodies, skip: true}),
		aftertaste,
		moreStep(),
	}
}

// moreStep loops back for another infusion or moves on to tags.
// Back is disabled because the previous infusion is already flushed.
func moreStep() core.StepDef {
	const ns = "imore"
	return core.StepDef{
		ID:        StepInfMore,
		Namespace: ns,
		Next:      StepEffects,
		Branches:  []core.Step{StepInfSeconds},
		NoBack:    true,
		Prompt: func(d core.Draft) core.Prompt {
			text := fmt.Sprintf("Infusions recorded: %d. Another one?", len(d.Infusions()))
			return core.Prompt{Text: text, Options: []core.Option{
				{Label: "Next infusion", Token: core.Token(ns, "more")},
				{Label: "Finish infusions", Token: core.Token(ns, "done")},
			}}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			switch ev.Kind {
			case core.EventContinue:
				return core.Result{Next: StepInfSeconds}
			case core.EventDone, core.EventSkip:
				return core.Result{Next: StepEffects}
			default:
				return stay(nil, "")
			}
		},
	}
}

func tagSteps(v core.Vocabulary) []core.StepDef {
	return []core.StepDef{
		multiStep(StepEffects, "eff", core.KeyEffects, "Effects:", v.Effects, StepScenarios, multiOpts{sep: ","}),
		multiStep(StepScenarios, "scn", core.KeyScenarios, "Scenarios:", v.Scenarios, StepRating, multiOpts{sep: ","}),
	}
}
