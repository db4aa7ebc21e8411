package nodes

import (
	"fmt"
	"strconv"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

// Step identifiers
const (
	StepName        core.Step = "intake.name"
	StepYear        core.Step = "intake.year"
	StepRegion      core.Step = "intake.region"
	StepCategory    core.Step = "intake.category"
	StepGrams       core.Step = "intake.grams"
	StepTemp        core.Step = "intake.temp"
	StepTime        core.Step = "intake.time"
	StepGear        core.Step = "intake.gear"
	StepAromaDry    core.Step = "intake.aroma_dry"
	StepAromaWarmed core.Step = "intake.aroma_warmed"
	StepRating      core.Step = "intake.rating"
	StepSummary     core.Step = "intake.summary"
	StepPhotos      core.Step = "intake.photos"

	StepInfSeconds    core.Step = "infusion.seconds"
	StepInfColor      core.Step = "infusion.color"
	StepInfTaste      core.Step = "infusion.taste"
	StepInfSpecial    core.Step = "infusion.special"
	StepInfBody       core.Step = "infusion.body"
	StepInfAftertaste core.Step = "infusion.aftertaste"
	StepInfMore       core.Step = "infusion.more"

	StepEffects   core.Step = "tags.effects"
	StepScenarios core.Step = "tags.scenarios"
)

// MaxPhotos caps attachments per tasting
const MaxPhotos = 3

func intakeSteps(v core.Vocabulary) []core.StepDef {
	categories := func(core.Draft) []string { return v.Categories }

	name := textStep(StepName, "name", core.KeyName, "Tea name?", StepYear, textOpts{required: true})
	name.NoBack = true

	return []core.StepDef{
		name,
		parseStep(StepYear, "year", core.KeyYear, "Year of harvest? Digits, or skip.", StepRegion,
			func(s string) any { return val(OptionalInt(s)) }),
		textStep(StepRegion, "region", core.KeyRegion, "Region?", StepCategory, textOpts{}),
		choiceStep(StepCategory, "cat", core.KeyCategory, "Category?", StepGrams, choiceOpts{items: categories}),
		parseStep(StepGrams, "grams", core.KeyGrams, "Leaf weight, grams?", StepTemp,
			func(s string) any { return val(OptionalDecimal(s)) }),
		parseStep(StepTemp, "temp", core.KeyTempC, "Water temperature, °C?", StepTime,
			func(s string) any { return val(WholeNumber(s)) }),
		timeStep(StepTime, "time", core.KeyTastedAt, "Time of tasting? HH:MM or Now.", StepGear),
		textStep(StepGear, "gear", core.KeyGear, "Teaware?", StepAromaDry, textOpts{}),
		multiStep(StepAromaDry, "adry", core.KeyAromaDry, "Aroma of the dry leaf:", v.Descriptors, StepAromaWarmed, multiOpts{}),
		multiStep(StepAromaWarmed, "awarm", core.KeyAromaWarmed, "Aroma of the warmed or rinsed leaf:", v.Descriptors, StepInfSeconds, multiOpts{}),
		ratingStep(),
		textStep(StepSummary, "sum", core.KeySummary, "Summary note?", StepPhotos, textOpts{}),
		photosStep(),
	}
}

func ratingStep() core.StepDef {
	const ns = "rate"
	scale := make([]string, 11)
	for i := range scale {
		scale[i] = strconv.Itoa(i)
	}
	return core.StepDef{
		ID:        StepRating,
		Namespace: ns,
		Field:     core.KeyRating,
		Next:      StepSummary,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: "Rating from 0 to 10?", Options: append(choices(ns, scale, nil), controls(ns, false, true)...)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			switch ev.Kind {
			case core.EventSelect:
				return core.Result{Set: core.Draft{core.KeyRating: clampRating(ev.Index)}}
			case core.EventText:
				return core.Result{Set: core.Draft{core.KeyRating: Rating(ev.Text)}}
			default:
				return stay(nil, "")
			}
		},
	}
}

func photosStep() core.StepDef {
	const ns = "photo"
	return core.StepDef{
		ID:        StepPhotos,
		Namespace: ns,
		Field:     core.KeyPhotos,
		Terminal:  true,
		Prompt: func(d core.Draft) core.Prompt {
			n := len(d.Strings(core.KeyPhotos))
			text := fmt.Sprintf("Send up to %d photos, then press Done. Attached: %d.", MaxPhotos, n)
			opts := []core.Option{{Label: labelDone, Token: core.Token(ns, "done")}}
			return core.Prompt{Text: text, Options: append(opts, controls(ns, true, true)...)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			photos := d.Strings(core.KeyPhotos)
			switch ev.Kind {
			case core.EventAttachment:
				if ev.FileID == "" {
					return stay(nil, "")
				}
				if len(photos) >= MaxPhotos {
					return stay(nil, fmt.Sprintf("Only %d photos can be attached. Press Done.", MaxPhotos))
				}
				photos = append(photos, ev.FileID)
				return stay(core.Draft{core.KeyPhotos: photos}, fmt.Sprintf("Photo saved (%d/%d).", len(photos), MaxPhotos))
			case core.EventDone:
				return core.Result{Finish: true}
			case core.EventSkip:
				return core.Result{Set: core.Draft{core.KeyPhotos: nil}, Finish: true}
			default:
				return stay(nil, "")
			}
		},
	}
}

// BuildTasting converts a finished intake draft into an aggregate
func BuildTasting(d core.Draft) pkg.Tasting {
	owner, _ := d.Int64(core.KeyOwner)
	name, _ := d.String(core.KeyName)
	category, _ := d.String(core.KeyCategory)
	rating, _ := d.Int(core.KeyRating)

	t := pkg.Tasting{
		OwnerID:     owner,
		Name:        name,
		Year:        d.IntPtr(core.KeyYear),
		Region:      d.StringPtr(core.KeyRegion),
		Category:    category,
		Grams:       d.FloatPtr(core.KeyGrams),
		TempC:       d.IntPtr(core.KeyTempC),
		TastedAt:    d.StringPtr(core.KeyTastedAt),
		Gear:        d.StringPtr(core.KeyGear),
		AromaDry:    d.StringPtr(core.KeyAromaDry),
		AromaWarmed: d.StringPtr(core.KeyAromaWarmed),
		Effects:     d.StringPtr(core.KeyEffects),
		Scenarios:   d.StringPtr(core.KeyScenarios),
		Rating:      clampRating(rating),
		Summary:     d.StringPtr(core.KeySummary),
		Infusions:   d.Infusions(),
	}
	for _, id := range d.Strings(core.KeyPhotos) {
		t.Attachments = append(t.Attachments, pkg.Attachment{FileID: id})
	}
	return t
}
