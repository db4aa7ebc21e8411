package nodes

import (
	"strconv"
	"strings"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

const (
	StepSearchName     core.Step = "search.name"
	StepSearchCategory core.Step = "search.category"
	StepSearchYear     core.Step = "search.year"
	StepSearchRating   core.Step = "search.rating"
)

// NoticeNeedNumber is shown when a year search gets something other than digits
const NoticeNeedNumber = "A number is needed, e.g. 2020."

func searchSteps(v core.Vocabulary) []core.StepDef {
	categories := func(core.Draft) []string { return v.Categories }
	scale := make([]string, 11)
	for i := range scale {
		scale[i] = strconv.Itoa(i)
	}

	name := core.StepDef{
		ID:        StepSearchName,
		Namespace: "sname",
		Terminal:  true,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: "Type part of the name:", Options: controls("sname", false, true)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			if ev.Kind != core.EventText {
				return stay(nil, "")
			}
			q, ok := RequiredText(ev.Text)
			if !ok {
				return stay(nil, "")
			}
			return core.Result{Set: core.Draft{core.KeySearchKind: string(pkg.QueryName), core.KeySearchText: q}, Finish: true}
		},
	}

	category := choiceStep(StepSearchCategory, "scat", core.KeySearchText, "Pick a category or type one:", core.StepNone,
		choiceOpts{items: categories, done: func(d core.Draft, value any) core.Result {
			return core.Result{Set: core.Draft{core.KeySearchKind: string(pkg.QueryCategory), core.KeySearchText: value}, Finish: true}
		}})
	category.Terminal = true

	year := core.StepDef{
		ID:        StepSearchYear,
		Namespace: "syear",
		Terminal:  true,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: "Type the year:", Options: controls("syear", false, true)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			if ev.Kind != core.EventText {
				return stay(nil, "")
			}
			y := OptionalInt(ev.Text)
			if y == nil {
				return core.Result{Finish: true, Notice: NoticeNeedNumber}
			}
			return core.Result{Set: core.Draft{core.KeySearchKind: string(pkg.QueryYear), core.KeySearchYear: *y}, Finish: true}
		},
	}

	rating := core.StepDef{
		ID:        StepSearchRating,
		Namespace: "srate",
		Terminal:  true,
		Prompt: func(d core.Draft) core.Prompt {
			return core.Prompt{Text: "Minimum rating:", Options: append(choices("srate", scale, nil), controls("srate", false, true)...)}
		},
		Handle: func(d core.Draft, ev core.Event, env core.Env) core.Result {
			var threshold int
			switch ev.Kind {
			case core.EventSelect:
				threshold = clampRating(ev.Index)
			case core.EventText:
				threshold = Rating(ev.Text)
			default:
				return stay(nil, "")
			}
			return core.Result{Set: core.Draft{core.KeySearchKind: string(pkg.QueryMinRating), core.KeySearchMin: threshold}, Finish: true}
		},
	}

	return []core.StepDef{name, category, year, rating}
}

// BuildQuery reads the query a finished search flow resolved to. It returns nil if the input was rejected.
func BuildQuery(d core.Draft) *pkg.Query {
	owner, _ := d.Int64(core.KeyOwner)
	kind, _ := d.String(core.KeySearchKind)
	q := pkg.Query{Kind: pkg.QueryKind(kind), OwnerID: owner}

	switch q.Kind {
	case pkg.QueryName:
		q.Text, _ = d.String(core.KeySearchText)
	case pkg.QueryCategory:
		text, _ := d.String(core.KeySearchText)
		q.Category = strings.TrimSpace(text)
	case pkg.QueryYear:
		y, ok := d.Int(core.KeySearchYear)
		if !ok {
			return nil
		}
		q.Year = y
	case pkg.QueryMinRating:
		q.MinRating, _ = d.Int(core.KeySearchMin)
	default:
		return nil
	}
	return &q
}
