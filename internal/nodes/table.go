package nodes

import (
	"context"
	"fmt"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

// TastingWriter persists a complete aggregate atomically
type TastingWriter interface {
	Create(ctx context.Context, t pkg.Tasting) (int64, error)
}

// FieldEditor applies one field change on behalf of an owner
type FieldEditor interface {
	UpdateField(ctx context.Context, ownerID, tastingID int64, field string, value any) error
}

// BuildTable registers every flow: intake, infusion, tags, edit and search
func BuildTable(v core.Vocabulary) (*core.Table, error) {
	v = v.Merge(core.DefaultVocabulary())
	table := core.NewTable()

	groups := [][]core.StepDef{
		intakeSteps(v),
		infusionSteps(v),
		tagSteps(v),
		editSteps(v),
		searchSteps(v),
	}
	for _, steps := range groups {
		for _, def := range steps {
			if err := table.Add(def); err != nil {
				return nil, fmt.Errorf("failed to register step: %w", err)
			}
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Assemble converts a finished intake draft into an aggregate and stores it.
// The draft is not modified.
func Assemble(ctx context.Context, w TastingWriter, d core.Draft) (int64, error) {
	t := BuildTasting(d)
	if t.OwnerID == 0 {
		return 0, fmt.Errorf("draft has no owner")
	}
	id, err := w.Create(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("failed to assemble tasting: %w", err)
	}
	return id, nil
}

// Finishers wires flow completions to persistence
func Finishers(w TastingWriter, e FieldEditor) []core.ControllerOption {
	return []core.ControllerOption{
		core.WithFinisher(core.FlowIntake, func(ctx context.Context, sessionID string, d core.Draft) (*core.Completion, error) {
			id, err := Assemble(ctx, w, d)
			if err != nil {
				return nil, err
			}
			return &core.Completion{Flow: core.FlowIntake, TastingID: id}, nil
		}),
		core.WithFinisher(core.FlowEdit, func(ctx context.Context, sessionID string, d core.Draft) (*core.Completion, error) {
			owner, _ := d.Int64(core.KeyOwner)
			id, ok := d.Int64(core.KeyEditID)
			if !ok {
				return nil, fmt.Errorf("edit session has no tasting id")
			}
			field, _ := d.String(core.KeyEditField)
			if _, ok := LookupEditable(field); !ok {
				return nil, fmt.Errorf("field %q is not editable", field)
			}
			if err := e.UpdateField(ctx, owner, id, field, d[core.KeyEditValue]); err != nil {
				return nil, err
			}
			return &core.Completion{Flow: core.FlowEdit, TastingID: id}, nil
		}),
		core.WithFinisher(core.FlowSearch, func(ctx context.Context, sessionID string, d core.Draft) (*core.Completion, error) {
			q := BuildQuery(d)
			c := &core.Completion{Flow: core.FlowSearch, Search: q}
			if q == nil {
				c.Notice = NoticeNeedNumber
			}
			return c, nil
		}),
	}
}
