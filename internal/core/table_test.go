package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(id Step, ns string, next Step) StepDef {
	return StepDef{
		ID:        id,
		Namespace: ns,
		Next:      next,
		Prompt:    func(Draft) Prompt { return Prompt{} },
		Handle:    func(Draft, Event, Env) Result { return Result{} },
	}
}

func TestTableAdd(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(step("intake.a", "a", "intake.b")))

	assert.Error(t, tbl.Add(step("intake.a", "z", "")), "duplicate id")
	assert.Error(t, tbl.Add(step("intake.b", "a", "")), "duplicate namespace")
	assert.Error(t, tbl.Add(step("intake.c", "", "")), "missing namespace")
	assert.Error(t, tbl.Add(step("", "e", "")), "missing id")
	assert.Error(t, tbl.Add(StepDef{ID: "intake.d", Namespace: "d"}), "missing handler")

	got, ok := tbl.ByNamespace("a")
	assert.True(t, ok)
	assert.Equal(t, Step("intake.a"), got)
	assert.Equal(t, Step("intake.a"), tbl.First(FlowIntake))
	assert.Equal(t, StepNone, tbl.First(FlowSearch))
}

func TestTableValidate(t *testing.T) {
	tbl := NewTable()
	require.NoError(t, tbl.Add(step("intake.a", "a", "intake.b")))
	assert.Error(t, tbl.Validate(), "dangling successor")

	b := step("intake.b", "b", "")
	require.NoError(t, tbl.Add(b))
	assert.Error(t, tbl.Validate(), "dead end")

	tbl = NewTable()
	require.NoError(t, tbl.Add(step("intake.a", "a", "intake.b")))
	b.Terminal = true
	b.Branches = []Step{"intake.a"}
	require.NoError(t, tbl.Add(b))
	require.NoError(t, tbl.Validate())

	assert.ElementsMatch(t, []Step{"intake.a"}, tbl.Edges()["intake.b"])
	assert.Equal(t, []Step{"intake.a", "intake.b"}, tbl.Steps(FlowIntake))
}

func TestStepFlow(t *testing.T) {
	assert.Equal(t, FlowInfusion, Step("infusion.seconds").Flow())
	assert.Equal(t, Flow("bare"), Step("bare").Flow())
}
