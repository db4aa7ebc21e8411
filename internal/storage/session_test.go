package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasting_bot/internal/core"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemorySessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySessionStore(time.Minute)

	step, err := m.GetStep(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.StepNone, step)

	require.NoError(t, m.UpdateDraft(ctx, "u1", core.Draft{"name": "Silver Needle"}))
	require.NoError(t, m.UpdateDraft(ctx, "u1", core.Draft{"year": 2021}))
	require.NoError(t, m.SetStep(ctx, "u1", "intake.region"))

	d, err := m.GetDraft(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, core.Draft{"name": "Silver Needle", "year": 2021}, d)

	// the returned draft is a copy
	d["name"] = "changed"
	again, _ := m.GetDraft(ctx, "u1")
	name, _ := again.String("name")
	assert.Equal(t, "Silver Needle", name)

	other, _ := m.GetDraft(ctx, "u2")
	assert.Empty(t, other)

	require.NoError(t, m.Clear(ctx, "u1"))
	step, _ = m.GetStep(ctx, "u1")
	assert.Equal(t, core.StepNone, step)
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemorySessionStore(10 * time.Minute)
	m.now = clock.now

	require.NoError(t, m.SetStep(ctx, "idle", "intake.name"))
	require.NoError(t, m.SetStep(ctx, "busy", "intake.name"))

	clock.advance(6 * time.Minute)
	require.NoError(t, m.UpdateDraft(ctx, "busy", core.Draft{"name": "x"}))

	clock.advance(6 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Len())

	step, _ := m.GetStep(ctx, "busy")
	assert.Equal(t, core.Step("intake.name"), step)

	clock.advance(11 * time.Minute)
	step, _ = m.GetStep(ctx, "busy")
	assert.Equal(t, core.StepNone, step, "expired on read")
	assert.Zero(t, m.Len())
}

func TestRunSweeperStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewMemorySessionStore(time.Minute)

	done := make(chan struct{})
	go func() {
		m.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
