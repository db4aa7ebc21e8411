package core

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasting_bot/pkg"
)

func TestDraftSurvivesJSON(t *testing.T) {
	secs := 20
	body := "oily"
	d := Draft{
		KeyOwner:   int64(123456789012),
		KeyYear:    2019,
		KeyGrams:   5.5,
		KeyRegion:  nil,
		KeyHistory: []string{"intake.name", "intake.year"},
		KeyInfusions: []pkg.Infusion{
			{N: 1, Seconds: &secs, Body: &body},
			{N: 2},
		},
	}

	raw, err := sonic.Marshal(d)
	require.NoError(t, err)
	var back Draft
	require.NoError(t, sonic.Unmarshal(raw, &back))

	owner, ok := back.Int64(KeyOwner)
	assert.True(t, ok)
	assert.Equal(t, int64(123456789012), owner)

	year, ok := back.Int(KeyYear)
	assert.True(t, ok)
	assert.Equal(t, 2019, year)

	require.NotNil(t, back.FloatPtr(KeyGrams))
	assert.Equal(t, 5.5, *back.FloatPtr(KeyGrams))

	assert.True(t, back.Has(KeyRegion))
	assert.Nil(t, back.StringPtr(KeyRegion))

	assert.Equal(t, []string{"intake.name", "intake.year"}, back.Strings(KeyHistory))
	assert.Equal(t, d.Infusions(), back.Infusions())
}

func TestDraftCloneIsDeep(t *testing.T) {
	d := Draft{"list": []string{"a"}, KeyInfusions: []pkg.Infusion{{N: 1}}}
	c := d.Clone()
	c["list"].([]string)[0] = "changed"
	c[KeyInfusions].([]pkg.Infusion)[0].N = 5

	assert.Equal(t, []string{"a"}, d.Strings("list"))
	assert.Equal(t, 1, d.Infusions()[0].N)
}

func TestDraftAccessors(t *testing.T) {
	d := Draft{"s": "x", "n": "12", "bad": "x1", "b": true}

	_, ok := d.Int("bad")
	assert.False(t, ok)
	n, ok := d.Int("n")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.Nil(t, d.IntPtr("missing"))
	assert.True(t, d.Bool("b"))
	assert.False(t, d.Bool("s"))

	s, ok := d.String("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = d.String("n2")
	assert.False(t, ok)
}
