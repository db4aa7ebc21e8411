package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

func ptr[T any](v T) *T { return &v }

func TestCard(t *testing.T) {
	tasting := pkg.Tasting{
		ID:       7,
		Name:     "Silver Needle",
		Year:     ptr(2021),
		Region:   ptr("Fujian"),
		Category: "White",
		Grams:    ptr(5.5),
		Rating:   8,
		Summary:  ptr("sweet and clean"),
		Infusions: []pkg.Infusion{
			{N: 1, Seconds: ptr(30), Taste: ptr("Honey, Floral")},
			{N: 2},
		},
		Attachments: []pkg.Attachment{{FileID: "a"}},
	}

	card := Card(tasting)
	assert.Contains(t, card, "[White] Silver Needle (2021, Fujian)")
	assert.Contains(t, card, "⭐ Rating: 8")
	assert.Contains(t, card, "⚖️ Leaf: 5.5 g")
	assert.Contains(t, card, "📷 Photos: 1")
	assert.Contains(t, card, "  #1: 30 s; color: -; taste: Honey, Floral;")
	assert.Contains(t, card, "  #2: - s;")
	assert.NotContains(t, card, "Water")
}

func TestShortRow(t *testing.T) {
	assert.Equal(t, "#3 [Oolong] Tieguanyin", ShortRow(pkg.Tasting{ID: 3, Category: "Oolong", Name: "Tieguanyin"}))
}

func TestOptionLabelAndPrompt(t *testing.T) {
	assert.Equal(t, "✅ Floral", OptionLabel(core.Option{Label: "Floral", Selected: true}))
	assert.Equal(t, "Floral", OptionLabel(core.Option{Label: "Floral"}))

	assert.Equal(t, "Name?", Prompt("", core.Prompt{Text: "Name?"}))
	assert.Equal(t, "Saved.\nName?", Prompt("Saved.", core.Prompt{Text: "Name?"}))
}
