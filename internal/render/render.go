package render

import (
	"fmt"
	"strconv"
	"strings"

	"tasting_bot/internal/core"
	"tasting_bot/pkg"
)

// ShortRow is the one-line form used in search results
func ShortRow(t pkg.Tasting) string {
	return fmt.Sprintf("#%d [%s] %s", t.ID, t.Category, t.Name)
}

// Card renders a tasting with its infusions
func Card(t pkg.Tasting) string {
	lines := []string{t.Title(), fmt.Sprintf("⭐ Rating: %d", t.Rating)}
	if t.Grams != nil {
		lines = append(lines, "⚖️ Leaf: "+strconv.FormatFloat(*t.Grams, 'f', -1, 64)+" g")
	}
	if t.TempC != nil {
		lines = append(lines, fmt.Sprintf("🌡️ Water: %d °C", *t.TempC))
	}
	if t.TastedAt != nil && *t.TastedAt != "" {
		lines = append(lines, "⏰ Time: "+*t.TastedAt)
	}
	if t.Gear != nil && *t.Gear != "" {
		lines = append(lines, "🍶 Teaware: "+*t.Gear)
	}

	if t.AromaDry != nil || t.AromaWarmed != nil {
		lines = append(lines, "🌬️ Aroma:")
		if t.AromaDry != nil {
			lines = append(lines, "  ▫️ dry leaf: "+*t.AromaDry)
		}
		if t.AromaWarmed != nil {
			lines = append(lines, "  ▫️ warmed leaf: "+*t.AromaWarmed)
		}
	}

	if t.Effects != nil {
		lines = append(lines, "🧘 Effects: "+*t.Effects)
	}
	if t.Scenarios != nil {
		lines = append(lines, "🎯 Scenarios: "+*t.Scenarios)
	}
	if t.Summary != nil {
		lines = append(lines, "📝 Note: "+*t.Summary)
	}
	if n := len(t.Attachments); n > 0 {
		lines = append(lines, fmt.Sprintf("📷 Photos: %d", n))
	}

	if len(t.Infusions) > 0 {
		lines = append(lines, "🫖 Infusions:")
		for _, inf := range t.Infusions {
			lines = append(lines, InfusionLine(inf))
		}
	}
	return strings.Join(lines, "\n")
}

// InfusionLine renders one infusion; missing values show as "-"
func InfusionLine(inf pkg.Infusion) string {
	seconds := "-"
	if inf.Seconds != nil {
		seconds = strconv.Itoa(*inf.Seconds)
	}
	return fmt.Sprintf("  #%d: %s s; color: %s; taste: %s; notes: %s; body: %s; aftertaste: %s",
		inf.N, seconds, dash(inf.LiquorColor), dash(inf.Taste), dash(inf.SpecialNotes), dash(inf.Body), dash(inf.Aftertaste))
}

func dash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

// OptionLabel marks selected multi-select items
func OptionLabel(o core.Option) string {
	if o.Selected {
		return "✅ " + o.Label
	}
	return o.Label
}

// Prompt joins a notice and prompt text
func Prompt(notice string, p core.Prompt) string {
	if notice == "" {
		return p.Text
	}
	if p.Text == "" {
		return notice
	}
	return notice + "\n" + p.Text
}
