package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/ui/theme"
)

// OptionList shows a batch of cards or options with a cursor. It never
// decides correctness; Resolved and Missed come from quiz state.
type OptionList struct {
	Items    []content.Item
	Selected int

	// Resolved is the id of the correctly chosen item, if any.
	Resolved string
	// Missed is the id of the last wrong pick, if still flagged.
	Missed string
	// ShowTranslation renders SecondaryText under each item.
	ShowTranslation bool
}

// NewOptionList creates a list with the cursor on the first item.
func NewOptionList(items []content.Item) OptionList {
	return OptionList{Items: items}
}

// Update moves the cursor. Number keys jump straight to an item; the
// returned bool reports that the learner picked the item under the cursor.
func (o OptionList) Update(msg tea.Msg) (OptionList, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok || len(o.Items) == 0 {
		return o, false
	}

	switch key := kmsg.String(); key {
	case "up", "k":
		if o.Selected > 0 {
			o.Selected--
		}
	case "down", "j":
		if o.Selected < len(o.Items)-1 {
			o.Selected++
		}
	case "enter":
		return o, true
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			if i := int(key[0] - '1'); i < len(o.Items) {
				o.Selected = i
				return o, true
			}
		}
	}
	return o, false
}

// Current returns the item under the cursor.
func (o OptionList) Current() (content.Item, bool) {
	if o.Selected < 0 || o.Selected >= len(o.Items) {
		return content.Item{}, false
	}
	return o.Items[o.Selected], true
}

// View renders the list at the given width.
func (o OptionList) View(width int) string {
	var b strings.Builder
	for i, it := range o.Items {
		prefix := "  "
		if i == o.Selected && o.Resolved == "" {
			prefix = "▸ "
		}

		label := it.PrimaryText
		if it.Kind == content.KindCard && it.ImageDescription != "" {
			label = fmt.Sprintf("%s  %s → %s", it.Glyph, it.ImageDescription, it.PrimaryText)
		} else if it.Glyph != "" && it.Kind == content.KindImage {
			label = it.Glyph + "  " + label
		}
		line := fmt.Sprintf("%s%d) %s", prefix, i+1, label)

		style := theme.Unselected
		switch {
		case o.Resolved != "" && it.ID == o.Resolved:
			style = theme.Correct
		case o.Resolved != "":
			style = theme.Faded
		case it.ID == o.Missed:
			style = theme.Incorrect
		case i == o.Selected:
			style = theme.Selected
		}

		b.WriteString(style.Width(width).Render(line))
		b.WriteString("\n")
		if o.ShowTranslation && it.SecondaryText != "" {
			b.WriteString(lipgloss.NewStyle().
				Foreground(theme.TextDim).
				Italic(true).
				Width(width).
				Render("      " + it.SecondaryText))
			b.WriteString("\n")
		}
	}
	return b.String()
}
