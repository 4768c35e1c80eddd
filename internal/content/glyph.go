package content

import "strings"

// DefaultGlyph is used when no keyword matches.
const DefaultGlyph = "🖼️"

type glyphRule struct {
	keyword string
	glyph   string
}

// glyphRules is checked in order; the first keyword contained in the text
// wins.
var glyphRules = []glyphRule{
	// animals
	{"dog", "🐕"}, {"cat", "🐱"}, {"bird", "🐦"}, {"fish", "🐟"},
	{"horse", "🐴"}, {"elephant", "🐘"}, {"lion", "🦁"}, {"rabbit", "🐰"},
	// nature
	{"tree", "🌳"}, {"flower", "🌸"}, {"sun", "☀️"}, {"moon", "🌙"},
	{"star", "⭐"}, {"mountain", "⛰️"}, {"ocean", "🌊"}, {"cloud", "☁️"},
	// objects
	{"car", "🚗"}, {"house", "🏠"}, {"book", "📚"}, {"phone", "📱"},
	{"computer", "💻"}, {"clock", "🕐"}, {"key", "🔑"}, {"ball", "⚽"},
	// food
	{"apple", "🍎"}, {"banana", "🍌"}, {"pizza", "🍕"}, {"cake", "🎂"},
	{"coffee", "☕"}, {"water", "💧"},
	// people and activities
	{"person", "👤"}, {"running", "🏃"}, {"swimming", "🏊"}, {"reading", "📖"},
	{"writing", "✍️"}, {"sleeping", "😴"}, {"thinking", "🤔"},
	// school
	{"pencil", "✏️"}, {"notebook", "📓"}, {"ruler", "📏"}, {"backpack", "🎒"},
}

// GlyphFor returns the emoji for the first keyword found in text.
func GlyphFor(text string) string {
	lower := strings.ToLower(text)
	for _, r := range glyphRules {
		if strings.Contains(lower, r.keyword) {
			return r.glyph
		}
	}
	return DefaultGlyph
}
