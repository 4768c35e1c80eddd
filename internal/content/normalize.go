package content

import (
	"fmt"
	"strconv"
)

// normalize converts decoded model objects into items. Text fields are
// copied verbatim; ids are filled and made unique; isCorrect is coerced with
// a kind-specific default.
func normalize(kind Kind, elems []map[string]any) []Item {
	items := make([]Item, len(elems))
	seen := make(map[string]bool, len(elems))

	for i, el := range elems {
		it := Item{Kind: kind}
		switch kind {
		case KindCard:
			it.ImageDescription = orDefault(text(el["imageDescription"]), "Image")
			it.PrimaryText = text(el["sentence"])
			it.SecondaryText = text(el["translation"])
			it.Glyph = GlyphFor(it.ImageDescription)
		case KindImage:
			it.ImageDescription = orDefault(text(el["imageDescription"]), "Image")
			it.PrimaryText = it.ImageDescription
			it.SecondaryText = text(el["label"])
			it.Glyph = GlyphFor(it.ImageDescription)
		default:
			it.PrimaryText = text(el["text"])
			it.SecondaryText = text(el["translation"])
			it.Glyph = GlyphFor(it.PrimaryText)
		}
		it.IsCorrect = coerceCorrect(kind, el["isCorrect"])

		id := text(el["id"])
		if id == "" || seen[id] {
			id = positionalID(kind, i, seen)
		}
		seen[id] = true
		it.ID = id

		items[i] = it
	}
	return items
}

// coerceCorrect: cards are correct unless explicitly false; every other
// kind is incorrect unless explicitly true.
func coerceCorrect(kind Kind, v any) bool {
	b, isBool := v.(bool)
	if kind == KindCard {
		return !(isBool && !b)
	}
	return isBool && b
}

func positionalID(kind Kind, index int, seen map[string]bool) string {
	id := fmt.Sprintf("%s_%d", kind.idPrefix(), index+1)
	for n := 2; seen[id]; n++ {
		id = fmt.Sprintf("%s_%d_%d", kind.idPrefix(), index+1, n)
	}
	return id
}

func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
