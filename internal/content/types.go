// Package content produces quiz batches from a language model. Every
// operation resolves: transport, parse and validation failures are absorbed
// and replaced by a fixed fallback batch for the same kind.
package content

import "strings"

// BatchSize is the number of items in every batch.
const BatchSize = 5

// Kind identifies what a batch contains.
type Kind string

const (
	KindCard        Kind = "card"
	KindDescription Kind = "description"
	KindWord        Kind = "word"
	KindImage       Kind = "image"

	// KindExplanation labels explanation feedback in telemetry. It never
	// appears on a Batch.
	KindExplanation Kind = "explanation"
)

// Kinds lists the batch kinds in the order a round uses them.
var Kinds = []Kind{KindCard, KindDescription, KindWord, KindImage}

// ParseKind accepts a kind name or its plural.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "card", "cards":
		return KindCard, true
	case "description", "descriptions", "desc":
		return KindDescription, true
	case "word", "words":
		return KindWord, true
	case "image", "images", "img":
		return KindImage, true
	}
	return "", false
}

// idPrefix is used for positional id fallbacks.
func (k Kind) idPrefix() string {
	switch k {
	case KindCard:
		return "card"
	case KindDescription:
		return "desc"
	case KindWord:
		return "word"
	case KindImage:
		return "img"
	}
	return string(k)
}

// Purpose is the llm purpose label for requests of this kind.
func (k Kind) Purpose() string {
	switch k {
	case KindCard:
		return "card-gen"
	case KindDescription:
		return "description-gen"
	case KindWord:
		return "word-gen"
	case KindImage:
		return "image-gen"
	case KindExplanation:
		return "explanation-eval"
	}
	return "unknown"
}

// ReferenceField names the reference item field a batch of kind is built
// from: the picture for descriptions and words, the sentence for images.
// Cards take no reference and return "".
func ReferenceField(kind Kind) string {
	switch kind {
	case KindDescription, KindWord:
		return "image_description"
	case KindImage:
		return "primary_text"
	}
	return ""
}

// ReferenceValue returns the value of ReferenceField(kind) in ref.
func ReferenceValue(kind Kind, ref Item) string {
	switch ReferenceField(kind) {
	case "image_description":
		return strings.TrimSpace(ref.ImageDescription)
	case "primary_text":
		return strings.TrimSpace(ref.PrimaryText)
	}
	return ""
}

// Origin tells whether content came from the model or a fallback table.
type Origin string

const (
	OriginLive     Origin = "live"
	OriginFallback Origin = "fallback"
)

// Item is one card, description, word or image option.
type Item struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// PrimaryText is the card sentence, description text, word, or image
	// description depending on Kind.
	PrimaryText string `json:"primary_text"`

	// SecondaryText is the translation for cards and the label for images.
	SecondaryText string `json:"secondary_text,omitempty"`

	ImageDescription string `json:"image_description,omitempty"`
	Glyph            string `json:"glyph"`
	ImageURL         string `json:"image_url,omitempty"`

	// IsCorrect is false on the mismatched card, and true on the correct
	// option for every other kind.
	IsCorrect bool `json:"is_correct"`
}

// IsAnswer reports whether the item is the one the learner must pick.
func (i Item) IsAnswer() bool {
	if i.Kind == KindCard {
		return !i.IsCorrect
	}
	return i.IsCorrect
}

// Batch is the set of items for one quiz step.
type Batch struct {
	Kind   Kind   `json:"kind"`
	Items  []Item `json:"items"`
	Origin Origin `json:"origin"`

	// Reason is the absorbed failure for fallback batches.
	Reason string `json:"reason,omitempty"`
}

// Degraded reports whether the batch came from a fallback table.
func (b Batch) Degraded() bool { return b.Origin == OriginFallback }

// Answer returns the batch's answer item.
func (b Batch) Answer() (Item, bool) {
	for _, it := range b.Items {
		if it.IsAnswer() {
			return it, true
		}
	}
	return Item{}, false
}

// Find returns the item with the given id.
func (b Batch) Find(id string) (Item, bool) {
	for _, it := range b.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Clone returns a copy whose Items slice is not shared.
func (b Batch) Clone() Batch {
	b.Items = append([]Item(nil), b.Items...)
	return b
}

// Feedback is the model's response to a learner's explanation.
type Feedback struct {
	Text   string `json:"text"`
	Origin Origin `json:"origin"`
	Reason string `json:"reason,omitempty"`
}

func countAnswers(items []Item) int {
	n := 0
	for _, it := range items {
		if it.IsAnswer() {
			n++
		}
	}
	return n
}
