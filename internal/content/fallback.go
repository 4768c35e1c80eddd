package content

import "strings"

// The fallback tables below are data: a lookup picks the first entry whose
// keyword appears in the reference text and otherwise uses the default.
// Every table yields BatchSize items with exactly one answer.

// card carries its glyph explicitly; keyword matching on the picture text
// can pick the wrong emoji ("street" contains "tree").
type card struct {
	glyph, image, sentence, translation string
	matches                             bool
}

type cardSet struct {
	keywords []string
	cards    []card
}

var cardSets = []cardSet{
	{
		keywords: []string{"food", "fruit", "yemek", "meyve", "yiyecek"},
		cards: []card{
			{"🍎", "A red apple on a table", "The apple is red.", "Elma kırmızı.", true},
			{"🍌", "A yellow banana", "I like bananas.", "Muzları severim.", true},
			{"🍕", "A slice of pizza", "The pizza is hot.", "Pizza sıcak.", true},
			{"☕", "A cup of coffee", "The cake is sweet.", "Pasta tatlı.", false},
			{"💧", "A glass of water", "I drink water.", "Su içiyorum.", true},
		},
	},
	{
		keywords: []string{"school", "class", "okul", "sınıf", "ders"},
		cards: []card{
			{"✏️", "A yellow pencil", "This is my pencil.", "Bu benim kalemim.", true},
			{"🎒", "A blue backpack", "My backpack is blue.", "Çantam mavi.", true},
			{"📏", "A wooden ruler", "The ruler is long.", "Cetvel uzun.", true},
			{"📓", "An open notebook", "I write in my notebook.", "Defterime yazıyorum.", true},
			{"🕐", "A clock on the wall", "The ball is round.", "Top yuvarlak.", false},
		},
	},
}

var defaultCards = []card{
	{"🐕", "A brown dog running in the park", "The dog is running.", "Köpek koşuyor.", true},
	{"🐱", "A sleeping cat on a sofa", "The cat is sleeping.", "Kedi uyuyor.", true},
	{"🚗", "A red car on the street", "The tree is very tall.", "Ağaç çok uzun.", false},
	{"☀️", "A bright sun in blue sky", "The sun is shining.", "Güneş parlıyor.", true},
	{"📚", "A person reading a book", "I am reading a book.", "Bir kitap okuyorum.", true},
}

// FallbackCards returns the fixed card set for topic.
func FallbackCards(topic string) []Item {
	set := defaultCards
	lower := strings.ToLower(topic)
	for _, cs := range cardSets {
		if containsAny(lower, cs.keywords) {
			set = cs.cards
			break
		}
	}

	items := make([]Item, len(set))
	for i, c := range set {
		items[i] = Item{
			ID:               positional(KindCard, i),
			Kind:             KindCard,
			PrimaryText:      c.sentence,
			SecondaryText:    c.translation,
			ImageDescription: c.image,
			Glyph:            c.glyph,
			IsCorrect:        c.matches,
		}
	}
	return items
}

var descriptionDistractors = []string{
	"Bu görselde bir ev var",
	"Bu görselde bir araba var",
	"Bu görselde bir ağaç var",
	"Bu görselde bir kuş var",
}

// FallbackDescriptions builds descriptions around the reference picture.
func FallbackDescriptions(ref Item) []Item {
	texts := append([]string{
		"Bu görselde " + strings.ToLower(ref.ImageDescription) + " görünüyor",
	}, descriptionDistractors...)
	items := optionItems(KindDescription, texts)
	if ref.Glyph != "" {
		items[0].Glyph = ref.Glyph
	}
	return items
}

type keywordValue struct {
	keyword, value string
}

var wordRules = []keywordValue{
	{"dog", "Dog"}, {"cat", "Cat"}, {"car", "Car"}, {"tree", "Tree"},
	{"sun", "Sun"}, {"book", "Book"}, {"house", "House"}, {"bird", "Bird"},
}

var wordDistractors = []string{"Apple", "Water", "Chair", "Phone"}

// FallbackWords names the main object of the reference picture.
func FallbackWords(ref Item) []Item {
	word := lookup(wordRules, ref.ImageDescription, "Object")
	return optionItems(KindWord, append([]string{word}, wordDistractors...))
}

var imageRules = []keywordValue{
	{"tree", "A tall green tree"}, {"dog", "A happy dog"}, {"cat", "A cute cat"},
	{"sun", "A bright sun"}, {"book", "An open book"}, {"car", "A red car"},
}

var imageDistractors = []keywordValue{
	{"A small house", "Ev"},
	{"A flying bird", "Kuş"},
	{"A red apple", "Elma"},
}

// FallbackImages picks the picture matching the reference sentence. The
// mismatched card's own picture is one of the distractors.
func FallbackImages(ref Item) []Item {
	correct := lookup(imageRules, ref.PrimaryText, "A matching image")
	label := strings.Join(firstN(strings.Fields(correct), 2), " ")

	items := []Item{imageItem(0, correct, label, true)}
	for i, d := range imageDistractors {
		items = append(items, imageItem(i+1, d.keyword, d.value, false))
	}
	wrong := imageItem(len(items), orDefault(ref.ImageDescription, "Image"), "Yanlış", false)
	if ref.Glyph != "" {
		wrong.Glyph = ref.Glyph
	}
	return append(items, wrong)
}

// FallbackFeedback is returned when explanation evaluation fails.
const FallbackFeedback = "Gerekçen değerlendirildi. Öğrenmeye devam! 📚"

// Fallback returns the fallback items for kind. topic selects card sets; ref
// drives every other kind.
func Fallback(kind Kind, topic string, ref Item) []Item {
	switch kind {
	case KindCard:
		return FallbackCards(topic)
	case KindDescription:
		return FallbackDescriptions(ref)
	case KindWord:
		return FallbackWords(ref)
	case KindImage:
		return FallbackImages(ref)
	}
	return nil
}

// optionItems marks the first text as the answer.
func optionItems(kind Kind, texts []string) []Item {
	items := make([]Item, len(texts))
	for i, t := range texts {
		items[i] = Item{
			ID:          positional(kind, i),
			Kind:        kind,
			PrimaryText: t,
			Glyph:       GlyphFor(t),
			IsCorrect:   i == 0,
		}
	}
	return items
}

func imageItem(i int, desc, label string, correct bool) Item {
	return Item{
		ID:               positional(KindImage, i),
		Kind:             KindImage,
		PrimaryText:      desc,
		SecondaryText:    label,
		ImageDescription: desc,
		Glyph:            GlyphFor(desc),
		IsCorrect:        correct,
	}
}

func positional(kind Kind, i int) string {
	return positionalID(kind, i, nil)
}

func lookup(rules []keywordValue, text, def string) string {
	lower := strings.ToLower(text)
	for _, r := range rules {
		if strings.Contains(lower, r.keyword) {
			return r.value
		}
	}
	return def
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
