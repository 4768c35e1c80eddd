package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cardquiz/internal/content"
)

var previewCmd = &cobra.Command{
	Use:   "preview <kind>",
	Short: "Generate one content batch and print it",
	Long: `Generate a batch of cards, descriptions, words or images for a topic.

Non-card kinds need a reference card. Descriptions and words are built from
its picture (--picture), images from its sentence (--reference). When the
needed one is missing a card batch is generated first and its odd card is
used. Generation outcomes are recorded like in a real session.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"cards", "descriptions", "words", "images"},
	RunE:      runPreview,
}

func init() {
	previewCmd.Flags().String("topic", "", "Topic for the batch (required)")
	previewCmd.Flags().Float64("difficulty", 1.0, "Difficulty level for card batches")
	previewCmd.Flags().String("reference", "", "Sentence of the reference card (images)")
	previewCmd.Flags().String("picture", "", "Picture description of the reference card (descriptions, words)")
	previewCmd.Flags().Bool("json", false, "Print the batch as JSON")
	_ = previewCmd.MarkFlagRequired("topic")
}

func runPreview(cmd *cobra.Command, args []string) error {
	kind, ok := content.ParseKind(strings.ToLower(args[0]))
	if !ok {
		return fmt.Errorf("unknown kind %q: must be cards, descriptions, words or images", args[0])
	}
	topic, _ := cmd.Flags().GetString("topic")
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return fmt.Errorf("--topic must not be empty")
	}
	difficulty, _ := cmd.Flags().GetFloat64("difficulty")
	refText, _ := cmd.Flags().GetString("reference")
	picture, _ := cmd.Flags().GetString("picture")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx := cmd.Context()
	d, err := openDeps(ctx, cmd, depOptions{})
	if err != nil {
		return err
	}
	defer d.Close()

	ref := content.Item{Kind: content.KindCard, PrimaryText: refText, ImageDescription: picture}
	if content.ReferenceField(kind) != "" && content.ReferenceValue(kind, ref) == "" {
		cards := d.content.GenerateCards(ctx, topic, difficulty, nil)
		odd, ok := cards.Answer()
		if !ok {
			return fmt.Errorf("card batch has no mismatched card")
		}
		ref = odd
		fmt.Fprintf(os.Stderr, "reference: %s / %s\n", ref.ImageDescription, ref.PrimaryText)
	}

	batch, err := d.content.Generate(ctx, kind, topic, difficulty, ref)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(batch)
	}
	printBatch(batch)
	return nil
}

func printBatch(b content.Batch) {
	origin := string(b.Origin)
	if b.Reason != "" {
		origin += " (" + b.Reason + ")"
	}
	fmt.Printf("Kind:   %s\n", b.Kind)
	fmt.Printf("Origin: %s\n\n", origin)

	fmt.Printf("%-3s  %-10s  %-40s  %s\n", "", "ID", "Text", "Extra")
	fmt.Println(strings.Repeat("─", 80))
	for _, it := range b.Items {
		mark := " "
		if it.IsAnswer() {
			mark = "*"
		}
		extra := it.SecondaryText
		if it.ImageURL != "" {
			extra = it.ImageURL
		}
		fmt.Printf("%s%-2s  %-10s  %-40s  %s\n", mark, it.Glyph, truncate(it.ID, 10), truncate(it.PrimaryText, 40), extra)
	}
	fmt.Println()
	fmt.Println("* marks the item the learner must pick")
}
