package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/cardquiz/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show content generation statistics",
	Long:  "Summarize how often each content kind came from the model versus the built-in fallback tables.",
	RunE: func(cmd *cobra.Command, args []string) error {
		recent, _ := cmd.Flags().GetInt("recent")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		stats, err := s.EventRepo().GenerationStats(ctx)
		if err != nil {
			return fmt.Errorf("query generation stats: %w", err)
		}
		if len(stats) == 0 {
			fmt.Println("No content generated yet.")
			return nil
		}

		fmt.Println("Generation by Kind")
		fmt.Println(strings.Repeat("─", 52))
		fmt.Printf("%-14s  %-10s  %8s  %10s\n", "Kind", "Origin", "Count", "Avg Ms")
		fmt.Println(strings.Repeat("─", 52))

		var live, fallback int
		for _, st := range stats {
			fmt.Printf("%-14s  %-10s  %8d  %10d\n", st.Kind, st.Origin, st.Count, st.AvgLatencyMs)
			if st.Origin == "fallback" {
				fallback += st.Count
			} else {
				live += st.Count
			}
		}
		fmt.Println(strings.Repeat("─", 52))
		if total := live + fallback; total > 0 {
			fmt.Printf("Live %d, fallback %d (%.0f%% fallback)\n",
				live, fallback, float64(fallback)*100/float64(total))
		}

		if recent <= 0 {
			return nil
		}
		events, err := s.EventRepo().QueryGenerations(ctx, store.QueryOpts{Limit: recent})
		if err != nil {
			return fmt.Errorf("query generations: %w", err)
		}
		fmt.Println()
		fmt.Println("Recent Generations")
		fmt.Println(strings.Repeat("─", 80))
		for _, e := range events {
			line := fmt.Sprintf("%s  %-12s  %-8s  %-20s  %2d items  %5dms",
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				e.Kind, e.Origin, truncate(e.Topic, 20), e.ItemCount, e.LatencyMs)
			if e.Reason != "" {
				line += "  " + truncate(e.Reason, 40)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().IntP("recent", "n", 10, "Number of recent generation events to list (0 to hide)")
}
