package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/cardquiz/internal/app"
	"github.com/abhisek/cardquiz/internal/quiz"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Start a quiz in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		skip, _ := cmd.Flags().GetBool("skip-splash")
		return runPlay(cmd, skip)
	},
}

func init() {
	playCmd.Flags().Bool("skip-splash", false, "Start directly on the quiz screen")
}

func runPlay(cmd *cobra.Command, skipSplash bool) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, cmd, depOptions{tui: true})
	if err != nil {
		return err
	}
	defer d.Close()

	if !d.content.Live() {
		d.log.Info("playing with built-in content")
	}
	engine := quiz.NewEngine(d.content, quizConfig(d.cfg), quiz.WithEngineLogger(d.log))
	return app.Run(ctx, app.Options{
		Engine:     engine,
		Log:        d.log,
		SkipSplash: skipSplash,
	})
}
