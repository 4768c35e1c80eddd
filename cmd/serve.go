package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/cardquiz/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve quiz sessions over HTTP",
	Long: `Start the JSON API. Each POST /api/sessions creates an independent quiz;
the web front end drives it with topic, card, explanation and option
requests and polls GET /api/sessions/{id} for state.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	serveCmd.Flags().Int("max-sessions", 256, "Maximum concurrent quiz sessions")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	d, err := openDeps(ctx, cmd, depOptions{})
	if err != nil {
		return err
	}
	defer d.Close()

	addr := d.cfg.Server.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}
	maxSessions, _ := cmd.Flags().GetInt("max-sessions")

	srv := server.New(server.Config{
		Addr:          addr,
		CORSOrigins:   d.cfg.Server.CORSOrigins,
		RatePerSecond: d.cfg.Server.RatePerSecond,
		Burst:         d.cfg.Server.Burst,
		MaxSessions:   maxSessions,
		SessionIdle:   d.cfg.Server.SessionIdle,
		Quiz:          quizConfig(d.cfg),
	}, d.content, d.images, d.log)
	defer srv.Close()

	d.log.Info("starting server", "addr", addr, "live_content", d.content.Live())

	g, gctx := errgroup.WithContext(ctx)
	gctx, stop := context.WithCancel(gctx)
	defer stop()
	g.Go(func() error {
		// The reaper has nothing to do once the listener is gone.
		defer stop()
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		return srv.ReapIdleSessions(gctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
