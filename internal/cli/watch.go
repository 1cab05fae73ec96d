package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/pullrunner/internal/controller"
)

func newWatchCmd() *cobra.Command {
	var schedule string
	var count int

	cmd := &cobra.Command{
		Use:   "watch <page>",
		Short: "Reload a page on a schedule",
		Long: `Load a page (repos, servers, commands, logs, settings) and reload it on
a cron schedule until interrupted. The schedule accepts standard five-field
cron expressions and descriptors such as "@every 30s".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			route := pageRoute(args[0])
			page, err := controller.DefaultRegistry().Open(route, newEnv(newTerminal()))
			if err != nil {
				return err
			}

			if _, err := cron.ParseStandard(schedule); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchPage(ctx, page, schedule, count)
		},
	}

	cmd.Flags().StringVar(&schedule, "every", "@every 30s", "reload schedule")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many loads (0 = until interrupted)")

	return cmd
}

// pageRoute accepts a bare page name or a full route
func pageRoute(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name + "/view"
}

// watchPage loads page once, then again on every schedule tick. Loads never
// overlap; a tick that fires during a load is skipped.
func watchPage(ctx context.Context, page controller.Page, schedule string, count int) error {
	loads := make(chan struct{}, 1)
	done := make(chan struct{})

	load := func() {
		if err := page.Load(ctx); err != nil {
			log.WithError(err).Warnf("reload of %s failed", page.Route())
		}
		select {
		case loads <- struct{}{}:
		case <-done:
		}
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, load); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	go func() {
		defer close(done)
		n := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-loads:
				n++
				if count > 0 && n >= count {
					return
				}
			}
		}
	}()

	load()
	c.Start()
	defer c.Stop()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}
