// cmd/run.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/actuate/internal/observability"
	"github.com/xkilldash9x/actuate/pkg/browser"
)

var runCmd = &cobra.Command{
	Use:   "run <script.json> [script.json...]",
	Short: "Run automation scripts against a browser.",
	Long: `Run executes one or more JSON automation scripts. Each script gets its own
page in a shared browser; scripts run concurrently and the command fails if
any of them does.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		ctx := cmd.Context()

		// Parse everything up front; a typo in script three should not cost a
		// browser launch.
		scripts := make([]*Script, 0, len(args))
		for _, path := range args {
			s, err := LoadScript(path)
			if err != nil {
				return err
			}
			scripts = append(scripts, s)
		}

		b, err := browser.Open(ctx, appCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
		defer func() {
			if err := b.Close(); err != nil {
				logger.Warn("Failed to close browser cleanly.", zap.Error(err))
			}
		}()

		g, gctx := errgroup.WithContext(ctx)
		for i, script := range scripts {
			i, script := i, script
			g.Go(func() error {
				page, err := b.NewPage(gctx)
				if err != nil {
					return err
				}
				defer func() { _ = page.Close(gctx) }()

				scriptLogger := logger.With(zap.String("script", args[i]))
				if err := runScript(gctx, page, script, scriptLogger); err != nil {
					return fmt.Errorf("%s: %w", args[i], err)
				}
				scriptLogger.Info("Script completed.")
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
