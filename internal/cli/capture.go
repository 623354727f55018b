package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/change-analysis-service/internal/adapter/chromedp_capturer"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/pkg/config"
	"github.com/user/change-analysis-service/pkg/logger"
)

func newCaptureCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Render a page and save its DOM and screenshot",
		Long: `Capture loads a page in headless Chrome and writes <prefix>.html and
<prefix>.png, ready to be passed to analyze.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			level, _ := cfg.SlogLevel()
			browserLog, err := logger.Browser(level)
			if err != nil {
				return fmt.Errorf("failed to build browser logger: %w", err)
			}
			defer browserLog.Sync()

			capturer := chromedp_capturer.NewChromedpCapturer(1, cfg.PageLoadTimeout(), browserLog)
			defer capturer.Close()

			return saveCapture(cmd, capturer, args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path prefix (required)")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func saveCapture(cmd *cobra.Command, capturer repository.SnapshotCapturer, url, prefix string) error {
	snap, err := capturer.Capture(cmd.Context(), url)
	if err != nil {
		return err
	}
	if err := os.WriteFile(prefix+".html", []byte(snap.DOM), 0o644); err != nil {
		return fmt.Errorf("failed to write DOM: %w", err)
	}
	if err := os.WriteFile(prefix+".png", snap.Screenshot, 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "captured %s (status %d, %d ms) to %s.html and %s.png\n",
		snap.URL, snap.HTTPStatusCode, snap.ResponseTimeMS, prefix, prefix)
	return nil
}
