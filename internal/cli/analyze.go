package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/user/change-analysis-service/internal/adapter/bedrock_summarizer"
	"github.com/user/change-analysis-service/internal/adapter/goquery_extractor"
	"github.com/user/change-analysis-service/internal/adapter/image_decoder"
	"github.com/user/change-analysis-service/internal/entity"
	"github.com/user/change-analysis-service/internal/repository"
	"github.com/user/change-analysis-service/internal/usecase"
	"github.com/user/change-analysis-service/pkg/config"
)

const maxImageFileBytes = 25 << 20

type analyzeOptions struct {
	goal     string
	prev     string
	cur      string
	prevSS   string
	curSS    string
	domain   string
	url      string
	keywords []string
	report   bool
	format   string
}

func newAnalyzeCommand(loadConfig func() (*config.Config, error)) *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the change between two HTML captures",
		Long: `Analyze compares a previous and a current HTML capture, and optionally
their screenshots, against a monitoring goal and prints the scored result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "json" && opts.format != "yaml" {
				return fmt.Errorf("unsupported format %q (want json or yaml)", opts.format)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, err := usecase.EngineConfigFrom(cfg)
			if err != nil {
				return err
			}

			input, err := opts.input()
			if err != nil {
				return err
			}

			var summarizer repository.Summarizer
			if cfg.UseBedrock {
				bedrock, err := bedrock_summarizer.NewBedrockSummarizer(cmd.Context(), cfg.AWSRegion, cfg.BedrockModelID, cfg.IncludeImagesForLLM)
				if err != nil {
					return fmt.Errorf("failed to set up Bedrock: %w", err)
				}
				summarizer = bedrock
			}

			analyzer := usecase.NewChangeAnalyzer(
				goquery_extractor.NewGoqueryExtractor(),
				image_decoder.NewStdDecoder(maxImageFileBytes),
				summarizer,
				engine,
			)
			report, err := analyzer.Analyze(cmd.Context(), input)
			if err != nil {
				return err
			}

			var out any = report.Result
			if opts.report {
				out = report
			}
			return writeOutput(cmd.OutOrStdout(), opts.format, out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.goal, "goal", "", "monitoring goal (required)")
	flags.StringVar(&opts.prev, "prev", "", "previous HTML file (required)")
	flags.StringVar(&opts.cur, "cur", "", "current HTML file (required)")
	flags.StringVar(&opts.prevSS, "prev-ss", "", "previous screenshot file, base64 or data URI")
	flags.StringVar(&opts.curSS, "cur-ss", "", "current screenshot file, base64 or data URI")
	flags.StringVar(&opts.domain, "domain", "general", "subject domain")
	flags.StringVar(&opts.url, "url", "", "page URL, used to resolve links")
	flags.StringArrayVarP(&opts.keywords, "keyword", "k", nil, "extra goal keyword (repeatable)")
	flags.BoolVar(&opts.report, "report", false, "print the full report instead of the flat result")
	flags.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	_ = cmd.MarkFlagRequired("goal")
	_ = cmd.MarkFlagRequired("prev")
	_ = cmd.MarkFlagRequired("cur")

	return cmd
}

func (o analyzeOptions) input() (entity.ChangeInput, error) {
	prevDOM, err := os.ReadFile(o.prev)
	if err != nil {
		return entity.ChangeInput{}, fmt.Errorf("failed to read previous capture: %w", err)
	}
	curDOM, err := os.ReadFile(o.cur)
	if err != nil {
		return entity.ChangeInput{}, fmt.Errorf("failed to read current capture: %w", err)
	}
	return entity.ChangeInput{
		PrevDOM:   string(prevDOM),
		CurDOM:    string(curDOM),
		PrevImage: entity.ParseImageRef(o.prevSS, true),
		CurImage:  entity.ParseImageRef(o.curSS, true),
		Goal:      o.goal,
		Domain:    o.domain,
		URL:       o.url,
		Keywords:  o.keywords,
	}, nil
}

func writeOutput(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
