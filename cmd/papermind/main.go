package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"papermind/internal/app"
	"papermind/internal/config"
	"papermind/internal/extract"
	"papermind/internal/logging"
	"papermind/internal/models"
	"papermind/internal/orchestrator"
	"papermind/internal/render"
	"papermind/internal/util"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load(".env")
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}

type cli struct {
	cfg      config.Config
	provider string
	verbose  bool
}

func newRootCmd(cfg config.Config) *cobra.Command {
	c := &cli{cfg: cfg}
	root := &cobra.Command{
		Use:          "papermind",
		Short:        "Analyze research papers with a local or hosted language model",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.provider, "provider", "", "override PAPERMIND_LLM_PROVIDERS (e.g. ollama, gemini:work, mock)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")
	root.AddCommand(c.analyzeCmd(), c.askCmd(), c.textCmd(), c.diagramCmd())
	return root
}

// run builds a runtime for one command and tears it down afterwards.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, rt *app.Runtime) error, reporters ...orchestrator.ProgressReporter) error {
	cfg := c.cfg
	if c.provider != "" {
		cfg.LLMProviders = c.provider
	}
	// progress goes to stderr, so keep the logger quiet unless asked
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := app.New(ctx, cfg, log, reporters...)
	if err != nil {
		return err
	}
	defer rt.Close(context.Background())
	return fn(ctx, rt)
}

func (c *cli) analyzeCmd() *cobra.Command {
	var paperPath, pdfPath, url, outPath, jsonPath string
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze every section of a paper and write an HTML report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			doc, err := loadPaper(paperPath, pdfPath, url)
			if err != nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			progress := orchestrator.ReporterFunc(func(_ context.Context, u models.ProgressUpdate) error {
				_, err := fmt.Fprintf(stderr, "[%d/%d] %s\n", u.Current, u.Total, u.Message)
				return err
			})
			return c.run(cmd, func(ctx context.Context, rt *app.Runtime) error {
				res := rt.Engine.Analyze(ctx, doc)
				if jsonPath != "" {
					if err := util.WriteJSONAtomic(jsonPath, res); err != nil {
						return err
					}
				}
				page := render.Page(doc, res)
				if outPath == "" {
					_, err := io.WriteString(cmd.OutOrStdout(), page)
					return err
				}
				if err := util.WriteTextAtomic(outPath, page); err != nil {
					return err
				}
				fmt.Fprintf(stderr, "wrote %s (%d sections)\n", outPath, len(res.Sections))
				return nil
			}, progress)
		},
	}
	cmd.Flags().StringVar(&paperPath, "paper", "", "paper JSON document")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "paper PDF file")
	cmd.Flags().StringVar(&url, "url", "", "source url recorded for a PDF paper")
	cmd.Flags().StringVar(&outPath, "out", "", "HTML output file (stdout when empty)")
	cmd.Flags().StringVar(&jsonPath, "json", "", "also write the raw analysis result as JSON")
	cmd.MarkFlagsMutuallyExclusive("paper", "pdf")
	cmd.MarkFlagsOneRequired("paper", "pdf")
	return cmd
}

func (c *cli) askCmd() *cobra.Command {
	var paperPath, pdfPath string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about a paper's title and abstract",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadPaper(paperPath, pdfPath, "")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, rt *app.Runtime) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), rt.Engine.AskQuestion(ctx, strings.Join(args, " "), doc))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&paperPath, "paper", "", "paper JSON document")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "paper PDF file")
	cmd.MarkFlagsMutuallyExclusive("paper", "pdf")
	cmd.MarkFlagsOneRequired("paper", "pdf")
	return cmd
}

func (c *cli) textCmd() *cobra.Command {
	var action, instruction string
	cmd := &cobra.Command{
		Use:   "text [text]",
		Short: "Explain, simplify or summarize a passage, or apply a free-form instruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := argsOrStdin(cmd, args)
			if err != nil {
				return err
			}
			a := orchestrator.HighlightAction(strings.ToLower(action))
			if instruction == "" && !a.Valid() {
				return fmt.Errorf("--action must be explain, simplify or summarize")
			}
			return c.run(cmd, func(ctx context.Context, rt *app.Runtime) error {
				var out string
				if instruction != "" {
					out = rt.Engine.ProcessText(ctx, instruction, text)
				} else {
					out = rt.Engine.Highlight(ctx, a, text)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&action, "action", string(orchestrator.ActionExplain), "explain, simplify or summarize")
	cmd.Flags().StringVar(&instruction, "instruction", "", "free-form instruction; overrides --action")
	return cmd
}

func (c *cli) diagramCmd() *cobra.Command {
	var paperPath, outPath string
	cmd := &cobra.Command{
		Use:   "diagram [concept]",
		Short: "Generate a Mermaid diagram for a concept in the paper",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadPaper(paperPath, "", "")
			if err != nil {
				return err
			}
			return c.run(cmd, func(ctx context.Context, rt *app.Runtime) error {
				d := rt.Engine.GenerateDiagram(ctx, strings.Join(args, " "), doc)
				if d == nil {
					return fmt.Errorf("diagram generation failed")
				}
				if outPath != "" {
					return util.WriteTextAtomic(outPath, *d)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), *d)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&paperPath, "paper", "", "paper JSON document")
	cmd.Flags().StringVar(&outPath, "out", "", "write the diagram source to a file")
	_ = cmd.MarkFlagRequired("paper")
	return cmd
}

func loadPaper(paperPath, pdfPath, url string) (models.PaperDocument, error) {
	if pdfPath != "" {
		return extract.FromPDF(pdfPath, url)
	}
	f, err := os.Open(paperPath)
	if err != nil {
		return models.PaperDocument{}, fmt.Errorf("open paper: %w", err)
	}
	defer f.Close()
	return extract.LoadJSON(f)
}

func argsOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	text := strings.TrimSpace(string(b))
	if text == "" {
		return "", fmt.Errorf("no text given")
	}
	return text, nil
}
