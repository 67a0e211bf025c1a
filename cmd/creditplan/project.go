package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/fracarlesi/piano-excel-sub003/internal/config"
	"github.com/fracarlesi/piano-excel-sub003/internal/portfolio"
	"github.com/fracarlesi/piano-excel-sub003/internal/product"
	"github.com/fracarlesi/piano-excel-sub003/internal/refrate"
	"github.com/fracarlesi/piano-excel-sub003/internal/report"
)

// projectOptions are the flags of the project command.
type projectOptions struct {
	Portfolio string
	Format    string
	Output    string
	RunID     string
	Quarterly bool
	Products  bool
	Vintages  bool
}

// --- Project Command ---

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project a portfolio and print the statements",
	Long: `Project every product of a portfolio file over 40 quarters and render
the consolidated, division and (optionally) product statements as a
terminal table, CSV, JSON, HTML or PDF.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts projectOptions
		opts.Portfolio, _ = cmd.Flags().GetString("portfolio")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Output, _ = cmd.Flags().GetString("output")
		opts.RunID, _ = cmd.Flags().GetString("run-id")
		opts.Quarterly, _ = cmd.Flags().GetBool("quarterly")
		opts.Products, _ = cmd.Flags().GetBool("products")
		opts.Vintages, _ = cmd.Flags().GetBool("vintages")
		if opts.Portfolio == "" {
			opts.Portfolio = cfg.Portfolio.File
		}

		src, err := refrate.New(cfg.Rates)
		if err != nil {
			return err
		}
		return runProject(cmd.Context(), cfg, src, opts, cmd.OutOrStdout())
	},
}

func init() {
	projectCmd.Flags().StringP("portfolio", "p", "", "portfolio file (default: portfolio.file)")
	projectCmd.Flags().StringP("format", "f", "text", "output format: text, csv, json, html, pdf")
	projectCmd.Flags().StringP("output", "o", "", "output file (default: stdout; required for pdf)")
	projectCmd.Flags().String("run-id", "", "run identifier (default: random UUID)")
	projectCmd.Flags().Bool("quarterly", false, "quarterly columns instead of annual")
	projectCmd.Flags().Bool("products", false, "include one statement per product")
	projectCmd.Flags().Bool("vintages", false, "json: include per-vintage detail")
}

// runProject loads, resolves, projects and renders a portfolio.
func runProject(ctx context.Context, cfg *config.Config, src refrate.Source, opts projectOptions, stdout io.Writer) error {
	inputs, err := config.LoadPortfolio(opts.Portfolio)
	if err != nil {
		return err
	}
	cfgs, err := product.ResolveAll(inputs)
	if err != nil {
		return err
	}
	g, err := src.Rates(ctx)
	if err != nil {
		return fmt.Errorf("rates from %s: %w", src.Name(), err)
	}

	engine := portfolio.NewEngine(portfolio.Config{Workers: cfg.Engine.Workers}, portfolio.NewLogObserver(logger))
	res, err := engine.Run(ctx, opts.RunID, cfgs, g)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if opts.Format == "json" {
		out := res
		if !opts.Vintages {
			out = res.WithoutVintages()
		}
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
		return writeOutput(opts.Output, buf.Bytes(), stdout)
	}

	format, err := report.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	rcfg := report.DefaultConfig()
	rcfg.Format = format
	rcfg.StartYear = cfg.Engine.StartYear
	rcfg.Quarterly = opts.Quarterly
	rcfg.Products = opts.Products

	if format == report.FormatPDF {
		if opts.Output == "" {
			return fmt.Errorf("pdf output needs --output")
		}
		rcfg.Format = report.FormatHTML
		if err := report.Render(&buf, res, rcfg); err != nil {
			return err
		}
		pcfg := report.DefaultPDFConfig()
		pcfg.OutputPath = opts.Output
		path, err := report.GeneratePDF(ctx, buf.Bytes(), pcfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", path)
		return nil
	}

	if err := report.Render(&buf, res, rcfg); err != nil {
		return err
	}
	return writeOutput(opts.Output, buf.Bytes(), stdout)
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// --- Resolve Command ---

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the portfolio's products with every default applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("portfolio")
		if path == "" {
			path = cfg.Portfolio.File
		}
		return runResolve(path, cmd.OutOrStdout())
	},
}

func init() {
	resolveCmd.Flags().StringP("portfolio", "p", "", "portfolio file (default: portfolio.file)")
}

func runResolve(path string, w io.Writer) error {
	inputs, err := config.LoadPortfolio(path)
	if err != nil {
		return err
	}
	cfgs, err := product.ResolveAll(inputs)
	if err != nil {
		return err
	}
	views := make([]product.ConfigView, len(cfgs))
	for i, c := range cfgs {
		views[i] = product.View(c)
	}
	data, err := yaml.Marshal(map[string]interface{}{"products": views})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// --- Defaults Command ---

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default product assumptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(product.Defaults())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}
