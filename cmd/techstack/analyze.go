package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-techstack/pkg/techstack"
)

type analyzeOptions struct {
	File    string
	Headers []string
	Cookie  string
	Domain  string
	outputOptions
}

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a saved page offline",
		Long: `Analyze a saved HTML document together with the response headers and
cookies it was served with. Nothing is fetched from the network.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.File, "file", "f", "", "HTML file to analyze (- for stdin)")
	flags.StringArrayVarP(&opts.Headers, "header", "H", nil, `response header "Name: value" (repeatable)`)
	flags.StringVar(&opts.Cookie, "cookie", "", "document.cookie string")
	flags.StringVar(&opts.Domain, "domain", "", "page URL or domain")
	flags.BoolVar(&opts.JSON, "json", false, "print the export report as JSON")
	flags.StringVarP(&opts.Output, "output", "o", "", "write the export report to a file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	var (
		body []byte
		err  error
	)
	if opts.File == "-" {
		body, err = io.ReadAll(cmd.InOrStdin())
	} else {
		body, err = os.ReadFile(opts.File)
	}
	if err != nil {
		return fmt.Errorf("failed to read page: %w", err)
	}

	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return err
	}

	db, err := loadSignatures(cmd.Context(), cfg.Signatures)
	if err != nil {
		return err
	}
	client, err := techstack.New(techstack.WithDatabase(db))
	if err != nil {
		return err
	}

	res := client.Analyze(techstack.Page{
		URL:     opts.Domain,
		Body:    body,
		Headers: headers,
		Cookie:  opts.Cookie,
	})
	domain := res.Domain
	if domain == "" {
		domain = "local"
	}
	return emit(opts.outputOptions, db, domain, res.Technologies)
}
