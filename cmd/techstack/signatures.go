package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/mamamialezatoz/go-techstack/internal/config"
	"github.com/mamamialezatoz/go-techstack/internal/downloader"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/parser"
	"github.com/mamamialezatoz/go-techstack/internal/signatures"
)

// loadSignatures resolves the configured signature source: a file path, then
// a release URL, then the embedded document
func loadSignatures(ctx context.Context, sc config.SignaturesConfig) (*models.SignatureDatabase, error) {
	switch {
	case sc.Path != "":
		return parser.LoadFile(sc.Path)
	case sc.URL != "":
		doc, err := downloader.GetSignatures(ctx, downloaderConfig(sc))
		if err != nil {
			return nil, err
		}
		return doc.Compile()
	default:
		return signatures.Default()
	}
}

func downloaderConfig(sc config.SignaturesConfig) *downloader.Config {
	dc := downloader.DefaultConfig()
	dc.ReleaseURL = sc.URL
	if sc.CacheDir != "" {
		dc.CacheDir = sc.CacheDir
	}
	if sc.CacheTTL > 0 {
		dc.CacheExpiry = sc.CacheTTL
	}
	dc.ForceDownload = sc.ForceDownload
	return dc
}

func newSignaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "Inspect, validate and manage signature documents",
	}
	cmd.AddCommand(newSignaturesListCmd())
	cmd.AddCommand(newSignaturesValidateCmd())
	cmd.AddCommand(newSignaturesStatusCmd())
	cmd.AddCommand(newSignaturesUpdateCmd())
	cmd.AddCommand(newSignaturesClearCmd())
	return cmd
}

func newSignaturesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List categories and technologies of the active signature document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := loadSignatures(cmd.Context(), cfg.Signatures)
			if err != nil {
				return err
			}

			pterm.DefaultSection.Printf("Signatures version %s", db.Version)
			tableData := pterm.TableData{{"Category", "Key", "Technologies"}}
			for _, c := range db.Categories {
				names := ""
				for i, t := range c.Technologies {
					if i > 0 {
						names += ", "
					}
					names += t.Name
				}
				tableData = append(tableData, []string{c.Name, c.Key, names})
			}
			if err := pterm.DefaultTable.WithHasHeader(true).WithData(tableData).Render(); err != nil {
				return err
			}
			return printStats(parser.Collect(db))
		},
	}
}

func newSignaturesValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Compile a signature document and report broken patterns",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				db  *models.SignatureDatabase
				err error
			)
			if len(args) == 1 {
				db, err = parser.LoadFile(args[0])
			} else {
				db, err = loadSignatures(cmd.Context(), cfg.Signatures)
			}
			if err != nil {
				return err
			}

			stats := parser.Collect(db)
			if err := printStats(stats); err != nil {
				return err
			}
			if stats.BrokenPatterns > 0 {
				pterm.Warning.Printf("%d patterns failed to compile and will never match\n", stats.BrokenPatterns)
				return nil
			}
			pterm.Success.Println("Signature document is valid")
			return nil
		},
	}
}

func newSignaturesStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the downloaded signature cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := downloaderConfig(cfg.Signatures)
			st := downloader.GetStatus(dc)

			rows := [][]string{
				{"Cache directory", dc.CacheDir},
				{"Cache expiry", dc.CacheExpiry.String()},
				{"Download URL", dc.ReleaseURL},
			}
			if !st.Cached {
				rows = append(rows, []string{"Cached document", "not found"})
			} else {
				age := time.Since(st.ModTime)
				state := "expires in " + formatDuration(dc.CacheExpiry-age)
				if st.Expired {
					state = "EXPIRED"
				}
				rows = append(rows,
					[]string{"Cached document", st.Path},
					[]string{"Size", fmt.Sprintf("%.1f KB", float64(st.Size)/1024.0)},
					[]string{"Modified", formatDuration(age) + " ago (" + state + ")"},
				)
			}
			return pterm.DefaultTable.WithData(rows).Render()
		},
	}
}

func newSignaturesUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Download the signature document into the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := downloaderConfig(cfg.Signatures)
			dc.ForceDownload = true

			spinner, _ := pterm.DefaultSpinner.Start("Downloading signatures...")
			doc, err := downloader.GetSignatures(cmd.Context(), dc)
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			db, err := doc.Compile()
			if err != nil {
				spinner.Fail(err.Error())
				return err
			}
			spinner.Success(fmt.Sprintf("Signatures %s cached in %s", db.Version, dc.CacheDir))
			return nil
		},
	}
}

func newSignaturesClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the cached signature document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := downloader.Clear(downloaderConfig(cfg.Signatures)); err != nil {
				return err
			}
			pterm.Success.Println("Cache cleared")
			return nil
		},
	}
}

func printStats(stats parser.Stats) error {
	rows := [][]string{
		{"Categories", strconv.Itoa(stats.Categories)},
		{"Technologies", strconv.Itoa(stats.Technologies)},
	}
	for _, kind := range models.AllKinds {
		rows = append(rows, []string{kind.Label() + " patterns", strconv.Itoa(stats.Patterns[kind])})
	}
	rows = append(rows, []string{"Broken patterns", strconv.Itoa(stats.BrokenPatterns)})
	return pterm.DefaultTable.WithData(rows).Render()
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	if d.Hours() > 48 {
		return fmt.Sprintf("%d days", int(d.Hours()/24))
	}
	if d.Hours() >= 1 {
		return fmt.Sprintf("%.1f hours", d.Hours())
	}
	if d.Minutes() >= 1 {
		return fmt.Sprintf("%.1f minutes", d.Minutes())
	}
	return fmt.Sprintf("%.1f seconds", d.Seconds())
}
