package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/pkg/techstack"
)

// outputOptions are shared by commands that print detections
type outputOptions struct {
	JSON   bool
	Output string
}

// emit prints detections as a table or writes the export report
func emit(opts outputOptions, db *models.SignatureDatabase, domain string, detections []models.Detection) error {
	report := techstack.NewReport(domain, detections, time.Now())

	if opts.JSON || opts.Output != "" {
		data, err := report.JSON()
		if err != nil {
			return fmt.Errorf("failed to format report: %w", err)
		}
		if opts.Output == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(opts.Output, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		pterm.Success.Printf("Report written to %s\n", opts.Output)
		return nil
	}

	return printReport(db, report)
}

func printReport(db *models.SignatureDatabase, report *techstack.Report) error {
	pterm.DefaultSection.Printf("%s: %d technologies", report.Domain, report.TotalTechnologies)
	if report.TotalTechnologies == 0 {
		pterm.Warning.Println("No technologies detected.")
		return nil
	}

	names := categoryNames(db)
	tableData := pterm.TableData{{"Technology", "Version", "Category", "Confidence", "Detected by"}}
	for _, t := range report.Technologies {
		category := t.Category
		if name, ok := names[t.Category]; ok {
			category = name
		}
		tableData = append(tableData, []string{
			t.Name,
			t.Version,
			category,
			strconv.Itoa(t.Confidence) + "%",
			strings.Join(t.DetectedBy, ", "),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader(true).WithBoxed(false).WithData(tableData).Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

func categoryNames(db *models.SignatureDatabase) map[string]string {
	names := make(map[string]string)
	if db == nil {
		return names
	}
	for _, c := range db.Categories {
		names[c.Key] = c.Name
	}
	return names
}

// parseHeaders turns "Name: value" flags into a header map. Repeated names
// keep every value.
func parseHeaders(flags []string) (map[string][]string, error) {
	headers := make(map[string][]string)
	for _, h := range flags {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
		}
		name := strings.TrimSpace(parts[0])
		headers[name] = append(headers[name], strings.TrimSpace(parts[1]))
	}
	return headers, nil
}
