package techstack

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ReportEntry is one technology in an export report
type ReportEntry struct {
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Confidence int      `json:"confidence"`
	Version    string   `json:"version,omitempty"`
	DetectedBy []string `json:"detectedBy"`
}

// Report is the exported form of a scan
type Report struct {
	Domain            string        `json:"domain"`
	ScannedAt         time.Time     `json:"scannedAt"`
	TotalTechnologies int           `json:"totalTechnologies"`
	Technologies      []ReportEntry `json:"technologies"`
}

// NewReport builds a report ordered by confidence, highest first
func NewReport(domain string, detections []Detection, scannedAt time.Time) *Report {
	entries := make([]ReportEntry, 0, len(detections))
	for _, d := range detections {
		entries = append(entries, ReportEntry{
			Name:       d.Name,
			Category:   d.Category,
			Confidence: d.Confidence,
			Version:    d.Version,
			DetectedBy: append([]string{}, d.EvidenceLabels...),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Confidence != entries[j].Confidence {
			return entries[i].Confidence > entries[j].Confidence
		}
		return entries[i].Name < entries[j].Name
	})

	return &Report{
		Domain:            domain,
		ScannedAt:         scannedAt.UTC(),
		TotalTechnologies: len(entries),
		Technologies:      entries,
	}
}

// JSON renders the report as indented JSON
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FileName is the default export file name
func (r *Report) FileName() string {
	return fmt.Sprintf("techstack-%s-%d.json", r.Domain, r.ScannedAt.UnixMilli())
}
