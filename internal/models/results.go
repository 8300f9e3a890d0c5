package models

import (
	"fmt"
	"time"
)

// Detection is a scored technology match
type Detection struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Confidence int    `json:"confidence"`
	// Version if detected
	Version string `json:"version,omitempty"`
	// EvidenceLabels lists which pattern kinds fired, in discovery order
	EvidenceLabels []string `json:"evidenceLabels"`
}

// Clone returns a deep copy of the detection
func (d Detection) Clone() Detection {
	d.EvidenceLabels = append([]string(nil), d.EvidenceLabels...)
	return d
}

// CloneDetections deep-copies a detection list
func CloneDetections(in []Detection) []Detection {
	if in == nil {
		return nil
	}
	out := make([]Detection, len(in))
	for i, d := range in {
		out[i] = d.Clone()
	}
	return out
}

// Evidence is the raw material the matcher works on
type Evidence struct {
	Markup        string
	ScriptSources []string
	LinkHrefs     []string
	MetaTags      []MetaTag
	// Globals holds only the globals found defined
	Globals map[string]Global
	// Cookie is the raw document.cookie string
	Cookie string
	// Headers maps lowercase header names to values
	Headers map[string]string
}

// TabID identifies a browser tab
type TabID int

// VisitID identifies one page view: a tab plus its navigation epoch
type VisitID struct {
	Tab   TabID  `json:"tab"`
	Epoch uint64 `json:"epoch"`
}

func (v VisitID) String() string {
	return fmt.Sprintf("%d#%d", v.Tab, v.Epoch)
}

// Phase is the reconciliation state of a visit record
type Phase int

const (
	PhaseCollecting Phase = iota
	PhaseHeadersApplied
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseHeadersApplied:
		return "headers-applied"
	case PhaseComplete:
		return "complete"
	}
	return "unknown"
}

// VisitRecord is the reconciled detection state for one visit
type VisitRecord struct {
	Visit  VisitID `json:"visit"`
	Domain string  `json:"domain"`
	// Technologies is the merged view, unique by name
	Technologies       []Detection       `json:"technologies"`
	DOMTechnologies    []Detection       `json:"domTechnologies"`
	HeaderTechnologies []Detection       `json:"headerTechnologies"`
	Headers            map[string]string `json:"headers"`
	Phase              Phase             `json:"phase"`
	// DOMReported is set once the page sandbox result arrived
	DOMReported bool `json:"domReported"`
	// HeadersReported is set once the response headers were applied
	HeadersReported bool      `json:"headersReported"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand to readers
func (r *VisitRecord) Clone() *VisitRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Technologies = CloneDetections(r.Technologies)
	out.DOMTechnologies = CloneDetections(r.DOMTechnologies)
	out.HeaderTechnologies = CloneDetections(r.HeaderTechnologies)
	if r.Headers != nil {
		out.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			out.Headers[k] = v
		}
	}
	return &out
}
