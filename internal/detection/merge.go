package detection

import "github.com/mamamialezatoz/go-techstack/internal/models"

// Merge combines two detection lists by technology name. Confidence is the
// maximum of both sides, never the sum. Evidence labels are unioned as
// multisets: each label appears as often as on the side that has it most.
// A version or category that is set is never cleared; when both sides set
// different values the higher-confidence side wins, then the lexically
// smaller value. The result is ordered by first appearance in a, then b.
func Merge(a, b []models.Detection) []models.Detection {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}

	order := make([]string, 0, len(a)+len(b))
	byName := make(map[string]models.Detection, len(a)+len(b))

	add := func(d models.Detection) {
		existing, ok := byName[d.Name]
		if !ok {
			order = append(order, d.Name)
			byName[d.Name] = d.Clone()
			return
		}
		byName[d.Name] = mergeDetection(existing, d)
	}
	for _, d := range a {
		add(d)
	}
	for _, d := range b {
		add(d)
	}

	out := make([]models.Detection, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func mergeDetection(x, y models.Detection) models.Detection {
	out := models.Detection{
		Name:           x.Name,
		Confidence:     x.Confidence,
		Category:       pick(x.Category, y.Category, x.Confidence, y.Confidence),
		Version:        pick(x.Version, y.Version, x.Confidence, y.Confidence),
		EvidenceLabels: unionLabels(x.EvidenceLabels, y.EvidenceLabels),
	}
	if y.Confidence > out.Confidence {
		out.Confidence = y.Confidence
	}
	return out
}

// pick chooses between two optional values symmetrically
func pick(x, y string, xConfidence, yConfidence int) string {
	switch {
	case x == "":
		return y
	case y == "", x == y:
		return x
	case xConfidence > yConfidence:
		return x
	case yConfidence > xConfidence:
		return y
	case x < y:
		return x
	default:
		return y
	}
}

func unionLabels(x, y []string) []string {
	counts := make(map[string]int, len(x))
	out := make([]string, 0, len(x)+len(y))
	for _, label := range x {
		counts[label]++
		out = append(out, label)
	}
	for _, label := range y {
		if counts[label] > 0 {
			counts[label]--
			continue
		}
		out = append(out, label)
	}
	return out
}
