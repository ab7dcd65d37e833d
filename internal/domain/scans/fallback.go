package scans

import "math/rand"

// FallbackProfile satu entry katalog hasil sintetis.
type FallbackProfile struct {
	Disease         string
	ConfidenceMin   int // inclusive
	ConfidenceMax   int // inclusive
	Findings        []string
	Recommendations []string
}

// FallbackCatalog: tiga kandidat hasil demo. The Normal range runs to 104, so
// confidences above 100% are possible; that quirk is kept on purpose.
var FallbackCatalog = []FallbackProfile{
	{
		Disease:       "Pneumonia",
		ConfidenceMin: 80,
		ConfidenceMax: 99,
		Findings: []string{
			"Consolidation in the right lower lobe",
			"Increased opacity consistent with infection",
			"Air bronchograms present",
		},
		Recommendations: []string{
			"Start empiric antibiotic therapy",
			"Follow-up chest X-ray in 4-6 weeks",
			"Monitor oxygen saturation",
		},
	},
	{
		Disease:       "Tuberculosis",
		ConfidenceMin: 75,
		ConfidenceMax: 94,
		Findings: []string{
			"Cavitary lesion in the upper lobe",
			"Hilar lymphadenopathy",
			"Fibrotic changes suggesting chronic infection",
		},
		Recommendations: []string{
			"Sputum culture and AFB smear",
			"Begin RIPE therapy upon confirmation",
			"Contact tracing recommended",
		},
	},
	{
		Disease:       "Normal",
		ConfidenceMin: 85,
		ConfidenceMax: 104,
		Findings: []string{
			"Clear lung fields bilaterally",
			"Normal cardiac silhouette",
			"No pleural effusion",
		},
		Recommendations: []string{
			"No immediate action required",
			"Routine screening as per age guidelines",
		},
	},
}

// PickFallback picks a catalog entry uniformly and draws an integer confidence
// from its range. Pure given the rand source, supaya gampang ditest.
func PickFallback(src *rand.Rand) (FallbackProfile, int) {
	p := FallbackCatalog[src.Intn(len(FallbackCatalog))]
	conf := p.ConfidenceMin + src.Intn(p.ConfidenceMax-p.ConfidenceMin+1)
	return p, conf
}
