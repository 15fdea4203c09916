package profile

// scoreColumn derives the composite quality score and the issue tags from
// the finalized counters. It reads only fields already on the profile, no
// extra pass over data.
func scoreColumn(p *ColumnProfile, opts Options) {
	completeness := 1.0
	if p.TotalCount > 0 {
		completeness = 1 - float64(p.NullCount)/float64(p.TotalCount)
	}

	validity := p.TypeConformance

	// Diversity saturates: a distinct ratio of 10% or more earns full
	// marks, so id-like high-cardinality columns are never penalized.
	// Near-constant columns scale down toward a small floor.
	diversity := 1.0
	if p.NonNullCount > 1 {
		ratio := float64(p.DistinctCount) / float64(p.NonNullCount)
		if ratio < 0.10 {
			diversity = 0.2 + 0.8*(ratio/0.10)
		}
	}

	// A column with no values at all has nothing to be valid or diverse;
	// only the completeness term (zero) should speak for it.
	if p.NonNullCount == 0 {
		validity = 0
		diversity = 0
	}

	weightSum := opts.CompletenessWeight + opts.ValidityWeight + opts.DiversityWeight
	score := 0.0
	if weightSum > 0 {
		score = (opts.CompletenessWeight*completeness +
			opts.ValidityWeight*validity +
			opts.DiversityWeight*diversity) / weightSum * 100
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	p.QualityScore = round2(score)

	issues := []string{}
	if p.NullPercentage > opts.HighNullThreshold {
		issues = append(issues, IssueHighNulls)
	}
	if p.BlankPercentage > opts.HighBlankThreshold {
		issues = append(issues, IssueHighBlanks)
	}
	if p.DistinctPercentage < opts.LowDiversityThreshold && p.TotalCount > 1 {
		issues = append(issues, IssueLowDiversity)
	}
	if p.TypeConformance < 1.0 {
		issues = append(issues, IssueTypeMismatch)
	}
	p.Issues = issues
}
