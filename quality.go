package concurrence

// ScoreSnapshot computes the content quality of a snapshot. Pure and total:
// empty content yields a low score, never an error.
//
// Completeness accumulates fixed points per satisfied threshold (40 + 30 +
// 20 + 10 = 100 max). Accuracy, freshness, and consistency come straight
// from cfg — the collected data offers no oracle to measure them against.
func ScoreSnapshot(snap *Snapshot, cfg QualityConfig) ContentQuality {
	if snap == nil || (snap.HTML == "" && snap.Text == "" && snap.Title == "" && snap.Description == "") {
		return ContentQuality{Issues: []string{"No data available"}}
	}

	q := ContentQuality{
		Accuracy:    cfg.Accuracy,
		Freshness:   cfg.Freshness,
		Consistency: cfg.Consistency,
	}

	if len(snap.HTML) > cfg.HTMLThreshold {
		q.Completeness += 40
	} else {
		q.Issues = append(q.Issues, "Low HTML content")
	}
	if len(snap.Text) > cfg.TextThreshold {
		q.Completeness += 30
	} else {
		q.Issues = append(q.Issues, "Low text content")
	}
	if snap.Title != "" {
		q.Completeness += 20
	} else {
		q.Issues = append(q.Issues, "Missing title")
	}
	if snap.Description != "" {
		q.Completeness += 10
	}

	q.Overall = (q.Completeness + q.Accuracy + q.Freshness + q.Consistency) / 4
	return q
}
