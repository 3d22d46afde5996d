package eval

import "math"

// PrecisionAtK is the mean relevance weight of the first k predictions.
// Missing positions and ungraded cards contribute 0, so the result is in
// [0,1].
func PrecisionAtK(preds []string, gb GradedBuckets, k int) float64 {
	if k <= 0 {
		return 0
	}
	idx := gb.Index()
	sum := 0.0
	for i, p := range preds {
		if i >= k {
			break
		}
		if b, ok := idx[p]; ok {
			sum += b.Weight()
		}
	}
	return sum / float64(k)
}

// ReciprocalRank is 1/rank of the first prediction graded highly_relevant
// or relevant, or 0 when there is none. MRR is its mean over queries.
func ReciprocalRank(preds []string, gb GradedBuckets) float64 {
	idx := gb.Index()
	for i, p := range preds {
		if b, ok := idx[p]; ok && b >= Relevant {
			return 1 / float64(i+1)
		}
	}
	return 0
}

// RecallAtK is the fraction of cards with a positive grade that appear in
// the first k predictions.
func RecallAtK(preds []string, gb GradedBuckets, k int) float64 {
	idx := gb.Index()
	relevant := 0
	for _, b := range idx {
		if b.Weight() > 0 {
			relevant++
		}
	}
	if relevant == 0 || k <= 0 {
		return 0
	}
	found := 0
	for i, p := range preds {
		if i >= k {
			break
		}
		if b, ok := idx[p]; ok && b.Weight() > 0 {
			found++
		}
	}
	return float64(found) / float64(relevant)
}

// NDCGAtK uses the bucket weights as gains with a log2 position discount.
func NDCGAtK(preds []string, gb GradedBuckets, k int) float64 {
	if k <= 0 {
		return 0
	}
	idx := gb.Index()
	dcg := 0.0
	for i, p := range preds {
		if i >= k {
			break
		}
		if b, ok := idx[p]; ok {
			dcg += b.Weight() / math.Log2(float64(i+2))
		}
	}

	ideal := 0.0
	pos := 0
	seen := make(map[string]bool, len(idx))
	for _, b := range Buckets {
		if b.Weight() == 0 {
			break
		}
		for _, c := range gb[b] {
			if idx[c] != b || seen[c] {
				continue
			}
			seen[c] = true
			if pos >= k {
				break
			}
			ideal += b.Weight() / math.Log2(float64(pos+2))
			pos++
		}
	}
	if ideal == 0 {
		return 0
	}
	return dcg / ideal
}
