package eval

import (
	"fmt"
	"sort"
)

// Distance is the disagreement metric between two bucket labels.
type Distance string

const (
	// DistanceInterval squares the difference of bucket ordinals.
	DistanceInterval Distance = "interval"
	// DistanceNominal treats any two different buckets as equally far apart.
	DistanceNominal Distance = "nominal"
)

func (d Distance) delta(a, b Bucket) float64 {
	if d == DistanceNominal {
		if a == b {
			return 0
		}
		return 1
	}
	diff := float64(a - b)
	return diff * diff
}

// ParseDistance accepts "interval" (or empty) and "nominal".
func ParseDistance(s string) (Distance, error) {
	switch Distance(s) {
	case "", DistanceInterval:
		return DistanceInterval, nil
	case DistanceNominal:
		return DistanceNominal, nil
	}
	return "", fmt.Errorf("unknown distance %q (want interval or nominal)", s)
}

// Judgment is one judge's graded test set.
type Judgment struct {
	Judge string
	Set   *TestSet
}

type AgreementOptions struct {
	Distance Distance
	// Threshold flags queries whose alpha falls below it as unreliable.
	Threshold float64
}

// QueryAgreement is the agreement among judges on one query's cards.
type QueryAgreement struct {
	Query      string  `json:"query"`
	Judges     int     `json:"judges"`
	Items      int     `json:"items"`
	Alpha      float64 `json:"alpha"`
	Rate       float64 `json:"agreement_rate"`
	Unreliable bool    `json:"unreliable"`
}

type AgreementReport struct {
	Judges         []string         `json:"judges"`
	Distance       Distance         `json:"distance"`
	Threshold      float64          `json:"threshold"`
	Queries        int              `json:"queries"`
	Items          int              `json:"items"`
	Alpha          float64          `json:"alpha"`
	Rate           float64          `json:"agreement_rate"`
	Interpretation string           `json:"interpretation"`
	PerQuery       []QueryAgreement `json:"per_query"`
	Unreliable     []string         `json:"unreliable,omitempty"`
}

// unit is one (query, card) item with the labels every judge gave it.
type unit []Bucket

// Agreement computes Krippendorff's alpha and the raw agreement rate over
// (query, card) items. Only queries graded by at least two judges count.
// A judge who graded a query but did not list a card is taken to have
// labelled it irrelevant.
func Agreement(judgments []Judgment, opts AgreementOptions) (*AgreementReport, error) {
	if len(judgments) < 2 {
		return nil, fmt.Errorf("agreement needs at least two judgments, got %d", len(judgments))
	}
	dist := opts.Distance
	if dist == "" {
		dist = DistanceInterval
	}

	rep := &AgreementReport{Distance: dist, Threshold: opts.Threshold}
	queries := make(map[string]struct{})
	for _, j := range judgments {
		if j.Set == nil {
			return nil, fmt.Errorf("judge %q has no test set", j.Judge)
		}
		rep.Judges = append(rep.Judges, j.Judge)
		for q := range j.Set.Queries {
			queries[q] = struct{}{}
		}
	}
	names := make([]string, 0, len(queries))
	for q := range queries {
		names = append(names, q)
	}
	sort.Strings(names)

	var all []unit
	agreed := 0
	for _, q := range names {
		units, judges := queryUnits(q, judgments)
		if judges < 2 || len(units) == 0 {
			continue
		}
		qa := QueryAgreement{
			Query:  q,
			Judges: judges,
			Items:  len(units),
			Alpha:  alpha(units, dist),
		}
		same := unanimous(units)
		qa.Rate = float64(same) / float64(len(units))
		qa.Unreliable = qa.Alpha < opts.Threshold
		if qa.Unreliable {
			rep.Unreliable = append(rep.Unreliable, q)
		}
		rep.PerQuery = append(rep.PerQuery, qa)

		all = append(all, units...)
		agreed += same
	}

	rep.Queries = len(rep.PerQuery)
	rep.Items = len(all)
	if rep.Items > 0 {
		rep.Alpha = alpha(all, dist)
		rep.Rate = float64(agreed) / float64(rep.Items)
	}
	rep.Interpretation = interpret(rep.Alpha, rep.Items)
	return rep, nil
}

func queryUnits(query string, judgments []Judgment) ([]unit, int) {
	var graded []map[string]Bucket
	cards := make(map[string]struct{})
	for _, j := range judgments {
		gb, ok := j.Set.Queries[query]
		if !ok {
			continue
		}
		idx := gb.Index()
		delete(idx, query)
		graded = append(graded, idx)
		for c := range idx {
			cards[c] = struct{}{}
		}
	}
	if len(graded) < 2 {
		return nil, len(graded)
	}

	names := make([]string, 0, len(cards))
	for c := range cards {
		names = append(names, c)
	}
	sort.Strings(names)

	units := make([]unit, 0, len(names))
	for _, c := range names {
		u := make(unit, len(graded))
		for i, idx := range graded {
			// Missing labels stay at the zero value, Irrelevant.
			u[i] = idx[c]
		}
		units = append(units, u)
	}
	return units, len(graded)
}

// alpha builds the coincidence matrix of the pairable values and returns
// 1 - Do/De. When the values show no variation at all (De == 0) alpha is
// 1 for perfect agreement and 0 otherwise.
func alpha(units []unit, dist Distance) float64 {
	var o [HighlyRelevant + 1][HighlyRelevant + 1]float64
	for _, u := range units {
		m := len(u)
		if m < 2 {
			continue
		}
		w := 1 / float64(m-1)
		for i := range u {
			for j := range u {
				if i != j {
					o[u[i]][u[j]] += w
				}
			}
		}
	}

	var nc [HighlyRelevant + 1]float64
	n := 0.0
	for c := range o {
		for k := range o[c] {
			nc[c] += o[c][k]
		}
		n += nc[c]
	}
	if n <= 1 {
		return 0
	}

	do, de := 0.0, 0.0
	for c := range o {
		for k := range o[c] {
			d := dist.delta(Bucket(c), Bucket(k))
			do += o[c][k] * d
			de += nc[c] * nc[k] * d
		}
	}
	do /= n
	de /= n * (n - 1)

	if de == 0 {
		if do == 0 {
			return 1
		}
		return 0
	}
	return 1 - do/de
}

// unanimous counts the items every judge put in the same bucket.
func unanimous(units []unit) int {
	same := 0
	for _, u := range units {
		ok := true
		for _, b := range u[1:] {
			if b != u[0] {
				ok = false
				break
			}
		}
		if ok {
			same++
		}
	}
	return same
}

func interpret(alpha float64, items int) string {
	switch {
	case items == 0:
		return "no_data"
	case alpha < 0:
		return "no_agreement"
	case alpha <= 0.67:
		return "unreliable"
	case alpha <= 0.80:
		return "tentative"
	}
	return "reliable"
}
