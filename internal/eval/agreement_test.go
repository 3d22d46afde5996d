package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func judgment(t *testing.T, judge, body string) Judgment {
	t.Helper()
	return Judgment{Judge: judge, Set: mustLoad(t, body)}
}

func TestAgreement_IdenticalJudges(t *testing.T) {
	body := `{"Bolt": {"highly_relevant": ["Chain"], "relevant": ["Spike"], "irrelevant": ["Island"]}}`
	rep, err := Agreement([]Judgment{
		judgment(t, "a", body),
		judgment(t, "b", body),
	}, AgreementOptions{Threshold: 0.6})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, rep.Alpha, 1e-9)
	assert.InDelta(t, 1.0, rep.Rate, 1e-9)
	assert.Equal(t, 3, rep.Items)
	assert.Empty(t, rep.Unreliable)
	assert.Equal(t, "reliable", rep.Interpretation)
}

func TestAgreement_DisjointJudges(t *testing.T) {
	rep, err := Agreement([]Judgment{
		judgment(t, "a", `{"Bolt": {"highly_relevant": ["Chain", "Spike"]}}`),
		judgment(t, "b", `{"Bolt": {"highly_relevant": ["Shock", "Rift"]}}`),
	}, AgreementOptions{Threshold: 0.6})
	require.NoError(t, err)

	// Four items, each labelled {highly_relevant, irrelevant} once imputed.
	assert.Equal(t, 4, rep.Items)
	assert.InDelta(t, -0.75, rep.Alpha, 1e-9)
	assert.Zero(t, rep.Rate)
	assert.Equal(t, []string{"Bolt"}, rep.Unreliable)
	assert.Equal(t, "no_agreement", rep.Interpretation)

	nominal, err := Agreement([]Judgment{
		judgment(t, "a", `{"Bolt": {"highly_relevant": ["Chain", "Spike"]}}`),
		judgment(t, "b", `{"Bolt": {"highly_relevant": ["Shock", "Rift"]}}`),
	}, AgreementOptions{Distance: DistanceNominal, Threshold: 0.6})
	require.NoError(t, err)
	assert.InDelta(t, -0.75, nominal.Alpha, 1e-9)
}

func TestAgreement_ThreeJudges(t *testing.T) {
	same := `{"Bolt": {"highly_relevant": ["Chain"], "relevant": ["Spike"], "irrelevant": ["Island"]}}`
	tests := []struct {
		name           string
		bodies         [3]string
		wantItems      int
		wantAlpha      float64
		wantRate       float64
		wantUnreliable []string
	}{
		{
			name:      "identical",
			bodies:    [3]string{same, same, same},
			wantItems: 3,
			wantAlpha: 1,
			wantRate:  1,
		},
		{
			// Each card is highly relevant to one judge and imputed irrelevant
			// by the other two.
			name: "disjoint",
			bodies: [3]string{
				`{"Bolt": {"highly_relevant": ["Chain"]}}`,
				`{"Bolt": {"highly_relevant": ["Shock"]}}`,
				`{"Bolt": {"highly_relevant": ["Rift"]}}`,
			},
			wantItems:      3,
			wantAlpha:      -1.0 / 3,
			wantRate:       0,
			wantUnreliable: []string{"Bolt"},
		},
		{
			name: "two of three agree",
			bodies: [3]string{
				`{"Bolt": {"highly_relevant": ["Chain"]}}`,
				`{"Bolt": {"highly_relevant": ["Chain"]}}`,
				`{"Bolt": {"relevant": ["Chain"]}}`,
			},
			wantItems:      1,
			wantAlpha:      0,
			wantRate:       0,
			wantUnreliable: []string{"Bolt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep, err := Agreement([]Judgment{
				judgment(t, "a", tt.bodies[0]),
				judgment(t, "b", tt.bodies[1]),
				judgment(t, "c", tt.bodies[2]),
			}, AgreementOptions{Threshold: 0.6})
			require.NoError(t, err)

			assert.Equal(t, []string{"a", "b", "c"}, rep.Judges)
			assert.Equal(t, tt.wantItems, rep.Items)
			assert.InDelta(t, tt.wantAlpha, rep.Alpha, 1e-9)
			assert.InDelta(t, tt.wantRate, rep.Rate, 1e-9)
			assert.Equal(t, tt.wantUnreliable, rep.Unreliable)
			require.Len(t, rep.PerQuery, 1)
			assert.Equal(t, 3, rep.PerQuery[0].Judges)
		})
	}
}

func TestAgreement_PerQueryAndSingleJudgeQueries(t *testing.T) {
	rep, err := Agreement([]Judgment{
		judgment(t, "a", `{
			"Bolt": {"highly_relevant": ["Chain"], "irrelevant": ["Island"]},
			"Opt":  {"relevant": ["Consider"]}
		}`),
		judgment(t, "b", `{
			"Bolt": {"highly_relevant": ["Chain"], "irrelevant": ["Island"]},
			"Opt":  {"irrelevant": ["Consider"]},
			"Solo": {"relevant": ["Thing"]}
		}`),
	}, AgreementOptions{Threshold: 0.6})
	require.NoError(t, err)

	require.Len(t, rep.PerQuery, 2)
	assert.Equal(t, "Bolt", rep.PerQuery[0].Query)
	assert.InDelta(t, 1.0, rep.PerQuery[0].Alpha, 1e-9)
	assert.False(t, rep.PerQuery[0].Unreliable)

	opt := rep.PerQuery[1]
	assert.Equal(t, "Opt", opt.Query)
	assert.Zero(t, opt.Rate)
	assert.True(t, opt.Unreliable)
	assert.Equal(t, []string{"Opt"}, rep.Unreliable)
	assert.InDelta(t, 2.0/3, rep.Rate, 1e-9)
}

func TestAgreement_NeedsTwoJudges(t *testing.T) {
	_, err := Agreement([]Judgment{judgment(t, "a", `{}`)}, AgreementOptions{})
	assert.Error(t, err)
}

func TestParseDistance(t *testing.T) {
	d, err := ParseDistance("")
	require.NoError(t, err)
	assert.Equal(t, DistanceInterval, d)
	_, err = ParseDistance("ratio")
	assert.Error(t, err)
}
