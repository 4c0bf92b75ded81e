package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapnote/internal/cli/testutil"
	"github.com/leapstack-labs/leapnote/pkg/outline"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name      string
		checks    []HealthCheck
		nodeCount int
		minScore  int
		maxScore  int
	}{
		{
			name:      "no checks returns 100",
			checks:    nil,
			nodeCount: 10,
			minScore:  100,
			maxScore:  100,
		},
		{
			name: "all passing returns 100",
			checks: []HealthCheck{
				{RuleID: checkCompile, Status: "pass", IssueCount: 0},
				{RuleID: checkCycles, Status: "pass", IssueCount: 0},
			},
			nodeCount: 10,
			minScore:  100,
			maxScore:  100,
		},
		{
			name: "skipped checks do not count",
			checks: []HealthCheck{
				{RuleID: checkTypes, Status: "skip"},
			},
			nodeCount: 0,
			minScore:  100,
			maxScore:  100,
		},
		{
			name: "warnings reduce score",
			checks: []HealthCheck{
				{RuleID: checkCompile, Status: "pass", IssueCount: 0},
				{RuleID: checkValues, Status: "warn", IssueCount: 2},
			},
			nodeCount: 10,
			minScore:  90,
			maxScore:  90,
		},
		{
			name: "errors reduce score more",
			checks: []HealthCheck{
				{RuleID: checkCompile, Status: "error", IssueCount: 2},
			},
			nodeCount: 10,
			minScore:  80,
			maxScore:  80,
		},
		{
			name: "more nodes means less impact per issue",
			checks: []HealthCheck{
				{RuleID: checkUpToDate, Status: "warn", IssueCount: 5},
			},
			nodeCount: 1000,
			minScore:  95,
			maxScore:  95,
		},
		{
			name: "many issues can reduce to 0",
			checks: []HealthCheck{
				{RuleID: checkCompile, Status: "error", IssueCount: 20},
				{RuleID: checkCycles, Status: "error", IssueCount: 20},
			},
			nodeCount: 5,
			minScore:  0,
			maxScore:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := calculateHealthScore(tt.checks, tt.nodeCount)
			assert.GreaterOrEqual(t, score, tt.minScore, "score should be >= %d", tt.minScore)
			assert.LessOrEqual(t, score, tt.maxScore, "score should be <= %d", tt.maxScore)
		})
	}
}

func TestGetRecommendation(t *testing.T) {
	tests := []struct {
		ruleID   string
		expected bool // whether a recommendation is returned
	}{
		{checkCompile, true},
		{checkCycles, true},
		{checkRules, true},
		{checkTypes, true},
		{checkValues, true},
		{checkUnknown, true},
		{checkUpToDate, true},
		{"UNKNOWN", false},
	}

	for _, tt := range tests {
		t.Run(tt.ruleID, func(t *testing.T) {
			rec := getRecommendation(tt.ruleID)
			if tt.expected {
				assert.NotEmpty(t, rec, "expected recommendation for %s", tt.ruleID)
			} else {
				assert.Empty(t, rec, "expected no recommendation for %s", tt.ruleID)
			}
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: checkCycles, Status: "error", IssueCount: 1},
		{RuleID: checkUpToDate, Status: "warn", IssueCount: 2},
		{RuleID: checkValues, Status: "pass", IssueCount: 0},
	}

	recommendations := generateRecommendations(checks)

	require.Len(t, recommendations, 2)
	assert.Contains(t, recommendations[0], "circular references")
	assert.Contains(t, recommendations[1], "regenerate --write")
}

func TestGenerateRecommendations_LimitTo5(t *testing.T) {
	ids := []string{checkCompile, checkCycles, checkRules, checkTypes, checkValues, checkUnknown, checkUpToDate}
	checks := make([]HealthCheck, len(ids))
	for i, id := range ids {
		checks[i] = HealthCheck{RuleID: id, Status: "warn", IssueCount: 1}
	}

	recommendations := generateRecommendations(checks)

	assert.Len(t, recommendations, maxRecommendations)
}

func TestNewCheck(t *testing.T) {
	pass := newCheck(checkRules, "Rules", "rules", "error", nil)
	assert.Equal(t, "pass", pass.Status)
	assert.Zero(t, pass.IssueCount)

	fail := newCheck(checkRules, "Rules", "rules", "error", []string{"a", "b"})
	assert.Equal(t, "error", fail.Status)
	assert.Equal(t, 2, fail.IssueCount)
}

func checksByID(out *DoctorOutput) map[string]HealthCheck {
	m := make(map[string]HealthCheck, len(out.HealthChecks))
	for _, c := range out.HealthChecks {
		m[c.RuleID] = c
	}
	return m
}

func TestBuildDoctorOutput(t *testing.T) {
	eng := newProjectEngine(t)
	tree, err := outline.Load(strings.NewReader(testutil.ProjectOutline))
	require.NoError(t, err)

	out := buildDoctorOutput(context.Background(), eng, tree)

	assert.Equal(t, ProjectSummary{
		Types:     3,
		Fields:    19,
		Formulas:  5,
		Rules:     1,
		Nodes:     5,
		Positions: 6,
		Clones:    1,
	}, out.Summary)

	checks := checksByID(out)
	for _, id := range []string{checkCompile, checkCycles, checkRules, checkTypes, checkUnknown} {
		assert.Equal(t, "pass", checks[id].Status, "check %s: %v", id, checks[id].Details)
	}
	stale := checks[checkUpToDate]
	assert.Equal(t, "warn", stale.Status)
	assert.Equal(t, 7, stale.IssueCount, "every Math value but t3.Total is out of date")
	assert.Less(t, out.Score, 100)
	assert.NotEmpty(t, out.Recommendations)
}

func TestBuildDoctorOutput_NoOutline(t *testing.T) {
	out := buildDoctorOutput(context.Background(), newProjectEngine(t), nil)

	checks := checksByID(out)
	for _, id := range []string{checkTypes, checkValues, checkUnknown, checkUpToDate} {
		assert.Equal(t, "skip", checks[id].Status)
	}
	assert.Equal(t, 100, out.Score)
	assert.Zero(t, out.Summary.Nodes)
}

func TestBuildDoctorOutput_OutlineProblems(t *testing.T) {
	eng := newProjectEngine(t)
	tree, err := outline.Load(strings.NewReader(`id: root
type: Folder
fields:
  Amount: "1.50"
  Colour: red
children:
  - id: x
    type: Widget
  - id: y
    type: Task
    fields:
      Due: someday
`))
	require.NoError(t, err)

	checks := checksByID(buildDoctorOutput(context.Background(), eng, tree))
	assert.Equal(t, "error", checks[checkTypes].Status)
	assert.Equal(t, 1, checks[checkTypes].IssueCount)
	assert.Equal(t, "warn", checks[checkUnknown].Status)
	assert.Equal(t, 2, checks[checkValues].IssueCount, "a non-canonical number and an invalid date")
}
