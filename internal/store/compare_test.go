package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ndc-test/internal/report"
)

func outcomes(list ...report.Outcome) []report.Outcome {
	for i := range list {
		list[i].Seq = int64(i + 1)
	}
	return list
}

func TestCompare(t *testing.T) {
	prev := Run{Outcomes: outcomes(
		report.Pass("schema"),
		report.Pass("query articles"),
		report.Fail("query authors", report.KindTransport, "status 500"),
		report.Pass("explain articles"),
	)}
	cur := Run{Outcomes: outcomes(
		report.Pass("schema"),
		report.Fail("query articles", report.KindShapeMismatch, "row 0: missing title"),
		report.Pass("query authors"),
		report.Pass("query function latest_article_id"),
	)}

	changes := Compare(prev, cur)
	require.Len(t, changes, 4)

	assert.Equal(t, Change{Check: "query articles", From: report.StatusPass, To: report.StatusFail,
		Reason: "row 0: missing title"}, changes[0])
	assert.True(t, changes[0].Regression())

	assert.Equal(t, "query authors", changes[1].Check)
	assert.False(t, changes[1].Regression())

	assert.Equal(t, Change{Check: "query function latest_article_id", To: report.StatusPass}, changes[2])
	assert.Equal(t, Change{Check: "explain articles", From: report.StatusPass}, changes[3])
}

func TestCompare_NoChanges(t *testing.T) {
	run := Run{Outcomes: outcomes(report.Pass("schema"), report.Skip("query x", "requires arguments"))}
	assert.Empty(t, Compare(run, run))
}

func TestCompare_DuplicateChecksUseFirst(t *testing.T) {
	prev := Run{Outcomes: outcomes(report.Pass("schema"), report.Fail("schema", report.KindStructural, "x"))}
	cur := Run{Outcomes: outcomes(report.Pass("schema"))}
	assert.Empty(t, Compare(prev, cur))
}
