package report

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_RecordAssignsSeq(t *testing.T) {
	r := New()
	first := r.Record(Pass("capabilities"))
	second := r.Record(Skip("collection articles_by_author", "requires arguments"))

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	outcomes := r.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, "capabilities", outcomes[0].Check)
}

func TestReport_Summary(t *testing.T) {
	r := New()
	r.RecordAll([]Outcome{
		Pass("schema"),
		Pass("collection articles"),
		Fail("query articles: simple", KindShapeMismatch, "row 0: missing column title"),
		Skip("collection articles_by_author", "requires arguments"),
		Failf("query authors: aggregate", KindAggregateShapeMismatch, "unexpected key %q", "extra"),
	})

	s := r.Summary()
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 5, s.Total())
	assert.False(t, s.OK())

	require.Len(t, s.Failures, 2)
	assert.Equal(t, "query articles: simple", s.Failures[0].Check)
	assert.Equal(t, KindShapeMismatch, s.Failures[0].Kind)
	assert.Equal(t, `unexpected key "extra"`, s.Failures[1].Reason)
}

func TestReport_SkipsDoNotFail(t *testing.T) {
	r := New()
	r.Record(Skip("procedure reset", "requires arguments"))
	assert.True(t, r.Summary().OK())
}

func TestReport_SummaryIsPureRead(t *testing.T) {
	r := New()
	r.Record(Pass("schema"))
	first := r.Summary()
	second := r.Summary()
	assert.Equal(t, first, second)
	assert.Len(t, r.Outcomes(), 1)
}

func TestReport_ConcurrentRecord(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Record(Pass(fmt.Sprintf("check %d", i)))
		}(i)
	}
	wg.Wait()

	outcomes := r.Outcomes()
	require.Len(t, outcomes, 50)
	seen := make(map[int64]bool)
	for i, o := range outcomes {
		assert.Equal(t, int64(i+1), o.Seq, "seq follows append order")
		seen[o.Seq] = true
	}
	assert.Len(t, seen, 50)
}

func TestReport_ObserverSeesRecordOrder(t *testing.T) {
	var lines []string
	r := New(WithObserver(func(o Outcome) {
		lines = append(lines, o.Line())
	}))

	r.Record(Pass("capabilities"))
	r.Record(Fail("schema", KindStructural, "missing collections"))

	assert.Equal(t, []string{
		"✓ capabilities",
		"✗ schema [structural]: missing collections",
	}, lines)
	assert.Equal(t, lines, r.Trace())
}

func TestOutcome_Line(t *testing.T) {
	assert.Equal(t, "- collection x (skipped: requires arguments)", Skip("collection x", "requires arguments").Line())
	assert.Equal(t, "✗ plain: boom", Fail("plain", KindNone, "boom").Line())
}

func TestOutcome_ForPlan(t *testing.T) {
	o := Pass("query articles: simple").ForPlan("abc123")
	assert.Equal(t, "abc123", o.Plan)
}

func TestErrUnreachable_SurvivesWrapping(t *testing.T) {
	base := errors.New("dial tcp: connection refused")
	err := errors.Wrap(errors.Mark(base, ErrUnreachable), "fetch schema")

	assert.True(t, errors.Is(err, ErrUnreachable))
	assert.False(t, errors.Is(err, ErrStructural))
}
