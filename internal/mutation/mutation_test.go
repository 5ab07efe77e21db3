package mutation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/quality"
)

func TestPyramidalAddRecomputesLevel(t *testing.T) {
	q := quality.New("skill", quality.Pyramidal)
	m, warn := Apply(q, Add, NumberOperand(15), "")
	require.Nil(t, warn)
	assert.Equal(t, 5, q.Level)
	assert.Equal(t, 15, m.After.ChangePoints)
	assert.Equal(t, 0, m.Before.Level)

	Apply(q, Dec, Operand{}, "")
	assert.Equal(t, 4, q.Level)
	assert.Equal(t, 14, q.ChangePoints)
}

func TestPyramidalSetRebaselinesCP(t *testing.T) {
	q := quality.New("skill", quality.Pyramidal)
	Apply(q, Add, NumberOperand(40), "")
	Apply(q, Set, NumberOperand(2), "")
	assert.Equal(t, 2, q.Level)
	assert.Equal(t, 3, q.ChangePoints)

	Apply(q, Mul, NumberOperand(3), "")
	assert.Equal(t, 6, q.Level)
	assert.Equal(t, 21, q.ChangePoints)
}

func TestCounterArithmetic(t *testing.T) {
	q := quality.New("debt", quality.Counter)
	Apply(q, Add, NumberOperand(3), "")
	Apply(q, Inc, Operand{}, "")
	assert.Equal(t, 4, q.Level)
	Apply(q, Sub, NumberOperand(10), "")
	assert.Equal(t, -6, q.Level)
	Apply(q, Mul, NumberOperand(0.5), "")
	assert.Equal(t, -3, q.Level)
}

func TestItemClampsAtZero(t *testing.T) {
	q := quality.New("gems", quality.Item)
	Apply(q, Add, NumberOperand(2), "")
	Apply(q, Sub, NumberOperand(5), "")
	assert.Equal(t, 0, q.Level)
	Apply(q, Set, NumberOperand(-4), "")
	assert.Equal(t, 0, q.Level)
}

func TestSourcedAddAndSpend(t *testing.T) {
	q := quality.New("gems", quality.Item)
	Apply(q, Add, NumberOperand(5), "cave")
	Apply(q, Add, NumberOperand(3), "market")
	m, _ := Apply(q, Sub, NumberOperand(4), "")
	assert.Equal(t, []quality.Source{{Tag: "cave", Count: 1}, {Tag: "market", Count: 3}}, m.Sources)
	assert.Equal(t, q.Level, q.SourcedTotal())
}

func TestSetDownSpendsThroughSources(t *testing.T) {
	q := quality.New("gems", quality.Item)
	Apply(q, Add, NumberOperand(5), "cave")
	Apply(q, Set, NumberOperand(2), "")
	assert.Equal(t, 2, q.Level)
	assert.Equal(t, 2, q.SourcedTotal())
}

func TestStringQuality(t *testing.T) {
	q := quality.New("title", quality.String)
	m, warn := Apply(q, Set, Operand{Text: "The Brave"}, "")
	require.Nil(t, warn)
	assert.Equal(t, "The Brave", q.StringValue)
	assert.Equal(t, "The Brave", m.After.StringValue)

	_, warn = Apply(q, Add, NumberOperand(1), "")
	require.NotNil(t, warn)
	assert.True(t, errors.Is(warn, diag.ErrTypeMismatch))
	assert.Equal(t, "The Brave", q.StringValue)
}

func TestOpTextRoundTrip(t *testing.T) {
	for _, op := range []Op{Set, Add, Sub, Mul, Inc, Dec} {
		b, err := op.MarshalText()
		require.NoError(t, err)
		var back Op
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, op, back)
	}
	var bad Op
	assert.Error(t, bad.UnmarshalText([]byte("^=")))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"90", 90 * time.Minute},
		{"1h30m", 90 * time.Minute},
		{"2d", 48 * time.Hour},
		{"1w 1d", 8 * 24 * time.Hour},
		{"1.5h", 90 * time.Minute},
		{"45s", 45 * time.Second},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", "soon", "-5", "h3", "3x"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func TestPendingEventRecurrence(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	e := PendingEvent{ID: NewEventID(), TargetQualityID: "stamina", Op: Add, Value: "1", TriggerTime: start, Recurring: true, Interval: time.Hour}
	assert.False(t, e.Due(start.Add(-time.Second)))
	assert.True(t, e.Due(start))
	assert.Equal(t, start.Add(time.Hour), e.Next().TriggerTime)
	assert.Equal(t, 1.0, e.Operand().Number)
	assert.Len(t, e.ID, 36)
}

func TestConsumeSource(t *testing.T) {
	q := quality.New("gems", quality.Item)
	Apply(q, Add, NumberOperand(2), "cave")
	Apply(q, Add, NumberOperand(1), "market")
	m, tag, ok := ConsumeSource(q)
	require.True(t, ok)
	assert.Equal(t, "market", tag)
	assert.Equal(t, Consume, m.Op)
	assert.Equal(t, 3, m.After.Level)
	assert.Equal(t, []quality.Source{{Tag: "cave", Count: 2}}, m.Sources)

	_, _, ok = ConsumeSource(quality.New("empty", quality.Item))
	assert.False(t, ok)
}
