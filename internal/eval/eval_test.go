package eval

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/mutation"
	"nickandperla.net/scribescript/internal/quality"
	"nickandperla.net/scribescript/internal/random"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func counter(id string, level int) *quality.Quality {
	return &quality.Quality{ID: id, Type: quality.Counter, Level: level}
}

func text(id, value string) *quality.Quality {
	return &quality.Quality{ID: id, Type: quality.String, StringValue: value}
}

func TestTextInterpolation(t *testing.T) {
	e := New()
	c := e.NewContext(quality.State{"gold": counter("gold", 12)})

	assert.Equal(t, "You have 12 coins.", e.Text(c, "You have {$gold} coins."))
	assert.Equal(t, "Rich", e.Text(c, "{$gold >= 10 : Rich | Poor}"))
	assert.Equal(t, "ab", e.Text(c, "a{}b"))
	assert.Empty(t, c.Warnings())
}

func TestMalformedTextRendersLiteral(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	assert.Equal(t, "Hello {world", e.Text(c, "Hello {world"))
	assert.True(t, c.Warnings().Has(diag.ParseError))
}

func TestResolutionRollIsShared(t *testing.T) {
	e := New()
	c := e.NewContext(quality.State{"str": counter("str", 55)}, FixedRoll(45))

	assert.False(t, e.Condition(c, "{10%}"))
	assert.True(t, e.Condition(c, "(!{10%} && {60%})"))

	r := e.Challenge(c, "$str >> 50 [margin:20]")
	assert.InDelta(t, 70, r.Chance, 1e-9)
	assert.Equal(t, 45, r.Roll)
	assert.True(t, r.Success)
}

func TestRollGeneratedOnce(t *testing.T) {
	rolls := &random.Sequence{Values: []int{9, 99}}
	e := New(WithRollSource(rolls))
	c := e.NewContext(nil)

	first := c.Roll()
	assert.Equal(t, 10, first)
	assert.Equal(t, first, c.Roll())
}

func TestRangesDrawIndependently(t *testing.T) {
	rng := &random.Sequence{Values: []int{2, 6}}
	e := New(WithRandom(rng), WithRollSource(random.NewSource(1)))
	c := e.NewContext(nil)

	assert.Equal(t, "3 7", e.Text(c, "{1~10} {1~10}"))
}

func TestRandomAlternatives(t *testing.T) {
	e := New(WithRandom(&random.Sequence{Values: []int{1}}))
	c := e.NewContext(nil)
	assert.Equal(t, "b", e.Text(c, "{a | b | c}"))
}

func TestDoubleBraceReparse(t *testing.T) {
	e := New()
	c := e.NewContext(quality.State{"sum": text("sum", "1 + 2")})
	assert.Equal(t, "3", e.Text(c, "{{$sum}}"))
}

func TestDescriptionRecursionLimit(t *testing.T) {
	reg := quality.NewMapRegistry(quality.Definition{
		ID:          "loop",
		Type:        quality.Counter,
		Description: "{$loop.description}",
	})
	e := New(WithRegistry(reg), WithRecursionLimit(4))
	c := e.NewContext(quality.State{"loop": counter("loop", 1)})

	out := e.Text(c, "{$loop.description}")
	assert.Equal(t, "{$loop.description}", out)
	assert.True(t, c.Warnings().Has(diag.RecursionLimitExceeded))
	assert.Equal(t, 0, c.Depth)
}

func TestDescriptionBindsSelf(t *testing.T) {
	reg := quality.NewMapRegistry(quality.Definition{
		ID:          "sword",
		Name:        "Sword",
		Type:        quality.Item,
		Description: "{$self.name} x{$self}",
	})
	e := New(WithRegistry(reg))
	c := e.NewContext(quality.State{"sword": {ID: "sword", Type: quality.Item, Level: 2}})
	assert.Equal(t, "Sword x2", e.Text(c, "{$sword.description}"))
}

func TestTypeMismatchWarns(t *testing.T) {
	e := New()
	c := e.NewContext(quality.State{"name": text("name", "Bob")})

	assert.Equal(t, "1", e.Text(c, "{$name + 1}"))
	assert.True(t, c.Warnings().Has(diag.TypeMismatch))
}

func TestUnknownQualityIsFalse(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	assert.False(t, e.Condition(c, "$missing > 0"))
	assert.True(t, c.Warnings().Has(diag.UnknownIdentifier))
	assert.True(t, e.Condition(c, "  "))
}

func TestLuck(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	assert.InDelta(t, 30, e.ChanceOf(c, "$luck << 30"), 1e-9)
	assert.InDelta(t, 71, e.ChanceOf(c, "$luck >> 30"), 1e-9)
}

func TestFlatChanceFallback(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	assert.InDelta(t, 100, e.ChanceOf(c, "150"), 1e-9)
	assert.True(t, c.Warnings().Has(diag.InvalidChallengeSyntax))
	assert.Zero(t, e.ChanceOf(c, "nonsense words"))
}

func TestEffectsApplyLeftToRight(t *testing.T) {
	e := New()
	state := quality.State{}
	c := e.NewContext(state)

	res := e.Effect(c, "$gold = 10, $gold += 5, @x = $gold * 2, $score = @x")
	require.Empty(t, c.Warnings())
	require.Len(t, res.Mutations, 3)
	assert.Equal(t, 15, state["gold"].Level)
	assert.Equal(t, 30, state["score"].Level)
	assert.Equal(t, mutation.Add, res.Mutations[1].Op)
	assert.Equal(t, 10, res.Mutations[1].Before.Level)
	assert.Equal(t, 15, res.Mutations[1].After.Level)
}

func TestEffectStringAssignment(t *testing.T) {
	e := New()
	state := quality.State{}
	c := e.NewContext(state)

	e.Effect(c, "$title = 'Knight'")
	require.Contains(t, state, "title")
	assert.Equal(t, quality.String, state["title"].Type)
	assert.Equal(t, "Knight", state["title"].StringValue)

	e.Effect(c, "$title += 1")
	assert.True(t, c.Warnings().Has(diag.TypeMismatch))
	assert.Equal(t, "Knight", state["title"].StringValue)
}

func TestEffectConditionalBlock(t *testing.T) {
	e := New()
	state := quality.State{"gold": counter("gold", 20)}
	c := e.NewContext(state)

	e.Effect(c, "{$gold > 10 : $rich = 1 | $poor = 1}")
	assert.Contains(t, state, "rich")
	assert.NotContains(t, state, "poor")
}

func TestSourceConsumedInEffect(t *testing.T) {
	e := New()
	key := &quality.Quality{ID: "key", Type: quality.Item, Level: 2, Sources: []quality.Source{{Tag: "cave", Count: 1}, {Tag: "temple", Count: 1}}}
	state := quality.State{"key": key}
	c := e.NewContext(state)

	assert.Equal(t, "temple", e.Text(c, "{$key.source}"))
	require.Len(t, key.Sources, 2)

	res := e.Effect(c, "@from = $key.source, $found = @from")
	require.Len(t, res.Mutations, 2)
	assert.Equal(t, mutation.Consume, res.Mutations[0].Op)
	assert.Equal(t, "temple", state["found"].StringValue)
	assert.Equal(t, []quality.Source{{Tag: "cave", Count: 1}}, key.Sources)
	assert.Equal(t, 2, key.Level)
}

func TestSourcedAddAndCount(t *testing.T) {
	reg := quality.NewMapRegistry(quality.Definition{ID: "coin", Type: quality.Item})
	e := New(WithRegistry(reg))
	state := quality.State{}
	c := e.NewContext(state)

	e.Effect(c, "$coin[source:quest] += 3, $coin += 2")
	assert.Equal(t, 5, state["coin"].Level)
	assert.Equal(t, "3", e.Text(c, "{$coin[source:quest]}"))
}

func TestBatchMutationIsIdempotent(t *testing.T) {
	reg := quality.NewMapRegistry(
		quality.Definition{ID: "hex", Type: quality.Item, Category: "curse"},
		quality.Definition{ID: "blight", Type: quality.Item, Category: "curse, disease"},
		quality.Definition{ID: "gold", Type: quality.Counter},
	)
	e := New(WithRegistry(reg))
	state := quality.State{
		"hex":    {ID: "hex", Type: quality.Item, Level: 3},
		"blight": {ID: "blight", Type: quality.Item, Level: 1},
		"gold":   counter("gold", 7),
	}

	e.Effect(e.NewContext(state), "$all[curse] = 0")
	once := state.Clone()
	e.Effect(e.NewContext(state), "$all[curse] = 0")

	if diff := cmp.Diff(once, state); diff != "" {
		t.Errorf("second batch changed state (-once +twice):\n%s", diff)
	}
	assert.Equal(t, 0, state["hex"].Level)
	assert.Equal(t, 0, state["blight"].Level)
	assert.Equal(t, 7, state["gold"].Level)
}

func TestWorldQualitiesAreReadOnly(t *testing.T) {
	world := quality.State{"season": text("season", "winter")}
	e := New(WithWorld(world))
	c := e.NewContext(nil)

	assert.Equal(t, "winter", e.Text(c, "{#season}"))
	e.Effect(c, "#season = 'summer'")
	assert.True(t, c.Warnings().Has(diag.TypeMismatch))
	assert.Equal(t, "winter", world["season"].StringValue)
}

func TestMacros(t *testing.T) {
	reg := quality.NewMapRegistry(
		quality.Definition{ID: "sword", Type: quality.Item, Category: "weapon"},
		quality.Definition{ID: "bow", Type: quality.Item, Category: "weapon"},
	)
	e := New(WithRegistry(reg), WithRandom(&random.Sequence{Values: []int{3}}))
	state := quality.State{
		"sword": {ID: "sword", Type: quality.Item, Level: 1},
		"bow":   {ID: "bow", Type: quality.Item},
		"str":   counter("str", 55),
	}

	tests := []struct {
		src  string
		want string
	}{
		{"{%pick[1: red; 3: blue]}", "blue"},
		{"{%max[3; 7; 5]}", "7"},
		{"{%min[3; 7; 5]}", "3"},
		{"{%round[2.456; 2]}", "2.46"},
		{"{%count[weapon]}", "1"},
		{"{%chance[$str >> 50 [margin:20]]}", "70"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			c := e.NewContext(state)
			assert.Equal(t, tt.want, e.Text(c, tt.src))
		})
	}
}

func TestUnknownMacro(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	assert.Equal(t, "", e.Text(c, "{%nope[1]}"))
	assert.True(t, c.Warnings().Has(diag.UnknownIdentifier))
}

func TestCustomMacro(t *testing.T) {
	e := New(WithMacro("shout", func(e *Evaluator, c *Context, args expr.Args) Value {
		return Str(args.Raw + "!")
	}))
	c := e.NewContext(nil)
	assert.Equal(t, "hey!", e.Text(c, "{%shout[hey]}"))
}

func TestScheduleAndCancel(t *testing.T) {
	e := New(WithClock(func() time.Time { return t0 }))
	c := e.NewContext(quality.State{"energy": counter("energy", 0)})

	res := e.Effect(c, "%schedule[$energy += 1 : 2h : recurring]")
	require.Len(t, res.Scheduled, 1)
	ev := res.Scheduled[0]
	assert.Equal(t, "energy", ev.TargetQualityID)
	assert.Equal(t, mutation.Add, ev.Op)
	assert.Equal(t, "1", ev.Value)
	assert.Equal(t, t0.Add(2*time.Hour), ev.TriggerTime)
	assert.True(t, ev.Recurring)
	assert.Equal(t, 2*time.Hour, ev.Interval)
	assert.NotEmpty(t, ev.ID)

	c = e.NewContext(quality.State{})
	res = e.Effect(c, "$schedule[$energy = 5 : 1d], $cancel[$energy]")
	assert.Empty(t, res.Scheduled)
	assert.Equal(t, []mutation.Cancellation{{TargetQualityID: "energy"}}, res.Cancelled)
}

func TestScheduleRejectsBatch(t *testing.T) {
	e := New()
	c := e.NewContext(nil)
	res := e.Effect(c, "%schedule[$all[curse] = 0 : 1h]")
	assert.Empty(t, res.Scheduled)
	assert.True(t, c.Warnings().Has(diag.ParseError))
}

func TestFireDueCatchesUpRecurring(t *testing.T) {
	e := New()
	state := quality.State{"energy": counter("energy", 0)}
	events := []mutation.PendingEvent{{
		ID:              "e1",
		TargetQualityID: "energy",
		Op:              mutation.Add,
		Value:           "1",
		TriggerTime:     t0,
		Recurring:       true,
		Interval:        time.Hour,
	}, {
		ID:              "e2",
		TargetQualityID: "energy",
		Op:              mutation.Add,
		Value:           "10",
		TriggerTime:     t0.Add(24 * time.Hour),
	}}

	res := e.FireDue(state, events, t0.Add(150*time.Minute))
	assert.Equal(t, 3, state["energy"].Level)
	assert.Len(t, res.Mutations, 3)
	require.Len(t, res.Rescheduled, 1)
	assert.Equal(t, t0.Add(3*time.Hour), res.Rescheduled[0].TriggerTime)
	assert.Len(t, res.Pending, 2)
	assert.Empty(t, res.Fired)
}

func TestFireDueSkipsMissingTarget(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(WithLogger(zap.New(core)))
	events := []mutation.PendingEvent{{ID: "gone", TargetQualityID: "ghost", Op: mutation.Set, Value: "1", TriggerTime: t0}}

	res := e.FireDue(quality.State{}, events, t0)
	assert.Len(t, res.Skipped, 1)
	assert.Empty(t, res.Pending)
	assert.True(t, res.Warnings.Has(diag.ScheduledTargetMissing))
	assert.Equal(t, 1, logs.FilterMessage("scheduled event skipped").Len())
}

func TestDiagnosticsAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(WithLogger(zap.New(core)))
	c := e.NewContext(nil)

	e.Text(c, "{$nobody}")
	entries := logs.FilterMessage("scribescript diagnostic").All()
	require.NotEmpty(t, entries)
	assert.Equal(t, string(diag.UnknownIdentifier), entries[0].ContextMap()["code"])
}

func TestHugePyramidalGainSaturates(t *testing.T) {
	e := New()
	state := quality.State{"skill": {ID: "skill", Type: quality.Pyramidal}}
	c := e.NewContext(state)

	res := e.Effect(c, "$skill += 9000000000000000000")
	require.Len(t, res.Mutations, 1)
	assert.Equal(t, quality.MaxLevel, state["skill"].Level)
	assert.Equal(t, quality.MaxCP, state["skill"].ChangePoints)

	e.Effect(c, "$skill += 99999999999999999999999")
	assert.Equal(t, quality.MaxCP, state["skill"].ChangePoints)
}

func TestWideRangeWarnsInsteadOfPanicking(t *testing.T) {
	e := New(WithRandom(&random.Sequence{Values: []int{7}}))
	c := e.NewContext(nil)

	var out string
	require.NotPanics(t, func() {
		out = e.Text(c, "{-5000000000000000000 ~ 5000000000000000000}")
	})
	assert.NotEmpty(t, out)
	assert.True(t, c.Warnings().Has(diag.TypeMismatch))
}

func TestOverflowingPickWeightsWarn(t *testing.T) {
	e := New(WithRandom(&random.Sequence{Values: []int{5}}))
	c := e.NewContext(nil)

	var out string
	require.NotPanics(t, func() {
		out = e.Text(c, "{%pick[9223372036854775807: a; 9: b]}")
	})
	assert.Equal(t, "a", out)
	assert.True(t, c.Warnings().Has(diag.TypeMismatch))
}
