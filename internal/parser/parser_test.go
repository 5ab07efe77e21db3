package parser

import (
	"errors"
	"testing"

	"nickandperla.net/scribescript/internal/challenge"
	"nickandperla.net/scribescript/internal/diag"
	"nickandperla.net/scribescript/internal/expr"
	"nickandperla.net/scribescript/internal/token"
)

func mustLogic(t *testing.T, src string) expr.Block {
	t.Helper()
	e, err := New().Logic(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := e.(expr.Block)
	if !ok {
		t.Fatalf("expected Block, got %T", e)
	}
	return b
}

func TestTemplateParts(t *testing.T) {
	tmpl, err := New().Template("You have {$gold} coins.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tmpl.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(tmpl.Parts))
	}
	b, ok := tmpl.Parts[1].(expr.Block)
	if !ok {
		t.Fatalf("expected Block, got %T", tmpl.Parts[1])
	}
	ref, ok := b.Chain.Clauses[0].Body.(expr.Ref)
	if !ok || ref.Name != "gold" || ref.Sigil != token.VAR {
		t.Errorf("expected $gold reference, got %#v", b.Chain.Clauses[0].Body)
	}
}

func TestTemplateUnbalancedIsParseError(t *testing.T) {
	_, err := New().Template("You have {$gold coins.")
	if !errors.Is(err, diag.ErrParse) {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestGhostBlock(t *testing.T) {
	b := mustLogic(t, " // nothing to see\n ")
	if !b.IsEmpty() {
		t.Errorf("expected ghost block, got %d clauses", len(b.Chain.Clauses))
	}
}

func TestConditionalChain(t *testing.T) {
	b := mustLogic(t, "$gold >= 10 : Rich | $gold > 0 : Poor {$gold} | Broke")
	if len(b.Chain.Clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %d", len(b.Chain.Clauses))
	}
	if b.Chain.Clauses[0].Cond == nil || b.Chain.Clauses[2].Cond != nil {
		t.Errorf("unexpected conditions: %#v", b.Chain.Clauses)
	}
	if _, ok := b.Chain.Clauses[1].Body.(expr.Template); !ok {
		t.Errorf("expected template body, got %T", b.Chain.Clauses[1].Body)
	}
	if txt, ok := b.Chain.Clauses[0].Body.(expr.Text); !ok || txt.Value != "Rich" {
		t.Errorf("expected text 'Rich', got %#v", b.Chain.Clauses[0].Body)
	}
}

func TestProseColonWithoutConditionStaysText(t *testing.T) {
	b := mustLogic(t, "Note: the door is locked")
	cl := b.Chain.Clauses[0]
	if cl.Cond != nil {
		t.Fatalf("expected no condition, got %v", cl.Cond)
	}
	if cl.Body.String() != "Note: the door is locked" {
		t.Errorf("expected whole clause as text, got '%s'", cl.Body.String())
	}
}

func TestBadSigilConditionWarns(t *testing.T) {
	p := New()
	if _, err := p.Logic("$gold >> : text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Warnings.Has(diag.ParseError) {
		t.Error("expected a parse warning")
	}
}

func TestPrecedence(t *testing.T) {
	e, err := New().Expression("1 + 2 * 3 > 5 && !$a || $b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "((((1 + (2 * 3)) > 5) && !$a) || $b)"
	if e.String() != want {
		t.Errorf("expected '%s', got '%s'", want, e.String())
	}
}

func TestRollShorthandAndBlocks(t *testing.T) {
	e, err := New().Expression("(!{10%} && {60%})")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bin, ok := e.(expr.Binary)
	if !ok || bin.Op != token.AND {
		t.Fatalf("expected &&, got %#v", e)
	}
	not, ok := bin.X.(expr.Unary)
	if !ok || not.Op != token.NOT {
		t.Fatalf("expected !, got %#v", bin.X)
	}
	blk := not.X.(expr.Block)
	if _, ok := blk.Chain.Clauses[0].Body.(expr.Percent); !ok {
		t.Errorf("expected percent body, got %T", blk.Chain.Clauses[0].Body)
	}
}

func TestRange(t *testing.T) {
	b := mustLogic(t, "1 ~ $max")
	r, ok := b.Chain.Clauses[0].Body.(expr.Range)
	if !ok {
		t.Fatalf("expected Range, got %T", b.Chain.Clauses[0].Body)
	}
	if r.Hi.String() != "$max" {
		t.Errorf("expected '$max', got '%s'", r.Hi.String())
	}
}

func TestReferences(t *testing.T) {
	e, err := New().Expression("$gems[source:cave].name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ref := e.(expr.Ref)
	if !ref.HasArg || ref.Arg != "source:cave" || ref.Prop != "name" {
		t.Errorf("unexpected ref: %#v", ref)
	}
}

func TestDoubleBraceReparse(t *testing.T) {
	e, err := New().Logic("{$sword.name}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := e.(expr.Reparse); !ok {
		t.Errorf("expected Reparse, got %T", e)
	}
}

func TestChallengeForms(t *testing.T) {
	tests := []struct {
		src  string
		op   challenge.Op
		mods int
	}{
		{"$stat >= 50 [10]", challenge.Higher, 1},
		{"$stat >> 50; 10, 0, 100, 60", challenge.Higher, 4},
		{"$stat << 50; margin:10, pivot:40", challenge.Lower, 2},
		{"$stat >< 50", challenge.Precision, 0},
		{"$stat <> {$base + 5}", challenge.Avoidance, 0},
		{"$luck <= 30", challenge.Lower, 0},
	}
	for _, tt := range tests {
		c, err := New().Challenge(tt.src)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.src, err)
			continue
		}
		if c.Op != tt.op {
			t.Errorf("%q: expected op %s, got %s", tt.src, tt.op, c.Op)
		}
		if n := len(c.Mods.Positional) + len(c.Mods.Named); n != tt.mods {
			t.Errorf("%q: expected %d modifiers, got %d", tt.src, tt.mods, n)
		}
	}
}

func TestInvalidChallenge(t *testing.T) {
	for _, src := range []string{"50", "$a + 1", "$a >> "} {
		_, err := New().Challenge(src)
		if !errors.Is(err, diag.ErrInvalidChallenge) {
			t.Errorf("%q: expected invalid challenge, got %v", src, err)
		}
	}
}

func TestModifierColonIsNotClauseSeparator(t *testing.T) {
	b := mustLogic(t, "$str >> 50; margin:10 : Win | Lose")
	if len(b.Chain.Clauses) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(b.Chain.Clauses))
	}
	c, ok := b.Chain.Clauses[0].Cond.(expr.Challenge)
	if !ok {
		t.Fatalf("expected challenge condition, got %T", b.Chain.Clauses[0].Cond)
	}
	if len(c.Mods.Named) != 1 || c.Mods.Named[0].Key != "margin" {
		t.Errorf("unexpected modifiers: %#v", c.Mods)
	}
}

func TestEffectStatements(t *testing.T) {
	eff, err := New().Effect("$gold += 5, $gems[source:cave] -= 2, $xp++, @bonus = $gold * 2, $title = The Brave, $all[contraband] = 0, $schedule[$gold += 1 : 1h], { $a : $b += 1 | $c = 2 }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(eff.Stmts) != 8 {
		t.Fatalf("expected 8 statements, got %d", len(eff.Stmts))
	}
	m := eff.Stmts[0].(expr.Mutate)
	if m.Target.Name != "gold" || m.Op != token.ADD_ASSIGN || m.Value.String() != "5" {
		t.Errorf("unexpected mutation: %s", m)
	}
	if m := eff.Stmts[1].(expr.Mutate); m.Target.Arg != "source:cave" {
		t.Errorf("expected source arg, got %q", m.Target.Arg)
	}
	if m := eff.Stmts[2].(expr.Mutate); m.Op != token.INC || m.Value != nil {
		t.Errorf("expected ++ without value, got %s", m)
	}
	if _, ok := eff.Stmts[3].(expr.AliasAssign); !ok {
		t.Errorf("expected alias assignment, got %T", eff.Stmts[3])
	}
	if m := eff.Stmts[4].(expr.Mutate); m.Value.String() != "The Brave" {
		t.Errorf("expected prose value, got %q", m.Value.String())
	}
	if mc, ok := eff.Stmts[6].(expr.Macro); !ok || mc.Name != "schedule" {
		t.Errorf("expected schedule macro, got %#v", eff.Stmts[6])
	}
	blk, ok := eff.Stmts[7].(expr.Block)
	if !ok {
		t.Fatalf("expected block statement, got %T", eff.Stmts[7])
	}
	if got := blk.Chain.Clauses[0].BodyRaw; got != " $b += 1 " {
		t.Errorf("expected raw branch text, got %q", got)
	}
}

func TestEffectParseError(t *testing.T) {
	if _, err := New().Effect("$gold +="); err == nil {
		t.Error("expected error for missing value")
	}
	if _, err := New().Effect("$gold.name = 3"); err == nil {
		t.Error("expected error for property assignment")
	}
}

func TestParseArgs(t *testing.T) {
	args := ParseArgs("common; 3: rare; margin:10; $gold += 1 : 1h")
	want := []expr.Arg{{Raw: "common"}, {Key: "3", Raw: "rare"}, {Key: "margin", Raw: "10"}, {Raw: "$gold += 1 : 1h"}}
	if len(args.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(args.Items))
	}
	for i, w := range want {
		if args.Items[i] != w {
			t.Errorf("item %d: expected %#v, got %#v", i, w, args.Items[i])
		}
	}
}

func TestCommentsStrippedInLogic(t *testing.T) {
	b := mustLogic(t, "$a > 1 // rich\n : yes | no")
	if b.Chain.Clauses[0].Cond == nil {
		t.Error("expected condition to survive comment stripping")
	}
}

func TestConditionRejectsProse(t *testing.T) {
	if _, err := New().Condition("$gold >="); err == nil {
		t.Error("expected error for incomplete condition")
	}
	if _, err := New().Condition("the door is open"); err == nil {
		t.Error("expected error for prose condition")
	}
	for _, src := range []string{"$gold >= 10", "{25%}", "$a > 1 : true | false"} {
		if _, err := New().Condition(src); err != nil {
			t.Errorf("Condition(%q): unexpected error: %v", src, err)
		}
	}
}
