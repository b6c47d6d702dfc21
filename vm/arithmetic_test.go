package vm

import (
	"math"
	"math/big"
	"testing"
)

func TestAddFastPath(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	n := NewArithmetic(OpAdd, ArbitraryPrecision, lit(40), lit(2))
	v := mustEval(t, w, n)
	if v != Long(42) {
		t.Errorf("40 + 2 = %v, want 42", v)
	}
	if n.State() != ArithFast {
		t.Errorf("state = %s, want fast", n.State())
	}
}

func TestAddOverflowPromotes(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	n := NewArithmetic(OpAdd, ArbitraryPrecision, lit(math.MaxInt64), lit(1))
	v := mustEval(t, w, n)

	want := new(big.Int).Add(big.NewInt(math.MaxInt64), big.NewInt(1))
	b, ok := v.(*BigNumber)
	if !ok {
		t.Fatalf("result = %s, want BigNumber", TypeName(v))
	}
	if b.Int().Cmp(want) != 0 {
		t.Errorf("result = %s, want %s", b.Int(), want)
	}
	if n.State() != ArithPromoted {
		t.Errorf("state = %s, want promoted", n.State())
	}

	// A promoted node still normalizes small results.
	small := NewArithmetic(OpAdd, ArbitraryPrecision, lit(1), lit(2))
	small.promote()
	if v := mustEval(t, w, small); v != Long(3) {
		t.Errorf("promoted 1 + 2 = %v (%s), want Long 3", v, TypeName(v))
	}
}

func TestArithmeticCheckedOverflow(t *testing.T) {
	w, _ := newTestWorld(t, Options{Arithmetic: CheckedOverflow})
	cases := []struct {
		op   Operator
		a, b int64
	}{
		{OpAdd, math.MaxInt64, 1},
		{OpSub, math.MinInt64, 1},
		{OpMul, math.MaxInt64, 2},
		{OpMul, math.MinInt64, -1},
		{OpMul, -1, math.MinInt64},
	}
	for _, tc := range cases {
		n := NewArithmetic(tc.op, CheckedOverflow, lit(tc.a), lit(tc.b))
		_, err := eval(t, w, n)
		expectFault(t, err, ArithmeticOverflow)
		if n.State() != ArithFast {
			t.Errorf("%d %s %d: checked node must not promote", tc.a, tc.op, tc.b)
		}
	}
}

func TestOperatorExact(t *testing.T) {
	cases := []struct {
		op     Operator
		a, b   int64
		want   int64
		exact  bool
	}{
		{OpAdd, 1, 2, 3, true},
		{OpAdd, math.MaxInt64, 0, math.MaxInt64, true},
		{OpAdd, math.MinInt64, -1, 0, false},
		{OpSub, 5, 7, -2, true},
		{OpSub, math.MaxInt64, -1, 0, false},
		{OpSub, 0, math.MinInt64, 0, false},
		{OpMul, 1 << 31, 1 << 31, 1 << 62, true},
		{OpMul, 1 << 32, 1 << 32, 0, false},
		{OpMul, 0, math.MinInt64, 0, true},
		{OpMul, -1, math.MaxInt64, -math.MaxInt64, true},
	}
	for _, tc := range cases {
		got, exact := tc.op.exact(tc.a, tc.b)
		if exact != tc.exact {
			t.Errorf("%d %s %d: exact = %v, want %v", tc.a, tc.op, tc.b, exact, tc.exact)
			continue
		}
		if exact && got != tc.want {
			t.Errorf("%d %s %d = %d, want %d", tc.a, tc.op, tc.b, got, tc.want)
		}
	}
}

func TestArithmeticTypeError(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	_, err := eval(t, w, add(lit(1), str("a")))
	expectFault(t, err, TypeError)

	f, _ := AsFault(err)
	if f.Operation != "+" {
		t.Errorf("operation = %q, want +", f.Operation)
	}
	if len(f.Values) != 2 || f.Values[1] != String("a") {
		t.Errorf("fault values = %v", f.Values)
	}
}

func TestBigNumberArithmetic(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	huge, _ := new(big.Int).SetString("100000000000000000000", 10)

	v := mustEval(t, w, NewArithmetic(OpSub, ArbitraryPrecision, NewBigNumberLiteral(huge), NewBigNumberLiteral(huge)))
	if v != Long(0) {
		t.Errorf("huge - huge = %v, want Long 0", v)
	}

	v = mustEval(t, w, NewArithmetic(OpMul, ArbitraryPrecision, NewBigNumberLiteral(huge), lit(2)))
	if Display(v) != "200000000000000000000" {
		t.Errorf("huge * 2 = %s", Display(v))
	}
}

func TestDiv(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())

	if v := mustEval(t, w, NewDiv(lit(-7), lit(2))); v != Long(-3) {
		t.Errorf("-7 / 2 = %v, want -3", v)
	}

	_, err := eval(t, w, NewDiv(lit(1), lit(0)))
	expectFault(t, err, DivisionByZero)

	// MIN / -1 overflows even under arbitrary precision.
	_, err = eval(t, w, NewDiv(lit(math.MinInt64), lit(-1)))
	expectFault(t, err, ArithmeticOverflow)

	huge, _ := new(big.Int).SetString("-18446744073709551616", 10)
	if v := mustEval(t, w, NewDiv(NewBigNumberLiteral(huge), lit(4))); v != Long(-4611686018427387904) {
		t.Errorf("big / 4 = %v", v)
	}
}

func TestNegate(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	if v := mustEval(t, w, NewNegate(ArbitraryPrecision, lit(5))); v != Long(-5) {
		t.Errorf("-5 = %v", v)
	}
	v := mustEval(t, w, NewNegate(ArbitraryPrecision, lit(math.MinInt64)))
	if Display(v) != "9223372036854775808" {
		t.Errorf("-MIN = %s", Display(v))
	}
	_, err := eval(t, w, NewNegate(CheckedOverflow, lit(math.MinInt64)))
	expectFault(t, err, ArithmeticOverflow)
}

func TestArithmeticLongEntry(t *testing.T) {
	w, _ := newTestWorld(t, DefaultOptions())
	f := NewFrame(NewFrameDescriptor(), nil)

	n := NewArithmetic(OpMul, ArbitraryPrecision, lit(6), lit(7))
	l, u, err := n.ExecuteLong(w, f)
	if err != nil || u != nil || l != 42 {
		t.Errorf("ExecuteLong = %d, %v, %v; want 42", l, u, err)
	}

	wide := NewArithmetic(OpMul, ArbitraryPrecision, lit(math.MaxInt64), lit(4))
	_, u, err = wide.ExecuteLong(w, f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u == nil || u.Result.Kind() != KindBigNumber {
		t.Errorf("expected Unexpected carrying a BigNumber, got %v", u)
	}
}
