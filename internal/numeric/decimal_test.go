package numeric

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTruncWithScaleTowardZero(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in    string
		scale int32
		want  string
	}{
		{"0.0127999", 4, "0.0127"},
		{"32.884638", 7, "32.884638"},
		{"0.00036347999", 8, "0.00036347"},
		{"-0.0129", 2, "-0.01"}, // toward zero, not floor
		{"5", 3, "5"},
		{"0.999999", 0, "0"},
	}

	for _, c := range cases {
		got := TruncWithScale(dec(c.in), c.scale)
		if !got.Equal(dec(c.want)) {
			t.Errorf("TruncWithScale(%s, %d) = %s, want %s", c.in, c.scale, got, c.want)
		}
	}
}

func TestTruncWithScaleIdempotent(t *testing.T) {
	t.Parallel()

	values := []string{"0.0127", "109615.46", "0.000362966", "7.27795", "0"}
	for _, v := range values {
		for scale := int32(0); scale <= 8; scale++ {
			once := TruncWithScale(dec(v), scale)
			twice := TruncWithScale(once, scale)
			if !once.Equal(twice) {
				t.Errorf("trunc(trunc(%s, %d)) = %s, want %s", v, scale, twice, once)
			}
		}
	}
}

func TestScaleOf(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int32
	}{
		{"0.001", 3},
		{"0.00100", 3},
		{"1", 0},
		{"100", 0},
		{"0", 0},
		{"0.0000001", 7},
		{"2.50", 1},
	}

	for _, c := range cases {
		if got := ScaleOf(dec(c.in)); got != c.want {
			t.Errorf("ScaleOf(%s) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestPow10(t *testing.T) {
	t.Parallel()

	if got := Pow10(-5); !got.Equal(dec("0.00001")) {
		t.Errorf("Pow10(-5) = %s, want 0.00001", got)
	}
	if got := Pow10(0); !got.Equal(dec("1")) {
		t.Errorf("Pow10(0) = %s, want 1", got)
	}
	if got := Pow10(2); !got.Equal(dec("100")) {
		t.Errorf("Pow10(2) = %s, want 100", got)
	}
}

// A quantity snapped to an increment grid must survive truncation at the
// increment's scale unchanged.
func TestIncrementGridRoundTrip(t *testing.T) {
	t.Parallel()

	increment := Pow10(-4)
	qty := dec("0.0127")
	if k := ScaleOf(increment); !TruncWithScale(qty, k).Equal(qty) {
		t.Errorf("trunc(%s, %d) changed a grid-aligned quantity", qty, k)
	}
}
