package service_test

import (
	"math"
	"testing"

	"github.com/vitaup/vitacore/internal/service"
)

func TestConvertAmountSameDimension(t *testing.T) {
	t.Parallel()
	out, err := service.ConvertAmount(100, "g", "oz", 0)
	if err != nil {
		t.Fatalf("convert mass units: %v", err)
	}
	if math.Abs(out-3.5274) > 0.01 {
		t.Fatalf("expected ~3.53 oz, got %.4f", out)
	}
}

func TestConvertAmountCrossDimensionRequiresDensity(t *testing.T) {
	t.Parallel()
	_, err := service.ConvertAmount(1, "cup", "g", 0)
	if err == nil {
		t.Fatalf("expected density requirement error")
	}
}

func TestConvertAmountCrossDimensionWithDensity(t *testing.T) {
	t.Parallel()
	out, err := service.ConvertAmount(1, "cup", "g", 1.03)
	if err != nil {
		t.Fatalf("convert cup to grams: %v", err)
	}
	if math.Abs(out-243.69) > 0.01 {
		t.Fatalf("expected ~243.69 g, got %.4f", out)
	}
}

func TestToGramsAcceptsAliases(t *testing.T) {
	t.Parallel()
	for unit, want := range map[string]float64{"grams": 30, "G": 30, "ml": 30, "oz": 850.49} {
		got, ok := service.ToGrams(30, unit)
		if !ok {
			t.Fatalf("unit %q not resolved", unit)
		}
		if math.Abs(got-want) > 0.01 {
			t.Fatalf("ToGrams(30, %q) = %.2f, want %.2f", unit, got, want)
		}
	}
	if _, ok := service.ToGrams(30, "handful"); ok {
		t.Fatalf("expected unknown unit to fail")
	}
}

func TestKJToKcal(t *testing.T) {
	t.Parallel()
	if got := service.KJToKcal(1674); math.Abs(got-400.096) > 0.001 {
		t.Fatalf("expected ~400.1 kcal, got %.3f", got)
	}
}

func TestGlassesAreCapped(t *testing.T) {
	t.Parallel()
	cases := []struct {
		ml, max, want int
	}{
		{0, 8, 0},
		{249, 8, 0},
		{750, 8, 3},
		{3000, 8, 8},
		{3000, 0, 12},
	}
	for _, tc := range cases {
		if got := service.Glasses(tc.ml, tc.max); got != tc.want {
			t.Fatalf("Glasses(%d, %d) = %d, want %d", tc.ml, tc.max, got, tc.want)
		}
	}
}

func TestSleepConversions(t *testing.T) {
	t.Parallel()
	if got := service.MinutesToHours(450); got != 7.5 {
		t.Fatalf("expected 7.5 h, got %v", got)
	}
	if got := service.HoursToMinutes(7.25); got != 435 {
		t.Fatalf("expected 435 min, got %d", got)
	}
}
