package indicator

import (
	"fmt"
	"math"
	"testing"

	"pumpwatch/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func candle(ts int64, close float64) model.Candle {
	return model.Candle{
		TS: ts, Open: close, High: close + 0.5, Low: close - 0.5, Close: close, Volume: 1,
	}
}

func series(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = candle(int64(i)*300_000, c)
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Prices: 10, 11, 12, 13
	// Seed after 3 values: (10+11+12)/3 = 11.0
	// After 13: (11*2 + 13)/3 = 35/3 = 11.6667
	smma := NewSMMA(3)
	prices := []float64{10, 11, 12, 13}
	expected := []float64{0, 0, 11.0, 11.666667}
	ready := []bool{false, false, true, true}

	for i, p := range prices {
		smma.Update(p)
		if smma.Ready() != ready[i] {
			t.Errorf("value %d: Ready()=%v, want %v", i, smma.Ready(), ready[i])
		}
		if ready[i] {
			assertClose(t, fmt.Sprintf("SMMA(3) value %d", i), smma.Value(), expected[i], 0.0001)
		}
	}
}

func TestSMMA_Reset(t *testing.T) {
	smma := NewSMMA(2)
	smma.Update(4)
	smma.Update(6)
	smma.Reset()
	if smma.Ready() || smma.Value() != 0 {
		t.Fatalf("after Reset: Ready=%v Value=%f", smma.Ready(), smma.Value())
	}
	smma.Update(1)
	smma.Update(3)
	assertClose(t, "SMMA after reset", smma.Value(), 2.0, 1e-12)
}

// ────────────────────────────────────────────────────────────
// RSI Correctness
// ────────────────────────────────────────────────────────────

func TestRSI_Correctness_Period5(t *testing.T) {
	// Using a small period (5) for manual calculation.
	// Prices: 44, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84
	//
	// Deltas (from price 2 onward):
	//   +0.34, -0.25, -0.48, +0.72, +0.50
	//
	// First RSI (after 6 closes, period=5):
	//   avgGain = 1.56/5 = 0.312, avgLoss = 0.73/5 = 0.146
	//   RSI = 100 - 100/(1+2.136986) = 68.1223
	//
	// 45.10: avgGain = (0.312*4+0.27)/5 = 0.3036, avgLoss = 0.1168 → 72.2169
	// 45.42: avgGain = 0.30688, avgLoss = 0.09344 → 76.6587
	// 45.84: avgGain = 0.329504, avgLoss = 0.074752 → 81.5087

	rsi := NewRSI(5)
	prices := []float64{44, 44.34, 44.09, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84}
	expected := map[int]float64{5: 68.1223, 6: 72.2169, 7: 76.6587, 8: 81.5087}

	for i, p := range prices {
		rsi.Update(p)
		if i < 5 && rsi.Ready() {
			t.Errorf("close %d: Ready() too early", i)
		}
		if want, ok := expected[i]; ok {
			if !rsi.Ready() {
				t.Fatalf("close %d: not Ready", i)
			}
			assertClose(t, fmt.Sprintf("RSI(5) close %d", i), rsi.Value(), want, 1e-3)
		}
	}
}

func TestCalculateRSI_Golden(t *testing.T) {
	// 14 deltas: nine gains of 2, five losses of 1.
	// avgGain = 18/14, avgLoss = 5/14 → RS = 3.6 → RSI = 100 - 100/4.6
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21, 20, 22, 24, 23}
	got, ok := CalculateRSI(closes, 14)
	if !ok {
		t.Fatal("expected RSI with exactly period+1 closes")
	}
	assertClose(t, "golden RSI(14)", got, 78.26086956521739, 1e-9)

	again, _ := CalculateRSI(closes, 14)
	if again != got {
		t.Errorf("non-deterministic: %v vs %v", got, again)
	}
}

func TestCalculateRSI_InsufficientData(t *testing.T) {
	for _, period := range []int{1, 2, 5, 14, 30} {
		for n := 0; n <= period; n++ {
			closes := make([]float64, n)
			for i := range closes {
				closes[i] = float64(i + 1)
			}
			if _, ok := CalculateRSI(closes, period); ok {
				t.Errorf("period=%d len=%d: expected no value", period, n)
			}
		}
	}
	if _, ok := CalculateRSI([]float64{1, 2, 3}, 0); ok {
		t.Error("period 0 must not produce a value")
	}
}

func TestRSI_AllUp_Is100(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 0.001 * float64(i+1)
	}
	got, ok := CalculateRSI(closes, 14)
	if !ok || got != 100 {
		t.Errorf("all-up RSI = %v (ok=%v), want exactly 100", got, ok)
	}
}

func TestRSI_AllDown_Is0(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	got, ok := CalculateRSI(closes, 14)
	if !ok {
		t.Fatal("expected value")
	}
	assertClose(t, "all-down RSI", got, 0, 1e-12)
}

func TestRSI_Flat_Is100(t *testing.T) {
	// No losses at all: avgLoss == 0 defines RS as infinite.
	closes := []float64{5, 5, 5, 5, 5, 5}
	got, ok := CalculateRSI(closes, 5)
	if !ok || got != 100 {
		t.Errorf("flat RSI = %v (ok=%v), want 100", got, ok)
	}
}

func TestRSI_Bounded(t *testing.T) {
	closes := []float64{3, 7, 2, 9, 1, 8, 4, 6, 5, 10, 0.5, 11, 2, 7, 3, 9, 1}
	for period := 1; period < len(closes); period++ {
		got, ok := CalculateRSI(closes, period)
		if !ok {
			t.Fatalf("period %d: expected value", period)
		}
		if got < 0 || got > 100 {
			t.Errorf("period %d: RSI %v out of [0,100]", period, got)
		}
	}
}

func TestRSI_ScaleInvariant(t *testing.T) {
	closes := []float64{10, 12, 11, 13, 15, 14, 16, 18, 17, 19, 21, 20, 22, 24, 23, 22}
	scaled := make([]float64, len(closes))
	for i, c := range closes {
		scaled[i] = c * 1e-6
	}
	a, _ := CalculateRSI(closes, 14)
	b, _ := CalculateRSI(scaled, 14)
	assertClose(t, "scaled RSI", b, a, 1e-6)
}

// ────────────────────────────────────────────────────────────
// Aggregation
// ────────────────────────────────────────────────────────────

func TestAggregate_ShortInputIsEmpty(t *testing.T) {
	for n := 0; n < 12; n++ {
		if got := Aggregate(series(make([]float64, n)...), 12); len(got) != 0 {
			t.Errorf("len=%d: got %d candles, want 0", n, len(got))
		}
	}
}

func TestAggregate_Properties(t *testing.T) {
	for _, tc := range []struct{ n, factor int }{
		{12, 12}, {13, 12}, {24, 12}, {299, 12}, {7, 3}, {10, 1}, {5, 5},
	} {
		in := make([]model.Candle, tc.n)
		for i := range in {
			c := float64(100 + (i*37)%23)
			in[i] = model.Candle{
				TS: int64(i) * 300_000, Open: c - 1, High: c + float64(i%5), Low: c - float64(i%7) - 1,
				Close: c, Volume: float64(i + 1),
			}
		}
		out := Aggregate(in, tc.factor)
		if len(out) != tc.n/tc.factor {
			t.Fatalf("n=%d f=%d: got %d candles, want %d", tc.n, tc.factor, len(out), tc.n/tc.factor)
		}

		start := tc.n % tc.factor
		for k, agg := range out {
			chunk := in[start+k*tc.factor : start+(k+1)*tc.factor]
			hi, lo, vol := chunk[0].High, chunk[0].Low, 0.0
			for _, m := range chunk {
				hi = math.Max(hi, m.High)
				lo = math.Min(lo, m.Low)
				vol += m.Volume
			}
			if agg.TS != chunk[0].TS || agg.Open != chunk[0].Open {
				t.Errorf("n=%d chunk %d: ts/open not from first member", tc.n, k)
			}
			if agg.Close != chunk[len(chunk)-1].Close {
				t.Errorf("n=%d chunk %d: close not from last member", tc.n, k)
			}
			if agg.High != hi || agg.Low != lo {
				t.Errorf("n=%d chunk %d: high/low = %v/%v, want %v/%v", tc.n, k, agg.High, agg.Low, hi, lo)
			}
			assertClose(t, fmt.Sprintf("n=%d chunk %d volume", tc.n, k), agg.Volume, vol, 1e-9)
			if k > 0 && agg.TS <= out[k-1].TS {
				t.Errorf("n=%d: output not ascending at %d", tc.n, k)
			}
		}
	}
}

func TestAggregate_DropsLeadingRemainder(t *testing.T) {
	// 7 closes, factor 3: the oldest close is discarded.
	in := series(1, 2, 3, 4, 5, 6, 7)
	out := Aggregate(in, 3)
	if len(out) != 2 {
		t.Fatalf("got %d candles, want 2", len(out))
	}
	if out[0].Open != 2 || out[0].Close != 4 || out[1].Open != 5 || out[1].Close != 7 {
		t.Errorf("unexpected grouping: %+v", out)
	}
	if out[0].TS != in[1].TS {
		t.Errorf("first group ts = %d, want %d", out[0].TS, in[1].TS)
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	in := series(1, 2, 3, 4)
	before := append([]model.Candle(nil), in...)
	Aggregate(in, 2)
	for i := range in {
		if in[i] != before[i] {
			t.Fatalf("input mutated at %d", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// Alert predicate
// ────────────────────────────────────────────────────────────

func TestThresholds_Fires_Boundaries(t *testing.T) {
	values := []float64{9.99, 10.0, 29.99, 30.0}
	for _, short := range values {
		for _, long := range values {
			want := long < 30 && long >= 10 && short < 30
			if got := DefaultThresholds.Fires(short, long); got != want {
				t.Errorf("Fires(short=%v, long=%v) = %v, want %v", short, long, got, want)
			}
		}
	}
}

func TestThresholds_Custom(t *testing.T) {
	th := Thresholds{Upper: 25, Lower: 5}
	if !th.Fires(24.9, 5) {
		t.Error("expected fire at lower bound")
	}
	if th.Fires(25, 20) {
		t.Error("short at upper bound must not fire")
	}
	if th.Fires(10, 4.99) {
		t.Error("long below lower bound must not fire")
	}
}
