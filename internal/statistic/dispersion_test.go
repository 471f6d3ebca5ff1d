package statistic

import "testing"

// TestDispersionUpdate checks Welford recurrence/variance/std-dev values
// against a hand-computed fixture: [1.1, 1.2, 1.3, 1.4, 0.6].
func TestDispersionUpdate(t *testing.T) {
	type input struct {
		prevMean, newMean, newValue float64
		count                       int64
	}
	type output struct {
		highest, lowest             float64
		recurrenceM, variance, std  float64
	}

	inputs := []input{
		{0.0, 1.1, 1.1, 1},
		{1.1, 1.15, 1.2, 2},
		{1.15, 1.2, 1.3, 3},
		{1.2, 1.25, 1.4, 4},
		{1.25, 1.12, 0.6, 5},
	}
	outputs := []output{
		{1.1, 1.1, 0.0, 0.0, 0.0},
		{1.2, 1.1, 0.005, 0.0025, 0.05},
		{1.3, 1.1, 0.02, 1.0 / 150.0, sqrtNonNeg(6.0) / 30.0},
		{1.4, 1.1, 0.05, 0.0125, sqrtNonNeg(5.0) / 20.0},
		{1.4, 0.6, 0.388, 0.0776, sqrtNonNeg(194.0) / 50.0},
	}

	var d Dispersion
	for i, in := range inputs {
		d.Update(in.prevMean, in.newMean, in.newValue, in.count)
		out := outputs[i]

		if !d.Range.Activated {
			t.Fatalf("step %d: range not activated", i)
		}
		if d.Range.Highest != out.highest || d.Range.Lowest != out.lowest {
			t.Fatalf("step %d: range = [%v,%v], want [%v,%v]", i, d.Range.Lowest, d.Range.Highest, out.lowest, out.highest)
		}
		if diff := d.RecurrenceRelationM - out.recurrenceM; diff > 1e-10 || diff < -1e-10 {
			t.Fatalf("step %d: recurrence_m = %v, want %v", i, d.RecurrenceRelationM, out.recurrenceM)
		}
		if diff := d.Variance - out.variance; diff > 1e-10 || diff < -1e-10 {
			t.Fatalf("step %d: variance = %v, want %v", i, d.Variance, out.variance)
		}
		if diff := d.StdDev - out.std; diff > 1e-10 || diff < -1e-10 {
			t.Fatalf("step %d: std_dev = %v, want %v", i, d.StdDev, out.std)
		}
	}
}

func TestRangeUpdate(t *testing.T) {
	dataset := []float64{0.1, 1.01, 1.02, 1.03, 1.04, 1.05, 1.06, 1.07, 9999.0}
	var r Range
	for _, v := range dataset {
		r.Update(v)
	}
	if !r.Activated || r.Highest != 9999.0 || r.Lowest != 0.1 {
		t.Fatalf("got %+v", r)
	}
	if got := r.Calculate(); got != 9998.9 {
		t.Fatalf("calculate() = %v, want 9998.9", got)
	}
}
