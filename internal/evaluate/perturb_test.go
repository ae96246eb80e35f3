package evaluate

import (
	"math"
	"testing"

	"github.com/winelabs/wineserve/internal/dataset"
)

func driftFrame() *dataset.Frame {
	return &dataset.Frame{
		Columns: []string{"type", "volatile acidity", "alcohol"},
		Rows: [][]any{
			{"white", 0.27, 8.8},
			{"red", 0.7, 9.4},
		},
	}
}

func TestPerturbShiftsColumns(t *testing.T) {
	original := driftFrame()
	perturbed := Perturb(original)

	alcohol, err := perturbed.FloatColumn("alcohol")
	if err != nil {
		t.Fatalf("alcohol column: %v", err)
	}
	acidity, err := perturbed.FloatColumn("volatile acidity")
	if err != nil {
		t.Fatalf("acidity column: %v", err)
	}

	wantAlcohol := []float64{8.8 - 1.2, 9.4 - 1.2}
	wantAcidity := []float64{0.27 + 0.1, 0.7 + 0.1}
	for i := range wantAlcohol {
		if math.Abs(alcohol[i]-wantAlcohol[i]) > 1e-12 {
			t.Fatalf("alcohol row %d: expected %v, got %v", i, wantAlcohol[i], alcohol[i])
		}
		if math.Abs(acidity[i]-wantAcidity[i]) > 1e-12 {
			t.Fatalf("acidity row %d: expected %v, got %v", i, wantAcidity[i], acidity[i])
		}
	}
}

func TestPerturbDoesNotMutateInput(t *testing.T) {
	original := driftFrame()
	_ = Perturb(original)

	alcohol, _ := original.FloatColumn("alcohol")
	if alcohol[0] != 8.8 || alcohol[1] != 9.4 {
		t.Fatalf("input frame mutated: %v", alcohol)
	}
	acidity, _ := original.FloatColumn("volatile acidity")
	if acidity[0] != 0.27 {
		t.Fatalf("input frame mutated: %v", acidity)
	}
}

func TestPerturbSkipsMissingColumns(t *testing.T) {
	f := &dataset.Frame{
		Columns: []string{"type", "pH"},
		Rows:    [][]any{{"white", 3.0}},
	}
	perturbed := Perturb(f)
	if perturbed.NumRows() != 1 {
		t.Fatalf("unexpected row count: %d", perturbed.NumRows())
	}
	ph, err := perturbed.FloatColumn("pH")
	if err != nil || ph[0] != 3.0 {
		t.Fatalf("unrelated column changed: %v %v", ph, err)
	}
}
