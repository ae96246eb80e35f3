package evaluate

import "github.com/winelabs/wineserve/internal/dataset"

// Shift values applied by Perturb to simulate distribution drift. These are
// the fixed offsets the monitoring pipeline tests against, not tunables.
const (
	AlcoholShift         = -1.2
	VolatileAcidityShift = 0.1
)

// Perturb returns a drifted copy of the frame: alcohol shifted down 1.2,
// volatile acidity up 0.1. Columns absent from the input are skipped and the
// input frame is never modified.
func Perturb(f *dataset.Frame) *dataset.Frame {
	out := f.Copy()
	shiftColumn(out, "alcohol", AlcoholShift)
	shiftColumn(out, "volatile acidity", VolatileAcidityShift)
	return out
}

func shiftColumn(f *dataset.Frame, name string, delta float64) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return
	}
	for _, row := range f.Rows {
		if v, ok := row[idx].(float64); ok {
			row[idx] = v + delta
		}
	}
}
