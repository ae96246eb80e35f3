package models

import "testing"

func TestTrainingColumnsMatchValues(t *testing.T) {
	rec := FeatureRecord{
		Type:               "white",
		FixedAcidity:       7.0,
		VolatileAcidity:    0.27,
		CitricAcid:         0.36,
		ResidualSugar:      20.7,
		Chlorides:          0.045,
		FreeSulfurDioxide:  45.0,
		TotalSulfurDioxide: 170.0,
		Density:            1.001,
		PH:                 3.0,
		Sulphates:          0.45,
		Alcohol:            8.8,
	}

	cols := TrainingColumns()
	vals := rec.Values()
	if len(cols) != len(vals) {
		t.Fatalf("len(columns) = %d, len(values) = %d", len(cols), len(vals))
	}

	if cols[0] != "type" {
		t.Errorf("first column = %q, want type", cols[0])
	}
	if cols[len(cols)-1] != "alcohol" {
		t.Errorf("last column = %q, want alcohol", cols[len(cols)-1])
	}
	if vals[0] != "white" {
		t.Errorf("first value = %v, want white", vals[0])
	}
	if vals[len(vals)-1] != 8.8 {
		t.Errorf("last value = %v, want 8.8", vals[len(vals)-1])
	}

	want := map[string]any{
		"volatile acidity":    0.27,
		"free sulfur dioxide": 45.0,
		"pH":                  3.0,
	}
	for name, expect := range want {
		found := false
		for i, c := range cols {
			if c == name {
				found = true
				if vals[i] != expect {
					t.Errorf("%s = %v, want %v", name, vals[i], expect)
				}
			}
		}
		if !found {
			t.Errorf("column %q missing", name)
		}
	}
}
