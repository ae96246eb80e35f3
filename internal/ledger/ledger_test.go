package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/winelabs/wineserve/internal/models"
)

func sampleRecord() models.FeatureRecord {
	return models.FeatureRecord{
		Type:               "white",
		FixedAcidity:       7.0,
		VolatileAcidity:    0.27,
		CitricAcid:         0.36,
		ResidualSugar:      20.7,
		Chlorides:          0.045,
		FreeSulfurDioxide:  45,
		TotalSulfurDioxide: 170,
		Density:            1.001,
		PH:                 3.0,
		Sulphates:          0.45,
		Alcohol:            8.8,
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read ledger: %v", err)
	}
	return records
}

func TestAppendWritesHeaderIntoPreTouchedEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("touch ledger: %v", err)
	}
	l := New(path)

	pred := 6
	if err := l.Append(sampleRecord(), &pred); err != nil {
		t.Fatalf("append: %v", err)
	}

	records := readAll(t, path)
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(records))
	}
	if records[0][0] != "timestamp" {
		t.Fatalf("header missing, first line: %v", records[0])
	}

	count, err := l.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected count 1, got %d", count)
	}
}

func TestAppendCreatesHeaderAndDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifacts", "requests.csv")
	l := New(path)

	pred := 6
	if err := l.Append(sampleRecord(), &pred); err != nil {
		t.Fatalf("append: %v", err)
	}

	records := readAll(t, path)
	if len(records) != 2 {
		t.Fatalf("expected header + 1 row, got %d lines", len(records))
	}
	if records[0][0] != "timestamp" || records[0][1] != "prediction" || records[0][2] != "type" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	if records[1][1] != "6" || records[1][2] != "white" {
		t.Fatalf("unexpected row: %v", records[1])
	}
}

func TestAppendMonotonic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")
	l := New(path)

	const k = 7
	for i := 0; i < k; i++ {
		pred := i
		if err := l.Append(sampleRecord(), &pred); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records := readAll(t, path)
	if len(records) != k+1 {
		t.Fatalf("expected header + %d rows, got %d", k, len(records))
	}
	// Single header, rows in call order.
	for i := 1; i < len(records); i++ {
		if records[i][0] == "timestamp" {
			t.Fatal("header written more than once")
		}
		if records[i][1] != string(rune('0'+i-1)) {
			t.Fatalf("row %d out of order: %v", i, records[i])
		}
	}

	count, err := l.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != k {
		t.Fatalf("expected count %d, got %d", k, count)
	}
}

func TestAppendNilPrediction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")
	l := New(path)

	if err := l.Append(sampleRecord(), nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	records := readAll(t, path)
	if records[1][1] != "" {
		t.Fatalf("expected empty prediction cell, got %q", records[1][1])
	}
}

func TestCountMissingFile(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "requests.csv"))
	count, err := l.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.csv")
	l := New(path)

	const writers = 8
	const perWriter = 5
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				pred := 6
				if err := l.Append(sampleRecord(), &pred); err != nil {
					t.Errorf("append: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	count, err := l.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != writers*perWriter {
		t.Fatalf("expected %d rows, got %d", writers*perWriter, count)
	}
}
