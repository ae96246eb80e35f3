package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/winelabs/wineserve/internal/models"
)

// Ledger is the append-only CSV log of every inference request and its
// outcome. Rows are never rewritten or deduplicated and the file grows
// without bound. A process-level mutex serializes writers; concurrent
// processes appending to the same file remain unprotected.
type Ledger struct {
	mu   sync.Mutex
	path string
}

// New creates a ledger backed by the given CSV path. The file is created
// lazily on first append.
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the backing file location.
func (l *Ledger) Path() string {
	return l.path
}

func header() []string {
	return []string{
		"timestamp",
		"prediction",
		"type",
		"fixed_acidity",
		"volatile_acidity",
		"citric_acid",
		"residual_sugar",
		"chlorides",
		"free_sulfur_dioxide",
		"total_sulfur_dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
}

// Append writes one row for a scored (or failed) request. A nil prediction
// is recorded as an empty cell.
func (l *Ledger) Append(rec models.FeatureRecord, prediction *int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger dir: %w", err)
		}
	}

	// An empty file, pre-created by deployment tooling, needs the header too.
	writeHeader := false
	if info, err := os.Stat(l.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if writeHeader {
		if err := writer.Write(header()); err != nil {
			return fmt.Errorf("write ledger header: %w", err)
		}
	}

	predCell := ""
	if prediction != nil {
		predCell = strconv.Itoa(*prediction)
	}
	row := []string{
		time.Now().Format(time.RFC3339),
		predCell,
		rec.Type,
		formatFloat(rec.FixedAcidity),
		formatFloat(rec.VolatileAcidity),
		formatFloat(rec.CitricAcid),
		formatFloat(rec.ResidualSugar),
		formatFloat(rec.Chlorides),
		formatFloat(rec.FreeSulfurDioxide),
		formatFloat(rec.TotalSulfurDioxide),
		formatFloat(rec.Density),
		formatFloat(rec.PH),
		formatFloat(rec.Sulphates),
		formatFloat(rec.Alcohol),
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write ledger row: %w", err)
	}
	writer.Flush()
	return writer.Error()
}

// Count returns the number of data rows currently in the ledger, zero when
// the file does not exist yet.
func (l *Ledger) Count() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open ledger: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}
	return len(records) - 1, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
