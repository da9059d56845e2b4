package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Ledger is the JSON-array file of emitted invoices. Every append rewrites the
// whole file. The mutex serialises writers inside this process only; two
// processes sharing the file can still lose updates.
type Ledger struct {
	path string
	mu   sync.Mutex
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}
	records = append(records, rec)
	return l.write(records)
}

func (l *Ledger) All() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *Ledger) ByUser(userID uuid.UUID) ([]Record, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0)
	for _, r := range all {
		if r.Invoice.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Find returns the record with the given series and number, or nil.
func (l *Ledger) Find(series string, number int) (*Record, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Invoice.Series == series && all[i].Invoice.Number == number {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (l *Ledger) read() ([]Record, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return records, nil
}

func (l *Ledger) write(records []Record) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
