// Package file implements the order ledger as an append-only JSON-lines file.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"grocery-ordering-system/internal/core/domain"
)

var ErrLedgerClosed = errors.New("ledger is closed")

// Ledger appends one JSON record per order. Records are never rewritten.
type Ledger struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// OpenLedger opens (or creates) the ledger file for appending.
func OpenLedger(path string) (*Ledger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	return &Ledger{f: f, path: path}, nil
}

func (l *Ledger) Path() string { return l.path }

// Append writes the order as a single line and syncs it to disk before
// returning, so a nil error means the record is durable.
func (l *Ledger) Append(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.f == nil {
		return ErrLedgerClosed
	}
	if _, err := l.f.Write(line); err != nil {
		return fmt.Errorf("failed to write ledger record: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	return nil
}

func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}

// ReadLedger calls fn for every record in the file, in append order.
// line is 1-based. A malformed line is reported through fn with a non-nil
// error and reading continues.
func ReadLedger(path string, fn func(line int, order *domain.Order, err error) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open ledger %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var order domain.Order
		if err := json.Unmarshal(raw, &order); err != nil {
			if cbErr := fn(n, nil, fmt.Errorf("malformed record: %w", err)); cbErr != nil {
				return cbErr
			}
			continue
		}
		if err := fn(n, &order, nil); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// FindOrder returns the ledger record with the given id.
func FindOrder(path, id string) (*domain.Order, error) {
	var found *domain.Order
	errFound := errors.New("found")
	err := ReadLedger(path, func(_ int, order *domain.Order, err error) error {
		if err == nil && order.ID == id {
			found = order
			return errFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("order %s not found in ledger", id)
	}
	return found, nil
}
