// Package usage records token consumption of translation calls in an
// append-only JSON Lines ledger.
package usage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Record is one remote call.
type Record struct {
	Timestamp        time.Time `json:"timestamp"`
	Script           string    `json:"script"`
	Model            string    `json:"model"`
	Direction        string    `json:"direction"`
	Mode             string    `json:"mode"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	TotalTokens      int       `json:"totalTokens"`
}

// Totals sums the records appended during one run.
type Totals struct {
	Calls            int `json:"calls" yaml:"calls"`
	PromptTokens     int `json:"prompt_tokens" yaml:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" yaml:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" yaml:"total_tokens"`
}

// Ledger appends records to a file. It is created once per run and passed
// to every component that makes remote calls. A ledger with an empty path
// only keeps the in-memory totals.
type Ledger struct {
	path   string
	script string
	now    func() time.Time

	mu     sync.Mutex
	totals Totals
}

// NewLedger returns a ledger writing to path. Script names the calling
// program in every record.
func NewLedger(path, script string) *Ledger {
	return &Ledger{path: path, script: script, now: time.Now}
}

// Path returns the ledger file path.
func (l *Ledger) Path() string { return l.path }

// Append writes one record. Timestamp, Script, and TotalTokens are filled in
// when unset. Append on a nil ledger is a no-op.
func (l *Ledger) Append(r Record) error {
	if l == nil {
		return nil
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = l.now().UTC()
	}
	if r.Script == "" {
		r.Script = l.script
	}
	if r.TotalTokens == 0 {
		r.TotalTokens = r.PromptTokens + r.CompletionTokens
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.totals.Calls++
	l.totals.PromptTokens += r.PromptTokens
	l.totals.CompletionTokens += r.CompletionTokens
	l.totals.TotalTokens += r.TotalTokens

	if l.path == "" {
		return nil
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode usage record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create usage ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open usage ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append usage record: %w", err)
	}
	return nil
}

// Totals returns the sums of all records appended so far.
func (l *Ledger) Totals() Totals {
	if l == nil {
		return Totals{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}
