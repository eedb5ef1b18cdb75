package tabular

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/okian/glwatch/internal/domain/ledger"
)

const unknownAccountName = "Unknown"

// LedgerEntry is one account in a ledger export.
type LedgerEntry struct {
	AccountName  string               `json:"account_name"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// Ledger is one year's export keyed by account code.
type Ledger map[string]LedgerEntry

// ReadLedger decodes {code: {account_name, transactions: [...]}}.
func ReadLedger(r io.Reader) (Ledger, error) {
	var l Ledger
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		if err == io.EOF {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("%w: decode ledger: %v", ErrMalformed, err)
	}
	return l, nil
}

// ReadLedgerFile reads a ledger from path.
func ReadLedgerFile(path string) (Ledger, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close()
	l, err := ReadLedger(f)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %w", path, err)
	}
	return l, nil
}

// WriteLedger encodes l as indented JSON.
func WriteLedger(w io.Writer, l Ledger) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	return nil
}

// Pair joins two years over the union of account codes, ordered by code.
// The name comes from the current year, then the prior year, else "Unknown".
func Pair(prior, current Ledger) []ledger.Pair {
	codes := make(map[string]struct{}, len(prior)+len(current))
	for c := range prior {
		codes[c] = struct{}{}
	}
	for c := range current {
		codes[c] = struct{}{}
	}
	sorted := make([]string, 0, len(codes))
	for c := range codes {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	out := make([]ledger.Pair, 0, len(sorted))
	for _, code := range sorted {
		p := ledger.Pair{Code: code}
		if e, ok := current[code]; ok {
			p.Name = e.AccountName
			p.Current = e.Transactions
		}
		if e, ok := prior[code]; ok {
			if p.Name == "" {
				p.Name = e.AccountName
			}
			p.Prior = e.Transactions
		}
		if p.Name == "" {
			p.Name = unknownAccountName
		}
		out = append(out, p)
	}
	return out
}
