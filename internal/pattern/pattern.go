// Package pattern compiles and evaluates chargemaster search
// expressions. A Pattern is either a named entry from a configuration
// table or a raw user-supplied expression; both compile to the same
// case-insensitive matcher.
package pattern

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/gyeh/hospital-prices/internal/chargemaster"
)

// CodeField selects which code column a pattern is matched against,
// alongside the description.
type CodeField int

const (
	// CodeFieldProcedure matches the primary procedure code.
	CodeFieldProcedure CodeField = iota
	// CodeFieldRevenue matches the revenue code.
	CodeFieldRevenue
)

// Pattern is an uncompiled search expression. Name is empty for raw
// user-supplied expressions.
type Pattern struct {
	Name   string
	Source string
}

// Named returns a pattern from a configuration table entry.
func Named(name, source string) Pattern {
	return Pattern{Name: name, Source: source}
}

// Custom returns a pattern for a raw user-supplied expression.
func Custom(source string) Pattern {
	return Pattern{Source: source}
}

// CompileError reports a syntactically invalid search expression. It is
// surfaced to the caller before any fetching begins, never mid-batch.
type CompileError struct {
	Source string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid search pattern %q: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Compiled is a validated, ready-to-match pattern.
type Compiled struct {
	Pattern
	re *regexp.Regexp
}

// Compile validates the expression and returns a case-insensitive
// matcher. Callers must guard against an empty Source.
func (p Pattern) Compile() (*Compiled, error) {
	re, err := regexp.Compile("(?i)" + p.Source)
	if err != nil {
		return nil, &CompileError{Source: p.Source, Err: err}
	}
	return &Compiled{Pattern: p, re: re}, nil
}

// Matches reports whether the record's description or the value of the
// selected code field matches the expression.
func (c *Compiled) Matches(rec chargemaster.PriceRecord, field CodeField) bool {
	if c.re.MatchString(string(rec.Description)) {
		return true
	}
	code := rec.Code
	if field == CodeFieldRevenue {
		code = rec.RevenueCode
	}
	return c.re.MatchString(string(code))
}

// PayerMatches reports whether the record passes the payer filter: true
// when payer is empty, or when the record's trimmed payer name equals
// payer exactly (case-sensitive).
func PayerMatches(rec chargemaster.PriceRecord, payer string) bool {
	if payer == "" {
		return true
	}
	return strings.TrimSpace(string(rec.PayerName)) == strings.TrimSpace(payer)
}

// Table maps configured search names to their stored expressions.
type Table map[string]Pattern

// tableEntry is the on-disk JSON shape: {"MRI brain": {"pattern": "..."}}.
type tableEntry struct {
	Pattern string `json:"pattern"`
}

// LoadTable reads a pattern configuration table from a JSON file.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pattern table: %w", err)
	}
	var raw map[string]tableEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse pattern table %s: %w", path, err)
	}

	table := make(Table, len(raw))
	for name, entry := range raw {
		if entry.Pattern == "" {
			continue
		}
		table[name] = Named(name, entry.Pattern)
	}
	return table, nil
}

// Names returns the table's entry names in lexicographic order, for
// populating a selection list.
func (t Table) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
