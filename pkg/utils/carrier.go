package utils

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed carriers.yaml
var defaultCarriersYAML []byte

// CarrierEntry maps a carrier-name fragment to its IATA code
type CarrierEntry struct {
	Match string `yaml:"match"`
	Code  string `yaml:"code"`
}

// CarrierTable is an ordered carrier list; lookups return the first match
type CarrierTable struct {
	entries []CarrierEntry
}

var (
	defaultCarrierTable = mustParseCarrierTable(defaultCarriersYAML)

	spacingRegex = regexp.MustCompile(`^([A-Z]{2})(\d+)`)
)

// ParseCarrierTable decodes a YAML carrier table
func ParseCarrierTable(data []byte) (*CarrierTable, error) {
	var doc struct {
		Carriers []CarrierEntry `yaml:"carriers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse carrier table: %w", err)
	}

	table := &CarrierTable{}
	for _, e := range doc.Carriers {
		table.add(e)
	}
	return table, nil
}

func mustParseCarrierTable(data []byte) *CarrierTable {
	table, err := ParseCarrierTable(data)
	if err != nil {
		panic(err)
	}
	return table
}

// DefaultCarrierTable returns a copy of the built-in carrier table
func DefaultCarrierTable() *CarrierTable {
	return defaultCarrierTable.With()
}

// With returns a copy of the table with extra entries appended after the
// existing ones, so built-in entries keep precedence
func (t *CarrierTable) With(extra ...CarrierEntry) *CarrierTable {
	out := &CarrierTable{entries: make([]CarrierEntry, 0, len(t.entries)+len(extra))}
	out.entries = append(out.entries, t.entries...)
	for _, e := range extra {
		out.add(e)
	}
	return out
}

func (t *CarrierTable) add(e CarrierEntry) {
	match := strings.ToLower(strings.TrimSpace(e.Match))
	code := strings.ToUpper(strings.TrimSpace(e.Code))
	if match == "" || code == "" {
		return
	}
	t.entries = append(t.entries, CarrierEntry{Match: match, Code: code})
}

// Len returns the number of entries
func (t *CarrierTable) Len() int {
	return len(t.entries)
}

// Lookup returns the IATA code of the first entry contained in carrier
func (t *CarrierTable) Lookup(carrier string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(carrier))
	if name == "" {
		return "", false
	}
	for _, e := range t.entries {
		if strings.Contains(name, e.Match) {
			return e.Code, true
		}
	}
	return "", false
}

// RepairFlightNumber applies carrier-code repair then spacing repair:
// "84" flown by "United Airlines" becomes "UA 84", "UA84" becomes "UA 84".
// Applying it to its own output returns the output unchanged.
func RepairFlightNumber(number, carrier string, table *CarrierTable) string {
	fixed := strings.ToUpper(strings.TrimSpace(number))
	if fixed == "" {
		return fixed
	}

	if !containsLetter(fixed) && table != nil {
		if code, ok := table.Lookup(carrier); ok {
			fixed = code + " " + fixed
		}
	}

	if m := spacingRegex.FindStringSubmatchIndex(fixed); m != nil {
		fixed = fixed[:m[3]] + " " + fixed[m[4]:]
	}

	return fixed
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
