// Package scanner detects dangerous capabilities in contract source text
package scanner

import "regexp"

// Label names a dangerous capability found in contract source
type Label string

const (
	ArbitraryMint           Label = "arbitrary-mint"
	EmergencyPause          Label = "emergency-pause"
	PrivilegedAccessControl Label = "privileged-access-control"
	AddressDenylist         Label = "address-denylist"
	FeeMutation             Label = "fee-mutation"
)

type rule struct {
	label   Label
	pattern *regexp.Regexp
}

// Order of this table is the order of Scan results.
var rules = []rule{
	{ArbitraryMint, regexp.MustCompile(`(?i)\b(mint|_mint)\s*\([^)]*\)`)},
	{EmergencyPause, regexp.MustCompile(`(?i)\b(pause|unpause|setPaused)\s*\([^)]*\)`)},
	{PrivilegedAccessControl, regexp.MustCompile(`(?i)\b(onlyOwner|onlyAdmin|require\(\s*owner\s*==\s*msg\.sender\s*\))`)},
	{AddressDenylist, regexp.MustCompile(`(?i)\b(blacklist|blocklist|ban|freeze)\s*\([^)]*\)`)},
	{FeeMutation, regexp.MustCompile(`(?i)\b(setFee|changeFee|updateFee)\s*\([^)]*\)`)},
}

// Labels returns the full taxonomy in scan order
func Labels() []Label {
	out := make([]Label, len(rules))
	for i, r := range rules {
		out[i] = r.label
	}
	return out
}

// Scan returns the labels whose pattern occurs anywhere in source.
// Each label appears at most once. Empty or garbage input yields an empty slice.
func Scan(source string) []Label {
	found := []Label{}
	if source == "" {
		return found
	}
	for _, r := range rules {
		if r.pattern.MatchString(source) {
			found = append(found, r.label)
		}
	}
	return found
}
