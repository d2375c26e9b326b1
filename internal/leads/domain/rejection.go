package domain

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RejectionSeparator joins a taxonomy label and the reviewer's notes.
const RejectionSeparator = ": "

//go:embed rejection_reasons.yaml
var rejectionReasonsYAML []byte

// RejectionReason is one entry of the fixed rejection taxonomy.
type RejectionReason struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}

var rejectionReasons = mustLoadRejectionReasons(rejectionReasonsYAML)

func mustLoadRejectionReasons(raw []byte) []RejectionReason {
	var doc struct {
		Reasons []RejectionReason `yaml:"reasons"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		panic(fmt.Sprintf("rejection reasons: %v", err))
	}
	if len(doc.Reasons) == 0 {
		panic("rejection reasons: taxonomy is empty")
	}
	return doc.Reasons
}

// RejectionReasons returns the taxonomy in display order.
func RejectionReasons() []RejectionReason {
	return append([]RejectionReason(nil), rejectionReasons...)
}

// LookupRejectionReason matches a code or label, case-insensitively.
func LookupRejectionReason(value string) (RejectionReason, bool) {
	needle := strings.TrimSpace(value)
	for _, r := range rejectionReasons {
		if strings.EqualFold(r.Code, needle) || strings.EqualFold(r.Label, needle) {
			return r, true
		}
	}
	return RejectionReason{}, false
}

// FormatRejection builds the stored rejection_reason: the taxonomy label,
// followed by the separator and notes when notes are given.
func FormatRejection(reason, notes string) (string, error) {
	r, ok := LookupRejectionReason(reason)
	if !ok {
		return "", fmt.Errorf("unknown rejection reason %q", reason)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return r.Label, nil
	}
	return r.Label + RejectionSeparator + notes, nil
}
