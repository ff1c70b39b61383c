package domain

import (
	"fmt"
	"sort"
	"strings"
)

// StatusClass groups the authority's open-ended status codes.
type StatusClass string

// Status classes.
const (
	StatusReceived  StatusClass = "received"
	StatusValidated StatusClass = "validated"
	StatusApproved  StatusClass = "approved"
	StatusRefused   StatusClass = "refused"
	StatusPending   StatusClass = "pending"
	StatusUnknown   StatusClass = "unknown"
)

// PendingGroup is the pseudo-status used by queries to select every pending code.
const PendingGroup = "PENDING"

// statusTable maps codes seen in the feed to a class. Codes not listed are unknown.
var statusTable = map[string]StatusClass{
	"HAPP":    StatusApproved,
	"PER":     StatusApproved,
	"PERLHE":  StatusApproved,
	"NOBJ":    StatusApproved,
	"CER":     StatusApproved,
	"REF":     StatusRefused,
	"HREF":    StatusRefused,
	"Pending": StatusPending,
	"PCO":     StatusPending,
	"W":       StatusPending,
	"Unknown": StatusPending,
	"NULL":    StatusPending,
	"RECV":    StatusReceived,
	"VAL":     StatusValidated,
}

// ClassifyStatus returns the class for a status code.
func ClassifyStatus(code string) StatusClass {
	if class, ok := statusTable[strings.TrimSpace(code)]; ok {
		return class
	}
	return StatusUnknown
}

// IsPendingStatus reports whether a record with this status belongs to the
// pending group. A record with no status at all is pending.
func IsPendingStatus(code string) bool {
	code = strings.TrimSpace(code)
	return code == "" || ClassifyStatus(code) == StatusPending
}

// decidedCodes is the code recorded when the portal reports a decision the
// snapshot has not caught up with yet.
var decidedCodes = map[StatusClass]string{
	StatusApproved: "PER",
	StatusRefused:  "REF",
}

// ClassifyPortalStatus classifies the free text the portal shows for a
// status. Known codes classify as themselves. Text such as "Decided" or
// "Withdrawn" carries no outcome and is unknown.
func ClassifyPortalStatus(text string) StatusClass {
	if class := ClassifyStatus(text); class != StatusUnknown {
		return class
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "refus"):
		return StatusRefused
	case strings.Contains(lower, "approv"), strings.Contains(lower, "permit"), strings.Contains(lower, "grant"):
		return StatusApproved
	}
	return StatusUnknown
}

// DecidedCode returns the code stored for a decided class, or "" when the
// class is not a decision.
func DecidedCode(class StatusClass) string {
	return decidedCodes[class]
}

// CodesInClass returns the known codes belonging to class, sorted for stable SQL.
func CodesInClass(class StatusClass) []string {
	var codes []string
	for code, c := range statusTable {
		if c == class {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// CrossValidate compares the status shown on the portal against the stored
// snapshot status. It returns a descriptive warning when the two sources
// disagree and an empty string otherwise.
func CrossValidate(scraped, stored string) string {
	lower := strings.ToLower(scraped)
	class := ClassifyStatus(stored)
	switch {
	case strings.Contains(lower, "refused") && class != StatusRefused:
		return mismatch(scraped, stored)
	case strings.Contains(lower, "approved") && class != StatusApproved:
		return mismatch(scraped, stored)
	}
	return ""
}

func mismatch(scraped, stored string) string {
	return fmt.Sprintf("Mismatch: Portal says '%s', snapshot says '%s'", scraped, stored)
}

