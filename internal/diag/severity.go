package diag

// Severity orders diagnostics; SevError blocks lowering.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]struct{ upper, keyword string }{
	SevInfo:    {"INFO", "note"},
	SevWarning: {"WARNING", "warning"},
	SevError:   {"ERROR", "error"},
}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s].upper
	}
	return "UNKNOWN"
}

// Keyword is the lowercase header word, as in "error[ET001]".
func (s Severity) Keyword() string {
	if int(s) < len(severityNames) {
		return severityNames[s].keyword
	}
	return "error"
}
