package researcher

import (
	"strings"
)

// genericProviders are consumer email domains that carry no company
// affiliation signal (spec.md §4.7 point 2).
var genericProviders = map[string]bool{
	"gmail": true, "yahoo": true, "outlook": true, "hotmail": true,
	"icloud": true, "protonmail": true,
}

// InferCompany derives a company name from an attendee's email domain:
// the domain's local-part capitalized, "Student" for .edu/.ac.* domains,
// or "" for generic consumer providers (no affiliation signal).
func InferCompany(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	domain := strings.ToLower(parts[1])
	labels := strings.Split(domain, ".")
	if len(labels) == 0 {
		return ""
	}

	if isEducational(labels) {
		return "Student"
	}

	company := labels[0]
	if genericProviders[company] {
		return ""
	}
	return strings.ToUpper(company[:1]) + company[1:]
}

func isEducational(labels []string) bool {
	last := labels[len(labels)-1]
	if last == "edu" {
		return true
	}
	if len(labels) >= 2 && labels[len(labels)-2] == "ac" {
		return true
	}
	return false
}
