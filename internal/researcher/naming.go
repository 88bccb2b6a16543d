// Package researcher is AttendeeResearcher (spec.md §4.7): per-attendee
// name resolution, company inference, email-evidence extraction, and
// optional web research, assembled into a validated AttendeeProfile.
package researcher

import (
	"regexp"
	"strings"

	"github.com/codeready-toolchain/prepd/internal/model"
)

var nameAddrPattern = regexp.MustCompile(`^\s*"?([^"<]+?)"?\s*<([^>]+)>\s*$`)

// ResolveName implements §4.7 point 1's fallback chain: calendar
// display_name → prior-calendar-event display_name → "Name <addr>" header
// parse → local-part of the address.
func ResolveName(attendee model.Attendee, history []model.CalendarArtifact, emails []model.EmailArtifact) string {
	if attendee.DisplayName != "" {
		return attendee.DisplayName
	}

	if name := nameFromHistory(attendee.Email, history); name != "" {
		return name
	}

	if name := nameFromHeaders(attendee.Email, emails); name != "" {
		return name
	}

	return localPart(attendee.Email)
}

func nameFromHistory(email string, history []model.CalendarArtifact) string {
	email = strings.ToLower(email)
	for _, ev := range history {
		for _, a := range ev.Attendees {
			if strings.ToLower(a.Email) == email && a.DisplayName != "" {
				return a.DisplayName
			}
		}
	}
	return ""
}

func nameFromHeaders(email string, emails []model.EmailArtifact) string {
	target := strings.ToLower(email)
	for _, e := range emails {
		if name := matchHeader(e.From, target); name != "" {
			return name
		}
		for _, to := range e.To {
			if name := matchHeader(to, target); name != "" {
				return name
			}
		}
	}
	return ""
}

func matchHeader(header, target string) string {
	m := nameAddrPattern.FindStringSubmatch(header)
	if len(m) != 3 {
		return ""
	}
	if strings.ToLower(strings.TrimSpace(m[2])) != target {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func localPart(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) == 0 {
		return email
	}
	return parts[0]
}

func domainOf(email string) string {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}
