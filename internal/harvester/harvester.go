// Package harvester is MultiAccountHarvester (spec.md §4.3): it fans out
// across every valid account in parallel and returns a merged,
// de-duplicated corpus of emails, documents, and calendar history, plus a
// per-account status summary the caller uses to decide whether a partial
// failure is tolerable.
package harvester

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/prepd/internal/model"
	"github.com/codeready-toolchain/prepd/internal/providerclients"
)

// Lookback windows, spec.md §3.
const (
	EmailDocLookback     = 730 * 24 * time.Hour
	CalendarLookback     = 180 * 24 * time.Hour
	EmailQueryLeadBuffer = 24 * time.Hour // the "+1d" slack in the provider query, tightened by a post-fetch filter
)

// Memory-budget caps, spec.md §5.
const (
	MaxHarvestedEmails    = 100
	MaxHarvestedFiles     = 200
	MaxHarvestedCalendar  = 100
)

// AccountStatus reports one account's outcome within a harvest fan-out.
type AccountStatus struct {
	AccountID string
	Email     string
	OK        bool
	Error     string
}

// Harvester fans out provider calls across accounts, keyed by provider.
type Harvester struct {
	clients map[model.Provider]providerclients.ProviderClient
}

// New builds a Harvester backed by the given per-provider clients.
func New(clients map[model.Provider]providerclients.ProviderClient) *Harvester {
	return &Harvester{clients: clients}
}

func (h *Harvester) clientFor(p model.Provider) (providerclients.ProviderClient, error) {
	c, ok := h.clients[p]
	if !ok {
		return nil, fmt.Errorf("harvester: no provider client registered for %q", p)
	}
	return c, nil
}

// fanOut runs fetch concurrently across accounts, collecting per-account
// results and statuses. The teacher's hand-rolled-goroutines-and-WaitGroup
// idiom (tokenguard.EnsureAllValid) is reused here rather than a worker
// pool, since a harvest fan-out is bounded by the small number of accounts
// one user connects, not an open-ended queue.
func fanOut[T any](ctx context.Context, accounts []*model.Account, fetch func(context.Context, *model.Account) ([]T, error)) ([]T, []AccountStatus, bool) {
	type result struct {
		items  []T
		status AccountStatus
	}
	results := make([]result, len(accounts))
	var wg sync.WaitGroup
	for i, acc := range accounts {
		wg.Add(1)
		go func(i int, acc *model.Account) {
			defer wg.Done()
			items, err := fetch(ctx, acc)
			st := AccountStatus{AccountID: acc.ID, Email: acc.Email, OK: err == nil}
			if err != nil {
				st.Error = err.Error()
			}
			results[i] = result{items: items, status: st}
		}(i, acc)
	}
	wg.Wait()

	var merged []T
	statuses := make([]AccountStatus, 0, len(accounts))
	anySucceeded := false
	for _, r := range results {
		merged = append(merged, r.items...)
		statuses = append(statuses, r.status)
		if r.status.OK {
			anySucceeded = true
		}
	}
	return merged, statuses, anySucceeded
}

// FetchEmails fans out a Gmail-style search across all accounts, scoped to
// [meeting-730d, meeting+1d), then applies a strict post-fetch filter that
// drops anything dated after the meeting start and anything failing the
// attendee-overlap rule (spec.md §3, §4.3).
func (h *Harvester) FetchEmails(ctx context.Context, meeting *model.Meeting, accounts []*model.Account) ([]model.EmailArtifact, []AccountStatus, error) {
	window := providerclients.TimeWindow{
		After:  meeting.Start.Add(-EmailDocLookback),
		Before: meeting.Start.Add(EmailQueryLeadBuffer),
	}
	query := buildEmailQuery(meeting)

	raw, statuses, anyOK := fanOut(ctx, accounts, func(ctx context.Context, acc *model.Account) ([]providerclients.Message, error) {
		client, err := h.clientFor(acc.Provider)
		if err != nil {
			return nil, err
		}
		return client.ListMessages(ctx, acc.AccessToken, providerclients.ListOptions{
			Query:      query,
			Window:     window,
			MaxResults: MaxHarvestedEmails,
		})
	})
	if !anyOK && len(accounts) > 0 {
		return nil, statuses, fmt.Errorf("%w: all accounts failed email fetch", model.ErrTransientProvider)
	}

	byID := map[string]model.EmailArtifact{}
	var order []string
	for _, m := range raw {
		if m.Date.After(meeting.Start) {
			continue // post-fetch filter: never let provider query slack leak a future message in
		}
		if meeting.Start.Sub(m.Date) > EmailDocLookback {
			continue
		}
		if _, seen := byID[m.ID]; seen {
			continue
		}
		art := model.EmailArtifact{
			ID: m.ID, Subject: m.Subject, From: m.From, To: m.To, CC: m.CC, BCC: m.BCC,
			Date: m.Date, Body: m.Body, Snippet: m.Snippet, Attachments: m.Attachments,
		}
		if !PassesOverlap(&art, meeting) {
			continue
		}
		byID[m.ID] = art
		order = append(order, m.ID)
	}

	out := make([]model.EmailArtifact, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > MaxHarvestedEmails {
		out = out[:MaxHarvestedEmails]
	}
	return out, statuses, nil
}

// FetchFiles fans out a Drive search scoped to readers/writers containing
// any attendee address and modified_time ∈ [meeting-730d, meeting).
func (h *Harvester) FetchFiles(ctx context.Context, meeting *model.Meeting, accounts []*model.Account) ([]model.DocumentArtifact, []AccountStatus, error) {
	window := providerclients.TimeWindow{
		After:  meeting.Start.Add(-EmailDocLookback),
		Before: meeting.Start,
	}
	query := buildDriveQuery(meeting)

	raw, statuses, anyOK := fanOut(ctx, accounts, func(ctx context.Context, acc *model.Account) ([]providerclients.File, error) {
		client, err := h.clientFor(acc.Provider)
		if err != nil {
			return nil, err
		}
		return client.ListFiles(ctx, acc.AccessToken, providerclients.ListOptions{
			Query:      query,
			Window:     window,
			MaxResults: MaxHarvestedFiles,
		})
	})
	if !anyOK && len(accounts) > 0 {
		return nil, statuses, fmt.Errorf("%w: all accounts failed file fetch", model.ErrTransientProvider)
	}

	byID := map[string]model.DocumentArtifact{}
	var order []string
	for _, f := range raw {
		if f.ModifiedTime.After(meeting.Start) {
			continue
		}
		if meeting.Start.Sub(f.ModifiedTime) > EmailDocLookback {
			continue
		}
		if _, seen := byID[f.ID]; seen {
			continue
		}
		byID[f.ID] = model.DocumentArtifact{
			ID: f.ID, Name: f.Name, MimeType: f.MimeType, MimeClass: classifyMime(f.MimeType),
			Size: f.Size, ModifiedTime: f.ModifiedTime, Owner: f.Owner, OwnerEmail: f.OwnerEmail,
			URL: f.URL, Content: providerclients.TruncateBody(f.Content),
		}
		order = append(order, f.ID)
	}

	out := make([]model.DocumentArtifact, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedTime.After(out[j].ModifiedTime) })
	if len(out) > MaxHarvestedFiles {
		out = out[:MaxHarvestedFiles]
	}
	return out, statuses, nil
}

// FetchCalendar fans out a primary-calendar history fetch scoped to
// [meeting-180d, meeting).
func (h *Harvester) FetchCalendar(ctx context.Context, meeting *model.Meeting, accounts []*model.Account) ([]model.CalendarArtifact, []AccountStatus, error) {
	window := providerclients.TimeWindow{
		After:  meeting.Start.Add(-CalendarLookback),
		Before: meeting.Start,
	}

	raw, statuses, anyOK := fanOut(ctx, accounts, func(ctx context.Context, acc *model.Account) ([]providerclients.Event, error) {
		client, err := h.clientFor(acc.Provider)
		if err != nil {
			return nil, err
		}
		return client.ListEvents(ctx, acc.AccessToken, providerclients.ListOptions{
			Window:     window,
			MaxResults: MaxHarvestedCalendar,
		})
	})
	if !anyOK && len(accounts) > 0 {
		return nil, statuses, fmt.Errorf("%w: all accounts failed calendar fetch", model.ErrTransientProvider)
	}

	byID := map[string]model.CalendarArtifact{}
	var order []string
	for _, e := range raw {
		if e.Start.After(meeting.Start) || meeting.Start.Sub(e.Start) > CalendarLookback {
			continue
		}
		if _, seen := byID[e.ID]; seen {
			continue
		}
		attendees := make([]model.Attendee, 0, len(e.Attendees))
		for _, a := range e.Attendees {
			attendees = append(attendees, model.Attendee{Email: a.Email, DisplayName: a.DisplayName})
		}
		byID[e.ID] = model.CalendarArtifact{ID: e.ID, Title: e.Title, Start: e.Start, End: e.End, Attendees: attendees}
		order = append(order, e.ID)
	}

	out := make([]model.CalendarArtifact, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.After(out[j].Start) })
	if len(out) > MaxHarvestedCalendar {
		out = out[:MaxHarvestedCalendar]
	}
	return out, statuses, nil
}

func classifyMime(mimeType string) model.DocumentMimeClass {
	switch mimeType {
	case "application/vnd.google-apps.document":
		return model.MimeClassDocument
	case "application/vnd.google-apps.spreadsheet":
		return model.MimeClassSpreadsheet
	case "application/pdf":
		return model.MimeClassPDF
	case "text/plain":
		return model.MimeClassPlainText
	default:
		return model.MimeClassOther
	}
}

func buildEmailQuery(meeting *model.Meeting) string {
	var clauses []string
	for _, e := range meeting.AttendeeEmails() {
		clauses = append(clauses, fmt.Sprintf("from:%s", e), fmt.Sprintf("to:%s", e))
	}
	for _, d := range meeting.AttendeeDomains() {
		clauses = append(clauses, fmt.Sprintf("from:*@%s", d))
	}
	for _, kw := range ExtractKeywords(meeting.Title, meeting.Description) {
		clauses = append(clauses, fmt.Sprintf("subject:%s", kw), kw)
	}
	if len(clauses) == 0 {
		return ""
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

func buildDriveQuery(meeting *model.Meeting) string {
	var clauses []string
	for _, e := range meeting.AttendeeEmails() {
		clauses = append(clauses, fmt.Sprintf("'%s' in readers", e), fmt.Sprintf("'%s' in writers", e))
	}
	if len(clauses) == 0 {
		return "trashed = false"
	}
	return "(" + strings.Join(clauses, " or ") + ") and trashed = false"
}
