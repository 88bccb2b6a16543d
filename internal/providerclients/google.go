package providerclients

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GoogleClient implements ProviderClient against the Gmail, Drive, and
// Calendar v3 REST APIs directly over net/http. No generated Google API
// client is available in the retrieved pack (see DESIGN.md); this follows
// the same hand-rolled-net/http precedent as internal/llmclient and
// internal/tokenguard for every other outbound integration this rewrite
// makes.
type GoogleClient struct {
	httpClient *http.Client
	baseMail   string
	baseDrive  string
	baseCal    string
}

// NewGoogleClient builds a GoogleClient with the production API base URLs.
// Tests override base URLs via NewGoogleClientWithBases to point at a
// local httptest.Server.
func NewGoogleClient(timeout time.Duration) *GoogleClient {
	return NewGoogleClientWithBases(timeout,
		"https://gmail.googleapis.com/gmail/v1",
		"https://www.googleapis.com/drive/v3",
		"https://www.googleapis.com/calendar/v3")
}

// NewGoogleClientWithBases builds a GoogleClient against explicit base URLs.
func NewGoogleClientWithBases(timeout time.Duration, mailBase, driveBase, calBase string) *GoogleClient {
	return &GoogleClient{
		httpClient: &http.Client{Timeout: timeout},
		baseMail:   mailBase,
		baseDrive:  driveBase,
		baseCal:    calBase,
	}
}

func (c *GoogleClient) authedRequest(ctx context.Context, accessToken, method, rawURL string) func() (*http.Request, error) {
	return func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return req, nil
	}
}

// ListMessages lists Gmail messages matching opts.Query within opts.Window,
// resolving pagination internally up to opts.MaxResults.
func (c *GoogleClient) ListMessages(ctx context.Context, accessToken string, opts ListOptions) ([]Message, error) {
	query := opts.Query
	if !opts.Window.After.IsZero() {
		query += fmt.Sprintf(" after:%d", opts.Window.After.Unix())
	}
	if !opts.Window.Before.IsZero() {
		query += fmt.Sprintf(" before:%d", opts.Window.Before.Unix())
	}

	var out []Message
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/users/me/messages?q=%s&maxResults=100", c.baseMail, url.QueryEscape(strings.TrimSpace(query)))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		resp, err := doWithRetry(ctx, c.httpClient, c.authedRequest(ctx, accessToken, http.MethodGet, u))
		if err != nil {
			return nil, fmt.Errorf("providerclients: list messages: %w", err)
		}
		var page struct {
			Messages []struct {
				ID string `json:"id"`
			} `json:"messages"`
			NextPageToken string `json:"nextPageToken"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("providerclients: decode message list: %w", err)
		}

		for _, m := range page.Messages {
			if opts.MaxResults > 0 && len(out) >= opts.MaxResults {
				return out, nil
			}
			msg, err := c.getMessage(ctx, accessToken, m.ID)
			if err != nil {
				continue // a single unreadable message shouldn't fail the whole fetch
			}
			out = append(out, *msg)
		}

		if page.NextPageToken == "" || (opts.MaxResults > 0 && len(out) >= opts.MaxResults) {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}

func (c *GoogleClient) getMessage(ctx context.Context, accessToken, id string) (*Message, error) {
	u := fmt.Sprintf("%s/users/me/messages/%s?format=full", c.baseMail, id)
	resp, err := doWithRetry(ctx, c.httpClient, c.authedRequest(ctx, accessToken, http.MethodGet, u))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		ID      string `json:"id"`
		Snippet string `json:"snippet"`
		Payload struct {
			Headers []struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			} `json:"headers"`
			Body struct {
				Data string `json:"data"`
			} `json:"body"`
			Parts []struct {
				MimeType string `json:"mimeType"`
				Body     struct {
					Data string `json:"data"`
				} `json:"body"`
			} `json:"parts"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	msg := &Message{ID: raw.ID, Snippet: raw.Snippet}
	for _, h := range raw.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "subject":
			msg.Subject = h.Value
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = splitAddressList(h.Value)
		case "cc":
			msg.CC = splitAddressList(h.Value)
		case "bcc":
			msg.BCC = splitAddressList(h.Value)
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				msg.Date = t
			}
		}
	}

	body := decodeBase64URL(raw.Payload.Body.Data)
	if body == "" {
		for _, p := range raw.Payload.Parts {
			if strings.HasPrefix(p.MimeType, "text/plain") {
				body = decodeBase64URL(p.Body.Data)
				break
			}
		}
	}
	msg.Body = TruncateBody(body)
	return msg, nil
}

func splitAddressList(header string) []string {
	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		// header didn't parse as RFC 5322 addresses; fall back to a raw
		// comma split so a malformed header doesn't drop the recipient.
		var out []string
		for _, p := range strings.Split(header, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}

func decodeBase64URL(s string) string {
	if s == "" {
		return ""
	}
	data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// ListFiles lists Drive files matching opts.Query within opts.Window.
func (c *GoogleClient) ListFiles(ctx context.Context, accessToken string, opts ListOptions) ([]File, error) {
	q := opts.Query
	if !opts.Window.After.IsZero() {
		q += fmt.Sprintf(" and modifiedTime > '%s'", opts.Window.After.UTC().Format(time.RFC3339))
	}
	if !opts.Window.Before.IsZero() {
		q += fmt.Sprintf(" and modifiedTime < '%s'", opts.Window.Before.UTC().Format(time.RFC3339))
	}

	var out []File
	pageToken := ""
	fields := "nextPageToken,files(id,name,mimeType,size,modifiedTime,owners,webViewLink,permissions)"
	for {
		u := fmt.Sprintf("%s/files?q=%s&fields=%s&pageSize=100", c.baseDrive, url.QueryEscape(q), url.QueryEscape(fields))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		resp, err := doWithRetry(ctx, c.httpClient, c.authedRequest(ctx, accessToken, http.MethodGet, u))
		if err != nil {
			return nil, fmt.Errorf("providerclients: list files: %w", err)
		}
		var page struct {
			Files []struct {
				ID           string `json:"id"`
				Name         string `json:"name"`
				MimeType     string `json:"mimeType"`
				Size         string `json:"size"`
				ModifiedTime string `json:"modifiedTime"`
				Owners       []struct {
					DisplayName string `json:"displayName"`
					EmailAddress string `json:"emailAddress"`
				} `json:"owners"`
				WebViewLink string `json:"webViewLink"`
				Permissions []struct {
					EmailAddress string `json:"emailAddress"`
					Role         string `json:"role"`
				} `json:"permissions"`
			} `json:"files"`
			NextPageToken string `json:"nextPageToken"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("providerclients: decode file list: %w", err)
		}

		for _, f := range page.Files {
			file := File{
				ID:       f.ID,
				Name:     f.Name,
				MimeType: f.MimeType,
				URL:      f.WebViewLink,
			}
			if sz, err := strconv.ParseInt(f.Size, 10, 64); err == nil {
				file.Size = sz
			}
			if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
				file.ModifiedTime = t
			}
			if len(f.Owners) > 0 {
				file.Owner = f.Owners[0].DisplayName
				file.OwnerEmail = f.Owners[0].EmailAddress
			}
			for _, p := range f.Permissions {
				switch p.Role {
				case "writer", "owner":
					file.Writers = append(file.Writers, p.EmailAddress)
				case "reader":
					file.Readers = append(file.Readers, p.EmailAddress)
				}
			}
			out = append(out, file)
			if opts.MaxResults > 0 && len(out) >= opts.MaxResults {
				return out, nil
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}

// ExportContent downloads and returns text content for an exportable
// Drive file, truncated to MaxBodyBytes. Returns "" for non-exportable
// mime types without making a request.
func (c *GoogleClient) ExportContent(ctx context.Context, accessToken, fileID, mimeType string) (string, error) {
	exportMime, ok := exportMimeFor(mimeType)
	if !ok {
		return "", nil
	}
	u := fmt.Sprintf("%s/files/%s/export?mimeType=%s", c.baseDrive, fileID, url.QueryEscape(exportMime))
	resp, err := doWithRetry(ctx, c.httpClient, c.authedRequest(ctx, accessToken, http.MethodGet, u))
	if err != nil {
		return "", fmt.Errorf("providerclients: export content: %w", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, MaxBodyBytes+1)
	n, _ := resp.Body.Read(buf)
	return TruncateBody(string(buf[:n])), nil
}

func exportMimeFor(mimeType string) (string, bool) {
	switch mimeType {
	case "application/vnd.google-apps.document":
		return "text/plain", true
	case "application/vnd.google-apps.spreadsheet":
		return "text/csv", true
	case "application/pdf", "text/plain":
		return mimeType, true
	default:
		return "", false
	}
}

// ListEvents lists primary-calendar events within opts.Window.
func (c *GoogleClient) ListEvents(ctx context.Context, accessToken string, opts ListOptions) ([]Event, error) {
	var out []Event
	pageToken := ""
	for {
		u := fmt.Sprintf("%s/calendars/primary/events?timeMin=%s&timeMax=%s&singleEvents=true&orderBy=startTime&maxResults=250",
			c.baseCal,
			url.QueryEscape(opts.Window.After.UTC().Format(time.RFC3339)),
			url.QueryEscape(opts.Window.Before.UTC().Format(time.RFC3339)))
		if pageToken != "" {
			u += "&pageToken=" + url.QueryEscape(pageToken)
		}
		resp, err := doWithRetry(ctx, c.httpClient, c.authedRequest(ctx, accessToken, http.MethodGet, u))
		if err != nil {
			return nil, fmt.Errorf("providerclients: list events: %w", err)
		}
		var page struct {
			Items []struct {
				ID      string `json:"id"`
				Summary string `json:"summary"`
				Start   struct {
					DateTime string `json:"dateTime"`
					Date     string `json:"date"`
				} `json:"start"`
				End struct {
					DateTime string `json:"dateTime"`
					Date     string `json:"date"`
				} `json:"end"`
				Attendees []struct {
					Email       string `json:"email"`
					DisplayName string `json:"displayName"`
				} `json:"attendees"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("providerclients: decode event list: %w", err)
		}

		for _, it := range page.Items {
			ev := Event{ID: it.ID, Title: it.Summary}
			ev.Start = parseEventTime(it.Start.DateTime, it.Start.Date)
			ev.End = parseEventTime(it.End.DateTime, it.End.Date)
			for _, a := range it.Attendees {
				ev.Attendees = append(ev.Attendees, EventAttendee{Email: a.Email, DisplayName: a.DisplayName})
			}
			out = append(out, ev)
			if opts.MaxResults > 0 && len(out) >= opts.MaxResults {
				return out, nil
			}
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}
	return out, nil
}

func parseEventTime(dateTime, date string) time.Time {
	if dateTime != "" {
		if t, err := time.Parse(time.RFC3339, dateTime); err == nil {
			return t
		}
	}
	if date != "" {
		if t, err := time.Parse("2006-01-02", date); err == nil {
			return t
		}
	}
	return time.Time{}
}
