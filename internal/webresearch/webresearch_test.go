package webresearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSearcher_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "research attendee", body["objective"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"results": []Result{{Title: "Alice Smith - LinkedIn", URL: "https://linkedin.com/in/alice", Excerpt: "Engineer at Acme"}},
		})
	}))
	defer srv.Close()

	s := NewHTTPSearcher(srv.URL, "key", 0)
	results, err := s.Search(context.Background(), "research attendee", []string{"Alice Smith site:linkedin.com"}, 3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Alice Smith - LinkedIn", results[0].Title)
}
