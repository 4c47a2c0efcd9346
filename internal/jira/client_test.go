package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebridge/internal/config"
)

func apiConfig(serverURL string) *config.Config {
	cfg := config.Default()
	cfg.DataSource = config.SourceAPI
	cfg.JiraURL = serverURL
	cfg.JiraUsername = "bot@example.com"
	cfg.JiraAPIToken = "token"
	cfg.JiraJQL = "project = PROJ"
	return &cfg
}

func TestCheckConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/3/myself", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		json.NewEncoder(w).Encode(map[string]string{"displayName": "Traceability Bot"})
	}))
	defer server.Close()

	name, err := NewClient(apiConfig(server.URL)).CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Traceability Bot", name)
}

func TestCheckConnectionAuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewClient(apiConfig(server.URL)).CheckConnection(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchIssuesPaginates(t *testing.T) {
	const total = 150
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/api/3/search/jql", r.URL.Path)
		assert.Equal(t, "project = PROJ", r.URL.Query().Get("jql"))

		startAt, _ := strconv.Atoi(r.URL.Query().Get("startAt"))
		batch, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		require.LessOrEqual(t, batch, 100, "page size must respect the API limit")

		var issues []RawIssue
		for i := startAt; i < startAt+batch && i < total; i++ {
			issues = append(issues, RawIssue{
				Key:    fmt.Sprintf("PROJ-%d", i+1),
				Fields: json.RawMessage(`{"summary": "issue"}`),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"issues": issues, "total": total})
	}))
	defer server.Close()

	raws, err := NewClient(apiConfig(server.URL)).SearchIssues(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, raws, total)
	assert.Equal(t, "PROJ-1", raws[0].Key)
	assert.Equal(t, fmt.Sprintf("PROJ-%d", total), raws[total-1].Key)
}

func TestSearchIssuesRespectsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		batch, _ := strconv.Atoi(r.URL.Query().Get("maxResults"))
		var issues []RawIssue
		for i := 0; i < batch; i++ {
			issues = append(issues, RawIssue{Key: fmt.Sprintf("PROJ-%d", i+1)})
		}
		json.NewEncoder(w).Encode(map[string]any{"issues": issues, "total": 10000})
	}))
	defer server.Close()

	raws, err := NewClient(apiConfig(server.URL)).SearchIssues(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, raws, 50)
}

func TestSearchIssuesNoJQL(t *testing.T) {
	cfg := apiConfig("http://unused.example.com")
	cfg.JiraJQL = ""
	_, err := NewClient(cfg).SearchIssues(context.Background(), 100)
	require.Error(t, err)
}

func TestSearchIssuesRequestsConfiguredFields(t *testing.T) {
	var gotFields string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFields = r.URL.Query().Get("fields")
		json.NewEncoder(w).Encode(map[string]any{"issues": []RawIssue{}, "total": 0})
	}))
	defer server.Close()

	cfg := apiConfig(server.URL)
	cfg.SeverityField = "customfield_20001"
	_, err := NewClient(cfg).SearchIssues(context.Background(), 100)
	require.NoError(t, err)
	assert.Contains(t, gotFields, "customfield_20001")
	assert.Contains(t, gotFields, "summary")
}
