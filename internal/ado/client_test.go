package ado

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebridge/internal/config"
	"tracebridge/internal/types"
)

func testConfig(serverURL string) *config.Config {
	cfg := config.Default()
	cfg.ADOServer = serverURL
	cfg.ADOCollection = "Coll"
	cfg.ADOProject = "Proj"
	cfg.ADOPAT = "pat"
	return &cfg
}

func workItemJSON(id int, fields map[string]any) []byte {
	data, _ := json.Marshal(map[string]any{"id": id, "fields": fields})
	return data
}

func TestFetchWorkItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/Coll/Proj/_apis/wit/workitems/101", r.URL.Path)
		_, pat, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "pat", pat)

		w.Write(workItemJSON(101, map[string]any{
			"System.Title":                   "Fix login bug",
			"System.State":                   "Active",
			"System.AssignedTo":              map[string]any{"displayName": "John Doe"},
			"System.WorkItemType":            "Bug",
			"Microsoft.VSTS.Common.Priority": 2,
			"Microsoft.VSTS.Common.Severity": "3",
			"System.CreatedDate":             "2025-01-02T03:04:05Z",
			"System.AreaPath":                "Proj\\Area",
			"System.IterationPath":           "Proj\\Sprint 9",
		}))
	}))
	defer server.Close()

	item, err := NewClient(testConfig(server.URL)).FetchWorkItem(context.Background(), "101")
	require.NoError(t, err)

	assert.Equal(t, "101", item.ID)
	assert.Equal(t, "Fix login bug", item.Title)
	assert.Equal(t, "Active", item.State)
	assert.Equal(t, "John Doe", item.AssignedTo)
	assert.Equal(t, "Bug", item.Type)
	assert.Equal(t, "2", item.Priority, "numeric priority must render as string")
	assert.Equal(t, "3", item.Severity)
	assert.Equal(t, "Proj\\Area", item.AreaPath)
}

func TestFetchWorkItemLegacyAssignedToString(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(workItemJSON(102, map[string]any{
			"System.Title":      "Old server item",
			"System.State":      "Resolved",
			"System.AssignedTo": "Jane Roe <jane@example.com>",
		}))
	}))
	defer server.Close()

	item, err := NewClient(testConfig(server.URL)).FetchWorkItem(context.Background(), "102")
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe <jane@example.com>", item.AssignedTo)
}

func TestFetchWorkItemAbsentFieldsAreEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(workItemJSON(103, map[string]any{"System.Title": "Sparse"}))
	}))
	defer server.Close()

	item, err := NewClient(testConfig(server.URL)).FetchWorkItem(context.Background(), "103")
	require.NoError(t, err)
	assert.Equal(t, "", item.State)
	assert.Equal(t, "", item.Severity)
	assert.Equal(t, "", item.ClosedDate)
	assert.Equal(t, types.UnassignedDisplay, item.AssignedTo)
}

func TestFetchWorkItemNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).FetchWorkItem(context.Background(), "999")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchWorkItemsSkipsFailuresAndSentinels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		id := parts[len(parts)-1]
		if id == "500" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n := 0
		fmt.Sscanf(id, "%d", &n)
		w.Write(workItemJSON(n, map[string]any{"System.Title": "Item " + id, "System.State": "Active"}))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	items := client.FetchWorkItems(context.Background(), []string{"1", "2", "500", types.NotLinked, ""})

	assert.Len(t, items, 2)
	assert.Equal(t, "Item 1", items["1"].Title)
	assert.Equal(t, "Item 2", items["2"].Title)
	_, found := items["500"]
	assert.False(t, found, "failed fetch must surface as absence, not an error")
}

func TestQueryRecentPool(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/Coll/Proj/_apis/wit/wiql" {
			require.Equal(t, http.MethodPost, r.Method)
			var body struct {
				Query string `json:"query"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body.Query, "[System.TeamProject] = 'Proj'")
			assert.Contains(t, body.Query, "@Today - 30")

			json.NewEncoder(w).Encode(map[string]any{
				"workItems": []map[string]any{{"id": 1}, {"id": 2}, {"id": 3}},
			})
			return
		}

		parts := strings.Split(r.URL.Path, "/")
		id := parts[len(parts)-1]
		if id == "2" {
			w.WriteHeader(http.StatusNotFound) // pool hydration is best-effort
			return
		}
		n := 0
		fmt.Sscanf(id, "%d", &n)
		w.Write(workItemJSON(n, map[string]any{
			"System.Title":        "Pool item " + id,
			"System.State":        "New",
			"System.WorkItemType": "Task",
		}))
	}))
	defer server.Close()

	pool, err := NewClient(testConfig(server.URL)).QueryRecentPool(context.Background(), 30)
	require.NoError(t, err)

	require.Len(t, pool, 2)
	assert.Equal(t, "1", pool[0].ID, "pool must preserve query order")
	assert.Equal(t, "Pool item 1", pool[0].Title)
	assert.Equal(t, "3", pool[1].ID)
	assert.Equal(t, "Task", pool[1].Type)
}

func TestQueryRecentPoolNegativeDays(t *testing.T) {
	_, err := NewClient(testConfig("http://unused.example.com")).QueryRecentPool(context.Background(), -1)
	require.Error(t, err)
}

func TestWIQLEscapesProjectName(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Query
		json.NewEncoder(w).Encode(map[string]any{"workItems": []map[string]any{}})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.ADOProject = "Bob's Project"
	_, err := NewClient(cfg).queryRecentIDs(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "'Bob''s Project'")
}

func TestCheckConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"workItems": []map[string]any{{"id": 5}, {"id": 6}},
		})
	}))
	defer server.Close()

	count, err := NewClient(testConfig(server.URL)).CheckConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
