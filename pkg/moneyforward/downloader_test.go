package moneyforward

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestDownloadCSV(t *testing.T) {
	sessionID := "dummy_session_id"

	encoded, err := io.ReadAll(transform.NewReader(
		strings.NewReader(buildCSV(defaultRow())),
		japanese.ShiftJIS.NewEncoder(),
	))
	require.NoError(t, err)

	var mu sync.Mutex
	var requests []*http.Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Clone(context.Background()))
		mu.Unlock()
		w.Write(encoded)
	}))
	defer server.Close()

	saveDir := t.TempDir()
	downloader := NewDownloader(DownloaderConfig{
		BaseURL:  server.URL,
		SavePath: saveDir,
		Months:   3,
		Logger:   nullLogger(),
	})

	files, err := downloader.DownloadCSV(context.Background(), sessionID)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// One request per month window, newest first, with the session cookie.
	require.Len(t, requests, 3)
	now := time.Now()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	for _, r := range requests {
		assert.Equal(t, "/cf/csv", r.URL.Path)
		assert.Equal(t, month.Format("2006/01/02"), r.URL.Query().Get("from"))
		assert.Equal(t, fmt.Sprintf("_moneybook_session=%s", sessionID), r.Header.Get("Cookie"))
		month = month.AddDate(0, -1, 0)
	}

	// Files are written transcoded to UTF-8, one per month.
	var names []string
	entries, err := os.ReadDir(saveDir)
	require.NoError(t, err)
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
	expected := []string{
		month.AddDate(0, -2, 0).Format("2006-01") + ".csv",
		month.AddDate(0, -1, 0).Format("2006-01") + ".csv",
		month.Format("2006-01") + ".csv",
	}
	sort.Strings(expected)
	assert.Equal(t, expected, names)

	content, err := os.ReadFile(filepath.Join(saveDir, month.Format("2006-01")+".csv"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "物販 髙島屋")
}

func TestDownloadCSVFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "session expired", http.StatusUnauthorized)
	}))
	defer server.Close()

	downloader := NewDownloader(DownloaderConfig{
		BaseURL:  server.URL,
		SavePath: t.TempDir(),
		Logger:   nullLogger(),
	})

	_, err := downloader.DownloadCSV(context.Background(), "stale_session")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
