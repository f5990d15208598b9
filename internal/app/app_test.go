package app

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CitationWatch/internal/config"
)

const (
	reportTitle    = "Wikipedia:Vaccine safety/Reports"
	alertsTitle    = "Wikipedia:Vaccine safety/Alerts"
	perennialTitle = "Wikipedia:Vaccine safety/Perennial sources"
)

const perennialHTML = `<table class="wikitable">
<tr><th>Type</th><th>Source</th><th>URL</th><th>Uses</th><th>Status</th><th>Summary</th></tr>
<tr><td>Gov</td><td>CDC</td><td><a class="external free" href="https://www.cdc.gov/">https://www.cdc.gov/</a></td><td>9</td><td>Reliable</td><td></td></tr>
<tr><td>News</td><td>Natural News</td><td>naturalnews.com</td><td>2</td><td>Conspiracy</td><td></td></tr>
</table>`

// fakeWiki serves the subset of index.php and api.php the bot uses.
type fakeWiki struct {
	mu    sync.Mutex
	pages map[string]string
	edits []string
}

func (w *fakeWiki) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if r.URL.Path == "/w/index.php" {
		title := r.Form.Get("title")
		if r.Form.Get("action") == "render" && title == perennialTitle {
			fmt.Fprint(rw, perennialHTML)
			return
		}
		text, ok := w.pages[title]
		if !ok {
			http.NotFound(rw, r)
			return
		}
		fmt.Fprint(rw, text)
		return
	}

	switch {
	case r.Form.Get("meta") == "tokens":
		kind := r.Form.Get("type")
		fmt.Fprintf(rw, `{"query":{"tokens":{"%stoken":"%s-token"}}}`, kind, kind)
	case r.Form.Get("action") == "login":
		fmt.Fprint(rw, `{"login":{"result":"Success"}}`)
	case r.Form.Get("action") == "edit":
		title := r.Form.Get("title")
		if _, ok := w.pages[title]; !ok {
			fmt.Fprint(rw, `{"error":{"code":"missingtitle","info":"missing"}}`)
			return
		}
		w.pages[title] = r.Form.Get("text")
		w.edits = append(w.edits, title)
		fmt.Fprint(rw, `{"edit":{"result":"Success","newrevid":1}}`)
	case r.Form.Get("prop") == "extlinks":
		fmt.Fprint(rw, `{"query":{"pages":[{"title":"MMR vaccine","extlinks":[
			{"url":"https://example.org/a"},
			{"url":"https://example.org/b"},
			{"url":"https://www.naturalnews.com/x"},
			{"url":"https://www.cdc.gov/y"}
		]}]}}`)
	default:
		http.Error(rw, "unexpected request", http.StatusBadRequest)
	}
}

func (w *fakeWiki) snapshot() (map[string]string, []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pages := make(map[string]string, len(w.pages))
	for k, v := range w.pages {
		pages[k] = v
	}
	return pages, append([]string(nil), w.edits...)
}

func testConfig(t *testing.T, wikiURL string) config.Config {
	t.Helper()
	return config.Config{
		Logging:  config.LoggingConfig{Level: "error"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "watch.db")},
		Wiki: config.WikiConfig{
			BaseURL:       wikiURL,
			UserAgent:     "citationwatch-test",
			Username:      "Bot@watch",
			Password:      "secret",
			ReportPage:    reportTitle,
			AlertsPage:    alertsTitle,
			PerennialPage: perennialTitle,
			Timeout:       5 * time.Second,
		},
		Alerts: config.AlertsConfig{FrequentThreshold: 2},
		Crawl: config.CrawlConfig{
			Enabled: true,
			Sources: []config.SourceConfig{{Name: "core", Strategy: "static", Titles: []string{"MMR vaccine"}}},
		},
		Scheduler: config.SchedulerConfig{Interval: time.Hour},
	}
}

func TestApplicationEndToEnd(t *testing.T) {
	t.Parallel()

	wiki := &fakeWiki{pages: map[string]string{
		reportTitle: "placeholder",
		alertsTitle: "{{Alert list\n}}",
	}}
	srv := httptest.NewServer(wiki)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	application := New(testConfig(t, srv.URL), nil)

	require.NoError(t, application.Migrate(ctx))
	require.NoError(t, application.Perennial(ctx))
	require.NoError(t, application.Run(ctx))

	pages, edits := wiki.snapshot()
	assert.Equal(t, []string{reportTitle, alertsTitle}, edits)

	reportText := pages[reportTitle]
	assert.Contains(t, reportText, "| articles = 1\n")
	assert.Contains(t, reportText, "| domains = 3\n")
	assert.Contains(t, reportText, "| percent_reliable = 25.0\n")
	assert.Contains(t, reportText, "| percent_flagged = 25.0\n")
	assert.Contains(t, reportText, "| percent_unknown = 50.0\n")
	assert.Contains(t, reportText, "| {{vsrate|conspiracy}}")

	alertsText := pages[alertsTitle]
	assert.Contains(t, alertsText, "| msg1     = '''example.org''' appears 2 times on articles")
	assert.Contains(t, alertsText, "| msg2     = '''naturalnews.com''' (conspiracy) appears on '''[[MMR vaccine]]'''")

	// A second run finds nothing new: the report is identical and alerts were already announced.
	require.NoError(t, application.Run(ctx))
	_, edits = wiki.snapshot()
	assert.Len(t, edits, 2)
}

func TestApplicationDryRunDoesNotSave(t *testing.T) {
	t.Parallel()

	wiki := &fakeWiki{pages: map[string]string{
		reportTitle: "placeholder",
		alertsTitle: "{{Alert list\n}}",
	}}
	srv := httptest.NewServer(wiki)
	t.Cleanup(srv.Close)

	cfg := testConfig(t, srv.URL)
	cfg.Wiki.DryRun = true

	var out bytes.Buffer
	application := New(cfg, nil)
	application.out = &out

	ctx := context.Background()
	require.NoError(t, application.Migrate(ctx))
	require.NoError(t, application.Run(ctx))

	_, edits := wiki.snapshot()
	assert.Empty(t, edits)
	assert.True(t, strings.Contains(out.String(), "=== "+reportTitle+" ==="))
	assert.True(t, strings.Contains(out.String(), "=== "+alertsTitle+" ==="))
}

func TestApplicationReportWithoutBatchFails(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(&fakeWiki{pages: map[string]string{}})
	t.Cleanup(srv.Close)

	application := New(testConfig(t, srv.URL), nil)
	ctx := context.Background()
	require.NoError(t, application.Migrate(ctx))
	require.Error(t, application.Report(ctx))
}

func TestApplicationComponentLogsCarryRunID(t *testing.T) {
	t.Parallel()

	wiki := &fakeWiki{pages: map[string]string{
		reportTitle: "placeholder",
		alertsTitle: "{{Alert list\n}}",
	}}
	srv := httptest.NewServer(wiki)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	application := New(testConfig(t, srv.URL), logger)

	ctx := context.Background()
	require.NoError(t, application.Migrate(ctx))
	require.NoError(t, application.Run(ctx))
	require.NoError(t, application.Run(ctx))

	runID := regexp.MustCompile(`run_id=(\S+)`)
	ids := map[string]bool{}
	for _, line := range strings.Split(buf.String(), "\n") {
		if !strings.Contains(line, "component=alerts") && !strings.Contains(line, "component=crawler") {
			continue
		}
		m := runID.FindStringSubmatch(line)
		require.NotNil(t, m, "component line without run_id: %s", line)
		ids[m[1]] = true
	}
	assert.Len(t, ids, 2)
}
