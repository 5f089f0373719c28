package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

type lookupResponseEntry struct {
	GroupID           string   `json:"groupId"`
	ArtifactID        string   `json:"artifactId"`
	Version           string   `json:"version"`
	BestMatchVersion  string   `json:"bestMatchVersion"`
	AvailableVersions []string `json:"availableVersions"`
}

// newAlignmentServer answers every lookup with "<version>.redhat-00001" for
// artifacts in the acme group and no match for everything else.
func newAlignmentServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		if r.URL.Path != "/lookup/gavs" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		var req struct {
			Artifacts []lookupResponseEntry `json:"artifacts"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		out := make([]lookupResponseEntry, 0, len(req.Artifacts))
		for _, a := range req.Artifacts {
			entry := a
			if a.GroupID == "org.acme" {
				entry.BestMatchVersion = a.Version + ".redhat-00001"
			}
			out = append(out, entry)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
}

type lookupOutputJSON struct {
	Aligned   map[string]string `json:"aligned"`
	Unmatched []string          `json:"unmatched"`
	Stats     struct {
		Requests  int64 `json:"requests"`
		CacheHits int64 `json:"cache_hits"`
	} `json:"stats"`
}

func TestLookupCmd_TextOutput(t *testing.T) {
	srv := newAlignmentServer(t, nil)
	defer srv.Close()

	path := writePropertiesFile(t, "restURL="+srv.URL+"\n")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{
		"--properties", path,
		"org.acme:widget:1.0",
		"com.other:thing:2.0",
	}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}

	out := stdout.String()
	if !strings.Contains(out, "org.acme:widget:1.0 -> 1.0.redhat-00001") {
		t.Fatalf("missing aligned line:\n%s", out)
	}
	if !strings.Contains(out, "com.other:thing:2.0 (no match)") {
		t.Fatalf("missing no-match line:\n%s", out)
	}
}

func TestLookupCmd_JSONOutput(t *testing.T) {
	srv := newAlignmentServer(t, nil)
	defer srv.Close()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{
		"-D", "restURL=" + srv.URL,
		"--format", "json",
		"org.acme:widget:1.0",
	}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}

	var rep lookupOutputJSON
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v (%s)", err, stdout.String())
	}
	if got := rep.Aligned["org.acme:widget:1.0"]; got != "1.0.redhat-00001" {
		t.Fatalf("aligned: %v", rep.Aligned)
	}
	if len(rep.Unmatched) != 0 {
		t.Fatalf("unmatched: %v", rep.Unmatched)
	}
	if rep.Stats.Requests != 1 {
		t.Fatalf("requests: got %d, want 1", rep.Stats.Requests)
	}
}

func TestLookupCmd_DisabledSkipsNetwork(t *testing.T) {
	var requests atomic.Int64
	srv := newAlignmentServer(t, &requests)
	defer srv.Close()

	path := writePropertiesFile(t, "restSuffixAlign=true\n")

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{
		"--properties", path,
		"--format", "json",
		"org.acme:widget:1.0",
	}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}
	if n := requests.Load(); n != 0 {
		t.Fatalf("expected no requests, server saw %d", n)
	}

	var rep lookupOutputJSON
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Aligned) != 0 {
		t.Fatalf("aligned: %v", rep.Aligned)
	}
	if len(rep.Unmatched) != 1 || rep.Unmatched[0] != "org.acme:widget:1.0" {
		t.Fatalf("unmatched: %v", rep.Unmatched)
	}
}

func TestLookupCmd_GavsFileAndPositionalDeduped(t *testing.T) {
	var requests atomic.Int64
	srv := newAlignmentServer(t, &requests)
	defer srv.Close()

	dir := t.TempDir()
	gavsPath := filepath.Join(dir, "gavs.txt")
	gavs := "# release artifacts\norg.acme:widget:1.0\n\norg.acme:gadget:2.0\n"
	if err := os.WriteFile(gavsPath, []byte(gavs), 0o644); err != nil {
		t.Fatalf("write gavs file: %v", err)
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{
		"-D", "restURL=" + srv.URL,
		"--gavs-file", gavsPath,
		"--format", "json",
		"org.acme:widget:1.0",
	}, stdout, stderr)
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
	}

	var rep lookupOutputJSON
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if len(rep.Aligned) != 2 {
		t.Fatalf("aligned: %v", rep.Aligned)
	}
}

func TestLookupCmd_NoArtifacts(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{"-D", "restURL=https://da.example.com"}, stdout, stderr)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if !strings.Contains(stderr.String(), "no artifacts") {
		t.Fatalf("stderr: %q", stderr.String())
	}
}

func TestLookupCmd_InvalidGAV(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{"-D", "restURL=https://da.example.com", "not-a-gav"}, stdout, stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestLookupCmd_InvalidProperties(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{"-D", "restMaxSize=lots", "org.acme:widget:1.0"}, stdout, stderr)
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}

func TestLookupCmd_BadFormat(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	code := runLookupCmd([]string{"--format", "yaml", "org.acme:widget:1.0"}, stdout, stderr)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
}

func TestLookupCmd_SQLiteCacheAcrossRuns(t *testing.T) {
	var requests atomic.Int64
	srv := newAlignmentServer(t, &requests)
	defer srv.Close()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "cache.db")
	path := writePropertiesFile(t, "restURL="+srv.URL+"\nrestCache=sqlite\n")

	run := func() lookupOutputJSON {
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}
		code := runLookupCmd([]string{
			"--properties", path,
			"--cache-db", dbPath,
			"--format", "json",
			"org.acme:widget:1.0",
		}, stdout, stderr)
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d (stderr: %s)", code, stderr.String())
		}
		var rep lookupOutputJSON
		if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
			t.Fatalf("decode report: %v", err)
		}
		return rep
	}

	first := run()
	if first.Stats.Requests != 1 || first.Stats.CacheHits != 0 {
		t.Fatalf("first run stats: %+v", first.Stats)
	}

	second := run()
	if second.Stats.Requests != 0 || second.Stats.CacheHits != 1 {
		t.Fatalf("second run stats: %+v", second.Stats)
	}
	if got := second.Aligned["org.acme:widget:1.0"]; got != "1.0.redhat-00001" {
		t.Fatalf("cached result: %v", second.Aligned)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("server requests: got %d, want 1", n)
	}
}
