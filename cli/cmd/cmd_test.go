package cmd

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/dredge/checkpoint"
	"github.com/justapithecus/dredge/cli/config"
	"github.com/justapithecus/dredge/types"
)

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range ReadOnlyFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui for explicit error handling")
	}
}

// --- outcomeToExitCode ---

func TestOutcomeToExitCode(t *testing.T) {
	tests := []struct {
		status types.OutcomeStatus
		want   int
	}{
		{types.OutcomeCompleted, exitCompleted},
		{types.OutcomeCompletedWithErrors, exitCompletedWithErrors},
		{types.OutcomeAuthExpired, exitAuthExpired},
		{types.OutcomePaused, exitCompleted},
		{types.OutcomeDiscoveryFailed, exitCompletedWithErrors},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := outcomeToExitCode(tt.status); got != tt.want {
				t.Errorf("outcomeToExitCode(%q) = %d, want %d", tt.status, got, tt.want)
			}
		})
	}
}

func TestOutcomeToExitCode_ContractValues(t *testing.T) {
	if exitCompleted != 0 {
		t.Errorf("exitCompleted should be 0, got %d", exitCompleted)
	}
	if exitCompletedWithErrors != 1 {
		t.Errorf("exitCompletedWithErrors should be 1, got %d", exitCompletedWithErrors)
	}
	if exitAuthExpired != 2 {
		t.Errorf("exitAuthExpired should be 2, got %d", exitAuthExpired)
	}
	if exitStartupFailure != 3 {
		t.Errorf("exitStartupFailure should be 3, got %d", exitStartupFailure)
	}
}

// --- resolveSource ---

// newTestCLIContext builds a *cli.Context with the given string flags set.
func newTestCLIContext(t *testing.T, flagValues map[string]string) *cli.Context {
	t.Helper()
	app := cli.NewApp()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, name := range []string{"source", "url", "config"} {
		fs.String(name, "", "")
	}
	for name, val := range flagValues {
		if err := fs.Set(name, val); err != nil {
			t.Fatalf("set flag %s: %v", name, err)
		}
	}
	return cli.NewContext(app, fs, nil)
}

func TestResolveSource_FromConfig(t *testing.T) {
	c := newTestCLIContext(t, nil)
	cfg := &config.Config{}
	cfg.Source.Type = "spaces"
	cfg.Source.ID = "42"
	cfg.Source.URL = "https://dam.example.com/library"

	src, err := resolveSource(c, cfg)
	if err != nil {
		t.Fatalf("resolveSource: %v", err)
	}
	if src.Type != "spaces" || src.ID != "42" || src.URL != "https://dam.example.com/library" {
		t.Errorf("unexpected source: %+v", src)
	}
}

func TestResolveSource_FlagOverridesConfig(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{
		"source": "folders:7",
		"url":    "https://dam.example.com/folders/7",
	})
	cfg := &config.Config{}
	cfg.Source.Type = "spaces"
	cfg.Source.ID = "42"
	cfg.Source.URL = "https://dam.example.com/library"

	src, err := resolveSource(c, cfg)
	if err != nil {
		t.Fatalf("resolveSource: %v", err)
	}
	if src.Type != "folders" || src.ID != "7" {
		t.Errorf("CLI --source should win, got %+v", src)
	}
	if src.URL != "https://dam.example.com/folders/7" {
		t.Errorf("CLI --url should win, got %q", src.URL)
	}
}

func TestResolveSource_RejectsMalformedKey(t *testing.T) {
	c := newTestCLIContext(t, map[string]string{"source": "no-colon"})

	_, err := resolveSource(c, &config.Config{})
	if err == nil {
		t.Fatal("expected error for malformed source key")
	}
	if !strings.Contains(err.Error(), "type:id") {
		t.Errorf("error should explain the type:id format, got: %v", err)
	}
}

// --- buildStore ---

func TestBuildStore_DefaultsToFS(t *testing.T) {
	store, err := buildStore(&config.Config{})
	if err != nil {
		t.Fatalf("buildStore: %v", err)
	}
	if _, ok := store.(*checkpoint.FileStore); !ok {
		t.Errorf("empty backend should yield a file store, got %T", store)
	}
}

func TestBuildStore_RedisRequiresURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Checkpoint.Backend = "redis"

	_, err := buildStore(cfg)
	if err == nil {
		t.Fatal("expected error for redis backend without URL")
	}
	if !strings.Contains(err.Error(), "checkpoint.url") {
		t.Errorf("error should name the missing key, got: %v", err)
	}
}

func TestBuildStore_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Checkpoint.Backend = "dynamo"

	_, err := buildStore(cfg)
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if !strings.Contains(err.Error(), "fs or redis") {
		t.Errorf("error should list valid backends, got: %v", err)
	}
}

// --- buildNotifier ---

func TestBuildNotifier_NoneConfigured(t *testing.T) {
	n, err := buildNotifier(&config.Config{})
	if err != nil {
		t.Fatalf("buildNotifier: %v", err)
	}
	if n != nil {
		t.Error("no adapter configured should yield nil notifier")
	}
}

func TestBuildNotifier_WebhookRequiresURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "webhook"

	if _, err := buildNotifier(cfg); err == nil {
		t.Fatal("expected error for webhook adapter without URL")
	}
}

func TestBuildNotifier_UnknownType(t *testing.T) {
	cfg := &config.Config{}
	cfg.Adapter.Type = "kafka"

	_, err := buildNotifier(cfg)
	if err == nil {
		t.Fatal("expected error for unknown adapter type")
	}
	if !strings.Contains(err.Error(), "kafka") {
		t.Errorf("error should include the bad type name, got: %v", err)
	}
}

// --- end-to-end command flows ---

// newTestApp wires all commands with the ExitErrHandler suppressed so
// errors are returned instead of calling os.Exit.
func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{
		RunCommand(),
		StatusCommand(),
		ScanCommand(),
		ImportCommand(),
		RecheckCommand(),
		ExportCommand(),
		ResetCommand(),
		VersionCommand("test"),
	}
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

// writeTestConfig writes a dredge.yaml pointing the checkpoint at a
// file inside dir and returns the config path.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	content := `source:
  type: spaces
  id: "42"
  url: https://dam.example.com/library
checkpoint:
  backend: fs
  path: ` + filepath.Join(dir, "checkpoint.bin") + `
`
	path := filepath.Join(dir, "dredge.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestSnapshot(t *testing.T, dir string) string {
	t.Helper()
	snap := `{
  "source": {"sourceType": "spaces", "sourceId": "42", "url": "https://dam.example.com/library"},
  "assetCount": 2,
  "assets": [
    {"itemId": "i1", "itemUrl": "https://dam.example.com/item/1", "detailFetched": false},
    {"itemId": "i2", "itemUrl": "https://dam.example.com/item/2", "detailFetched": true}
  ]
}`
	path := filepath.Join(dir, "snapshot.json")
	if err := os.WriteFile(path, []byte(snap), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestImportThenExport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	snapPath := writeTestSnapshot(t, dir)

	app := newTestApp()
	if err := app.Run([]string{"dredge", "import", "--config", configPath, "--format", "json", snapPath}); err != nil {
		t.Fatalf("import: %v", err)
	}

	store := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.bin"))
	doc, err := checkpoint.Load(t.Context(), store)
	if err != nil {
		t.Fatalf("load checkpoint after import: %v", err)
	}
	if len(doc.State.Items) != 2 {
		t.Errorf("imported items = %d, want 2", len(doc.State.Items))
	}
	if len(doc.State.Pending) != 1 || doc.State.Pending[0] != "i1" {
		t.Errorf("incomplete item should be queued, pending = %v", doc.State.Pending)
	}

	outPath := filepath.Join(dir, "export.json")
	if err := app.Run([]string{"dredge", "export", "--config", configPath, "--format", "json", "--out", outPath}); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var exported types.Snapshot
	if err := json.Unmarshal(data, &exported); err != nil {
		t.Fatalf("exported snapshot is not valid JSON: %v", err)
	}
	if exported.AssetCount != 2 || len(exported.Assets) != 2 {
		t.Errorf("exported assetCount = %d, assets = %d", exported.AssetCount, len(exported.Assets))
	}
	if _, ok := exported.KnownSources["spaces:42"]; !ok {
		t.Errorf("exported snapshot should carry the known source, got %v", exported.KnownSources)
	}
}

func TestImport_MissingFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	app := newTestApp()
	err := app.Run([]string{"dredge", "import", "--config", configPath, filepath.Join(dir, "absent.json")})
	if err == nil {
		t.Fatal("expected error for missing snapshot file")
	}
	if !strings.Contains(err.Error(), "snapshot file not found") {
		t.Errorf("error should mention missing snapshot, got: %v", err)
	}
}

func TestRecheck_Requeue(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	snapPath := writeTestSnapshot(t, dir)

	app := newTestApp()
	if err := app.Run([]string{"dredge", "import", "--config", configPath, snapPath}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := app.Run([]string{"dredge", "recheck", "--config", configPath, "--format", "json", "--requeue"}); err != nil {
		t.Fatalf("recheck: %v", err)
	}

	store := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.bin"))
	doc, err := checkpoint.Load(t.Context(), store)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if len(doc.State.Pending) != 1 || doc.State.Pending[0] != "i1" {
		t.Errorf("recheck should requeue the incomplete item, pending = %v", doc.State.Pending)
	}
	if len(doc.State.Done) != 1 || doc.State.Done[0] != "i2" {
		t.Errorf("completed item should stay done, done = %v", doc.State.Done)
	}
}

func TestRecheck_NoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	app := newTestApp()
	err := app.Run([]string{"dredge", "recheck", "--config", configPath})
	if err == nil {
		t.Fatal("expected error when no checkpoint exists")
	}
	if !strings.Contains(err.Error(), "no checkpoint") {
		t.Errorf("error should mention the missing checkpoint, got: %v", err)
	}
}

func TestScan_PageFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	page := filepath.Join(dir, "page.html")
	html := `<html><body>
<a href="/dam/201/"><img src="/thumbs/201.jpg" alt="a.psd"></a>
<a href="/dam/202/"><img src="/thumbs/202.jpg" alt="b.png"></a>
</body></html>`
	if err := os.WriteFile(page, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}

	app := newTestApp()
	if err := app.Run([]string{"dredge", "scan", "--config", configPath, "--format", "json", "--page", page}); err != nil {
		t.Fatalf("scan: %v", err)
	}

	store := checkpoint.NewFileStore(filepath.Join(dir, "checkpoint.bin"))
	doc, err := checkpoint.Load(t.Context(), store)
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if len(doc.State.Items) != 2 {
		t.Errorf("scanned items = %d, want 2", len(doc.State.Items))
	}
	if len(doc.State.Pending) != 2 {
		t.Errorf("scanned items should be queued, pending = %v", doc.State.Pending)
	}
}

func TestReset_RequiresConfirmation(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	snapPath := writeTestSnapshot(t, dir)

	app := newTestApp()
	if err := app.Run([]string{"dredge", "import", "--config", configPath, snapPath}); err != nil {
		t.Fatalf("import: %v", err)
	}

	err := app.Run([]string{"dredge", "reset", "--config", configPath})
	if err == nil {
		t.Fatal("reset without --yes should fail")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Errorf("error should mention --yes, got: %v", err)
	}

	if err := app.Run([]string{"dredge", "reset", "--config", configPath, "--yes"}); err != nil {
		t.Fatalf("reset --yes: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "checkpoint.bin")); !os.IsNotExist(err) {
		t.Error("checkpoint file should be removed after reset")
	}
}

func TestRunAction_MissingSource(t *testing.T) {
	app := newTestApp()

	err := app.Run([]string{"dredge", "run", "--quiet"})
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !strings.Contains(err.Error(), "--source") {
		t.Errorf("error should point at --source, got: %v", err)
	}
}

func TestRunAction_MissingListingURL(t *testing.T) {
	app := newTestApp()

	err := app.Run([]string{"dredge", "run", "--quiet", "--source", "spaces:42"})
	if err == nil {
		t.Fatal("expected error for missing listing URL")
	}
	if !strings.Contains(err.Error(), "listing URL") {
		t.Errorf("error should mention the listing URL, got: %v", err)
	}
}

func TestStatus_NoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)

	app := newTestApp()
	err := app.Run([]string{"dredge", "status", "--config", configPath, "--format", "json"})
	if err == nil {
		t.Fatal("expected error when no checkpoint exists")
	}
	if !strings.Contains(err.Error(), "no checkpoint found") {
		t.Errorf("error should mention the missing checkpoint, got: %v", err)
	}
}
