package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expected %q in output:\n%s", substr, s)
	}
}

// setupRun writes a small UTF-8 track table and a config with perplexities
// suited to it.
func setupRun(t *testing.T) (dir, configPath string) {
	t.Helper()
	dir = t.TempDir()

	var b strings.Builder
	b.WriteString("track_name,bpm,mode,danceability_%,valence_%,energy_%,acousticness_%,instrumentalness_%,liveness_%,speechiness_%\n")
	for i := 0; i < 16; i++ {
		mode := "Major"
		if i%2 == 1 {
			mode = "Minor"
		}
		v := 10 + (i%4)*20
		fmt.Fprintf(&b, "Song %d,%d,%s,%d,%d,%d,%d,%d,%d,%d\n", i, 100+i, mode, v, v+i, 90-v, v/2, i%3, 10+i, 5+i%5)
	}
	b.WriteString("Bad,abc,Minor,1,2,3,4,5,6,7\n")
	if err := os.WriteFile(filepath.Join(dir, "tracks.csv"), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}

	configPath = filepath.Join(dir, "musicmap.toml")
	cfg := fmt.Sprintf(`
[input]
path = %q
encoding = "UTF-8"

[output]
path = %q

[embedding.reference]
perplexity = 5.0
max_iter = 250

[embedding.final]
perplexity = 4.0
max_iter = 250
`, filepath.Join(dir, "tracks.csv"), filepath.Join(dir, "config-out.csv"))
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, configPath
}

func TestRunCommand(t *testing.T) {
	dir, configPath := setupRun(t)
	output := filepath.Join(dir, "flag-out.csv")
	plot := filepath.Join(dir, "map.svg")

	stdout, stderr, err := runCLI(t, "run", "--config", configPath, "--output", output, "--plot", plot, "--log-level", "debug")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	requireContains(t, stdout, "wrote "+output)
	requireContains(t, stdout, "wrote "+plot)
	requireContains(t, stderr, "Run finished")

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("flag output path should win over the config file: %v", err)
	}
	if strings.Contains(string(data), "Bad,") {
		t.Error("row with a non-numeric bpm was written")
	}
	if _, err := os.Stat(filepath.Join(dir, "config-out.csv")); err == nil {
		t.Error("config output path should have been overridden")
	}
}

func TestRootRunsPipeline(t *testing.T) {
	dir, configPath := setupRun(t)

	stdout, _, err := runCLI(t, "--config", configPath, "--skip-reference")
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, stdout, "wrote "+filepath.Join(dir, "config-out.csv"))
	if strings.Contains(stdout, "reference") {
		t.Errorf("reference run should be skipped:\n%s", stdout)
	}
}

func TestRunCommandMissingInput(t *testing.T) {
	_, configPath := setupRun(t)

	_, _, err := runCLI(t, "run", "--config", configPath, "--input", filepath.Join(t.TempDir(), "none.csv"))
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	out, _, err := runCLI(t, "config", "sample")
	if err != nil {
		t.Fatalf("config sample: %v", err)
	}
	requireContains(t, out, "[embedding.final]")

	target := filepath.Join(t.TempDir(), "musicmap.toml")
	out, _, err = runCLI(t, "config", "sample", "--path", target)
	if err != nil {
		t.Fatalf("config sample --path: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, _, err := runCLI(t, "config", "sample", "--path", target); err == nil {
		t.Fatal("expected error when sample already exists")
	}

	out, _, err = runCLI(t, "--config", target, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	t.Setenv("MUSICMAP_EMBEDDING_FINAL_PERPLEXITY", "12.5")
	out, _, err = runCLI(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "perplexity = 12.5")

	t.Setenv("MUSICMAP_LOGGING_LEVEL", "loud")
	if _, _, err := runCLI(t, "config", "validate"); err == nil {
		t.Fatal("expected validation error for unknown log level")
	}
}
