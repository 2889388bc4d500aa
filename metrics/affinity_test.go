package metrics

import (
	"math"
	"testing"

	"github.com/YuminosukeSato/musicmap/dataset"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

func affinityTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.FromRecords([][]string{
		{"track_name", "energy_%", "valence_%", "in_spotify_playlists", "in_deezer_playlists"},
		{"a", "3", "50", "9", "0"},
		{"b", "5", "50", "99", "12"},
		{"c", "7", "50", "999", ""},
		{"d", "9", "50", "9,999", "x"},
		{"e", "", "50", "99999", "3"},
		{"f", "40", "50", "0", "0"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestPlatformAffinity(t *testing.T) {
	tbl := affinityTable(t)

	got, err := PlatformAffinity(tbl,
		[]string{"energy_%", "valence_%"},
		[]string{"in_spotify_playlists", "in_deezer_playlists"})
	if err != nil {
		t.Fatalf("PlatformAffinity() error = %v", err)
	}

	tests := []struct {
		feature, platform string
		want              float64
		samples           int
	}{
		// energy = 2·log10(count+1) + 1 on the four usable rows
		{"energy_%", "in_spotify_playlists", 1, 4},
		// a single row with a positive deezer count and a parsed feature
		{"energy_%", "in_deezer_playlists", 0, 1},
		// constant feature: correlation undefined
		{"valence_%", "in_spotify_playlists", 0, 5},
		{"valence_%", "in_deezer_playlists", 0, 2},
	}
	if len(got) != len(tests) {
		t.Fatalf("got %d results, want %d", len(got), len(tests))
	}
	for i, tt := range tests {
		a := got[i]
		if a.Feature != tt.feature || a.Platform != tt.platform {
			t.Errorf("result %d = (%s, %s), want (%s, %s)", i, a.Feature, a.Platform, tt.feature, tt.platform)
		}
		if math.Abs(a.Correlation-tt.want) > 1e-12 {
			t.Errorf("%s × %s correlation = %v, want %v", tt.feature, tt.platform, a.Correlation, tt.want)
		}
		if a.Samples != tt.samples {
			t.Errorf("%s × %s samples = %d, want %d", tt.feature, tt.platform, a.Samples, tt.samples)
		}
	}
}

func TestPlatformAffinityNegative(t *testing.T) {
	tbl, err := dataset.FromRecords([][]string{
		{"acousticness_%", "in_apple_playlists"},
		{"90", "9"},
		{"60", "99"},
		{"30", "999"},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, err := PlatformAffinity(tbl, []string{"acousticness_%"}, []string{"in_apple_playlists"})
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got[0].Correlation+1) > 1e-12 {
		t.Errorf("correlation = %v, want -1", got[0].Correlation)
	}
}

func TestPlatformAffinityErrors(t *testing.T) {
	tbl := affinityTable(t)

	t.Run("missing column", func(t *testing.T) {
		_, err := PlatformAffinity(tbl, []string{"energy_%"}, []string{"in_apple_playlists"})
		var mc *errors.MissingColumnError
		if !errors.As(err, &mc) {
			t.Fatalf("expected MissingColumnError, got %v", err)
		}
		if mc.Column != "in_apple_playlists" {
			t.Errorf("Column = %q", mc.Column)
		}
	})

	t.Run("no features", func(t *testing.T) {
		_, err := PlatformAffinity(tbl, nil, DefaultPlatforms)
		var ve *errors.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}
