package metrics

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/musicmap/dataset"
	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// minAffinitySamples は相関を計算する最小サンプル数
const minAffinitySamples = 3

// DefaultAffinityFeatures はプラットフォーム親和性で比較する音響特徴量
var DefaultAffinityFeatures = []string{
	"energy_%",
	"danceability_%",
	"valence_%",
	"acousticness_%",
	"speechiness_%",
}

// DefaultPlatforms はプレイリスト掲載数の列
var DefaultPlatforms = []string{
	"in_spotify_playlists",
	"in_apple_playlists",
	"in_deezer_playlists",
}

// Affinity は1つの特徴量とプラットフォームの組の相関
type Affinity struct {
	Feature     string  `json:"feature"`
	Platform    string  `json:"platform"`
	Correlation float64 `json:"correlation"`
	Samples     int     `json:"samples"`
}

// PlatformAffinity computes, for every (feature, platform) pair, the Pearson
// correlation between the feature and log10(count+1) of the platform's
// playlist count. Only rows where both cells parse and the count is positive
// take part. Fewer than three such rows, or an undefined correlation, yield 0.
// Results are ordered feature-major in the order given.
func PlatformAffinity(t *dataset.Table, features, platforms []string) ([]Affinity, error) {
	if len(features) == 0 || len(platforms) == 0 {
		return nil, errors.NewValidationError("features", "need at least one feature and one platform", len(features))
	}

	featureValues := make(map[string][]dataset.Value, len(features))
	for _, name := range features {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		vals := make([]dataset.Value, len(col))
		for i, s := range col {
			vals[i] = dataset.ParseValue(s)
		}
		featureValues[name] = vals
	}

	counts := make(map[string][]dataset.Value, len(platforms))
	for _, name := range platforms {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		vals := make([]dataset.Value, len(col))
		for i, s := range col {
			vals[i] = parseCount(s)
		}
		counts[name] = vals
	}

	out := make([]Affinity, 0, len(features)*len(platforms))
	for _, f := range features {
		for _, p := range platforms {
			r, n := correlation(featureValues[f], counts[p])
			out = append(out, Affinity{Feature: f, Platform: p, Correlation: r, Samples: n})
		}
	}
	return out, nil
}

// correlation は有効な行のみで相関係数を計算する
func correlation(feature, count []dataset.Value) (float64, int) {
	xs := make([]float64, 0, len(feature))
	ys := make([]float64, 0, len(feature))
	for i := range feature {
		if !feature[i].Valid || !count[i].Valid || count[i].Float <= 0 {
			continue
		}
		xs = append(xs, feature[i].Float)
		ys = append(ys, math.Log10(count[i].Float+1))
	}
	if len(xs) < minAffinitySamples {
		return 0, len(xs)
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, len(xs)
	}
	return r, len(xs)
}

// parseCount は桁区切りのカンマを許容して掲載数を読む
func parseCount(s string) dataset.Value {
	return dataset.ParseValue(strings.ReplaceAll(s, ",", ""))
}
