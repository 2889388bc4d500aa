// Package visualize renders embeddings as scatter plots with gonum/plot.
package visualize

import (
	"image/color"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
	"github.com/YuminosukeSato/musicmap/pkg/log"
)

// Plot size of saved files.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

// series describes one legend entry. Points whose color tag matches tag are
// drawn in rgba.
type series struct {
	tag   string
	label string
	rgba  color.RGBA
}

// palette fixes the drawing and legend order. The last entry catches every
// tag not listed before it.
var palette = []series{
	{tag: "orange", label: "Major", rgba: color.RGBA{R: 255, G: 140, A: 255}},
	{tag: "blue", label: "Minor", rgba: color.RGBA{R: 31, G: 119, B: 180, A: 255}},
	{tag: "", label: "Unknown", rgba: color.RGBA{R: 150, G: 150, B: 150, A: 255}},
}

// NewEmbeddingPlot builds a scatter plot of the first two embedding columns,
// one series per color tag. colors must have one entry per embedding row.
func NewEmbeddingPlot(embedding mat.Matrix, colors []string, title string) (*plot.Plot, error) {
	groups, err := groupByColor(embedding, colors)
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "t-SNE 1"
	p.Y.Label.Text = "t-SNE 2"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, s := range palette {
		pts := groups[i]
		if len(pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return nil, errors.Wrapf(err, "scatter %s", s.label)
		}
		sc.GlyphStyle.Color = s.rgba
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add(s.label, sc)
	}
	return p, nil
}

// SaveEmbedding renders the embedding and writes it to path. The image
// format follows the file extension (png, svg, pdf, ...).
func SaveEmbedding(embedding mat.Matrix, colors []string, title, path string) error {
	p, err := NewEmbeddingPlot(embedding, colors, title)
	if err != nil {
		return err
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.NewIOError("plot", path, err)
	}
	log.GetLoggerWithName("visualize").Info("Embedding plot saved", log.PathKey, path)
	return nil
}

// groupByColor splits the rows of embedding by palette entry, indexed like palette.
func groupByColor(embedding mat.Matrix, colors []string) ([]plotter.XYs, error) {
	r, c := embedding.Dims()
	if c < 2 {
		return nil, errors.NewDimensionError("visualize.groupByColor", 2, c, 1)
	}
	if len(colors) != r {
		return nil, errors.NewDimensionError("visualize.groupByColor", r, len(colors), 0)
	}

	groups := make([]plotter.XYs, len(palette))
	for i := 0; i < r; i++ {
		g := len(palette) - 1
		for j, s := range palette[:len(palette)-1] {
			if colors[i] == s.tag {
				g = j
				break
			}
		}
		groups[g] = append(groups[g], plotter.XY{X: embedding.At(i, 0), Y: embedding.At(i, 1)})
	}
	return groups, nil
}
