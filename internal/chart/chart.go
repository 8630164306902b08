// Package chart renders score charts as PNG images in memory.
package chart

import (
	"bytes"
	"errors"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/pavelanni/skillmeter/internal/model"
	"github.com/pavelanni/skillmeter/internal/progress"
)

// DateLayout formats progression tick labels.
const DateLayout = "2006-01-02"

// Options sizes a chart. Zero values pick the defaults.
type Options struct {
	Title  string
	Width  int
	Height int
}

const (
	defaultWidth  = 800
	defaultHeight = 400
)

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("no data to plot")

var (
	lineColor = drawing.ColorFromHex("2563eb")
	barColor  = drawing.ColorFromHex("0ea5e9")
)

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

func scoreAxis() chart.YAxis {
	ticks := make([]chart.Tick, 0, 6)
	for v := 0; v <= 100; v += 20 {
		ticks = append(ticks, chart.Tick{Value: float64(v), Label: fmt.Sprintf("%d", v)})
	}
	return chart.YAxis{
		Name:  "Score",
		Range: &chart.ContinuousRange{Min: 0, Max: 100},
		Ticks: ticks,
	}
}

// ScoreProgression plots points in the order given as a filled line chart
// with one date label per point. Callers pass points sorted ascending by
// time. A single point renders as a lone dot.
func ScoreProgression(points []progress.Point, opts Options) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	// Blank ticks half a step beyond each end keep the range non-zero for
	// a single point and pad the plot.
	ticks := []chart.Tick{{Value: -0.5}}
	for i, p := range points {
		xs[i] = float64(i)
		ys[i] = p.Score
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: p.At.Format(DateLayout)})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(points)) - 0.5})

	w, h := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Date",
			Ticks: ticks,
		},
		YAxis: scoreAxis(),
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: "Score",
				Style: chart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
					FillColor:   lineColor.WithAlpha(48),
					DotColor:    lineColor,
					DotWidth:    4,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render progression chart: %w", err)
	}
	return buf.Bytes(), nil
}

// QuestionScores renders one bar per breakdown entry, labelled with the
// question number and its score.
func QuestionScores(breakdown []model.BreakdownEntry, opts Options) ([]byte, error) {
	if len(breakdown) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, len(breakdown))
	for i, b := range breakdown {
		bars[i] = chart.Value{
			Label: fmt.Sprintf("Q%d: %.0f", b.QuestionIndex+1, b.Score),
			Value: b.Score,
			Style: chart.Style{
				FillColor:   barColor,
				StrokeColor: barColor,
			},
		}
	}

	w, h := opts.size()
	graph := chart.BarChart{
		Title:  opts.Title,
		Width:  w,
		Height: h,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 60,
		YAxis:    scoreAxis(),
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render question chart: %w", err)
	}
	return buf.Bytes(), nil
}
