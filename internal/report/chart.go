package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"mushtrack/internal/models"
)

// Series names shown in the chart legend.
const (
	TemperatureSeries = "Temperature (°C)"
	HumiditySeries    = "Humidity (%)"
)

// ErrUnplottable is returned when the values are too far apart to draw.
var ErrUnplottable = errors.New("trend values out of plottable range")

const (
	chartWidth  = 960
	chartHeight = 480
)

// TrendPoint is one row of the trend table.
type TrendPoint struct {
	Date        models.Date `json:"date"`
	Temperature float64     `json:"temperature"`
	Humidity    float64     `json:"humidity"`
}

// TrendSeries returns the entries' conditions ordered by date. Entries on the
// same day keep their log order.
func TrendSeries(entries []models.LogEntry) []TrendPoint {
	points := make([]TrendPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, TrendPoint{Date: e.Date, Temperature: e.Temperature, Humidity: e.Humidity})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date.Time)
	})
	return points
}

// RenderTrendChart draws temperature and humidity against date as SVG.
func RenderTrendChart(w io.Writer, points []TrendPoint) error {
	if len(points) == 0 {
		return ErrNoData
	}

	dates := make([]time.Time, len(points))
	temps := make([]float64, len(points))
	hums := make([]float64, len(points))
	minY, maxY := math.Inf(1), math.Inf(-1)
	for i, p := range points {
		dates[i] = p.Date.Time
		temps[i] = p.Temperature
		hums[i] = p.Humidity
		minY = math.Min(minY, math.Min(p.Temperature, p.Humidity))
		maxY = math.Max(maxY, math.Max(p.Temperature, p.Humidity))
	}

	minX, maxX := dates[0], dates[len(dates)-1]
	if !maxX.After(minX) {
		minX = minX.AddDate(0, 0, -1)
		maxX = maxX.AddDate(0, 0, 1)
	}
	pad := (maxY - minY) * 0.1
	if pad == 0 {
		pad = 1
	}
	if math.IsInf((maxY+pad)-(minY-pad), 0) {
		return fmt.Errorf("%w: values span %g to %g", ErrUnplottable, minY, maxY)
	}

	grid := chart.Style{StrokeColor: drawing.ColorFromHex("dddddd"), StrokeWidth: 1}
	graph := chart.Chart{
		Title:  "Temperature & Humidity Over Time",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Date",
			ValueFormatter: chart.TimeValueFormatterWithFormat(models.DateLayout),
			Range:          &chart.ContinuousRange{Min: chart.TimeToFloat64(minX), Max: chart.TimeToFloat64(maxX)},
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		YAxis: chart.YAxis{
			Name:           "Value",
			Range:          &chart.ContinuousRange{Min: minY - pad, Max: maxY + pad},
			GridMajorStyle: grid,
			GridMinorStyle: grid,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    TemperatureSeries,
				XValues: dates,
				YValues: temps,
				Style:   chart.Style{StrokeColor: chart.ColorRed, StrokeWidth: 2, DotColor: chart.ColorRed, DotWidth: 3},
			},
			chart.TimeSeries{
				Name:    HumiditySeries,
				XValues: dates,
				YValues: hums,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotColor: chart.ColorBlue, DotWidth: 3},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.SVG, w); err != nil {
		return fmt.Errorf("rendering trend chart: %w", err)
	}
	return nil
}
