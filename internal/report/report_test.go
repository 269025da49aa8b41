package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mushtrack/internal/models"
)

func date(t *testing.T, s string) models.Date {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func sampleEntries(t *testing.T) []models.LogEntry {
	return []models.LogEntry{
		{Date: date(t, "2024-07-03"), Temperature: 25, Humidity: 85.5, Stage: models.StageMycelium, Notes: "colonizing"},
		{Date: date(t, "2024-07-01"), Temperature: 31.2, Humidity: 78, Stage: models.StagePinhead, Notes: "pins, \"first\" flush"},
		{Date: date(t, "2024-07-03"), Temperature: 27.25, Humidity: 90, Stage: models.StageFruiting, Notes: "line one\nline two",
			Photo: models.NewPhoto("a.png", []byte("\x89PNG\r\n\x1a\n"))},
	}
}

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		25:     "25.0",
		25.5:   "25.5",
		27.25:  "27.25",
		-3:     "-3.0",
		0:      "0.0",
		0.1:    "0.1",
		1000.5: "1000.5",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatNumber(in), "FormatNumber(%v)", in)
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleEntries(t)[:1]))
	assert.Equal(t, "Date,Temperature,Humidity,Growth Stage,Notes\n2024-07-03,25.0,85.5,Mycelium,colonizing\n", buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Date,Temperature,Humidity,Growth Stage,Notes\n", buf.String())
}

func TestCSVRoundTrip(t *testing.T) {
	entries := sampleEntries(t)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(entries))
	for i := range entries {
		want := entries[i]
		want.Photo = nil
		assert.Equal(t, want, got[i])
	}
}

func TestReadCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"wrong header": "A,B,C,D,E\n",
		"bad number":   "Date,Temperature,Humidity,Growth Stage,Notes\n2024-07-01,hot,80.0,Mycelium,\n",
		"bad stage":    "Date,Temperature,Humidity,Growth Stage,Notes\n2024-07-01,25.0,80.0,Sprouting,\n",
		"bad date":     "Date,Temperature,Humidity,Growth Stage,Notes\n07/01/2024,25.0,80.0,Mycelium,\n",
		"short row":    "Date,Temperature,Humidity,Growth Stage,Notes\n2024-07-01,25.0\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEntries(t))
	assert.Equal(t, 3, s.Entries)
	assert.Equal(t, 1, s.StageCounts[models.StagePinhead])
	assert.Equal(t, "2024-07-01", s.First.String())
	assert.Equal(t, "2024-07-03", s.Last.String())
}

func TestTrendSeries_StableDateOrder(t *testing.T) {
	points := TrendSeries(sampleEntries(t))
	require.Len(t, points, 3)
	assert.Equal(t, "2024-07-01", points[0].Date.String())
	assert.Equal(t, 25.0, points[1].Temperature)
	assert.Equal(t, 27.25, points[2].Temperature)
}

func TestRenderTrendChart(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, RenderTrendChart(&buf, nil), ErrNoData)
	})

	t.Run("single point", func(t *testing.T) {
		var buf bytes.Buffer
		points := []TrendPoint{{Date: date(t, "2024-07-01"), Temperature: 28, Humidity: 28}}
		require.NoError(t, RenderTrendChart(&buf, points))
		assert.Contains(t, buf.String(), "<svg")
	})

	t.Run("series", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, RenderTrendChart(&buf, TrendSeries(sampleEntries(t))))
		svg := buf.String()
		assert.Contains(t, svg, "<svg")
		assert.Contains(t, svg, "Humidity (%)")
	})

	t.Run("unplottable range", func(t *testing.T) {
		var buf bytes.Buffer
		points := []TrendPoint{
			{Date: date(t, "2024-07-01"), Temperature: 1e308, Humidity: 80},
			{Date: date(t, "2024-07-02"), Temperature: 25, Humidity: -1e308},
		}
		assert.ErrorIs(t, RenderTrendChart(&buf, points), ErrUnplottable)
		assert.Zero(t, buf.Len())
	})
}
