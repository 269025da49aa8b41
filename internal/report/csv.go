// Package report turns a growth log into exportable artifacts: CSV files,
// trend series and an SVG trend chart.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"mushtrack/internal/models"
)

// FileName is the download name of an exported log.
const FileName = "growth_log.csv"

// Header is the first CSV row.
var Header = []string{"Date", "Temperature", "Humidity", "Growth Stage", "Notes"}

// ErrNoData is returned when there is nothing to export or draw.
var ErrNoData = errors.New("no data")

// FormatNumber renders v in its shortest form, keeping one decimal for
// integral values.
func FormatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// WriteCSV writes the header and one row per entry. Photos are not exported.
func WriteCSV(w io.Writer, entries []models.LogEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i, e := range entries {
		row := []string{
			e.Date.String(),
			FormatNumber(e.Temperature),
			FormatNumber(e.Humidity),
			e.Stage.String(),
			e.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]models.LogEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty csv: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	for i, name := range Header {
		if strings.TrimSpace(header[i]) != name {
			return nil, fmt.Errorf("unexpected csv column %d: got %q, want %q", i+1, header[i], name)
		}
	}

	var entries []models.LogEntry
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		entry, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseRow(row []string) (models.LogEntry, error) {
	var entry models.LogEntry
	var err error

	if strings.TrimSpace(row[0]) != "" {
		if entry.Date, err = models.ParseDate(row[0]); err != nil {
			return entry, err
		}
	}
	if entry.Temperature, err = strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err != nil {
		return entry, fmt.Errorf("invalid temperature %q", row[1])
	}
	if entry.Humidity, err = strconv.ParseFloat(strings.TrimSpace(row[2]), 64); err != nil {
		return entry, fmt.Errorf("invalid humidity %q", row[2])
	}
	if entry.Stage, err = models.ParseGrowthStage(row[3]); err != nil {
		return entry, err
	}
	entry.Notes = row[4]
	return entry, nil
}

// Summary aggregates a log for the report command.
type Summary struct {
	Entries     int
	StageCounts map[models.GrowthStage]int
	First       models.Date
	Last        models.Date
}

func Summarize(entries []models.LogEntry) Summary {
	s := Summary{
		Entries:     len(entries),
		StageCounts: make(map[models.GrowthStage]int),
	}
	for _, e := range entries {
		s.StageCounts[e.Stage]++
		if e.Date.IsZero() {
			continue
		}
		if s.First.IsZero() || e.Date.Before(s.First.Time) {
			s.First = e.Date
		}
		if s.Last.IsZero() || e.Date.After(s.Last.Time) {
			s.Last = e.Date
		}
	}
	return s
}
