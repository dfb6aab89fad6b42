package analytics

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"vitrine/internal/timeframe"
	"vitrine/internal/visits"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ExportTimeLayout renders timestamps as UTC with milliseconds.
const ExportTimeLayout = "2006-01-02T15:04:05.000Z"

// ErrInvalidFormat is returned for formats outside the closed set.
var ErrInvalidFormat = errors.New("invalid format")

var csvHeader = []string{"ID", "Página", "Dispositivo", "Navegador", "País", "Data"}

// ParseFormat validates a raw query value. An empty value is CSV.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.TrimSpace(raw)); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, raw)
	}
}

// ParseExportPeriod validates the export period. Unlike the reports, an empty
// value means the calendar month.
func ParseExportPeriod(raw string) (timeframe.Period, error) {
	period, err := timeframe.ParsePeriod(raw)
	if err != nil {
		return "", err
	}
	if period == timeframe.PeriodDefault {
		return timeframe.PeriodMonth, nil
	}
	return period, nil
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv"
}

// Export writes every visit of period to w, newest first.
func (s *Service) Export(ctx context.Context, period timeframe.Period, format Format, w io.Writer) error {
	if format != FormatCSV && format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidFormat, string(format))
	}
	if _, err := timeframe.ParsePeriod(string(period)); err != nil {
		return err
	}

	rows, err := s.store.ListVisits(ctx, s.resolver.Resolve(period))
	if err != nil {
		return err
	}

	if format == FormatJSON {
		return writeJSON(w, rows)
	}
	return writeCSV(w, rows)
}

func writeJSON(w io.Writer, rows []visits.Visit) error {
	if rows == nil {
		rows = []visits.Visit{}
	}
	if err := json.NewEncoder(w).Encode(rows); err != nil {
		return fmt.Errorf("error encoding visits: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, rows []visits.Visit) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for _, v := range rows {
		record := []string{
			v.ID,
			v.Page,
			visits.Deref(v.Device),
			visits.Deref(v.Browser),
			visits.Deref(v.Country),
			v.CreatedAt.UTC().Format(ExportTimeLayout),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("error writing csv row %s: %w", v.ID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}

// ExportFilename is the attachment name for a CSV export of period.
func ExportFilename(period timeframe.Period) string {
	return fmt.Sprintf("analytics-%s.csv", period)
}
