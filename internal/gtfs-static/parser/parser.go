package parser

import (
	"archive/zip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stops2transfers/internal/common/logger"
	"github.com/stops2transfers/internal/geo"
	"github.com/stops2transfers/pkg/gtfs-static/models"
)

const stopsFile = "stops.txt"

// Columns every stops.txt header must carry. location_type is optional.
var requiredColumns = []string{"stop_id", "stop_lat", "stop_lon"}

var ErrMissingColumns = errors.New("stops header is missing required columns")

// RowError is a stops.txt row that could not be decoded. It is recoverable:
// the row is skipped and reading continues.
type RowError struct {
	Line   int
	StopID string
	Err    error
}

func (e *RowError) Error() string {
	if e.StopID != "" {
		return fmt.Sprintf("line %d (stop %s): %v", e.Line, e.StopID, e.Err)
	}
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

type Parser struct {
	logger logger.Logger
}

func New(logger logger.Logger) *Parser {
	return &Parser{logger: logger}
}

// ParseStops reads stops.txt (or the stops.txt inside a GTFS zip) and returns
// the boarding points in file order. Undecodable rows are logged and skipped;
// only an unreadable file or header is an error.
func (p *Parser) ParseStops(path string) ([]models.Stop, error) {
	rc, err := openStops(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	reader, err := NewStopReader(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var (
		stops    []models.Stop
		records  int
		skipped  int
		filtered int
	)
	for {
		stop, err := reader.Next()
		if err == io.EOF {
			break
		}
		records++
		if err != nil {
			var rowErr *RowError
			if errors.As(err, &rowErr) {
				skipped++
				p.logger.Warn("Skipping stop row", "line", rowErr.Line, "stop_id", rowErr.StopID, "error", rowErr.Err)
				continue
			}
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if !stop.IsBoardingPoint() {
			filtered++
			continue
		}
		stops = append(stops, stop)
	}

	p.logger.Info("File parsed",
		"name", path,
		"records", records,
		"stops", len(stops),
		"skipped", skipped,
		"filtered", filtered,
	)

	return stops, nil
}

// openStops opens a plain stops file, or the stops.txt entry of a zip archive.
func openStops(name string) (io.ReadCloser, error) {
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("opening stops file: %w", err)
		}
		return f, nil
	}

	reader, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("opening zip file: %w", err)
	}

	// Prefer the root entry; some feeds nest everything in a folder.
	var found *zip.File
	for _, file := range reader.File {
		if file.Name == stopsFile {
			found = file
			break
		}
		if found == nil && path.Base(file.Name) == stopsFile {
			found = file
		}
	}
	if found == nil {
		reader.Close()
		return nil, fmt.Errorf("opening zip file: %s not found in %s", stopsFile, name)
	}

	rc, err := found.Open()
	if err != nil {
		reader.Close()
		return nil, fmt.Errorf("opening %s: %w", found.Name, err)
	}
	return &zipEntry{ReadCloser: rc, archive: reader}, nil
}

type zipEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipEntry) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

// StopReader decodes stops.txt rows one at a time.
type StopReader struct {
	reader    *csv.Reader
	headerMap map[string]int
}

// NewStopReader reads the header from r and checks the required columns.
func NewStopReader(r io.Reader) (*StopReader, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	// Strip BOM from first field if present
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
	}

	headerMap := make(map[string]int)
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := headerMap[name]; !dup {
			headerMap[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := headerMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return &StopReader{reader: reader, headerMap: headerMap}, nil
}

// Next returns the next stop regardless of its location_type. It returns
// io.EOF after the last row and a *RowError for a row that must be skipped;
// any other error means the input can no longer be read.
func (r *StopReader) Next() (models.Stop, error) {
	record, err := r.reader.Read()
	if err == io.EOF {
		return models.Stop{}, io.EOF
	}
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return models.Stop{}, &RowError{Line: parseErr.StartLine, Err: parseErr.Err}
		}
		return models.Stop{}, fmt.Errorf("reading record: %w", err)
	}

	line, _ := r.reader.FieldPos(0)
	stop, err := r.parseStop(record)
	if err != nil {
		return models.Stop{}, &RowError{Line: line, StopID: r.getString(record, "stop_id"), Err: err}
	}
	return stop, nil
}

func (r *StopReader) parseStop(record []string) (models.Stop, error) {
	id, ok := r.lookup(record, "stop_id")
	if !ok || id == "" {
		return models.Stop{}, errors.New("missing stop_id")
	}

	lat, err := r.getFloat(record, "stop_lat")
	if err != nil {
		return models.Stop{}, err
	}
	lon, err := r.getFloat(record, "stop_lon")
	if err != nil {
		return models.Stop{}, err
	}
	if !geo.ValidLatLon(lat, lon) {
		return models.Stop{}, fmt.Errorf("coordinates out of range: %v, %v", lat, lon)
	}

	locationType := 0
	if str := r.getString(record, "location_type"); str != "" {
		locationType, err = strconv.Atoi(str)
		if err != nil {
			return models.Stop{}, fmt.Errorf("parsing location_type: %w", err)
		}
	}

	return models.NewStop(id, lat, lon, locationType), nil
}

// Helper functions to safely get values from CSV records
func (r *StopReader) lookup(record []string, field string) (string, bool) {
	if idx, ok := r.headerMap[field]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx]), true
	}
	return "", false
}

func (r *StopReader) getString(record []string, field string) string {
	str, _ := r.lookup(record, field)
	return str
}

func (r *StopReader) getFloat(record []string, field string) (float64, error) {
	str, ok := r.lookup(record, field)
	if !ok || str == "" {
		return 0, fmt.Errorf("missing %s", field)
	}
	val, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", field, err)
	}
	return val, nil
}
