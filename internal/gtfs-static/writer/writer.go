package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/stops2transfers/pkg/gtfs-static/models"
)

// TransferWriter streams transfers.txt rows. The header is written on
// creation so an empty run still yields a valid file.
type TransferWriter struct {
	csv    *csv.Writer
	closer io.Closer
	count  int
}

// Create truncates or creates path and writes the transfers.txt header.
func Create(path string) (*TransferWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating transfers file: %w", err)
	}
	w, err := New(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// New writes the transfers.txt header to out.
func New(out io.Writer) (*TransferWriter, error) {
	w := &TransferWriter{csv: csv.NewWriter(out)}
	if err := w.csv.Write(models.TransfersHeader); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return w, nil
}

func (w *TransferWriter) Write(t models.Transfer) error {
	if err := w.csv.Write(t.Record()); err != nil {
		return fmt.Errorf("writing transfer: %w", err)
	}
	w.count++
	return nil
}

// Count is the number of transfer rows written so far.
func (w *TransferWriter) Count() int {
	return w.count
}

// Close flushes buffered rows and closes the underlying file, if any.
func (w *TransferWriter) Close() error {
	w.csv.Flush()
	err := w.csv.Error()
	if err != nil {
		err = fmt.Errorf("flushing transfers: %w", err)
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing transfers file: %w", cerr)
		}
	}
	return err
}
