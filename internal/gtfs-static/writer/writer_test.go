package writer

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stops2transfers/pkg/gtfs-static/models"
)

func TestNew_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, "from_stop_id,to_stop_id,transfer_type,min_transfer_time\n", buf.String())
	assert.Equal(t, 0, w.Count())
}

func TestWrite_RowsInOrder(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf)
	require.NoError(t, err)

	require.NoError(t, w.Write(models.Transfer{FromStopID: "A", ToStopID: "A", TransferType: 2, MinTransferTime: 10}))
	require.NoError(t, w.Write(models.Transfer{FromStopID: "A", ToStopID: "B", TransferType: 2, MinTransferTime: 137}))
	require.NoError(t, w.Close())

	want := "from_stop_id,to_stop_id,transfer_type,min_transfer_time\n" +
		"A,A,2,10\n" +
		"A,B,2,137\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, 2, w.Count())
}

func TestWrite_QuotesDelimiters(t *testing.T) {
	var buf bytes.Buffer
	w, err := New(&buf)
	require.NoError(t, err)

	require.NoError(t, w.Write(models.Transfer{FromStopID: "A,1", ToStopID: `B"2`, TransferType: 2, MinTransferTime: 0}))
	require.NoError(t, w.Close())

	assert.Contains(t, buf.String(), "\"A,1\",\"B\"\"2\",2,0\n")
}

func TestCreate_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transfers.txt")
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Write(models.Transfer{FromStopID: "X", ToStopID: "Y", TransferType: 2, MinTransferTime: 5}))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from_stop_id,to_stop_id,transfer_type,min_transfer_time\nX,Y,2,5\n", string(data))
}

func TestCreate_UnwritablePath(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "missing-dir", "transfers.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestClose_ReportsFlushError(t *testing.T) {
	w, err := New(failingWriter{})
	require.NoError(t, err)
	require.NoError(t, w.Write(models.Transfer{FromStopID: "A", ToStopID: "A", TransferType: 2}))

	err = w.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
