package leave

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-sync/generic"
)

// =============================================================================
// BATCH FILES - Reading the portal export
// =============================================================================

// BatchExtensions are the export formats ReadBatch understands.
var BatchExtensions = []string{".xlsx", ".csv"}

// ReadBatch loads the first worksheet of an .xlsx export, or a .csv export,
// into a Table. An empty file is a malformed batch.
func ReadBatch(path string) (Table, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return Table{}, &generic.MalformedBatchError{Reason: fmt.Sprintf("unsupported batch format %q", filepath.Ext(path))}
	}
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, &generic.MalformedBatchError{Reason: "batch has no header row"}
	}
	return Table{Header: rows[0], Rows: rows[1:]}, nil
}

func readXLSX(path string) ([][]string, error) {
	// Raw values keep date cells as serial numbers, which ParseTimestamp
	// understands regardless of the workbook's display format.
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &generic.MalformedBatchError{Reason: "workbook has no sheets"}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, &generic.MalformedBatchError{Reason: err.Error()}
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return rows, nil
}

// LatestBatchFile returns the most recently modified export in dir.
func LatestBatchFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list batch dir %s: %w", dir, err)
	}

	var (
		latest   string
		latestAt time.Time
	)
	for _, e := range entries {
		if e.IsDir() || !IsBatchFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestAt) {
			latest = filepath.Join(dir, e.Name())
			latestAt = info.ModTime()
		}
	}
	if latest == "" {
		return "", fmt.Errorf("%w in %s", generic.ErrNoBatch, dir)
	}
	return latest, nil
}

// IsBatchFile reports whether name looks like an export. Spreadsheet lock
// files ("~$report.xlsx") are excluded.
func IsBatchFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range BatchExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
