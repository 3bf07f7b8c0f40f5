package sources

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"consignment-reconciliation-service/pkg/errors"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// ReadWorkbookFile loads a spreadsheet or CSV file from disk into a
// RawTable, dispatching on the file extension. Supported formats: .xlsx,
// .xls and .csv (the inventory system exports legacy .xls and latin-1 CSV
// files alongside modern workbooks).
func ReadWorkbookFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	defer f.Close()

	table, err := ReadWorkbook(f, filepath.Ext(path))
	if err != nil {
		if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
			return nil, reconcilerErr.WithContext("file_path", path)
		}
		return nil, err
	}
	return table, nil
}

// ReadWorkbook reads the first sheet of a workbook (or the whole CSV
// stream) into a RawTable.
func ReadWorkbook(r io.Reader, ext string) (*RawTable, error) {
	switch strings.ToLower(ext) {
	case ".xlsx":
		return readXLSX(r)
	case ".xls":
		return readXLS(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook",
			"unsupported file type "+ext, nil)
	}
}

func readXLSX(r io.Reader) (*RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook", "cannot open xlsx", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook", "cannot read sheet "+sheet, err)
	}
	return &RawTable{Rows: rows}, nil
}

func readXLS(r io.Reader) (*RawTable, error) {
	// The xls reader needs random access; buffer the stream.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook", "cannot read xls stream", err)
	}

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook", "cannot open xls", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return &RawTable{}, nil
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, row.LastCol()+1)
		for j := row.FirstCol(); j <= row.LastCol(); j++ {
			if j >= 0 && j < len(cells) {
				cells[j] = row.Col(j)
			}
		}
		rows = append(rows, cells)
	}
	return &RawTable{Rows: rows}, nil
}

func readCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.SourceError(errors.CodeInvalidFormat, "workbook", "cannot parse csv", err)
	}
	return &RawTable{Rows: rows}, nil
}
