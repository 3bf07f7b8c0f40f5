package sources

import (
	"strings"
	"testing"

	"consignment-reconciliation-service/pkg/errors"
)

func TestReadWorkbookCSV(t *testing.T) {
	csv := "Filial,Produto,Qtd\nCentro,9781111111111,4\nNorte,9782222222222\n"

	table, err := ReadWorkbook(strings.NewReader(csv), ".csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(table.Rows))
	}
	if got := table.Cell(1, 1); got != "9781111111111" {
		t.Errorf("expected product cell, got %q", got)
	}
	// Ragged rows are allowed.
	if got := table.Cell(2, 2); got != "" {
		t.Errorf("expected empty cell on short row, got %q", got)
	}
}

func TestReadWorkbookUnsupportedExtension(t *testing.T) {
	_, err := ReadWorkbook(strings.NewReader(""), ".pdf")
	if !errors.IsCode(err, errors.CodeInvalidFormat) {
		t.Errorf("expected CodeInvalidFormat, got %v", err)
	}
}

func TestReadWorkbookFileNotFound(t *testing.T) {
	_, err := ReadWorkbookFile("/nonexistent/acerto.xlsx")
	if !errors.IsCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected CodeFileNotFound, got %v", err)
	}
}
