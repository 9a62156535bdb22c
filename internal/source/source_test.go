package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "laptops.json")
	data := `[
		{"name": "A", "price": "999.99", "ram": 16},
		{"name": "B", "price": "1459,00", "ram": "32"}
	]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	records, err := ReadJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["name"] != "A" {
		t.Errorf("name = %v", records[0]["name"])
	}
	// JSON numbers decode as float64.
	if records[0]["ram"] != 16.0 {
		t.Errorf("ram = %v (%T)", records[0]["ram"], records[0]["ram"])
	}
}

func TestReadJSON_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadJSON(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestReadXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "laptops.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"name", "description", "price"},
		{"A", "Fast laptop", "999,99"},
		{"B", "Slim laptop", "1099.00"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	records, err := ReadXLSX(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0]["price"] != "999,99" {
		t.Errorf("price = %v", records[0]["price"])
	}
	if records[1]["name"] != "B" {
		t.Errorf("name = %v", records[1]["name"])
	}
}

func TestReadFile_UnsupportedExtension(t *testing.T) {
	if _, err := ReadFile("catalog.csv"); err == nil {
		t.Error("expected unsupported format error")
	}
}
