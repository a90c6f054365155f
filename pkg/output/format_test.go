package output

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iwvelando/finance-calculators/internal/evaluate"
	"github.com/iwvelando/finance-calculators/pkg/calc"
	"github.com/xuri/excelize/v2"
)

func testResults() []evaluate.Evaluation {
	return []evaluate.Evaluation{
		{
			Name:       "mortgage",
			Calculator: "loan",
			Fields:     map[string]string{"amount": "250000", "rate": "4.5", "years": ""},
			Result: calc.Result{
				Values: []calc.Value{
					{Key: "monthlyPayment", Amount: 1266.713, Unit: calc.UnitCurrency},
				},
				Series: []calc.Series{
					{
						Name:   "breakdown",
						Keys:   []string{"value"},
						Points: []calc.Point{{Name: "Principal", Values: map[string]float64{"value": 250000}}},
					},
				},
			},
			Insight: "Consider a shorter term.",
		},
		{
			Name:       "tip",
			Calculator: "percentage",
			Mode:       "XofY",
			Fields:     map[string]string{"a": "15", "b": ""},
			Notes:      []string{"inputs are incomplete or out of range; no result"},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	PrettyFormat(&buf, testResults())
	output := buf.String()

	expected := []string{
		"--- Results for sheet mortgage (loan) ---",
		"Input   | Value",
		"amount | 250000",
		"monthlyPayment | $1,266.71",
		"Series breakdown",
		"Principal | 250,000.00",
		"Insight:\nConsider a shorter term.",
		"--- Results for sheet tip (percentage/XofY) ---",
		"Note: inputs are incomplete",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyFormat output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "years |") {
		t.Errorf("PrettyFormat should skip blank inputs:\n%s", output)
	}
}

func TestCsvString(t *testing.T) {
	output, err := CsvString(testResults())
	if err != nil {
		t.Fatalf("CsvString() error = %v", err)
	}

	expected := []string{
		"sheet,calculator,kind,key,value,unit\n",
		"mortgage,loan,input,amount,250000,\n",
		"mortgage,loan,result,monthlyPayment,1266.71,currency\n",
		"mortgage,loan,series:breakdown,Principal.value,250000.00,\n",
		"mortgage,loan,insight,,Consider a shorter term.,\n",
		"tip,percentage/XofY,input,a,15,\n",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("CsvString output missing %q:\n%s", want, output)
		}
	}
}

func TestSortedKeysOrdersMonthsNumerically(t *testing.T) {
	keys := sortedKeys(map[string]string{"10.income": "", "2.income": "", "1.expenses": "", "1.income": ""})
	want := []string{"1.expenses", "1.income", "2.income", "10.income"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("sortedKeys() = %v, want %v", keys, want)
	}
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"mortgage", 0, "mortgage"},
		{"Mortgage", 1, "Mortgage (2)"},
		{"a/b:c?", 2, "a-b-c"},
		{"", 3, "Sheet 4"},
		{strings.Repeat("x", 40), 4, strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		if got := SheetName(tt.name, tt.index, used); got != tt.want {
			t.Errorf("SheetName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := WriteXLSX(path, testResults()); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if strings.Join(sheets, ",") != "mortgage,tip" {
		t.Fatalf("GetSheetList() = %v", sheets)
	}

	rows, err := f.GetRows("mortgage")
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if rows[0][0] != "Calculator" || rows[0][1] != "loan" {
		t.Errorf("unexpected first row %v", rows[0])
	}

	var found bool
	for _, row := range rows {
		if len(row) >= 2 && row[0] == "Insight" && row[1] == "Consider a shorter term." {
			found = true
		}
	}
	if !found {
		t.Errorf("insight row missing: %v", rows)
	}
}

func TestXLSXFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := XLSXFormat(&buf, testResults()); err != nil {
		t.Fatalf("XLSXFormat() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	value, err := f.GetCellValue("tip", "B1")
	if err != nil {
		t.Fatalf("GetCellValue() error = %v", err)
	}
	if value != "percentage/XofY" {
		t.Errorf("B1 = %q, want percentage/XofY", value)
	}
}
