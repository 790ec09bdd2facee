package main

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func importRowFixture() importRow {
	return importRow{
		colName:        "London By Night",
		colDescription: "Evening drive past the city landmarks.",
		colPrice:       "120",
		colDuration:    "3",
	}
}

func TestValidateImportRowRequiredFields(t *testing.T) {
	row := importRow{
		colName:        "",
		colDescription: "",
		colPrice:       "abc",
		colDuration:    "0",
	}

	errs := validateImportRow(row, 1)
	if len(errs) != 4 {
		t.Fatalf("expected 4 errors, got %d: %v", len(errs), errs)
	}
	// Second data row of the spreadsheet is row 3 for the operator.
	for _, e := range errs {
		if e.Row != 3 {
			t.Errorf("expected row 3, got %d", e.Row)
		}
	}
}

func TestValidateImportRowPromotionPriceOrdering(t *testing.T) {
	row := importRowFixture()
	row[colPromotionPrice] = "150"

	errs := validateImportRow(row, 0)
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	assert.Equal(t, colPromotionPrice, errs[0].Field)
	assert.Equal(t, "Preço promocional deve ser menor que o preço normal", errs[0].Message)
}

func TestValidateImportRowsCollectsAllErrors(t *testing.T) {
	rows := []importRow{
		importRowFixture(),
		{colName: "", colDescription: "desc", colPrice: "10", colDuration: "1"},
		{colName: "x", colDescription: "", colPrice: "10", colDuration: "1"},
	}

	errs := validateImportRows(rows)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Row != 3 || errs[1].Row != 4 {
		t.Errorf("unexpected row numbers: %d, %d", errs[0].Row, errs[1].Row)
	}
}

func TestParseLocalizedBool(t *testing.T) {
	cases := []struct {
		raw      string
		fallback bool
		want     bool
	}{
		{"Sim", false, true},
		{"sim", false, true},
		{"Não", false, false},
		{"", false, false},
		{"", true, true},
		{"Não", true, false},
		{"NÃO", true, false},
		{"qualquer", true, true},
	}
	for _, tc := range cases {
		if got := parseLocalizedBool(tc.raw, tc.fallback); got != tc.want {
			t.Errorf("parseLocalizedBool(%q, %v) = %v, want %v", tc.raw, tc.fallback, got, tc.want)
		}
	}
}

func TestParseCSVRowsStripsBOMAndBlankLines(t *testing.T) {
	data := "\xEF\xBB\xBF" + colName + "," + colPrice + "\nLondon,120\n,,\n"
	rows, err := parseCSVRows([]byte(data))
	if err != nil {
		t.Fatalf("parseCSVRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	assert.Equal(t, "London", rows[0][colName])
	assert.Equal(t, "120", rows[0][colPrice])
}

func TestTourFromImportRowDefaults(t *testing.T) {
	row := importRowFixture()
	tour := tourFromImportRow(row)

	assert.Equal(t, "london-by-night", tour.Slug)
	assert.Equal(t, defaultCategory, tour.Category)
	assert.Equal(t, tour.Description, tour.ShortDescription)
	assert.True(t, tour.IsActive)
	assert.False(t, tour.IsFeatured)
	assert.False(t, tour.IsPromotion)
	assert.Nil(t, tour.PromotionPrice)
}

func TestProcessImportCreatesAndUpdates(t *testing.T) {
	app := newTestApp(t)
	known := map[string]bool{"london-by-night": true}
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		if known[slug] {
			return &Tour{ID: testTourID, Slug: slug}, nil
		}
		return nil, nil
	}
	var createdSlugs, updatedIDs []string
	app.createTour = func(ctx context.Context, tour Tour) (*Tour, error) {
		createdSlugs = append(createdSlugs, tour.Slug)
		return &tour, nil
	}
	app.updateTour = func(ctx context.Context, tour Tour) (*Tour, error) {
		updatedIDs = append(updatedIDs, tour.ID)
		return &tour, nil
	}

	rows := []importRow{
		importRowFixture(),
		{colName: "Windsor Castle", colDescription: "Day trip.", colPrice: "90", colDuration: "6"},
	}
	results := app.processImport(context.Background(), rows)

	assert.Equal(t, 2, results.Success)
	assert.Equal(t, 0, results.Errors)
	assert.Len(t, results.Details, len(rows))
	assert.Equal(t, "updated", results.Details[0].Action)
	assert.Equal(t, "created", results.Details[1].Action)
	assert.Equal(t, []string{"windsor-castle"}, createdSlugs)
	assert.Equal(t, []string{testTourID}, updatedIDs)
}

func TestProcessImportRecordsRowFailuresAndContinues(t *testing.T) {
	app := newTestApp(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		return nil, nil
	}
	app.createTour = func(ctx context.Context, tour Tour) (*Tour, error) {
		if tour.Slug == "london-by-night" {
			return nil, fmt.Errorf("insert failed")
		}
		return &tour, nil
	}

	rows := []importRow{
		importRowFixture(),
		{colName: "Windsor Castle", colDescription: "Day trip.", colPrice: "90", colDuration: "6"},
	}
	results := app.processImport(context.Background(), rows)

	assert.Equal(t, 1, results.Success)
	assert.Equal(t, 1, results.Errors)
	assert.Len(t, results.Details, len(rows))
	assert.Equal(t, "error", results.Details[0].Action)
	assert.Equal(t, 2, results.Details[0].Row)
	assert.NotEmpty(t, results.Details[0].Error)
}

func exportTourFixture() Tour {
	promo := 90.0
	image := "https://cdn.example.test/london.jpg"
	return Tour{
		ID:               testTourID,
		Slug:             "london-by-night",
		Name:             "London By Night",
		Description:      "Evening drive past the city landmarks.",
		ShortDescription: "Evening drive.",
		Price:            120.5,
		Duration:         3,
		Category:         "Tour",
		ImageURL:         &image,
		IsFeatured:       true,
		IsPromotion:      true,
		PromotionPrice:   &promo,
		IsActive:         true,
		CreatedAt:        "2026-08-01T10:00:00Z",
	}
}

func TestBuildToursCSVRoundTrip(t *testing.T) {
	csvData, err := buildToursCSV([]Tour{exportTourFixture()})
	if err != nil {
		t.Fatalf("buildToursCSV: %v", err)
	}
	if !strings.HasPrefix(csvData, colName+",") {
		t.Errorf("expected localized header row, got %q", strings.SplitN(csvData, "\n", 2)[0])
	}

	rows, err := parseCSVRows([]byte(csvData))
	if err != nil {
		t.Fatalf("parseCSVRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	assert.Equal(t, "London By Night", row[colName])
	assert.Equal(t, "120.5", row[colPrice])
	assert.Equal(t, "Sim", row[colFeatured])
	assert.Equal(t, "Sim", row[colActive])
	assert.Equal(t, "90", row[colPromotionPrice])
	assert.Equal(t, "01/08/2026", row[colCreatedAt])
	assert.Equal(t, "london-by-night", row[colSlug])
}

func TestBuildToursXLSXRoundTrip(t *testing.T) {
	data, err := buildToursXLSX([]Tour{exportTourFixture()})
	if err != nil {
		t.Fatalf("buildToursXLSX: %v", err)
	}

	rows, err := parseXLSXRows(data)
	if err != nil {
		t.Fatalf("parseXLSXRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	assert.Equal(t, "London By Night", row[colName])
	assert.Equal(t, "Não", localizedBoolWord(false))
	assert.Equal(t, "Sim", row[colPromotion])
}

func TestExportRecordOmitsEmptyOptionals(t *testing.T) {
	tour := exportTourFixture()
	tour.ImageURL = nil
	tour.PromotionPrice = nil
	tour.CreatedAt = "not-a-date"

	record := exportRecord(tour)
	if len(record) != len(exportColumns) {
		t.Fatalf("record length %d does not match column count %d", len(record), len(exportColumns))
	}
	assert.Equal(t, "", record[6])  // image url
	assert.Equal(t, "", record[9])  // promotion price
	assert.Equal(t, "", record[12]) // created at
}
