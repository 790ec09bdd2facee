package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// Spreadsheet column labels. The admin dashboard is Portuguese, so the wire
// format keeps the localized headers for export/import round trips.
const (
	colName             = "Nome"
	colDescription      = "Descrição"
	colShortDescription = "Descrição Curta"
	colPrice            = "Preço (£)"
	colDuration         = "Duração (horas)"
	colCategory         = "Categoria"
	colImageURL         = "URL da Imagem"
	colFeatured         = "Em Destaque"
	colPromotion        = "Em Promoção"
	colPromotionPrice   = "Preço Promocional (£)"
	colActive           = "Ativo"
	colSlug             = "Slug"
	colCreatedAt        = "Data de Criação"

	localizedYes = "sim"
	localizedNo  = "não"

	exportSheetName   = "Tours"
	exportDateLayout  = "02/01/2006"
	exportCSVMimeType = "text/csv; charset=utf-8"
	exportXLSXMime    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportPDFMime     = "application/pdf"
)

var exportColumns = []struct {
	Label string
	Width float64
}{
	{colName, 30},
	{colDescription, 50},
	{colShortDescription, 30},
	{colPrice, 12},
	{colDuration, 15},
	{colCategory, 15},
	{colImageURL, 40},
	{colFeatured, 12},
	{colPromotion, 12},
	{colPromotionPrice, 18},
	{colActive, 8},
	{colSlug, 25},
	{colCreatedAt, 15},
}

// importRow is one parsed spreadsheet row keyed by header label.
type importRow map[string]string

type importRowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type importDetail struct {
	Row    int    `json:"row"`
	Action string `json:"action"`
	Name   string `json:"name"`
	Error  string `json:"error,omitempty"`
}

type importResults struct {
	Success int            `json:"success"`
	Errors  int            `json:"errors"`
	Details []importDetail `json:"details"`
}

func parseImportFile(filename string, contentType string, data []byte) ([]importRow, error) {
	name := strings.ToLower(filename)
	if strings.HasSuffix(name, ".csv") || strings.HasPrefix(contentType, "text/csv") {
		return parseCSVRows(data)
	}
	return parseXLSXRows(data)
}

func parseCSVRows(data []byte) ([]importRow, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return zipRows(records), nil
}

func parseXLSXRows(data []byte) ([]importRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	return zipRows(records), nil
}

// zipRows treats the first record as the header row and zips every following
// record into a map keyed by the trimmed header labels.
func zipRows(records [][]string) []importRow {
	if len(records) == 0 {
		return nil
	}

	headers := make([]string, len(records[0]))
	for i, header := range records[0] {
		headers[i] = strings.TrimSpace(header)
	}

	rows := make([]importRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(importRow, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func isBlankRecord(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// validateImportRow checks one row in isolation. Row numbers are 1-indexed
// and offset past the header so they match what the operator sees in the
// spreadsheet.
func validateImportRow(row importRow, index int) []importRowError {
	rowNumber := index + importHeaderRowOffset
	var errs []importRowError

	if strings.TrimSpace(row[colName]) == "" {
		errs = append(errs, importRowError{Row: rowNumber, Field: colName, Message: "Nome é obrigatório", Value: row[colName]})
	}
	if strings.TrimSpace(row[colDescription]) == "" {
		errs = append(errs, importRowError{Row: rowNumber, Field: colDescription, Message: "Descrição é obrigatória", Value: row[colDescription]})
	}

	price, priceErr := parsePositiveNumber(row[colPrice])
	if priceErr != nil {
		errs = append(errs, importRowError{Row: rowNumber, Field: colPrice, Message: "Preço deve ser um número maior que zero", Value: row[colPrice]})
	}
	if _, err := parsePositiveNumber(row[colDuration]); err != nil {
		errs = append(errs, importRowError{Row: rowNumber, Field: colDuration, Message: "Duração deve ser um número maior que zero", Value: row[colDuration]})
	}

	if strings.TrimSpace(row[colPromotionPrice]) != "" {
		promoPrice, err := parsePositiveNumber(row[colPromotionPrice])
		if err != nil {
			errs = append(errs, importRowError{Row: rowNumber, Field: colPromotionPrice, Message: "Preço promocional deve ser um número maior que zero", Value: row[colPromotionPrice]})
		} else if priceErr == nil && promoPrice >= price {
			errs = append(errs, importRowError{Row: rowNumber, Field: colPromotionPrice, Message: "Preço promocional deve ser menor que o preço normal", Value: row[colPromotionPrice]})
		}
	}

	return errs
}

func validateImportRows(rows []importRow) []importRowError {
	var all []importRowError
	for i, row := range rows {
		all = append(all, validateImportRow(row, i)...)
	}
	return all
}

func parsePositiveNumber(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	return value, nil
}

func parseLocalizedBool(raw string, fallback bool) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	if fallback {
		// Active stays true unless explicitly switched off.
		return !strings.EqualFold(trimmed, localizedNo)
	}
	return strings.EqualFold(trimmed, localizedYes)
}

// tourFromImportRow builds a tour record from an already validated row.
func tourFromImportRow(row importRow) Tour {
	name := strings.TrimSpace(row[colName])
	description := strings.TrimSpace(row[colDescription])

	shortDescription := strings.TrimSpace(row[colShortDescription])
	if shortDescription == "" {
		shortDescription = truncateRunes(description, shortDescriptionMaxChars)
	}

	category := strings.TrimSpace(row[colCategory])
	if category == "" {
		category = defaultCategory
	}

	price, _ := parsePositiveNumber(row[colPrice])
	duration, _ := parsePositiveNumber(row[colDuration])

	var imageURL *string
	if trimmed := strings.TrimSpace(row[colImageURL]); trimmed != "" {
		imageURL = &trimmed
	}

	var promotionPrice *float64
	if strings.TrimSpace(row[colPromotionPrice]) != "" {
		if value, err := parsePositiveNumber(row[colPromotionPrice]); err == nil {
			promotionPrice = &value
		}
	}

	return Tour{
		Slug:             slugify(name),
		Name:             name,
		Description:      description,
		ShortDescription: shortDescription,
		Price:            price,
		Duration:         duration,
		Category:         category,
		ImageURL:         imageURL,
		IsFeatured:       parseLocalizedBool(row[colFeatured], false),
		IsPromotion:      parseLocalizedBool(row[colPromotion], false),
		PromotionPrice:   promotionPrice,
		IsActive:         parseLocalizedBool(row[colActive], true),
	}
}

// processImport runs the commit phase: every row is applied independently, a
// failed write is recorded against its row and does not stop the batch.
func (a *App) processImport(ctx context.Context, rows []importRow) importResults {
	results := importResults{Details: make([]importDetail, 0, len(rows))}

	for i, row := range rows {
		rowNumber := i + importHeaderRowOffset
		tour := tourFromImportRow(row)

		existing, err := a.getTourBySlug(ctx, tour.Slug)
		if err == nil {
			if existing != nil {
				tour.ID = existing.ID
				_, err = a.updateTour(ctx, tour)
			} else {
				_, err = a.createTour(ctx, tour)
			}
		}
		if err != nil {
			a.log.Error("import row failed", "row", rowNumber, "slug", tour.Slug, "err", err)
			results.Errors++
			results.Details = append(results.Details, importDetail{
				Row:    rowNumber,
				Action: "error",
				Name:   tour.Name,
				Error:  err.Error(),
			})
			continue
		}

		action := "created"
		if existing != nil {
			action = "updated"
		}
		results.Success++
		results.Details = append(results.Details, importDetail{Row: rowNumber, Action: action, Name: tour.Name})
	}

	return results
}

func exportRecord(tour Tour) []string {
	promotionPrice := ""
	if tour.PromotionPrice != nil {
		promotionPrice = formatExportNumber(*tour.PromotionPrice)
	}
	imageURL := ""
	if tour.ImageURL != nil {
		imageURL = *tour.ImageURL
	}
	createdAt := ""
	if parsed, err := time.Parse(time.RFC3339, tour.CreatedAt); err == nil {
		createdAt = parsed.Format(exportDateLayout)
	}

	return []string{
		tour.Name,
		tour.Description,
		tour.ShortDescription,
		formatExportNumber(tour.Price),
		formatExportNumber(tour.Duration),
		tour.Category,
		imageURL,
		localizedBoolWord(tour.IsFeatured),
		localizedBoolWord(tour.IsPromotion),
		promotionPrice,
		localizedBoolWord(tour.IsActive),
		tour.Slug,
		createdAt,
	}
}

func formatExportNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func localizedBoolWord(value bool) string {
	if value {
		return "Sim"
	}
	return "Não"
}

func buildToursCSV(tours []Tour) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)

	headers := make([]string, len(exportColumns))
	for i, column := range exportColumns {
		headers[i] = column.Label
	}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, tour := range tours {
		if err := writer.Write(exportRecord(tour)); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func buildToursXLSX(tours []Tour) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, err
	}

	for i, column := range exportColumns {
		cell, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetColWidth(exportSheetName, cell, cell, column.Width); err != nil {
			return nil, err
		}
	}

	headers := make([]any, len(exportColumns))
	for i, column := range exportColumns {
		headers[i] = column.Label
	}
	if err := file.SetSheetRow(exportSheetName, "A1", &headers); err != nil {
		return nil, err
	}

	for i, tour := range tours {
		record := exportRecord(tour)
		cells := make([]any, len(record))
		for j, value := range record {
			cells[j] = value
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := file.SetSheetRow(exportSheetName, cell, &cells); err != nil {
			return nil, err
		}
	}

	buffer, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
