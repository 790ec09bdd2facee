package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
)

func (a *App) adminExportToursHandler(c *gin.Context) {
	format := strings.TrimSpace(c.Query("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" && format != "pdf" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_format", Message: "Formato inválido. Use csv, xlsx ou pdf"})
		return
	}

	tours, err := a.listTours(c.Request.Context(), false)
	if err != nil {
		a.log.Error("failed to list tours for export", "err", err)
		writeAPIError(c, err)
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	switch format {
	case "xlsx":
		data, err := buildToursXLSX(tours)
		if err != nil {
			a.log.Error("failed to build xlsx export", "err", err)
			writeAPIError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tours_"+stamp+".xlsx"))
		c.Data(http.StatusOK, exportXLSXMime, data)
	case "pdf":
		data, err := buildToursPDF(tours, stamp)
		if err != nil {
			a.log.Error("failed to build pdf export", "err", err)
			writeAPIError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tours_"+stamp+".pdf"))
		c.Data(http.StatusOK, exportPDFMime, data)
	default:
		data, err := buildToursCSV(tours)
		if err != nil {
			a.log.Error("failed to build csv export", "err", err)
			writeAPIError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "tours_"+stamp+".csv"))
		c.Data(http.StatusOK, exportCSVMimeType, []byte(data))
	}
}

func (a *App) adminImportToursHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "missing_file", Message: "Nenhum arquivo foi enviado"})
		return
	}
	if fileHeader.Size > maxImportBytes {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "file_too_large", Message: "Arquivo muito grande"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedImportExtensions[ext]; !ok {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "unsupported_file_type", Message: "Tipo de arquivo não suportado. Use CSV ou Excel (.xlsx)"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		a.log.Error("failed to open import upload", "err", err)
		writeAPIError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportBytes+1))
	if err != nil {
		a.log.Error("failed to read import upload", "err", err)
		writeAPIError(c, err)
		return
	}
	if len(data) > maxImportBytes {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "file_too_large", Message: "Arquivo muito grande"})
		return
	}

	rows, err := parseImportFile(fileHeader.Filename, fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		a.log.Error("failed to parse import file", "filename", fileHeader.Filename, "err", err)
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "parse_error", Message: "Erro ao processar arquivo. Verifique o formato e tente novamente."})
		return
	}
	if len(rows) == 0 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "empty_file", Message: "Arquivo vazio ou sem dados válidos"})
		return
	}

	// Validation phase: any error anywhere aborts the whole batch before a
	// single row is written.
	if validationErrors := validateImportRows(rows); len(validationErrors) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "validation_error",
			"message":   "Erros de validação encontrados",
			"errors":    validationErrors,
			"totalRows": len(rows),
		})
		return
	}

	results := a.processImport(c.Request.Context(), rows)
	c.JSON(http.StatusOK, gin.H{
		"message": "Importação concluída",
		"results": results,
	})
}

// buildToursPDF renders a compact catalog summary, one line per tour plus
// aggregate counts per category.
func buildToursPDF(tours []Tour, generatedAt string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, "Tour catalog")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s", generatedAt))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total tours: %d", len(tours)))
	pdf.Ln(10)

	categoryCounts := map[string]int{}
	active := 0
	for _, tour := range tours {
		categoryCounts[tour.Category]++
		if tour.IsActive {
			active++
		}
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Active: %d / %d", active, len(tours)))
	pdf.Ln(8)

	pdf.Cell(0, 8, "Categories")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	categories := make([]string, 0, len(categoryCounts))
	for category := range categoryCounts {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool { return categoryCounts[categories[i]] > categoryCounts[categories[j]] })
	for _, category := range categories {
		pdf.Cell(0, 6, fmt.Sprintf("- %s: %d", category, categoryCounts[category]))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Tours")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, tour := range tours {
		status := "active"
		if !tour.IsActive {
			status = "inactive"
		}
		line := fmt.Sprintf("- %s | GBP %.2f | %.0fh | %s | %s", tour.Name, tour.Price, tour.Duration, tour.Category, status)
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
