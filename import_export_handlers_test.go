package main

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func importUploadRequest(t *testing.T, app *App, fileName, content string) *http.Request {
	t.Helper()
	buffer := bytes.NewBuffer(nil)
	writer := multipart.NewWriter(buffer)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tours/import", buffer)
	req.Header.Set("content-type", writer.FormDataContentType())
	token, err := app.createAdminSessionToken(AdminSession{Username: "admin", Role: "admin"})
	if err != nil {
		t.Fatalf("create session token: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: token, Path: "/"})
	return req
}

func TestAdminExportToursCSV(t *testing.T) {
	app, router := newTestRouter(t)
	app.listTours = func(ctx context.Context, activeOnly bool) ([]Tour, error) {
		if activeOnly {
			t.Error("export must include inactive tours")
		}
		return []Tour{sampleTour()}, nil
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, app, http.MethodGet, "/api/v1/admin/tours/export?format=csv", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if disposition := rec.Header().Get("Content-Disposition"); !strings.Contains(disposition, "tours_") || !strings.Contains(disposition, ".csv") {
		t.Errorf("unexpected content disposition: %q", disposition)
	}
	if !strings.HasPrefix(rec.Body.String(), colName+",") {
		t.Errorf("expected localized CSV header, got %q", strings.SplitN(rec.Body.String(), "\n", 2)[0])
	}
}

func TestAdminExportToursUnknownFormat(t *testing.T) {
	app, router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authenticatedRequest(t, app, http.MethodGet, "/api/v1/admin/tours/export?format=docx", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminImportToursValidationAbortsWholeBatch(t *testing.T) {
	app, router := newTestRouter(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		t.Fatal("no row may be written when validation fails")
		return nil, nil
	}

	csvData := colName + "," + colDescription + "," + colPrice + "," + colDuration + "\n" +
		"London,Evening drive.,120,3\n" +
		",Missing name.,50,2\n"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, importUploadRequest(t, app, "tours.csv", csvData))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONBody(t, rec)
	if body["error"] != "validation_error" {
		t.Errorf("unexpected error code: %v", body["error"])
	}
	if body["totalRows"] != float64(2) {
		t.Errorf("unexpected totalRows: %v", body["totalRows"])
	}
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("expected one validation error, got %v", body["errors"])
	}
	first, _ := errs[0].(map[string]any)
	if first["row"] != float64(3) {
		t.Errorf("expected error on spreadsheet row 3, got %v", first["row"])
	}
}

func TestAdminImportToursSuccess(t *testing.T) {
	app, router := newTestRouter(t)
	app.getTourBySlug = func(ctx context.Context, slug string) (*Tour, error) {
		return nil, nil
	}
	var created []string
	app.createTour = func(ctx context.Context, tour Tour) (*Tour, error) {
		created = append(created, tour.Slug)
		return &tour, nil
	}

	csvData := colName + "," + colDescription + "," + colPrice + "," + colDuration + "\n" +
		"London By Night,Evening drive.,120,3\n"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, importUploadRequest(t, app, "tours.csv", csvData))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSONBody(t, rec)
	if body["message"] != "Importação concluída" {
		t.Errorf("unexpected message: %v", body["message"])
	}
	results, _ := body["results"].(map[string]any)
	if results == nil || results["success"] != float64(1) {
		t.Errorf("unexpected results: %v", body["results"])
	}
	if len(created) != 1 || created[0] != "london-by-night" {
		t.Errorf("unexpected created slugs: %v", created)
	}
}

func TestAdminImportToursRejectsUnknownExtension(t *testing.T) {
	app, router := newTestRouter(t)

	// .xls is rejected up front: the XLSX reader cannot parse the legacy
	// binary format.
	for _, fileName := range []string{"tours.pdf", "tours.xls"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, importUploadRequest(t, app, fileName, "not a spreadsheet"))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", fileName, rec.Code)
		}
		if got := decodeJSONBody(t, rec)["error"]; got != "unsupported_file_type" {
			t.Errorf("%s: unexpected error code: %v", fileName, got)
		}
	}
}

func TestAdminImportToursEmptyFile(t *testing.T) {
	app, router := newTestRouter(t)

	csvData := colName + "," + colDescription + "," + colPrice + "," + colDuration + "\n"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, importUploadRequest(t, app, "tours.csv", csvData))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeJSONBody(t, rec)["error"]; got != "empty_file" {
		t.Errorf("unexpected error code: %v", got)
	}
}
