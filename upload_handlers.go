package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var uploadFilenamePattern = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

func (a *App) uploadsDir() string {
	return filepath.Join(a.cfg.DataRoot, "uploads", "tours")
}

func (a *App) adminUploadImageHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "missing_file", Message: "Nenhum arquivo foi enviado"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "file_too_large", Message: "Arquivo muito grande. Máximo 5MB"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		a.log.Error("failed to open upload", "err", err)
		writeAPIError(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		a.log.Error("failed to read upload", "err", err)
		writeAPIError(c, err)
		return
	}
	if len(data) > maxUploadBytes {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "file_too_large", Message: "Arquivo muito grande. Máximo 5MB"})
		return
	}

	mimeType := a.detectImageMimeType(data, fileHeader.Header.Get("Content-Type"))
	if mimeType == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "unsupported_file_type", Message: "Tipo de arquivo não permitido. Use JPEG, PNG ou WebP"})
		return
	}

	fileName := fmt.Sprintf("%d_%s", time.Now().UnixMilli(), sanitizeUploadFilename(fileHeader.Filename))
	if err := os.MkdirAll(a.uploadsDir(), 0o755); err != nil {
		a.log.Error("failed to create uploads dir", "err", err)
		writeAPIError(c, err)
		return
	}
	if err := os.WriteFile(filepath.Join(a.uploadsDir(), fileName), data, 0o644); err != nil {
		a.log.Error("failed to write upload", "file", fileName, "err", err)
		writeAPIError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"url":      "/uploads/tours/" + fileName,
		"fileName": fileName,
		"size":     len(data),
		"type":     mimeType,
	})
}

func (a *App) adminDeleteImageHandler(c *gin.Context) {
	fileName := strings.TrimSpace(c.Query("fileName"))
	if fileName == "" {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "missing_filename", Message: "Nome do arquivo é obrigatório"})
		return
	}
	if strings.Contains(fileName, "..") || strings.ContainsAny(fileName, `/\`) {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_filename", Message: "Nome de arquivo inválido"})
		return
	}

	path := filepath.Join(a.uploadsDir(), fileName)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "file_not_found", Message: "Arquivo não encontrado"})
			return
		}
		a.log.Error("failed to stat upload", "file", fileName, "err", err)
		writeAPIError(c, err)
		return
	}

	if err := os.Remove(path); err != nil {
		a.log.Error("failed to remove upload", "file", fileName, "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Arquivo excluído com sucesso"})
}

func sanitizeUploadFilename(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	sanitized := uploadFilenamePattern.ReplaceAllString(base, "_")
	if sanitized == "" || sanitized == "." {
		return "upload"
	}
	return sanitized
}

func (a *App) detectImageMimeType(data []byte, declared string) string {
	if declared != "" {
		mimeType := cleanMimeType(declared)
		if _, ok := allowedImageTypes[mimeType]; ok {
			return mimeType
		}
	}
	mimeType := cleanMimeType(http.DetectContentType(data))
	if _, ok := allowedImageTypes[mimeType]; ok {
		return mimeType
	}
	return ""
}

func cleanMimeType(input string) string {
	value := strings.TrimSpace(strings.ToLower(input))
	if strings.Contains(value, ";") {
		value = strings.SplitN(value, ";", 2)[0]
	}
	return strings.TrimSpace(value)
}
