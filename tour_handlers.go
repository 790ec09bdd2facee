package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// tourPayload is the request body for create and full update. Optional fields
// are pointers so absence and zero values stay distinguishable.
type tourPayload struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Price            float64  `json:"price"`
	Duration         float64  `json:"duration"`
	Category         string   `json:"category"`
	ImageURL         *string  `json:"image_url"`
	IsFeatured       *bool    `json:"is_featured"`
	IsPromotion      *bool    `json:"is_promotion"`
	PromotionPrice   *float64 `json:"promotion_price"`
	IsActive         *bool    `json:"is_active"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validateTourPayload(payload tourPayload) []fieldError {
	var errs []fieldError
	if strings.TrimSpace(payload.Name) == "" {
		errs = append(errs, fieldError{Field: "name", Message: "Nome é obrigatório"})
	}
	if strings.TrimSpace(payload.Description) == "" {
		errs = append(errs, fieldError{Field: "description", Message: "Descrição é obrigatória"})
	}
	if payload.Price <= 0 {
		errs = append(errs, fieldError{Field: "price", Message: "Preço deve ser um número maior que zero"})
	}
	if payload.Duration <= 0 {
		errs = append(errs, fieldError{Field: "duration", Message: "Duração deve ser um número maior que zero"})
	}
	// The ordering rule holds whenever a promotion price is supplied, even if
	// the body leaves is_promotion alone and the flag comes from the record.
	if payload.PromotionPrice != nil {
		if *payload.PromotionPrice <= 0 {
			errs = append(errs, fieldError{Field: "promotion_price", Message: "Preço promocional deve ser um número maior que zero"})
		} else if *payload.PromotionPrice >= payload.Price {
			errs = append(errs, fieldError{Field: "promotion_price", Message: "Preço promocional deve ser menor que o preço normal"})
		}
	}
	return errs
}

func writeValidationErrors(c *gin.Context, errs []fieldError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"message": "Campos obrigatórios: name, description, price, duration",
		"errors":  errs,
	})
}

// applyPayload folds a validated payload into a tour record, applying the
// defaulting rules for short description, category and promotion price.
func applyPayload(tour Tour, payload tourPayload) Tour {
	tour.Name = strings.TrimSpace(payload.Name)
	tour.Description = strings.TrimSpace(payload.Description)
	tour.ShortDescription = strings.TrimSpace(payload.ShortDescription)
	if tour.ShortDescription == "" {
		tour.ShortDescription = truncateRunes(tour.Description, shortDescriptionMaxChars)
	}
	tour.Price = payload.Price
	tour.Duration = payload.Duration
	tour.Category = strings.TrimSpace(payload.Category)
	if tour.Category == "" {
		tour.Category = defaultCategory
	}
	tour.ImageURL = normalizeOptionalString(payload.ImageURL)
	if payload.IsFeatured != nil {
		tour.IsFeatured = *payload.IsFeatured
	}
	if payload.IsPromotion != nil {
		tour.IsPromotion = *payload.IsPromotion
	}
	if tour.IsPromotion && payload.PromotionPrice != nil {
		tour.PromotionPrice = payload.PromotionPrice
	} else {
		tour.PromotionPrice = nil
	}
	if payload.IsActive != nil {
		tour.IsActive = *payload.IsActive
	}
	return tour
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (a *App) adminListToursHandler(c *gin.Context) {
	tours, err := a.listTours(c.Request.Context(), false)
	if err != nil {
		a.log.Error("failed to list tours", "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tours": tours})
}

func (a *App) adminCreateTourHandler(c *gin.Context) {
	var payload tourPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Payload inválido"})
		return
	}
	if errs := validateTourPayload(payload); len(errs) > 0 {
		writeValidationErrors(c, errs)
		return
	}

	ctx := c.Request.Context()
	slug := slugify(payload.Name)
	existing, err := a.getTourBySlug(ctx, slug)
	if err != nil {
		a.log.Error("failed to check slug", "slug", slug, "err", err)
		writeAPIError(c, err)
		return
	}
	if existing != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "duplicate_slug", Message: "Já existe um tour com este nome"})
		return
	}

	tour := applyPayload(Tour{IsActive: true}, payload)
	tour.Slug = slug
	// New tours never start featured or promoted, whatever the payload says.
	tour.IsFeatured = false
	tour.IsPromotion = false
	tour.PromotionPrice = nil

	created, err := a.createTour(ctx, tour)
	if err != nil {
		a.log.Error("failed to create tour", "slug", slug, "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tour": created})
}

func (a *App) adminGetTourHandler(c *gin.Context) {
	tour, err := a.loadTour(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tour": tour})
}

func (a *App) adminUpdateTourHandler(c *gin.Context) {
	current, err := a.loadTour(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	var payload tourPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Payload inválido"})
		return
	}
	if errs := validateTourPayload(payload); len(errs) > 0 {
		writeValidationErrors(c, errs)
		return
	}

	ctx := c.Request.Context()
	tour := applyPayload(*current, payload)
	// Slug is regenerated only when the name changed.
	if tour.Name != current.Name {
		slug, err := a.uniqueSlug(ctx, tour.Name, current.ID)
		if err != nil {
			a.log.Error("failed to resolve slug", "name", tour.Name, "err", err)
			writeAPIError(c, err)
			return
		}
		tour.Slug = slug
	}

	updated, err := a.updateTour(ctx, tour)
	if err != nil {
		a.log.Error("failed to update tour", "id", tour.ID, "err", err)
		writeAPIError(c, err)
		return
	}
	if updated == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "tour_not_found", Message: "Tour não encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tour": updated})
}

// togglePayload is the PATCH body for flag flips. Only the provided flags
// change; switching promotion off always clears the promotion price.
type togglePayload struct {
	IsActive    *bool `json:"is_active"`
	IsFeatured  *bool `json:"is_featured"`
	IsPromotion *bool `json:"is_promotion"`
}

func (a *App) adminToggleTourHandler(c *gin.Context) {
	current, err := a.loadTour(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	var payload togglePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Payload inválido"})
		return
	}
	if payload.IsActive == nil && payload.IsFeatured == nil && payload.IsPromotion == nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Nenhum campo para atualizar"})
		return
	}

	tour := *current
	if payload.IsActive != nil {
		tour.IsActive = *payload.IsActive
	}
	if payload.IsFeatured != nil {
		tour.IsFeatured = *payload.IsFeatured
	}
	if payload.IsPromotion != nil {
		tour.IsPromotion = *payload.IsPromotion
		if !tour.IsPromotion {
			tour.PromotionPrice = nil
		}
	}

	updated, err := a.updateTour(c.Request.Context(), tour)
	if err != nil {
		a.log.Error("failed to toggle tour", "id", tour.ID, "err", err)
		writeAPIError(c, err)
		return
	}
	if updated == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "tour_not_found", Message: "Tour não encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tour atualizado com sucesso", "tour": updated})
}

func (a *App) adminDeleteTourHandler(c *gin.Context) {
	current, err := a.loadTour(c)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	ctx := c.Request.Context()
	hasBookings, err := a.tourHasBookings(ctx, current.ID)
	if err != nil {
		a.log.Error("failed to check bookings", "id", current.ID, "err", err)
		writeAPIError(c, err)
		return
	}
	if hasBookings {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "tour_has_bookings", Message: "Não é possível excluir um tour que possui reservas"})
		return
	}

	if err := a.deleteTour(ctx, current.ID); err != nil {
		a.log.Error("failed to delete tour", "id", current.ID, "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Tour %q excluído com sucesso", current.Name),
	})
}

func (a *App) adminBulkToursHandler(c *gin.Context) {
	var payload struct {
		Action  string   `json:"action"`
		TourIDs []string `json:"tourIds"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Ação e IDs dos tours são obrigatórios"})
		return
	}
	if payload.Action == "" || len(payload.TourIDs) == 0 {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Ação e IDs dos tours são obrigatórios"})
		return
	}
	if !containsString(bulkActions, payload.Action) {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_action", Message: "Ação inválida"})
		return
	}
	for _, id := range payload.TourIDs {
		if _, err := uuid.Parse(id); err != nil {
			writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: fmt.Sprintf("ID inválido: %s", id)})
			return
		}
	}

	if session, err := getAdminSession(c); err == nil {
		a.log.Info("bulk tour action", "action", payload.Action, "count", len(payload.TourIDs), "by", session.Username)
	}

	ctx := c.Request.Context()
	if payload.Action == "delete" {
		blocked, err := a.anyTourHasBookings(ctx, payload.TourIDs)
		if err != nil {
			a.log.Error("failed to check bookings for bulk delete", "err", err)
			writeAPIError(c, err)
			return
		}
		if blocked {
			writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "tour_has_bookings", Message: "Não é possível excluir tours que possuem reservas"})
			return
		}

		affected, err := a.bulkDeleteTours(ctx, payload.TourIDs)
		if err != nil {
			a.log.Error("bulk delete failed", "err", err)
			writeAPIError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message":  fmt.Sprintf("%d tour(s) excluído(s) com sucesso", affected),
			"affected": affected,
		})
		return
	}

	affected, err := a.bulkUpdateTours(ctx, payload.Action, payload.TourIDs)
	if err != nil {
		a.log.Error("bulk update failed", "action", payload.Action, "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("%d tour(s) %s com sucesso", affected, bulkActionMessage(payload.Action)),
		"affected": affected,
	})
}

func bulkActionMessage(action string) string {
	switch action {
	case "activate":
		return "ativado(s)"
	case "deactivate":
		return "desativado(s)"
	case "feature":
		return "destacado(s)"
	case "unfeature":
		return "removido(s) dos destaques"
	case "promote":
		return "promovido(s)"
	case "unpromote":
		return "removido(s) das promoções"
	}
	return "atualizado(s)"
}

// loadTour resolves the :id path parameter to a tour or an apiError.
func (a *App) loadTour(c *gin.Context) (*Tour, error) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		return nil, &apiError{Status: http.StatusBadRequest, Code: "invalid_id", Message: "ID inválido"}
	}
	tour, err := a.getTourByID(c.Request.Context(), id)
	if err != nil {
		a.log.Error("failed to load tour", "id", id, "err", err)
		return nil, err
	}
	if tour == nil {
		return nil, &apiError{Status: http.StatusNotFound, Code: "tour_not_found", Message: "Tour não encontrado"}
	}
	return tour, nil
}
