package main

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) publicToursHandler(c *gin.Context) {
	tours, err := a.listTours(c.Request.Context(), true)
	if err != nil {
		a.log.Error("failed to list public tours", "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, tours)
}

func (a *App) searchToursHandler(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if len([]rune(query)) < searchMinQueryChars {
		c.JSON(http.StatusOK, []Tour{})
		return
	}

	limit := searchDefaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > searchMaxLimit {
		limit = searchMaxLimit
	}

	term := strings.ToLower(query)
	tours, err := a.searchTours(c.Request.Context(), term, limit)
	if err != nil {
		a.log.Error("search failed", "q", term, "err", err)
		writeAPIError(c, err)
		return
	}

	sortToursByRelevance(tours, term)
	c.JSON(http.StatusOK, tours)
}

// sortToursByRelevance re-orders an already filtered result page: exact name
// substring matches first, then featured, then promoted, then alphabetical.
func sortToursByRelevance(tours []Tour, term string) {
	sort.SliceStable(tours, func(i, j int) bool {
		left, right := tours[i], tours[j]

		leftName := strings.Contains(strings.ToLower(left.Name), term)
		rightName := strings.Contains(strings.ToLower(right.Name), term)
		if leftName != rightName {
			return leftName
		}
		if left.IsFeatured != right.IsFeatured {
			return left.IsFeatured
		}
		if left.IsPromotion != right.IsPromotion {
			return left.IsPromotion
		}
		return left.Name < right.Name
	})
}
