package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Tour struct {
	ID               string   `json:"id"`
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	ShortDescription string   `json:"short_description"`
	Price            float64  `json:"price"`
	Duration         float64  `json:"duration"`
	Category         string   `json:"category"`
	ImageURL         *string  `json:"image_url"`
	IsFeatured       bool     `json:"is_featured"`
	IsPromotion      bool     `json:"is_promotion"`
	PromotionPrice   *float64 `json:"promotion_price"`
	IsActive         bool     `json:"is_active"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

const tourSelect = `
	SELECT
		id,
		slug,
		name,
		description,
		short_description,
		price,
		duration,
		category,
		image_url,
		is_featured,
		is_promotion,
		promotion_price,
		is_active,
		created_at,
		updated_at
	FROM tours
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(scanner rowScanner) (Tour, error) {
	var tour Tour
	var imageURL sql.NullString
	var promotionPrice sql.NullFloat64
	var createdAt time.Time
	var updatedAt time.Time
	if err := scanner.Scan(
		&tour.ID,
		&tour.Slug,
		&tour.Name,
		&tour.Description,
		&tour.ShortDescription,
		&tour.Price,
		&tour.Duration,
		&tour.Category,
		&imageURL,
		&tour.IsFeatured,
		&tour.IsPromotion,
		&promotionPrice,
		&tour.IsActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Tour{}, err
	}
	if imageURL.Valid {
		tour.ImageURL = &imageURL.String
	}
	if promotionPrice.Valid {
		tour.PromotionPrice = &promotionPrice.Float64
	}
	tour.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	tour.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return tour, nil
}

func (a *App) storeListTours(ctx context.Context, activeOnly bool) ([]Tour, error) {
	query := tourSelect
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := a.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := make([]Tour, 0)
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}
	return tours, rows.Err()
}

func (a *App) storeGetTourByID(ctx context.Context, id string) (*Tour, error) {
	rows, err := a.db.QueryContext(ctx, tourSelect+` WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		return &tour, nil
	}
	return nil, rows.Err()
}

func (a *App) storeGetTourBySlug(ctx context.Context, slug string) (*Tour, error) {
	rows, err := a.db.QueryContext(ctx, tourSelect+` WHERE slug = $1 LIMIT 1`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		return &tour, nil
	}
	return nil, rows.Err()
}

func (a *App) storeCreateTour(ctx context.Context, tour Tour) (*Tour, error) {
	var id string
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO tours (
			slug, name, description, short_description, price, duration,
			category, image_url, is_featured, is_promotion, promotion_price, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`,
		tour.Slug,
		tour.Name,
		tour.Description,
		tour.ShortDescription,
		tour.Price,
		tour.Duration,
		tour.Category,
		tour.ImageURL,
		tour.IsFeatured,
		tour.IsPromotion,
		tour.PromotionPrice,
		tour.IsActive,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return a.storeGetTourByID(ctx, id)
}

func (a *App) storeUpdateTour(ctx context.Context, tour Tour) (*Tour, error) {
	result, err := a.db.ExecContext(ctx, `
		UPDATE tours
		SET
			slug = $1,
			name = $2,
			description = $3,
			short_description = $4,
			price = $5,
			duration = $6,
			category = $7,
			image_url = $8,
			is_featured = $9,
			is_promotion = $10,
			promotion_price = $11,
			is_active = $12,
			updated_at = NOW()
		WHERE id = $13
	`,
		tour.Slug,
		tour.Name,
		tour.Description,
		tour.ShortDescription,
		tour.Price,
		tour.Duration,
		tour.Category,
		tour.ImageURL,
		tour.IsFeatured,
		tour.IsPromotion,
		tour.PromotionPrice,
		tour.IsActive,
		tour.ID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return a.storeGetTourByID(ctx, tour.ID)
}

func (a *App) storeDeleteTour(ctx context.Context, id string) error {
	_, err := a.db.ExecContext(ctx, `DELETE FROM tours WHERE id = $1`, id)
	return err
}

func (a *App) storeTourHasBookings(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE tour_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (a *App) storeAnyTourHasBookings(ctx context.Context, ids []string) (bool, error) {
	if len(ids) == 0 {
		return false, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		"SELECT EXISTS(SELECT 1 FROM bookings WHERE tour_id IN (%s))",
		strings.Join(placeholders, ","),
	)
	var exists bool
	err := a.db.QueryRowContext(ctx, query, args...).Scan(&exists)
	return exists, err
}

// storeBulkUpdateTours applies one flag change to every tour in ids and
// returns the number of rows touched. The action must already be validated.
func (a *App) storeBulkUpdateTours(ctx context.Context, action string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var set string
	switch action {
	case "activate":
		set = "is_active = TRUE"
	case "deactivate":
		set = "is_active = FALSE"
	case "feature":
		set = "is_featured = TRUE"
	case "unfeature":
		set = "is_featured = FALSE"
	case "promote":
		set = "is_promotion = TRUE"
	case "unpromote":
		set = "is_promotion = FALSE, promotion_price = NULL"
	default:
		return 0, fmt.Errorf("unsupported bulk action: %s", action)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf(
		"UPDATE tours SET %s, updated_at = NOW() WHERE id IN (%s)",
		set,
		strings.Join(placeholders, ","),
	)
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (a *App) storeBulkDeleteTours(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := fmt.Sprintf("DELETE FROM tours WHERE id IN (%s)", strings.Join(placeholders, ","))
	result, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// storeSearchTours matches the term case-insensitively across the tour text
// fields, active tours only, featured rows first. The relevance re-sort on the
// small result page happens in the handler.
func (a *App) storeSearchTours(ctx context.Context, term string, limit int) ([]Tour, error) {
	pattern := "%" + term + "%"
	rows, err := a.db.QueryContext(ctx, tourSelect+`
		WHERE is_active = TRUE
		  AND (name ILIKE $1 OR category ILIKE $1 OR description ILIKE $1 OR short_description ILIKE $1)
		ORDER BY is_featured DESC, name ASC
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tours := make([]Tour, 0)
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, tour)
	}
	return tours, rows.Err()
}
