package main

import (
	"context"
	"database/sql"
	"time"
)

type Booking struct {
	ID               int     `json:"id"`
	Reference        string  `json:"reference"`
	TourID           string  `json:"tour_id"`
	CustomerName     string  `json:"customer_name"`
	CustomerEmail    string  `json:"customer_email"`
	TourDate         string  `json:"tour_date"`
	Passengers       int     `json:"passengers"`
	Hotel            *string `json:"hotel,omitempty"`
	Flight           *string `json:"flight,omitempty"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type Transfer struct {
	ID               int     `json:"id"`
	Reference        string  `json:"reference"`
	CustomerName     string  `json:"customer_name"`
	CustomerEmail    string  `json:"customer_email"`
	Pickup           string  `json:"pickup"`
	Dropoff          string  `json:"dropoff"`
	TransferDate     string  `json:"transfer_date"`
	Passengers       int     `json:"passengers"`
	FlightNumber     *string `json:"flight_number,omitempty"`
	Amount           float64 `json:"amount"`
	Status           string  `json:"status"`
	PaymentReference *string `json:"payment_reference,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

const bookingSelect = `
	SELECT
		id,
		reference,
		tour_id,
		customer_name,
		customer_email,
		tour_date,
		passengers,
		hotel,
		flight,
		amount,
		status,
		payment_reference,
		created_at,
		updated_at
	FROM bookings
`

func scanBooking(scanner rowScanner) (Booking, error) {
	var booking Booking
	var tourDate time.Time
	var hotel, flight, paymentRef sql.NullString
	var createdAt, updatedAt time.Time
	if err := scanner.Scan(
		&booking.ID,
		&booking.Reference,
		&booking.TourID,
		&booking.CustomerName,
		&booking.CustomerEmail,
		&tourDate,
		&booking.Passengers,
		&hotel,
		&flight,
		&booking.Amount,
		&booking.Status,
		&paymentRef,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Booking{}, err
	}
	if hotel.Valid {
		booking.Hotel = &hotel.String
	}
	if flight.Valid {
		booking.Flight = &flight.String
	}
	if paymentRef.Valid {
		booking.PaymentReference = &paymentRef.String
	}
	booking.TourDate = tourDate.UTC().Format(time.RFC3339)
	booking.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	booking.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return booking, nil
}

func (a *App) storeCreateBooking(ctx context.Context, booking Booking) (*Booking, error) {
	var id int
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO bookings (
			reference, tour_id, customer_name, customer_email, tour_date,
			passengers, hotel, flight, amount, status, payment_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		booking.Reference,
		booking.TourID,
		booking.CustomerName,
		booking.CustomerEmail,
		booking.TourDate,
		booking.Passengers,
		booking.Hotel,
		booking.Flight,
		booking.Amount,
		booking.Status,
		booking.PaymentReference,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, bookingSelect+` WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		created, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}
	return nil, rows.Err()
}

func (a *App) storeGetBookingByReference(ctx context.Context, reference string) (*Booking, error) {
	rows, err := a.db.QueryContext(ctx, bookingSelect+` WHERE reference = $1 LIMIT 1`, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		return &booking, nil
	}
	return nil, rows.Err()
}

func (a *App) storeListBookings(ctx context.Context) ([]Booking, error) {
	rows, err := a.db.QueryContext(ctx, bookingSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

const transferSelect = `
	SELECT
		id,
		reference,
		customer_name,
		customer_email,
		pickup,
		dropoff,
		transfer_date,
		passengers,
		flight_number,
		amount,
		status,
		payment_reference,
		created_at,
		updated_at
	FROM transfers
`

func scanTransfer(scanner rowScanner) (Transfer, error) {
	var transfer Transfer
	var transferDate time.Time
	var flightNumber, paymentRef sql.NullString
	var createdAt, updatedAt time.Time
	if err := scanner.Scan(
		&transfer.ID,
		&transfer.Reference,
		&transfer.CustomerName,
		&transfer.CustomerEmail,
		&transfer.Pickup,
		&transfer.Dropoff,
		&transferDate,
		&transfer.Passengers,
		&flightNumber,
		&transfer.Amount,
		&transfer.Status,
		&paymentRef,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Transfer{}, err
	}
	if flightNumber.Valid {
		transfer.FlightNumber = &flightNumber.String
	}
	if paymentRef.Valid {
		transfer.PaymentReference = &paymentRef.String
	}
	transfer.TransferDate = transferDate.UTC().Format(time.RFC3339)
	transfer.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	transfer.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return transfer, nil
}

func (a *App) storeCreateTransfer(ctx context.Context, transfer Transfer) (*Transfer, error) {
	var id int
	err := a.db.QueryRowContext(ctx, `
		INSERT INTO transfers (
			reference, customer_name, customer_email, pickup, dropoff,
			transfer_date, passengers, flight_number, amount, status, payment_reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`,
		transfer.Reference,
		transfer.CustomerName,
		transfer.CustomerEmail,
		transfer.Pickup,
		transfer.Dropoff,
		transfer.TransferDate,
		transfer.Passengers,
		transfer.FlightNumber,
		transfer.Amount,
		transfer.Status,
		transfer.PaymentReference,
	).Scan(&id)
	if err != nil {
		return nil, err
	}

	rows, err := a.db.QueryContext(ctx, transferSelect+` WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if rows.Next() {
		created, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		return &created, nil
	}
	return nil, rows.Err()
}

func (a *App) storeListTransfers(ctx context.Context) ([]Transfer, error) {
	rows, err := a.db.QueryContext(ctx, transferSelect+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := make([]Transfer, 0)
	for rows.Next() {
		transfer, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, transfer)
	}
	return transfers, rows.Err()
}
