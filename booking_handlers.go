package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chofertours/api/mailer"
)

const (
	bookingReferencePrefix  = "BK"
	transferReferencePrefix = "TF"

	walletPassTypeIdentifier = "pass.com.choferemlondres.tour"
	walletPassOrganization   = "Chofer em Londres"
)

type bookingPayload struct {
	TourID        string  `json:"tour_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	TourDate      string  `json:"tour_date"`
	Passengers    int     `json:"passengers"`
	Hotel         *string `json:"hotel"`
	Flight        *string `json:"flight"`
}

type transferPayload struct {
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	Pickup        string  `json:"pickup"`
	Dropoff       string  `json:"dropoff"`
	TransferDate  string  `json:"transfer_date"`
	Passengers    int     `json:"passengers"`
	FlightNumber  *string `json:"flight_number"`
	Amount        float64 `json:"amount"`
}

// newCheckoutReference builds a short public reference like BK-9F3A2C1D.
func newCheckoutReference(prefix string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(raw[:8]))
}

func parseCheckoutDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, true
	}
	if parsed, err := time.Parse("2006-01-02", value); err == nil {
		return parsed, true
	}
	return time.Time{}, false
}

func validBookingEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

func (a *App) createBookingHandler(c *gin.Context) {
	var payload bookingPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "Corpo da requisição inválido"})
		return
	}

	var errs []fieldError
	if _, err := uuid.Parse(strings.TrimSpace(payload.TourID)); err != nil {
		errs = append(errs, fieldError{Field: "tour_id", Message: "Tour é obrigatório"})
	}
	if strings.TrimSpace(payload.CustomerName) == "" {
		errs = append(errs, fieldError{Field: "customer_name", Message: "Nome é obrigatório"})
	}
	if !validBookingEmail(strings.TrimSpace(payload.CustomerEmail)) {
		errs = append(errs, fieldError{Field: "customer_email", Message: "Email inválido"})
	}
	tourDate, ok := parseCheckoutDate(payload.TourDate)
	if !ok {
		errs = append(errs, fieldError{Field: "tour_date", Message: "Data inválida"})
	}
	if payload.Passengers < 1 {
		errs = append(errs, fieldError{Field: "passengers", Message: "Número de passageiros deve ser pelo menos 1"})
	}
	if len(errs) > 0 {
		writeValidationErrors(c, errs)
		return
	}

	tour, err := a.getTourByID(c.Request.Context(), strings.TrimSpace(payload.TourID))
	if err != nil {
		a.log.Error("failed to load tour for booking", "tour_id", payload.TourID, "err", err)
		writeAPIError(c, err)
		return
	}
	if tour == nil || !tour.IsActive {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Tour não encontrado"})
		return
	}

	unitPrice := tour.Price
	if tour.IsPromotion && tour.PromotionPrice != nil {
		unitPrice = *tour.PromotionPrice
	}

	booking := Booking{
		Reference:     newCheckoutReference(bookingReferencePrefix),
		TourID:        tour.ID,
		CustomerName:  strings.TrimSpace(payload.CustomerName),
		CustomerEmail: strings.TrimSpace(payload.CustomerEmail),
		TourDate:      tourDate.UTC().Format(time.RFC3339),
		Passengers:    payload.Passengers,
		Hotel:         normalizeOptionalString(payload.Hotel),
		Flight:        normalizeOptionalString(payload.Flight),
		Amount:        unitPrice * float64(payload.Passengers),
		Status:        "pending",
	}

	created, err := a.createBooking(c.Request.Context(), booking)
	if err != nil {
		a.log.Error("failed to create booking", "tour_id", tour.ID, "err", err)
		writeAPIError(c, err)
		return
	}

	a.sendBookingConfirmation(*created, tour.Name)
	c.JSON(http.StatusCreated, created)
}

func (a *App) createTransferHandler(c *gin.Context) {
	var payload transferPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_body", Message: "Corpo da requisição inválido"})
		return
	}

	var errs []fieldError
	if strings.TrimSpace(payload.CustomerName) == "" {
		errs = append(errs, fieldError{Field: "customer_name", Message: "Nome é obrigatório"})
	}
	if !validBookingEmail(strings.TrimSpace(payload.CustomerEmail)) {
		errs = append(errs, fieldError{Field: "customer_email", Message: "Email inválido"})
	}
	if strings.TrimSpace(payload.Pickup) == "" {
		errs = append(errs, fieldError{Field: "pickup", Message: "Local de partida é obrigatório"})
	}
	if strings.TrimSpace(payload.Dropoff) == "" {
		errs = append(errs, fieldError{Field: "dropoff", Message: "Local de destino é obrigatório"})
	}
	transferDate, ok := parseCheckoutDate(payload.TransferDate)
	if !ok {
		errs = append(errs, fieldError{Field: "transfer_date", Message: "Data inválida"})
	}
	if payload.Passengers < 1 {
		errs = append(errs, fieldError{Field: "passengers", Message: "Número de passageiros deve ser pelo menos 1"})
	}
	if payload.Amount <= 0 {
		errs = append(errs, fieldError{Field: "amount", Message: "Valor deve ser maior que zero"})
	}
	if len(errs) > 0 {
		writeValidationErrors(c, errs)
		return
	}

	transfer := Transfer{
		Reference:     newCheckoutReference(transferReferencePrefix),
		CustomerName:  strings.TrimSpace(payload.CustomerName),
		CustomerEmail: strings.TrimSpace(payload.CustomerEmail),
		Pickup:        strings.TrimSpace(payload.Pickup),
		Dropoff:       strings.TrimSpace(payload.Dropoff),
		TransferDate:  transferDate.UTC().Format(time.RFC3339),
		Passengers:    payload.Passengers,
		FlightNumber:  normalizeOptionalString(payload.FlightNumber),
		Amount:        payload.Amount,
		Status:        "pending",
	}

	created, err := a.createTransfer(c.Request.Context(), transfer)
	if err != nil {
		a.log.Error("failed to create transfer", "err", err)
		writeAPIError(c, err)
		return
	}

	a.sendTransferConfirmation(*created)
	c.JSON(http.StatusCreated, created)
}

func (a *App) adminListBookingsHandler(c *gin.Context) {
	status := strings.TrimSpace(c.Query("status"))
	if status != "" && !containsString(bookingStatuses, status) {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_status", Message: "Status inválido"})
		return
	}

	bookings, err := a.listBookings(c.Request.Context())
	if err != nil {
		a.log.Error("failed to list bookings", "err", err)
		writeAPIError(c, err)
		return
	}
	if status != "" {
		filtered := make([]Booking, 0, len(bookings))
		for _, booking := range bookings {
			if booking.Status == status {
				filtered = append(filtered, booking)
			}
		}
		bookings = filtered
	}
	c.JSON(http.StatusOK, bookings)
}

func (a *App) adminListTransfersHandler(c *gin.Context) {
	transfers, err := a.listTransfers(c.Request.Context())
	if err != nil {
		a.log.Error("failed to list transfers", "err", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// walletPass is the unsigned pass.json payload. A production rollout would
// sign it with an Apple certificate and bundle it into a .pkpass archive.
type walletPass struct {
	FormatVersion       int               `json:"formatVersion"`
	PassTypeIdentifier  string            `json:"passTypeIdentifier"`
	SerialNumber        string            `json:"serialNumber"`
	OrganizationName    string            `json:"organizationName"`
	Description         string            `json:"description"`
	LogoText            string            `json:"logoText"`
	ForegroundColor     string            `json:"foregroundColor"`
	BackgroundColor     string            `json:"backgroundColor"`
	EventTicket         walletPassTicket  `json:"eventTicket"`
	Barcodes            []walletBarcode   `json:"barcodes"`
	RelevantDate        string            `json:"relevantDate"`
	WebServiceURL       string            `json:"webServiceURL"`
	AuthenticationToken string            `json:"authenticationToken"`
}

type walletPassTicket struct {
	PrimaryFields   []walletPassField `json:"primaryFields"`
	SecondaryFields []walletPassField `json:"secondaryFields"`
	AuxiliaryFields []walletPassField `json:"auxiliaryFields"`
	BackFields      []walletPassField `json:"backFields"`
}

type walletPassField struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type walletBarcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
}

func (a *App) bookingWalletPassHandler(c *gin.Context) {
	reference := strings.TrimSpace(c.Param("reference"))
	booking, err := a.bookingByRef(c.Request.Context(), reference)
	if err != nil {
		a.log.Error("failed to load booking for pass", "reference", reference, "err", err)
		writeAPIError(c, err)
		return
	}
	if booking == nil {
		writeAPIError(c, &apiError{Status: http.StatusNotFound, Code: "not_found", Message: "Reserva não encontrada"})
		return
	}

	tourName := "Tour"
	if tour, err := a.getTourByID(c.Request.Context(), booking.TourID); err == nil && tour != nil {
		tourName = tour.Name
	}

	tourDate, _ := time.Parse(time.RFC3339, booking.TourDate)
	serial := "tour-" + booking.Reference

	hotel := "A definir"
	if booking.Hotel != nil {
		hotel = *booking.Hotel
	}
	flight := "Não informado"
	if booking.Flight != nil {
		flight = *booking.Flight
	}

	pass := walletPass{
		FormatVersion:      1,
		PassTypeIdentifier: walletPassTypeIdentifier,
		SerialNumber:       serial,
		OrganizationName:   walletPassOrganization,
		Description:        "Tour: " + tourName,
		LogoText:           walletPassOrganization,
		ForegroundColor:    "rgb(255, 255, 255)",
		BackgroundColor:    "rgb(59, 130, 246)",
		EventTicket: walletPassTicket{
			PrimaryFields: []walletPassField{
				{Key: "event", Label: "TOUR", Value: tourName},
			},
			SecondaryFields: []walletPassField{
				{Key: "date", Label: "DATA", Value: tourDate.Format("02/01/2006")},
				{Key: "time", Label: "HORÁRIO", Value: tourDate.Format("15:04")},
			},
			AuxiliaryFields: []walletPassField{
				{Key: "passengers", Label: "PASSAGEIROS", Value: fmt.Sprintf("%d", booking.Passengers)},
				{Key: "location", Label: "LOCAL", Value: hotel},
			},
			BackFields: []walletPassField{
				{Key: "customer", Label: "Cliente", Value: booking.CustomerName},
				{Key: "email", Label: "Email", Value: booking.CustomerEmail},
				{Key: "flight", Label: "Voo", Value: flight},
				{Key: "reference", Label: "Referência", Value: booking.Reference},
			},
		},
		Barcodes: []walletBarcode{
			{Message: "TOUR-" + booking.Reference, Format: "PKBarcodeFormatQR", MessageEncoding: "iso-8859-1"},
		},
		RelevantDate:        tourDate.UTC().Format(time.RFC3339),
		WebServiceURL:       a.cfg.PublicBaseURL,
		AuthenticationToken: "auth-" + serial,
	}

	data, err := json.MarshalIndent(pass, "", "  ")
	if err != nil {
		writeAPIError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", serial+".pkpass"))
	c.Data(http.StatusOK, "application/vnd.apple.pkpass", data)
}

func (a *App) sendBookingConfirmation(booking Booking, tourName string) {
	tourDate, _ := time.Parse(time.RFC3339, booking.TourDate)
	subject := fmt.Sprintf("Reserva confirmada: %s (%s)", tourName, booking.Reference)
	text := fmt.Sprintf(
		"Olá %s,\n\nRecebemos sua reserva.\n\nTour: %s\nData: %s\nPassageiros: %d\nValor: £ %.2f\nReferência: %s\n\nChofer em Londres",
		booking.CustomerName, tourName, tourDate.Format("02/01/2006"), booking.Passengers, booking.Amount, booking.Reference,
	)
	html := fmt.Sprintf(
		"<p>Olá %s,</p><p>Recebemos sua reserva.</p><ul><li>Tour: %s</li><li>Data: %s</li><li>Passageiros: %d</li><li>Valor: £ %.2f</li><li>Referência: %s</li></ul><p>Chofer em Londres</p>",
		booking.CustomerName, tourName, tourDate.Format("02/01/2006"), booking.Passengers, booking.Amount, booking.Reference,
	)

	a.deliverConfirmation(booking.CustomerEmail, subject, html, text)
}

func (a *App) sendTransferConfirmation(transfer Transfer) {
	transferDate, _ := time.Parse(time.RFC3339, transfer.TransferDate)
	subject := fmt.Sprintf("Transfer confirmado: %s → %s (%s)", transfer.Pickup, transfer.Dropoff, transfer.Reference)
	text := fmt.Sprintf(
		"Olá %s,\n\nRecebemos sua reserva de transfer.\n\nPartida: %s\nDestino: %s\nData: %s\nPassageiros: %d\nValor: £ %.2f\nReferência: %s\n\nChofer em Londres",
		transfer.CustomerName, transfer.Pickup, transfer.Dropoff, transferDate.Format("02/01/2006"), transfer.Passengers, transfer.Amount, transfer.Reference,
	)
	html := fmt.Sprintf(
		"<p>Olá %s,</p><p>Recebemos sua reserva de transfer.</p><ul><li>Partida: %s</li><li>Destino: %s</li><li>Data: %s</li><li>Passageiros: %d</li><li>Valor: £ %.2f</li><li>Referência: %s</li></ul><p>Chofer em Londres</p>",
		transfer.CustomerName, transfer.Pickup, transfer.Dropoff, transferDate.Format("02/01/2006"), transfer.Passengers, transfer.Amount, transfer.Reference,
	)

	a.deliverConfirmation(transfer.CustomerEmail, subject, html, text)
}

// deliverConfirmation emails the customer and the operator inbox. Delivery
// failures are logged but never fail the checkout request.
func (a *App) deliverConfirmation(customerEmail, subject, html, text string) {
	if a.mailer == nil {
		return
	}

	recipients := []string{customerEmail}
	if a.cfg.BookingEmailTo != "" {
		recipients = append(recipients, a.cfg.BookingEmailTo)
	}
	for _, to := range recipients {
		receipt, err := a.mailer.Send(mailer.Message{
			To:      []string{to},
			Subject: subject,
			HTML:    html,
			Text:    text,
		})
		if err != nil {
			a.log.Error("failed to send confirmation email", "to", to, "err", err)
			continue
		}
		a.log.Info("confirmation email sent", "to", to, "message_id", receipt.MessageID)
	}
}
