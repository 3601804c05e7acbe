package api

import (
	"time"

	"github.com/google/uuid"
)

type ReleaseAppointmentRequest struct {
	ReleaseDate     string `json:"release_date"` // 2006-01-02
	PaymentReceived bool   `json:"payment_received"`
	AdvancePayment  bool   `json:"advance_payment"`
	RequestedBy     string `json:"requested_by"`
}

type ReleaseMonthRequest struct {
	PatientID          string `json:"patient_id"`
	ProfessionalID     string `json:"professional_id"`
	ServiceID          string `json:"service_id"`
	Month              string `json:"month"`        // 2006-01
	ReleaseDate        string `json:"release_date"` // 2006-01-02
	PaymentReceived    bool   `json:"payment_received"`
	AdvancePayment     bool   `json:"advance_payment"`
	RegisterReceivable bool   `json:"register_receivable"`
	RequestedBy        string `json:"requested_by"`
}

type ConflictCheckRequest struct {
	AppointmentID  *string   `json:"appointment_id,omitempty"`
	PatientID      string    `json:"patient_id"`
	ProfessionalID string    `json:"professional_id"`
	ResourceID     *string   `json:"resource_id,omitempty"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
}

type ReceivablePayload struct {
	Description    string  `json:"description"`
	Amount         string  `json:"amount"`
	CategoryID     string  `json:"category_id"`
	PatientID      *string `json:"patient_id,omitempty"`
	InsurerID      *string `json:"insurer_id,omitempty"`
	BankAccountID  *string `json:"bank_account_id,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
	IssuedOn       string  `json:"issued_on"` // 2006-01-02
	DueOn          string  `json:"due_on"`    // 2006-01-02
	Notes          *string `json:"notes,omitempty"`
}

type CloseOutRequest struct {
	AppointmentIDs []string          `json:"appointment_ids"`
	Receivable     ReceivablePayload `json:"receivable"`
	RequestedBy    string            `json:"requested_by"`
}

type PaymentNotificationsRequest struct {
	AppointmentIDs []string `json:"appointment_ids"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	ProfessionalID  uuid.UUID  `json:"professional_id"`
	ServiceID       uuid.UUID  `json:"service_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	Status          string     `json:"status"`
	PaymentRecorded bool       `json:"payment_recorded"`
	ReleasedOn      *time.Time `json:"released_on,omitempty"`
	PaymentNotified bool       `json:"payment_notified"`
}

type ReleaseMonthResponse struct {
	Released []AppointmentResponse `json:"released"`
	Count    int                   `json:"count"`
}

type SeriesResponse struct {
	SeriesCount          int  `json:"series_count"`
	FutureCount          int  `json:"future_count"`
	WholeSeriesAvailable bool `json:"whole_series_available"`
}

type ReceivableResponse struct {
	ID            uuid.UUID  `json:"id"`
	Description   string     `json:"description"`
	NetAmount     string     `json:"net_amount"`
	SettledAmount string     `json:"settled_amount"`
	Status        string     `json:"status"`
	IssuedOn      time.Time  `json:"issued_on"`
	DueOn         time.Time  `json:"due_on"`
	SettledOn     *time.Time `json:"settled_on,omitempty"`
}

type LedgerLinkResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	ReceivableID  *uuid.UUID `json:"receivable_id,omitempty"`
	PayableID     *uuid.UUID `json:"payable_id,omitempty"`
}

type CloseOutResponse struct {
	Receivable   ReceivableResponse    `json:"receivable"`
	Appointments []AppointmentResponse `json:"appointments"`
	Links        []LedgerLinkResponse  `json:"links"`
}

type PaymentNotificationsResponse struct {
	Notified int `json:"notified"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
