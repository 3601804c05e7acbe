package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medagenda/clinic-scheduling/internal/billing"
	"github.com/medagenda/clinic-scheduling/internal/faults"
	redisclient "github.com/medagenda/clinic-scheduling/internal/redis"
	"github.com/medagenda/clinic-scheduling/internal/scheduling"
)

// SchedulingService is the slice of the scheduling workflows the HTTP layer
// exposes.
type SchedulingService interface {
	ReleaseOne(ctx context.Context, in scheduling.ReleaseOneInput) (*scheduling.Appointment, error)
	ReleaseMonth(ctx context.Context, in scheduling.ReleaseMonthInput) (*scheduling.ReleaseMonthResult, error)
	SeriesForDeletion(ctx context.Context, appointmentID uuid.UUID) (*scheduling.SeriesInfo, error)
	CheckConflicts(ctx context.Context, c scheduling.Candidate) error
	MarkPaymentNotified(ctx context.Context, ids []uuid.UUID) (int, error)
}

// BillingService is the close-out entry point.
type BillingService interface {
	CloseOut(ctx context.Context, in billing.CloseOutInput) (*billing.CloseOutResult, error)
}

func releaseAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req ReleaseAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		releaseDate, err := parseDate(req.ReleaseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_release_date", "release_date must be YYYY-MM-DD")
			return
		}

		appt, err := svc.ReleaseOne(r.Context(), scheduling.ReleaseOneInput{
			AppointmentID:   id,
			ReleaseDate:     releaseDate,
			PaymentReceived: req.PaymentReceived,
			AdvancePayment:  req.AdvancePayment,
			RequestedBy:     req.RequestedBy,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func releaseMonthHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReleaseMonthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		month, err := scheduling.ParseYearMonth(req.Month)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_month", "month must be YYYY-MM")
			return
		}
		releaseDate, err := parseDate(req.ReleaseDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_release_date", "release_date must be YYYY-MM-DD")
			return
		}

		result, err := svc.ReleaseMonth(r.Context(), scheduling.ReleaseMonthInput{
			PatientID:          patientID,
			ProfessionalID:     professionalID,
			ServiceID:          serviceID,
			Month:              month,
			ReleaseDate:        releaseDate,
			PaymentReceived:    req.PaymentReceived,
			AdvancePayment:     req.AdvancePayment,
			RegisterReceivable: req.RegisterReceivable,
			RequestedBy:        req.RequestedBy,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := ReleaseMonthResponse{Count: result.Count}
		for _, a := range result.Released {
			resp.Released = append(resp.Released, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func seriesHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		info, err := svc.SeriesForDeletion(r.Context(), id)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SeriesResponse{
			SeriesCount:          info.SeriesCount,
			FutureCount:          info.FutureCount,
			WholeSeriesAvailable: info.WholeSeriesAvailable,
		})
	}
}

func conflictCheckHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConflictCheckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		professionalID, err := uuid.Parse(req.ProfessionalID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_professional_id", "professional_id must be a valid UUID")
			return
		}

		candidate := scheduling.Candidate{
			PatientID:      patientID,
			ProfessionalID: professionalID,
			Start:          req.Start,
			End:            req.End,
		}
		if req.AppointmentID != nil {
			id, err := uuid.Parse(*req.AppointmentID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
				return
			}
			candidate.ID = &id
		}
		if req.ResourceID != nil {
			id, err := uuid.Parse(*req.ResourceID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
				return
			}
			candidate.ResourceID = &id
		}

		if err := svc.CheckConflicts(r.Context(), candidate); err != nil {
			handleDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func closeOutHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CloseOutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.AppointmentIDs))
		for _, raw := range req.AppointmentIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		input, err := toCloseOutInput(ids, req)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_receivable", err.Error())
			return
		}

		result, err := svc.CloseOut(r.Context(), input)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		resp := CloseOutResponse{
			Receivable: ReceivableResponse{
				ID:            result.Receivable.ID,
				Description:   result.Receivable.Description,
				NetAmount:     result.Receivable.NetAmount.StringFixed(2),
				SettledAmount: result.Receivable.SettledAmount.StringFixed(2),
				Status:        string(result.Receivable.Status),
				IssuedOn:      result.Receivable.IssuedOn,
				DueOn:         result.Receivable.DueOn,
				SettledOn:     result.Receivable.SettledOn,
			},
		}
		for _, a := range result.Appointments {
			resp.Appointments = append(resp.Appointments, toAppointmentResponse(a))
		}
		for _, l := range result.Links {
			resp.Links = append(resp.Links, LedgerLinkResponse{
				ID:            l.ID,
				AppointmentID: l.AppointmentID,
				ReceivableID:  l.ReceivableID,
				PayableID:     l.PayableID,
			})
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func paymentNotificationsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentNotificationsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.AppointmentIDs))
		for _, raw := range req.AppointmentIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		count, err := svc.MarkPaymentNotified(r.Context(), ids)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PaymentNotificationsResponse{Notified: count})
	}
}

func toCloseOutInput(ids []uuid.UUID, req CloseOutRequest) (billing.CloseOutInput, error) {
	amount, err := decimal.NewFromString(req.Receivable.Amount)
	if err != nil {
		return billing.CloseOutInput{}, errors.New("amount must be a decimal number")
	}
	categoryID, err := uuid.Parse(req.Receivable.CategoryID)
	if err != nil {
		return billing.CloseOutInput{}, errors.New("category_id must be a valid UUID")
	}
	issuedOn, err := parseDate(req.Receivable.IssuedOn)
	if err != nil {
		return billing.CloseOutInput{}, errors.New("issued_on must be YYYY-MM-DD")
	}
	dueOn, err := parseDate(req.Receivable.DueOn)
	if err != nil {
		return billing.CloseOutInput{}, errors.New("due_on must be YYYY-MM-DD")
	}

	input := billing.CloseOutInput{
		AppointmentIDs: ids,
		Receivable: billing.ReceivableInput{
			Description:    req.Receivable.Description,
			Amount:         amount,
			CategoryID:     categoryID,
			DocumentNumber: req.Receivable.DocumentNumber,
			IssuedOn:       issuedOn,
			DueOn:          dueOn,
			Notes:          req.Receivable.Notes,
		},
		RequestedBy: req.RequestedBy,
	}

	if req.Receivable.PatientID != nil {
		id, err := uuid.Parse(*req.Receivable.PatientID)
		if err != nil {
			return billing.CloseOutInput{}, errors.New("patient_id must be a valid UUID")
		}
		input.Receivable.PatientID = &id
	}
	if req.Receivable.InsurerID != nil {
		id, err := uuid.Parse(*req.Receivable.InsurerID)
		if err != nil {
			return billing.CloseOutInput{}, errors.New("insurer_id must be a valid UUID")
		}
		input.Receivable.InsurerID = &id
	}
	if req.Receivable.BankAccountID != nil {
		id, err := uuid.Parse(*req.Receivable.BankAccountID)
		if err != nil {
			return billing.CloseOutInput{}, errors.New("bank_account_id must be a valid UUID")
		}
		input.Receivable.BankAccountID = &id
	}

	return input, nil
}

func toAppointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		ProfessionalID:  a.ProfessionalID,
		ServiceID:       a.ServiceID,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          string(a.Status),
		PaymentRecorded: a.PaymentRecorded,
		ReleasedOn:      a.ReleasedOn,
		PaymentNotified: a.PaymentNotified,
	}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// handleDomainError maps error kinds to HTTP statuses. Conflict classes get
// distinct codes so the frontend can show the right message.
func handleDomainError(w http.ResponseWriter, err error) {
	var bookingConflict *scheduling.BookingConflictError
	if errors.As(err, &bookingConflict) {
		writeError(w, http.StatusConflict, string(bookingConflict.Class)+"_conflict", bookingConflict.Error())
		return
	}

	var alreadyLinked *billing.AlreadyLinkedError
	if errors.As(err, &alreadyLinked) {
		writeError(w, http.StatusConflict, "already_linked", alreadyLinked.Error())
		return
	}

	switch {
	case errors.Is(err, faults.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, faults.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, faults.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "operation_in_progress", "another operation is running on these appointments, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
