package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/application"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

var (
	errBadRequestBody   = errors.New("Format de requête invalide.")
	errInvalidDate      = errors.New("Date invalide, format attendu AAAA-MM-JJ.")
	errMissingToken     = errors.New("Jeton d'authentification manquant.")
	errInvalidToken     = errors.New("Jeton d'authentification invalide ou expiré.")
	errInvalidDateRange = errors.New("La date de fin doit suivre la date de début.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError answers with status. Client errors carry err's text, which is
// already localized; server errors never leak it.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if status < http.StatusInternalServerError {
			if msg := strings.TrimSpace(err.Error()); msg != "" {
				message = msg
			}
		}
		r.loggerFor(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, api.ErrorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}
	if errors.Is(err, errBadRequestBody) {
		r.writeJSON(ctx, w, http.StatusBadRequest, api.ErrorResponse{Message: errBadRequestBody.Error()})
		return
	}

	var (
		appErr      *application.ValidationError
		scheduleErr *schedule.ValidationError
	)
	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, api.ErrorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   localizedStatusMessage(http.StatusForbidden),
		})
	case errors.Is(err, application.ErrNotFound), errors.Is(err, schedule.ErrSessionNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, api.ErrorResponse{Message: localizedStatusMessage(http.StatusNotFound)})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, api.ErrorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "Un compte existe déjà avec cette adresse e-mail.",
		})
	case errors.As(err, &appErr):
		r.writeValidation(ctx, w, appErr.FieldErrors)
	case errors.As(err, &scheduleErr):
		r.writeValidation(ctx, w, scheduleErr.FieldErrors)
	case errors.Is(err, schedule.ErrStoreUnavailable):
		r.loggerFor(ctx).ErrorContext(ctx, "store unavailable", "error", err)
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, api.ErrorResponse{
			ErrorCode: "STORE_UNAVAILABLE",
			Message:   localizedStatusMessage(http.StatusServiceUnavailable),
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", application.ErrorKind(err))
		r.writeJSON(ctx, w, http.StatusInternalServerError, api.ErrorResponse{Message: localizedStatusMessage(http.StatusInternalServerError)})
	}
}

func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, api.ErrorResponse{
		ErrorCode: "VALIDATION_FAILED",
		Message:   localizedStatusMessage(http.StatusUnprocessableEntity),
		Errors:    localizeValidationErrors(fields),
	})
}

// writeBatch answers a batch creation: 201 when complete, 207 with the
// created subset on a partial failure.
func (r responder) writeBatch(ctx context.Context, w http.ResponseWriter, requested int, created []schedule.Session, err error) {
	var partial *schedule.PartialBatchFailure
	if err != nil && !errors.As(err, &partial) {
		r.handleServiceError(ctx, w, err)
		return
	}
	status := http.StatusCreated
	if partial != nil {
		status = http.StatusMultiStatus
		created = partial.Sessions
		requested = partial.Requested
		r.loggerFor(ctx).WarnContext(ctx, "batch partially created", "requested", partial.Requested, "created", partial.Created)
	}
	r.writeJSON(ctx, w, status, api.BatchResponse{
		Requested: requested,
		Created:   len(created),
		Sessions:  api.FromSessions(created),
	})
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "La requête est invalide."
	case http.StatusUnauthorized:
		return "Authentification requise."
	case http.StatusForbidden:
		return "Vous n'avez pas accès à cette ressource."
	case http.StatusNotFound:
		return "Ressource introuvable."
	case http.StatusConflict:
		return "La requête est en conflit avec l'état actuel de la ressource."
	case http.StatusUnprocessableEntity:
		return "Certains champs sont invalides."
	case http.StatusServiceUnavailable:
		return "Le stockage est momentanément indisponible, réessayez plus tard."
	default:
		return "Une erreur interne est survenue."
	}
}

func localizeValidationErrors(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}

	translated := make(map[string]string, len(fields))
	for field, msg := range fields {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "value is required":
		return "Ce champ est obligatoire."
	case "value is too small":
		return "La valeur est trop courte ou trop petite."
	case "value is too large":
		return "La valeur est trop longue ou trop grande."
	case "value is invalid":
		return "La valeur est invalide."
	case "email is required":
		return "L'adresse e-mail est obligatoire."
	case "email is invalid":
		return "L'adresse e-mail est invalide."
	case "first name is required":
		return "Le prénom est obligatoire."
	case "last name is required":
		return "Le nom est obligatoire."
	case "client is required":
		return "Le client est obligatoire."
	case "date is required":
		return "La date est obligatoire."
	case "time must be HH:MM", "start time must be HH:MM", "end time must be HH:MM":
		return "L'heure doit être au format HH:MM."
	case "weight must be greater than zero":
		return "Le poids doit être supérieur à zéro."
	case "sort must be full_name, email or created_at":
		return "Le tri doit être full_name, email ou created_at."
	case "order must be asc or desc":
		return "L'ordre doit être asc ou desc."
	case "mode is invalid":
		return "Le mode de répétition est invalide."
	case "anchor date is required":
		return "La date de départ est obligatoire."
	case "value rejected by storage":
		return "La valeur a été refusée par le stockage."
	default:
		switch {
		case strings.HasPrefix(message, "password must be at least"):
			return "Le mot de passe doit contenir au moins 8 caractères."
		case strings.HasPrefix(message, "occurrences must be between"):
			return "Le nombre de répétitions doit être compris entre 1 et 12."
		case strings.HasPrefix(message, "value must be one of "):
			return "Valeurs acceptées : " + strings.TrimPrefix(message, "value must be one of ") + "."
		}
		return message
	}
}
