package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NoticeLevel is the severity of a user-visible message.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is a transient message shown to the coach.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// NoticeFor converts an operation error into the message shown to the coach.
func NoticeFor(err error) Notice {
	var (
		partial *PartialBatchFailure
		vErr    *ValidationError
	)
	switch {
	case err == nil:
		return Notice{Level: NoticeInfo, Message: "Modifications enregistrées."}
	case errors.As(err, &partial):
		return Notice{Level: NoticeError, Message: fmt.Sprintf("Seulement %d séance(s) sur %d ont été créées.", partial.Created, partial.Requested)}
	case errors.As(err, &vErr):
		return Notice{Level: NoticeError, Message: "Saisie invalide : " + localizeFieldErrors(vErr)}
	case errors.Is(err, ErrSessionNotFound):
		return Notice{Level: NoticeError, Message: "Cette séance n'existe plus."}
	case errors.Is(err, ErrNoSelection):
		return Notice{Level: NoticeError, Message: "Aucune séance sélectionnée."}
	case errors.Is(err, ErrNoPendingDelete):
		return Notice{Level: NoticeError, Message: "Aucune suppression en attente de confirmation."}
	case errors.Is(err, ErrStoreUnavailable):
		return Notice{Level: NoticeError, Message: "Le serveur est injoignable, réessayez plus tard."}
	default:
		return Notice{Level: NoticeError, Message: "Une erreur inattendue est survenue."}
	}
}

func localizeFieldErrors(vErr *ValidationError) string {
	fields := make([]string, 0, len(vErr.FieldErrors))
	for field := range vErr.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, translateFieldMessage(vErr.FieldErrors[field]))
	}
	return strings.Join(messages, " ")
}

func translateFieldMessage(message string) string {
	switch message {
	case "mode is invalid":
		return "Le mode de répétition est invalide."
	case "anchor date is required":
		return "La date de départ est obligatoire."
	case "client is required":
		return "Le client est obligatoire."
	case "start time must be HH:MM":
		return "L'heure de début doit être au format HH:MM."
	case "end time must be HH:MM":
		return "L'heure de fin doit être au format HH:MM."
	default:
		if strings.HasPrefix(message, "occurrences must be between") {
			return "Le nombre de répétitions doit être compris entre 1 et 12."
		}
		return message
	}
}
