package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/REMSofram/plateforme-coach/internal/recurrence"
)

// Duplicator copies a session onto later dates following a recurrence policy.
type Duplicator struct {
	store  SessionStore
	view   *WeekView
	logger *slog.Logger
}

// NewDuplicator wires a duplicator. view may be nil when no local state needs folding.
func NewDuplicator(store SessionStore, view *WeekView, logger *slog.Logger) *Duplicator {
	return &Duplicator{store: store, view: view, logger: defaultLogger(logger)}
}

// ValidatePolicy checks a policy before expansion. A zero anchor is filled
// with the base session date.
func ValidatePolicy(base Session, policy RecurrencePolicy) (RecurrencePolicy, error) {
	vErr := &ValidationError{}

	if mode, err := recurrence.ParseMode(string(policy.Mode)); err != nil {
		vErr.add("mode", "mode is invalid")
	} else {
		policy.Mode = mode
	}
	if policy.Mode.Recurring() && (policy.Occurrences < recurrence.MinOccurrences || policy.Occurrences > recurrence.MaxOccurrences) {
		vErr.add("occurrences", fmt.Sprintf("occurrences must be between %d and %d", recurrence.MinOccurrences, recurrence.MaxOccurrences))
	}
	if policy.AnchorDate.IsZero() {
		policy.AnchorDate = base.Date
	}
	if policy.AnchorDate.IsZero() {
		vErr.add("anchor_date", "anchor date is required")
	}
	if base.ClientID == "" {
		vErr.add("client_id", "client is required")
	}

	if vErr.HasErrors() {
		return policy, vErr
	}
	return policy, nil
}

// Candidates expands base under policy into creation fields.
func Candidates(base Session, policy RecurrencePolicy) ([]SessionFields, error) {
	expanded, err := recurrence.Expand(recurrence.Template{
		ClientID:    base.ClientID,
		Title:       base.Title,
		Description: base.Description,
		StartTime:   base.StartTime,
		EndTime:     base.EndTime,
	}, policy)
	if err != nil {
		return nil, err
	}

	fields := make([]SessionFields, 0, len(expanded))
	for _, candidate := range expanded {
		fields = append(fields, SessionFields{
			ClientID:    candidate.ClientID,
			Title:       candidate.Title,
			Description: candidate.Description,
			Date:        candidate.Date,
			StartTime:   candidate.StartTime,
			EndTime:     candidate.EndTime,
		})
	}
	return fields, nil
}

// Duplicate validates policy, expands base, creates the candidates in one
// batch and folds whatever was created into the view.
//
// A short batch returns the created sessions together with *PartialBatchFailure.
func (d *Duplicator) Duplicate(ctx context.Context, base Session, policy RecurrencePolicy) (created []Session, err error) {
	logger := componentLogger(ctx, d.logger, "Duplicator", "Duplicate",
		"session_id", base.ID,
		"mode", string(policy.Mode),
		"occurrences", policy.Occurrences,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to duplicate session", "error", err, "error_kind", ErrorKind(err), "created", len(created))
			return
		}
		logger.InfoContext(ctx, "session duplicated", "created", len(created))
	}()

	policy, err = ValidatePolicy(base, policy)
	if err != nil {
		return nil, err
	}

	candidates, err := Candidates(base, policy)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []Session{}, nil
	}

	created, err = d.store.CreateSessionsBatch(ctx, candidates)
	var partial *PartialBatchFailure
	if errors.As(err, &partial) && len(created) == 0 {
		created = partial.Sessions
	}
	if err == nil && len(created) != len(candidates) {
		err = &PartialBatchFailure{Requested: len(candidates), Created: len(created), Sessions: created}
	}

	if d.view != nil {
		for _, session := range created {
			d.view.ApplyLocalMutation(session)
		}
	}
	return created, err
}
