package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/REMSofram/plateforme-coach/internal/api"
	"github.com/REMSofram/plateforme-coach/internal/calendar"
	httptransport "github.com/REMSofram/plateforme-coach/internal/http"
	"github.com/REMSofram/plateforme-coach/internal/recurrence"
	"github.com/REMSofram/plateforme-coach/internal/schedule"
)

const devTokenTTL = 12 * time.Hour

var (
	errNoClient = errors.New("aucun client ouvert, utilisez : use <client-id>")
	errUsage    = errors.New("commande invalide, tapez help")
	errQuit     = errors.New("quit")
)

var weekdayNames = [...]string{"dim.", "lun.", "mar.", "mer.", "jeu.", "ven.", "sam."}

const helpText = `Commandes :
  clients                     liste des clients
  use <client-id>             ouvre la semaine d'un client
  week | next | prev | refresh
  add <date>                  ajoute une séance (AAAA-MM-JJ)
  move <id> <de> <vers>       déplace une séance d'un jour à l'autre
  select <id>                 sélectionne ou désélectionne une séance
  title|desc|start|end <val>  modifie la séance sélectionnée
  close                       ferme le panneau
  delete, confirm, cancel     suppression avec confirmation
  dup <mode> <n> [ancre]      duplique (none, weekly, biweekly, monthly)
  token <coach-id>            génère un jeton de développement
  quit`

type clientLister interface {
	ListClients(ctx context.Context) ([]api.Client, error)
}

// console maps typed commands to Board operations and prints the week after
// each of them.
type console struct {
	store   schedule.SessionStore
	clients clientLister
	out     io.Writer
	today   calendar.Date
	logger  *slog.Logger

	secret  string
	onToken func(string)

	board *schedule.Board
}

func newConsole(store schedule.SessionStore, clients clientLister, out io.Writer, today calendar.Date, logger *slog.Logger) *console {
	if logger == nil {
		logger = slog.Default()
	}
	return &console{store: store, clients: clients, out: out, today: today, logger: logger}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	c.printf("coachctl, tapez help pour l'aide.\n> ")
	for scanner.Scan() {
		err := c.execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		c.flush(err)
		if ctx.Err() != nil {
			return nil
		}
		c.printf("> ")
	}
	return scanner.Err()
}

// flush prints the queued board notices, or err when the board queued none.
func (c *console) flush(err error) {
	var notices []schedule.Notice
	if c.board != nil {
		notices = c.board.DrainNotices()
	}
	for _, notice := range notices {
		c.printf("[%s] %s\n", notice.Level, notice.Message)
	}
	if err != nil && len(notices) == 0 {
		c.printf("[error] %v\n", err)
	}
}

func (c *console) execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))

	switch cmd {
	case "help", "?":
		c.printf("%s\n", helpText)
		return nil
	case "quit", "exit":
		return errQuit
	case "clients":
		return c.listClients(ctx)
	case "token":
		if len(args) != 1 {
			return errUsage
		}
		return c.mintToken(args[0])
	case "use":
		if len(args) != 1 {
			return errUsage
		}
		c.board = schedule.NewBoard(c.store, args[0], c.today, c.logger)
		if err := c.board.Refresh(ctx); err != nil {
			return err
		}
		c.render()
		return nil
	}

	if c.board == nil {
		return errNoClient
	}

	var err error
	switch cmd {
	case "week":
	case "refresh":
		err = c.board.Refresh(ctx)
	case "next":
		err = c.board.NextWeek(ctx)
	case "prev":
		err = c.board.PreviousWeek(ctx)
	case "add":
		var day calendar.Date
		if day, err = singleDate(args); err == nil {
			_, err = c.board.AddSession(ctx, day)
		}
	case "move":
		err = c.move(ctx, args)
	case "select":
		if len(args) != 1 {
			return errUsage
		}
		_, err = c.board.Click(args[0])
	case "title":
		err = c.board.EditTitle(ctx, rest)
	case "desc":
		err = c.board.EditDescription(ctx, rest)
	case "start":
		err = c.board.EditStartTime(ctx, rest)
	case "end":
		err = c.board.EditEndTime(ctx, rest)
	case "close":
		c.board.Close()
	case "delete":
		err = c.board.RequestDelete()
	case "confirm":
		err = c.board.ConfirmDelete(ctx)
	case "cancel":
		c.board.CancelDelete()
	case "dup":
		var policy schedule.RecurrencePolicy
		if policy, err = parsePolicy(args); err == nil {
			_, err = c.board.Duplicate(ctx, policy)
		}
	default:
		return errUsage
	}
	c.render()
	return err
}

func (c *console) move(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	from, err := calendar.ParseDate(args[1])
	if err != nil {
		return err
	}
	to, err := calendar.ParseDate(args[2])
	if err != nil {
		return err
	}
	_, err = c.board.Move(ctx, schedule.DragEvent{SourceDay: from, SessionID: args[0], DestinationDay: to})
	return err
}

func (c *console) listClients(ctx context.Context) error {
	if c.clients == nil {
		return errors.New("liste des clients indisponible")
	}
	clients, err := c.clients.ListClients(ctx)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		c.printf("Aucun client.\n")
	}
	for _, client := range clients {
		weight := "-"
		if client.CurrentWeightKg != nil {
			weight = strconv.FormatFloat(*client.CurrentWeightKg, 'f', 1, 64) + " kg"
		}
		c.printf("%s  %-30s %-30s %s\n", client.ID, client.FullName, client.Email, weight)
	}
	return nil
}

func (c *console) mintToken(coachID string) error {
	if c.secret == "" {
		return errors.New("aucun secret configuré (-secret ou COACH_JWT_SECRET)")
	}
	token, err := httptransport.NewTokenAuthority(c.secret, nil).Issue(coachID, devTokenTTL)
	if err != nil {
		return err
	}
	if c.onToken != nil {
		c.onToken(token)
	}
	c.printf("%s\n", token)
	return nil
}

func (c *console) render() {
	view := c.board.View()
	window := view.Window()
	selected, hasSelection := c.board.Panel().Selected()

	c.printf("Semaine du %s au %s\n", window.Start, window.End())
	if view.Loading() {
		c.printf("  chargement...\n")
	}
	for _, day := range view.Days() {
		c.printf("%s %s\n", weekdayNames[day.Date.Weekday()], day.Date)
		overlapping := make(map[string]bool)
		for _, overlap := range schedule.DetectOverlaps(day.Sessions) {
			overlapping[overlap.First] = true
			overlapping[overlap.Second] = true
		}
		for _, session := range day.Sessions {
			marker := " "
			if hasSelection && session.ID == selected.ID {
				marker = "*"
			}
			line := fmt.Sprintf("  %s [%s] %s %s", marker, session.ID, clockRange(session), session.Title)
			if overlapping[session.ID] {
				line += " (chevauchement)"
			}
			c.printf("%s\n", line)
		}
	}
	if hasSelection {
		c.printf("Sélection : %s (%s %s)", selected.Title, selected.Date, clockRange(selected))
		if selected.Description != "" {
			c.printf(" %s", selected.Description)
		}
		c.printf("\n")
		if c.board.Panel().PendingDelete() {
			c.printf("Supprimer cette séance ? confirm | cancel\n")
		}
	}
}

func clockRange(s schedule.Session) string {
	switch {
	case s.StartTime == "" && s.EndTime == "":
		return "--:--"
	case s.EndTime == "":
		return s.StartTime
	default:
		return s.StartTime + "-" + s.EndTime
	}
}

func singleDate(args []string) (calendar.Date, error) {
	if len(args) != 1 {
		return calendar.Date{}, errUsage
	}
	return calendar.ParseDate(args[0])
}

func parsePolicy(args []string) (schedule.RecurrencePolicy, error) {
	if len(args) < 1 || len(args) > 3 {
		return schedule.RecurrencePolicy{}, errUsage
	}
	policy := schedule.RecurrencePolicy{Mode: recurrence.Mode(strings.ToLower(args[0]))}
	if len(args) >= 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return schedule.RecurrencePolicy{}, errUsage
		}
		policy.Occurrences = n
	}
	if len(args) == 3 {
		anchor, err := calendar.ParseDate(args[2])
		if err != nil {
			return schedule.RecurrencePolicy{}, err
		}
		policy.AnchorDate = anchor
	}
	return policy, nil
}
