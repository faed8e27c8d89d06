package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/justinabrahms/hotseatchess/internal/chess"
	"github.com/justinabrahms/hotseatchess/internal/session"
	"github.com/justinabrahms/hotseatchess/internal/store"
)

const helpText = `commands:
  e2e4, e7e8q      move (optionally with promotion piece)
  hint e2          show where the piece on e2 can go
  promote q|r|b|n  finish a pending promotion
  draw             offer a draw (only after 50 moves without progress)
  accept           accept the open draw offer
  resign           the side to move resigns
  reset            start over
  save [name]      save the match (a name is generated when omitted)
  load <name>      continue a saved match
  saves            list saved matches
  delete <name>    delete a saved match
  delete-all       delete every saved match
  state            print the encoded match
  restore <state>  replace the match with an encoded one
  board            redraw the board
  quit             leave (the autosave keeps the match)`

// REPL plays one match at a time on a shared terminal.
type REPL struct {
	sessions *session.Manager
	out      io.Writer
	theme    Theme
	logger   zerolog.Logger

	matchID string
	hints   []chess.Square
}

func NewREPL(sessions *session.Manager, out io.Writer, logger zerolog.Logger) *REPL {
	return &REPL{sessions: sessions, out: out, theme: DefaultTheme, logger: logger}
}

// Start resumes the autosaved match if there is one, otherwise starts a new
// match.
func (r *REPL) Start(ctx context.Context) error {
	id, ok, err := r.sessions.Resume(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Could not resume autosave")
	}
	if ok {
		r.matchID = id
		fmt.Fprintln(r.out, "resumed the autosaved match")
		return nil
	}
	r.matchID, _ = r.sessions.Create()
	return nil
}

// MatchID is the match currently on the board.
func (r *REPL) MatchID() string {
	return r.matchID
}

// Run reads commands from in until quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	if r.matchID == "" {
		if err := r.Start(ctx); err != nil {
			return err
		}
	}
	r.draw()

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		quit, err := r.Exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs a single command line and reports whether the user asked to quit.
func (r *REPL) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
		return false, nil
	case "board":
		r.draw()
		return false, nil
	case "hint":
		return false, r.hint(arg)
	case "promote":
		return false, r.result(r.sessions.Promote(ctx, r.matchID, chess.ParsePromotion(strings.ToLower(arg))))
	case "draw":
		if err := r.sessions.OfferDraw(ctx, r.matchID); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "draw offered, type accept to agree")
		return false, nil
	case "accept":
		return false, r.result(r.sessions.AcceptDraw(ctx, r.matchID))
	case "resign":
		snap, err := r.sessions.Snapshot(r.matchID)
		if err != nil {
			return false, err
		}
		return false, r.result(r.sessions.Resign(ctx, r.matchID, snap.Turn))
	case "reset":
		if _, err := r.sessions.Reset(ctx, r.matchID); err != nil {
			return false, err
		}
		r.hints = nil
		r.draw()
		return false, nil
	case "save":
		name, err := r.sessions.Save(ctx, r.matchID, strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "saved as %q\n", name)
		return false, nil
	case "load":
		return false, r.load(ctx, strings.Join(args, " "))
	case "saves":
		return false, r.listSaves(ctx)
	case "delete":
		if err := r.sessions.DeleteSave(ctx, strings.Join(args, " ")); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "deleted")
		return false, nil
	case "delete-all":
		if err := r.sessions.DeleteAllSaves(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "all saves deleted")
		return false, nil
	case "state":
		state, err := r.sessions.Serialize(r.matchID)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, state)
		return false, nil
	case "restore":
		if _, err := r.sessions.Restore(ctx, r.matchID, arg); err != nil {
			return false, err
		}
		r.hints = nil
		r.draw()
		return false, nil
	}

	if len(cmd) == 4 || len(cmd) == 5 {
		return false, r.move(ctx, cmd)
	}
	return false, fmt.Errorf("unknown command %q, type help", fields[0])
}

func (r *REPL) move(ctx context.Context, text string) error {
	from, err := chess.ParseSquare(text[:2])
	if err != nil {
		return err
	}
	to, err := chess.ParseSquare(text[2:4])
	if err != nil {
		return err
	}
	promotion := chess.NoKind
	if len(text) == 5 {
		if promotion = chess.ParsePromotion(text[4:]); promotion == chess.NoKind {
			return fmt.Errorf("promotion %q: %w", text[4:], chess.ErrInvalidPromotion)
		}
	}
	res, err := r.sessions.Move(ctx, r.matchID, from, to)
	if err != nil {
		return err
	}
	if res.PromotionPending && promotion != chess.NoKind {
		return r.result(r.sessions.Promote(ctx, r.matchID, promotion))
	}
	return r.result(res, nil)
}

func (r *REPL) hint(name string) error {
	sq, err := chess.ParseSquare(strings.ToLower(name))
	if err != nil {
		return err
	}
	dests, err := r.sessions.Select(r.matchID, sq)
	if err != nil {
		return err
	}
	if len(dests) == 0 {
		fmt.Fprintf(r.out, "no moves from %s\n", sq)
		return nil
	}
	r.hints = dests
	r.draw()
	return nil
}

func (r *REPL) result(_ chess.MoveResult, err error) error {
	if err != nil {
		return err
	}
	r.hints = nil
	r.draw()
	return nil
}

func (r *REPL) load(ctx context.Context, name string) error {
	id, _, err := r.sessions.Load(ctx, name)
	if err != nil {
		return err
	}
	if err := r.sessions.Remove(r.matchID); err != nil && !errors.Is(err, session.ErrMatchNotFound) {
		r.logger.Warn().Err(err).Str("match", r.matchID).Msg("Failed to drop previous match")
	}
	r.matchID = id
	r.hints = nil
	r.draw()
	return nil
}

func (r *REPL) listSaves(ctx context.Context) error {
	recs, err := r.sessions.ListSaves(ctx)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(r.out, "no saved matches")
		return nil
	}
	for _, rec := range recs {
		marker := ""
		if rec.Name == store.AutosaveName {
			marker = " (autosave)"
		}
		fmt.Fprintf(r.out, "%-24s %s%s\n", rec.Name, rec.SavedAt.Local().Format("2006-01-02 15:04"), marker)
	}
	return nil
}

func (r *REPL) draw() {
	snap, err := r.sessions.Snapshot(r.matchID)
	if err != nil {
		fmt.Fprintln(r.out, "error:", err)
		return
	}
	Render(r.out, snap, r.hints, r.theme)
	fmt.Fprintln(r.out, Status(snap))
}
