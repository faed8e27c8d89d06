package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/justinabrahms/hotseatchess/internal/chess"
)

// Theme is the set of square styles used to draw the board.
type Theme struct {
	Light *color.Color
	Dark  *color.Color
	High  *color.Color // last move
	Hint  *color.Color
	Check *color.Color
	Label *color.Color
}

var DefaultTheme = Theme{
	Light: color.New(color.BgHiWhite, color.FgBlack),
	Dark:  color.New(color.BgGreen, color.FgBlack),
	High:  color.New(color.BgYellow, color.FgBlack),
	Hint:  color.New(color.BgCyan, color.FgBlack),
	Check: color.New(color.BgRed, color.FgHiWhite),
	Label: color.New(color.FgHiBlack),
}

var glyphs = map[byte]string{
	'K': "♔", 'Q': "♕", 'R': "♖", 'B': "♗", 'N': "♘", 'P': "♙",
	'k': "♚", 'q': "♛", 'r': "♜", 'b': "♝", 'n': "♞", 'p': "♟",
}

func contains(sqs []chess.Square, sq chess.Square) bool {
	for _, s := range sqs {
		if s == sq {
			return true
		}
	}
	return false
}

// squareStyle picks the background of one square. Check beats hints, hints
// beat the last move.
func squareStyle(snap chess.Snapshot, sq chess.Square, hints []chess.Square, t Theme) *color.Color {
	piece := snap.Board[sq.Row][sq.Col]
	if snap.Check != chess.NotInCheck {
		king := byte('K')
		if snap.Turn == chess.Black {
			king = 'k'
		}
		if piece == king {
			return t.Check
		}
	}
	if contains(hints, sq) {
		return t.Hint
	}
	if snap.LastMove.Valid && (sq == snap.LastMove.From || sq == snap.LastMove.To) {
		return t.High
	}
	if (sq.Row+sq.Col)%2 == 0 {
		return t.Light
	}
	return t.Dark
}

// Render draws the board with rank and file labels, White at the bottom.
func Render(w io.Writer, snap chess.Snapshot, hints []chess.Square, t Theme) {
	for r := 0; r < chess.Size; r++ {
		fmt.Fprint(w, t.Label.Sprintf("%d ", chess.Size-r))
		for c := 0; c < chess.Size; c++ {
			sq := chess.Square{Row: r, Col: c}
			cell := " "
			if g, ok := glyphs[snap.Board[r][c]]; ok {
				cell = g
			}
			fmt.Fprint(w, squareStyle(snap, sq, hints, t).Sprint(cell+" "))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, t.Label.Sprint("  a b c d e f g h"))
}

// Status is the one-line summary printed under the board.
func Status(snap chess.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "white %s  black %s  ",
		chess.FormatClock(time.Duration(snap.WhiteClock)*time.Second),
		chess.FormatClock(time.Duration(snap.BlackClock)*time.Second))

	switch {
	case snap.Outcome != nil && snap.Outcome.Winner != nil:
		fmt.Fprintf(&b, "%s wins by %s", snap.Outcome.Winner, reasonText(snap.Outcome.Reason))
	case snap.Outcome != nil:
		fmt.Fprintf(&b, "draw by %s", reasonText(snap.Outcome.Reason))
	case snap.PromotionSquare != nil:
		fmt.Fprintf(&b, "%s promotes on %s (q, r, b, n)", snap.Turn, snap.PromotionSquare)
	default:
		fmt.Fprintf(&b, "%s to move", snap.Turn)
		if snap.Check == chess.InCheck {
			b.WriteString(", check")
		}
		if snap.DrawOffered {
			b.WriteString(", draw offered")
		} else if snap.DrawAvailable {
			b.WriteString(", draw available")
		}
	}

	material := snap.Material.White - snap.Material.Black
	if material != 0 {
		fmt.Fprintf(&b, "  material %+d", material)
	}
	return b.String()
}

func reasonText(r chess.Reason) string {
	return strings.ReplaceAll(string(r), "_", " ")
}
