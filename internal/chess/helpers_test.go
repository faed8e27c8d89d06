package chess

import (
	"testing"

	notnil "github.com/notnil/chess"
)

// boardFromFEN loads the placement, side to move and castling rights of a FEN
// string. Kings and rooks that have lost their castling rights count as moved.
func boardFromFEN(t *testing.T, fen string) (*Board, Color) {
	t.Helper()
	opt, err := notnil.FEN(fen)
	if err != nil {
		t.Fatalf("Failed to parse FEN %q: %v", fen, err)
	}
	pos := notnil.NewGame(opt).Position()
	rights := pos.CastleRights()

	b := NewBoard()
	for nsq, pc := range pos.Board().SquareMap() {
		c := fromNotnilColor(pc.Color())
		p := NewPiece(c, fromNotnilType(pc.Type()))
		sq := fromNotnilSquare(nsq)
		nc := pc.Color()
		switch {
		case p.Kind == King:
			p.moved = sq != (Square{c.homeRow(), 4}) ||
				!(rights.CanCastle(nc, notnil.KingSide) || rights.CanCastle(nc, notnil.QueenSide))
		case p.Kind == Rook && sq == (Square{c.homeRow(), 7}):
			p.moved = !rights.CanCastle(nc, notnil.KingSide)
		case p.Kind == Rook && sq == (Square{c.homeRow(), 0}):
			p.moved = !rights.CanCastle(nc, notnil.QueenSide)
		case p.Kind == Rook:
			p.moved = true
		}
		if _, err := b.Place(sq, p); err != nil {
			t.Fatalf("Failed to place %s on %s: %v", p, sq, err)
		}
	}
	return b, fromNotnilColor(pos.Turn())
}

func matchFromFEN(t *testing.T, fen string, opts ...Option) *Match {
	t.Helper()
	b, turn := boardFromFEN(t, fen)
	m, err := NewMatchFromBoard(b, turn, opts...)
	if err != nil {
		t.Fatalf("Failed to create match from FEN %q: %v", fen, err)
	}
	return m
}

func fromNotnilColor(c notnil.Color) Color {
	if c == notnil.Black {
		return Black
	}
	return White
}

func fromNotnilType(pt notnil.PieceType) Kind {
	switch pt {
	case notnil.King:
		return King
	case notnil.Queen:
		return Queen
	case notnil.Rook:
		return Rook
	case notnil.Bishop:
		return Bishop
	case notnil.Knight:
		return Knight
	case notnil.Pawn:
		return Pawn
	}
	return NoKind
}

func fromNotnilSquare(sq notnil.Square) Square {
	return Square{Row: Size - 1 - int(sq.Rank()), Col: int(sq.File())}
}

func sq(t *testing.T, name string) Square {
	t.Helper()
	s, err := ParseSquare(name)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// play applies moves written as "e2e4", with a fifth letter choosing the
// promotion piece ("e7e8q").
func play(t *testing.T, m *Match, moves ...string) MoveResult {
	t.Helper()
	var res MoveResult
	for _, mv := range moves {
		var err error
		res, err = m.TryMove(sq(t, mv[:2]), sq(t, mv[2:4]))
		if err != nil {
			t.Fatalf("Move %s failed: %v", mv, err)
		}
		if len(mv) == 5 {
			res, err = m.ResolvePromotion(ParsePromotion(mv[4:]))
			if err != nil {
				t.Fatalf("Promotion %s failed: %v", mv, err)
			}
		}
	}
	return res
}
