package chess

import (
	"errors"
	"fmt"
	"strings"
)

const Size = 8

// ErrDuplicateKing is returned when a second king of one color is placed.
var ErrDuplicateKing = errors.New("color already has a king on the board")

// Square is a (row, col) coordinate. Row 0 is Black's back rank.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// NoSquare marks an absent coordinate.
var NoSquare = Square{-1, -1}

// Valid reports whether both components are in [0,7].
func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// String returns the algebraic name, e.g. row 7 col 4 is "e1".
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return fmt.Sprintf("%c%d", 'a'+s.Col, Size-s.Row)
}

// ParseSquare accepts algebraic names like "e2".
func ParseSquare(name string) (Square, error) {
	if len(name) != 2 {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	sq := Square{Row: Size - int(name[1]-'0'), Col: int(name[0] - 'a')}
	if name[0] < 'a' || name[1] < '1' || !sq.Valid() {
		return NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return sq, nil
}

// LastMove is the source and destination of the previous committed move.
type LastMove struct {
	From  Square `json:"from"`
	To    Square `json:"to"`
	Valid bool   `json:"valid"`
}

// Board is the 8x8 grid. It owns the pieces placed on it and keeps a cache of
// where each king stands; only Place, Remove and Move touch that cache.
type Board struct {
	squares [Size][Size]*Piece
	kings   [2]Square
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	return &Board{kings: [2]Square{NoSquare, NoSquare}}
}

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StandardBoard returns the initial position with every piece unmoved.
func StandardBoard() *Board {
	b := NewBoard()
	for col, k := range backRank {
		b.mustPlace(Square{Black.homeRow(), col}, NewPiece(Black, k))
		b.mustPlace(Square{White.homeRow(), col}, NewPiece(White, k))
		b.mustPlace(Square{Black.pawnRow(), col}, NewPiece(Black, Pawn))
		b.mustPlace(Square{White.pawnRow(), col}, NewPiece(White, Pawn))
	}
	return b
}

func (b *Board) mustPlace(sq Square, p *Piece) {
	if _, err := b.Place(sq, p); err != nil {
		panic(err)
	}
}

// At returns the piece on sq or nil.
func (b *Board) At(sq Square) *Piece {
	if !sq.Valid() {
		return nil
	}
	return b.squares[sq.Row][sq.Col]
}

// King returns the cached square of the color's king.
func (b *Board) King(c Color) (Square, bool) {
	sq := b.kings[c]
	return sq, sq.Valid()
}

// Place puts p on sq and returns the piece it displaced.
func (b *Board) Place(sq Square, p *Piece) (*Piece, error) {
	if !sq.Valid() {
		return nil, fmt.Errorf("place on %v: square out of range", sq)
	}
	if p != nil && p.Kind == King {
		if k, ok := b.King(p.Color); ok && k != sq {
			return nil, fmt.Errorf("place %s on %s: %w", p, sq, ErrDuplicateKing)
		}
	}
	prev := b.Remove(sq)
	b.squares[sq.Row][sq.Col] = p
	if p != nil && p.Kind == King {
		b.kings[p.Color] = sq
	}
	return prev, nil
}

// Remove clears sq and returns what was there.
func (b *Board) Remove(sq Square) *Piece {
	p := b.At(sq)
	if p == nil {
		return nil
	}
	b.squares[sq.Row][sq.Col] = nil
	if p.Kind == King && b.kings[p.Color] == sq {
		b.kings[p.Color] = NoSquare
	}
	return p
}

// Move relocates whatever stands on src to dst without any rule checking and
// returns the displaced occupant of dst.
func (b *Board) Move(src, dst Square) *Piece {
	p := b.Remove(src)
	prev := b.Remove(dst)
	if p != nil {
		b.squares[dst.Row][dst.Col] = p
		if p.Kind == King {
			b.kings[p.Color] = dst
		}
	}
	return prev
}

// restore puts p back on sq after a simulated capture.
func (b *Board) restore(sq Square, p *Piece) {
	if p == nil {
		return
	}
	b.squares[sq.Row][sq.Col] = p
	if p.Kind == King {
		b.kings[p.Color] = sq
	}
}

// Pieces calls fn for every occupied square in row-major order.
func (b *Board) Pieces(fn func(Square, *Piece)) {
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p := b.squares[r][c]; p != nil {
				fn(Square{r, c}, p)
			}
		}
	}
}

// String renders the board as eight lines of piece letters, white upper case,
// with '.' for empty squares.
func (b *Board) String() string {
	var sb strings.Builder
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(pieceRune(b.squares[r][c]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func pieceRune(p *Piece) byte {
	if p == nil {
		return '.'
	}
	l := p.Kind.Letter()
	if p.Color == Black {
		l |= 0x20
	}
	return l
}

// Clone returns a deep copy, pieces included.
func (b *Board) Clone() *Board {
	nb := &Board{kings: b.kings}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if p := b.squares[r][c]; p != nil {
				cp := *p
				nb.squares[r][c] = &cp
			}
		}
	}
	return nb
}
