package chess

import "fmt"

// Color is the side a piece belongs to.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// homeRow is the back rank of the color.
func (c Color) homeRow() int {
	if c == White {
		return 7
	}
	return 0
}

// pawnRow is the rank pawns of the color start on.
func (c Color) pawnRow() int {
	if c == White {
		return 6
	}
	return 1
}

// forward is the row delta of a pawn advance.
func (c Color) forward() int {
	if c == White {
		return -1
	}
	return 1
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Kind is the piece type.
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

// PromotionKinds are the kinds a pawn may become.
var PromotionKinds = []Kind{Queen, Rook, Bishop, Knight}

func (k Kind) String() string {
	switch k {
	case King:
		return "king"
	case Queen:
		return "queen"
	case Rook:
		return "rook"
	case Bishop:
		return "bishop"
	case Knight:
		return "knight"
	case Pawn:
		return "pawn"
	default:
		return ""
	}
}

// Letter is the upper case English piece letter.
func (k Kind) Letter() byte {
	switch k {
	case King:
		return 'K'
	case Queen:
		return 'Q'
	case Rook:
		return 'R'
	case Bishop:
		return 'B'
	case Knight:
		return 'N'
	case Pawn:
		return 'P'
	default:
		return '?'
	}
}

func kindFromLetter(b byte) Kind {
	switch b {
	case 'K':
		return King
	case 'Q':
		return Queen
	case 'R':
		return Rook
	case 'B':
		return Bishop
	case 'N':
		return Knight
	case 'P':
		return Pawn
	default:
		return NoKind
	}
}

// ParsePromotion maps "q", "r", "b", "n" (or the full names) to a kind.
func ParsePromotion(p string) Kind {
	switch p {
	case "q", "queen":
		return Queen
	case "r", "rook":
		return Rook
	case "b", "bishop":
		return Bishop
	case "n", "knight":
		return Knight
	default:
		return NoKind
	}
}

func isPromotionKind(k Kind) bool {
	for _, c := range PromotionKinds {
		if c == k {
			return true
		}
	}
	return false
}

// MoveKind classifies a legal move. Illegal is the zero value.
type MoveKind uint8

const (
	Illegal MoveKind = iota
	Normal
	ShortCastle
	LongCastle
	EnPassant
)

func (k MoveKind) String() string {
	switch k {
	case Normal:
		return "normal"
	case ShortCastle:
		return "short_castle"
	case LongCastle:
		return "long_castle"
	case EnPassant:
		return "en_passant"
	default:
		return "illegal"
	}
}

// Piece is a single man on the board. Color and kind never change; moved is only
// meaningful for kings and rooks and only ever goes from false to true.
type Piece struct {
	Color Color
	Kind  Kind
	moved bool
}

// NewPiece returns an unmoved piece.
func NewPiece(c Color, k Kind) *Piece {
	return &Piece{Color: c, Kind: k}
}

// HasMoved reports whether a king or rook has made a committed move.
func (p *Piece) HasMoved() bool {
	return p.moved
}

func (p *Piece) markMoved() {
	if p.Kind == King || p.Kind == Rook {
		p.moved = true
	}
}

func (p *Piece) String() string {
	return p.Color.String() + " " + p.Kind.String()
}

// moveContext is the state outside the board that legality depends on.
type moveContext struct {
	inCheck  bool
	lastMove LastMove
}

// validMove reports whether p may go from src to dst on b ignoring whether the
// mover's own king ends up in check. Castling is the exception: the crossed and
// destination squares are tested for attack here.
func (p *Piece) validMove(b *Board, src, dst Square, ctx moveContext) MoveKind {
	if !src.Valid() || !dst.Valid() || src == dst {
		return Illegal
	}
	if occ := b.At(dst); occ != nil && occ.Color == p.Color {
		return Illegal
	}
	switch p.Kind {
	case King:
		return p.kingMove(b, src, dst, ctx)
	case Queen:
		if isStraight(src, dst) || isDiagonal(src, dst) {
			return pathMove(b, src, dst)
		}
	case Rook:
		if isStraight(src, dst) {
			return pathMove(b, src, dst)
		}
	case Bishop:
		if isDiagonal(src, dst) {
			return pathMove(b, src, dst)
		}
	case Knight:
		dr, dc := abs(dst.Row-src.Row), abs(dst.Col-src.Col)
		if (dr == 1 && dc == 2) || (dr == 2 && dc == 1) {
			return Normal
		}
	case Pawn:
		return p.pawnMove(b, src, dst, ctx)
	}
	return Illegal
}

// attacks reports whether p standing on src hits target. Castling and pawn pushes
// never capture so they are left out.
func (p *Piece) attacks(b *Board, src, target Square) bool {
	if !src.Valid() || !target.Valid() || src == target {
		return false
	}
	switch p.Kind {
	case King:
		return abs(target.Row-src.Row) <= 1 && abs(target.Col-src.Col) <= 1
	case Pawn:
		return target.Row == src.Row+p.Color.forward() && abs(target.Col-src.Col) == 1
	default:
		return p.validMove(b, src, target, moveContext{}) != Illegal
	}
}

func (p *Piece) kingMove(b *Board, src, dst Square, ctx moveContext) MoveKind {
	if abs(dst.Row-src.Row) <= 1 && abs(dst.Col-src.Col) <= 1 {
		return Normal
	}
	home := p.Color.homeRow()
	if p.moved || ctx.inCheck || src != (Square{home, 4}) || dst.Row != home {
		return Illegal
	}

	var (
		kind     MoveKind
		rookCol  int
		between  []int
		crossing []int
	)
	switch dst.Col {
	case 6:
		kind, rookCol, between, crossing = ShortCastle, 7, []int{5, 6}, []int{5, 6}
	case 2:
		kind, rookCol, between, crossing = LongCastle, 0, []int{1, 2, 3}, []int{3, 2}
	default:
		return Illegal
	}

	rook := b.At(Square{home, rookCol})
	if rook == nil || rook.Kind != Rook || rook.Color != p.Color || rook.moved {
		return Illegal
	}
	for _, c := range between {
		if b.At(Square{home, c}) != nil {
			return Illegal
		}
	}
	for _, c := range crossing {
		if kingWalkAttacked(b, src, Square{home, c}, p.Color) {
			return Illegal
		}
	}
	return kind
}

// kingWalkAttacked puts the king on sq, asks whether it is in check and moves it
// back before returning.
func kingWalkAttacked(b *Board, from, sq Square, c Color) bool {
	b.Move(from, sq)
	defer b.Move(sq, from)
	return isInCheck(b, c)
}

func (p *Piece) pawnMove(b *Board, src, dst Square, ctx moveContext) MoveKind {
	dir := p.Color.forward()
	target := b.At(dst)

	if dst.Col == src.Col && target == nil {
		if dst.Row == src.Row+dir {
			return Normal
		}
		if src.Row == p.Color.pawnRow() && dst.Row == src.Row+2*dir && b.At(Square{src.Row + dir, src.Col}) == nil {
			return Normal
		}
		return Illegal
	}

	if dst.Row != src.Row+dir || abs(dst.Col-src.Col) != 1 {
		return Illegal
	}
	if target != nil {
		return Normal
	}

	// en passant: the enemy pawn must have just jumped over dst
	enemyStart := p.Color.Opponent().pawnRow()
	if src.Row != enemyStart+2*p.Color.Opponent().forward() {
		return Illegal
	}
	lm := ctx.lastMove
	if !lm.Valid || lm.From != (Square{enemyStart, dst.Col}) || lm.To != (Square{src.Row, dst.Col}) {
		return Illegal
	}
	victim := b.At(lm.To)
	if victim == nil || victim.Kind != Pawn || victim.Color == p.Color {
		return Illegal
	}
	return EnPassant
}

// pathMove checks that every square strictly between src and dst is empty.
func pathMove(b *Board, src, dst Square) MoveKind {
	dr, dc := sign(dst.Row-src.Row), sign(dst.Col-src.Col)
	for sq := (Square{src.Row + dr, src.Col + dc}); sq != dst; sq = (Square{sq.Row + dr, sq.Col + dc}) {
		if b.At(sq) != nil {
			return Illegal
		}
	}
	return Normal
}

func isStraight(src, dst Square) bool {
	return src.Row == dst.Row || src.Col == dst.Col
}

func isDiagonal(src, dst Square) bool {
	return abs(dst.Row-src.Row) == abs(dst.Col-src.Col)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	v, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for v := King; v <= Pawn; v++ {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	if len(b) == 0 {
		*k = NoKind
		return nil
	}
	return fmt.Errorf("unknown piece %q", b)
}

func (k MoveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *MoveKind) UnmarshalText(b []byte) error {
	for v := Illegal; v <= EnPassant; v++ {
		if v.String() == string(b) {
			*k = v
			return nil
		}
	}
	return fmt.Errorf("unknown move kind %q", b)
}
