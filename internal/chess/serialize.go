package chess

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Saved matches are a single line of '|' separated fields:
//
//	v1|<64 squares>|<turn>|<no-progress>|<last move>|<white secs>|<black secs>|<state>|<lost white>|<lost black>|<white moves>|<black moves>
//
// Squares use piece letters, white upper case, '_' for empty; a king or rook
// that has moved is written X or T instead of K or R. The last move is four
// row/col digits or "----". State is "play", "offer", "promo" or
// "over:<reason>:<w|b|->". Each move record is nine characters: piece, from
// row, from col, kind (n s l e), to row, to col, captured piece or '-', check
// ('.', '+', '#'), promotion piece or '.'.
const (
	formatVersion = "v1"
	fieldCount    = 12
	recordLen     = 9
	noLastMove    = "----"
)

// Serialize encodes the match.
func (m *Match) Serialize() string {
	return Encode(m)
}

// Restore replaces the match with a decoded one. On error the match is left
// exactly as it was.
func (m *Match) Restore(s string) error {
	st, err := decodeState(s)
	if err != nil {
		m.logger.Warn().Err(err).Msg("Rejected saved match")
		return err
	}
	m.apply(st)
	m.logger.Debug().Str("turn", m.turn.String()).Msg("Match restored")
	return nil
}

// Encode writes every engine-observable field of m.
func Encode(m *Match) string {
	var sb strings.Builder
	sb.WriteString(formatVersion)
	sb.WriteByte('|')
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			sb.WriteByte(encodePiece(m.board.At(Square{r, c})))
		}
	}
	sb.WriteByte('|')
	sb.WriteByte(colorLetter(m.turn))
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(m.noProgress))
	sb.WriteByte('|')
	if m.lastMove.Valid {
		fmt.Fprintf(&sb, "%d%d%d%d", m.lastMove.From.Row, m.lastMove.From.Col, m.lastMove.To.Row, m.lastMove.To.Col)
	} else {
		sb.WriteString(noLastMove)
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(m.clock.Seconds(White), 10))
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(m.clock.Seconds(Black), 10))
	sb.WriteByte('|')
	sb.WriteString(encodeStateField(m))
	for _, c := range []Color{White, Black} {
		sb.WriteByte('|')
		for _, k := range m.captured[c] {
			sb.WriteByte(k.Letter())
		}
	}
	for _, c := range []Color{White, Black} {
		sb.WriteByte('|')
		for _, rec := range m.history[c] {
			sb.WriteString(encodeRecord(rec))
		}
	}
	return sb.String()
}

// Decode builds a match from an encoded string.
func Decode(s string, opts ...Option) (*Match, error) {
	st, err := decodeState(s)
	if err != nil {
		return nil, err
	}
	m := NewMatch(opts...)
	m.apply(st)
	return m, nil
}

type savedState struct {
	board      *Board
	turn       Color
	noProgress int
	lastMove   LastMove
	clocks     [2]time.Duration
	drawOffer  bool
	promotion  bool
	outcome    *Outcome
	captured   [2][]Kind
	history    [2][]MoveRecord
}

// apply installs a validated state and derives the check status from the
// position instead of trusting anything stored.
func (m *Match) apply(st *savedState) {
	m.board = st.board
	m.turn = st.turn
	m.noProgress = st.noProgress
	m.lastMove = st.lastMove
	m.captured = st.captured
	m.history = st.history
	m.outcome = st.outcome
	m.drawOffer = st.drawOffer
	m.selected = nil
	m.promotion = nil
	if st.promotion {
		sq := st.lastMove.To
		m.promotion = &sq
	}

	m.clock.Reset(m.initial)
	m.clock.Set(White, st.clocks[White])
	m.clock.Set(Black, st.clocks[Black])
	m.clock.Start(m.turn)
	if m.outcome != nil {
		m.clock.Stop()
	}

	m.checked = NotInCheck
	if isInCheck(m.board, m.turn) {
		m.checked = InCheck
		if m.outcome != nil && m.outcome.Reason == ReasonCheckmate {
			m.checked = CheckMate
		}
	}
}

func decodeState(s string) (*savedState, error) {
	fields := strings.Split(s, "|")
	if len(fields) != fieldCount {
		return nil, fmt.Errorf("%d fields, want %d: %w", len(fields), fieldCount, ErrMalformedState)
	}
	if fields[0] != formatVersion {
		return nil, fmt.Errorf("version %q: %w", fields[0], ErrMalformedState)
	}

	st := &savedState{}
	var err error
	if st.board, err = decodeBoard(fields[1]); err != nil {
		return nil, err
	}
	if len(fields[2]) != 1 {
		return nil, fmt.Errorf("turn %q: %w", fields[2], ErrMalformedState)
	}
	if st.turn, err = ParseColor(fields[2]); err != nil {
		return nil, fmt.Errorf("turn: %v: %w", err, ErrMalformedState)
	}
	if st.noProgress, err = decodeCount(fields[3]); err != nil {
		return nil, fmt.Errorf("no-progress counter: %w", err)
	}
	if st.lastMove, err = decodeLastMove(fields[4]); err != nil {
		return nil, err
	}
	for i, c := range []Color{White, Black} {
		secs, err := decodeCount(fields[5+i])
		if err != nil {
			return nil, fmt.Errorf("%s clock: %w", c, err)
		}
		st.clocks[c] = time.Duration(secs) * time.Second
	}
	if err := st.decodeStateField(fields[7]); err != nil {
		return nil, err
	}
	for i, c := range []Color{White, Black} {
		if st.captured[c], err = decodeCaptured(fields[8+i]); err != nil {
			return nil, err
		}
		if st.history[c], err = decodeHistory(fields[10+i]); err != nil {
			return nil, err
		}
	}
	if err := st.validate(); err != nil {
		return nil, err
	}
	return st, nil
}

// validate rejects states no sequence of legal moves can produce.
func (st *savedState) validate() error {
	for _, c := range []Color{White, Black} {
		if _, ok := st.board.King(c); !ok {
			return fmt.Errorf("%s king missing: %w", c, ErrInvariantViolation)
		}
	}

	var promo Square = NoSquare
	if st.promotion {
		promo = st.lastMove.To
		p := st.board.At(promo)
		if !st.lastMove.Valid || p == nil || p.Kind != Pawn || p.Color != st.turn || promo.Row != st.turn.Opponent().homeRow() {
			return fmt.Errorf("promotion pending without a pawn on the last rank: %w", ErrInvariantViolation)
		}
		if len(st.history[st.turn]) == 0 {
			return fmt.Errorf("promotion pending without a move: %w", ErrInvariantViolation)
		}
	}

	var bad error
	st.board.Pieces(func(sq Square, p *Piece) {
		if p.Kind == Pawn && (sq.Row == 0 || sq.Row == Size-1) && sq != promo {
			bad = fmt.Errorf("pawn on %s: %w", sq, ErrInvariantViolation)
		}
	})
	if bad != nil {
		return bad
	}

	if !st.promotion && isInCheck(st.board, st.turn.Opponent()) {
		return fmt.Errorf("%s is in check but not to move: %w", st.turn.Opponent(), ErrInvariantViolation)
	}
	return nil
}

func encodePiece(p *Piece) byte {
	if p == nil {
		return '_'
	}
	l := p.Kind.Letter()
	if p.moved {
		switch p.Kind {
		case King:
			l = 'X'
		case Rook:
			l = 'T'
		}
	}
	if p.Color == Black {
		l |= 0x20
	}
	return l
}

func decodePiece(b byte) (*Piece, error) {
	color := White
	if b >= 'a' && b <= 'z' {
		color = Black
		b &^= 0x20
	}
	switch b {
	case 'X':
		return &Piece{Color: color, Kind: King, moved: true}, nil
	case 'T':
		return &Piece{Color: color, Kind: Rook, moved: true}, nil
	}
	k := kindFromLetter(b)
	if k == NoKind {
		return nil, fmt.Errorf("piece code %q: %w", b, ErrMalformedState)
	}
	return NewPiece(color, k), nil
}

func decodeBoard(s string) (*Board, error) {
	if len(s) != Size*Size {
		return nil, fmt.Errorf("board has %d squares: %w", len(s), ErrMalformedState)
	}
	b := NewBoard()
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			continue
		}
		p, err := decodePiece(s[i])
		if err != nil {
			return nil, err
		}
		if _, err := b.Place(Square{i / Size, i % Size}, p); err != nil {
			return nil, fmt.Errorf("%v: %w", err, ErrInvariantViolation)
		}
	}
	return b, nil
}

// decodeCount parses a non-negative decimal written without sign or padding.
func decodeCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("count %q: %w", s, ErrMalformedState)
	}
	return n, nil
}

func decodeDigit(b byte) (int, bool) {
	if b < '0' || b > '7' {
		return 0, false
	}
	return int(b - '0'), true
}

func decodeSquare(s string) (Square, bool) {
	r, ok1 := decodeDigit(s[0])
	c, ok2 := decodeDigit(s[1])
	return Square{r, c}, ok1 && ok2
}

func decodeLastMove(s string) (LastMove, error) {
	if s == noLastMove {
		return LastMove{From: NoSquare, To: NoSquare}, nil
	}
	if len(s) != 4 {
		return LastMove{}, fmt.Errorf("last move %q: %w", s, ErrMalformedState)
	}
	from, ok1 := decodeSquare(s[:2])
	to, ok2 := decodeSquare(s[2:])
	if !ok1 || !ok2 {
		return LastMove{}, fmt.Errorf("last move %q: %w", s, ErrMalformedState)
	}
	return LastMove{From: from, To: to, Valid: true}, nil
}

func colorLetter(c Color) byte {
	if c == White {
		return 'w'
	}
	return 'b'
}

func encodeStateField(m *Match) string {
	switch {
	case m.outcome != nil:
		winner := "-"
		if m.outcome.Winner != nil {
			winner = string(colorLetter(*m.outcome.Winner))
		}
		return "over:" + string(m.outcome.Reason) + ":" + winner
	case m.promotion != nil:
		return "promo"
	case m.drawOffer:
		return "offer"
	default:
		return "play"
	}
}

func (st *savedState) decodeStateField(s string) error {
	switch s {
	case "play":
		return nil
	case "offer":
		if st.noProgress < NoProgressLimit {
			return fmt.Errorf("draw offer below threshold: %w", ErrInvariantViolation)
		}
		st.drawOffer = true
		return nil
	case "promo":
		st.promotion = true
		return nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 || parts[0] != "over" {
		return fmt.Errorf("state %q: %w", s, ErrMalformedState)
	}
	reason := Reason(parts[1])
	switch reason {
	case ReasonCheckmate, ReasonStalemate, ReasonInsufficientMaterial, ReasonDrawAgreed, ReasonTimeElapsed, ReasonResignation:
	default:
		return fmt.Errorf("reason %q: %w", parts[1], ErrMalformedState)
	}
	o := &Outcome{Reason: reason}
	if parts[2] != "-" {
		if len(parts[2]) != 1 {
			return fmt.Errorf("winner %q: %w", parts[2], ErrMalformedState)
		}
		w, err := ParseColor(parts[2])
		if err != nil {
			return fmt.Errorf("winner %q: %w", parts[2], ErrMalformedState)
		}
		o.Winner = &w
	}
	st.outcome = o
	return nil
}

func decodeCaptured(s string) ([]Kind, error) {
	var out []Kind
	for i := 0; i < len(s); i++ {
		k := kindFromLetter(s[i])
		if k == NoKind || k == King {
			return nil, fmt.Errorf("captured piece %q: %w", s[i], ErrMalformedState)
		}
		out = append(out, k)
	}
	return out, nil
}

var moveKindCodes = map[MoveKind]byte{Normal: 'n', ShortCastle: 's', LongCastle: 'l', EnPassant: 'e'}

func encodeRecord(rec MoveRecord) string {
	b := make([]byte, 0, recordLen)
	b = append(b, rec.Piece.Letter(),
		byte('0'+rec.From.Row), byte('0'+rec.From.Col),
		moveKindCodes[rec.Kind],
		byte('0'+rec.To.Row), byte('0'+rec.To.Col))
	if rec.Captured != NoKind {
		b = append(b, rec.Captured.Letter())
	} else {
		b = append(b, '-')
	}
	switch rec.Check {
	case InCheck:
		b = append(b, '+')
	case CheckMate:
		b = append(b, '#')
	default:
		b = append(b, '.')
	}
	if rec.Promotion != NoKind {
		b = append(b, rec.Promotion.Letter())
	} else {
		b = append(b, '.')
	}
	return string(b)
}

func decodeHistory(s string) ([]MoveRecord, error) {
	if len(s)%recordLen != 0 {
		return nil, fmt.Errorf("move history length %d: %w", len(s), ErrMalformedState)
	}
	var out []MoveRecord
	for i := 0; i < len(s); i += recordLen {
		rec, err := decodeRecord(s[i : i+recordLen])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func decodeRecord(s string) (MoveRecord, error) {
	bad := fmt.Errorf("move record %q: %w", s, ErrMalformedState)
	rec := MoveRecord{Piece: kindFromLetter(s[0])}
	if rec.Piece == NoKind {
		return rec, bad
	}
	var ok1, ok2 bool
	rec.From, ok1 = decodeSquare(s[1:3])
	rec.To, ok2 = decodeSquare(s[4:6])
	if !ok1 || !ok2 {
		return rec, bad
	}
	for k, code := range moveKindCodes {
		if code == s[3] {
			rec.Kind = k
		}
	}
	if rec.Kind == Illegal {
		return rec, bad
	}
	if s[6] != '-' {
		if rec.Captured = kindFromLetter(s[6]); rec.Captured == NoKind || rec.Captured == King {
			return rec, bad
		}
	}
	switch s[7] {
	case '.':
	case '+':
		rec.Check = InCheck
	case '#':
		rec.Check = CheckMate
	default:
		return rec, bad
	}
	if s[8] != '.' {
		if rec.Promotion = kindFromLetter(s[8]); !isPromotionKind(rec.Promotion) {
			return rec, bad
		}
	}
	return rec, nil
}
