package chess

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// NoProgressLimit is the number of half-moves without a capture or pawn move
// after which the player to move may end the match in a draw.
const NoProgressLimit = 100

// Move is a legal move for the side to play.
type Move struct {
	From Square   `json:"from"`
	To   Square   `json:"to"`
	Kind MoveKind `json:"kind"`
}

// Option configures a match.
type Option func(*Match)

// WithLogger sets the logger used for committed moves and match results.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Match) {
		m.logger = logger
	}
}

// WithInitialTime sets the time each side starts with.
func WithInitialTime(d time.Duration) Option {
	return func(m *Match) {
		m.initial = d
	}
}

// WithClock makes the match drive an existing clock.
func WithClock(c *Clock) Option {
	return func(m *Match) {
		m.clock = c
	}
}

// Match is the rules engine for one game. It is not safe for concurrent use;
// the caller serializes access.
type Match struct {
	board      *Board
	turn       Color
	checked    CheckStatus
	noProgress int
	lastMove   LastMove
	history    [2][]MoveRecord
	captured   [2][]Kind
	promotion  *Square
	outcome    *Outcome
	drawOffer  bool
	selected   *Square

	clock   *Clock
	initial time.Duration
	logger  zerolog.Logger
}

// NewMatch returns a match in the standard starting position.
func NewMatch(opts ...Option) *Match {
	m := &Match{
		initial: DefaultInitialTime,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewClock(m.initial)
	}
	m.Reset()
	return m
}

// NewMatchFromBoard starts a match from an arbitrary position with turn to
// move. Kings and rooks keep the moved flags they carry. The position is
// evaluated at once, so a mated or stalemated side ends the match immediately.
func NewMatchFromBoard(b *Board, turn Color, opts ...Option) (*Match, error) {
	for _, c := range []Color{White, Black} {
		if _, ok := b.King(c); !ok {
			return nil, fmt.Errorf("%s king missing: %w", c, ErrInvariantViolation)
		}
	}
	if isInCheck(b, turn.Opponent()) {
		return nil, fmt.Errorf("%s is in check but not to move: %w", turn.Opponent(), ErrInvariantViolation)
	}
	m := NewMatch(opts...)
	m.board = b.Clone()
	m.turn = turn
	m.clock.Start(turn)
	m.settle(insufficientMaterial(m.board))
	return m, nil
}

// Reset discards the current match and sets up the starting position.
func (m *Match) Reset() Snapshot {
	m.board = StandardBoard()
	m.turn = White
	m.checked = NotInCheck
	m.noProgress = 0
	m.lastMove = LastMove{From: NoSquare, To: NoSquare}
	m.history = [2][]MoveRecord{}
	m.captured = [2][]Kind{}
	m.promotion = nil
	m.outcome = nil
	m.drawOffer = false
	m.selected = nil
	m.clock.Reset(m.initial)
	m.clock.Start(White)
	m.logger.Debug().Msg("New match")
	return m.Snapshot()
}

func (m *Match) Turn() Color { return m.turn }
func (m *Match) Checked() CheckStatus { return m.checked }
func (m *Match) NoProgress() int { return m.noProgress }
func (m *Match) LastMove() LastMove { return m.lastMove }
func (m *Match) Clock() *Clock { return m.clock }
func (m *Match) Board() *Board { return m.board.Clone() }
func (m *Match) History(c Color) []MoveRecord {
	return append([]MoveRecord(nil), m.history[c]...)
}
func (m *Match) Captured(c Color) []Kind { return append([]Kind(nil), m.captured[c]...) }

// Outcome returns the result of a finished match, or nil while it is running.
func (m *Match) Outcome() *Outcome {
	if m.outcome == nil {
		return nil
	}
	o := *m.outcome
	return &o
}

// PromotionPending returns the square of a pawn waiting to be promoted.
func (m *Match) PromotionPending() (Square, bool) {
	if m.promotion == nil {
		return NoSquare, false
	}
	return *m.promotion, true
}

// Selected returns the square chosen by the last SelectSquare call.
func (m *Match) Selected() (Square, bool) {
	if m.selected == nil {
		return NoSquare, false
	}
	return *m.selected, true
}

// Status summarizes the match for callers that only need the headline.
func (m *Match) Status() GameStatus {
	switch {
	case m.outcome == nil && m.promotion != nil:
		return StatusPromotionPending
	case m.outcome == nil:
		return StatusActive
	case m.outcome.Winner == nil:
		return StatusDraw
	case *m.outcome.Winner == White:
		return StatusWhiteWon
	default:
		return StatusBlackWon
	}
}

// IsInCheck reports whether c's king is attacked.
func (m *Match) IsInCheck(c Color) bool {
	return isInCheck(m.board, c)
}

// InsufficientMaterial reports whether neither side has enough material to mate.
func (m *Match) InsufficientMaterial() bool {
	return insufficientMaterial(m.board)
}

// DrawAvailable reports whether the player to move may end the match in a draw.
func (m *Match) DrawAvailable() bool {
	return m.outcome == nil && m.promotion == nil && m.noProgress >= NoProgressLimit
}

func (m *Match) context(c Color) moveContext {
	return moveContext{inCheck: isInCheck(m.board, c), lastMove: m.lastMove}
}

// AttemptMove reports whether the piece on src may move to dst. The move is
// played on the board, the mover's king is tested for check, and the board is
// put back exactly as it was before the verdict is returned.
func (m *Match) AttemptMove(src, dst Square) MoveKind {
	p := m.board.At(src)
	if p == nil {
		return Illegal
	}
	kind := p.validMove(m.board, src, dst, m.context(p.Color))
	if kind == Illegal {
		return Illegal
	}
	undo := m.simulate(src, dst, kind)
	defer undo()
	if isInCheck(m.board, p.Color) {
		return Illegal
	}
	return kind
}

// simulate plays a move without touching moved flags or counters and returns
// the exact inverse.
func (m *Match) simulate(src, dst Square, kind MoveKind) func() {
	b := m.board
	switch kind {
	case ShortCastle, LongCastle:
		rookFrom, rookTo := castleRook(src.Row, kind)
		b.Move(rookFrom, rookTo)
		b.Move(src, dst)
		return func() {
			b.Move(dst, src)
			b.Move(rookTo, rookFrom)
		}
	case EnPassant:
		victimSq := Square{src.Row, dst.Col}
		victim := b.Remove(victimSq)
		b.Move(src, dst)
		return func() {
			b.Move(dst, src)
			b.restore(victimSq, victim)
		}
	default:
		captured := b.Move(src, dst)
		return func() {
			b.Move(dst, src)
			b.restore(dst, captured)
		}
	}
}

func castleRook(row int, kind MoveKind) (from, to Square) {
	if kind == ShortCastle {
		return Square{row, 7}, Square{row, 5}
	}
	return Square{row, 0}, Square{row, 3}
}

// CannotMove reports whether c has no legal move at all.
func (m *Match) CannotMove(c Color) bool {
	var own []Square
	m.board.Pieces(func(sq Square, p *Piece) {
		if p.Color == c {
			own = append(own, sq)
		}
	})
	for _, src := range own {
		for _, dst := range candidates(m.board.At(src), src) {
			if m.AttemptMove(src, dst) != Illegal {
				return false
			}
		}
	}
	return true
}

// legalFrom lists the legal moves of the piece on src.
func (m *Match) legalFrom(src Square) []Move {
	p := m.board.At(src)
	if p == nil {
		return nil
	}
	var out []Move
	for _, dst := range candidates(p, src) {
		if kind := m.AttemptMove(src, dst); kind != Illegal {
			out = append(out, Move{From: src, To: dst, Kind: kind})
		}
	}
	return out
}

// LegalMoves lists every legal move of the side to play.
func (m *Match) LegalMoves() []Move {
	if m.outcome != nil || m.promotion != nil {
		return nil
	}
	var own []Square
	m.board.Pieces(func(sq Square, p *Piece) {
		if p.Color == m.turn {
			own = append(own, sq)
		}
	})
	var out []Move
	for _, src := range own {
		out = append(out, m.legalFrom(src)...)
	}
	return out
}

// SelectSquare returns the legal destinations of the piece on sq. It is empty
// when the square is empty, holds an opponent's piece, or the match does not
// accept moves.
func (m *Match) SelectSquare(sq Square) []Square {
	m.selected = nil
	if m.outcome != nil || m.promotion != nil {
		return nil
	}
	p := m.board.At(sq)
	if p == nil || p.Color != m.turn {
		return nil
	}
	m.selected = &sq
	var out []Square
	for _, mv := range m.legalFrom(sq) {
		out = append(out, mv.To)
	}
	return out
}

// commitMove plays a move certified by AttemptMove for real and returns the
// captured piece, if any.
func (m *Match) commitMove(src, dst Square, kind MoveKind) *Piece {
	b := m.board
	p := b.At(src)
	var captured *Piece
	switch kind {
	case ShortCastle, LongCastle:
		rookFrom, rookTo := castleRook(src.Row, kind)
		if rook := b.At(rookFrom); rook != nil {
			rook.markMoved()
		}
		b.Move(rookFrom, rookTo)
	case EnPassant:
		captured = b.Remove(Square{src.Row, dst.Col})
	}
	if c := b.Move(src, dst); c != nil {
		captured = c
	}
	p.markMoved()
	m.lastMove = LastMove{From: src, To: dst, Valid: true}

	if captured != nil {
		m.captured[captured.Color] = append(m.captured[captured.Color], captured.Kind)
	}
	if captured == nil && p.Kind != Pawn {
		m.noProgress++
	} else {
		m.noProgress = 0
	}
	return captured
}

// TryMove plays src→dst for the side to move. An illegal move changes nothing
// and yields an error wrapping ErrIllegalMove.
func (m *Match) TryMove(src, dst Square) (MoveResult, error) {
	if m.outcome != nil {
		return MoveResult{}, ErrGameOver
	}
	if m.promotion != nil {
		return MoveResult{}, ErrPromotionPending
	}
	m.selected = nil

	p := m.board.At(src)
	if p == nil || p.Color != m.turn {
		return MoveResult{}, fmt.Errorf("%s-%s: no %s piece on %s: %w", src, dst, m.turn, src, ErrIllegalMove)
	}
	kind := m.AttemptMove(src, dst)
	if kind == Illegal {
		return MoveResult{}, fmt.Errorf("%s %s-%s: %w", p.Kind, src, dst, ErrIllegalMove)
	}

	mover := m.turn
	captured := m.commitMove(src, dst, kind)
	m.drawOffer = false
	m.checked = NotInCheck

	rec := MoveRecord{Piece: p.Kind, From: src, To: dst, Kind: kind}
	if captured != nil {
		rec.Captured = captured.Kind
	}
	m.history[mover] = append(m.history[mover], rec)

	if p.Kind == Pawn && dst.Row == mover.Opponent().homeRow() {
		sq := dst
		m.promotion = &sq
		m.logger.Debug().Str("color", mover.String()).Str("square", dst.String()).Msg("Promotion pending")
		return m.result(rec), nil
	}

	m.advanceTurn(captured != nil)
	return m.finishRecord(mover), nil
}

// ResolvePromotion replaces the waiting pawn with kind and completes the turn.
func (m *Match) ResolvePromotion(kind Kind) (MoveResult, error) {
	if m.outcome != nil {
		return MoveResult{}, ErrGameOver
	}
	if m.promotion == nil {
		return MoveResult{}, ErrNoPromotionPending
	}
	if !isPromotionKind(kind) {
		return MoveResult{}, fmt.Errorf("%q: %w", kind.String(), ErrInvalidPromotion)
	}

	sq := *m.promotion
	pawn := m.board.Remove(sq)
	promoted := NewPiece(pawn.Color, kind)
	// a promoted rook can never castle
	promoted.markMoved()
	if _, err := m.board.Place(sq, promoted); err != nil {
		m.board.restore(sq, pawn)
		return MoveResult{}, err
	}
	m.promotion = nil

	mover := m.turn
	recs := m.history[mover]
	recs[len(recs)-1].Promotion = kind

	m.advanceTurn(true)
	return m.finishRecord(mover), nil
}

// finishRecord stamps the check status the last move produced on its record.
func (m *Match) finishRecord(mover Color) MoveResult {
	recs := m.history[mover]
	rec := &recs[len(recs)-1]
	rec.Check = m.checked
	m.logger.Debug().
		Str("color", mover.String()).
		Str("piece", rec.Piece.String()).
		Str("from", rec.From.String()).
		Str("to", rec.To.String()).
		Str("kind", rec.Kind.String()).
		Str("check", rec.Check.String()).
		Msg("Move committed")
	return m.result(*rec)
}

// advanceTurn hands the move to the other side and evaluates its position.
func (m *Match) advanceTurn(materialChanged bool) {
	m.turn = m.turn.Opponent()
	m.clock.Start(m.turn)
	m.settle(materialChanged)
}

// settle computes the check status of the side to move and ends the match on
// mate, stalemate or dead material.
func (m *Match) settle(materialChanged bool) {
	inCheck := isInCheck(m.board, m.turn)
	if inCheck {
		m.checked = InCheck
	} else {
		m.checked = NotInCheck
	}
	if materialChanged && insufficientMaterial(m.board) {
		m.finish(ReasonInsufficientMaterial, nil)
		return
	}
	if !m.CannotMove(m.turn) {
		return
	}
	if inCheck {
		m.checked = CheckMate
		winner := m.turn.Opponent()
		m.finish(ReasonCheckmate, &winner)
		return
	}
	m.finish(ReasonStalemate, nil)
}

func (m *Match) finish(reason Reason, winner *Color) {
	m.outcome = &Outcome{Reason: reason, Winner: winner}
	m.drawOffer = false
	m.selected = nil
	m.clock.Stop()
	ev := m.logger.Info().Str("reason", string(reason))
	if winner != nil {
		ev = ev.Str("winner", winner.String())
	}
	ev.Msg("Match over")
}

func (m *Match) result(rec MoveRecord) MoveResult {
	res := MoveResult{
		Applied:          true,
		From:             rec.From,
		To:               rec.To,
		Kind:             rec.Kind,
		Piece:            rec.Piece,
		Captured:         rec.Captured,
		Promotion:        rec.Promotion,
		PromotionPending: m.promotion != nil,
		Check:            m.checked,
	}
	m.stamp(&res)
	return res
}

// stamp copies the match-level fields into a result.
func (m *Match) stamp(res *MoveResult) {
	res.Turn = m.turn
	res.DrawAvailable = m.DrawAvailable()
	if m.outcome != nil {
		res.GameOver = true
		res.Reason = m.outcome.Reason
		res.Winner = m.outcome.Winner
	}
}

// OfferDraw records that the player to move wants a draw. It is only possible
// once the no-progress counter has reached NoProgressLimit.
func (m *Match) OfferDraw() error {
	if m.outcome != nil {
		return ErrGameOver
	}
	if !m.DrawAvailable() {
		return fmt.Errorf("%d of %d half-moves without progress: %w", m.noProgress, NoProgressLimit, ErrDrawUnavailable)
	}
	m.drawOffer = true
	return nil
}

// DrawOffered reports whether a draw offer is open.
func (m *Match) DrawOffered() bool {
	return m.drawOffer
}

// AcceptDraw ends the match in a draw after OfferDraw.
func (m *Match) AcceptDraw() (MoveResult, error) {
	if m.outcome != nil {
		return MoveResult{}, ErrGameOver
	}
	if !m.drawOffer || !m.DrawAvailable() {
		return MoveResult{}, fmt.Errorf("no open draw offer: %w", ErrDrawUnavailable)
	}
	m.finish(ReasonDrawAgreed, nil)
	return m.closing(), nil
}

// TimeElapsed ends the match as a loss for c when c's clock ran out. It is
// rejected for the side that is not on the clock.
func (m *Match) TimeElapsed(c Color) (MoveResult, error) {
	if m.outcome != nil {
		return MoveResult{}, ErrGameOver
	}
	if active := m.clock.Active(); active != c {
		return MoveResult{}, fmt.Errorf("%s reported, %s running: %w", c, active, ErrNotOnClock)
	}
	winner := c.Opponent()
	m.finish(ReasonTimeElapsed, &winner)
	return m.closing(), nil
}

// Resign ends the match as a loss for c.
func (m *Match) Resign(c Color) (MoveResult, error) {
	if m.outcome != nil {
		return MoveResult{}, ErrGameOver
	}
	winner := c.Opponent()
	m.finish(ReasonResignation, &winner)
	return m.closing(), nil
}

func (m *Match) closing() MoveResult {
	res := MoveResult{Check: m.checked}
	m.stamp(&res)
	return res
}

// Snapshot returns a copy of everything a renderer needs.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Turn:          m.turn,
		Status:        m.Status(),
		Check:         m.checked,
		NoProgress:    m.noProgress,
		DrawAvailable: m.DrawAvailable(),
		DrawOffered:   m.drawOffer,
		LastMove:      m.lastMove,
		WhiteClock:    m.clock.Seconds(White),
		BlackClock:    m.clock.Seconds(Black),
		History:       [2][]MoveRecord{m.History(White), m.History(Black)},
		Captured:      [2][]Kind{m.Captured(White), m.Captured(Black)},
		Outcome:       m.Outcome(),
		Material:      m.GetMaterialCount(),
	}
	for r := 0; r < Size; r++ {
		row := make([]byte, Size)
		for c := 0; c < Size; c++ {
			row[c] = pieceRune(m.board.At(Square{r, c}))
		}
		s.Board[r] = string(row)
	}
	if sq, ok := m.PromotionPending(); ok {
		s.PromotionSquare = &sq
	}
	return s
}
