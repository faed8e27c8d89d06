package chess

import "fmt"

type GameStatus string

const (
	StatusActive           GameStatus = "active"
	StatusPromotionPending GameStatus = "promotion_pending"
	StatusDraw             GameStatus = "draw"
	StatusWhiteWon         GameStatus = "white_won"
	StatusBlackWon         GameStatus = "black_won"
)

// CheckStatus is the check state of the side to move.
type CheckStatus uint8

const (
	NotInCheck CheckStatus = iota
	InCheck
	CheckMate
)

func (c CheckStatus) String() string {
	switch c {
	case InCheck:
		return "check"
	case CheckMate:
		return "checkmate"
	default:
		return "none"
	}
}

// Reason explains why a match ended.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonCheckmate            Reason = "checkmate"
	ReasonStalemate            Reason = "stalemate"
	ReasonInsufficientMaterial Reason = "insufficient_material"
	ReasonDrawAgreed           Reason = "draw_agreed"
	ReasonTimeElapsed          Reason = "time_elapsed"
	ReasonResignation          Reason = "resignation"
)

// Outcome is the terminal state of a match. Winner is nil for draws.
type Outcome struct {
	Reason Reason `json:"reason"`
	Winner *Color `json:"winner,omitempty"`
}

// Draw reports whether nobody won.
func (o Outcome) Draw() bool {
	return o.Winner == nil
}

// MoveResult describes what a mutating call did.
type MoveResult struct {
	Applied          bool        `json:"applied"`
	From             Square      `json:"from"`
	To               Square      `json:"to"`
	Kind             MoveKind    `json:"kind"`
	Piece            Kind        `json:"piece"`
	Captured         Kind        `json:"captured,omitempty"`
	Promotion        Kind        `json:"promotion,omitempty"`
	PromotionPending bool        `json:"promotionPending"`
	Check            CheckStatus `json:"check"`
	Turn             Color       `json:"turn"`
	DrawAvailable    bool        `json:"drawAvailable"`
	GameOver         bool        `json:"gameOver"`
	Reason           Reason      `json:"reason,omitempty"`
	Winner           *Color      `json:"winner,omitempty"`
}

// MoveRecord is one entry of a side's move history.
type MoveRecord struct {
	Piece     Kind        `json:"piece"`
	From      Square      `json:"from"`
	To        Square      `json:"to"`
	Kind      MoveKind    `json:"kind"`
	Captured  Kind        `json:"captured,omitempty"`
	Check     CheckStatus `json:"check"`
	Promotion Kind        `json:"promotion,omitempty"`
}

// Snapshot is a read-only view of a match for callers that render it.
type Snapshot struct {
	Board           [Size]string    `json:"board"`
	Turn            Color           `json:"turn"`
	Status          GameStatus      `json:"status"`
	Check           CheckStatus     `json:"check"`
	NoProgress      int             `json:"noProgress"`
	DrawAvailable   bool            `json:"drawAvailable"`
	DrawOffered     bool            `json:"drawOffered"`
	LastMove        LastMove        `json:"lastMove"`
	WhiteClock      int64           `json:"whiteClock"`
	BlackClock      int64           `json:"blackClock"`
	History         [2][]MoveRecord `json:"history"`
	Captured        [2][]Kind       `json:"captured"`
	PromotionSquare *Square         `json:"promotionSquare,omitempty"`
	Outcome         *Outcome        `json:"outcome,omitempty"`
	Material        MaterialCount   `json:"material"`
}

// MaterialCount represents the material count for both sides
type MaterialCount struct {
	White int `json:"white"`
	Black int `json:"black"`
}

// StandardPieceValues maps piece kinds to their usual values.
var StandardPieceValues = map[Kind]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
	King:   0, // King has no material value
}

func (c CheckStatus) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *CheckStatus) UnmarshalText(b []byte) error {
	for v := NotInCheck; v <= CheckMate; v++ {
		if v.String() == string(b) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown check status %q", b)
}
