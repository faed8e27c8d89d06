package chess

import (
	"testing"
)

func TestGetMaterialCount(t *testing.T) {
	tests := []struct {
		name    string
		fen     string
		moves   []string
		white   int
		black   int
		balance int
	}{
		{
			name:  "starting position",
			fen:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			white: 39,
			black: 39,
		},
		{
			name: "bare kings count nothing",
			fen:  "4k3/8/8/8/8/8/8/4K3 w - - 0 1",
		},
		{
			name:    "pawn waiting on the last rank is still a pawn",
			fen:     "4k3/P7/8/8/8/8/8/4K3 w - - 0 1",
			moves:   []string{"a7a8"},
			white:   1,
			balance: 1,
		},
		{
			name:    "promotion to a queen",
			fen:     "4k3/P7/8/8/8/8/8/4K3 w - - 0 1",
			moves:   []string{"a7a8q"},
			white:   9,
			balance: 9,
		},
		{
			name:    "capturing promotion to a knight",
			fen:     "1r2k3/P7/8/8/8/8/8/4K3 w - - 0 1",
			moves:   []string{"a7b8n"},
			white:   3,
			balance: 3,
		},
		{
			name:    "en passant removes the passed pawn",
			fen:     "4k3/3p4/8/4P3/8/8/8/4K3 b - - 0 1",
			moves:   []string{"d7d5", "e5d6"},
			white:   1,
			balance: 1,
		},
		{
			name:  "castling moves material without changing it",
			fen:   "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
			moves: []string{"e1g1", "e8c8"},
			white: 10,
			black: 10,
		},
		{
			name:    "black underpromotes to a rook",
			fen:     "4k3/8/8/8/8/8/p7/4K3 b - - 0 1",
			moves:   []string{"a2a1r"},
			black:   5,
			balance: -5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := matchFromFEN(t, tt.fen)
			play(t, m, tt.moves...)

			count := m.GetMaterialCount()
			if count.White != tt.white || count.Black != tt.black {
				t.Errorf("Expected %d-%d, got %d-%d", tt.white, tt.black, count.White, count.Black)
			}
			if balance := m.GetMaterialBalance(); balance != tt.balance {
				t.Errorf("Expected balance %d, got %d", tt.balance, balance)
			}
			if snap := m.Snapshot(); snap.Material != count {
				t.Errorf("Expected the snapshot to carry %+v, got %+v", count, snap.Material)
			}
		})
	}
}

func TestGetPieceValues(t *testing.T) {
	values := NewMatch().GetPieceValues()

	expected := map[string]int{
		"pawn":   1,
		"knight": 3,
		"bishop": 3,
		"rook":   5,
		"queen":  9,
		"king":   0,
	}
	for piece, want := range expected {
		if got, ok := values[piece]; !ok || got != want {
			t.Errorf("%s: expected %d, got %d (present %v)", piece, want, got, ok)
		}
	}
}

// Material lost by a side always equals the value of what it had captured
// from it, promotions aside.
func TestMaterialCountAfterCaptures(t *testing.T) {
	m := NewMatch()
	play(t, m, "e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a2", "a1a2")

	lost := func(c Color) int {
		total := 0
		for _, k := range m.Captured(c) {
			total += StandardPieceValues[k]
		}
		return total
	}

	count := m.GetMaterialCount()
	if count.White != 39-lost(White) || count.Black != 39-lost(Black) {
		t.Errorf("Expected material to match the captured lists, got %d-%d with %v and %v",
			count.White, count.Black, m.Captured(White), m.Captured(Black))
	}
	if count.White != 37 || count.Black != 29 {
		t.Errorf("Expected 37-29, got %d-%d", count.White, count.Black)
	}
	if balance := m.GetMaterialBalance(); balance != 8 {
		t.Errorf("Expected balance 8, got %d", balance)
	}
}
