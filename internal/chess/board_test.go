package chess

import (
	"errors"
	"testing"
)

func TestStandardBoard(t *testing.T) {
	b := StandardBoard()
	expected := "rnbqkbnr\n" +
		"pppppppp\n" +
		"........\n" +
		"........\n" +
		"........\n" +
		"........\n" +
		"PPPPPPPP\n" +
		"RNBQKBNR\n"
	if b.String() != expected {
		t.Errorf("Expected board\n%s\ngot\n%s", expected, b.String())
	}

	if k, ok := b.King(White); !ok || k != (Square{7, 4}) {
		t.Errorf("Expected white king on e1, got %v", k)
	}
	if k, ok := b.King(Black); !ok || k != (Square{0, 4}) {
		t.Errorf("Expected black king on e8, got %v", k)
	}

	count := 0
	b.Pieces(func(_ Square, p *Piece) {
		count++
		if p.HasMoved() {
			t.Errorf("Expected %s to be unmoved", p)
		}
	})
	if count != 32 {
		t.Errorf("Expected 32 pieces, got %d", count)
	}
}

func TestSquareNames(t *testing.T) {
	tests := []struct {
		name string
		sq   Square
	}{
		{"a8", Square{0, 0}},
		{"h8", Square{0, 7}},
		{"a1", Square{7, 0}},
		{"e1", Square{7, 4}},
		{"e4", Square{4, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSquare(tt.name)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.sq {
				t.Errorf("ParseSquare(%q) = %v, want %v", tt.name, got, tt.sq)
			}
			if tt.sq.String() != tt.name {
				t.Errorf("String() = %q, want %q", tt.sq.String(), tt.name)
			}
		})
	}

	for _, bad := range []string{"", "e", "i1", "a9", "a0", "e22", "E2"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestPlaceRejectsSecondKing(t *testing.T) {
	b := NewBoard()
	if _, err := b.Place(Square{7, 4}, NewPiece(White, King)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	_, err := b.Place(Square{7, 5}, NewPiece(White, King))
	if !errors.Is(err, ErrDuplicateKing) {
		t.Errorf("Expected ErrDuplicateKing, got %v", err)
	}
	if b.At(Square{7, 5}) != nil {
		t.Error("Expected the rejected king not to be placed")
	}

	// the same king may be put back where it already stands
	if _, err := b.Place(Square{7, 4}, NewPiece(White, King)); err != nil {
		t.Errorf("Unexpected error replacing king: %v", err)
	}
	if _, err := b.Place(Square{0, 4}, NewPiece(Black, King)); err != nil {
		t.Errorf("Unexpected error placing black king: %v", err)
	}
}

func TestMoveTracksKing(t *testing.T) {
	b := NewBoard()
	b.mustPlace(Square{7, 4}, NewPiece(White, King))
	b.mustPlace(Square{6, 5}, NewPiece(Black, Rook))

	captured := b.Move(Square{7, 4}, Square{6, 5})
	if captured == nil || captured.Kind != Rook {
		t.Errorf("Expected to capture the rook, got %v", captured)
	}
	if k, _ := b.King(White); k != (Square{6, 5}) {
		t.Errorf("Expected king cache on f2, got %v", k)
	}

	b.Remove(Square{6, 5})
	if _, ok := b.King(White); ok {
		t.Error("Expected no white king after removal")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := StandardBoard()
	c := b.Clone()
	c.Move(Square{6, 4}, Square{4, 4})
	c.At(Square{7, 7}).markMoved()

	if b.At(Square{4, 4}) != nil || b.At(Square{6, 4}) == nil {
		t.Error("Expected original board to be untouched by moves on the clone")
	}
	if b.At(Square{7, 7}).HasMoved() {
		t.Error("Expected original rook to be untouched by the clone")
	}
}
