package chess

// isInCheck reports whether any piece of the other color attacks c's king.
// A board without that king is never in check.
func isInCheck(b *Board, c Color) bool {
	king, ok := b.King(c)
	if !ok {
		return false
	}
	for r := 0; r < Size; r++ {
		for col := 0; col < Size; col++ {
			sq := Square{r, col}
			if p := b.At(sq); p != nil && p.Color != c && p.attacks(b, sq, king) {
				return true
			}
		}
	}
	return false
}

// candidates lists the destinations worth trying for the piece on src. Every
// legal move is among them; most are filtered out by validMove.
func candidates(p *Piece, src Square) []Square {
	var out []Square
	add := func(dr, dc int) {
		if sq := (Square{src.Row + dr, src.Col + dc}); sq.Valid() {
			out = append(out, sq)
		}
	}
	ray := func(dr, dc int) {
		for i := 1; i < Size; i++ {
			add(i*dr, i*dc)
		}
	}

	switch p.Kind {
	case King:
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if dr != 0 || dc != 0 {
					add(dr, dc)
				}
			}
		}
		add(0, 2)
		add(0, -2)
	case Queen:
		for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
			ray(d[0], d[1])
		}
	case Rook:
		for _, d := range [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
			ray(d[0], d[1])
		}
	case Bishop:
		for _, d := range [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
			ray(d[0], d[1])
		}
	case Knight:
		for _, d := range [][2]int{{1, 2}, {1, -2}, {-1, 2}, {-1, -2}, {2, 1}, {2, -1}, {-2, 1}, {-2, -1}} {
			add(d[0], d[1])
		}
	case Pawn:
		dir := p.Color.forward()
		add(dir, 0)
		add(2*dir, 0)
		add(dir, 1)
		add(dir, -1)
	}
	return out
}

// insufficientMaterial reports whether neither side can possibly mate: no queen,
// rook or pawn anywhere, at most one minor piece per side, and never a minor
// piece on both sides at once.
func insufficientMaterial(b *Board) bool {
	var minors [2]int
	draw := true
	b.Pieces(func(_ Square, p *Piece) {
		switch p.Kind {
		case King:
		case Bishop, Knight:
			minors[p.Color]++
		default:
			draw = false
		}
	})
	if !draw {
		return false
	}
	if minors[White] > 1 || minors[Black] > 1 {
		return false
	}
	return minors[White] == 0 || minors[Black] == 0
}
