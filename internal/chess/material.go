package chess

// GetMaterialCount sums the standard values of the pieces each side still has.
func (m *Match) GetMaterialCount() MaterialCount {
	var count MaterialCount
	m.board.Pieces(func(_ Square, p *Piece) {
		if p.Color == White {
			count.White += StandardPieceValues[p.Kind]
		} else {
			count.Black += StandardPieceValues[p.Kind]
		}
	})
	return count
}

// GetMaterialBalance is White's material minus Black's.
func (m *Match) GetMaterialBalance() int {
	count := m.GetMaterialCount()
	return count.White - count.Black
}

// GetPieceValues returns the piece values keyed by kind name.
func (m *Match) GetPieceValues() map[string]int {
	values := make(map[string]int, len(StandardPieceValues))
	for k, v := range StandardPieceValues {
		values[k.String()] = v
	}
	return values
}
