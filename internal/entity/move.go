package entity

type Move struct {
	Cell int  `json:"cell"`
	Mark Mark `json:"mark"`
}

// MoveAt - builds a move from row and column. Coordinates outside the grid
// produce the out of bounds cell -1 so the rules engine rejects the move.
func MoveAt(size, row, column int, mark Mark) Move {
	if row < 0 || row >= size || column < 0 || column >= size {
		return Move{Cell: -1, Mark: mark}
	}

	return Move{Cell: row*size + column, Mark: mark}
}

// Row - the row of the cell, -1 for the out of bounds cell of MoveAt.
func (that Move) Row(size int) int {
	if that.Cell < 0 {
		return -1
	}
	return that.Cell / size
}

// Column - the column of the cell, -1 for the out of bounds cell of MoveAt.
func (that Move) Column(size int) int {
	if that.Cell < 0 {
		return -1
	}
	return that.Cell % size
}
