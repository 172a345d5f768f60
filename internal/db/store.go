package db

import (
	"database/sql"

	"quill/internal/models"
)

// TurnStore adapts the turns table to the chat pipeline's history
// interface.
type TurnStore struct {
	Conn *sql.DB
}

func (s TurnStore) Append(t models.ChatTurn) error {
	return InsertTurn(s.Conn, t)
}
