package model

import "errors"

var (
	// ErrUserIDRequired is returned when a join request is missing the user ID.
	ErrUserIDRequired = errors.New("userId is required")

	// ErrBoardIDRequired is returned when a join request is missing the board ID.
	ErrBoardIDRequired = errors.New("boardId is required")

	// ErrEventTypeRequired is returned when a broadcast request carries no event type.
	ErrEventTypeRequired = errors.New("event type is required")
)
