package main

import "errors"

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomFinished = errors.New("room is finished")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrCellOccupied = errors.New("cell is occupied")
	ErrInvalidToken = errors.New("invalid seat token")
	ErrInvalidRoom  = errors.New("invalid room settings")
)
