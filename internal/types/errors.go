package types

import "errors"

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionCorrupt    = errors.New("session data is invalid, please recreate your character")
	ErrNoActiveMission   = errors.New("no active mission")
	ErrMissionNotFound   = errors.New("mission not found")
	ErrMissionInProgress = errors.New("mission already in progress")
	ErrCombatPending     = errors.New("combat must be resolved first")
	ErrInvalidClass      = errors.New("invalid character class")
	ErrInvalidRank       = errors.New("invalid rank")
	ErrInvalidWeapon     = errors.New("invalid weapon")
	ErrInvalidName       = errors.New("character name is required")
	ErrArchiveNotFound   = errors.New("archived narrative not found")
	ErrNoPendingCombat   = errors.New("no combat pending")
	ErrItemUnavailable   = errors.New("item not available")
	ErrGenerationFailed  = errors.New("narrative generation failed")
)
