package domain

import "errors"

var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUploadFailed     = errors.New("upload failed")
	ErrShortenFailed    = errors.New("shorten failed")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrRoomUnknown      = errors.New("room unknown")

	ErrNotJoined       = errors.New("not joined to room")
	ErrEmptyMessage    = errors.New("empty message")
	ErrNicknameEmpty   = errors.New("nickname empty")
	ErrNicknameTooLong = errors.New("nickname too long")
)
