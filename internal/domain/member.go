// Package domain contains entity without logic, just meta-data
package domain

import "strings"

const MaxNicknameLen = 36

// Member is a connection's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	Nickname string
}

// NormalizeNickname trims and validates a client-supplied display name.
// Nicknames are not unique and not authenticated.
func NormalizeNickname(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if len(name) == 0 {
		return "", ErrNicknameEmpty
	}
	if len(name) > MaxNicknameLen {
		return "", ErrNicknameTooLong
	}
	return name, nil
}

func NewMember(nickname string) (*Member, error) {
	name, err := NormalizeNickname(nickname)
	if err != nil {
		return nil, err
	}
	return &Member{Nickname: name}, nil
}
