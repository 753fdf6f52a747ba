package app

import (
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose send buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomName, sid core.SessionID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomName, core.SessionID) BackpressureAction {
	return KickMember
}
