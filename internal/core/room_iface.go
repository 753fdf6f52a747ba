package core

import (
	"github.com/dkeye/chatrelay/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []SessionID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID      SessionID `json:"sid"`
	Nickname string    `json:"nickname"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Name() domain.RoomName
	MemberCount() int
	MembersSnapshot() []MemberDTO
	Has(sid SessionID) bool

	// AddMember reports whether sid was not a member before the call.
	AddMember(sid SessionID, ms MemberSession) bool
	// RemoveMember reports whether sid was a member before the call.
	RemoveMember(sid SessionID) bool
	Broadcast(data Frame) PublishResult
	SendTo(sid SessionID, data Frame) error
}

// RoomInfo is the live view of a room.
type RoomInfo struct {
	Name      domain.RoomName `json:"name"`
	Occupancy int             `json:"occupancy"`
}
