package domain

type RoomName string

// Room is the persisted view of a pre-provisioned room.
// Occupancy is a best-effort mirror of the live registry count.
type Room struct {
	Name      RoomName `json:"name"`
	Occupancy int      `json:"persistedOccupancy"`
}

// SeoulDistricts is the room set provisioned by cmd/seed.
var SeoulDistricts = []RoomName{
	"종로구", "중구", "용산구", "성동구", "광진구", "동대문구",
	"중랑구", "성북구", "강북구", "도봉구", "노원구", "은평구",
	"서대문구", "마포구", "양천구", "강서구", "구로구", "금천구",
	"영등포구", "동작구", "관악구", "서초구", "강남구", "송파구",
	"강동구",
}
