package http

import (
	"errors"
	"io"
	nethttp "net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/chatrelay/internal/app/orch"
	"github.com/dkeye/chatrelay/internal/core"
	"github.com/dkeye/chatrelay/internal/domain"
)

// multipartSlack covers the form fields and part headers around the file.
const multipartSlack = 1 << 20

type handlers struct {
	orch     *orch.Orchestrator
	objects  core.ObjectStore
	maxBytes int64
}

// listServer reports persisted occupancy, sorted by room name.
func (h *handlers) listServer(c *gin.Context) {
	rooms, err := h.orch.Rooms.ListRooms(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list rooms")
		c.String(nethttp.StatusInternalServerError, "failed to list rooms")
		return
	}
	slices.SortFunc(rooms, func(a, b domain.Room) int {
		return strings.Compare(string(a.Name), string(b.Name))
	})
	c.JSON(nethttp.StatusOK, rooms)
}

func (h *handlers) liveRooms(c *gin.Context) {
	c.JSON(nethttp.StatusOK, h.orch.LiveRooms())
}

// upload is the synchronous attachment path: the response carries the
// broadcast message, and nothing is broadcast on failure.
func (h *handlers) upload(c *gin.Context) {
	c.Request.Body = nethttp.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartSlack)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *nethttp.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(nethttp.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
			return
		}
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	defer file.Close()

	msg, err := h.orch.Upload(c.Request.Context(), orch.MessageInput{
		Room:     domain.RoomName(c.PostForm("room")),
		Nickname: c.PostForm("nickname"),
		Text:     c.PostForm("text"),
		Attachment: &orch.AttachmentInput{
			Name: header.Filename,
			Size: header.Size,
			Body: file,
		},
	})
	switch {
	case err == nil:
		c.JSON(nethttp.StatusOK, msg)
	case errors.Is(err, domain.ErrPayloadTooLarge):
		c.JSON(nethttp.StatusRequestEntityTooLarge, gin.H{"error": "payload_too_large"})
	case errors.Is(err, domain.ErrRoomUnknown):
		c.JSON(nethttp.StatusNotFound, gin.H{"error": "room_unknown"})
	case errors.Is(err, domain.ErrNicknameEmpty), errors.Is(err, domain.ErrNicknameTooLong):
		c.JSON(nethttp.StatusBadRequest, gin.H{"error": "invalid_nickname"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Str("file", header.Filename).Msg("upload failed")
		c.JSON(nethttp.StatusInternalServerError, gin.H{"error": "upload_failed"})
	}
}

func (h *handlers) media(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.Status(nethttp.StatusNotFound)
		return
	}
	rc, info, err := h.objects.Get(c.Request.Context(), key)
	if errors.Is(err, core.ErrObjectNotFound) {
		c.Status(nethttp.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("key", key).Msg("media get")
		c.Status(nethttp.StatusBadGateway)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", info.ContentType)
	c.Header("Content-Length", strconv.FormatUint(info.Size, 10))
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(nethttp.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Str("key", key).Msg("media stream interrupted")
	}
}
