package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/LHYWilliam/roomchat/internal/core"
)

// ChatHandlers exposes the chat registry's administrative operations:
// user/room create, list, delete, and the two membership read views. These
// mutate registry state only; live sessions observe the changes on their
// next directive.
type ChatHandlers struct {
	reg *core.Registry
	log *zerolog.Logger
}

// NewChatHandlers creates a new chat admin handlers instance.
func NewChatHandlers(reg *core.Registry, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		reg: reg,
		log: logger,
	}
}

// NameRequest carries the single name field used by create operations.
type NameRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// NameResponse echoes the entity the operation touched.
type NameResponse struct {
	Name string `json:"name"`
}

// CreateUser registers a chat user.
// POST /chat/user
func (h *ChatHandlers) CreateUser(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create user request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.reg.RegisterUser(req.Name); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
			return
		}
		h.log.Error().Err(err).Str("user", req.Name).Msg("failed to register user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user", req.Name).Msg("chat user registered")
	c.JSON(http.StatusCreated, NameResponse{Name: req.Name})
}

// ListUsers lists registered chat users.
// GET /chat/user
func (h *ChatHandlers) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.reg.Users())
}

// DeleteUser removes a chat user and all of its memberships.
// DELETE /chat/user?name=<user>
func (h *ChatHandlers) DeleteUser(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	if err := h.reg.DeleteUser(name); err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
			return
		}
		h.log.Error().Err(err).Str("user", name).Msg("failed to delete user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("user", name).Msg("chat user deleted")
	c.JSON(http.StatusOK, NameResponse{Name: name})
}

// CreateRoom creates a room.
// POST /chat/room
func (h *ChatHandlers) CreateRoom(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.reg.CreateRoom(req.Name); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		h.log.Error().Err(err).Str("room", req.Name).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room", req.Name).Msg("room created")
	c.JSON(http.StatusCreated, NameResponse{Name: req.Name})
}

// ListRooms lists rooms.
// GET /chat/room
func (h *ChatHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.reg.Rooms())
}

// DeleteRoom removes a room and evicts every member.
// DELETE /chat/room?name=<room>
func (h *ChatHandlers) DeleteRoom(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name is required"})
		return
	}

	if err := h.reg.DeleteRoom(name); err != nil {
		if errors.Is(err, core.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room", name).Msg("failed to delete room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("room", name).Msg("room deleted")
	c.JSON(http.StatusOK, NameResponse{Name: name})
}

// ListUserRooms reports which rooms each user has joined.
// GET /chat/user_rooms
func (h *ChatHandlers) ListUserRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.reg.UserRooms())
}

// ListRoomUsers reports each room's members.
// GET /chat/room_users
func (h *ChatHandlers) ListRoomUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.reg.RoomUsers())
}
