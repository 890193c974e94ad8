package core

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Router applies one client directive to the registry and fans the
// resulting message out to the addressed room's current members. Directive
// errors are returned to the gateway, which drops the directive and keeps
// the session alive; a failed delivery to one recipient never aborts the
// rest of the fan-out.
type Router struct {
	reg      *Registry
	log      *zerolog.Logger
	echoSelf bool
}

// NewRouter builds a router over the shared registry. When echoSelf is
// false, a user's own content messages and join notices are not delivered
// back to them.
func NewRouter(reg *Registry, logger *zerolog.Logger, echoSelf bool) *Router {
	return &Router{reg: reg, log: logger, echoSelf: echoSelf}
}

// HandleJoin subscribes the user to a room and announces it to the members.
func (r *Router) HandleJoin(user, room string) error {
	if err := r.reg.JoinRoom(user, room); err != nil {
		return err
	}

	skip := ""
	if !r.echoSelf {
		skip = user
	}
	notice := NewChannelMessage(room, user, fmt.Sprintf("%s joined %s", user, room))
	r.fanOut(notice, skip)
	return nil
}

// HandleLeave unsubscribes the user and notifies the remaining members.
// The leaver is never notified; they issued the directive.
func (r *Router) HandleLeave(user, room string) error {
	if err := r.reg.LeaveRoom(user, room); err != nil {
		return err
	}

	notice := NewChannelMessage(room, user, fmt.Sprintf("%s left %s", user, room))
	r.fanOut(notice, user)
	return nil
}

// HandleContent delivers a chat message to the room. The sender identity is
// always the authenticated user; anything the client claimed is ignored.
// Non-members cannot inject messages into a room.
func (r *Router) HandleContent(user, room, text string) error {
	if !r.isMember(user, room) {
		return ErrNotMember
	}

	skip := ""
	if !r.echoSelf {
		skip = user
	}
	r.fanOut(NewChannelMessage(room, user, text), skip)
	return nil
}

// Disconnect runs session-teardown cleanup: the user leaves every room with
// a notice to the remaining members, then the presence slot is released.
// Safe to call for a user deleted mid-session.
func (r *Router) Disconnect(user string) {
	defer r.reg.Detach(user)

	rooms, err := r.reg.RoomsOf(user)
	if err != nil {
		return
	}
	for _, room := range rooms {
		if err := r.reg.LeaveRoom(user, room); err != nil {
			continue
		}
		notice := NewChannelMessage(room, user, fmt.Sprintf("%s left %s", user, room))
		r.fanOut(notice, user)
	}
}

func (r *Router) isMember(user, room string) bool {
	rooms, err := r.reg.RoomsOf(user)
	if err != nil {
		return false
	}
	for _, joined := range rooms {
		if joined == room {
			return true
		}
	}
	return false
}

// fanOut enqueues the message on every member's mailbox except skip. A full
// or closed mailbox costs that recipient the message, nobody else.
func (r *Router) fanOut(msg *ChannelMessage, skip string) {
	recipients, err := r.reg.recipients(msg.Room)
	if err != nil {
		// The room was deleted between mutation and fan-out.
		r.log.Debug().Str("room", msg.Room).Msg("fan-out target room gone")
		return
	}

	for _, rcpt := range recipients {
		if rcpt.name == skip {
			continue
		}
		if err := rcpt.box.Deliver(msg); err != nil {
			r.log.Warn().
				Str("room", msg.Room).
				Str("user", rcpt.name).
				Msg("dropped delivery for slow or gone recipient")
		}
	}
}
