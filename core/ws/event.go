// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ws

import (
	"github.com/cocowh/eludris/core/constant"
	"github.com/cocowh/eludris/core/models"
)

// Event is one inbound gateway occurrence. Switch on the concrete type:
//
//	switch ev := ev.(type) {
//	case *ws.MessageEvent:
//	case *ws.PresenceUpdateEvent:
//	}
//
// New kinds may be added; consumers should ignore types they do not know.
type Event interface {
	Op() string
}

// MessageEvent is a MESSAGE_CREATE payload.
type MessageEvent struct {
	models.Message
}

func (*MessageEvent) Op() string { return constant.OpMessageCreate }

// AuthenticatedEvent is delivered once the gateway accepted the token.
type AuthenticatedEvent struct {
	User  models.User   `json:"user"`
	Users []models.User `json:"users"`
}

func (*AuthenticatedEvent) Op() string { return constant.OpAuthenticated }

// UserUpdateEvent carries the new user and, when it was known, the
// previous one.
type UserUpdateEvent struct {
	Old  *models.User `json:"old,omitempty"`
	User models.User  `json:"user"`
}

func (*UserUpdateEvent) Op() string { return constant.OpUserUpdate }

type PresenceUpdateEvent struct {
	OldStatus *models.Status `json:"old_status,omitempty"`
	UserID    uint64         `json:"user_id"`
	Status    models.Status  `json:"status"`
}

func (*PresenceUpdateEvent) Op() string { return constant.OpPresenceUpdate }

// GatewayData is what the session learned about users.
type GatewayData struct {
	User  *models.User
	Users map[uint64]models.User
}

func (d *GatewayData) clone() GatewayData {
	out := GatewayData{Users: make(map[uint64]models.User, len(d.Users))}
	if d.User != nil {
		u := *d.User
		out.User = &u
	}
	for id, u := range d.Users {
		out.Users[id] = u
	}
	return out
}
