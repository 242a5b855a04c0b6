// Copyright (c) 2025 cocowh. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package models holds the wire types shared by the REST client and the
// gateway. Field names follow the instance's JSON schema.
package models

import "encoding/json"

// Message is a chat message as posted to /messages and broadcast by the
// gateway.
type Message struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

// InstanceInfo is returned by GET on the instance root.
type InstanceInfo struct {
	InstanceName       string  `json:"instance_name"`
	Description        *string `json:"description,omitempty"`
	Version            string  `json:"version,omitempty"`
	MessageLimit       int     `json:"message_limit,omitempty"`
	OprishURL          string  `json:"oprish_url,omitempty"`
	PandemoniumURL     *string `json:"pandemonium_url,omitempty"`
	EffisURL           string  `json:"effis_url,omitempty"`
	FileSize           uint64  `json:"file_size,omitempty"`
	AttachmentFileSize uint64  `json:"attachment_file_size,omitempty"`
}

type StatusType string

const (
	StatusOnline  StatusType = "ONLINE"
	StatusOffline StatusType = "OFFLINE"
	StatusIdle    StatusType = "IDLE"
	StatusBusy    StatusType = "BUSY"
)

type Status struct {
	Type StatusType `json:"type"`
	Text *string    `json:"text,omitempty"`
}

type User struct {
	ID          uint64  `json:"id"`
	Username    string  `json:"username"`
	DisplayName *string `json:"display_name,omitempty"`
	Status      Status  `json:"status"`
	Bio         *string `json:"bio,omitempty"`
	Avatar      *uint64 `json:"avatar,omitempty"`
	Banner      *uint64 `json:"banner,omitempty"`
	Badges      uint64  `json:"badges,omitempty"`
	Permissions uint64  `json:"permissions,omitempty"`
}

// Payload is the gateway envelope: {"op": OP, "d": data}.
type Payload struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"d,omitempty"`
}

type Hello struct {
	HeartbeatInterval uint64        `json:"heartbeat_interval"`
	InstanceInfo      *InstanceInfo `json:"instance_info,omitempty"`
}

type RateLimit struct {
	Wait uint64 `json:"wait"`
}

type Authenticated struct {
	User  User   `json:"user"`
	Users []User `json:"users"`
}

type PresenceUpdate struct {
	UserID uint64 `json:"user_id"`
	Status Status `json:"status"`
}
