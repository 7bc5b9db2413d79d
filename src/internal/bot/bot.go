// Package bot models the chat bots hosted by the gateway: their identity,
// connection state and the sessions their inbound messages arrive in.
package bot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Status is the connection state of a bot.
type Status int32

const (
	Offline Status = iota
	Online
	Connect
	Disconnect
	Reconnect
)

var statusClass = map[Status]string{
	Offline:    "offline",
	Online:     "online",
	Connect:    "connect",
	Disconnect: "disconnect",
	Reconnect:  "reconnect",
}

var statusLabels = map[string]map[Status]string{
	"zh-cn": {
		Offline:    "离线",
		Online:     "运行中",
		Connect:    "正在连接",
		Disconnect: "正在断开",
		Reconnect:  "正在重连",
	},
	"en": {
		Offline:    "Offline",
		Online:     "Running",
		Connect:    "Connecting",
		Disconnect: "Disconnecting",
		Reconnect:  "Reconnecting",
	},
}

// String returns the CSS class used for the status light.
func (s Status) String() string {
	if c, ok := statusClass[s]; ok {
		return c
	}
	return statusClass[Offline]
}

// Label returns the human readable state in the given locale, falling back
// to English.
func (s Status) Label(locale string) string {
	labels, ok := statusLabels[locale]
	if !ok {
		labels = statusLabels["en"]
	}
	if l, ok := labels[s]; ok {
		return l
	}
	return labels[Offline]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for st, class := range statusClass {
		if class == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown bot status %q", text)
}

// StatusCell holds a Status that may be updated from event handlers.
type StatusCell struct {
	v atomic.Int32
}

func (c *StatusCell) Load() Status   { return Status(c.v.Load()) }
func (c *StatusCell) Store(s Status) { c.v.Store(int32(s)) }

// User is the account a bot is logged in as.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Nick   string `json:"nick,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// DisplayName prefers the nickname over the account name.
func (u User) DisplayName() string {
	if u.Nick != "" {
		return u.Nick
	}
	return u.Name
}

// Bot is one connection to a chat platform.
type Bot interface {
	Platform() string
	SelfID() string
	Status() Status
	User() User
	Send(ctx context.Context, target, text string) error
	SendImage(ctx context.Context, target string, image []byte, caption string) error
	Run(ctx context.Context) error
}

// SID identifies a bot across platforms.
func SID(platform, selfID string) string {
	return platform + ":" + selfID
}

// Session is an inbound message addressed to a bot.
type Session struct {
	Bot       Bot
	Target    string // where replies go: a channel or the sender
	Author    string
	Content   string
	Timestamp time.Time
}

// SID returns the SID of the bot that received the message.
func (s *Session) SID() string {
	return SID(s.Bot.Platform(), s.Bot.SelfID())
}
