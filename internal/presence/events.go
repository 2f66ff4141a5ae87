package presence

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Inbound event names.
const (
	EventRegister     = "register"
	EventNewMessage   = "new-message"
	EventResetCount   = "reset-count"
	EventCreateGroup  = "create-group"
	EventJoinGroup    = "join-group"
	EventGroupMessage = "group-message"
)

// Outbound event names.
const (
	EventUsers                = "users"
	EventMessageReceived      = "message-received"
	EventUnreadCountUpdate    = "unread-count-update"
	EventResetConfirmed       = "reset-confirmed"
	EventGroupCreated         = "group-created"
	EventUserJoined           = "user-joined"
	EventGroupMessageReceived = "group-message-received"
)

var validate = validator.New()

// Envelope is the wire frame for inbound events.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is an event addressed to one or more sessions. It marshals to the
// same {"event", "data"} frame clients send.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Inbound is implemented by every decoded client event.
type Inbound interface {
	Kind() string
}

type Register struct {
	Identity string `validate:"required"`
}

func (Register) Kind() string { return EventRegister }

// DirectMessage is both the new-message payload and the message-received
// payload delivered to the recipient.
type DirectMessage struct {
	To      string `json:"to" validate:"required"`
	From    string `json:"from" validate:"required"`
	Content string `json:"content" validate:"required"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

func (DirectMessage) Kind() string { return EventNewMessage }

type ResetCount struct {
	Identity string `validate:"required"`
}

func (ResetCount) Kind() string { return EventResetCount }

type Member struct {
	UserID string `json:"userID" validate:"required"`
}

type CreateGroup struct {
	GroupName string   `json:"groupName" validate:"required"`
	Members   []Member `json:"members" validate:"required,dive"`
}

func (CreateGroup) Kind() string { return EventCreateGroup }

type JoinGroup struct {
	GroupName string `json:"groupName" validate:"required"`
}

func (JoinGroup) Kind() string { return EventJoinGroup }

type GroupMessage struct {
	GroupName string `json:"groupName" validate:"required"`
	From      string `json:"from" validate:"required"`
	Message   string `json:"message" validate:"required"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

func (GroupMessage) Kind() string { return EventGroupMessage }

// RosterEntry is one line of the users broadcast. Username is empty for
// sessions that never registered.
type RosterEntry struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Unread   int    `json:"unread"`
}

// CountUpdate carries both unread-count-update and reset-confirmed.
type CountUpdate struct {
	User  string `json:"user"`
	Count int    `json:"count"`
}

type GroupCreated struct {
	GroupName string   `json:"groupName"`
	Members   []Member `json:"members"`
}

type UserJoined struct {
	GroupName string `json:"groupName"`
	UserID    string `json:"userId"`
}

type GroupMessageReceived struct {
	GroupName string `json:"groupName"`
	From      string `json:"from"`
	Content   string `json:"content"`
	Username  string `json:"username"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// DecodeInbound parses a client frame into its typed event and validates the
// required fields. Failures wrap ErrMalformedPayload or ErrUnknownEvent.
func DecodeInbound(raw []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var (
		event Inbound
		err   error
	)
	switch env.Event {
	case EventRegister:
		var identity string
		identity, err = decodeString(env.Data)
		event = Register{Identity: identity}
	case EventResetCount:
		var identity string
		identity, err = decodeString(env.Data)
		event = ResetCount{Identity: identity}
	case EventNewMessage:
		event, err = decodeObject[DirectMessage](env.Data)
	case EventCreateGroup:
		event, err = decodeObject[CreateGroup](env.Data)
	case EventJoinGroup:
		event, err = decodeObject[JoinGroup](env.Data)
	case EventGroupMessage:
		event, err = decodeObject[GroupMessage](env.Data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Event, err)
	}

	if err := validate.Struct(event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, env.Event, err)
	}
	return event, nil
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	err := json.Unmarshal(data, &s)
	return s, err
}

func decodeObject[T Inbound](data json.RawMessage) (Inbound, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
