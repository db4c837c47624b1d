package dtos

import (
	"github.com/iota-uz/bookings-admin/pkg/constants"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
	"github.com/iota-uz/bookings-admin/pkg/view"
)

const (
	MessageFilter  = "filter"
	MessageFollow  = "follow"
	MessageReload  = "reload"
	MessageDismiss = "dismiss"
)

// ClientMessage is sent by the browser over the view socket.
type ClientMessage struct {
	Type    string            `json:"type" validate:"required,oneof=filter follow reload dismiss"`
	Filters querysync.Filters `json:"filters" validate:"required_if=Type filter"`
	Link    *pagination.Link  `json:"link" validate:"required_if=Type follow"`
}

func (m *ClientMessage) Ok() (string, bool) {
	if err := constants.Validate.Struct(m); err != nil {
		return err.Error(), false
	}
	return "", true
}

// ServerMessage is pushed to the browser.
type ServerMessage struct {
	Type    string      `json:"type"`
	State   *view.State `json:"state,omitempty"`
	Message string      `json:"message,omitempty"`
}

func StateMessage(st view.State) *ServerMessage {
	return &ServerMessage{Type: "state", State: &st}
}

func ErrorMessage(msg string) *ServerMessage {
	return &ServerMessage{Type: "error", Message: msg}
}
