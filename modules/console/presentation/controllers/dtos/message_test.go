package dtos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iota-uz/bookings-admin/pkg/pagination"
	"github.com/iota-uz/bookings-admin/pkg/querysync"
)

func TestClientMessage_Ok(t *testing.T) {
	t.Parallel()

	target := "/bookings?page=2"
	tests := []struct {
		name string
		msg  ClientMessage
		ok   bool
	}{
		{"filter", ClientMessage{Type: MessageFilter, Filters: querysync.Filters{"search": ""}}, true},
		{"filter without filters", ClientMessage{Type: MessageFilter}, false},
		{"follow", ClientMessage{Type: MessageFollow, Link: &pagination.Link{Target: &target, Label: "2"}}, true},
		{"follow without link", ClientMessage{Type: MessageFollow}, false},
		{"reload", ClientMessage{Type: MessageReload}, true},
		{"dismiss", ClientMessage{Type: MessageDismiss}, true},
		{"unknown", ClientMessage{Type: "delete"}, false},
		{"empty", ClientMessage{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := tt.msg.Ok()
			assert.Equal(t, tt.ok, ok)
		})
	}
}
