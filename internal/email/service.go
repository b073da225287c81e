package email

import (
	"context"
)

// Service delivers plain transactional mail.
type Service interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}
