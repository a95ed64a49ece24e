package mailer

import (
	"fmt"
	"strings"
)

// ContentType selects which body part a message is sent as.
type ContentType string

const (
	TextPlain ContentType = "text/plain"
	TextHTML  ContentType = "text/html"
)

func (c ContentType) IsValid() bool {
	switch c {
	case TextPlain, TextHTML:
		return true
	default:
		return false
	}
}

// StoredPassword is an SMTP password encrypted under a user's mail key.
// Both fields are hex encoded.
type StoredPassword struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

// Account is the SMTP account mail is sent through.
type Account struct {
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	Username string         `json:"username"`
	Password StoredPassword `json:"password"`
}

func (a Account) addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Message is one mail addressed to any number of recipients.
type Message struct {
	From        string      `json:"from"`
	To          []string    `json:"to"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body"`
	ContentType ContentType `json:"contentType"`
}

// DeliveryError lists recipients that could not be reached even after a
// retry. Other recipients of the same message were delivered.
type DeliveryError struct {
	Failed []string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed for %d recipient(s): %s", len(e.Failed), strings.Join(e.Failed, ", "))
}
