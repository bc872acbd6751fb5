// Package client defines bank customers and their builder.
package client

import (
	"fmt"
	"strings"

	"github.com/lab-banks/banks/internal/id"
	"github.com/lab-banks/banks/internal/model"
)

const passportDigits = 10

var (
	// ErrMissingData is returned by Build when name or surname is blank.
	ErrMissingData = fmt.Errorf("%w: necessary data not specified", model.ErrValidation)

	// ErrInvalidPassport is returned for passport numbers that are not 10 digits.
	ErrInvalidPassport = fmt.Errorf("%w: passport number must be %d digits", model.ErrValidation, passportDigits)
)

// PassportNumber is a validated 10-digit passport number.
type PassportNumber string

// ParsePassportNumber validates s as a passport number.
func ParsePassportNumber(s string) (PassportNumber, error) {
	s = strings.TrimSpace(s)
	if len(s) != passportDigits {
		return "", fmt.Errorf("%w: %q", ErrInvalidPassport, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidPassport, s)
		}
	}
	return PassportNumber(s), nil
}

func (p PassportNumber) String() string { return string(p) }

// Client is an immutable customer identity.
type Client struct {
	id       string
	name     string
	surname  string
	address  string
	passport PassportNumber
}

// ID returns the client identifier assigned at build time.
func (c *Client) ID() string { return c.id }

// Name returns the first name.
func (c *Client) Name() string { return c.name }

// Surname returns the last name.
func (c *Client) Surname() string { return c.surname }

// FullName returns "Name Surname".
func (c *Client) FullName() string { return c.name + " " + c.surname }

// Address returns the address and whether one was given.
func (c *Client) Address() (string, bool) { return c.address, c.address != "" }

// Passport returns the passport number and whether one was given.
func (c *Client) Passport() (PassportNumber, bool) { return c.passport, c.passport != "" }

// SubscriberID identifies the client as a notification subscriber: the
// passport number when present, otherwise the client ID.
func (c *Client) SubscriberID() string {
	if c.passport != "" {
		return c.passport.String()
	}
	return c.id
}

// Notified is the subscriber hook. Clients take no action themselves.
func (c *Client) Notified(model.Notification) {}

// WithAddress returns a copy of c with a new address.
func (c *Client) WithAddress(address string) (*Client, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("%w: address is blank", model.ErrValidation)
	}
	cp := *c
	cp.address = address
	return &cp, nil
}

// WithPassport returns a copy of c with a new passport number. The copy keeps
// the client ID.
func (c *Client) WithPassport(passport string) (*Client, error) {
	p, err := ParsePassportNumber(passport)
	if err != nil {
		return nil, err
	}
	cp := *c
	cp.passport = p
	return &cp, nil
}

// Builder assembles a Client. Name and surname are required.
type Builder struct {
	name     string
	surname  string
	address  string
	passport PassportNumber
	err      error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Name sets the first name.
func (b *Builder) Name(name string) *Builder {
	b.name = strings.TrimSpace(name)
	return b
}

// Surname sets the last name.
func (b *Builder) Surname(surname string) *Builder {
	b.surname = strings.TrimSpace(surname)
	return b
}

// Address sets the optional address.
func (b *Builder) Address(address string) *Builder {
	b.address = strings.TrimSpace(address)
	return b
}

// Passport sets the optional passport number. An invalid number is reported by Build.
func (b *Builder) Passport(passport string) *Builder {
	p, err := ParsePassportNumber(passport)
	if err != nil {
		b.err = err
		return b
	}
	b.passport = p
	return b
}

// Build returns the client or the first error collected.
func (b *Builder) Build() (*Client, error) {
	if b.name == "" || b.surname == "" {
		return nil, fmt.Errorf("%w: client's name or surname is missing", ErrMissingData)
	}
	if b.err != nil {
		return nil, b.err
	}
	return &Client{
		id:       id.New(),
		name:     b.name,
		surname:  b.surname,
		address:  b.address,
		passport: b.passport,
	}, nil
}
