// Package command parses chat commands and applies them to the session store.
package command

import (
	"errors"
	"strings"
)

// ErrNeedMoreParameters is returned when a command lacks required arguments.
var ErrNeedMoreParameters = errors.New("need more parameters")

// Command is one inbound chat command or membership event.
// The set of implementations is closed: Register, Login, Ignore, Join, Quit, Part and Unknown.
type Command interface {
	command()
}

// Register asks to create an account for the sender.
type Register struct {
	Password string
}

// Login asks to start a session for the sender.
type Login struct {
	Password string
}

// Ignore adds Pattern to the sender's ignore list.
type Ignore struct {
	Pattern string
}

// Join is the sender entering the feed channel.
type Join struct{}

// Quit is the sender disconnecting.
type Quit struct{}

// Part is the sender leaving the feed channel.
type Part struct{}

// Unknown is a message that names no known command.
type Unknown struct {
	Raw string
}

func (Register) command() {}
func (Login) command()    {}
func (Ignore) command()   {}
func (Join) command()     {}
func (Quit) command()     {}
func (Part) command()     {}
func (Unknown) command()  {}

// Parse turns the text of a private message into a Command.
// Command words are case-insensitive, arguments keep their case.
// IGNORE joins all remaining tokens with single spaces.
//
// Membership events never arrive as text; transports build Join, Quit
// and Part directly.
func Parse(text string) (Command, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrNeedMoreParameters
	}

	switch strings.ToUpper(fields[0]) {
	case "REGISTER":
		if len(fields) < 2 {
			return nil, ErrNeedMoreParameters
		}
		return Register{Password: fields[1]}, nil
	case "LOGIN":
		if len(fields) < 2 {
			return nil, ErrNeedMoreParameters
		}
		return Login{Password: fields[1]}, nil
	case "IGNORE":
		if len(fields) < 2 {
			return nil, ErrNeedMoreParameters
		}
		return Ignore{Pattern: strings.Join(fields[1:], " ")}, nil
	default:
		return Unknown{Raw: strings.TrimSpace(text)}, nil
	}
}
