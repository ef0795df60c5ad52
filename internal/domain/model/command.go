package model

import (
	"strings"
	"time"
)

// CommandHandler is a command implementation known to the dispatcher.
type CommandHandler interface {
	Name() string
	Description() string
}

// HandlerLookup resolves a command name to its handler.
type HandlerLookup func(name string) (CommandHandler, bool)

// CommandInvocation is one command found in a comment. It is a value object;
// dispatch happens elsewhere.
type CommandInvocation struct {
	id        int64
	user      string
	handler   CommandHandler
	name      string
	args      string
	createdAt time.Time
}

// NewCommandInvocation builds an invocation. Arguments are trimmed and an
// unknown command name yields an invocation without a handler.
func NewCommandInvocation(id int64, user, name, rawArgs string, lookup HandlerLookup, createdAt time.Time) CommandInvocation {
	var handler CommandHandler
	if lookup != nil {
		if h, ok := lookup(name); ok {
			handler = h
		}
	}

	return CommandInvocation{
		id:        id,
		user:      user,
		handler:   handler,
		name:      name,
		args:      strings.TrimSpace(rawArgs),
		createdAt: createdAt,
	}
}

// ID returns the id of the comment the command was found in.
func (c CommandInvocation) ID() int64 { return c.id }

// User returns the handle of the comment author.
func (c CommandInvocation) User() string { return c.user }

// Handler returns the resolved handler, or false if the command is not recognized.
func (c CommandInvocation) Handler() (CommandHandler, bool) {
	return c.handler, c.handler != nil
}

func (c CommandInvocation) Name() string         { return c.name }
func (c CommandInvocation) Args() string         { return c.args }
func (c CommandInvocation) CreatedAt() time.Time { return c.createdAt }
