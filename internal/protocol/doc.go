// Package protocol implements a line-oriented text protocol for driving a timer. Each input line
// holds one command; each command produces one or more reply lines. Failed commands produce an
// "error: " reply and never end the session.
package protocol
