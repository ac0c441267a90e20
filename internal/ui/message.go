package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/loopauth/internal/server"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgResult MsgKind = iota
	MsgTick
	MsgBrowserOpened
)

// resultMsg is the constructor for [MsgResult]
func resultMsg(result server.Result) Msg {
	return Msg{kind: MsgResult, data: result}
}

// tickMsg is the constructor for [MsgTick]
func tickMsg(now time.Time) Msg {
	return Msg{kind: MsgTick, data: now}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
