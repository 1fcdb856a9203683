package server

import "kartnet/pkg/protocol"

type EventKind int

const (
	EventUnknown EventKind = iota
	EventMalformed
	EventCreateLobby
	EventJoinLobby
	EventLeaveLobby
	EventListLobbies
	EventStartLobby
	EventInput
	EventPing
	EventResume
)

func (k EventKind) String() string {
	switch k {
	case EventMalformed:
		return "malformed"
	case EventCreateLobby:
		return "create_lobby"
	case EventJoinLobby:
		return "join_lobby"
	case EventLeaveLobby:
		return "leave_lobby"
	case EventListLobbies:
		return "list_lobbies"
	case EventStartLobby:
		return "start_lobby"
	case EventInput:
		return "input"
	case EventPing:
		return "ping"
	case EventResume:
		return "resume"
	default:
		return "unknown"
	}
}

type LobbyEvent struct {
	Name string
	Map  string
}

type InputEvent struct {
	Inputs []protocol.InputData
}

type PingEvent struct {
	ClientTime int64
}

type ResumeEvent struct {
	SessionToken string
}

type ServerEvent struct {
	Kind   EventKind
	Lobby  *LobbyEvent
	Input  *InputEvent
	Ping   *PingEvent
	Resume *ResumeEvent
	Err    error // EventMalformed 时的解析错误
}
