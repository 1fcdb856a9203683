package server

import (
	"bytes"
	"errors"

	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// DecodeDatagram 解析一个数据报，其中可能有多行消息
func DecodeDatagram(data []byte) []ServerEvent {
	var events []ServerEvent
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		events = append(events, DecodeLine(line))
	}
	return events
}

// DecodeLine 解析一行客户端消息
func DecodeLine(line []byte) ServerEvent {
	msg, err := protocol.DecodeClientMessage(line)
	if err != nil {
		return ServerEvent{Kind: EventMalformed, Err: err}
	}

	switch m := msg.(type) {
	case *protocol.CreateLobby:
		return ServerEvent{Kind: EventCreateLobby, Lobby: &LobbyEvent{Name: m.Name, Map: m.Map}}
	case *protocol.JoinLobby:
		return ServerEvent{Kind: EventJoinLobby, Lobby: &LobbyEvent{Name: m.Name}}
	case *protocol.LeaveLobby:
		return ServerEvent{Kind: EventLeaveLobby, Lobby: &LobbyEvent{Name: m.Name}}
	case *protocol.ListLobbies:
		return ServerEvent{Kind: EventListLobbies}
	case *protocol.StartLobby:
		return ServerEvent{Kind: EventStartLobby, Lobby: &LobbyEvent{Name: m.Name}}
	case *protocol.PlayerInput:
		// 旧版单帧输入等价于只有一个元素的批量输入
		return ServerEvent{Kind: EventInput, Input: &InputEvent{Inputs: []protocol.InputData{m.InputData}}}
	case *protocol.PlayerInputBuffer:
		return ServerEvent{Kind: EventInput, Input: &InputEvent{Inputs: m.Inputs}}
	case *protocol.Ping:
		return ServerEvent{Kind: EventPing, Ping: &PingEvent{ClientTime: m.ClientTime}}
	case *protocol.Resume:
		return ServerEvent{Kind: EventResume, Resume: &ResumeEvent{SessionToken: m.Token}}
	default:
		return ServerEvent{Kind: EventUnknown}
	}
}

var wireErrors = []error{
	ErrLobbyFull,
	ErrLobbyStarted,
	ErrLobbyNotFound,
	ErrLobbyExists,
	ErrAlreadyInLobby,
	ErrNotInLobby,
	ErrNotHost,
	ErrInvalidLobbyName,
	ErrInvalidToken,
	core.ErrUnknownTrack,
	protocol.ErrInvalidJSON,
	protocol.ErrUnknownType,
}

// errorCode 错误对应的线上错误码
func errorCode(err error) string {
	for _, known := range wireErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal_error"
}
