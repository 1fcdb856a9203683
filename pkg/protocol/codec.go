package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const welcomePrefix = "WELCOME PLAYER "

var (
	ErrInvalidJSON = errors.New("invalid_json")
	ErrUnknownType = errors.New("unknown_message_type")
)

// Marshal 序列化消息，每条消息以换行结尾
func Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// FormatWelcome 构造新地址首次连接时的引导行（非 JSON）
func FormatWelcome(playerID int32) []byte {
	return []byte(welcomePrefix + strconv.FormatInt(int64(playerID), 10) + "\n")
}

// ParseWelcome 解析引导行，返回分配的玩家 ID
func ParseWelcome(data []byte) (int32, bool) {
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, welcomePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(line, welcomePrefix), 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

func peekType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return env.Type, nil
}

func decodeAs[T any](data []byte) (*T, error) {
	msg := new(T)
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return msg, nil
}

// DecodeClientMessage 解析客户端发来的一条消息
func DecodeClientMessage(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeCreateLobby:
		return decodeAs[CreateLobby](data)
	case TypeJoinLobby:
		return decodeAs[JoinLobby](data)
	case TypeLeaveLobby:
		return decodeAs[LeaveLobby](data)
	case TypeListLobbies:
		return decodeAs[ListLobbies](data)
	case TypeStartLobby:
		return decodeAs[StartLobby](data)
	case TypePlayerInput:
		return decodeAs[PlayerInput](data)
	case TypePlayerInputBuffer:
		return decodeAs[PlayerInputBuffer](data)
	case TypePing:
		return decodeAs[Ping](data)
	case TypeResume:
		return decodeAs[Resume](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}

// DecodeServerMessage 解析服务器发来的一条 JSON 消息
func DecodeServerMessage(data []byte) (any, error) {
	data = bytes.TrimSpace(data)
	typ, err := peekType(data)
	if err != nil {
		return nil, err
	}

	switch typ {
	case TypeConfirmation:
		return decodeAs[Confirmation](data)
	case TypeError:
		return decodeAs[Error](data)
	case TypeActiveLobbies:
		return decodeAs[ActiveLobbies](data)
	case TypeGameStarted:
		return decodeAs[GameStarted](data)
	case TypePong:
		return decodeAs[Pong](data)
	case TypeGameStateUpdate:
		return decodeAs[GameStateUpdate](data)
	case TypeSessionToken:
		return decodeAs[SessionToken](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
}
