package protocol

// ========== 客户端消息构造 ==========

func NewCreateLobby(name, mapChoice string) *CreateLobby {
	return &CreateLobby{Type: TypeCreateLobby, Name: name, Map: mapChoice}
}

func NewJoinLobby(name string) *JoinLobby {
	return &JoinLobby{Type: TypeJoinLobby, Name: name}
}

func NewLeaveLobby(name string) *LeaveLobby {
	return &LeaveLobby{Type: TypeLeaveLobby, Name: name}
}

func NewListLobbies() *ListLobbies {
	return &ListLobbies{Type: TypeListLobbies}
}

func NewStartLobby(name string) *StartLobby {
	return &StartLobby{Type: TypeStartLobby, Name: name}
}

// NewPlayerInput 构造旧版单帧输入
func NewPlayerInput(input InputData) *PlayerInput {
	return &PlayerInput{Type: TypePlayerInput, InputData: input}
}

// NewPlayerInputBuffer 构造批量输入
func NewPlayerInputBuffer(inputs []InputData) *PlayerInputBuffer {
	return &PlayerInputBuffer{Type: TypePlayerInputBuffer, Inputs: inputs}
}

func NewPing(clientTime int64) *Ping {
	return &Ping{Type: TypePing, ClientTime: clientTime}
}

func NewResume(token string) *Resume {
	return &Resume{Type: TypeResume, Token: token}
}

// ========== 服务器消息构造 ==========

func NewConfirmation(message string) *Confirmation {
	return &Confirmation{Type: TypeConfirmation, Message: message}
}

func NewError(message string) *Error {
	return &Error{Type: TypeError, Message: message}
}

func NewActiveLobbies(lobbies []LobbyInfo) *ActiveLobbies {
	if lobbies == nil {
		lobbies = []LobbyInfo{}
	}
	return &ActiveLobbies{Type: TypeActiveLobbies, Lobbies: lobbies}
}

func NewGameStarted(lobby, mapChoice string, startTimeMillis int64) *GameStarted {
	return &GameStarted{Type: TypeGameStarted, Lobby: lobby, MapChoice: mapChoice, StartTimeMillis: startTimeMillis}
}

func NewPong(clientTime, serverTime int64) *Pong {
	return &Pong{Type: TypePong, ClientTime: clientTime, ServerTime: serverTime}
}

func NewGameStateUpdate(tick uint64, players []PlayerState) *GameStateUpdate {
	if players == nil {
		players = []PlayerState{}
	}
	return &GameStateUpdate{Type: TypeGameStateUpdate, Tick: tick, Players: players}
}

func NewSessionToken(token string) *SessionToken {
	return &SessionToken{Type: TypeSessionToken, Token: token}
}
