package protocol

// 客户端 -> 服务器 消息类型
const (
	TypeCreateLobby       = "CreateLobby"
	TypeJoinLobby         = "JoinLobby"
	TypeLeaveLobby        = "LeaveLobby"
	TypeListLobbies       = "ListLobbies"
	TypeStartLobby        = "StartLobby"
	TypePlayerInput       = "PlayerInput"
	TypePlayerInputBuffer = "PlayerInputBuffer"
	TypePing              = "Ping"
	TypeResume            = "Resume"
)

// 服务器 -> 客户端 消息类型
const (
	TypeConfirmation    = "confirmation"
	TypeError           = "error"
	TypeActiveLobbies   = "active_lobbies"
	TypeGameStarted     = "game_started"
	TypePong            = "pong"
	TypeGameStateUpdate = "game_state_update"
	TypeSessionToken    = "session_token"
)

// confirmation 消息内容
const (
	ConfirmLobbyCreated  = "lobby_created"
	ConfirmLobbyJoined   = "lobby_joined"
	ConfirmLobbyLeft     = "lobby_left"
	ConfirmGameStarting  = "game_starting"
	ConfirmHostAssigned  = "host_assigned"
	ConfirmSessionResume = "session_resumed"
)

// NoSequence 表示服务器尚未处理过该玩家的任何输入
const NoSequence int64 = -1

// Envelope 所有消息共有的类型字段
type Envelope struct {
	Type string `json:"type"`
}

// ========== 客户端消息 ==========

type CreateLobby struct {
	Type string `json:"type"`
	Name string `json:"name"`
	Map  string `json:"map"`
}

type JoinLobby struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type LeaveLobby struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type ListLobbies struct {
	Type string `json:"type"`
}

type StartLobby struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// InputData 一帧带序号的输入
type InputData struct {
	Sequence  uint64 `json:"sequence"`
	Forward   bool   `json:"forward"`
	Backward  bool   `json:"backward"`
	Left      bool   `json:"left"`
	Right     bool   `json:"right"`
	Drift     bool   `json:"drift"`
	EasyDrift bool   `json:"easyDrift"`
	Boost     bool   `json:"boost"`
}

// PlayerInput 旧版单帧输入
type PlayerInput struct {
	Type string `json:"type"`
	InputData
}

// PlayerInputBuffer 批量输入（推荐）
type PlayerInputBuffer struct {
	Type   string      `json:"type"`
	Inputs []InputData `json:"inputs"`
}

type Ping struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"clientTime,omitempty"`
}

// Resume 使用会话 Token 从新地址恢复身份
type Resume struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ========== 服务器消息 ==========

type Confirmation struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type LobbyInfo struct {
	Name    string `json:"name"`
	Players int    `json:"players"`
	Map     string `json:"map,omitempty"`
	Started bool   `json:"started,omitempty"`
}

type ActiveLobbies struct {
	Type    string      `json:"type"`
	Lobbies []LobbyInfo `json:"lobbies"`
}

type GameStarted struct {
	Type            string `json:"type"`
	Lobby           string `json:"lobby"`
	MapChoice       string `json:"mapChoice"`
	StartTimeMillis int64  `json:"startTimeMillis"`
}

type Pong struct {
	Type       string `json:"type"`
	ClientTime int64  `json:"clientTime,omitempty"`
	ServerTime int64  `json:"serverTime,omitempty"`
}

// PlayerState 广播中的单个玩家状态
type PlayerState struct {
	ID                    int32   `json:"id"`
	X                     float64 `json:"x"`
	Y                     float64 `json:"y"`
	VX                    float64 `json:"vx"`
	VY                    float64 `json:"vy"`
	Angle                 float64 `json:"angle"`
	LastProcessedSequence int64   `json:"lastProcessedSequence"`
	Boosting              bool    `json:"boosting,omitempty"`
	AI                    bool    `json:"ai,omitempty"`
}

type GameStateUpdate struct {
	Type    string        `json:"type"`
	Tick    uint64        `json:"tick,omitempty"`
	Players []PlayerState `json:"players"`
}

type SessionToken struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}
