package view

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"

	"kartnet/internal/client"
	"kartnet/pkg/core"
)

const (
	ScreenWidth  = 20 * core.TileSize
	ScreenHeight = 15 * core.TileSize
	maxNameLen   = 24
)

var hudFont = text.NewGoXFace(basicfont.Face7x13)

// App Ebiten 游戏循环：大厅界面与比赛界面
type App struct {
	network *client.NetworkClient
	game    *client.NetworkGameClient
	scheme  ControlScheme

	input         keyTracker
	selectedIndex int
	mapIndex      int

	// 输入大厅名时键盘不再控制车辆
	typing  bool
	nameBuf []rune

	trackRenderer *TrackRenderer
	trackName     string
}

// NewApp 创建客户端界面
func NewApp(network *client.NetworkClient, predictionEnabled bool, scheme ControlScheme) *App {
	return &App{
		network: network,
		game:    client.NewNetworkGameClient(network, predictionEnabled),
		scheme:  scheme,
		nameBuf: []rune(fmt.Sprintf("lobby-%d", network.PlayerID())),
	}
}

// Update 每帧调用（60Hz）
func (a *App) Update() error {
	now := time.Now()

	var in core.PhysicsInput
	if a.game.InGame() && !a.typing {
		in = CaptureInput(a.scheme)
	}
	a.game.Update(in, now)

	if a.game.InGame() {
		if a.input.JustPressed(ebiten.KeyEscape) {
			_ = a.game.Lobby().Leave()
		}
		return nil
	}

	a.updateLobby(now)
	return nil
}

func (a *App) updateLobby(now time.Time) {
	lobby := a.game.Lobby()
	lobby.Refresh(now, false)

	if a.typing {
		a.updateTyping()
		return
	}

	lobbies := lobby.Lobbies()
	if a.selectedIndex >= len(lobbies) {
		a.selectedIndex = 0
	}

	if a.input.JustPressed(ebiten.KeyT) {
		a.typing = true
		return
	}
	if a.input.JustPressed(ebiten.KeyR) {
		lobby.Refresh(now, true)
	}
	if a.input.JustPressed(ebiten.KeyM) {
		a.mapIndex = (a.mapIndex + 1) % len(core.TrackNames())
	}
	if a.input.JustPressed(ebiten.KeyC) {
		_ = lobby.Create(string(a.nameBuf), core.TrackNames()[a.mapIndex])
	}
	if a.input.JustPressed(ebiten.KeyArrowUp) && a.selectedIndex > 0 {
		a.selectedIndex--
	}
	if a.input.JustPressed(ebiten.KeyArrowDown) && a.selectedIndex < len(lobbies)-1 {
		a.selectedIndex++
	}
	if a.input.JustPressed(ebiten.KeyEnter) && a.selectedIndex < len(lobbies) {
		if l := lobbies[a.selectedIndex]; !l.Started {
			_ = lobby.Join(l.Name)
		}
	}
	if a.input.JustPressed(ebiten.KeyS) {
		_ = lobby.Start()
	}
	if a.input.JustPressed(ebiten.KeyL) {
		_ = lobby.Leave()
	}
}

// updateTyping 编辑大厅名，回车或 Esc 结束
func (a *App) updateTyping() {
	for _, r := range ebiten.AppendInputChars(nil) {
		if len(a.nameBuf) < maxNameLen && r > ' ' {
			a.nameBuf = append(a.nameBuf, r)
		}
	}
	if a.input.JustPressed(ebiten.KeyBackspace) && len(a.nameBuf) > 0 {
		a.nameBuf = a.nameBuf[:len(a.nameBuf)-1]
	}
	if a.input.JustPressed(ebiten.KeyEnter) || a.input.JustPressed(ebiten.KeyEscape) {
		a.typing = false
	}
}

// Draw 绘制画面
func (a *App) Draw(screen *ebiten.Image) {
	if a.game.InGame() {
		a.drawRace(screen)
		return
	}
	a.drawLobby(screen)
}

// Layout 设置屏幕布局
func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

func (a *App) drawRace(screen *ebiten.Image) {
	track := a.game.Track()
	if a.trackRenderer == nil || a.trackName != track.Name {
		a.trackRenderer = NewTrackRenderer(track)
		a.trackName = track.Name
	}
	a.trackRenderer.Draw(screen)

	for _, kart := range a.game.RemoteKarts() {
		DrawKart(screen, kart)
	}
	if local, ok := a.game.LocalKart(); ok {
		DrawKart(screen, local)
	}

	stats := a.game.Stats()
	hud := fmt.Sprintf("Lobby %s  Tick %d  RTT %dms  Delay %.0fms  Pending %d  Ack %d  Corrections %d (%.1fpx)",
		a.game.Lobby().Current(), stats.Tick, a.network.RTT().Milliseconds(), stats.Delay*1000,
		stats.Pending, stats.LastAck, stats.Corrections, stats.LastError)
	drawText(screen, 8, 16, hud, color.White)
	drawText(screen, 8, 32, "Esc: Leave", color.RGBA{180, 190, 200, 255})
}

func (a *App) drawLobby(screen *ebiten.Image) {
	lobby := a.game.Lobby()
	screen.Fill(color.RGBA{18, 22, 30, 255})
	drawText(screen, 16, 24, fmt.Sprintf("Player %d  [%s]", a.network.PlayerID(), a.scheme), color.White)
	drawText(screen, 16, 44, "T: Edit name  M: Map  C: Create  R: Refresh  Enter: Join  S: Start  L: Leave", color.RGBA{180, 190, 200, 255})

	nameLine := fmt.Sprintf("Name: %s  Map: %s", string(a.nameBuf), core.TrackNames()[a.mapIndex])
	if a.typing {
		nameLine += "  (typing, Enter to finish)"
	}
	drawText(screen, 16, 64, nameLine, color.RGBA{200, 200, 120, 255})

	if cur := lobby.Current(); cur != "" {
		role := "member"
		if lobby.IsHost() {
			role = "host"
		}
		drawText(screen, 16, 84, fmt.Sprintf("In lobby %s as %s", cur, role), color.RGBA{120, 220, 140, 255})
	}

	y := 110
	for i, l := range lobby.Lobbies() {
		prefix := " "
		col := color.RGBA{210, 220, 230, 255}
		if i == a.selectedIndex {
			prefix = ">"
			col = color.RGBA{255, 220, 120, 255}
		}
		status := "FORMING"
		if l.Started {
			status = "RACING"
		}
		line := fmt.Sprintf("%s [%d] %s  %d/4  %s  %s", prefix, i+1, l.Name, l.Players, l.Map, status)
		drawText(screen, 16, y, line, col)
		y += 16
	}

	if msg := lobby.LastError(); msg != "" {
		drawText(screen, 16, ScreenHeight-8, msg, color.RGBA{255, 120, 120, 255})
	}
}

func drawText(screen *ebiten.Image, x, y int, msg string, clr color.Color) {
	options := &text.DrawOptions{}
	options.GeoM.Translate(float64(x), float64(y))
	options.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, msg, hudFont, options)
}
