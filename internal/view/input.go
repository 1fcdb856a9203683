package view

import (
	"github.com/hajimehoshi/ebiten/v2"

	"kartnet/pkg/core"
)

// ControlScheme 按键方案
type ControlScheme int

const (
	ControlWASD  ControlScheme = iota // WASD + 空格漂移 + 左 Shift 加速
	ControlArrow                      // 方向键 + 右 Shift 漂移 + 右 Ctrl 加速
)

func (c ControlScheme) String() string {
	switch c {
	case ControlWASD:
		return "WASD+空格"
	case ControlArrow:
		return "方向键+右Shift"
	}
	return "未知"
}

// ParseControlScheme 解析命令行参数
func ParseControlScheme(s string) ControlScheme {
	if s == "arrow" {
		return ControlArrow
	}
	return ControlWASD
}

// CaptureInput 读取当前按键状态
func CaptureInput(scheme ControlScheme) core.PhysicsInput {
	if scheme == ControlArrow {
		return core.PhysicsInput{
			Forward:   ebiten.IsKeyPressed(ebiten.KeyArrowUp),
			Backward:  ebiten.IsKeyPressed(ebiten.KeyArrowDown),
			Left:      ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
			Right:     ebiten.IsKeyPressed(ebiten.KeyArrowRight),
			Drift:     ebiten.IsKeyPressed(ebiten.KeyShiftRight),
			EasyDrift: ebiten.IsKeyPressed(ebiten.KeySlash),
			Boost:     ebiten.IsKeyPressed(ebiten.KeyControlRight),
		}
	}
	return core.PhysicsInput{
		Forward:   ebiten.IsKeyPressed(ebiten.KeyW),
		Backward:  ebiten.IsKeyPressed(ebiten.KeyS),
		Left:      ebiten.IsKeyPressed(ebiten.KeyA),
		Right:     ebiten.IsKeyPressed(ebiten.KeyD),
		Drift:     ebiten.IsKeyPressed(ebiten.KeySpace),
		EasyDrift: ebiten.IsKeyPressed(ebiten.KeyQ),
		Boost:     ebiten.IsKeyPressed(ebiten.KeyShiftLeft),
	}
}

type keyTracker struct {
	prev map[ebiten.Key]bool
}

func (k *keyTracker) JustPressed(key ebiten.Key) bool {
	if k.prev == nil {
		k.prev = make(map[ebiten.Key]bool)
	}
	now := ebiten.IsKeyPressed(key)
	prev := k.prev[key]
	k.prev[key] = now
	return now && !prev
}
