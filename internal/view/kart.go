package view

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"kartnet/internal/client"
)

const kartRadius = 14

// KartPalette 车身配色
type KartPalette struct {
	Body    color.RGBA
	Outline color.RGBA
	Nose    color.RGBA
}

var palettes = []KartPalette{
	{Body: color.RGBA{255, 80, 80, 255}, Outline: color.RGBA{150, 0, 0, 255}, Nose: color.RGBA{255, 200, 100, 255}},
	{Body: color.RGBA{100, 180, 255, 255}, Outline: color.RGBA{0, 50, 150, 255}, Nose: color.RGBA{150, 220, 255, 255}},
	{Body: color.RGBA{255, 255, 255, 255}, Outline: color.RGBA{0, 0, 0, 255}, Nose: color.RGBA{255, 150, 150, 255}},
	{Body: color.RGBA{40, 40, 40, 255}, Outline: color.RGBA{200, 200, 200, 255}, Nose: color.RGBA{180, 180, 180, 255}},
}

// PaletteFor 按玩家 ID 选择配色
func PaletteFor(id int32) KartPalette {
	if id < 0 {
		id = -id
	}
	return palettes[int(id)%len(palettes)]
}

// DrawKart 绘制一辆车：圆形车身 + 指向朝向的车头
func DrawKart(screen *ebiten.Image, kart client.KartView) {
	p := PaletteFor(kart.ID)
	x := float32(kart.State.Position.X)
	y := float32(kart.State.Position.Y)

	// 加速时的尾焰
	if kart.Boosting {
		tx := x - float32(math.Cos(kart.State.Angle))*kartRadius*1.6
		ty := y - float32(math.Sin(kart.State.Angle))*kartRadius*1.6
		vector.DrawFilledCircle(screen, tx, ty, kartRadius*0.6, color.RGBA{255, 160, 40, 200}, true)
	}

	vector.DrawFilledCircle(screen, x, y, kartRadius, p.Body, true)
	vector.StrokeCircle(screen, x, y, kartRadius, 2, p.Outline, true)

	nx := x + float32(math.Cos(kart.State.Angle))*kartRadius*1.3
	ny := y + float32(math.Sin(kart.State.Angle))*kartRadius*1.3
	vector.StrokeLine(screen, x, y, nx, ny, 4, p.Nose, true)

	// 本地玩家加一圈高亮
	if kart.Local {
		vector.StrokeCircle(screen, x, y, kartRadius+4, 1, color.RGBA{255, 255, 120, 255}, true)
	}
	if kart.AI {
		drawText(screen, int(x)-6, int(y)-kartRadius-6, "AI", color.RGBA{220, 230, 240, 255})
	}
}
