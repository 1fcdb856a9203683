package view

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"kartnet/pkg/core"
)

// TrackRenderer 赛道渲染器，地形不变，只绘制一次到缓存图像
type TrackRenderer struct {
	track *core.Track
	cache *ebiten.Image
}

// NewTrackRenderer 创建赛道渲染器
func NewTrackRenderer(track *core.Track) *TrackRenderer {
	return &TrackRenderer{track: track}
}

func tileColor(tile core.TileType) color.RGBA {
	switch tile {
	case core.TileGrass:
		return color.RGBA{34, 139, 34, 255} // 草地绿
	case core.TileDirt:
		return color.RGBA{139, 101, 64, 255}
	case core.TileIce:
		return color.RGBA{180, 220, 240, 255}
	case core.TileBarrier:
		return color.RGBA{80, 80, 80, 255} // 灰色护栏
	default:
		return color.RGBA{60, 60, 66, 255} // 沥青
	}
}

func (r *TrackRenderer) render() *ebiten.Image {
	w, h := r.track.Width*core.TileSize, r.track.Height*core.TileSize
	img := ebiten.NewImage(w, h)
	for y := 0; y < r.track.Height; y++ {
		for x := 0; x < r.track.Width; x++ {
			px := float32(x * core.TileSize)
			py := float32(y * core.TileSize)
			tile := r.track.TileAt(x, y)

			vector.DrawFilledRect(img, px, py, core.TileSize, core.TileSize, tileColor(tile), false)
			vector.StrokeRect(img, px, py, core.TileSize, core.TileSize, 1, color.RGBA{0, 0, 0, 60}, false)

			// 护栏十字纹理
			if tile == core.TileBarrier {
				vector.StrokeLine(img, px+core.TileSize/2, py+5, px+core.TileSize/2, py+core.TileSize-5,
					2, color.RGBA{60, 60, 60, 255}, false)
				vector.StrokeLine(img, px+5, py+core.TileSize/2, px+core.TileSize-5, py+core.TileSize/2,
					2, color.RGBA{60, 60, 60, 255}, false)
			}
		}
	}

	// 检查点
	for i, cp := range r.track.Checkpoints {
		c := core.GridCenter(cp)
		clr := color.RGBA{255, 220, 120, 160}
		if i == 0 {
			clr = color.RGBA{255, 255, 255, 200}
		}
		vector.StrokeCircle(img, float32(c.X), float32(c.Y), core.TileSize/3, 2, clr, true)
	}
	return img
}

// Draw 绘制赛道
func (r *TrackRenderer) Draw(screen *ebiten.Image) {
	if r.cache == nil {
		r.cache = r.render()
	}
	screen.DrawImage(r.cache, nil)
}
