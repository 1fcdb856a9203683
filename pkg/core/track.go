package core

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// TileType 赛道格子类型
type TileType int

const (
	TileAsphalt TileType = iota // 沥青路面
	TileGrass                   // 草地
	TileDirt                    // 泥地
	TileIce                     // 冰面
	TileBarrier                 // 护栏
)

var ErrUnknownTrack = errors.New("unknown_map")

var tileModifiers = map[TileType]TerrainModifiers{
	TileAsphalt: DefaultTerrain,
	TileGrass:   {Speed: 0.6, Friction: 1.2, Turn: 0.9, Decel: 2.0},
	TileDirt:    {Speed: 0.8, Friction: 0.8, Turn: 0.9, Decel: 1.5},
	TileIce:     {Speed: 1.0, Friction: 0.2, Turn: 0.6, Decel: 0.3},
	TileBarrier: {Speed: 0.25, Friction: 2.0, Turn: 0.6, Decel: 4.0},
}

// GridPos 格子坐标
type GridPos struct {
	GridX, GridY int
}

// Spawn 出生点（格子坐标 + 朝向）
type Spawn struct {
	GridPos
	Angle float64
}

// Track 赛道（纯逻辑，不包含渲染）
type Track struct {
	Name        string
	Tiles       [][]TileType
	Width       int
	Height      int
	Spawns      []Spawn
	Checkpoints []GridPos
}

type trackTemplate struct {
	rows        []string
	spawns      []Spawn
	checkpoints []GridPos
}

// 地图模板：#=护栏, .=沥青, g=草地, d=泥地, i=冰面
var trackTemplates = map[string]trackTemplate{
	"oval": {
		rows: []string{
			"####################",
			"#gggggggggggggggggg#",
			"#g................g#",
			"#g................g#",
			"#g..gggggggggggg..g#",
			"#g..g##########g..g#",
			"#g..g#gggggggg#g..g#",
			"#gddg#gggggggg#giig#",
			"#gddg#gggggggg#giig#",
			"#g..g##########g..g#",
			"#g..gggggggggggg..g#",
			"#g................g#",
			"#g................g#",
			"#gggggggggggggggggg#",
			"####################",
		},
		spawns: []Spawn{
			{GridPos{5, 2}, 0},
			{GridPos{5, 3}, 0},
			{GridPos{3, 2}, 0},
			{GridPos{3, 3}, 0},
		},
		checkpoints: []GridPos{{17, 2}, {17, 12}, {2, 12}, {2, 2}},
	},
	"canyon": {
		rows: []string{
			"####################",
			"#..................#",
			"#..................#",
			"#..######gg######..#",
			"#..#gggggggggggg#..#",
			"#..#g##########g#..#",
			"#dd#g#gggggggg#g#ii#",
			"#dd#g#gggggggg#g#ii#",
			"#..#g##########g#..#",
			"#..#gggggggggggg#..#",
			"#..######gg######..#",
			"#..................#",
			"#.......dddd.......#",
			"#..................#",
			"####################",
		},
		spawns: []Spawn{
			{GridPos{5, 1}, 0},
			{GridPos{5, 2}, 0},
			{GridPos{3, 1}, 0},
			{GridPos{3, 2}, 0},
		},
		checkpoints: []GridPos{{17, 1}, {17, 12}, {2, 12}, {2, 1}},
	},
}

// TrackNames 返回所有内置赛道名（有序）
func TrackNames() []string {
	names := make([]string, 0, len(trackTemplates))
	for name := range trackTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadTrack 按名字加载内置赛道
func LoadTrack(name string) (*Track, error) {
	tpl, ok := trackTemplates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrack, name)
	}

	t := &Track{
		Name:        name,
		Height:      len(tpl.rows),
		Width:       len(tpl.rows[0]),
		Tiles:       make([][]TileType, len(tpl.rows)),
		Spawns:      append([]Spawn(nil), tpl.spawns...),
		Checkpoints: append([]GridPos(nil), tpl.checkpoints...),
	}

	// 解析模板
	for y, row := range tpl.rows {
		if len(row) != t.Width {
			return nil, fmt.Errorf("赛道 %s 第 %d 行宽度不一致", name, y)
		}
		t.Tiles[y] = make([]TileType, t.Width)
		for x := 0; x < t.Width; x++ {
			switch row[x] {
			case '#':
				t.Tiles[y][x] = TileBarrier
			case 'g':
				t.Tiles[y][x] = TileGrass
			case 'd':
				t.Tiles[y][x] = TileDirt
			case 'i':
				t.Tiles[y][x] = TileIce
			default:
				t.Tiles[y][x] = TileAsphalt
			}
		}
	}
	return t, nil
}

// TileAt 获取指定格子，越界视为护栏
func (t *Track) TileAt(gx, gy int) TileType {
	if gx < 0 || gx >= t.Width || gy < 0 || gy >= t.Height {
		return TileBarrier
	}
	return t.Tiles[gy][gx]
}

// Walkable 格子是否可通行（寻路用）
func (t *Track) Walkable(gx, gy int) bool {
	return t.TileAt(gx, gy) != TileBarrier
}

// ModifiersAt 查询像素位置的地形修正
func (t *Track) ModifiersAt(pos Vec2) TerrainModifiers {
	g := WorldToGrid(pos)
	return tileModifiers[t.TileAt(g.GridX, g.GridY)]
}

// Bounds 可行驶区域（像素）
func (t *Track) Bounds() (Vec2, Vec2) {
	return Vec2{}, Vec2{float64(t.Width * TileSize), float64(t.Height * TileSize)}
}

// SpawnState 第 slot 个出生点的初始状态，超出出生点数量时取模
func (t *Track) SpawnState(slot int) KinematicState {
	s := t.Spawns[slot%len(t.Spawns)]
	return KinematicState{Position: GridCenter(s.GridPos), Angle: s.Angle}
}

// GridCenter 格子中心的像素坐标
func GridCenter(p GridPos) Vec2 {
	return Vec2{(float64(p.GridX) + 0.5) * TileSize, (float64(p.GridY) + 0.5) * TileSize}
}

// WorldToGrid 像素坐标转换为格子坐标
func WorldToGrid(pos Vec2) GridPos {
	return GridPos{
		GridX: int(math.Floor(pos.X / TileSize)),
		GridY: int(math.Floor(pos.Y / TileSize)),
	}
}
