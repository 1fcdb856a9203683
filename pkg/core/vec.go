package core

import "math"

// Vec2 二维向量
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) Dot(o Vec2) float64 { return v.X*o.X + v.Y*o.Y }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Dist 两点之间的欧氏距离
func (v Vec2) Dist(o Vec2) float64 { return v.Sub(o).Len() }

// IsZero 是否为零向量
func (v Vec2) IsZero() bool { return v.X == 0 && v.Y == 0 }

// Heading 由角度得到单位朝向向量
func Heading(angle float64) Vec2 {
	return Vec2{math.Cos(angle), math.Sin(angle)}
}

// NormalizeAngle 将角度归一化到 (-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// AngleDiff 从 from 转到 to 的最短角度差
func AngleDiff(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// LerpAngle 沿最短路径插值角度
func LerpAngle(from, to, t float64) float64 {
	return from + AngleDiff(from, to)*t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp 将 v 限制在 [lo, hi]
func Clamp(v, lo, hi float64) float64 { return clamp(v, lo, hi) }
