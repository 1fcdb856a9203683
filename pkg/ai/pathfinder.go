package ai

import (
	"container/list"

	"kartnet/pkg/core"
)

type stepNode struct {
	Pos  core.GridPos
	Prev *stepNode
}

var directions = []core.GridPos{
	{GridX: 0, GridY: -1}, {GridX: 0, GridY: 1}, {GridX: -1, GridY: 0}, {GridX: 1, GridY: 0},
	{GridX: 1, GridY: 1}, {GridX: 1, GridY: -1}, {GridX: -1, GridY: 1}, {GridX: -1, GridY: -1},
}

// nextStepToward BFS 寻路，返回从 start 走向 target 的下一个格子
func nextStepToward(track *core.Track, start, target core.GridPos) (core.GridPos, bool) {
	if start == target {
		return start, true
	}
	queue := list.New()
	visited := make(map[core.GridPos]bool)
	queue.PushBack(&stepNode{Pos: start})
	visited[start] = true

	var targetNode *stepNode
	for queue.Len() > 0 {
		n := queue.Remove(queue.Front()).(*stepNode)
		if n.Pos == target {
			targetNode = n
			break
		}
		for _, d := range directions {
			npos := core.GridPos{GridX: n.Pos.GridX + d.GridX, GridY: n.Pos.GridY + d.GridY}
			if visited[npos] {
				continue
			}
			if npos.GridX < 0 || npos.GridX >= track.Width || npos.GridY < 0 || npos.GridY >= track.Height {
				continue
			}
			if !track.Walkable(npos.GridX, npos.GridY) {
				continue
			}
			// 斜向移动不能穿过护栏拐角
			if d.GridX != 0 && d.GridY != 0 &&
				(!track.Walkable(n.Pos.GridX+d.GridX, n.Pos.GridY) || !track.Walkable(n.Pos.GridX, n.Pos.GridY+d.GridY)) {
				continue
			}
			visited[npos] = true
			queue.PushBack(&stepNode{Pos: npos, Prev: n})
		}
	}

	if targetNode == nil {
		return core.GridPos{}, false
	}

	for targetNode.Prev != nil && targetNode.Prev.Pos != start {
		targetNode = targetNode.Prev
	}
	return targetNode.Pos, true
}
