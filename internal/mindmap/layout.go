// Package mindmap places generated mind-map nodes on a radial layout.
package mindmap

import (
	"math"

	"studyhub-backend/internal/models"
)

const (
	CanvasWidth  = 1200.0
	CanvasHeight = 900.0

	BranchRadius = 250.0
	LeafDistance = 150.0
	LeafSpread   = math.Pi / 2
	OrphanRadius = 450.0
)

const (
	TypeRoot   = "root"
	TypeBranch = "branch"
	TypeLeaf   = "leaf"
)

type style struct {
	shape, background, text string
}

var defaults = map[string]style{
	TypeRoot:   {"rect", "#ec4899", "text-white"},
	TypeBranch: {"rounded", "#3b82f6", "text-white"},
	TypeLeaf:   {"circle", "#10b981", "text-white"},
	"":         {"rounded", "#94a3b8", "text-white"},
}

// Layout returns a copy of data with coordinates and default styling filled
// in. The root (the first node typed "root", else the first node) sits at the
// canvas centre. Branches are spread evenly on a circle starting at the top,
// and each branch fans its leaves outward. Nodes reached by neither pass go
// on an outer ring.
func Layout(data models.MindmapData) models.MindmapData {
	out := models.MindmapData{
		Nodes: append([]models.MindmapNode(nil), data.Nodes...),
		Edges: append([]models.MindmapEdge(nil), data.Edges...),
	}
	if len(out.Nodes) == 0 {
		return out
	}

	cx, cy := CanvasWidth/2, CanvasHeight/2
	index := make(map[string]int, len(out.Nodes))
	for i, n := range out.Nodes {
		if _, dup := index[n.ID]; !dup {
			index[n.ID] = i
		}
	}
	children := make(map[string][]int)
	for _, e := range out.Edges {
		if j, ok := index[e.Target]; ok {
			children[e.Source] = append(children[e.Source], j)
		}
	}

	placed := make([]bool, len(out.Nodes))

	root := 0
	for i, n := range out.Nodes {
		if n.Type == TypeRoot {
			root = i
			break
		}
	}
	out.Nodes[root].X, out.Nodes[root].Y = cx, cy
	applyStyle(&out.Nodes[root], TypeRoot)
	placed[root] = true

	var branches []int
	for i, n := range out.Nodes {
		if n.Type == TypeBranch && !placed[i] {
			branches = append(branches, i)
		}
	}

	for k, bi := range branches {
		angle := float64(k)/float64(len(branches))*2*math.Pi - math.Pi/2
		b := &out.Nodes[bi]
		b.X = cx + math.Cos(angle)*BranchRadius
		b.Y = cy + math.Sin(angle)*BranchRadius
		applyStyle(b, TypeBranch)
		placed[bi] = true

		var leaves []int
		for _, li := range children[b.ID] {
			if !placed[li] && out.Nodes[li].Type != TypeRoot && out.Nodes[li].Type != TypeBranch {
				leaves = append(leaves, li)
			}
		}
		for j, li := range leaves {
			a := angle
			if len(leaves) > 1 {
				a = angle - LeafSpread/2 + LeafSpread*float64(j)/float64(len(leaves)-1)
			}
			leaf := &out.Nodes[li]
			leaf.X = b.X + math.Cos(a)*LeafDistance
			leaf.Y = b.Y + math.Sin(a)*LeafDistance
			applyStyle(leaf, TypeLeaf)
			placed[li] = true
		}
	}

	var orphans []int
	for i := range out.Nodes {
		if !placed[i] {
			orphans = append(orphans, i)
		}
	}
	for k, oi := range orphans {
		angle := float64(k)/float64(len(orphans))*2*math.Pi - math.Pi/2
		n := &out.Nodes[oi]
		n.X = cx + math.Cos(angle)*OrphanRadius
		n.Y = cy + math.Sin(angle)*OrphanRadius
		applyStyle(n, "")
	}

	return out
}

func applyStyle(n *models.MindmapNode, kind string) {
	s := defaults[kind]
	if n.Shape == "" {
		n.Shape = s.shape
	}
	if n.BackgroundColor == "" {
		n.BackgroundColor = s.background
	}
	if n.TextColor == "" {
		n.TextColor = s.text
	}
}
