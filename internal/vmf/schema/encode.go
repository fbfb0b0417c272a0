package schema

import (
	"strconv"
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/geometry"
	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func btoa(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func addExtra(b *keyvalues.Block, extra []keyvalues.Pair) {
	for _, p := range extra {
		b.Add(p.Key, p.Value)
	}
}

func addBlocks(b *keyvalues.Block, blocks []*keyvalues.Block) {
	for _, c := range blocks {
		b.AddChild(c.Clone())
	}
}

func addProperties(b *keyvalues.Block, props Properties) {
	for _, k := range props.Keys {
		b.Add(k, props.Values[k])
	}
}

// Block renders the version header.
func (v *VersionInfo) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindVersionInfo).
		Add("editorversion", strconv.Itoa(v.EditorVersion)).
		Add("editorbuild", strconv.Itoa(v.EditorBuild)).
		Add("mapversion", strconv.Itoa(v.MapVersion)).
		Add("formatversion", strconv.Itoa(v.FormatVersion)).
		Add("prefab", btoa(v.Prefab))
	addExtra(b, v.Extra)
	return b
}

// Block renders the visgroup container and its tree.
func (v *Visgroups) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindVisgroups)
	for i := range v.Groups {
		b.AddChild(v.Groups[i].Block())
	}
	return b
}

// Block renders one visgroup and its nested children.
func (v *Visgroup) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindVisgroup).
		Add("name", v.Name).
		Add("visgroupid", itoa(v.ID))
	if v.HasColor {
		b.Add("color", v.Color.String())
	}
	addExtra(b, v.Extra)
	for i := range v.Children {
		b.AddChild(v.Children[i].Block())
	}
	return b
}

// Block renders the editor metadata.
func (e *Editor) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindEditor)
	if e.HasColor {
		b.Add("color", e.Color.String())
	}
	for _, id := range e.VisgroupIDs {
		b.Add("visgroupid", itoa(id))
	}
	if e.GroupID != 0 {
		b.Add("groupid", itoa(e.GroupID))
	}
	b.Add("visgroupshown", btoa(e.VisgroupShown))
	b.Add("visgroupautoshown", btoa(e.VisgroupAutoShown))
	if e.Comments != "" {
		b.Add("comments", e.Comments)
	}
	addExtra(b, e.Extra)
	return b
}

// Block renders the side with every field spelled out.
func (s *Side) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindSide)
	if s.ID != 0 {
		b.Add("id", itoa(s.ID))
	}
	b.Add("plane", s.Plane.String()).
		Add("material", s.Material).
		Add("uaxis", s.UAxis.String()).
		Add("vaxis", s.VAxis.String()).
		Add("rotation", geometry.FormatFloat(s.Rotation)).
		Add("lightmapscale", strconv.Itoa(s.LightmapScale)).
		Add("smoothing_groups", strconv.FormatUint(uint64(s.SmoothingGroups), 10))
	addExtra(b, s.Extra)
	if s.DispInfo != nil {
		b.AddChild(s.DispInfo.Clone())
	}
	addBlocks(b, s.Blocks)
	return b
}

// Block renders the solid. Hidden solids are rendered bare; the caller
// places them inside a hidden block.
func (s *Solid) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindSolid).Add("id", itoa(s.ID))
	addExtra(b, s.Extra)
	for i := range s.Sides {
		b.AddChild(s.Sides[i].Block())
	}
	if s.Editor != nil {
		b.AddChild(s.Editor.Block())
	}
	addBlocks(b, s.Blocks)
	return b
}

// String renders the connection value in the comma form when no field
// contains a comma, and in the escape-separated form otherwise.
func (c Connection) String() string {
	fields := []string{
		c.Target, c.Input, c.Param,
		geometry.FormatFloat(c.Delay), strconv.Itoa(c.Times),
	}
	sep := ","
	for _, f := range fields[:3] {
		if strings.Contains(f, ",") {
			sep = connectionSep
			break
		}
	}
	return strings.Join(fields, sep)
}

// solidBlocks renders visible solids directly and wraps each hidden one.
func solidBlocks(parent *keyvalues.Block, solids []Solid) {
	for i := range solids {
		sb := solids[i].Block()
		if solids[i].Hidden {
			parent.AddChild(keyvalues.NewBlock(KindHidden).AddChild(sb))
			continue
		}
		parent.AddChild(sb)
	}
}

// Block renders the entity. A hidden entity is rendered bare; the caller
// wraps it in a hidden block.
func (e *Entity) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindEntity).
		Add("id", itoa(e.ID)).
		Add("classname", e.Classname)
	addProperties(b, e.Properties)
	if len(e.Connections) > 0 {
		cb := keyvalues.NewBlock(KindConnections)
		for _, c := range e.Connections {
			cb.Add(c.Output, c.String())
		}
		b.AddChild(cb)
	}
	solidBlocks(b, e.Solids)
	if e.Editor != nil {
		b.AddChild(e.Editor.Block())
	}
	addBlocks(b, e.Blocks)
	return b
}

// Block renders the group.
func (g *Group) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindGroup).Add("id", itoa(g.ID))
	addExtra(b, g.Extra)
	if g.Editor != nil {
		b.AddChild(g.Editor.Block())
	}
	return b
}

// Block renders the world with its solids and groups.
func (w *World) Block() *keyvalues.Block {
	b := keyvalues.NewBlock(KindWorld).
		Add("id", itoa(w.ID)).
		Add("classname", w.Classname)
	addProperties(b, w.Properties)
	solidBlocks(b, w.Solids)
	for i := range w.Groups {
		b.AddChild(w.Groups[i].Block())
	}
	addBlocks(b, w.Blocks)
	return b
}
