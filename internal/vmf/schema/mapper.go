package schema

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// DefaultLightmapScale is the luxel density map editors assign to new sides.
const DefaultLightmapScale = 16

// DefaultTextureScale applies to texture axes the side does not declare.
const DefaultTextureScale = 0.25

// Map maps every top-level block of root into a typed record, in source order.
//
// Precondition: root is the synthetic root produced by keyvalues.Parse.
// Postcondition: returns one record per top-level block, or the first
// SchemaError or FormatError encountered.
func Map(root *keyvalues.Block) ([]Record, error) {
	recs := make([]Record, 0, len(root.Children))
	for _, b := range root.Children {
		r, err := MapBlock(b)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// MapBlock maps a single block by its name. Unrecognized names yield *Unknown.
func MapBlock(b *keyvalues.Block) (Record, error) {
	switch strings.ToLower(b.Name) {
	case KindVersionInfo:
		return mapVersionInfo(b)
	case KindVisgroups:
		return mapVisgroups(b)
	case KindWorld:
		return mapWorld(b)
	case KindEntity:
		return mapEntity(b)
	case KindSolid:
		return mapSolid(b)
	case KindSide:
		return mapSide(b)
	case KindEditor:
		return mapEditor(b)
	case KindGroup:
		return mapGroup(b)
	case KindHidden:
		return mapHidden(b)
	default:
		return &Unknown{Block: b.Clone()}, nil
	}
}

func unexpectedBlock(parent string, child *keyvalues.Block) error {
	return &vmferr.Error{
		Kind:      vmferr.SchemaError,
		Pos:       child.Pos,
		BlockKind: parent,
		Field:     child.Name,
		Message:   fmt.Sprintf("unexpected %q block inside %s", child.Name, parent),
	}
}

func mapVersionInfo(b *keyvalues.Block) (*VersionInfo, error) {
	f := newFields(KindVersionInfo, b)
	v := &VersionInfo{
		EditorVersion: f.integer("editorversion", 0),
		EditorBuild:   f.integer("editorbuild", 0),
		MapVersion:    f.integer("mapversion", 0),
		FormatVersion: f.integer("formatversion", 0),
		Prefab:        f.boolean("prefab", false),
		Pos:           b.Pos,
	}
	if f.err != nil {
		return nil, f.err
	}
	v.Extra = f.extra()
	return v, nil
}

func mapVisgroups(b *keyvalues.Block) (*Visgroups, error) {
	if len(b.Pairs) > 0 {
		p := b.Pairs[0]
		return nil, &vmferr.Error{
			Kind: vmferr.SchemaError, Pos: p.Pos, BlockKind: KindVisgroups, Field: p.Key,
			Message: fmt.Sprintf("unexpected key %q in visgroups", p.Key),
		}
	}
	groups, err := mapVisgroupList(KindVisgroups, b.Children)
	if err != nil {
		return nil, err
	}
	return &Visgroups{Groups: groups, Pos: b.Pos}, nil
}

func mapVisgroupList(parent string, blocks []*keyvalues.Block) ([]Visgroup, error) {
	var out []Visgroup
	for _, c := range blocks {
		if !strings.EqualFold(c.Name, KindVisgroup) {
			return nil, unexpectedBlock(parent, c)
		}
		vg, err := mapVisgroup(c)
		if err != nil {
			return nil, err
		}
		out = append(out, vg)
	}
	return out, nil
}

func mapVisgroup(b *keyvalues.Block) (Visgroup, error) {
	f := newFields(KindVisgroup, b)
	vg := Visgroup{
		Name: f.requiredStr("name"),
		ID:   f.id("visgroupid", true),
		Pos:  b.Pos,
	}
	vg.Color, vg.HasColor = f.color("color")
	if f.err != nil {
		return Visgroup{}, f.err
	}
	vg.Extra = f.extra()
	kids, err := mapVisgroupList(KindVisgroup, b.Children)
	if err != nil {
		return Visgroup{}, err
	}
	vg.Children = kids
	return vg, nil
}

// mapProperties collects every pair not named in skip, rejecting duplicate keys.
func mapProperties(kind string, b *keyvalues.Block, skip ...string) (Properties, error) {
	props := Properties{Values: make(map[string]string)}
	seen := make(map[string]vmferr.Position, len(b.Pairs))
	for _, p := range b.Pairs {
		lower := strings.ToLower(p.Key)
		if first, dup := seen[lower]; dup {
			return Properties{}, &vmferr.Error{
				Kind:      vmferr.SchemaError,
				Pos:       p.Pos,
				Related:   []vmferr.Position{first},
				BlockKind: kind,
				Field:     p.Key,
				Message:   fmt.Sprintf("duplicate key %q in %s", p.Key, kind),
			}
		}
		seen[lower] = p.Pos
		if containsFold(skip, p.Key) {
			continue
		}
		props.Keys = append(props.Keys, p.Key)
		props.Values[p.Key] = p.Value
	}
	return props, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func mapWorld(b *keyvalues.Block) (*World, error) {
	f := newFields(KindWorld, b)
	w := &World{
		ID:        f.id("id", true),
		Classname: f.str("classname", "worldspawn"),
		Pos:       b.Pos,
	}
	if f.err != nil {
		return nil, f.err
	}
	props, err := mapProperties(KindWorld, b, "id", "classname")
	if err != nil {
		return nil, err
	}
	w.Properties = props

	for _, c := range b.Children {
		switch strings.ToLower(c.Name) {
		case KindSolid:
			s, err := mapSolid(c)
			if err != nil {
				return nil, err
			}
			w.Solids = append(w.Solids, *s)
		case KindHidden:
			h, err := mapHidden(c)
			if err != nil {
				return nil, err
			}
			if len(h.Entities) > 0 {
				return nil, unexpectedBlock(KindWorld+" hidden", blockAt(c, KindEntity))
			}
			w.Solids = append(w.Solids, h.Solids...)
		case KindGroup:
			g, err := mapGroup(c)
			if err != nil {
				return nil, err
			}
			w.Groups = append(w.Groups, *g)
		case KindEntity, KindWorld, KindSide:
			return nil, unexpectedBlock(KindWorld, c)
		default:
			w.Blocks = append(w.Blocks, c.Clone())
		}
	}
	return w, nil
}

// blockAt returns the first child of b named name, or b itself.
func blockAt(b *keyvalues.Block, name string) *keyvalues.Block {
	if c := b.Child(name); c != nil {
		return c
	}
	return b
}

func mapEntity(b *keyvalues.Block) (*Entity, error) {
	props, err := mapProperties(KindEntity, b, "id", "classname")
	if err != nil {
		return nil, err
	}
	f := newFields(KindEntity, b)
	e := &Entity{
		ID:         f.id("id", true),
		Classname:  f.requiredStr("classname"),
		Properties: props,
		Pos:        b.Pos,
	}
	if p, ok := f.lookup("origin"); ok && f.err == nil {
		v, err := parseVec3(p.Value)
		if err != nil {
			f.badFormat(p, err)
		} else {
			e.Origin = &v
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	for _, c := range b.Children {
		switch strings.ToLower(c.Name) {
		case KindSolid:
			s, err := mapSolid(c)
			if err != nil {
				return nil, err
			}
			e.Solids = append(e.Solids, *s)
		case KindHidden:
			h, err := mapHidden(c)
			if err != nil {
				return nil, err
			}
			if len(h.Entities) > 0 {
				return nil, unexpectedBlock(KindEntity+" hidden", blockAt(c, KindEntity))
			}
			e.Solids = append(e.Solids, h.Solids...)
		case KindConnections:
			conns, err := mapConnections(c)
			if err != nil {
				return nil, err
			}
			e.Connections = append(e.Connections, conns...)
		case KindEditor:
			if e.Editor != nil {
				return nil, unexpectedBlock(KindEntity, c)
			}
			ed, err := mapEditor(c)
			if err != nil {
				return nil, err
			}
			e.Editor = ed
		case KindEntity, KindWorld, KindSide:
			return nil, unexpectedBlock(KindEntity, c)
		default:
			e.Blocks = append(e.Blocks, c.Clone())
		}
	}
	return e, nil
}

func mapConnections(b *keyvalues.Block) ([]Connection, error) {
	if len(b.Children) > 0 {
		return nil, unexpectedBlock(KindConnections, b.Children[0])
	}
	out := make([]Connection, 0, len(b.Pairs))
	for _, p := range b.Pairs {
		c, err := parseConnection(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// connectionSep is the separator newer editors use so parameters may contain commas.
const connectionSep = "\x1b"

func parseConnection(p keyvalues.Pair) (Connection, error) {
	sep := ","
	if strings.Contains(p.Value, connectionSep) {
		sep = connectionSep
	}
	parts := strings.Split(p.Value, sep)
	if len(parts) != 5 {
		return Connection{}, vmferr.BadFormat(KindConnections, p.Key, p.Value, p.Pos,
			fmt.Sprintf("expected 5 fields target,input,param,delay,times; got %d", len(parts)))
	}
	delay, err := parseDecimal(parts[3])
	if err != nil {
		return Connection{}, vmferr.BadFormat(KindConnections, p.Key, p.Value, p.Pos, "delay: "+err.Error())
	}
	times, err := parseInteger(parts[4], 32)
	if err != nil {
		return Connection{}, vmferr.BadFormat(KindConnections, p.Key, p.Value, p.Pos, "times: "+err.Error())
	}
	return Connection{
		Output: p.Key,
		Target: parts[0],
		Input:  parts[1],
		Param:  parts[2],
		Delay:  delay,
		Times:  int(times),
		Pos:    p.Pos,
	}, nil
}

func mapSolid(b *keyvalues.Block) (*Solid, error) {
	f := newFields(KindSolid, b)
	s := &Solid{ID: f.id("id", true), Pos: b.Pos}
	if f.err != nil {
		return nil, f.err
	}
	s.Extra = f.extra()

	for _, c := range b.Children {
		switch strings.ToLower(c.Name) {
		case KindSide:
			side, err := mapSide(c)
			if err != nil {
				return nil, err
			}
			s.Sides = append(s.Sides, *side)
		case KindEditor:
			if s.Editor != nil {
				return nil, unexpectedBlock(KindSolid, c)
			}
			ed, err := mapEditor(c)
			if err != nil {
				return nil, err
			}
			s.Editor = ed
		case KindSolid, KindEntity, KindWorld:
			return nil, unexpectedBlock(KindSolid, c)
		default:
			s.Blocks = append(s.Blocks, c.Clone())
		}
	}
	return s, nil
}

func mapSide(b *keyvalues.Block) (*Side, error) {
	f := newFields(KindSide, b)
	side := &Side{
		ID:    f.id("id", false),
		Pos:   b.Pos,
		UAxis: TextureAxis{Scale: DefaultTextureScale},
		VAxis: TextureAxis{Scale: DefaultTextureScale},
	}

	if f.err == nil {
		p, ok := f.lookup("plane")
		if !ok {
			f.fail(vmferr.MissingField(KindSide, "plane", b.Pos))
		} else if pl, err := parsePlane(p.Value); err != nil {
			f.badFormat(p, err)
		} else {
			side.Plane = pl
		}
	}
	side.Material = f.str("material", "")
	for _, ax := range []struct {
		key string
		dst *TextureAxis
	}{{"uaxis", &side.UAxis}, {"vaxis", &side.VAxis}} {
		if f.err != nil {
			break
		}
		if p, ok := f.lookup(ax.key); ok {
			a, err := parseAxis(p.Value)
			if err != nil {
				f.badFormat(p, err)
				break
			}
			*ax.dst = a
		}
	}
	side.Rotation = f.decimal("rotation", 0)
	side.LightmapScale = f.integer("lightmapscale", DefaultLightmapScale)
	side.SmoothingGroups = f.unsigned32("smoothing_groups")
	if f.err != nil {
		return nil, f.err
	}
	side.Extra = f.extra()

	for _, c := range b.Children {
		switch {
		case strings.EqualFold(c.Name, KindDispInfo) && side.DispInfo == nil:
			side.DispInfo = c.Clone()
		default:
			side.Blocks = append(side.Blocks, c.Clone())
		}
	}
	return side, nil
}

func mapEditor(b *keyvalues.Block) (*Editor, error) {
	f := newFields(KindEditor, b)
	ed := &Editor{Pos: b.Pos}
	ed.Color, ed.HasColor = f.color("color")
	for _, p := range f.lookupAll("visgroupid") {
		if f.err != nil {
			break
		}
		id, err := parseID(p.Value)
		if err != nil {
			f.badFormat(p, err)
			break
		}
		ed.VisgroupIDs = append(ed.VisgroupIDs, id)
	}
	ed.GroupID = f.id("groupid", false)
	ed.VisgroupShown = f.boolean("visgroupshown", true)
	ed.VisgroupAutoShown = f.boolean("visgroupautoshown", true)
	ed.Comments = f.str("comments", "")
	if f.err != nil {
		return nil, f.err
	}
	if len(b.Children) > 0 {
		return nil, unexpectedBlock(KindEditor, b.Children[0])
	}
	ed.Extra = f.extra()
	return ed, nil
}

func mapGroup(b *keyvalues.Block) (*Group, error) {
	f := newFields(KindGroup, b)
	g := &Group{ID: f.id("id", true), Pos: b.Pos}
	if f.err != nil {
		return nil, f.err
	}
	g.Extra = f.extra()
	for _, c := range b.Children {
		if !strings.EqualFold(c.Name, KindEditor) || g.Editor != nil {
			return nil, unexpectedBlock(KindGroup, c)
		}
		ed, err := mapEditor(c)
		if err != nil {
			return nil, err
		}
		g.Editor = ed
	}
	return g, nil
}

func mapHidden(b *keyvalues.Block) (*Hidden, error) {
	if len(b.Pairs) > 0 {
		p := b.Pairs[0]
		return nil, &vmferr.Error{
			Kind: vmferr.SchemaError, Pos: p.Pos, BlockKind: KindHidden, Field: p.Key,
			Message: fmt.Sprintf("unexpected key %q in hidden", p.Key),
		}
	}
	h := &Hidden{Pos: b.Pos}
	for _, c := range b.Children {
		switch strings.ToLower(c.Name) {
		case KindSolid:
			s, err := mapSolid(c)
			if err != nil {
				return nil, err
			}
			s.Hidden = true
			h.Solids = append(h.Solids, *s)
		case KindEntity:
			e, err := mapEntity(c)
			if err != nil {
				return nil, err
			}
			e.Hidden = true
			h.Entities = append(h.Entities, *e)
		default:
			return nil, unexpectedBlock(KindHidden, c)
		}
	}
	return h, nil
}
