// Package schema maps generic VMF blocks onto typed map records and validates
// their required fields and numeric formats.
package schema

import (
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/geometry"
	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// Block kind names as they appear in VMF text.
const (
	KindVersionInfo = "versioninfo"
	KindVisgroups   = "visgroups"
	KindVisgroup    = "visgroup"
	KindWorld       = "world"
	KindEntity      = "entity"
	KindSolid       = "solid"
	KindSide        = "side"
	KindEditor      = "editor"
	KindGroup       = "group"
	KindHidden      = "hidden"
	KindConnections = "connections"
	KindDispInfo    = "dispinfo"
)

// Record is one typed variant produced by MapBlock. The concrete types are
// *VersionInfo, *Visgroups, *World, *Entity, *Solid, *Side, *Editor, *Group,
// *Hidden and *Unknown.
type Record interface {
	// Kind returns the block name the record was mapped from.
	Kind() string
	// Position returns the source location of the record's block.
	Position() vmferr.Position
}

// Plane is the three-point plane definition of a side, in VMF winding.
type Plane struct {
	Points [3]geometry.Vec3
}

// Degenerate reports whether the points are coincident or collinear.
func (p Plane) Degenerate() bool {
	return geometry.Degenerate(p.Points[0], p.Points[1], p.Points[2])
}

// Geometry returns the oriented plane, or ok=false when the points are degenerate.
func (p Plane) Geometry() (geometry.Plane, bool) {
	return geometry.PlaneFromPoints(p.Points[0], p.Points[1], p.Points[2])
}

// TextureAxis is a side's U or V projection: "[x y z shift] scale".
type TextureAxis struct {
	Axis  geometry.Vec3
	Shift float64
	Scale float64
}

// Color is an editor display color.
type Color struct {
	R, G, B uint8
}

// Editor holds the editor-only metadata attached to a solid, entity or group.
type Editor struct {
	Color             Color
	HasColor          bool
	VisgroupIDs       []int64
	GroupID           int64
	VisgroupShown     bool
	VisgroupAutoShown bool
	Comments          string
	Extra             []keyvalues.Pair
	Pos               vmferr.Position
}

// Side is one bounding half-space of a solid.
type Side struct {
	// ID is zero when the side block declares none.
	ID              int64
	Plane           Plane
	Material        string
	UAxis           TextureAxis
	VAxis           TextureAxis
	Rotation        float64
	LightmapScale   int
	SmoothingGroups uint32
	// DispInfo is the displacement block, kept opaque.
	DispInfo *keyvalues.Block
	Extra    []keyvalues.Pair
	Blocks   []*keyvalues.Block
	Pos      vmferr.Position
}

// Solid is a convex brush bounded by its sides.
type Solid struct {
	ID     int64
	Sides  []Side
	Editor *Editor
	// Hidden is set for solids wrapped in a hidden block.
	Hidden bool
	Extra  []keyvalues.Pair
	Blocks []*keyvalues.Block
	Pos    vmferr.Position
}

// Hull returns the convex hull of the solid's planes, skipping degenerate sides.
func (s *Solid) Hull() geometry.ConvexHull {
	var h geometry.ConvexHull
	for _, side := range s.Sides {
		if p, ok := side.Plane.Geometry(); ok {
			h.Planes = append(h.Planes, p)
		}
	}
	return h
}

// Connection is one entity output wired to a target input.
type Connection struct {
	Output string
	Target string
	Input  string
	Param  string
	Delay  float64
	// Times is the fire count; -1 means unlimited.
	Times int
	Pos   vmferr.Position
}

// Properties is an ordered, case-insensitively unique string map.
type Properties struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value stored under key, matching case-insensitively.
func (p Properties) Get(key string) (string, bool) {
	if v, ok := p.Values[key]; ok {
		return v, true
	}
	for _, k := range p.Keys {
		if strings.EqualFold(k, key) {
			return p.Values[k], true
		}
	}
	return "", false
}

// Len returns the number of properties.
func (p Properties) Len() int { return len(p.Keys) }

// Entity is a point or brush entity.
type Entity struct {
	ID        int64
	Classname string
	// Properties holds every key except id and classname, origin included.
	Properties  Properties
	Origin      *geometry.Vec3
	Solids      []Solid
	Connections []Connection
	Editor      *Editor
	Hidden      bool
	Blocks      []*keyvalues.Block
	Pos         vmferr.Position
}

// IsBrush reports whether the entity owns brush geometry.
func (e *Entity) IsBrush() bool { return len(e.Solids) > 0 }

// Group is an editor grouping of solids and entities.
type Group struct {
	ID     int64
	Editor *Editor
	Extra  []keyvalues.Pair
	Pos    vmferr.Position
}

// World is the worldspawn: global properties and the static brushes.
type World struct {
	ID         int64
	Classname  string
	Properties Properties
	Solids     []Solid
	Groups     []Group
	Blocks     []*keyvalues.Block
	Pos        vmferr.Position
}

// Visgroup is a named, nestable visibility group.
type Visgroup struct {
	ID       int64
	Name     string
	Color    Color
	HasColor bool
	Children []Visgroup
	Extra    []keyvalues.Pair
	Pos      vmferr.Position
}

// Visgroups is the top-level container of visgroup definitions.
type Visgroups struct {
	Groups []Visgroup
	Pos    vmferr.Position
}

// VersionInfo is the editor and format version header.
type VersionInfo struct {
	EditorVersion int
	EditorBuild   int
	MapVersion    int
	FormatVersion int
	Prefab        bool
	Extra         []keyvalues.Pair
	Pos           vmferr.Position
}

// Hidden wraps solids and entities hidden in the editor.
type Hidden struct {
	Solids   []Solid
	Entities []Entity
	Pos      vmferr.Position
}

// Unknown passes a block of an unrecognized kind through untouched.
type Unknown struct {
	Block *keyvalues.Block
}

func (*VersionInfo) Kind() string { return KindVersionInfo }
func (*Visgroups) Kind() string   { return KindVisgroups }
func (*World) Kind() string       { return KindWorld }
func (*Entity) Kind() string      { return KindEntity }
func (*Solid) Kind() string       { return KindSolid }
func (*Side) Kind() string        { return KindSide }
func (*Editor) Kind() string      { return KindEditor }
func (*Group) Kind() string       { return KindGroup }
func (*Hidden) Kind() string      { return KindHidden }
func (u *Unknown) Kind() string   { return u.Block.Name }

func (r *VersionInfo) Position() vmferr.Position { return r.Pos }
func (r *Visgroups) Position() vmferr.Position   { return r.Pos }
func (r *World) Position() vmferr.Position       { return r.Pos }
func (r *Entity) Position() vmferr.Position      { return r.Pos }
func (r *Solid) Position() vmferr.Position       { return r.Pos }
func (r *Side) Position() vmferr.Position        { return r.Pos }
func (r *Editor) Position() vmferr.Position      { return r.Pos }
func (r *Group) Position() vmferr.Position       { return r.Pos }
func (r *Hidden) Position() vmferr.Position      { return r.Pos }
func (r *Unknown) Position() vmferr.Position     { return r.Block.Pos }
