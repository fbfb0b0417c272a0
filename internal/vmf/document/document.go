// Package document assembles typed VMF records into a validated MapDocument.
package document

import (
	"strings"

	"github.com/cory-johannsen/vmfkit/internal/geometry"
	"github.com/cory-johannsen/vmfkit/internal/vmf/keyvalues"
	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
)

// MapDocument is the assembled scene graph of one VMF file.
// It is built once by Assemble and must be treated as read-only.
type MapDocument struct {
	// VersionInfo is nil when the file declares no versioninfo block.
	VersionInfo *schema.VersionInfo
	// Visgroups is nil when the file declares no visgroups block.
	Visgroups *schema.Visgroups
	// World is never nil. A World with ID zero was not declared by the file
	// and only collects top-level solids.
	World *schema.World
	// Entities are kept in source order; hidden entities carry Hidden.
	Entities []schema.Entity
	// Passthrough holds viewsettings, cameras, cordons and every other
	// block of an unrecognized kind, in source order.
	Passthrough []*keyvalues.Block

	solids   map[int64]*schema.Solid
	entities map[int64]*schema.Entity
}

// Stats counts the records of a document.
type Stats struct {
	Entities      int `yaml:"entities" json:"entities"`
	BrushEntities int `yaml:"brush_entities" json:"brush_entities"`
	Solids        int `yaml:"solids" json:"solids"`
	Sides         int `yaml:"sides" json:"sides"`
	Groups        int `yaml:"groups" json:"groups"`
	Visgroups     int `yaml:"visgroups" json:"visgroups"`
	Connections   int `yaml:"connections" json:"connections"`
	Passthrough   int `yaml:"passthrough" json:"passthrough"`
}

// WorldDeclared reports whether the file contained a world block.
func (d *MapDocument) WorldDeclared() bool { return d.World.ID != 0 }

// SolidByID returns the world or entity solid with the given id.
func (d *MapDocument) SolidByID(id int64) (*schema.Solid, bool) {
	s, ok := d.solids[id]
	return s, ok
}

// EntityByID returns the entity with the given id.
func (d *MapDocument) EntityByID(id int64) (*schema.Entity, bool) {
	e, ok := d.entities[id]
	return e, ok
}

// EntitiesByClass returns every entity whose classname matches
// case-insensitively, in source order.
func (d *MapDocument) EntitiesByClass(classname string) []*schema.Entity {
	var out []*schema.Entity
	for i := range d.Entities {
		if strings.EqualFold(d.Entities[i].Classname, classname) {
			out = append(out, &d.Entities[i])
		}
	}
	return out
}

// Stats counts entities, solids, sides and the other records of d.
func (d *MapDocument) Stats() Stats {
	st := Stats{
		Entities:    len(d.Entities),
		Groups:      len(d.World.Groups),
		Passthrough: len(d.Passthrough),
	}
	countSolids := func(solids []schema.Solid) {
		st.Solids += len(solids)
		for i := range solids {
			st.Sides += len(solids[i].Sides)
		}
	}
	countSolids(d.World.Solids)
	for i := range d.Entities {
		e := &d.Entities[i]
		if e.IsBrush() {
			st.BrushEntities++
		}
		st.Connections += len(e.Connections)
		countSolids(e.Solids)
	}
	if d.Visgroups != nil {
		st.Visgroups = countVisgroups(d.Visgroups.Groups)
	}
	return st
}

func countVisgroups(groups []schema.Visgroup) int {
	n := len(groups)
	for i := range groups {
		n += countVisgroups(groups[i].Children)
	}
	return n
}

// Bounds returns the axis-aligned box enclosing every world solid.
// The box is empty when the world has no closed solids.
func (d *MapDocument) Bounds() geometry.Box {
	var box geometry.Box
	for i := range d.World.Solids {
		box = box.Union(d.World.Solids[i].Hull().Bounds())
	}
	return box
}

// OpenSolids returns the IDs of world and entity solids whose planes do not
// enclose a finite volume, in source order. Hammer leaves such brushes
// invisible in game.
func (d *MapDocument) OpenSolids() []int64 {
	var ids []int64
	check := func(solids []schema.Solid) {
		for i := range solids {
			if !solids[i].Hull().Closed() {
				ids = append(ids, solids[i].ID)
			}
		}
	}
	check(d.World.Solids)
	for i := range d.Entities {
		check(d.Entities[i].Solids)
	}
	return ids
}

// Blocks re-serializes d into a generic tree whose root holds the
// top-level blocks, ready for keyvalues.Encode.
//
// Postcondition: mapping and assembling the returned tree yields a
// document equal to d apart from source positions.
func (d *MapDocument) Blocks() *keyvalues.Block {
	root := keyvalues.NewBlock("")
	if d.VersionInfo != nil {
		root.AddChild(d.VersionInfo.Block())
	}
	if d.Visgroups != nil {
		root.AddChild(d.Visgroups.Block())
	}
	if d.WorldDeclared() {
		root.AddChild(d.World.Block())
	} else {
		for i := range d.World.Solids {
			root.AddChild(wrapHidden(d.World.Solids[i].Block(), d.World.Solids[i].Hidden))
		}
	}
	for i := range d.Entities {
		root.AddChild(wrapHidden(d.Entities[i].Block(), d.Entities[i].Hidden))
	}
	for _, b := range d.Passthrough {
		root.AddChild(b.Clone())
	}
	return root
}

func wrapHidden(b *keyvalues.Block, hidden bool) *keyvalues.Block {
	if !hidden {
		return b
	}
	return keyvalues.NewBlock(schema.KindHidden).AddChild(b)
}
