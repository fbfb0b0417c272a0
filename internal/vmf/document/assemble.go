package document

import (
	"fmt"
	"slices"

	"github.com/cory-johannsen/vmfkit/internal/vmf/schema"
	"github.com/cory-johannsen/vmfkit/internal/vmf/vmferr"
)

// MinSides is the smallest number of planes that can bound a closed brush.
const MinSides = 4

// Assemble links the top-level records of one file into a MapDocument.
//
// Top-level solids and world-level hidden solids join the World; entity
// solids stay with their entity. Editor group and visgroup references must
// resolve to declared groups and visgroups. World, solid, entity and group
// ids share one namespace; side ids and visgroup ids each have their own.
// Every solid needs at least MinSides sides and no degenerate plane.
//
// Precondition: recs is the output of schema.Map.
// Postcondition: returns a complete document, or the first ConsistencyError
// and a nil document.
func Assemble(recs []schema.Record) (*MapDocument, error) {
	a := newAssembler()
	if err := a.collect(recs); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a.doc, nil
}

type assembler struct {
	doc       *MapDocument
	world     *schema.World
	loose     []schema.Solid
	ids       map[int64]declared
	sideIDs   map[int64]declared
	visIDs    map[int64]declared
	groupIDs  map[int64]bool
	versionAt vmferr.Position
}

type declared struct {
	kind string
	pos  vmferr.Position
}

func newAssembler() *assembler {
	return &assembler{
		doc:      &MapDocument{},
		ids:      make(map[int64]declared),
		sideIDs:  make(map[int64]declared),
		visIDs:   make(map[int64]declared),
		groupIDs: make(map[int64]bool),
	}
}

func (a *assembler) collect(recs []schema.Record) error {
	for _, r := range recs {
		switch v := r.(type) {
		case *schema.VersionInfo:
			if a.doc.VersionInfo != nil {
				return duplicateBlock(schema.KindVersionInfo, v.Pos, a.versionAt)
			}
			a.doc.VersionInfo = v
			a.versionAt = v.Pos
		case *schema.Visgroups:
			if a.doc.Visgroups == nil {
				a.doc.Visgroups = &schema.Visgroups{Pos: v.Pos}
			}
			a.doc.Visgroups.Groups = append(a.doc.Visgroups.Groups, v.Groups...)
		case *schema.World:
			if a.world != nil {
				return duplicateBlock(schema.KindWorld, v.Pos, a.world.Pos)
			}
			a.world = v
		case *schema.Solid:
			a.loose = append(a.loose, *v)
		case *schema.Entity:
			a.doc.Entities = append(a.doc.Entities, *v)
		case *schema.Hidden:
			a.loose = append(a.loose, v.Solids...)
			a.doc.Entities = append(a.doc.Entities, v.Entities...)
		case *schema.Unknown:
			a.doc.Passthrough = append(a.doc.Passthrough, v.Block)
		case *schema.Side, *schema.Editor, *schema.Group:
			return vmferr.Newf(vmferr.ConsistencyError, r.Position(),
				"%s block outside of its owning block", r.Kind())
		default:
			return vmferr.Newf(vmferr.ConsistencyError, r.Position(), "unsupported record %T", r)
		}
	}

	w := &schema.World{Classname: "worldspawn"}
	if a.world != nil {
		copied := *a.world
		w = &copied
	}
	if len(a.loose) > 0 {
		w.Solids = append(slices.Clip(w.Solids), a.loose...)
	}
	a.doc.World = w
	return nil
}

func duplicateBlock(kind string, pos, first vmferr.Position) error {
	return &vmferr.Error{
		Kind:    vmferr.ConsistencyError,
		Pos:     pos,
		Related: []vmferr.Position{first},
		Message: fmt.Sprintf("more than one %s block", kind),
	}
}

func (a *assembler) validate() error {
	d := a.doc
	d.solids = make(map[int64]*schema.Solid)
	d.entities = make(map[int64]*schema.Entity)

	if d.Visgroups != nil {
		if err := a.declareVisgroups(d.Visgroups.Groups); err != nil {
			return err
		}
	}
	if d.WorldDeclared() {
		if err := a.declare(schema.KindWorld, d.World.ID, d.World.Pos); err != nil {
			return err
		}
	}
	for i := range d.World.Groups {
		g := &d.World.Groups[i]
		if err := a.declare(schema.KindGroup, g.ID, g.Pos); err != nil {
			return err
		}
		a.groupIDs[g.ID] = true
	}
	for i := range d.World.Groups {
		if err := a.resolve(d.World.Groups[i].Editor); err != nil {
			return err
		}
	}
	for i := range d.World.Solids {
		if err := a.solid(&d.World.Solids[i]); err != nil {
			return err
		}
	}
	for i := range d.Entities {
		e := &d.Entities[i]
		if err := a.declare(schema.KindEntity, e.ID, e.Pos); err != nil {
			return err
		}
		if err := a.resolve(e.Editor); err != nil {
			return err
		}
		d.entities[e.ID] = e
		for j := range e.Solids {
			if err := a.solid(&e.Solids[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *assembler) declare(kind string, id int64, pos vmferr.Position) error {
	if first, dup := a.ids[id]; dup {
		return &vmferr.Error{
			Kind:    vmferr.ConsistencyError,
			Pos:     pos,
			Related: []vmferr.Position{first.pos},
			Message: fmt.Sprintf("duplicate id %d on %s, first used by %s", id, kind, first.kind),
		}
	}
	a.ids[id] = declared{kind: kind, pos: pos}
	return nil
}

func (a *assembler) declareVisgroups(groups []schema.Visgroup) error {
	for i := range groups {
		vg := &groups[i]
		if first, dup := a.visIDs[vg.ID]; dup {
			return &vmferr.Error{
				Kind:    vmferr.ConsistencyError,
				Pos:     vg.Pos,
				Related: []vmferr.Position{first.pos},
				Message: fmt.Sprintf("duplicate visgroupid %d (%q)", vg.ID, vg.Name),
			}
		}
		a.visIDs[vg.ID] = declared{kind: schema.KindVisgroup, pos: vg.Pos}
		if err := a.declareVisgroups(vg.Children); err != nil {
			return err
		}
	}
	return nil
}

func (a *assembler) solid(s *schema.Solid) error {
	if err := a.declare(schema.KindSolid, s.ID, s.Pos); err != nil {
		return err
	}
	for i := range s.Sides {
		side := &s.Sides[i]
		if side.Plane.Degenerate() {
			return vmferr.Newf(vmferr.ConsistencyError, side.Pos,
				"solid %d has a degenerate plane %s", s.ID, side.Plane)
		}
		if side.ID == 0 {
			continue
		}
		if first, dup := a.sideIDs[side.ID]; dup {
			return &vmferr.Error{
				Kind:    vmferr.ConsistencyError,
				Pos:     side.Pos,
				Related: []vmferr.Position{first.pos},
				Message: fmt.Sprintf("duplicate side id %d", side.ID),
			}
		}
		a.sideIDs[side.ID] = declared{kind: schema.KindSide, pos: side.Pos}
	}
	if len(s.Sides) < MinSides {
		return vmferr.Newf(vmferr.ConsistencyError, s.Pos,
			"solid %d has %d sides, need at least %d", s.ID, len(s.Sides), MinSides)
	}
	if err := a.resolve(s.Editor); err != nil {
		return err
	}
	a.doc.solids[s.ID] = s
	return nil
}

func (a *assembler) resolve(ed *schema.Editor) error {
	if ed == nil {
		return nil
	}
	if ed.GroupID != 0 && !a.groupIDs[ed.GroupID] {
		return &vmferr.Error{
			Kind: vmferr.ConsistencyError, Pos: ed.Pos, BlockKind: schema.KindEditor, Field: "groupid",
			Message: fmt.Sprintf("groupid %d does not name a declared group", ed.GroupID),
		}
	}
	for _, id := range ed.VisgroupIDs {
		if _, ok := a.visIDs[id]; !ok {
			return &vmferr.Error{
				Kind: vmferr.ConsistencyError, Pos: ed.Pos, BlockKind: schema.KindEditor, Field: "visgroupid",
				Message: fmt.Sprintf("visgroupid %d does not name a declared visgroup", id),
			}
		}
	}
	return nil
}
