// Package command implements the deferred mutation queue. Systems running
// inside a wave never change the shape of the store directly; they push
// commands, and the scheduler applies every queue at the next sync point,
// outside of any concurrent access window.
package command

import (
	"pkg.world.dev/atlas/gamestate"
	"pkg.world.dev/atlas/types"
)

type kind int

const (
	kindSpawn kind = iota
	kindDespawn
	kindInsert
	kindRemove
	kindInsertResource
	kindRemoveResource
	kindCustom
)

func (k kind) String() string {
	switch k {
	case kindSpawn:
		return "spawn"
	case kindDespawn:
		return "despawn"
	case kindInsert:
		return "insert"
	case kindRemove:
		return "remove"
	case kindInsertResource:
		return "insert_resource"
	case kindRemoveResource:
		return "remove_resource"
	case kindCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Pair binds a component value to its metadata for spawn commands.
type Pair struct {
	Metadata types.ComponentMetadata
	Value    any
}

// command is one deferred operation. It is consumed exactly once at apply
// time.
type command struct {
	kind   kind
	entity types.Entity
	comp   types.ComponentMetadata
	value  any
	pairs  []Pair
	fn     func(*gamestate.State) error
}

func (c *command) apply(state *gamestate.State) error {
	switch c.kind {
	case kindSpawn:
		comps := make([]types.ComponentMetadata, 0, len(c.pairs))
		for _, pair := range c.pairs {
			comps = append(comps, pair.Metadata)
		}
		e, err := state.CreateEntity(comps...)
		if err != nil {
			return err
		}
		for _, pair := range c.pairs {
			if pair.Value == nil {
				continue
			}
			if err := state.SetComponentForEntity(pair.Metadata, e, pair.Value); err != nil {
				return err
			}
		}
		return nil
	case kindDespawn:
		return state.DestroyEntity(c.entity)
	case kindInsert:
		return state.AddComponentToEntity(c.comp, c.entity, c.value)
	case kindRemove:
		return state.RemoveComponentFromEntity(c.comp, c.entity)
	case kindInsertResource:
		return state.SetResource(c.comp, c.value)
	case kindRemoveResource:
		return state.RemoveResource(c.comp)
	case kindCustom:
		return c.fn(state)
	default:
		panic("unknown command kind")
	}
}
