package entity

import (
	"context"
	"errors"

	"github.com/rivenhall/homegraph/internal/state"
)

// Backend is the slice of the owning client the views depend on: the
// current snapshot for reads, the mutate path for writes.
type Backend interface {
	State(ctx context.Context) (*state.Snapshot, error)
	Set(ctx context.Context, category, id string, fields map[string]any) error
}

// PUT categories of the mutate path.
const (
	putThermostats   = "devices/thermostats"
	putCameras       = "devices/cameras"
	putSmokeCOAlarms = "devices/smoke_co_alarms"
	putStructures    = "structures"
)

// device carries the plumbing shared by every device-kind view: snapshot
// lookup by category and id, plus the handful of fields common to all
// device categories.
type device struct {
	backend  Backend
	category string
	put      string
	id       string
}

// record resolves the device's field set in the current snapshot.
func (d device) record(ctx context.Context) (state.Record, error) {
	snap, err := d.backend.State(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Device(d.category, d.id)
}

// set issues a field-level mutation for this device.
func (d device) set(ctx context.Context, fields map[string]any) error {
	return d.backend.Set(ctx, d.put, d.id, fields)
}

// ID returns the device's serial identifier.
func (d device) ID() string {
	return d.id
}

// Name returns the short display name.
func (d device) Name(ctx context.Context) (string, error) {
	rec, err := d.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("name")
}

// NameLong returns the long display name.
func (d device) NameLong(ctx context.Context) (string, error) {
	rec, err := d.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("name_long")
}

// Online reports device connectivity.
func (d device) Online(ctx context.Context) (bool, error) {
	rec, err := d.record(ctx)
	if err != nil {
		return false, err
	}
	return rec.Bool("is_online")
}

// StructureID returns the id of the structure the device belongs to.
func (d device) StructureID(ctx context.Context) (string, error) {
	rec, err := d.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("structure_id")
}

// Structure returns a view of the owning structure.
func (d device) Structure(ctx context.Context) (*Structure, error) {
	id, err := d.StructureID(ctx)
	if err != nil {
		return nil, err
	}
	return NewStructure(d.backend, id), nil
}

// WhereID returns the opaque location-label identifier.
func (d device) WhereID(ctx context.Context) (string, error) {
	rec, err := d.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("where_id")
}

// WhereName resolves the device's location label through its structure's
// where list. A where id missing from the structure (a known upstream
// quirk) resolves to the raw id.
func (d device) WhereName(ctx context.Context) (string, error) {
	whereID, err := d.WhereID(ctx)
	if err != nil {
		return "", err
	}

	structure, err := d.Structure(ctx)
	if err != nil {
		return "", err
	}

	wheres, err := structure.Wheres(ctx)
	if err != nil {
		if errors.Is(err, state.ErrFieldUnavailable) {
			return whereID, nil
		}
		return "", err
	}

	for _, w := range wheres {
		if w.ID == whereID {
			return w.Name, nil
		}
	}
	return whereID, nil
}

// SetWhere assigns the device to the named location label, creating the
// label on the structure first when it does not exist yet.
func (d device) SetWhere(ctx context.Context, name string) error {
	structure, err := d.Structure(ctx)
	if err != nil {
		return err
	}

	id, err := structure.AddWhere(ctx, name)
	if err != nil {
		return err
	}
	return d.backend.Set(ctx, d.put, d.id, map[string]any{"where_id": id})
}
