package entity

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rivenhall/homegraph/internal/state"
)

// Where is one named location label inside a structure.
type Where struct {
	ID   string
	Name string
}

// Structure is a typed view over one structure (home) in the current
// snapshot.
type Structure struct {
	backend Backend
	id      string
}

// NewStructure creates a view for the structure with the given id.
func NewStructure(backend Backend, id string) *Structure {
	return &Structure{backend: backend, id: id}
}

// ID returns the structure's identifier.
func (s *Structure) ID() string {
	return s.id
}

func (s *Structure) record(ctx context.Context) (state.Record, error) {
	snap, err := s.backend.State(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Structure(s.id)
}

func (s *Structure) set(ctx context.Context, fields map[string]any) error {
	return s.backend.Set(ctx, putStructures, s.id, fields)
}

// Name returns the structure's display name.
func (s *Structure) Name(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("name")
}

// SetName updates the structure's display name.
func (s *Structure) SetName(ctx context.Context, name string) error {
	return s.set(ctx, map[string]any{"name": name})
}

// Away returns the normalized occupancy state, "home" or "away".
func (s *Structure) Away(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("away")
}

// SetAway accepts the historical occupancy vocabulary (booleans, "on",
// "off", "home", "away") and writes the normalized state.
func (s *Structure) SetAway(ctx context.Context, value any) error {
	away, err := normalizeAway(value)
	if err != nil {
		return err
	}
	return s.set(ctx, map[string]any{"away": away})
}

// CountryCode returns the ISO country code.
func (s *Structure) CountryCode(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("country_code")
}

// PostalCode returns the postal code.
func (s *Structure) PostalCode(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("postal_code")
}

// TimeZone returns the IANA time zone name.
func (s *Structure) TimeZone(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("time_zone")
}

// PeakPeriodStart returns the start of the active rush-hour event, if
// one is scheduled.
func (s *Structure) PeakPeriodStart(ctx context.Context) (time.Time, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("peak_period_start_time")
}

// PeakPeriodEnd returns the end of the active rush-hour event.
func (s *Structure) PeakPeriodEnd(ctx context.Context) (time.Time, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("peak_period_end_time")
}

// ETABegin returns the earliest expected arrival time of a pending ETA
// window.
func (s *Structure) ETABegin(ctx context.Context) (time.Time, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return rec.Time("eta_begin")
}

// SecurityState returns the structure's security state ("ok" or
// "deter").
func (s *Structure) SecurityState(ctx context.Context) (string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.String("security_state")
}

// ThermostatIDs lists the serials of thermostats in the structure.
func (s *Structure) ThermostatIDs(ctx context.Context) ([]string, error) {
	return s.deviceIDs(ctx, state.CategoryThermostats)
}

// CameraIDs lists the serials of cameras in the structure.
func (s *Structure) CameraIDs(ctx context.Context) ([]string, error) {
	return s.deviceIDs(ctx, state.CategoryCameras)
}

// SmokeCoAlarmIDs lists the serials of smoke and CO alarms in the
// structure.
func (s *Structure) SmokeCoAlarmIDs(ctx context.Context) ([]string, error) {
	return s.deviceIDs(ctx, state.CategorySmokeCOAlarms)
}

// NumThermostats returns the thermostat count.
func (s *Structure) NumThermostats(ctx context.Context) (int, error) {
	ids, err := s.ThermostatIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// NumCameras returns the camera count.
func (s *Structure) NumCameras(ctx context.Context) (int, error) {
	ids, err := s.CameraIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// NumSmokeCoAlarms returns the smoke and CO alarm count.
func (s *Structure) NumSmokeCoAlarms(ctx context.Context) (int, error) {
	ids, err := s.SmokeCoAlarmIDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// deviceIDs reads a category's member list. The remote omits the field
// when the structure has no devices of that kind; that reads as empty.
func (s *Structure) deviceIDs(ctx context.Context, category string) ([]string, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := rec.StringSlice(category)
	if err != nil {
		if rec.Has(category) {
			return nil, err
		}
		return nil, nil
	}
	return ids, nil
}

// Wheres returns the structure's location labels.
func (s *Structure) Wheres(ctx context.Context) ([]Where, error) {
	rec, err := s.record(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := rec.Records("wheres")
	if err != nil {
		return nil, err
	}
	wheres := make([]Where, 0, len(entries))
	for _, entry := range entries {
		id, err := entry.String("where_id")
		if err != nil {
			return nil, err
		}
		name, err := entry.String("name")
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, Where{ID: id, Name: name})
	}
	return wheres, nil
}

// AddWhere returns the id of the location label with the given name,
// creating it when absent. Name matching is case-insensitive and the
// stored label is title-cased. Creation rewrites the full where list,
// which is how the remote accepts where mutations.
func (s *Structure) AddWhere(ctx context.Context, name string) (string, error) {
	wheres, err := s.Wheres(ctx)
	if err != nil {
		return "", err
	}
	for _, w := range wheres {
		if strings.EqualFold(w.Name, name) {
			return w.ID, nil
		}
	}

	id := uuid.NewString()
	wheres = append(wheres, Where{ID: id, Name: titleCase(name)})
	if err := s.putWheres(ctx, wheres); err != nil {
		return "", err
	}
	return id, nil
}

// RemoveWhere deletes the location label with the given name by
// rewriting the full where list without it. Removing an absent name is
// a no-op.
func (s *Structure) RemoveWhere(ctx context.Context, name string) error {
	wheres, err := s.Wheres(ctx)
	if err != nil {
		return err
	}

	kept := wheres[:0]
	for _, w := range wheres {
		if !strings.EqualFold(w.Name, name) {
			kept = append(kept, w)
		}
	}
	if len(kept) == len(wheres) {
		return nil
	}
	return s.putWheres(ctx, kept)
}

func (s *Structure) putWheres(ctx context.Context, wheres []Where) error {
	entries := make([]map[string]any, 0, len(wheres))
	for _, w := range wheres {
		entries = append(entries, map[string]any{
			"where_id": w.ID,
			"name":     w.Name,
		})
	}
	return s.set(ctx, map[string]any{"wheres": entries})
}

// titleCase upper-cases the first rune of each space-separated word,
// matching how the official apps store location labels.
func titleCase(name string) string {
	words := strings.Fields(name)
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = strings.ToUpper(string(first)) + strings.ToLower(word[size:])
	}
	return strings.Join(words, " ")
}

// Weather was removed from the protocol.
func (s *Structure) Weather(context.Context) (string, error) {
	return "", ErrDeprecated
}

// Address was removed from the protocol.
func (s *Structure) Address(context.Context) (string, error) {
	return "", ErrDeprecated
}

// DRState was removed from the protocol.
func (s *Structure) DRState(context.Context) (string, error) {
	return "", ErrDeprecated
}
