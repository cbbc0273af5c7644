package state

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Entity categories of the remote graph.
const (
	CategoryThermostats   = "thermostats"
	CategorySmokeCOAlarms = "smoke_co_alarms"
	CategoryCameras       = "cameras"
	CategoryStructures    = "structures"
)

// Record is one entity's field set within a snapshot. Getters report
// ErrFieldUnavailable for absent or mistyped fields so schema drift
// degrades to a typed "unavailable" instead of a wrong value.
type Record map[string]any

// Has reports whether the field is present at all.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns a string field.
func (r Record) String(key string) (string, error) {
	v, ok := r[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is not a string", ErrFieldUnavailable, key)
	}
	return s, nil
}

// Float returns a numeric field. JSON numbers decode as float64.
func (r Record) Float(key string) (float64, error) {
	v, ok := r[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrFieldUnavailable, key)
	}
	return f, nil
}

// Int returns a numeric field truncated to an integer.
func (r Record) Int(key string) (int, error) {
	f, err := r.Float(key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Bool returns a boolean field.
func (r Record) Bool(key string) (bool, error) {
	v, ok := r[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is not a boolean", ErrFieldUnavailable, key)
	}
	return b, nil
}

// Time returns an RFC 3339 timestamp field.
func (r Record) Time(key string) (time.Time, error) {
	s, err := r.String(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s is not a timestamp: %v", ErrFieldUnavailable, key, err)
	}
	return t, nil
}

// Record returns a nested object field.
func (r Record) Record(key string) (Record, error) {
	v, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an object", ErrFieldUnavailable, key)
	}
	return Record(m), nil
}

// Records returns an array-of-objects field.
func (r Record) Records(key string) ([]Record, error) {
	v, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an array", ErrFieldUnavailable, key)
	}
	records := make([]Record, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s contains a non-object element", ErrFieldUnavailable, key)
		}
		records = append(records, Record(m))
	}
	return records, nil
}

// StringSlice returns an array-of-strings field.
func (r Record) StringSlice(key string) ([]string, error) {
	v, ok := r[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldUnavailable, key)
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an array", ErrFieldUnavailable, key)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s contains a non-string element", ErrFieldUnavailable, key)
		}
		out = append(out, s)
	}
	return out, nil
}

// Snapshot is one immutable point-in-time view of the full device and
// structure graph. It is created by a fetch or a pushed event and replaced
// wholesale by the next one.
type Snapshot struct {
	root Record
}

// Decode builds a Snapshot from a raw state tree.
func Decode(raw json.RawMessage) (*Snapshot, error) {
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("state: decoding snapshot: %w", err)
	}
	return &Snapshot{root: Record(root)}, nil
}

// Device returns one device record by category and id.
func (s *Snapshot) Device(category, id string) (Record, error) {
	devices, err := s.root.Record("devices")
	if err != nil {
		return nil, fmt.Errorf("%w: no devices in snapshot", ErrNotFound)
	}
	group, err := devices.Record(category)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, category, id)
	}
	record, err := group.Record(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, category, id)
	}
	return record, nil
}

// Structure returns one structure record by id.
func (s *Snapshot) Structure(id string) (Record, error) {
	structures, err := s.root.Record(CategoryStructures)
	if err != nil {
		return nil, fmt.Errorf("%w: no structures in snapshot", ErrNotFound)
	}
	record, err := structures.Record(id)
	if err != nil {
		return nil, fmt.Errorf("%w: structures/%s", ErrNotFound, id)
	}
	return record, nil
}

// DeviceIDs lists the ids present in a device category, sorted for stable
// iteration.
func (s *Snapshot) DeviceIDs(category string) []string {
	devices, err := s.root.Record("devices")
	if err != nil {
		return nil
	}
	group, err := devices.Record(category)
	if err != nil {
		return nil
	}
	return sortedKeys(group)
}

// StructureIDs lists the structure ids, sorted for stable iteration.
func (s *Snapshot) StructureIDs() []string {
	structures, err := s.root.Record(CategoryStructures)
	if err != nil {
		return nil
	}
	return sortedKeys(structures)
}

// Metadata returns the snapshot's metadata record.
func (s *Snapshot) Metadata() (Record, error) {
	return s.root.Record("metadata")
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
