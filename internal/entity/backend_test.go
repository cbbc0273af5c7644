package entity

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rivenhall/homegraph/internal/state"
)

type setCall struct {
	category string
	id       string
	fields   map[string]any
}

type mockBackend struct {
	snap     *state.Snapshot
	stateErr error
	setErr   error
	sets     []setCall
}

func (m *mockBackend) State(context.Context) (*state.Snapshot, error) {
	if m.stateErr != nil {
		return nil, m.stateErr
	}
	return m.snap, nil
}

func (m *mockBackend) Set(_ context.Context, category, id string, fields map[string]any) error {
	m.sets = append(m.sets, setCall{category: category, id: id, fields: fields})
	return m.setErr
}

func (m *mockBackend) lastSet(t *testing.T) setCall {
	t.Helper()
	if len(m.sets) == 0 {
		t.Fatal("expected a mutation, got none")
	}
	return m.sets[len(m.sets)-1]
}

func backendFrom(t *testing.T, raw string) *mockBackend {
	t.Helper()
	snap, err := state.Decode(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return &mockBackend{snap: snap}
}
