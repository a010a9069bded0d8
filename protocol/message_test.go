package protocol

import (
	"testing"

	"github.com/antnet/antnet/state"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelloWireFormat(t *testing.T) {
	data, err := Marshal(&Hello{Source: "10.0.0.1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hello","source":"10.0.0.1"}`, string(data))

	msg, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, TypeHello, msg.Type())
	assert.Equal(t, "10.0.0.1", msg.From())
}

func TestUpdateWireFormat(t *testing.T) {
	upd := &Update{
		Source: "10.0.0.2",
		Pheromones: state.Snapshot{
			"10.0.0.3": {"10.0.0.3": 12.5, "10.0.0.4": 1},
			"10.0.0.4": {"10.0.0.4": 0},
		},
	}
	data, err := Marshal(upd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","source":"10.0.0.2","pheromones":{"10.0.0.3":{"10.0.0.3":12.5,"10.0.0.4":1},"10.0.0.4":{"10.0.0.4":0}}}`, string(data))

	msg, err := Unmarshal(data)
	require.NoError(t, err)
	if diff := cmp.Diff(Message(upd), msg); diff != "" {
		t.Fatalf("decoded update mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyUpdateCarriesObject(t *testing.T) {
	data, err := Marshal(&Update{Source: "10.0.0.2"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"update","source":"10.0.0.2","pheromones":{}}`, string(data))

	msg, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Empty(t, msg.(*Update).Pheromones)
}

func TestUnmarshalUnknownType(t *testing.T) {
	for _, raw := range []string{
		`{"source":"10.0.0.2","pheromones":{}}`,
		`{"type":"gossip","source":"10.0.0.2"}`,
		`{"type":"","source":"10.0.0.2"}`,
	} {
		_, err := Unmarshal([]byte(raw))
		assert.ErrorIs(t, err, ErrUnknownType, raw)
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":         `hello`,
		"truncated":        `{"type":"hello"`,
		"no source":        `{"type":"hello"}`,
		"no pheromones":    `{"type":"update","source":"a"}`,
		"null pheromones":  `{"type":"update","source":"a","pheromones":null}`,
		"flat pheromones":  `{"type":"update","source":"a","pheromones":{"b":1}}`,
		"string pheromone": `{"type":"update","source":"a","pheromones":{"b":{"c":"1"}}}`,
		"negative":         `{"type":"update","source":"a","pheromones":{"b":{"c":-1}}}`,
		"expression":       `{"type":"update","source":"a","pheromones":"{'b': {'c': 1}}"}`,
		"array pheromones": `{"type":"update","source":"a","pheromones":[]}`,
		"numeric source":   `{"type":"hello","source":5}`,
		"flag source":      `{"type":"hello","source":"-c100000"}`,
		"flood source":     `{"type":"update","source":"-f","pheromones":{}}`,
		"spaced source":    `{"type":"hello","source":"10.0.0.1 -s65000"}`,
		"empty dest":       `{"type":"update","source":"a","pheromones":{"":{"b":1}}}`,
		"empty hop":        `{"type":"update","source":"a","pheromones":{"b":{"":1}}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(raw))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestUnmarshalAcceptsHostSources(t *testing.T) {
	for _, source := range []string{"10.0.0.1", "fd00::1", "router-2.lan"} {
		msg, err := Unmarshal([]byte(`{"type":"hello","source":"` + source + `"}`))
		require.NoError(t, err, source)
		assert.Equal(t, source, msg.From())
	}
}
