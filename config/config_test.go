package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/addrspace"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/errors"
	"github.com/wippyai/opc-classic/server"
)

const sample = `
server:
  clsid: "{6E6170F8-2BF6-4C1E-9D5C-5A2F4A7C0B11}"
  prog_id: Plant.Sim.1
  min_update_rate: 50
  locales: [1033]
address_space:
  separator: /
  nodes:
    - path: plant/tank/level
      type: r8
      value: "42.5"
      eu_low: 0
      eu_high: 100
    - path: plant/pump/on
      type: bool
      value: "true"
      access: rw
mailbox:
  capacity: 8
  timeout: 2s
client:
  versions: [DA2.0, "3"]
  required: [da3.0]
log:
  level: debug
telemetry:
  enabled: true
  metrics: none
`

func TestDefault_Valid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, server.DefaultProgID, c.Server.ProgID)

	avail, req, err := c.Client.VersionSets()
	require.NoError(t, err)
	assert.Equal(t, opc.AllVersions, avail)
	assert.True(t, req.Empty())
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	opts, err := c.Server.Options(nil)
	require.NoError(t, err)
	want, _ := com.ParseGUID("{6E6170F8-2BF6-4C1E-9D5C-5A2F4A7C0B11}")
	assert.Equal(t, want, opts.CLSID)
	assert.Equal(t, "Plant.Sim.1", opts.ProgID)
	assert.Equal(t, uint32(50), opts.MinUpdateRate)
	assert.Equal(t, server.DefaultVendorInfo, opts.VendorInfo)

	assert.Len(t, c.Mailbox.Options(), 2)

	avail, req, err := c.Client.VersionSets()
	require.NoError(t, err)
	assert.Equal(t, "{DA2.0,DA3.0}", avail.String())
	assert.True(t, req.Has(opc.V3))

	// Unset sections keep their defaults.
	assert.Equal(t, "stdout", c.Telemetry.Traces)
	assert.Equal(t, "none", c.Telemetry.Metrics)

	space, err := c.AddressSpace.Build()
	require.NoError(t, err)
	n, ok := space.Lookup("plant/tank/level")
	require.True(t, ok)
	s, err := n.Read()
	require.NoError(t, err)
	assert.Equal(t, 42.5, s.Value.Value())

	l, err := c.Log.Build()
	require.NoError(t, err)
	_ = l.Sync()
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "server: [unclosed"},
		{"clsid", "server:\n  clsid: not-a-guid"},
		{"version", "client:\n  versions: [DA4.0]"},
		{"no versions", "client:\n  versions: []"},
		{"capacity", "mailbox:\n  capacity: 0"},
		{"level", "log:\n  level: loud"},
		{"exporter", "telemetry:\n  traces: jaeger"},
		{"node type", "address_space:\n  nodes:\n    - path: a\n      type: blob"},
		{"node path", "address_space:\n  nodes:\n    - type: r8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidData), "got %v", err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, errors.ErrInvalidData))
}

func TestAddressSpace_SeedFile(t *testing.T) {
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
nodes:
  - path: a.b
    type: i4
    value: "7"
`), 0o600))

	a := AddressSpace{
		Seed:  seed,
		Nodes: []addrspace.NodeSpec{{Path: "a.b", Type: "i4", Value: "9"}},
	}
	space, err := a.Build()
	require.NoError(t, err)
	n, ok := space.Lookup("a.b")
	require.True(t, ok)
	s, err := n.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(9), s.Value.Value(), "inline nodes apply after the seed file")

	a.Nodes = nil
	require.NoError(t, a.Reseed(space))
	s, err = n.Read()
	require.NoError(t, err)
	assert.Equal(t, int32(7), s.Value.Value())
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "opcda.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 64)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c }, WithDebounce(10*time.Millisecond))
	}()

	// Writes are retried until the watcher has registered the directory.
	var c *Config
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600)
		_ = os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600)
		select {
		case c = <-got:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "debug", c.Log.Level)

	// An invalid file is skipped and the watcher keeps running.
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))
	require.Eventually(t, func() bool {
		select {
		case c = <-got:
			return c.Log.Level == "warn"
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
