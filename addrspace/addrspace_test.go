package addrspace

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/opc-classic"
	"github.com/wippyai/opc-classic/com"
	"github.com/wippyai/opc-classic/da"
	"github.com/wippyai/opc-classic/errors"
)

var fixed = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newSpace() *Space {
	return New(WithClock(func() time.Time { return fixed }))
}

func TestSpace_SetAndLookup(t *testing.T) {
	s := newSpace()
	n, err := s.Set("plant.tank.level", com.NewFloat64(42.5))
	if err != nil {
		t.Fatal(err)
	}
	if n.Path() != "plant.tank.level" || n.Name() != "level" {
		t.Errorf("path %q name %q", n.Path(), n.Name())
	}

	got, ok := s.Lookup("plant.tank.level")
	if !ok || got != n {
		t.Fatal("Lookup did not return the node")
	}
	sample, err := got.Read()
	if err != nil {
		t.Fatal(err)
	}
	if !sample.Value.Equal(com.NewFloat64(42.5)) || sample.Quality != da.QualityGood || !sample.Timestamp.Equal(fixed) {
		t.Errorf("sample %+v", sample)
	}
	if got.CanonicalType() != com.VT_R8 {
		t.Errorf("canonical %s", com.VTName(got.CanonicalType()))
	}

	tank, _ := s.Lookup("plant.tank")
	if n.Parent() != tank || tank.Parent().Name() != "plant" || tank.Parent().Parent() != s.Root() {
		t.Error("parent chain broken")
	}
	if tank.IsItem() || !n.IsItem() || s.Root().IsItem() {
		t.Error("IsItem")
	}

	for _, bad := range []string{"plant.tank.missing", "plant..tank", ".plant"} {
		if _, ok := s.Lookup(bad); ok {
			t.Errorf("Lookup(%q) should fail", bad)
		}
	}
	if _, err := s.Find("nope"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Find error %v", err)
	}
}

func TestSpace_ChildrenOrder(t *testing.T) {
	s := newSpace()
	for _, p := range []string{"b.x", "a.y", "c", "a.z"} {
		s.Set(p, com.NewInt32(1))
	}
	var names []string
	for _, c := range s.Root().Children() {
		names = append(names, c.Name())
	}
	if strings.Join(names, ",") != "b,a,c" {
		t.Errorf("order %v", names)
	}

	var paths []string
	s.Walk(func(n *Node) bool {
		paths = append(paths, n.Path())
		return true
	})
	if strings.Join(paths, ",") != "b,b.x,a,a.y,a.z,c" {
		t.Errorf("walk %v", paths)
	}
	if len(s.Items()) != 4 {
		t.Errorf("items %d", len(s.Items()))
	}
}

func TestNode_AccessRights(t *testing.T) {
	s := newSpace()
	n, _ := s.Set("ro", com.NewInt32(1))
	n.SetAccessRights(da.AccessReadable)

	err := n.Write(com.NewInt32(2))
	if !errors.Is(err, errors.ErrBadRights) {
		t.Fatalf("write error %v", err)
	}
	if errors.HResult(err) != opc.OPC_E_BADRIGHTS {
		t.Errorf("code %s", errors.HResult(err))
	}

	n.SetAccessRights(da.AccessWriteable)
	if _, err := n.Read(); !errors.Is(err, errors.ErrBadRights) {
		t.Fatalf("read error %v", err)
	}
	if err := n.Write(com.NewInt32(3)); err != nil {
		t.Fatal(err)
	}
	if v := n.Peek().Value; !v.Equal(com.NewInt32(3)) {
		t.Errorf("value %v", v)
	}
}

func TestNode_WriteKeepsQualityAndTimestamp(t *testing.T) {
	s := newSpace()
	n, _ := s.Set("x", com.NewFloat64(1))
	before := n.Version()

	if err := n.Write(com.NewInt32(7)); err != nil {
		t.Fatal(err)
	}
	sample := n.Peek()
	if !sample.Value.Equal(com.NewFloat64(7)) {
		t.Errorf("value not converted to canonical type: %v", sample.Value)
	}
	if sample.Quality != da.QualityGood || !sample.Timestamp.Equal(fixed) {
		t.Errorf("quality or timestamp changed: %+v", sample)
	}
	if n.Version() == before {
		t.Error("version not bumped")
	}

	if err := n.Write(com.NewString("abc")); err == nil {
		t.Error("expected conversion error")
	}
}

func TestNode_WriteVQT(t *testing.T) {
	s := newSpace()
	n, _ := s.Set("x", com.NewInt32(1))
	q := da.QualityUncertain
	ts := fixed.Add(time.Hour)

	if err := n.WriteVQT(com.NewInt32(5), &q, &ts); err != nil {
		t.Fatal(err)
	}
	sample := n.Peek()
	if !sample.Value.Equal(com.NewInt32(5)) || sample.Quality != q || !sample.Timestamp.Equal(ts) {
		t.Errorf("sample %+v", sample)
	}

	if err := n.WriteVQT(com.NewInt32(6), nil, nil); err != nil {
		t.Fatal(err)
	}
	if sample := n.Peek(); sample.Quality != q || !sample.Timestamp.Equal(ts) {
		t.Errorf("unspecified fields changed: %+v", sample)
	}
}

func TestSpace_Remove(t *testing.T) {
	s := newSpace()
	n, _ := s.Set("a.b", com.NewInt32(1))
	if err := s.Remove("a"); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Lookup("a.b"); ok {
		t.Error("subtree still reachable")
	}
	if v := n.Peek().Value; !v.Equal(com.NewInt32(1)) {
		t.Error("detached node lost its sample")
	}
	if err := s.Remove("a"); err == nil {
		t.Error("second remove should fail")
	}
	if err := s.Remove(""); err == nil {
		t.Error("removing the root should fail")
	}
}

func TestSpace_Separator(t *testing.T) {
	s := New(WithSeparator("/"))
	n, _ := s.Set("plant/tank", com.NewBool(true))
	if n.Path() != "plant/tank" {
		t.Errorf("path %q", n.Path())
	}
	if s.Join("a", "b") != "a/b" {
		t.Error("Join")
	}
}

const seedYAML = `
nodes:
  - path: plant.tank.level
    type: r8
    value: "42.5"
    access: rw
    description: Tank level
    eu_low: 0
    eu_high: 100
  - path: plant.tank.alarm
    type: bool
    value: "false"
    access: r
  - path: plant.pump.speed
    type: ui2
    value: "1200"
    quality: 64
  - path: plant.empty
`

func TestSeed(t *testing.T) {
	seed, err := ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatal(err)
	}
	s, err := FromSeed(seed, WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatal(err)
	}

	level, _ := s.Lookup("plant.tank.level")
	if v := level.Peek().Value; !v.Equal(com.NewFloat64(42.5)) {
		t.Errorf("level %v", v)
	}
	if level.Description() != "Tank level" {
		t.Errorf("description %q", level.Description())
	}
	if lo, hi, ok := level.EURange(); !ok || lo != 0 || hi != 100 || level.EUType() != da.EUAnalog {
		t.Errorf("EU range %v %v %v", lo, hi, ok)
	}

	alarm, _ := s.Lookup("plant.tank.alarm")
	if alarm.AccessRights() != da.AccessReadable {
		t.Errorf("alarm rights %d", alarm.AccessRights())
	}

	speed, _ := s.Lookup("plant.pump.speed")
	if speed.Peek().Quality != da.QualityUncertain || speed.CanonicalType() != com.VT_UI2 {
		t.Errorf("speed %+v %s", speed.Peek(), com.VTName(speed.CanonicalType()))
	}

	empty, _ := s.Lookup("plant.empty")
	if !empty.Peek().Value.IsEmpty() {
		t.Error("branch-only spec got a value")
	}

	// Re-applying keeps node identity and updates values.
	err = s.Apply([]NodeSpec{{Path: "plant.tank.level", Type: "r8", Value: "50"}})
	if err != nil {
		t.Fatal(err)
	}
	again, _ := s.Lookup("plant.tank.level")
	if again != level || !level.Peek().Value.Equal(com.NewFloat64(50)) {
		t.Error("re-seed did not update in place")
	}
}

func TestSeed_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing path", "nodes:\n  - type: r8\n"},
		{"bad type", "nodes:\n  - path: a\n    type: complex\n"},
		{"bad access", "nodes:\n  - path: a\n    access: rwx\n"},
		{"bad value", "nodes:\n  - path: a\n    type: i4\n    value: abc\n"},
		{"not yaml", "nodes: [\n"},
		{"half range", "nodes:\n  - path: a\n    eu_low: 1\n"},
		{"inverted range", "nodes:\n  - path: a\n    type: r8\n    eu_low: 5\n    eu_high: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed, err := ParseSeed([]byte(tt.yaml))
			if err == nil {
				_, err = FromSeed(seed)
			}
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNode_ConcurrentAccess(t *testing.T) {
	s := newSpace()
	n, _ := s.Set("x", com.NewInt64(0))

	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range 200 {
				n.Write(com.NewInt64(int64(w*1000 + i)))
			}
		}()
		go func() {
			defer wg.Done()
			for range 200 {
				if _, err := n.Read(); err != nil {
					t.Error(err)
					return
				}
				s.Lookup("x")
			}
		}()
	}
	wg.Wait()
	if n.Version() < 801 {
		t.Errorf("version %d", n.Version())
	}
}
