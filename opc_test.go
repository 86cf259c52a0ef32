package opc

import "testing"

func TestHRESULT_Succeeded(t *testing.T) {
	tests := []struct {
		hr     HRESULT
		failed bool
	}{
		{S_OK, false},
		{S_FALSE, false},
		{OPC_S_CLAMP, false},
		{E_FAIL, true},
		{E_INVALIDARG, true},
		{OPC_E_INVALIDHANDLE, true},
	}
	for _, tt := range tests {
		t.Run(tt.hr.String(), func(t *testing.T) {
			if tt.hr.Failed() != tt.failed {
				t.Errorf("Failed() = %v, want %v", tt.hr.Failed(), tt.failed)
			}
			if tt.hr.Succeeded() == tt.failed {
				t.Errorf("Succeeded() = %v, want %v", tt.hr.Succeeded(), !tt.failed)
			}
		})
	}
}

func TestHRESULT_String(t *testing.T) {
	if got := E_NOTIMPL.String(); got != "E_NOTIMPL" {
		t.Errorf("got %q", got)
	}
	if got := HRESULT(0x12345678).String(); got != "0x12345678" {
		t.Errorf("got %q", got)
	}
}

func TestVersionSet(t *testing.T) {
	s := NewVersionSet(V1, V3, Version(9))
	if !s.Has(V1) || s.Has(V2) || !s.Has(V3) {
		t.Fatalf("unexpected membership: %v", s.List())
	}
	if s.Highest() != V3 {
		t.Errorf("Highest() = %v", s.Highest())
	}
	if got := s.List(); len(got) != 2 || got[0] != V1 || got[1] != V3 {
		t.Errorf("List() = %v", got)
	}
	if !VersionSet(0).Empty() {
		t.Error("zero set should be empty")
	}
	if AllVersions.Empty() || len(AllVersions.List()) != 3 {
		t.Error("AllVersions should hold three versions")
	}
	if VersionSet(0).Highest() != 0 {
		t.Error("empty set has no highest version")
	}
	if got := s.String(); got != "{DA1.0,DA3.0}" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"DA1.0", V1, true},
		{"da3.0", V3, true},
		{"2", V2, true},
		{"DA4.0", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if (err == nil) != tt.ok {
				t.Fatalf("ParseVersion(%q) err = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseVersion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
