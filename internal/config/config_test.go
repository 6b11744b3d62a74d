package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

const minimalYAML = `
pdb_id: 3c02
file_input_mode: searchOPM
`

const fullYAML = `
pdb_id: 2W6V_custom
file_input_mode: searchPDB
email: someone@example.org
membrane_config:
  membrane_type: PMm
  popc: false
  dopc: true
  chol_value: 35.5
  protein_topology: out
input_protein_size_plus: 25
water_thickness_z: 30.0
ion_configuration:
  ion_concentration: 0.5
  ion_type: CaCl2
temperature: 310.0
perform_charmm_minimization: false
md_input_options:
  namd_enabled: true
  gromacs_enabled: false
  openmm_enabled: false
`

func TestParseMinimalAppliesDefaults(t *testing.T) {
	req, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.PDBID != "3c02" || req.InputMode != oprlm.InputModeSearchOPRLM {
		t.Errorf("Unexpected identity: %q / %q", req.PDBID, req.InputMode)
	}
	if req.Membrane.Type != oprlm.MembraneCustom || !req.Membrane.POPC {
		t.Errorf("Expected default custom POPC membrane, got %+v", req.Membrane)
	}
	if req.Membrane.CholPercent != oprlm.DefaultCholPercent {
		t.Errorf("Expected default cholesterol, got %g", req.Membrane.CholPercent)
	}
	if req.Ions.Type != oprlm.IonKCl || req.Ions.Concentration != oprlm.DefaultConcentration {
		t.Errorf("Expected default ions, got %+v", req.Ions)
	}
	if req.Temperature != oprlm.DefaultTemperature {
		t.Errorf("Expected default temperature, got %g", req.Temperature)
	}
	if !req.Minimize {
		t.Error("Expected minimization default true")
	}
	if req.MDOptions.NAMD || !req.MDOptions.Gromacs || !req.MDOptions.OpenMM {
		t.Errorf("Expected default MD options, got %+v", req.MDOptions)
	}
}

func TestParseFullConfig(t *testing.T) {
	req, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if req.Membrane.Type != oprlm.MembranePMMammalian {
		t.Errorf("Expected PMm membrane, got %q", req.Membrane.Type)
	}
	if req.Membrane.POPC || !req.Membrane.DOPC {
		t.Errorf("Expected popc=false dopc=true, got %+v", req.Membrane)
	}
	if req.Membrane.Topology != oprlm.TopologyOut {
		t.Errorf("Expected topology out, got %q", req.Membrane.Topology)
	}
	if req.Ions.Type != oprlm.IonCaCl2 || req.Ions.Concentration != 0.5 {
		t.Errorf("Unexpected ions: %+v", req.Ions)
	}
	if req.ProteinMargin != 25 || req.WaterThickness != 30 || req.Temperature != 310 {
		t.Errorf("Unexpected physical params: %d / %g / %g",
			req.ProteinMargin, req.WaterThickness, req.Temperature)
	}
	if req.Minimize {
		t.Error("Expected minimization disabled")
	}
	if !req.MDOptions.NAMD || req.MDOptions.Gromacs || req.MDOptions.OpenMM {
		t.Errorf("Unexpected MD options: %+v", req.MDOptions)
	}
}

func TestParseMissingRequiredKeys(t *testing.T) {
	if _, err := Parse([]byte("file_input_mode: searchPDB\n")); !errors.Is(err, oprlm.ErrValidation) {
		t.Errorf("Missing pdb_id: got %v, want ErrValidation", err)
	}
	if _, err := Parse([]byte("pdb_id: 3c02\n")); !errors.Is(err, oprlm.ErrValidation) {
		t.Errorf("Missing file_input_mode: got %v, want ErrValidation", err)
	}
}

func TestParseRejectsOutOfRangeValues(t *testing.T) {
	yaml := minimalYAML + "temperature: 50.0\n"
	if _, err := Parse([]byte(yaml)); !errors.Is(err, oprlm.ErrValidation) {
		t.Errorf("Out-of-range temperature: got %v, want ErrValidation", err)
	}
}

func TestParseMalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("pdb_id: [unclosed")); err == nil {
		t.Error("Expected parse error for malformed yaml")
	}
}

func TestRoundTripPreservesEveryField(t *testing.T) {
	original, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "roundtrip.yml")
	if err := Save(original, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if *original != *reloaded {
		t.Errorf("Round-trip mismatch:\n  original: %+v\n  reloaded: %+v", original, reloaded)
	}
}

func TestRoundTripKeepsEnumNames(t *testing.T) {
	req, err := oprlm.NewRequestBuilder().
		PDBID("1abc").
		InputMode(oprlm.InputModeSearchRCSB).
		Ions(oprlm.IonConfiguration{Type: oprlm.IonMgCl2, Concentration: 1.5}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	data, err := Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, name := range []string{"searchPDB", "MgCl2", "custom"} {
		if !strings.Contains(text, name) {
			t.Errorf("Expected enum name %q in serialized config:\n%s", name, text)
		}
	}
}
