package oprlm

import (
	"errors"
	"testing"
)

func TestRequestBuilderDefaults(t *testing.T) {
	req, err := NewRequestBuilder().
		PDBID("3c02").
		InputMode(InputModeSearchOPRLM).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if req.Membrane.Type != MembraneCustom || !req.Membrane.POPC {
		t.Errorf("Expected custom POPC membrane default, got %+v", req.Membrane)
	}
	if req.Membrane.CholPercent != DefaultCholPercent {
		t.Errorf("Expected cholesterol %g, got %g", DefaultCholPercent, req.Membrane.CholPercent)
	}
	if req.Ions.Type != IonKCl || req.Ions.Concentration != DefaultConcentration {
		t.Errorf("Expected %g mol/L KCl default, got %+v", DefaultConcentration, req.Ions)
	}
	if req.Temperature != DefaultTemperature {
		t.Errorf("Expected temperature %g, got %g", DefaultTemperature, req.Temperature)
	}
	if req.ProteinMargin != DefaultProteinMargin || req.WaterThickness != DefaultWaterThickness {
		t.Errorf("Expected margin %d / thickness %g, got %d / %g",
			DefaultProteinMargin, DefaultWaterThickness, req.ProteinMargin, req.WaterThickness)
	}
	if !req.Minimize {
		t.Error("Expected minimization enabled by default")
	}
	if req.MDOptions.NAMD || !req.MDOptions.Gromacs || !req.MDOptions.OpenMM {
		t.Errorf("Expected gromacs+openmm default, got %+v", req.MDOptions)
	}
}

func TestRequestBuilderStrictPathRejectsOutOfRange(t *testing.T) {
	_, err := NewRequestBuilder().
		PDBID("3c02").
		InputMode(InputModeSearchRCSB).
		Temperature(500).
		Build()
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestRequestBuilderRequiresIdentity(t *testing.T) {
	if _, err := NewRequestBuilder().InputMode(InputModeSearchRCSB).Build(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation without pdb id, got %v", err)
	}
	if _, err := NewRequestBuilder().PDBID("3c02").Build(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation without input mode, got %v", err)
	}
}

func TestRequestBuilderDoesNotAliasBuilderState(t *testing.T) {
	b := NewRequestBuilder().PDBID("3c02").InputMode(InputModeSearchOPRLM)
	req, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	b.PDBID("other")
	if req.PDBID != "3c02" {
		t.Errorf("Built request mutated by builder reuse: %q", req.PDBID)
	}
}

func TestMembraneConfigBuilder(t *testing.T) {
	m, err := NewMembraneConfigBuilder().
		Type(MembraneCustom).
		POPC(true).
		DOPC(false).
		CholPercent(30).
		Topology(TopologyOut).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !m.POPC || m.DOPC || m.CholPercent != 30 || m.Topology != TopologyOut {
		t.Errorf("Unexpected config: %+v", m)
	}

	if _, err := NewMembraneConfigBuilder().CholPercent(101).Build(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestIonConfigurationBuilder(t *testing.T) {
	c, err := NewIonConfigurationBuilder().Type(IonNaCl).Concentration(0.3).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Type != IonNaCl || c.Concentration != 0.3 {
		t.Errorf("Unexpected config: %+v", c)
	}

	if _, err := NewIonConfigurationBuilder().Concentration(5.5).Build(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
}

func TestProcessingResultArtifactPaths(t *testing.T) {
	r := &ProcessingResult{Success: true, StructurePath: "a.pdb", CharmmGUIPath: "c.tgz"}
	paths := r.ArtifactPaths()
	if len(paths) != 2 {
		t.Fatalf("Expected 2 paths, got %d: %v", len(paths), paths)
	}
	if paths[0] != "a.pdb" || paths[1] != "c.tgz" {
		t.Errorf("Unexpected order: %v", paths)
	}
}
