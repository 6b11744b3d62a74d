package oprlm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Numeric bounds enforced by strict validation.
const (
	minCholPercent    = 0.0
	maxCholPercent    = 100.0
	minConcentration  = 0.0
	maxConcentration  = 5.0
	minTemperature    = 100.0
	maxTemperature    = 400.0
	minProteinMargin  = 1
	maxProteinMargin  = 100
	minWaterThickness = 1.0
	maxWaterThickness = 100.0
)

var acceptedExtensions = map[string]bool{".pdb": true, ".cif": true}

// Validate checks every documented range, type, and presence constraint.
// It is re-runnable on deserialized values: config.Load and the builders go
// through the exact same rule set.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.PDBID) == "" {
		return fmt.Errorf("%w: pdb_id must be a non-empty string", ErrValidation)
	}
	switch r.InputMode {
	case InputModeSearchRCSB, InputModeSearchOPRLM:
		// identifier presence already checked above
	case InputModeUpload:
		if err := ValidateStructureFile(r.FilePath); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown file_input_mode %q", ErrValidation, r.InputMode)
	}
	if err := r.Membrane.Validate(); err != nil {
		return err
	}
	if err := r.Ions.Validate(); err != nil {
		return err
	}
	if r.ProteinMargin < minProteinMargin || r.ProteinMargin > maxProteinMargin {
		return fmt.Errorf("%w: input_protein_size_plus must be between %d and %d, got %d",
			ErrValidation, minProteinMargin, maxProteinMargin, r.ProteinMargin)
	}
	if !(r.WaterThickness >= minWaterThickness && r.WaterThickness <= maxWaterThickness) {
		return fmt.Errorf("%w: water_thickness_z must be between %g and %g, got %g",
			ErrValidation, minWaterThickness, maxWaterThickness, r.WaterThickness)
	}
	if !(r.Temperature >= minTemperature && r.Temperature <= maxTemperature) {
		return fmt.Errorf("%w: temperature must be between %g and %g K, got %g",
			ErrValidation, minTemperature, maxTemperature, r.Temperature)
	}
	return nil
}

// Validate checks the membrane preset and, for the custom preset, the
// cholesterol percentage range.
func (m *MembraneConfig) Validate() error {
	if m.Type == "" {
		return fmt.Errorf("%w: membrane_type must not be empty", ErrValidation)
	}
	if !membraneTypes[m.Type] {
		return fmt.Errorf("%w: unknown membrane_type %q", ErrValidation, m.Type)
	}
	if !(m.CholPercent >= minCholPercent && m.CholPercent <= maxCholPercent) {
		return fmt.Errorf("%w: chol_value must be between %g and %g, got %g",
			ErrValidation, minCholPercent, maxCholPercent, m.CholPercent)
	}
	switch m.Topology {
	case TopologyIn, TopologyOut:
	default:
		return fmt.Errorf("%w: protein_topology must be %q or %q, got %q",
			ErrValidation, TopologyIn, TopologyOut, m.Topology)
	}
	return nil
}

// Validate checks the salt species and concentration range.
func (c *IonConfiguration) Validate() error {
	if !ionTypes[c.Type] {
		return fmt.Errorf("%w: unknown ion_type %q", ErrValidation, c.Type)
	}
	if !(c.Concentration >= minConcentration && c.Concentration <= maxConcentration) {
		return fmt.Errorf("%w: ion_concentration must be between %g and %g mol/L, got %g",
			ErrValidation, minConcentration, maxConcentration, c.Concentration)
	}
	return nil
}

// ValidateStructureFile checks that path names an existing file with an
// accepted structure extension. Runs before any browser interaction.
func ValidateStructureFile(path string) error {
	if path == "" {
		return fmt.Errorf("%w: file_path is required for upload mode", ErrFileValidation)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !acceptedExtensions[ext] {
		return fmt.Errorf("%w: unsupported extension %q (want .pdb or .cif)", ErrFileValidation, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileValidation, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrFileValidation, path)
	}
	return nil
}

// validateModePair rechecks the (input mode, membrane config) combination the
// form is about to be filled from. UI assembly can receive a config built
// outside the validated builder path, so this runs again at fill time.
func validateModePair(mode InputMode, m *MembraneConfig) error {
	switch mode {
	case InputModeSearchRCSB, InputModeSearchOPRLM, InputModeUpload:
	default:
		return fmt.Errorf("%w: unknown file_input_mode %q", ErrValidation, mode)
	}
	return m.Validate()
}

// SanitizeCholPercent clamps a cholesterol percentage to [0,100]. The
// sanitizing path is for callers that prefer clamping over failing; it must
// not be combined with strict Validate within one construction.
func SanitizeCholPercent(v float64) float64 {
	return clamp(v, minCholPercent, maxCholPercent)
}

// SanitizeConcentration clamps an ion concentration to [0,5] mol/L.
func SanitizeConcentration(v float64) float64 {
	return clamp(v, minConcentration, maxConcentration)
}

// SanitizeTemperature clamps a temperature to [100,400] K.
func SanitizeTemperature(v float64) float64 {
	return clamp(v, minTemperature, maxTemperature)
}

// SanitizeWaterThickness clamps a water layer thickness to [1,100].
func SanitizeWaterThickness(v float64) float64 {
	return clamp(v, minWaterThickness, maxWaterThickness)
}

// SanitizeProteinMargin clamps a protein box margin to [1,100].
func SanitizeProteinMargin(v int) int {
	if v < minProteinMargin {
		return minProteinMargin
	}
	if v > maxProteinMargin {
		return maxProteinMargin
	}
	return v
}

// SanitizeMembraneConfig returns a copy with numeric fields clamped and
// missing enum fields defaulted.
func SanitizeMembraneConfig(m MembraneConfig) MembraneConfig {
	if m.Type == "" || !membraneTypes[m.Type] {
		m.Type = MembraneCustom
	}
	if m.Topology != TopologyIn && m.Topology != TopologyOut {
		m.Topology = TopologyIn
	}
	m.CholPercent = SanitizeCholPercent(m.CholPercent)
	return m
}

// clamp pulls v into [lo, hi]. NaN fails every comparison and lands on
// the lower bound.
func clamp(v, lo, hi float64) float64 {
	if !(v >= lo) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
