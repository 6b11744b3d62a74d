// Package config reads and writes the YAML request-configuration format.
// Every omitted field has a documented default; enum values round-trip by
// name. Loaded requests pass through the same strict validation as
// builder-constructed ones.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sapelkinAV/protein-manipulation-pipeline/internal/oprlm"
)

type membraneConfigFile struct {
	MembraneType    *string  `yaml:"membrane_type,omitempty"`
	POPC            *bool    `yaml:"popc,omitempty"`
	DOPC            *bool    `yaml:"dopc,omitempty"`
	DSPC            *bool    `yaml:"dspc,omitempty"`
	DMPC            *bool    `yaml:"dmpc,omitempty"`
	DPPC            *bool    `yaml:"dppc,omitempty"`
	CholValue       *float64 `yaml:"chol_value,omitempty"`
	ProteinTopology *string  `yaml:"protein_topology,omitempty"`
}

type ionConfigFile struct {
	IonConcentration *float64 `yaml:"ion_concentration,omitempty"`
	IonType          *string  `yaml:"ion_type,omitempty"`
}

type mdOptionsFile struct {
	NAMDEnabled    *bool `yaml:"namd_enabled,omitempty"`
	GromacsEnabled *bool `yaml:"gromacs_enabled,omitempty"`
	OpenMMEnabled  *bool `yaml:"openmm_enabled,omitempty"`
}

type requestFile struct {
	PDBID          string              `yaml:"pdb_id"`
	FileInputMode  string              `yaml:"file_input_mode"`
	FilePath       string              `yaml:"file_path,omitempty"`
	OutputPath     string              `yaml:"output_path,omitempty"`
	Email          string              `yaml:"email,omitempty"`
	Membrane       *membraneConfigFile `yaml:"membrane_config,omitempty"`
	ProteinMargin  *int                `yaml:"input_protein_size_plus,omitempty"`
	WaterThickness *float64            `yaml:"water_thickness_z,omitempty"`
	Ions           *ionConfigFile      `yaml:"ion_configuration,omitempty"`
	Temperature    *float64            `yaml:"temperature,omitempty"`
	Minimize       *bool               `yaml:"perform_charmm_minimization,omitempty"`
	MDOptions      *mdOptionsFile      `yaml:"md_input_options,omitempty"`
}

// Load parses the YAML file at path into a validated request.
func Load(path string) (*oprlm.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	req, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return req, nil
}

// Parse decodes YAML bytes into a validated request, applying the
// documented defaults for every omitted field.
func Parse(data []byte) (*oprlm.Request, error) {
	var file requestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	if file.PDBID == "" {
		return nil, fmt.Errorf("%w: required field pdb_id is missing", oprlm.ErrValidation)
	}
	if file.FileInputMode == "" {
		return nil, fmt.Errorf("%w: required field file_input_mode is missing", oprlm.ErrValidation)
	}

	membrane := oprlm.DefaultMembraneConfig()
	if m := file.Membrane; m != nil {
		if m.MembraneType != nil {
			membrane.Type = oprlm.MembraneType(*m.MembraneType)
		}
		if m.POPC != nil {
			membrane.POPC = *m.POPC
		}
		if m.DOPC != nil {
			membrane.DOPC = *m.DOPC
		}
		if m.DSPC != nil {
			membrane.DSPC = *m.DSPC
		}
		if m.DMPC != nil {
			membrane.DMPC = *m.DMPC
		}
		if m.DPPC != nil {
			membrane.DPPC = *m.DPPC
		}
		if m.CholValue != nil {
			membrane.CholPercent = *m.CholValue
		}
		if m.ProteinTopology != nil {
			membrane.Topology = oprlm.ProteinTopology(*m.ProteinTopology)
		}
	}

	ions := oprlm.DefaultIonConfiguration()
	if i := file.Ions; i != nil {
		if i.IonType != nil {
			ions.Type = oprlm.IonType(*i.IonType)
		}
		if i.IonConcentration != nil {
			ions.Concentration = *i.IonConcentration
		}
	}

	md := oprlm.DefaultMDInputOptions()
	if o := file.MDOptions; o != nil {
		if o.NAMDEnabled != nil {
			md.NAMD = *o.NAMDEnabled
		}
		if o.GromacsEnabled != nil {
			md.Gromacs = *o.GromacsEnabled
		}
		if o.OpenMMEnabled != nil {
			md.OpenMM = *o.OpenMMEnabled
		}
	}

	b := oprlm.NewRequestBuilder().
		PDBID(file.PDBID).
		InputMode(oprlm.InputMode(file.FileInputMode)).
		FilePath(file.FilePath).
		OutputDir(file.OutputPath).
		Email(file.Email).
		Membrane(membrane).
		Ions(ions).
		MDOptions(md)
	if file.ProteinMargin != nil {
		b.ProteinMargin(*file.ProteinMargin)
	}
	if file.WaterThickness != nil {
		b.WaterThickness(*file.WaterThickness)
	}
	if file.Temperature != nil {
		b.Temperature(*file.Temperature)
	}
	if file.Minimize != nil {
		b.Minimize(*file.Minimize)
	}
	return b.Build()
}

// Save writes a request back out as YAML with every field explicit, so the
// file Load produces from it yields identical values.
func Save(req *oprlm.Request, path string) error {
	data, err := Marshal(req)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Marshal renders a request as YAML bytes.
func Marshal(req *oprlm.Request) ([]byte, error) {
	membraneType := string(req.Membrane.Type)
	topology := string(req.Membrane.Topology)
	ionType := string(req.Ions.Type)

	file := requestFile{
		PDBID:         req.PDBID,
		FileInputMode: string(req.InputMode),
		FilePath:      req.FilePath,
		OutputPath:    req.OutputDir,
		Email:         req.Email,
		Membrane: &membraneConfigFile{
			MembraneType:    &membraneType,
			POPC:            boolPtr(req.Membrane.POPC),
			DOPC:            boolPtr(req.Membrane.DOPC),
			DSPC:            boolPtr(req.Membrane.DSPC),
			DMPC:            boolPtr(req.Membrane.DMPC),
			DPPC:            boolPtr(req.Membrane.DPPC),
			CholValue:       floatPtr(req.Membrane.CholPercent),
			ProteinTopology: &topology,
		},
		ProteinMargin:  intPtr(req.ProteinMargin),
		WaterThickness: floatPtr(req.WaterThickness),
		Ions: &ionConfigFile{
			IonConcentration: floatPtr(req.Ions.Concentration),
			IonType:          &ionType,
		},
		Temperature: floatPtr(req.Temperature),
		Minimize:    boolPtr(req.Minimize),
		MDOptions: &mdOptionsFile{
			NAMDEnabled:    boolPtr(req.MDOptions.NAMD),
			GromacsEnabled: boolPtr(req.MDOptions.Gromacs),
			OpenMMEnabled:  boolPtr(req.MDOptions.OpenMM),
		},
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

func boolPtr(b bool) *bool        { return &b }
func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }
