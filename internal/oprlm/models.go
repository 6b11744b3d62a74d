package oprlm

// InputMode selects how the source structure reaches the OPRLM server.
type InputMode string

const (
	InputModeSearchRCSB  InputMode = "searchPDB" // search the RCSB database
	InputModeSearchOPRLM InputMode = "searchOPM" // search the OPRLM/OPM database
	InputModeUpload      InputMode = "upload"    // upload a local structure file
)

func (m InputMode) IsSearch() bool {
	return m == InputModeSearchRCSB || m == InputModeSearchOPRLM
}

// MembraneType is the membrane preset code used by the server form.
type MembraneType string

const (
	MembraneCustom                 MembraneType = "custom"
	MembranePMMammalian            MembraneType = "PMm"
	MembranePMPlants               MembraneType = "PMp"
	MembranePMFungi                MembraneType = "PMf"
	MembraneERFungi                MembraneType = "ERf"
	MembraneERMammalian            MembraneType = "ERm"
	MembraneGolgiMammalian         MembraneType = "GOLm"
	MembraneGolgiFungi             MembraneType = "GOLf"
	MembraneEndosomeMammalian      MembraneType = "ENDm"
	MembraneLysosomeMammalian      MembraneType = "LYSm"
	MembraneOuterMitochondrial     MembraneType = "MOM"
	MembraneInnerMitochondrial     MembraneType = "MIM"
	MembraneVacuolePlants          MembraneType = "VACp"
	MembraneThylakoidPlants        MembraneType = "THYp"
	MembraneThylakoidCyanobacteria MembraneType = "THYc"
	MembraneBacterialOuter         MembraneType = "BOUT"
	MembraneBacterialInner         MembraneType = "BIN"
	MembraneGramPositivePM         MembraneType = "BPM"
	MembraneArchaealPM             MembraneType = "APM"
	MembraneGramNegativeOuter      MembraneType = "G-OM"
	MembraneGramNegativeInner      MembraneType = "G-IM"
)

var membraneTypes = map[MembraneType]bool{
	MembraneCustom: true, MembranePMMammalian: true, MembranePMPlants: true,
	MembranePMFungi: true, MembraneERFungi: true, MembraneERMammalian: true,
	MembraneGolgiMammalian: true, MembraneGolgiFungi: true,
	MembraneEndosomeMammalian: true, MembraneLysosomeMammalian: true,
	MembraneOuterMitochondrial: true, MembraneInnerMitochondrial: true,
	MembraneVacuolePlants: true, MembraneThylakoidPlants: true,
	MembraneThylakoidCyanobacteria: true, MembraneBacterialOuter: true,
	MembraneBacterialInner: true, MembraneGramPositivePM: true,
	MembraneArchaealPM: true, MembraneGramNegativeOuter: true,
	MembraneGramNegativeInner: true,
}

// ProteinTopology orients the protein relative to the membrane.
type ProteinTopology string

const (
	TopologyIn  ProteinTopology = "in"
	TopologyOut ProteinTopology = "out"
)

// IonType is one of the salt species accepted by the server.
type IonType string

const (
	IonKCl   IonType = "KCl"
	IonNaCl  IonType = "NaCl"
	IonCaCl2 IonType = "CaCl2"
	IonMgCl2 IonType = "MgCl2"
)

var ionTypes = map[IonType]bool{
	IonKCl: true, IonNaCl: true, IonCaCl2: true, IonMgCl2: true,
}

// MembraneConfig describes the membrane composition for one submission.
// For MembraneCustom the five lipid flags plus CholPercent apply; for the
// biological presets the Topology flag applies instead.
type MembraneConfig struct {
	Type        MembraneType    `json:"membrane_type"`
	POPC        bool            `json:"popc"`
	DOPC        bool            `json:"dopc"`
	DSPC        bool            `json:"dspc"`
	DMPC        bool            `json:"dmpc"`
	DPPC        bool            `json:"dppc"`
	CholPercent float64         `json:"chol_value"`
	Topology    ProteinTopology `json:"protein_topology"`
}

// IonConfiguration is the salt species and concentration in mol/L.
type IonConfiguration struct {
	Type          IonType `json:"ion_type"`
	Concentration float64 `json:"ion_concentration"`
}

// MDInputOptions selects which MD engine input bundles the server generates.
type MDInputOptions struct {
	NAMD    bool `json:"namd_enabled"`
	Gromacs bool `json:"gromacs_enabled"`
	OpenMM  bool `json:"openmm_enabled"`
}

// Request is the validated description of one structure-to-membrane-model
// submission. Build it with NewRequestBuilder or via config.Load; it is not
// mutated after validation.
type Request struct {
	PDBID          string           `json:"pdb_id"`
	InputMode      InputMode        `json:"file_input_mode"`
	FilePath       string           `json:"file_path,omitempty"`
	OutputDir      string           `json:"output_path,omitempty"`
	Email          string           `json:"email,omitempty"`
	Membrane       MembraneConfig   `json:"membrane_config"`
	ProteinMargin  int              `json:"input_protein_size_plus"`
	WaterThickness float64          `json:"water_thickness_z"`
	Ions           IonConfiguration `json:"ion_configuration"`
	Temperature    float64          `json:"temperature"`
	Minimize       bool             `json:"perform_charmm_minimization"`
	MDOptions      MDInputOptions   `json:"md_input_options"`
}

// JobHandle identifies an in-flight submission on the server. It is valid
// only for the session that produced it.
type JobHandle struct {
	ID string `json:"id"`
}

// ProcessingResult records the outcome of one submission attempt. Paths are
// populated only for artifacts that were actually retrieved.
type ProcessingResult struct {
	Success       bool   `json:"success"`
	JobID         string `json:"job_id"`
	StructurePath string `json:"processed_pdb_path,omitempty"`
	MDInputPath   string `json:"md_input_path,omitempty"`
	CharmmGUIPath string `json:"charmm_gui_path,omitempty"`
	Error         string `json:"error_message,omitempty"`
}

// ArtifactPaths lists the retrieved artifact paths in a fixed order:
// processed structure, MD input bundle, CHARMM-GUI bundle. Empty entries
// are omitted.
func (r *ProcessingResult) ArtifactPaths() []string {
	var paths []string
	for _, p := range []string{r.StructurePath, r.MDInputPath, r.CharmmGUIPath} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// Default field values, mirroring the server form defaults.
const (
	DefaultCholPercent    = 20.0
	DefaultConcentration  = 0.15
	DefaultProteinMargin  = 20
	DefaultWaterThickness = 22.5
	DefaultTemperature    = 303.15
)

// DefaultMembraneConfig returns the custom POPC membrane the form starts with.
func DefaultMembraneConfig() MembraneConfig {
	return MembraneConfig{
		Type:        MembraneCustom,
		POPC:        true,
		CholPercent: DefaultCholPercent,
		Topology:    TopologyIn,
	}
}

// DefaultIonConfiguration returns 0.15 mol/L KCl.
func DefaultIonConfiguration() IonConfiguration {
	return IonConfiguration{Type: IonKCl, Concentration: DefaultConcentration}
}

// DefaultMDInputOptions enables the GROMACS and OpenMM bundles.
func DefaultMDInputOptions() MDInputOptions {
	return MDInputOptions{Gromacs: true, OpenMM: true}
}
