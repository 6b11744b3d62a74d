package oprlm

// RequestBuilder accumulates field values and produces a validated Request.
// Zero-value fields fall back to the same defaults the server form uses.
type RequestBuilder struct {
	req Request
}

// NewRequestBuilder starts a builder with the form defaults filled in.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{req: Request{
		Membrane:       DefaultMembraneConfig(),
		ProteinMargin:  DefaultProteinMargin,
		WaterThickness: DefaultWaterThickness,
		Ions:           DefaultIonConfiguration(),
		Temperature:    DefaultTemperature,
		Minimize:       true,
		MDOptions:      DefaultMDInputOptions(),
	}}
}

func (b *RequestBuilder) PDBID(id string) *RequestBuilder {
	b.req.PDBID = id
	return b
}

func (b *RequestBuilder) InputMode(mode InputMode) *RequestBuilder {
	b.req.InputMode = mode
	return b
}

func (b *RequestBuilder) FilePath(path string) *RequestBuilder {
	b.req.FilePath = path
	return b
}

func (b *RequestBuilder) OutputDir(dir string) *RequestBuilder {
	b.req.OutputDir = dir
	return b
}

func (b *RequestBuilder) Email(email string) *RequestBuilder {
	b.req.Email = email
	return b
}

func (b *RequestBuilder) Membrane(m MembraneConfig) *RequestBuilder {
	b.req.Membrane = m
	return b
}

func (b *RequestBuilder) ProteinMargin(margin int) *RequestBuilder {
	b.req.ProteinMargin = margin
	return b
}

func (b *RequestBuilder) WaterThickness(thickness float64) *RequestBuilder {
	b.req.WaterThickness = thickness
	return b
}

func (b *RequestBuilder) Ions(c IonConfiguration) *RequestBuilder {
	b.req.Ions = c
	return b
}

func (b *RequestBuilder) Temperature(kelvin float64) *RequestBuilder {
	b.req.Temperature = kelvin
	return b
}

func (b *RequestBuilder) Minimize(on bool) *RequestBuilder {
	b.req.Minimize = on
	return b
}

func (b *RequestBuilder) MDOptions(opts MDInputOptions) *RequestBuilder {
	b.req.MDOptions = opts
	return b
}

// Build validates the accumulated fields and returns the immutable Request.
// This is the strict path: out-of-range values fail with ErrValidation and
// are never silently defaulted.
func (b *RequestBuilder) Build() (*Request, error) {
	req := b.req
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// MembraneConfigBuilder builds a MembraneConfig starting from the custom
// POPC default.
type MembraneConfigBuilder struct {
	cfg MembraneConfig
}

func NewMembraneConfigBuilder() *MembraneConfigBuilder {
	return &MembraneConfigBuilder{cfg: DefaultMembraneConfig()}
}

func (b *MembraneConfigBuilder) Type(t MembraneType) *MembraneConfigBuilder {
	b.cfg.Type = t
	return b
}

func (b *MembraneConfigBuilder) POPC(on bool) *MembraneConfigBuilder {
	b.cfg.POPC = on
	return b
}

func (b *MembraneConfigBuilder) DOPC(on bool) *MembraneConfigBuilder {
	b.cfg.DOPC = on
	return b
}

func (b *MembraneConfigBuilder) DSPC(on bool) *MembraneConfigBuilder {
	b.cfg.DSPC = on
	return b
}

func (b *MembraneConfigBuilder) DMPC(on bool) *MembraneConfigBuilder {
	b.cfg.DMPC = on
	return b
}

func (b *MembraneConfigBuilder) DPPC(on bool) *MembraneConfigBuilder {
	b.cfg.DPPC = on
	return b
}

func (b *MembraneConfigBuilder) CholPercent(v float64) *MembraneConfigBuilder {
	b.cfg.CholPercent = v
	return b
}

func (b *MembraneConfigBuilder) Topology(t ProteinTopology) *MembraneConfigBuilder {
	b.cfg.Topology = t
	return b
}

func (b *MembraneConfigBuilder) Build() (MembraneConfig, error) {
	if err := b.cfg.Validate(); err != nil {
		return MembraneConfig{}, err
	}
	return b.cfg, nil
}

// IonConfigurationBuilder builds an IonConfiguration starting from
// 0.15 mol/L KCl.
type IonConfigurationBuilder struct {
	cfg IonConfiguration
}

func NewIonConfigurationBuilder() *IonConfigurationBuilder {
	return &IonConfigurationBuilder{cfg: DefaultIonConfiguration()}
}

func (b *IonConfigurationBuilder) Type(t IonType) *IonConfigurationBuilder {
	b.cfg.Type = t
	return b
}

func (b *IonConfigurationBuilder) Concentration(molPerL float64) *IonConfigurationBuilder {
	b.cfg.Concentration = molPerL
	return b
}

func (b *IonConfigurationBuilder) Build() (IonConfiguration, error) {
	if err := b.cfg.Validate(); err != nil {
		return IonConfiguration{}, err
	}
	return b.cfg, nil
}
