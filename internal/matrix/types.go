// Package matrix loads and validates the regression test matrix: which
// segmentation models are verified against which backend deployment
// pipelines, with which test images and tolerances. The matrix itself is
// inert data; conversion and inference are driven by an external consumer.
package matrix

// MetricInfo describes one evaluation metric shared by every pipeline:
// the metric to read from the metafile baseline and the tolerance (in
// percent) the backend result may deviate by.
type MetricInfo struct {
	EvalName  string   `yaml:"eval_name" json:"eval_name"`
	MetricKey string   `yaml:"metric_key" json:"metric_key"`
	Tolerance float64  `yaml:"tolerance" json:"tolerance"`
	TaskName  string   `yaml:"task_name" json:"task_name"`
	Dataset   []string `yaml:"dataset" json:"dataset"`
}

// ImagePair names the image used to convert the model and the image used
// to test the converted model.
type ImagePair struct {
	InputImg string `yaml:"input_img" json:"input_img"`
	TestImg  string `yaml:"test_img" json:"test_img"`
}

// Globals is the shared configuration block every pipeline draws from.
type Globals struct {
	CodebaseDir             string                `yaml:"codebase_dir" json:"codebase_dir"`
	CheckpointForceDownload bool                  `yaml:"checkpoint_force_download" json:"checkpoint_force_download"`
	Images                  map[string]string     `yaml:"images" json:"images"`
	MetricInfo              map[string]MetricInfo `yaml:"metric_info" json:"metric_info"`
	ConvertImage            ImagePair             `yaml:"convert_image" json:"convert_image"`
	BackendTest             bool                  `yaml:"backend_test" json:"backend_test"`
	SDK                     map[string]string     `yaml:"sdk" json:"sdk"`
}

// PipelineProfile is a named, reusable bundle of test parameters for one
// (backend, precision, shape mode) combination. Profiles are immutable
// after load and shared by reference between models.
type PipelineProfile struct {
	Name         string    `yaml:"-" json:"name"`
	Backend      string    `yaml:"-" json:"backend"`
	ConvertImage ImagePair `yaml:"convert_image" json:"convert_image"`
	BackendTest  bool      `yaml:"backend_test" json:"backend_test"`
	SDKConfig    string    `yaml:"sdk_config,omitempty" json:"sdk_config,omitempty"`
	DeployConfig string    `yaml:"deploy_config" json:"deploy_config"`

	// sdkDeclared distinguishes a profile that omitted sdk_config from
	// one that declared it with an empty value; only the latter is a
	// structural violation when backend_test is enabled.
	sdkDeclared bool
}

// SDKDeclared reports whether the source document carried an sdk_config
// field for this profile, even if its value was empty.
func (p *PipelineProfile) SDKDeclared() bool { return p.sdkDeclared }

// ModelEntry declares one model and the pipelines it must be verified
// against. Pipeline order is preserved for reporting.
type ModelEntry struct {
	Name         string             `json:"name"`
	Metafile     string             `json:"metafile"`
	ModelConfigs []string           `json:"model_configs"`
	Pipelines    []*PipelineProfile `json:"pipelines"`
}

// BackendGroup is one top-level backend section and the pipeline templates
// defined under it. The grouping is organizational; a model may reference
// pipelines across backend boundaries freely.
type BackendGroup struct {
	Name      string             `json:"name"`
	Pipelines []*PipelineProfile `json:"pipelines"`
}

// Matrix is the fully resolved test matrix. It is read once at startup and
// never mutated afterwards.
type Matrix struct {
	Globals  Globals        `json:"globals"`
	Backends []BackendGroup `json:"backends"`
	Models   []ModelEntry   `json:"models"`

	registry map[string]*PipelineProfile
}

// Pipeline looks up a pipeline template by its anchor name.
func (m *Matrix) Pipeline(name string) (*PipelineProfile, bool) {
	p, ok := m.registry[name]
	return p, ok
}

// PipelineNames returns the registered template names in definition order.
func (m *Matrix) PipelineNames() []string {
	names := make([]string, 0, len(m.registry))
	for _, g := range m.Backends {
		for _, p := range g.Pipelines {
			names = append(names, p.Name)
		}
	}
	return names
}

// Model returns the entry for the named model.
func (m *Matrix) Model(name string) (ModelEntry, bool) {
	for _, e := range m.Models {
		if e.Name == name {
			return e, true
		}
	}
	return ModelEntry{}, false
}
