package types

// ComponentConfig is the component-level configuration file
// (component.yaml in the record's config dir). When present it always
// wins over workspace defaults and the prior model snapshot.
type ComponentConfig struct {
	Lang          string         `yaml:"lang,omitempty"`
	BindingPrefix string         `yaml:"bindingPrefix,omitempty"`
	Compiler      *EnvDescriptor `yaml:"compiler,omitempty"`
	Tester        *EnvDescriptor `yaml:"tester,omitempty"`
}

// WorkspaceConfig is the workspace-level configuration (compkit.yaml
// at the workspace root). Components without their own config inherit
// from it, enriched by their prior model snapshot when one exists.
type WorkspaceConfig struct {
	DefaultScope  string         `yaml:"defaultScope,omitempty"`
	ComponentsDir string         `yaml:"componentsDir,omitempty"`
	EnvDir        string         `yaml:"envDir,omitempty"`
	DistTarget    string         `yaml:"distTarget,omitempty"`
	Lang          string         `yaml:"lang,omitempty"`
	BindingPrefix string         `yaml:"bindingPrefix,omitempty"`
	Compiler      *EnvDescriptor `yaml:"compiler,omitempty"`
	Tester        *EnvDescriptor `yaml:"tester,omitempty"`
}
