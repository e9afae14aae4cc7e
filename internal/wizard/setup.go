package wizard

import (
	"fmt"
	"strings"

	"github.com/vibe-cli/vibe/internal/config"
)

// State keys used by the setup flow.
const (
	keyProjectName = "project_name"
	keyProjectType = "project_type"
	keyProvider    = "provider"
	keyDualMode    = "dual_mode"
	keyAutoCommit  = "auto_commit"
)

var providerHints = map[string]string{
	"anthropic": "Claude models",
	"openai":    "GPT models",
	"google":    "Gemini models",
}

// NewSetup builds the init wizard. Values already present in defaults
// prefill the corresponding steps.
func NewSetup(defaults *config.Config) *Wizard {
	typeOptions := make([]Option, len(config.ProjectTypes))
	for i, t := range config.ProjectTypes {
		typeOptions[i] = Option{Value: t, Label: t}
	}
	providerOptions := make([]Option, len(config.Providers))
	for i, p := range config.Providers {
		providerOptions[i] = Option{Value: p, Label: p, Hint: providerHints[p]}
	}

	return New(
		NewInputStep(keyProjectName, "What is the project called?").
			WithDefault(defaults.ProjectName).
			WithPlaceholder("my-project").
			WithValidate(func(v string) error {
				if v == "" {
					return fmt.Errorf("a project needs a name")
				}
				if strings.ContainsAny(v, "/\\") {
					return fmt.Errorf("the name may not contain path separators")
				}
				return nil
			}),
		NewSelectStep(keyProjectType, "What kind of project is it?", typeOptions),
		NewSelectStep(keyProvider, "Which provider generates the code?", providerOptions),
		NewConfirmStep(keyDualMode, "Use a second model for analysis and audits?").
			WithDefault(defaults.Dual.Enabled),
		NewConfirmStep(keyAutoCommit, "Commit each phase to git automatically?").
			WithDefault(defaults.AutoCommit),
	)
}

// ApplyState folds the collected answers into cfg.
func ApplyState(state State, cfg *config.Config) {
	if v, ok := state[keyProjectName].(string); ok && v != "" {
		cfg.ProjectName = v
	}
	if v, ok := state[keyProjectType].(string); ok && v != "" {
		cfg.ProjectType = v
	}
	if v, ok := state[keyProvider].(string); ok && v != "" {
		cfg.Provider = v
		cfg.Dual.MainProvider = v
	}
	if v, ok := state[keyDualMode].(bool); ok {
		cfg.Dual.Enabled = v
	}
	if v, ok := state[keyAutoCommit].(bool); ok {
		cfg.AutoCommit = v
	}
}
