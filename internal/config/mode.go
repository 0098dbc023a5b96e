package config

import "fmt"

// DeploymentMode selects how strict the relay is about origins and transports
type DeploymentMode string

const (
	Development DeploymentMode = "development"
	Production  DeploymentMode = "production"
)

// UnmarshalText implements encoding.TextUnmarshaler so env parsing rejects unknown modes
func (m *DeploymentMode) UnmarshalText(text []byte) error {
	switch mode := DeploymentMode(text); mode {
	case Development, Production:
		*m = mode
		return nil
	case "":
		*m = Development
		return nil
	default:
		return fmt.Errorf("unknown deployment mode %q", string(text))
	}
}

func (m DeploymentMode) IsProduction() bool {
	return m == Production
}

func (m DeploymentMode) String() string {
	return string(m)
}
