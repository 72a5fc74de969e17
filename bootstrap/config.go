package bootstrap

import "github.com/kbukum/gears/config"

// Config is what NewApp needs from an application config: the shared
// service section plus defaulting and validation of the whole tree.
// Embedding config.ServiceConfig with mapstructure squash provides
// GetServiceConfig.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
