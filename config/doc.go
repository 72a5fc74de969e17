// Package config loads gears configuration from YAML files, .env files and
// environment variables using Viper.
//
// # Usage
//
//	var cfg AppConfig
//	if err := config.LoadConfig("gears", &cfg, config.WithConfigFile(path)); err != nil {
//		return err
//	}
//
// Environment variables override file values. GEARS_REDIS_ADDR binds to
// redis.addr, LOCAL_BATCH_SIZE to local.batch_size.
package config
