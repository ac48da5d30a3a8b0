// Package config loads and validates Iris Core configuration.
//
// Configuration comes from three layers, later layers overriding earlier:
//
//  1. Hardcoded defaults (defaultConfig)
//  2. The YAML file passed to Load
//  3. IRIS_* environment variables
//
// Every duration-valued option is stored as a plain integer (seconds or
// milliseconds, named accordingly) and exposed through a typed accessor
// such as SessionConfig.IdleTimeout. Validation failures abort startup;
// nothing else in the core is allowed to be fatal.
package config
