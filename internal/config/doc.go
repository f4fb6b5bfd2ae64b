// Package config provides configuration types and loading for the
// juridoc back end.
//
// This package defines the configuration model, YAML loading with
// environment variable substitution, validation, and file watching for
// hot-reload support.
//
// # Configuration Loading
//
// Load configuration from a YAML file:
//
//	cfg, err := config.LoadConfig("juridoc.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Values may reference the environment with ${VAR} or ${VAR:-default};
// a literal dollar sign is written as $$.
//
// # File Watching
//
// Watch for configuration changes:
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    // rebuild the application
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	watcher.Start(ctx)
package config
