// Package config provides configuration parsing for the reconciler CLI.
//
// The configuration is stored in reconciler.yaml (or reconciler.json) at
// the project root. This package handles loading, saving, and validating
// configuration, and converts it into engine, server and snapshot settings.
//
// # Configuration File Structure
//
//	engine:
//	  minRemaining: 1ms
//	  debug: false
//	scheduler:
//	  frame: 16ms
//	server:
//	  addr: ":8080"
//	  path: /ws
//	metrics:
//	  namespace: reconciler
//	log:
//	  level: info
//	snapshot:
//	  store: bolt          # file, bolt or s3
//	  path: snapshots.db
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := remote.NewServer(app, cfg.ServerConfig())
package config
