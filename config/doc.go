// Package config loads the quickjs command's settings.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables, then command-line flags applied by the caller.
//
//	engine:
//	  wasm: ./quickjs.wasm
//	  mode: full
//	  max_steps: 10000
//	guest:
//	  timezone: Europe/Berlin
//	log:
//	  level: debug
//	  encoding: console
//	metrics:
//	  addr: ":9090"
//
// Environment variables use the QJSB prefix and the section name, for
// example QJSB_ENGINE_MODE=mini or QJSB_LOG_LEVEL=debug.
package config
