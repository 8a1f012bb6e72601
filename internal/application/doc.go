// Package application provides application initialization and dependency wiring.
// It creates the host settings store and its change signal, installs the JSON
// API settings facade, and builds the optional config watcher, admin router and
// HTTP server, keeping the main package focused on CLI parsing and orchestration.
package application
