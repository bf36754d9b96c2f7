// Package config loads the environment driven configuration of the anchors CLI and the
// tangle-node server.
package config
