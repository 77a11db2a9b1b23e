// Package config loads the static server configuration (a YAML file with
// ${VAR} expansion) and parses the lyra.yml file each translated repository
// carries at its root.
package config
