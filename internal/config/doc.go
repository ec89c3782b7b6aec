// Package config provides configuration structures and utilities for
// contactscan: defaults, validation, the optional .contactscan YAML file,
// environment overrides and XDG directory helpers.
package config
