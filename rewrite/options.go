// Package rewrite replaces resemble-image() calls and selected url()
// backgrounds in stylesheets with image url followed by gradient resembling
// the image.
package rewrite

import (
	"resemble/common"
	"resemble/config"
)

// Options are resolved once per run and shared by all stylesheets.
type Options struct {
	Fidelity  string // default fidelity, used when call has no second argument
	Generator common.Generator
	Algorithm common.Algorithm
	Selectors []string // rules with these selectors get gradients for plain url() too
	Workers   int      // declarations processed concurrently, 0 means number of CPUs
}

// OptionsFromConfig builds options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Fidelity:  cfg.Gradient.Fidelity.String(),
		Generator: cfg.Gradient.Generator,
		Algorithm: cfg.Gradient.Algorithm,
		Selectors: cfg.Gradient.Selectors,
		Workers:   cfg.Processing.Workers,
	}
}
