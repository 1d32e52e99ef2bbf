// Package common holds enumerations shared by configuration, command line
// and processing code, so none of them has to import the others.
package common

//go:generate go tool go-enum --marshal --names --values

// Gradient rendering style.
// ENUM(simple, complex)
type Generator int

// HardEdges reports whether adjacent bands are rendered without interpolation.
func (g Generator) HardEdges() bool {
	return g == GeneratorComplex
}

// Image sampling algorithm.
// ENUM(chunk, palette, raster)
type Algorithm int

// UsesStep reports whether algorithm honours requested sampling step.
// Palette quantization derives number of stops from image colours instead.
func (a Algorithm) UsesStep() bool {
	return a != AlgorithmPalette
}
