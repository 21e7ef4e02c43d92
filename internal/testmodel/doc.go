// Package testmodel holds typed accessors generated from testdata/kvo.cue.
//
// The models exercise every property kind through generated code, and the
// package's tests keep models_gen.go in step with the generator.
package testmodel

//go:generate go run ../../cmd/livedb generate --package testmodel --out models_gen.go testdata
