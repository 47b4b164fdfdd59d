// Package lumenray is a physically based, spectral, differentiable path
// tracer built around an external compute-device abstraction.
//
// # Overview
//
// A scene description (package scenedesc) is parsed into typed scene nodes
// (cameras, films, filters, shapes, surfaces, lights, textures, samplers,
// integrators, optimizers). A Pipeline materializes those nodes into device
// resources (package device), builds the geometry acceleration layer
// (package geometry), registers differentiable parameters (package diff),
// and drives an integrator (package integrator) that estimates radiance per
// sample using a sampler (package samplers), the scattering library
// (package scatter), a light sampler (package lights) and a film (package
// film).
//
// # Quick start
//
//	pipe := lumenray.NewPipeline(dev)
//	if err := pipe.LoadScene(desc); err != nil {
//	    log.Fatal(err)
//	}
//	if err := pipe.Render(stream); err != nil {
//	    log.Fatal(err)
//	}
//
// # Scope
//
// This module owns the path-integration kernels, the scattering library,
// the scene data model and asset pipeline, and the differentiation engine.
// It does not own a GPU/CPU backend, scene-file parsing beyond the abstract
// tree contract, command-line wrappers, display windows, or the mesh-import
// CLI — those are external collaborators reached only through the device
// and scenedesc package interfaces. See SPEC_FULL.md for the full
// requirements this module implements.
package lumenray
