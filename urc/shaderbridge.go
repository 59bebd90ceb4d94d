// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package urc

// shaderbridge.go is the Shader Compiler Bridge, component H. It turns
// GLSL source into SPIR-V at load time, with a cache keyed on source
// text so repeated shaderlib lookups (quad, text, compute-multiply) pay
// the compile cost once. It is absent-tolerant per §4.H: when no
// translator is wired in (sb.compile is nil, e.g. a stripped release
// build), callers that already hold precompiled SPIR-V bytes still work.

import (
	"sync"

	"github.com/gogpu/naga"
)

// shaderBridge compiles GLSL source to SPIR-V, caching by source text.
type shaderBridge struct {
	mu    sync.Mutex
	cache map[string][]byte

	// compile is swapped out in tests and in builds where naga is absent.
	// A nil compile is valid: resolve then requires its
	// caller to supply precompiled bytes instead.
	compile func(stage string, source string) ([]byte, error)
}

func newShaderBridge() *shaderBridge {
	return &shaderBridge{
		cache:   make(map[string][]byte),
		compile: nagaCompile,
	}
}

func nagaCompile(stage, source string) ([]byte, error) {
	return naga.Compile(source)
}

// resolve returns SPIR-V bytes for source, either from the cache, a
// fresh compile, or precompiled if source is empty and precompiled is
// non-empty (the absent-tolerant path).
func (sb *shaderBridge) resolve(stage, source string, precompiled []byte) ([]byte, *Error) {
	if source == "" {
		if len(precompiled) == 0 {
			return nil, newError("compile-shader", InvalidArgument, stage, nil)
		}
		return precompiled, nil
	}
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if cached, ok := sb.cache[source]; ok {
		return cached, nil
	}
	if sb.compile == nil {
		if len(precompiled) == 0 {
			return nil, newError("compile-shader", BackendFailure, stage+": no translator available", nil)
		}
		return precompiled, nil
	}
	spirv, err := sb.compile(stage, source)
	if err != nil {
		return nil, newError("compile-shader", BackendFailure, stage, err)
	}
	sb.cache[source] = spirv
	return spirv, nil
}

// compileGraphics resolves both stages of a Shader's pipeline.
func (sb *shaderBridge) compileGraphics(sh *Shader) *Error {
	vs, err := sb.resolve("vertex", sh.VertexSource, sh.VertexSPIRV)
	if err != nil {
		return err
	}
	fs, err := sb.resolve("fragment", sh.FragmentSource, sh.FragmentSPIRV)
	if err != nil {
		return err
	}
	sh.VertexSPIRV, sh.FragmentSPIRV = vs, fs
	return nil
}

// compileCompute resolves a ComputePipeline's single stage.
func (sb *shaderBridge) compileCompute(c *ComputePipeline) *Error {
	spirv, err := sb.resolve("compute", c.ComputeSource, c.ComputeSPIRV)
	if err != nil {
		return err
	}
	c.ComputeSPIRV = spirv
	return nil
}
