// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package shaderlib provides the built-in GLSL programs the Unified
// Rendering Core compiles at startup for its internal quad, text, and
// compute-test pipelines, named in §4.C's "internal quad mesh+pipeline"
// and "internal text pipeline". It follows the style of the teacher's
// render/glsl.go: one named func() (vsh, fsh []string) entry per
// program, joined with "\n" at the call site since the bridge takes a
// single source string rather than a line slice.
package shaderlib

import "strings"

// Names lists the built-in programs by name, the way the teacher's glsl
// map in render/glsl.go does.
var Names = []string{"quad", "text", "multiply"}

// Quad returns the vertex/fragment source for the internal textured quad
// pipeline used by draw-quad and the virtual-display compositor.
func Quad() (vsh, fsh string) {
	v := []string{
		"#version 450",
		"layout(location=0) out vec2 v_uv;",
		"const vec2 verts[4] = vec2[4](vec2(-1,-1), vec2(1,-1), vec2(-1,1), vec2(1,1));",
		"const vec2 uvs[4]   = vec2[4](vec2(0,1), vec2(1,1), vec2(0,0), vec2(1,0));",
		"void main() {",
		"    gl_Position = vec4(verts[gl_VertexIndex], 0.0, 1.0);",
		"    v_uv = uvs[gl_VertexIndex];",
		"}",
	}
	f := []string{
		"#version 450",
		"layout(location=0) in  vec2 v_uv;",
		"layout(location=0) out vec4 ffc;",
		"layout(binding=0) uniform sampler2D src;",
		"void main() {",
		"    ffc = texture(src, v_uv);",
		"}",
	}
	return strings.Join(v, "\n"), strings.Join(f, "\n")
}

// Text returns the vertex/fragment source for the internal glyph-atlas
// text pipeline used by draw-text.
func Text() (vsh, fsh string) {
	v := []string{
		"#version 450",
		"layout(location=0) in vec2 in_pos;",
		"layout(location=1) in vec2 in_uv;",
		"layout(location=0) out vec2 v_uv;",
		"layout(push_constant) uniform Push { vec2 origin; float pointSize; } pc;",
		"void main() {",
		"    gl_Position = vec4(pc.origin + in_pos * pc.pointSize, 0.0, 1.0);",
		"    v_uv = in_uv;",
		"}",
	}
	f := []string{
		"#version 450",
		"layout(location=0) in  vec2 v_uv;",
		"layout(location=0) out vec4 ffc;",
		"layout(binding=0) uniform sampler2D atlas;",
		"void main() {",
		"    float a = texture(atlas, v_uv).r;",
		"    ffc = vec4(1.0, 1.0, 1.0, a);",
		"}",
	}
	return strings.Join(v, "\n"), strings.Join(f, "\n")
}

// Multiply returns the compute-shader source for the built-in
// two-storage-buffer multiply pipeline scenario S2 exercises: it reads
// an input buffer, multiplies every element by a scalar pushed via push
// constant, and writes the result to the output buffer.
func Multiply() string {
	c := []string{
		"#version 450",
		"layout(local_size_x=64) in;",
		"layout(std430, binding=0) readonly  buffer In  { float values[]; } inBuf;",
		"layout(std430, binding=1) writeonly buffer Out { float values[]; } outBuf;",
		"layout(push_constant) uniform Push { float factor; } pc;",
		"void main() {",
		"    uint i = gl_GlobalInvocationID.x;",
		"    if (i >= inBuf.values.length()) return;",
		"    outBuf.values[i] = inBuf.values[i] * pc.factor;",
		"}",
	}
	return strings.Join(c, "\n")
}
