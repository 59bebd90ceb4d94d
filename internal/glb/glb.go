// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package glb is a thin OpenGL 4.6 Core wrapper used only by the
// immediate backend. It wraps github.com/go-gl/gl/v4.6-core/gl calls
// with Go-shaped signatures (byte slices instead of unsafe pointers
// where the caller's data is already a []byte) and the shader
// compile/link error-collection style of the teacher's render/gl/bind.go.
package glb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
)

// Init must be called once, after a GL context is current on the owning
// thread (typically right after window.MakeContextCurrent).
func Init() error {
	return gl.Init()
}

// Program links a vertex and fragment SPIR-V binary into a GL program
// using ARB_gl_spirv, mirroring BindProgram's error-collection shape in
// the teacher's render/gl/bind.go but taking SPIR-V bytes (produced by
// the shader compiler bridge) rather than GLSL source strings.
func Program(vertexSPIRV, fragmentSPIRV []byte) (uint32, error) {
	program := gl.CreateProgram()

	vs, err := specializeShader(gl.VERTEX_SHADER, vertexSPIRV, "main")
	if err != nil {
		return 0, fmt.Errorf("vertex stage: %w", err)
	}
	defer gl.DeleteShader(vs)
	gl.AttachShader(program, vs)

	fs, err := specializeShader(gl.FRAGMENT_SHADER, fragmentSPIRV, "main")
	if err != nil {
		return 0, fmt.Errorf("fragment stage: %w", err)
	}
	defer gl.DeleteShader(fs)
	gl.AttachShader(program, fs)

	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return 0, errors.New("shader link failed: " + programLog(program))
	}
	return program, nil
}

// ComputeProgram links a single compute stage from SPIR-V.
func ComputeProgram(computeSPIRV []byte) (uint32, error) {
	program := gl.CreateProgram()
	cs, err := specializeShader(gl.COMPUTE_SHADER, computeSPIRV, "main")
	if err != nil {
		return 0, fmt.Errorf("compute stage: %w", err)
	}
	defer gl.DeleteShader(cs)
	gl.AttachShader(program, cs)
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		return 0, errors.New("compute link failed: " + programLog(program))
	}
	return program, nil
}

func specializeShader(stage uint32, spirv []byte, entryPoint string) (uint32, error) {
	shader := gl.CreateShader(stage)
	gl.ShaderBinary(1, &shader, gl.SHADER_BINARY_FORMAT_SPIR_V, gl.Ptr(spirv), int32(len(spirv)))
	cstr, free := gl.Strs(entryPoint + "\x00")
	defer free()
	gl.SpecializeShader(shader, *cstr, 0, nil, nil)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		msg := shaderLog(shader)
		gl.DeleteShader(shader)
		return 0, errors.New(msg)
	}
	return shader, nil
}

func shaderLog(shader uint32) string {
	var n int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return "unknown shader error"
	}
	log := strings.Repeat("\x00", int(n))
	gl.GetShaderInfoLog(shader, n, nil, gl.Str(log))
	return log
}

func programLog(program uint32) string {
	var n int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &n)
	if n == 0 {
		return "unknown link error"
	}
	log := strings.Repeat("\x00", int(n))
	gl.GetProgramInfoLog(program, n, nil, gl.Str(log))
	return log
}

// Texture2D creates and allocates storage for a 2D texture.
func Texture2D(width, height int32, internalFormat uint32, mipLevels int32) uint32 {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexStorage2D(gl.TEXTURE_2D, mipLevels, internalFormat, width, height)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return tex
}

func DeleteTexture(tex uint32) { gl.DeleteTextures(1, &tex) }

// SubImage uploads a region of pixel bytes into an existing texture.
func SubImage(tex uint32, x, y, w, h int32, format, pixelType uint32, data []byte) {
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, x, y, w, h, format, pixelType, gl.Ptr(data))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Buffer creates a buffer object with immutable storage of size bytes.
func Buffer(size int, flags uint32) uint32 {
	var buf uint32
	gl.GenBuffers(1, &buf)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf)
	gl.BufferStorage(gl.ARRAY_BUFFER, size, nil, flags)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	return buf
}

func DeleteBuffer(buf uint32) { gl.DeleteBuffers(1, &buf) }

// BufferSubData uploads bytes at offset into an existing buffer.
func BufferSubData(buf uint32, target uint32, offset int, data []byte) {
	gl.BindBuffer(target, buf)
	gl.BufferSubData(target, offset, len(data), gl.Ptr(data))
	gl.BindBuffer(target, 0)
}

// NewFramebuffer builds a framebuffer object with color bound to
// GL_COLOR_ATTACHMENT0 and depth bound to GL_DEPTH_ATTACHMENT, used to
// target a virtual display's attachments instead of the default
// framebuffer. depth may be 0 to build a color-only target.
func NewFramebuffer(color, depth uint32) (uint32, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, color, 0)
	if depth != 0 {
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, depth, 0)
	}
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return 0, fmt.Errorf("framebuffer incomplete: 0x%x", status)
	}
	return fbo, nil
}

// BindFramebuffer binds fbo as the current draw/read target. fbo of 0
// binds the default (window system) framebuffer.
func BindFramebuffer(fbo uint32) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
}

// DeleteFramebuffer releases a framebuffer object created by
// NewFramebuffer.
func DeleteFramebuffer(fbo uint32) {
	gl.DeleteFramebuffers(1, &fbo)
}

// Dispatch issues a compute dispatch with a full memory barrier
// afterward. The deferred backend adds no barrier of its own after a
// dispatch; it only records the pipeline-barrier packets the caller
// records.
func Dispatch(x, y, z uint32) {
	gl.DispatchCompute(x, y, z)
	gl.MemoryBarrier(gl.ALL_BARRIER_BITS)
}
