// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package window provides the Window/Surface and Input boundary
// collaborators named in §6: platform windowing, a GL-or-Vulkan-capable
// surface, and polled keyboard/mouse/resize state. It follows the public
// shape of the teacher's device package (Device interface, Pressed
// struct) but is backed by glfw instead of per-OS cgo, since glfw
// already gives one implementation across desktop platforms.
package window

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Pressed communicates current user input, same shape as the teacher's
// device.Pressed: a positive Down duration means still held, a negative
// one means released since the last poll.
type Pressed struct {
	Mx, My  int
	Scroll  int
	Down    map[int]int
	Focus   bool
	Resized bool
}

// KeyReleased marks a key transition to released in Pressed.Down, mirroring
// the teacher's device.KEY_RELEASED sentinel.
const KeyReleased = -1000000000

// Window wraps a glfw window and its polled input state.
type Window struct {
	win     *glfw.Window
	curr    *Pressed
	resized bool
}

// New opens a window at x,y of the given size. vulkan selects whether
// the window's context is an OpenGL 4.6 Core context (for the immediate
// backend) or a no-API window owning only a Vulkan-compatible surface
// (for the deferred backend).
func New(title string, x, y, width, height int, vulkan bool) (*Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("window: glfw init: %w", err)
	}
	if vulkan {
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	} else {
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 6)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}
	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("window: create window: %w", err)
	}
	win.SetPos(x, y)
	if !vulkan {
		win.MakeContextCurrent()
	}
	w := &Window{win: win, curr: &Pressed{Focus: true, Down: map[int]int{}}}
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) { w.resized = true })
	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) { w.curr.Scroll += int(yoff) })
	win.SetFocusCallback(func(_ *glfw.Window, focused bool) { w.curr.Focus = focused })
	return w, nil
}

// GLFWWindow exposes the underlying *glfw.Window for callers that need
// it directly (creating a Vulkan surface with CreateWindowSurface, for
// instance).
func (w *Window) GLFWWindow() *glfw.Window { return w.win }

func (w *Window) Open()  {}
func (w *Window) Dispose() {
	w.win.Destroy()
	glfw.Terminate()
}

func (w *Window) IsAlive() bool { return !w.win.ShouldClose() }

func (w *Window) Size() (x, y, width, height int) {
	x, y = w.win.GetPos()
	width, height = w.win.GetFramebufferSize()
	return
}

func (w *Window) ShowCursor(show bool) {
	if show {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	} else {
		w.win.SetInputMode(glfw.CursorMode, glfw.CursorHidden)
	}
}

func (w *Window) SetCursorAt(x, y int) { w.win.SetCursorPos(float64(x), float64(y)) }

func (w *Window) SwapBuffers() { w.win.SwapBuffers() }

// Update polls OS events and returns the current pressed state, same
// contract as device.Device.Update: read-only for the caller, called
// once per application update tick.
func (w *Window) Update() *Pressed {
	glfw.PollEvents()
	mx, my := w.win.GetCursorPos()
	w.curr.Mx, w.curr.My = int(mx), int(my)
	for key := glfw.KeySpace; key <= glfw.KeyLast; key++ {
		switch w.win.GetKey(key) {
		case glfw.Press, glfw.Repeat:
			if w.curr.Down[int(key)] < 0 {
				w.curr.Down[int(key)] = 0
			}
			w.curr.Down[int(key)]++
		case glfw.Release:
			if d, ok := w.curr.Down[int(key)]; ok {
				if d > 0 {
					w.curr.Down[int(key)] = KeyReleased
				} else {
					delete(w.curr.Down, int(key))
				}
			}
		}
	}
	w.curr.Resized = w.resized
	w.resized = false
	snapshot := *w.curr
	snapshot.Down = make(map[int]int, len(w.curr.Down))
	for k, v := range w.curr.Down {
		snapshot.Down[k] = v
	}
	w.curr.Scroll = 0
	return &snapshot
}
