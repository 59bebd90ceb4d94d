// Copyright © 2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package vkb is a thin Vulkan 1.1 device/queue helper used only by the
// deferred backend. It follows the grouping and naming style of the
// teacher's render/vulkan.go (one struct built up by a sequence of
// create* steps) but only keeps the device-and-swapchain layer: pipeline
// and descriptor construction live in the deferred backend itself, which
// owns the domain-specific shapes (graphics vs compute layouts).
package vkb

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Device bundles the logical device, queues, and command pool every
// deferred-backend resource is created against.
type Device struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Handle         vk.Device
	GraphicsQ      vk.Queue
	GraphicsQIndex uint32
	CmdPool        vk.CommandPool
}

// NewDevice creates the instance, selects a physical device with a
// graphics-capable queue family, and opens a logical device plus a
// reusable command pool, mirroring getVulkanRenderer's create* sequence.
func NewDevice(appName string, instanceExtensions []string, enableValidation bool) (*Device, error) {
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("vkb: load vulkan loader: %w", err)
	}
	layers := []string{}
	if enableValidation {
		layers = append(layers, "VK_LAYER_KHRONOS_validation")
	}
	appInfo := vk.ApplicationInfo{
		SType:         vk.StructureTypeApplicationInfo,
		PApplicationName: appName + "\x00",
		ApiVersion:    vk.MakeVersion(1, 1, 0),
	}
	instInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(instanceExtensions)),
		PpEnabledExtensionNames: instanceExtensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}
	var instance vk.Instance
	if ret := vk.CreateInstance(&instInfo, nil, &instance); ret != vk.Success {
		return nil, fmt.Errorf("vkb: create instance: %v", ret)
	}

	var count uint32
	vk.EnumeratePhysicalDevices(instance, &count, nil)
	if count == 0 {
		return nil, fmt.Errorf("vkb: no vulkan-capable device found")
	}
	devices := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(instance, &count, devices)
	phys := devices[0] // first discrete-or-not device; good enough for a single-GPU dev box.

	var qCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(phys, &qCount, nil)
	families := make([]vk.QueueFamilyProperties, qCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(phys, &qCount, families)
	graphicsIdx := uint32(0)
	found := false
	for i, f := range families {
		f.Deref()
		if f.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			graphicsIdx = uint32(i)
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("vkb: no graphics queue family")
	}

	qPriority := float32(1.0)
	qInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: graphicsIdx,
		QueueCount:       1,
		PQueuePriorities: []float32{qPriority},
	}
	devExt := []string{"VK_KHR_swapchain\x00"}
	devInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{qInfo},
		EnabledExtensionCount:   uint32(len(devExt)),
		PpEnabledExtensionNames: devExt,
	}
	var device vk.Device
	if ret := vk.CreateDevice(phys, &devInfo, nil, &device); ret != vk.Success {
		return nil, fmt.Errorf("vkb: create device: %v", ret)
	}
	var q vk.Queue
	vk.GetDeviceQueue(device, graphicsIdx, 0, &q)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: graphicsIdx,
	}
	var pool vk.CommandPool
	if ret := vk.CreateCommandPool(device, &poolInfo, nil, &pool); ret != vk.Success {
		return nil, fmt.Errorf("vkb: create command pool: %v", ret)
	}

	return &Device{
		Instance: instance, PhysicalDevice: phys, Handle: device,
		GraphicsQ: q, GraphicsQIndex: graphicsIdx, CmdPool: pool,
	}, nil
}

// Swapchain wraps a swapchain and the per-image views it owns. Resizing
// recreates it in place: the old swapchain handle is passed as OldSwapchain
// so the driver can hand images back cheaply, the pattern the teacher's
// recreateSwapchain follows in render/vulkan.go.
type Swapchain struct {
	Handle vk.Swapchain
	Format vk.Format
	Extent vk.Extent2D
	Images []vk.Image
	Views  []vk.ImageView
}

// CreateSwapchain (re)creates the swapchain for surface at width/height,
// reusing old's handle if non-nil.
func (d *Device) CreateSwapchain(surface vk.Surface, width, height uint32, old vk.Swapchain) (*Swapchain, error) {
	var caps vk.SurfaceCapabilities
	vk.GetPhysicalDeviceSurfaceCapabilities(d.PhysicalDevice, surface, &caps)
	caps.Deref()

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	format := vk.FormatB8g8r8a8Unorm
	extent := vk.Extent2D{Width: width, Height: height}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    imageCount,
		ImageFormat:      format,
		ImageColorSpace:  vk.ColorSpaceSrgbNonlinear,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	var sc vk.Swapchain
	if ret := vk.CreateSwapchain(d.Handle, &info, nil, &sc); ret != vk.Success {
		return nil, fmt.Errorf("vkb: create swapchain: %v", ret)
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(d.Handle, old, nil)
	}

	var n uint32
	vk.GetSwapchainImages(d.Handle, sc, &n, nil)
	images := make([]vk.Image, n)
	vk.GetSwapchainImages(d.Handle, sc, &n, images)

	views := make([]vk.ImageView, n)
	for i, img := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if ret := vk.CreateImageView(d.Handle, &viewInfo, nil, &views[i]); ret != vk.Success {
			return nil, fmt.Errorf("vkb: create image view %d: %v", i, ret)
		}
	}

	return &Swapchain{Handle: sc, Format: format, Extent: extent, Images: images, Views: views}, nil
}

func (d *Device) DestroySwapchain(sc *Swapchain) {
	for _, v := range sc.Views {
		vk.DestroyImageView(d.Handle, v, nil)
	}
	vk.DestroySwapchain(d.Handle, sc.Handle, nil)
}

// DescriptorPool wraps a pool that doubles capacity when exhausted,
// following the teacher's descriptor-pool-growth pattern for shaders
// created after startup.
type DescriptorPool struct {
	d        *Device
	handle   vk.DescriptorPool
	capacity uint32
	used     uint32
}

func (d *Device) NewDescriptorPool(initialCapacity uint32) (*DescriptorPool, error) {
	p := &DescriptorPool{d: d}
	if err := p.grow(initialCapacity); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *DescriptorPool) grow(capacity uint32) error {
	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: capacity},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: capacity},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: capacity},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: capacity},
	}
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       capacity,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	var handle vk.DescriptorPool
	if ret := vk.CreateDescriptorPool(p.d.Handle, &info, nil, &handle); ret != vk.Success {
		return fmt.Errorf("vkb: create descriptor pool: %v", ret)
	}
	if p.handle != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(p.d.Handle, p.handle, nil)
	}
	p.handle = handle
	p.capacity = capacity
	p.used = 0
	return nil
}

// Allocate reserves one descriptor set from the pool, doubling capacity
// and retrying once if the pool is exhausted.
func (p *DescriptorPool) Allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	if p.used >= p.capacity {
		if err := p.grow(p.capacity * 2); err != nil {
			return vk.NullDescriptorSet, err
		}
	}
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	sets := make([]vk.DescriptorSet, 1)
	if ret := vk.AllocateDescriptorSets(p.d.Handle, &info, &sets[0]); ret != vk.Success {
		return vk.NullDescriptorSet, fmt.Errorf("vkb: allocate descriptor set: %v", ret)
	}
	p.used++
	return sets[0], nil
}

// Fence wraps a vk.Fence with the wait/signaled/reset shape urc.fence
// needs; the deferred backend's frame slots each own one.
type Fence struct {
	d      *Device
	Handle vk.Fence
}

func (d *Device) NewFence(signaled bool) (*Fence, error) {
	flags := vk.FenceCreateFlags(0)
	if signaled {
		flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: flags}
	var f vk.Fence
	if ret := vk.CreateFence(d.Handle, &info, nil, &f); ret != vk.Success {
		return nil, fmt.Errorf("vkb: create fence: %v", ret)
	}
	return &Fence{d: d, Handle: f}, nil
}

func (f *Fence) Wait() {
	vk.WaitForFences(f.d.Handle, 1, []vk.Fence{f.Handle}, vk.True, vk.MaxUint64)
}

func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.d.Handle, f.Handle) == vk.Success
}

func (f *Fence) Reset() {
	vk.ResetFences(f.d.Handle, 1, []vk.Fence{f.Handle})
}
