// Package webgpu implements the GPU compute backend on WebGPU via the
// zero-CGO go-webgpu bindings. Element-wise math and matmul run as
// WGSL kernels; reductions and shape ops delegate to the cpu backend,
// which keeps the kernel surface small while every operation stays
// available on GPU tensors.
package webgpu

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"

	"github.com/lumo-ml/lumo/internal/backend/cpu"
	"github.com/lumo-ml/lumo/internal/tensor"
)

// Backend implements tensor.Backend on a WebGPU device.
type Backend struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	mu        sync.RWMutex
	shaders   map[string]*wgpu.ShaderModule
	pipelines map[string]*wgpu.ComputePipeline

	adapterInfo *wgpu.AdapterInfoGo

	// fallback runs the ops that have no kernel yet.
	fallback *cpu.CPUBackend
}

// New initializes the WebGPU instance, adapter, device and queue.
// Returns an error when no adapter is available or the native library
// is missing.
func New() (backend *Backend, err error) {
	// The bindings panic when wgpu_native cannot be loaded.
	defer func() {
		if r := recover(); r != nil {
			backend = nil
			err = fmt.Errorf("webgpu: native library not available: %v", r)
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return nil, fmt.Errorf("webgpu: create instance: %w", instErr)
	}
	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		instance.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", adapterErr)
	}

	device, deviceErr := adapter.RequestDevice(nil)
	if deviceErr != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", deviceErr)
	}

	queue := device.GetQueue()
	if queue == nil {
		device.Release()
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("webgpu: no queue")
	}

	adapterInfo, _ := adapter.GetInfo()

	return &Backend{
		instance:    instance,
		adapter:     adapter,
		device:      device,
		queue:       queue,
		shaders:     make(map[string]*wgpu.ShaderModule),
		pipelines:   make(map[string]*wgpu.ComputePipeline),
		adapterInfo: adapterInfo,
		fallback:    cpu.New(),
	}, nil
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, instErr := wgpu.CreateInstance(nil)
	if instErr != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()
	return true
}

// Release frees all GPU resources. The backend must not be used after.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range b.pipelines {
		p.Release()
	}
	b.pipelines = nil
	for _, s := range b.shaders {
		s.Release()
	}
	b.shaders = nil

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// Name returns the backend name with the adapter it runs on.
func (b *Backend) Name() string {
	if b.adapterInfo != nil && b.adapterInfo.Device != "" {
		return fmt.Sprintf("webgpu (%s)", b.adapterInfo.Device)
	}
	return "webgpu"
}

// Device returns tensor.WebGPU.
func (b *Backend) Device() tensor.Device { return tensor.WebGPU }

// pipelineFor compiles (or fetches from cache) the shader and pipeline
// for a kernel.
func (b *Backend) pipelineFor(name, code string) *wgpu.ComputePipeline {
	b.mu.RLock()
	pipeline, ok := b.pipelines[name]
	b.mu.RUnlock()
	if ok {
		return pipeline
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if pipeline, ok = b.pipelines[name]; ok {
		return pipeline
	}

	shader := b.device.CreateShaderModuleWGSL(code)
	b.shaders[name] = shader
	pipeline = b.device.CreateComputePipelineSimple(nil, shader, "main")
	b.pipelines[name] = pipeline
	return pipeline
}

// createStorageBuffer uploads data into a storage buffer via
// MappedAtCreation.
func (b *Backend) createStorageBuffer(data []byte) *wgpu.Buffer {
	size := uint64(len(data))
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// createUniformBuffer uploads a params block, padded to the 16-byte
// alignment uniform buffers require.
func (b *Backend) createUniformBuffer(data []byte) *wgpu.Buffer {
	size := (uint64(len(data)) + 15) &^ 15
	buffer := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		Size:             size,
		MappedAtCreation: wgpu.True,
	})
	mapped := unsafe.Slice((*byte)(buffer.GetMappedRange(0, size)), size)
	copy(mapped, data)
	buffer.Unmap()
	return buffer
}

// readBuffer copies a storage buffer back to CPU memory through a
// staging buffer; storage buffers cannot be mapped directly.
func (b *Backend) readBuffer(src *wgpu.Buffer, size uint64) ([]byte, error) {
	staging := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  size,
	})
	defer staging.Release()

	encoder := b.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(src, 0, staging, 0, size)
	b.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(b.device, wgpu.MapModeRead, 0, size); err != nil {
		return nil, fmt.Errorf("webgpu: map staging buffer: %w", err)
	}
	mapped := unsafe.Slice((*byte)(staging.GetMappedRange(0, size)), size)
	out := make([]byte, size)
	copy(out, mapped)
	staging.Unmap()
	return out, nil
}

// onDevice rewraps a fallback result so it carries the WebGPU device
// tag like every other output of this backend.
func (b *Backend) onDevice(r *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(r.Shape(), r.DType(), tensor.WebGPU)
	if err != nil {
		panic("webgpu: " + err.Error())
	}
	copy(out.Data(), r.Data())
	return out
}
