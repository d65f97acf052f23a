//go:build !nogpu

package gpu

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ironsheep/colorizer/internal/colorize"

	// Registers the Vulkan backend with hal.
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// fenceTimeout bounds the wait for a single pass.
const fenceTimeout = 30 * time.Second

// kernel is one compiled compute shader and its layouts.
type kernel struct {
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// Backend colorizes images on a GPU. It owns one device for its lifetime and
// serializes runs on it. A Backend is safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	adapter  string

	match     kernel
	scan      kernel
	transpose kernel
	blend     kernel

	history []State
}

var _ colorize.Colorizer = (*Backend)(nil)

// New acquires a GPU device and compiles the kernels. When no adapter can be
// opened the error wraps colorize.ErrDeviceUnavailable; a kernel that fails
// to compile is reported as is.
func New() (*Backend, error) {
	b := &Backend{}
	if err := b.openDevice(); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %v", colorize.ErrDeviceUnavailable, err)
	}
	if err := b.compileKernels(); err != nil {
		b.Close()
		return nil, err
	}
	colorize.Logger().Info("gpu backend initialized", "adapter", b.adapter)
	return b, nil
}

// Name returns "gpu".
func (b *Backend) Name() string { return "gpu" }

// Adapter returns the name of the adapter the device was opened on.
func (b *Backend) Adapter() string { return b.adapter }

// History returns the states visited by the most recent Colorize call.
func (b *Backend) History() []State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]State(nil), b.history...)
}

// Close releases the kernels and the device. It is safe to call more than
// once; Colorize fails with colorize.ErrDeviceUnavailable afterwards.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.device != nil {
		for _, k := range []*kernel{&b.match, &b.scan, &b.transpose, &b.blend} {
			b.destroyKernel(k)
		}
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
	b.queue = nil
}

// adapterRank orders device types by preference; lower is better.
var adapterRank = map[gputypes.DeviceType]int{
	gputypes.DeviceTypeDiscreteGPU:   0,
	gputypes.DeviceTypeIntegratedGPU: 1,
	gputypes.DeviceTypeVirtualGPU:    2,
	gputypes.DeviceTypeCPU:           3,
}

// pickAdapter returns the most preferred adapter, keeping enumeration order
// among equals. It returns nil for an empty list.
func pickAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	rank := func(t gputypes.DeviceType) int {
		if r, ok := adapterRank[t]; ok {
			return r
		}
		return len(adapterRank)
	}
	var best *hal.ExposedAdapter
	for i := range adapters {
		if best == nil || rank(adapters[i].Info.DeviceType) < rank(best.Info.DeviceType) {
			best = &adapters[i]
		}
	}
	return best
}

// openDevice creates a Vulkan instance and opens the preferred adapter with
// the default limits.
func (b *Backend) openDevice() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("gpu: vulkan backend not registered")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return fmt.Errorf("gpu: create instance: %w", err)
	}
	b.instance = instance

	selected := pickAdapter(instance.EnumerateAdapters(nil))
	if selected == nil {
		return fmt.Errorf("gpu: no adapters")
	}
	dev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("gpu: open %s: %w", selected.Info.Name, err)
	}
	b.device, b.queue = dev.Device, dev.Queue
	b.adapter = selected.Info.Name
	return nil
}

// compileKernels builds the four pipelines on the open device.
func (b *Backend) compileKernels() error {
	kernels := []struct {
		name     string
		bindings int
		dst      *kernel
	}{
		{"match", 5, &b.match},
		{"scan", 3, &b.scan},
		{"transpose", 3, &b.transpose},
		{"blend", 4, &b.blend},
	}
	for _, k := range kernels {
		if err := b.createKernel(k.name, k.bindings, k.dst); err != nil {
			return fmt.Errorf("gpu: create %s kernel: %w", k.name, err)
		}
	}
	return nil
}

// createKernel compiles shaders/<name>.wgsl. Binding 0 is a uniform buffer
// and bindings 1..n-1 are storage buffers.
func (b *Backend) createKernel(name string, bindings int, k *kernel) error {
	src, err := shaderSource(name)
	if err != nil {
		return err
	}

	shader, err := b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  name + "_shader",
		Source: hal.ShaderSource{WGSL: src},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	k.shader = shader

	entries := make([]gputypes.BindGroupLayoutEntry, bindings)
	entries[0] = gputypes.BindGroupLayoutEntry{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}}
	for i := 1; i < bindings; i++ {
		entries[i] = gputypes.BindGroupLayoutEntry{Binding: uint32(i), Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}}
	}
	bindLayout, err := b.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   name + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	k.bindLayout = bindLayout

	pipeLayout, err := b.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: name + "_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{k.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	k.pipeLayout = pipeLayout

	pipeline, err := b.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   name + "_pipeline",
		Layout:  k.pipeLayout,
		Compute: hal.ComputeState{Module: k.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	k.pipeline = pipeline
	return nil
}

func (b *Backend) destroyKernel(k *kernel) {
	if k.pipeline != nil {
		b.device.DestroyComputePipeline(k.pipeline)
	}
	if k.pipeLayout != nil {
		b.device.DestroyPipelineLayout(k.pipeLayout)
	}
	if k.bindLayout != nil {
		b.device.DestroyBindGroupLayout(k.bindLayout)
	}
	if k.shader != nil {
		b.device.DestroyShaderModule(k.shader)
	}
	*k = kernel{}
}

// binding is a whole-buffer bind group entry.
type binding struct {
	buf  hal.Buffer
	size uint64
}

// frame holds the device buffers of one run.
type frame struct {
	params     binding
	rowParams  binding // ScanParams{W, H}
	colParams  binding // ScanParams{H, W}
	source     binding
	palette    binding
	matchedLab binding
	matchedRGB binding
	sumsA      binding
	sumsB      binding
	result     binding
	staging    binding
}

func (f *frame) all() []*binding {
	return []*binding{
		&f.params, &f.rowParams, &f.colParams, &f.source, &f.palette,
		&f.matchedLab, &f.matchedRGB, &f.sumsA, &f.sumsB, &f.result, &f.staging,
	}
}

// Colorize runs the pipeline on the device. The output has the same shape as
// the CPU pipeline's: the final image and the Stage-1 matched image.
//
// Readback failures wrap colorize.ErrBufferMapFailed and fail this image
// only; the backend stays usable.
func (b *Backend) Colorize(ctx context.Context, src image.Image, cfg colorize.Config) (*colorize.Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	orig := colorize.CloneOpaque(src)
	w, h := orig.Bounds().Dx(), orig.Bounds().Dy()
	if w == 0 || h == 0 {
		return &colorize.Output{Image: orig, Matched: colorize.CloneOpaque(orig)}, nil
	}
	if err := checkDimensions(w, h); err != nil {
		return nil, fmt.Errorf("%w: %v", colorize.ErrInvalidConfig, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	r := newRun(colorize.Logger().With("backend", b.Name()))
	defer func() { b.history = r.history }()

	if b.device == nil {
		return nil, r.fail(fmt.Errorf("%w: backend is closed", colorize.ErrDeviceUnavailable))
	}
	r.advance(StateDeviceAcquired)
	r.log.Debug("window average error bound", "lab_units", averageErrorBound(w, h, cfg.SpatialRadius))

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	f, err := b.allocate(w, h, len(cfg.Palette))
	if err != nil {
		return nil, r.fail(err)
	}
	defer b.release(f)
	b.queue.WriteBuffer(f.params.buf, 0, newParams(w, h, cfg, seed).bytes())
	b.queue.WriteBuffer(f.rowParams.buf, 0, scanParams{Width: uint32(w), Height: uint32(h)}.bytes())
	b.queue.WriteBuffer(f.colParams.buf, 0, scanParams{Width: uint32(h), Height: uint32(w)}.bytes())
	b.queue.WriteBuffer(f.source.buf, 0, packPixels(orig))
	b.queue.WriteBuffer(f.palette.buf, 0, packPalette(cfg.Palette))
	r.advance(StateBuffersAllocated)

	start := time.Now()
	if err := b.dispatch("match", &b.match,
		[]binding{f.params, f.source, f.palette, f.matchedLab, f.matchedRGB},
		groups(w, tileSize), groups(h, tileSize), &f.matchedRGB, &f.staging); err != nil {
		return nil, r.fail(err)
	}
	r.advance(StatePass1Dispatched)

	data, err := b.read(f.staging, uint64(w*h*4))
	if err != nil {
		return nil, r.fail(err)
	}
	matched := unpackPixels(data, w, h)
	r.advance(StatePass1ReadBack)
	r.log.Debug("stage 1 complete", "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	start = time.Now()
	steps := []struct {
		state  State
		label  string
		k      *kernel
		binds  []binding
		gx, gy uint32
	}{
		{StateScanH, "scan_h", &b.scan, []binding{f.rowParams, f.matchedLab, f.sumsA}, 1, uint32(h)},
		{StateTransposeH, "transpose_h", &b.transpose, []binding{f.rowParams, f.sumsA, f.sumsB}, groups(w, tileSize), groups(h, tileSize)},
		{StateScanV, "scan_v", &b.scan, []binding{f.colParams, f.sumsB, f.sumsA}, 1, uint32(w)},
		{StateTransposeV, "transpose_v", &b.transpose, []binding{f.colParams, f.sumsA, f.sumsB}, groups(h, tileSize), groups(w, tileSize)},
	}
	for _, s := range steps {
		if err := b.dispatch(s.label, s.k, s.binds, s.gx, s.gy, nil, nil); err != nil {
			return nil, r.fail(err)
		}
		r.advance(s.state)
	}
	r.log.Debug("stage 2 complete", "elapsed", time.Since(start))
	if err := ctx.Err(); err != nil {
		return nil, r.fail(err)
	}

	start = time.Now()
	if err := b.dispatch("blend", &b.blend,
		[]binding{f.params, f.source, f.sumsB, f.result},
		groups(w, tileSize), groups(h, tileSize), &f.result, &f.staging); err != nil {
		return nil, r.fail(err)
	}
	r.advance(StatePass3Dispatched)

	data, err = b.read(f.staging, uint64(w*h*4))
	if err != nil {
		return nil, r.fail(err)
	}
	final := unpackPixels(data, w, h)
	r.advance(StateFinalReadBack)
	r.log.Debug("stage 3 complete", "elapsed", time.Since(start))

	r.advance(StateDone)
	return &colorize.Output{Image: final, Matched: matched}, nil
}

// Buffer kinds of a run.
const (
	kindStorage = iota
	kindUniform
	kindStaging
)

// allocate creates the buffers of a w x h run with n palette entries.
func (b *Backend) allocate(w, h, n int) (*frame, error) {
	pixels := uint64(w * h)

	f := &frame{}
	specs := []struct {
		dst   *binding
		label string
		size  uint64
		kind  int
	}{
		{&f.params, "colorize_params", 32, kindUniform},
		{&f.rowParams, "scan_row_params", 16, kindUniform},
		{&f.colParams, "scan_col_params", 16, kindUniform},
		{&f.source, "colorize_source", pixels * 4, kindStorage},
		{&f.palette, "colorize_palette", uint64(n) * 16, kindStorage},
		{&f.matchedLab, "colorize_matched_lab", pixels * 16, kindStorage},
		{&f.matchedRGB, "colorize_matched_rgb", pixels * 4, kindStorage},
		{&f.sumsA, "colorize_sums_a", pixels * 16, kindStorage},
		{&f.sumsB, "colorize_sums_b", pixels * 16, kindStorage},
		{&f.result, "colorize_result", pixels * 4, kindStorage},
		{&f.staging, "colorize_staging", pixels * 4, kindStaging},
	}
	for _, s := range specs {
		desc := &hal.BufferDescriptor{
			Label: s.label, Size: s.size,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		}
		switch s.kind {
		case kindUniform:
			desc.Usage = gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst
		case kindStaging:
			desc.Usage = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
		}
		buf, err := b.device.CreateBuffer(desc)
		if err != nil {
			b.release(f)
			return nil, fmt.Errorf("create buffer %s: %w", s.label, err)
		}
		*s.dst = binding{buf: buf, size: s.size}
	}
	return f, nil
}

func (b *Backend) release(f *frame) {
	for _, bd := range f.all() {
		if bd.buf != nil {
			b.device.DestroyBuffer(bd.buf)
			bd.buf = nil
		}
	}
}

// dispatch records one compute pass, optionally followed by a copy of
// copySrc into copyDst, submits it and waits for it to finish.
func (b *Backend) dispatch(label string, k *kernel, binds []binding, gx, gy uint32, copySrc, copyDst *binding) error {
	entries := make([]gputypes.BindGroupEntry, len(binds))
	for i, bd := range binds {
		entries[i] = gputypes.BindGroupEntry{
			Binding:  uint32(i),
			Resource: gputypes.BufferBinding{Buffer: bd.buf.NativeHandle(), Offset: 0, Size: bd.size},
		}
	}
	bindGroup, err := b.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: label + "_bind_group", Layout: k.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group for %s: %w", label, err)
	}
	defer b.device.DestroyBindGroup(bindGroup)

	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder for %s: %w", label, err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding %s: %w", label, err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label + "_pass"})
	pass.SetPipeline(k.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(gx, gy, 1)
	pass.End()

	if copySrc != nil && copyDst != nil {
		encoder.CopyBufferToBuffer(copySrc.buf, copyDst.buf, []hal.BufferCopy{
			{SrcOffset: 0, DstOffset: 0, Size: copySrc.size},
		})
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding %s: %w", label, err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence for %s: %w", label, err)
	}
	defer b.device.DestroyFence(fence)
	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit %s: %w", label, err)
	}
	ok, err := b.device.Wait(fence, 1, fenceTimeout)
	if err != nil || !ok {
		return fmt.Errorf("%w: wait for %s: ok=%v err=%v", colorize.ErrBufferMapFailed, label, ok, err)
	}
	return nil
}

// read copies size bytes of the staging buffer to host memory.
func (b *Backend) read(staging binding, size uint64) ([]byte, error) {
	data := make([]byte, size)
	if err := b.queue.ReadBuffer(staging.buf, 0, data); err != nil {
		return nil, fmt.Errorf("%w: %v", colorize.ErrBufferMapFailed, err)
	}
	return data, nil
}
