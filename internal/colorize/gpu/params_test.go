package gpu

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/ironsheep/colorizer/internal/colorize"
)

func TestParams_Bytes(t *testing.T) {
	cfg := colorize.Config{
		Palette:         colorize.Palette{{L: 50}, {L: 60}, {L: 70}},
		BlendFactor:     0.9,
		DitherAmount:    0.25,
		SpatialRadius:   10,
		DitherReference: colorize.DitherOriginal,
	}
	buf := newParams(640, 480, cfg, 0x0000000100000002).bytes()
	if len(buf) != 32 {
		t.Fatalf("len = %d, want 32", len(buf))
	}

	le := binary.LittleEndian
	u32 := []struct {
		off  int
		want uint32
	}{
		{0, 640},
		{4, 480},
		{16, 10},
		{20, 3},
		{24, 3},
		{28, 1},
	}
	for _, tt := range u32 {
		if got := le.Uint32(buf[tt.off:]); got != tt.want {
			t.Errorf("offset %d = %d, want %d", tt.off, got, tt.want)
		}
	}
	if got := math.Float32frombits(le.Uint32(buf[8:])); got != float32(0.9) {
		t.Errorf("blend factor = %v, want 0.9", got)
	}
	if got := math.Float32frombits(le.Uint32(buf[12:])); got != float32(0.25) {
		t.Errorf("dither amount = %v, want 0.25", got)
	}
}

func TestParams_DitherMatchedIsZero(t *testing.T) {
	p := newParams(1, 1, colorize.Config{Palette: colorize.Palette{{}}}, 7)
	if p.DitherOriginal != 0 {
		t.Errorf("DitherOriginal = %d, want 0", p.DitherOriginal)
	}
}

func TestScanParams_Bytes(t *testing.T) {
	buf := scanParams{Width: 3, Height: 9}.bytes()
	if len(buf) != 16 {
		t.Fatalf("len = %d, want 16", len(buf))
	}
	if w, h := binary.LittleEndian.Uint32(buf), binary.LittleEndian.Uint32(buf[4:]); w != 3 || h != 9 {
		t.Errorf("dims = %dx%d, want 3x9", w, h)
	}
}

func TestPackPixels_RoundTrip(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 80), uint8(y * 100), uint8(x + y), 255})
		}
	}

	data := packPixels(img)
	if len(data) != 3*2*4 {
		t.Fatalf("len = %d, want 24", len(data))
	}
	if got := binary.LittleEndian.Uint32(data[4:]); got != 80|0xff<<24 {
		t.Errorf("pixel (1,0) = %#08x, want %#08x", got, uint32(80|0xff<<24))
	}

	back := unpackPixels(data, 3, 2)
	for i := range img.Pix {
		if back.Pix[i] != img.Pix[i] {
			t.Fatalf("round trip Pix[%d] = %d, want %d", i, back.Pix[i], img.Pix[i])
		}
	}
}

func TestPackPixels_SubImage(t *testing.T) {
	full := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	full.SetNRGBA(2, 2, color.NRGBA{9, 8, 7, 255})
	sub := full.SubImage(image.Rect(2, 2, 4, 4)).(*image.NRGBA)

	data := packPixels(sub)
	if len(data) != 16 {
		t.Fatalf("len = %d, want 16", len(data))
	}
	if got := binary.LittleEndian.Uint32(data); got != 9|8<<8|7<<16|0xff<<24 {
		t.Errorf("first pixel = %#08x", got)
	}
}

func TestPackPalette(t *testing.T) {
	data := packPalette(colorize.Palette{{L: 10, A: -5, B: 2.5}, {L: 90}})
	if len(data) != 32 {
		t.Fatalf("len = %d, want 32", len(data))
	}
	want := []float32{10, -5, 2.5, 0, 90, 0, 0, 0}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])); got != w {
			t.Errorf("float %d = %v, want %v", i, got, w)
		}
	}
}

func TestGroups(t *testing.T) {
	tests := []struct {
		n, size int
		want    uint32
	}{
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{640, 16, 40},
	}
	for _, tt := range tests {
		if got := groups(tt.n, tt.size); got != tt.want {
			t.Errorf("groups(%d, %d) = %d, want %d", tt.n, tt.size, got, tt.want)
		}
	}
}

func TestCheckDimensions(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		wantOK bool
	}{
		{"2048x2048 fits", 2048, 2048, true},
		{"wide strip", maxDispatch, 2, true},
		{"width over dispatch limit", maxDispatch + 1, 2, false},
		{"height over dispatch limit", 2, maxDispatch + 1, false},
		{"4000x3000 over binding limit", 4000, 3000, false},
		{"exactly at binding limit", 4096, 2048, true},
		{"one row over binding limit", 4096, 2049, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDimensions(tt.w, tt.h)
			if (err == nil) != tt.wantOK {
				t.Errorf("checkDimensions(%d, %d) = %v, want ok=%v", tt.w, tt.h, err, tt.wantOK)
			}
		})
	}
	if maxBindingBytes != 128<<20 {
		t.Errorf("maxBindingBytes = %d, want 128 MiB", maxBindingBytes)
	}
}

func TestAverageErrorBound(t *testing.T) {
	// 1024x1024 peaks at 128<<20 = 2^27, so one f32 step is 2^4.
	got := averageErrorBound(1024, 1024, 8)
	if want := 4 * 16.0 / 289; math.Abs(got-want) > 1e-12 {
		t.Errorf("bound(1024x1024, r=8) = %v, want %v", got, want)
	}

	// The largest bindable image: 2^23 pixels peak at 2^30.
	if got := averageErrorBound(4096, 2048, 8); math.Abs(got-4*128.0/289) > 1e-12 {
		t.Errorf("bound(4096x2048, r=8) = %v, want %v", got, 4*128.0/289)
	}

	if small, large := averageErrorBound(64, 64, 3), averageErrorBound(2048, 2048, 3); small >= large {
		t.Errorf("bound does not grow with image size: %v >= %v", small, large)
	}
	if averageErrorBound(0, 10, 3) != 0 {
		t.Error("empty image has a nonzero bound")
	}
}

func TestShaderSource(t *testing.T) {
	tests := []struct {
		name       string
		wantCommon bool
	}{
		{"match", true},
		{"blend", true},
		{"scan", false},
		{"transpose", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := shaderSource(tt.name)
			if err != nil {
				t.Fatalf("shaderSource failed: %v", err)
			}
			if !strings.Contains(src, "fn main(") {
				t.Error("source has no entry point")
			}
			if got := strings.Contains(src, "fn ciede2000("); got != tt.wantCommon {
				t.Errorf("common helpers included = %v, want %v", got, tt.wantCommon)
			}
		})
	}

	if _, err := shaderSource("missing"); err == nil {
		t.Error("missing shader did not fail")
	}
}

func TestShaderWorkgroupSizes(t *testing.T) {
	scan, _ := shaderSource("scan")
	if !strings.Contains(scan, "@workgroup_size(256)") || scanThreads != 256 {
		t.Error("scan workgroup size out of sync with scanThreads")
	}
	for _, name := range []string{"match", "transpose", "blend"} {
		src, _ := shaderSource(name)
		if !strings.Contains(src, "@workgroup_size(16, 16)") || tileSize != 16 {
			t.Errorf("%s workgroup size out of sync with tileSize", name)
		}
	}
}
