package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
)

func TestRenderer_Process(t *testing.T) {
	tests := []struct {
		name          string
		imageData     []byte
		mode          string
		resolution    *domain.ScreenResolution
		expectedError string
	}{
		{
			name:       "Success - Blur 1920x1080",
			imageData:  createTestJPEG(100, 100, color.RGBA{R: 255, G: 0, B: 0, A: 255}),
			mode:       ModeBlur,
			resolution: &domain.ScreenResolution{Width: 1920, Height: 1080},
		},
		{
			name:       "Success - Fill 800x600",
			imageData:  createTestJPEG(200, 150, color.RGBA{R: 0, G: 255, B: 0, A: 255}),
			mode:       ModeFill,
			resolution: &domain.ScreenResolution{Width: 800, Height: 600},
		},
		{
			name:       "Success - Unknown Mode Fills",
			imageData:  createTestJPEG(64, 48, color.RGBA{R: 0, G: 0, B: 255, A: 255}),
			mode:       "tile",
			resolution: &domain.ScreenResolution{Width: 320, Height: 240},
		},
		{
			name:       "Success - Panorama Blur",
			imageData:  createTestJPEG(400, 40, color.RGBA{R: 10, G: 20, B: 30, A: 255}),
			mode:       ModeBlur,
			resolution: &domain.ScreenResolution{Width: 640, Height: 480},
		},
		{
			name:          "Error - Invalid Image Data",
			imageData:     []byte("not-an-image"),
			mode:          ModeFill,
			resolution:    &domain.ScreenResolution{Width: 1920, Height: 1080},
			expectedError: "failed to decode image",
		},
		{
			name:          "Error - Empty Data",
			imageData:     []byte{},
			mode:          ModeBlur,
			resolution:    &domain.ScreenResolution{Width: 1920, Height: 1080},
			expectedError: "failed to decode image",
		},
		{
			name:          "Error - Corrupted JPEG",
			imageData:     []byte{0xFF, 0xD8, 0xFF, 0x00, 0x00},
			mode:          ModeBlur,
			resolution:    &domain.ScreenResolution{Width: 1920, Height: 1080},
			expectedError: "failed to decode image",
		},
		{
			name:       "Edge Case - Very Small Image",
			imageData:  createTestJPEG(1, 1, color.RGBA{R: 128, G: 128, B: 128, A: 255}),
			mode:       ModeBlur,
			resolution: &domain.ScreenResolution{Width: 1920, Height: 1080},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			renderer := NewRenderer(zap.NewNop(), tt.resolution, &mockConfig{outputDir: t.TempDir()}, nil)
			result, err := renderer.Process(context.Background(), tt.imageData, tt.mode)

			if tt.expectedError != "" {
				if err == nil {
					t.Fatalf("expected error containing '%s', got nil", tt.expectedError)
				}
				if !strings.Contains(err.Error(), tt.expectedError) {
					t.Errorf("expected error '%s' to contain '%s'", err.Error(), tt.expectedError)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			img, _, err := image.Decode(bytes.NewReader(result))
			if err != nil {
				t.Fatalf("result is not a valid image: %v", err)
			}
			bounds := img.Bounds()
			if bounds.Dx() != tt.resolution.Width || bounds.Dy() != tt.resolution.Height {
				t.Errorf("expected %dx%d, got %dx%d",
					tt.resolution.Width, tt.resolution.Height, bounds.Dx(), bounds.Dy())
			}
		})
	}
}

func TestRenderer_Generate(t *testing.T) {
	dir := t.TempDir()
	renderer := NewRenderer(zap.NewNop(), &domain.ScreenResolution{Width: 320, Height: 180}, &mockConfig{outputDir: dir}, nil)

	path, err := renderer.Generate(createTestJPEG(50, 50, color.RGBA{R: 200, A: 255}), ModeFill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filepath.Base(path) != wallpaperFilename {
		t.Errorf("expected %s, got %s", wallpaperFilename, path)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("expected absolute path, got %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("wallpaper not written: %v", err)
	}
}

func TestRenderer_DefaultBackground(t *testing.T) {
	renderer := NewRenderer(zap.NewNop(), &domain.ScreenResolution{Width: 64, Height: 36}, &mockConfig{outputDir: t.TempDir()}, nil)

	path, err := renderer.DefaultBackground()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open background: %v", err)
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("background is not a JPEG: %v", err)
	}
	r, g, b, _ := img.At(32, 18).RGBA()
	// allow for JPEG rounding
	if !near(r>>8, 0x1a) || !near(g>>8, 0x1a) || !near(b>>8, 0x2e) {
		t.Errorf("unexpected idle color: %02x%02x%02x", r>>8, g>>8, b>>8)
	}
}

func TestRenderer_WeatherCaption(t *testing.T) {
	res := &domain.ScreenResolution{Width: 400, Height: 200}
	input := createTestJPEG(40, 20, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	plain := NewRenderer(zap.NewNop(), res, &mockConfig{outputDir: t.TempDir()}, nil)
	captioned := NewRenderer(zap.NewNop(), res, &mockConfig{outputDir: t.TempDir()}, stubWeather{
		data: domain.WeatherData{Location: "Rome", Temperature: 22, Unit: "C", Description: "clear sky"},
		ok:   true,
	})

	a, err := plain.Process(context.Background(), input, ModeFill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := captioned.Process(context.Background(), input, ModeFill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// sample inside the strip: white input darkens under the overlay
	imgA, _ := jpeg.Decode(bytes.NewReader(a))
	imgB, _ := jpeg.Decode(bytes.NewReader(b))
	x, y := captionMargin+2, res.Height-captionMargin-2
	ra, _, _, _ := imgA.At(x, y).RGBA()
	rb, _, _, _ := imgB.At(x, y).RGBA()
	if rb >= ra {
		t.Errorf("expected caption strip to darken the image: plain=%d captioned=%d", ra>>8, rb>>8)
	}
}

func TestCaptionText(t *testing.T) {
	tests := []struct {
		name string
		in   domain.WeatherData
		want string
	}{
		{
			name: "full",
			in:   domain.WeatherData{Location: "Oslo", Temperature: -3, Unit: "°C", Description: "snow"},
			want: "Oslo  -3°C  snow",
		},
		{
			name: "temperature only",
			in:   domain.WeatherData{Temperature: 70, Unit: "°F"},
			want: "70°F",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := captionText(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func near(got uint32, want uint32) bool {
	d := int(got) - int(want)
	return d >= -4 && d <= 4
}

// createTestJPEG generates a simple JPEG image for testing
func createTestJPEG(width, height int, col color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, col)
		}
	}

	buf := new(bytes.Buffer)
	err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 80})
	if err != nil {
		panic("failed to create test JPEG: " + err.Error())
	}
	return buf.Bytes()
}

type stubWeather struct {
	data domain.WeatherData
	ok   bool
}

func (s stubWeather) Latest() (domain.WeatherData, bool) {
	return s.data, s.ok
}

// mockConfig is a simple mock implementation of domain.Config for testing
type mockConfig struct {
	outputDir string
	mode      string
}

func (m *mockConfig) GetOutputDir() string {
	return m.outputDir
}

func (m *mockConfig) GetMode() string {
	if m.mode == "" {
		return ModeBlur
	}
	return m.mode
}

func (m *mockConfig) GetImageCount() int      { return 10 }
func (m *mockConfig) RestoreOnExit() bool     { return true }
func (m *mockConfig) FollowScreenSaver() bool { return false }
