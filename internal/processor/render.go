package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png" // PNG format support
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/reverie/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// ModeFill scales and crops the image to cover the screen
	ModeFill = "fill"
	// ModeBlur centers the image over a blurred copy of itself
	ModeBlur = "blur"

	defaultBlurRadius   = 15.0
	coverHeightRatio    = 0.60 // Centered image size as percentage of screen height
	wallpaperFilename   = "current_wallpaper.jpg"
	backgroundFilename  = "default_background.jpg"
	captionMargin       = 24
	captionPadding      = 10
	captionLineHeight   = 13
	captionOpacity      = 0.55
	captionMaxCharWidth = 7
)

// idleColor is the solid background shown when no images are available (#1a1a2e)
var idleColor = color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}

// ProcessorConfig holds configuration for image processing
type ProcessorConfig struct {
	BlurRadius       float64
	CoverSizePercent float64 // Centered image size as percentage of screen height (0.0-1.0)
}

// Renderer turns fetched images into wallpaper files sized for the screen
type Renderer struct {
	logger  *zap.Logger
	res     *domain.ScreenResolution
	config  ProcessorConfig
	appCfg  domain.Config
	weather domain.WeatherSource
}

// NewRenderer creates a renderer. weather may be nil, which disables the caption.
func NewRenderer(
	logger *zap.Logger,
	res *domain.ScreenResolution,
	appCfg domain.Config,
	weather domain.WeatherSource,
) *Renderer {
	return &Renderer{
		logger:  logger,
		res:     res,
		appCfg:  appCfg,
		weather: weather,
		config: ProcessorConfig{
			BlurRadius:       defaultBlurRadius,
			CoverSizePercent: coverHeightRatio,
		},
	}
}

// Process decodes imageData and renders it at screen resolution in the given mode.
// Unknown modes render as fill.
func (p *Renderer) Process(ctx context.Context, imageData []byte, mode string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dx() == 0 {
		return nil, fmt.Errorf("invalid image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	var result *image.NRGBA
	if strings.EqualFold(mode, ModeBlur) {
		result = p.blurComposite(img)
	} else {
		p.logger.Debug("Filling screen", zap.Int("w", p.res.Width), zap.Int("h", p.res.Height))
		result = imaging.Fill(img, p.res.Width, p.res.Height, imaging.Center, imaging.Lanczos)
	}

	if p.weather != nil {
		if report, ok := p.weather.Latest(); ok {
			result = drawCaption(result, captionText(report))
		}
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, result, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}

	p.logger.Debug("Image processed successfully", zap.Int("bytes", buf.Len()), zap.String("mode", mode))
	return buf.Bytes(), nil
}

// blurComposite pastes the sharp image at the center of a blurred, screen-filling copy
func (p *Renderer) blurComposite(img image.Image) *image.NRGBA {
	bounds := img.Bounds()

	p.logger.Debug("Creating blurred background", zap.Int("w", p.res.Width), zap.Int("h", p.res.Height))
	background := imaging.Fill(img, p.res.Width, p.res.Height, imaging.Center, imaging.Lanczos)
	background = imaging.Blur(background, p.config.BlurRadius)

	coverHeight := max(int(float64(p.res.Height)*p.config.CoverSizePercent), 1)
	coverWidth := max(coverHeight*bounds.Dx()/bounds.Dy(), 1)
	if coverWidth > p.res.Width {
		coverWidth = p.res.Width
		coverHeight = max(coverWidth*bounds.Dy()/bounds.Dx(), 1)
	}

	cover := imaging.Resize(img, coverWidth, coverHeight, imaging.Lanczos)
	centerX := (p.res.Width - coverWidth) / 2
	centerY := (p.res.Height - coverHeight) / 2
	return imaging.Paste(background, cover, image.Pt(centerX, centerY))
}

// Generate renders a wallpaper from image data and saves it to disk
func (p *Renderer) Generate(imgData []byte, mode string) (string, error) {
	processedData, err := p.Process(context.Background(), imgData, mode)
	if err != nil {
		return "", fmt.Errorf("failed to process image: %w", err)
	}

	outputPath, err := p.write(wallpaperFilename, processedData)
	if err != nil {
		return "", err
	}

	p.logger.Info("Wallpaper generated successfully",
		zap.String("path", outputPath),
		zap.Int("size", len(processedData)),
		zap.String("mode", mode))
	return outputPath, nil
}

// DefaultBackground writes the solid idle background and returns its path
func (p *Renderer) DefaultBackground() (string, error) {
	img := imaging.New(p.res.Width, p.res.Height, idleColor)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("failed to encode background: %w", err)
	}

	outputPath, err := p.write(backgroundFilename, buf.Bytes())
	if err != nil {
		return "", err
	}

	p.logger.Info("Default background generated", zap.String("path", outputPath))
	return outputPath, nil
}

func (p *Renderer) write(name string, data []byte) (string, error) {
	outputDir := p.appCfg.GetOutputDir()
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(outputDir, name)
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write wallpaper file: %w", err)
	}

	absPath, err := filepath.Abs(outputPath)
	if err != nil {
		return outputPath, nil
	}
	return absPath, nil
}

func captionText(w domain.WeatherData) string {
	parts := make([]string, 0, 3)
	if w.Location != "" {
		parts = append(parts, w.Location)
	}
	parts = append(parts, fmt.Sprintf("%.0f%s", w.Temperature, w.Unit))
	if w.Description != "" {
		parts = append(parts, w.Description)
	}
	return strings.Join(parts, "  ")
}

// drawCaption renders text on a translucent strip in the bottom-left corner
func drawCaption(img *image.NRGBA, text string) *image.NRGBA {
	bounds := img.Bounds()
	stripW := min(len([]rune(text))*captionMaxCharWidth+2*captionPadding, bounds.Dx())
	stripH := min(captionLineHeight+2*captionPadding, bounds.Dy())
	if stripW <= 0 || stripH <= 0 {
		return img
	}

	origin := image.Pt(captionMargin, max(bounds.Dy()-captionMargin-stripH, 0))
	strip := imaging.New(stripW, stripH, color.NRGBA{A: 0xff})
	out := imaging.Overlay(img, strip, origin, captionOpacity)

	d := &font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot: fixed.P(
			origin.X+captionPadding,
			origin.Y+captionPadding+basicfont.Face7x13.Ascent,
		),
	}
	d.DrawString(text)
	return out
}
