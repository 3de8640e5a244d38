package rasterize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/vincentdare/auto-extractor/config"
)

// ImagePreprocessor is one step of the page preparation chain.
type ImagePreprocessor interface {
	Process(img image.Image) (image.Image, error)
}

// RegionMaskProcessor blanks noise regions before recognition: page headers,
// the footer total line and columns whose content pollutes extraction. The
// regions are fractions of page size, so one mask fits every scan resolution.
type RegionMaskProcessor struct {
	masks []config.MaskRegion
}

func NewRegionMaskProcessor(masks []config.MaskRegion) *RegionMaskProcessor {
	return &RegionMaskProcessor{masks: masks}
}

func (p *RegionMaskProcessor) Process(img image.Image) (image.Image, error) {
	if len(p.masks) == 0 {
		return img, nil
	}

	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	for _, m := range p.masks {
		rect := image.Rect(
			bounds.Min.X+int(m.X*w),
			bounds.Min.Y+int(m.Y*h),
			bounds.Min.X+int((m.X+m.W)*w),
			bounds.Min.Y+int((m.Y+m.H)*h),
		).Intersect(bounds)
		draw.Draw(result, rect, &image.Uniform{color.White}, image.Point{}, draw.Src)
	}
	return result, nil
}

type GrayscaleProcessor struct{}

func NewGrayscaleProcessor() *GrayscaleProcessor {
	return &GrayscaleProcessor{}
}

func (p *GrayscaleProcessor) Process(img image.Image) (image.Image, error) {
	return imaging.Grayscale(img), nil
}

// UpscaleProcessor enlarges the page before thresholding; small digits in
// the loan-number column resolve much better at twice the scan size.
type UpscaleProcessor struct {
	factor float64
}

func NewUpscaleProcessor(factor float64) *UpscaleProcessor {
	return &UpscaleProcessor{factor: factor}
}

func (p *UpscaleProcessor) Process(img image.Image) (image.Image, error) {
	if p.factor <= 1 {
		return img, nil
	}
	bounds := img.Bounds()
	w := int(float64(bounds.Dx()) * p.factor)
	return imaging.Resize(img, w, 0, imaging.CatmullRom), nil
}

// AdaptiveThresholdProcessor binarizes against the local mean, computed with
// an integral image so the cost stays linear in pixels regardless of block
// size.
type AdaptiveThresholdProcessor struct {
	blockSize int
	constant  float64
}

func NewAdaptiveThresholdProcessor(blockSize int, constant float64) *AdaptiveThresholdProcessor {
	return &AdaptiveThresholdProcessor{
		blockSize: blockSize,
		constant:  constant,
	}
}

func (p *AdaptiveThresholdProcessor) Process(img image.Image) (image.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}

	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gray, nil
	}

	// integral[y][x] = sum of pixels in the rectangle (0,0)-(x-1,y-1)
	integral := make([][]int64, h+1)
	integral[0] = make([]int64, w+1)
	for y := 0; y < h; y++ {
		integral[y+1] = make([]int64, w+1)
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(grayAt(gray, bounds.Min.X+x, bounds.Min.Y+y))
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	half := p.blockSize / 2
	result := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		y0, y1 := maxInt(0, y-half), minInt(h, y+half+1)
		for x := 0; x < w; x++ {
			x0, x1 := maxInt(0, x-half), minInt(w, x+half+1)
			sum := integral[y1][x1] - integral[y0][x1] - integral[y1][x0] + integral[y0][x0]
			mean := float64(sum) / float64((y1-y0)*(x1-x0))

			px := grayAt(gray, bounds.Min.X+x, bounds.Min.Y+y)
			if float64(px) < mean-p.constant {
				result.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 0})
			} else {
				result.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: 255})
			}
		}
	}
	return result, nil
}

// OpeningProcessor erodes then dilates the binarized page with a square
// kernel, dropping speckles smaller than the kernel while keeping stroke
// shape.
type OpeningProcessor struct {
	kernel int
}

func NewOpeningProcessor(kernel int) *OpeningProcessor {
	return &OpeningProcessor{kernel: kernel}
}

func (p *OpeningProcessor) Process(img image.Image) (image.Image, error) {
	if p.kernel <= 1 {
		return img, nil
	}
	// Ink is black on white, so erosion of ink takes the local maximum and
	// dilation the local minimum.
	eroded := morph(img, p.kernel, true)
	return morph(eroded, p.kernel, false), nil
}

func morph(img image.Image, kernel int, erode bool) *image.Gray {
	bounds := img.Bounds()
	result := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var best uint8
			if !erode {
				best = 255
			}
			for dy := 0; dy < kernel; dy++ {
				for dx := 0; dx < kernel; dx++ {
					nx, ny := x+dx-kernel/2, y+dy-kernel/2
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					v := grayAt(img, nx, ny)
					if erode {
						if v > best {
							best = v
						}
					} else if v < best {
						best = v
					}
				}
			}
			result.SetGray(x, y, color.Gray{Y: best})
		}
	}
	return result
}

func grayAt(img image.Image, x, y int) uint8 {
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
