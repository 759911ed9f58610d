// Package imagefx applies the photo filters that run in process:
// sketch, emboss, black and white, and soft glow. Filters that need a
// model (oil paint, big eyes) go through the external filter service.
package imagefx

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
)

const (
	FilterSketch     = "sketch"
	FilterEmboss     = "emboss"
	FilterBlackWhite = "black_white"
	FilterSoftGlow   = "soft_glow"
)

// IsNative reports whether a filter id runs in process.
func IsNative(id string) bool {
	switch id {
	case FilterSketch, FilterEmboss, FilterBlackWhite, FilterSoftGlow:
		return true
	}
	return false
}

// Apply runs a native filter over the source image.
func Apply(id string, src image.Image) (image.Image, error) {
	switch id {
	case FilterSketch:
		return Sketch(src), nil
	case FilterEmboss:
		return Emboss(src), nil
	case FilterBlackWhite:
		return BlackWhite(src), nil
	case FilterSoftGlow:
		return SoftGlow(src), nil
	}
	return nil, fmt.Errorf("unknown filter %q", id)
}

// ApplyToFile decodes srcPath, applies the filter, and writes the
// result to dstPath as JPEG.
func ApplyToFile(id, srcPath, dstPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode %s: %w", srcPath, err)
	}

	out, err := Apply(id, src)
	if err != nil {
		return err
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", dstPath, err)
	}
	defer dst.Close()
	if err := jpeg.Encode(dst, out, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode %s: %w", dstPath, err)
	}
	return nil
}

// BlackWhite converts to plain grayscale.
func BlackWhite(src image.Image) image.Image {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

// Sketch renders a pencil-sketch look: grayscale, color-dodge the
// grayscale against its blurred inverse.
func Sketch(src image.Image) image.Image {
	gray := toGray(src)
	bounds := gray.Bounds()

	inverted := image.NewGray(bounds)
	for i, v := range gray.Pix {
		inverted.Pix[i] = 255 - v
	}
	blurred := blurGray(inverted, 10)

	out := image.NewGray(bounds)
	for i := range gray.Pix {
		denom := 255 - blurred.Pix[i]
		if denom == 0 {
			out.Pix[i] = 255
			continue
		}
		v := int(gray.Pix[i]) * 256 / int(denom)
		out.Pix[i] = clamp8(v)
	}
	return out
}

var embossKernel = [3][3]int{
	{-2, -1, 0},
	{-1, 1, 1},
	{0, 1, 2},
}

// Emboss applies a directional relief kernel per channel.
func Emboss(src image.Image) image.Image {
	in := toRGBA(src)
	bounds := in.Bounds()
	out := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			var sumR, sumG, sumB int
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					px := clampInt(x+kx, bounds.Min.X, bounds.Max.X-1)
					py := clampInt(y+ky, bounds.Min.Y, bounds.Max.Y-1)
					c := in.RGBAAt(px, py)
					w := embossKernel[ky+1][kx+1]
					sumR += int(c.R) * w
					sumG += int(c.G) * w
					sumB += int(c.B) * w
				}
			}
			out.SetRGBA(x, y, color.RGBA{
				R: clamp8(sumR),
				G: clamp8(sumG),
				B: clamp8(sumB),
				A: in.RGBAAt(x, y).A,
			})
		}
	}
	return out
}

// SoftGlow blends the image with a heavy blur of itself for a hazy,
// bloomed look.
func SoftGlow(src image.Image) image.Image {
	in := toRGBA(src)
	glow := blurRGBA(blurRGBA(in, 14), 14)

	blended := blendRGBA(in, glow, 0.5, 0.5, 2)
	layer := blurRGBA(blended, 6)
	return blendRGBA(blended, layer, 0.2, 0.8, 0)
}

func blendRGBA(a, b *image.RGBA, alpha, beta float64, gamma int) *image.RGBA {
	out := image.NewRGBA(a.Bounds())
	for i := 0; i < len(a.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := alpha*float64(a.Pix[i+c]) + beta*float64(b.Pix[i+c]) + float64(gamma)
			out.Pix[i+c] = clamp8(int(math.Round(v)))
		}
		out.Pix[i+3] = a.Pix[i+3]
	}
	return out
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

func toRGBA(src image.Image) *image.RGBA {
	if r, ok := src.(*image.RGBA); ok {
		return r
	}
	bounds := src.Bounds()
	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}

// blurGray runs a horizontal then vertical box blur, a close enough
// stand-in for a gaussian at these radii.
func blurGray(in *image.Gray, radius int) *image.Gray {
	bounds := in.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tmp := image.NewGray(bounds)
	out := image.NewGray(bounds)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count int
			for k := -radius; k <= radius; k++ {
				xx := clampInt(x+k, 0, w-1)
				sum += int(in.Pix[y*in.Stride+xx])
				count++
			}
			tmp.Pix[y*tmp.Stride+x] = uint8(sum / count)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum, count int
			for k := -radius; k <= radius; k++ {
				yy := clampInt(y+k, 0, h-1)
				sum += int(tmp.Pix[yy*tmp.Stride+x])
				count++
			}
			out.Pix[y*out.Stride+x] = uint8(sum / count)
		}
	}
	return out
}

func blurRGBA(in *image.RGBA, radius int) *image.RGBA {
	bounds := in.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tmp := image.NewRGBA(bounds)
	out := image.NewRGBA(bounds)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [4]int
			count := 0
			for k := -radius; k <= radius; k++ {
				xx := clampInt(x+k, 0, w-1)
				off := y*in.Stride + xx*4
				for c := 0; c < 4; c++ {
					sum[c] += int(in.Pix[off+c])
				}
				count++
			}
			off := y*tmp.Stride + x*4
			for c := 0; c < 4; c++ {
				tmp.Pix[off+c] = uint8(sum[c] / count)
			}
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [4]int
			count := 0
			for k := -radius; k <= radius; k++ {
				yy := clampInt(y+k, 0, h-1)
				off := yy*tmp.Stride + x*4
				for c := 0; c < 4; c++ {
					sum[c] += int(tmp.Pix[off+c])
				}
				count++
			}
			off := y*out.Stride + x*4
			for c := 0; c < 4; c++ {
				out.Pix[off+c] = uint8(sum[c] / count)
			}
		}
	}
	return out
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PruneOld keeps the newest `keep` files in dir and removes the rest.
// Transformed images pile up fast on small hosts.
func PruneOld(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	type fileAge struct {
		path string
		mod  int64
	}
	var files []fileAge
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileAge{
			path: filepath.Join(dir, e.Name()),
			mod:  info.ModTime().UnixNano(),
		})
	}
	if len(files) <= keep {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].mod < files[j].mod })
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f.path); err != nil {
			return fmt.Errorf("remove %s: %w", f.path, err)
		}
	}
	return nil
}
