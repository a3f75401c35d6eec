package media

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
)

// Fixed variant geometry and compression. The zoom variant is the untouched
// original, so only the two raster derivatives are generated.
const (
	mainWidth   = 1200
	thumbWidth  = 300
	jpegQuality = 85

	MainFileName  = "main.jpg"
	ThumbFileName = "thumb.jpg"
)

// GeneratedVariants holds the paths of the two resized outputs.
type GeneratedVariants struct {
	MainPath  string
	ThumbPath string
}

// GenerateVariants decodes the source once and produces the main and
// thumbnail derivatives concurrently, both as JPEG at fixed target widths
// (height scales to preserve aspect ratio).
func GenerateVariants(srcPath, outDir string) (*GeneratedVariants, error) {
	src, err := imaging.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", srcPath, err)
	}

	out := &GeneratedVariants{
		MainPath:  filepath.Join(outDir, MainFileName),
		ThumbPath: filepath.Join(outDir, ThumbFileName),
	}

	var wg sync.WaitGroup
	var mainErr, thumbErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		resized := imaging.Resize(src, mainWidth, 0, imaging.Lanczos)
		mainErr = imaging.Save(resized, out.MainPath, imaging.JPEGQuality(jpegQuality))
	}()
	go func() {
		defer wg.Done()
		resized := imaging.Resize(src, thumbWidth, 0, imaging.Lanczos)
		thumbErr = imaging.Save(resized, out.ThumbPath, imaging.JPEGQuality(jpegQuality))
	}()
	wg.Wait()

	if mainErr != nil {
		return nil, fmt.Errorf("writing main variant: %w", mainErr)
	}
	if thumbErr != nil {
		return nil, fmt.Errorf("writing thumbnail variant: %w", thumbErr)
	}

	return out, nil
}
