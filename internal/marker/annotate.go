package marker

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
	"github.com/Monnte/car-dataset-generator/internal/engine/renderer"
	"github.com/Monnte/car-dataset-generator/internal/logger"
	"github.com/Monnte/car-dataset-generator/internal/sifter"
)

// Suffix is appended to the base name of marker images.
const Suffix = "_markers"

// Report summarizes an Annotate run.
type Report struct {
	Written []string
	Skipped int
	Errs    error
}

// OutputPath returns where the marker image for imagePath goes. Formats
// without an encoder (GIF, WebP) are written as PNG.
func OutputPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	base := strings.TrimSuffix(imagePath, ext)
	if _, err := renderer.NormalizeFormat(strings.TrimPrefix(ext, ".")); err != nil {
		ext = ".png"
	}
	return base + Suffix + ext
}

// Annotate draws the markers of every annotated image in folder and saves
// them next to the originals. Images that fail are skipped.
func Annotate(folder string, opts Options) (*Report, error) {
	log := logger.Named("marker")
	images, err := sifter.ListImages(folder)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, path := range images {
		out, err := annotateImage(path, opts)
		if err != nil {
			report.Skipped++
			report.Errs = multierr.Append(report.Errs, err)
			log.Warn("skipping image", zap.String("path", path), zap.Error(err))
			continue
		}
		report.Written = append(report.Written, out)
	}
	log.Info("markers written",
		zap.String("folder", folder),
		zap.Int("written", len(report.Written)),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func annotateImage(path string, opts Options) (string, error) {
	rec, err := annotation.Read(annotation.PathFor(path))
	if err != nil {
		return "", err
	}
	img, err := imgio.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}

	marked, err := Draw(img, rec.Vertices, opts)
	if err != nil {
		return "", err
	}

	out := OutputPath(path)
	if err := save(out, marked); err != nil {
		return "", err
	}
	return out, nil
}

func save(path string, img image.Image) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return renderer.Save(path, img, format, 95)
}
