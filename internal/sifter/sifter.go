package sifter

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
	"golang.org/x/sync/errgroup"

	"github.com/Monnte/car-dataset-generator/internal/annotation"
	"github.com/Monnte/car-dataset-generator/internal/keypoint"
	"github.com/Monnte/car-dataset-generator/internal/logger"
)

// ErrNoImages is returned when a folder holds no annotated images.
var ErrNoImages = errors.New("no annotated images found")

// ImageExts lists the image extensions the sifter considers.
var ImageExts = []string{".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif", ".webp"}

// Options configures a sifting run.
type Options struct {
	Folder    string        // dataset folder with image/annotation pairs
	OutputDir string        // histogram destination, defaults to Folder
	Match     *MatchOptions // nil uses DefaultMatchOptions
	Workers   int           // images in flight, NumCPU when zero
	Detector  keypoint.Detector
}

// Report summarizes a sifting run.
type Report struct {
	Images    int      // images matched successfully
	Skipped   int      // images that failed and were left out
	Keypoints int      // keypoints detected across all images
	Hits      int      // keypoints matched to a vertex
	Files     []string // written histogram files
	Histogram *Histogram
	Errs      error // per-image errors, combined
}

// shard is the result of sifting one image.
type shard struct {
	model     string
	ids       []int
	hits      []int
	keypoints int
	err       error
}

// ListImages returns the image files in folder that have an annotation
// next to them, sorted by name. Subfolders are not searched.
func ListImages(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}

	var images []string
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		path := filepath.Join(folder, e.Name())
		if _, err := os.Stat(annotation.PathFor(path)); err != nil {
			continue
		}
		images = append(images, path)
	}
	sort.Strings(images)
	return images, nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Run sifts every annotated image in opts.Folder and persists one
// histogram per model. Images that fail are skipped and reported in
// Report.Errs.
func Run(ctx context.Context, opts Options) (*Report, error) {
	log := logger.Named("sifter")
	if opts.Detector == nil {
		opts.Detector = keypoint.NewHarris(0)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = opts.Folder
	}
	match := DefaultMatchOptions()
	if opts.Match != nil {
		match = *opts.Match
	}

	images, err := ListImages(opts.Folder)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, opts.Folder)
	}
	log.Info("sifting dataset", zap.String("folder", opts.Folder), zap.Int("images", len(images)))

	shards := make([]shard, len(images))
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			shards[i] = siftImage(path, opts.Detector, match)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge in file order so the first annotation of a model is stable.
	report := &Report{Histogram: NewHistogram()}
	for i, s := range shards {
		if s.err != nil {
			report.Skipped++
			report.Errs = multierr.Append(report.Errs, s.err)
			log.Warn("skipping image", zap.String("path", images[i]), zap.Error(s.err))
			continue
		}
		report.Images++
		report.Keypoints += s.keypoints
		report.Hits += len(s.hits)
		report.Histogram.Observe(s.model, s.ids)
		for _, id := range s.hits {
			report.Histogram.Add(s.model, id)
		}
	}

	files, err := report.Histogram.Save(opts.OutputDir)
	report.Files = files
	if err != nil {
		return report, err
	}
	log.Info("sifting done",
		zap.Int("images", report.Images),
		zap.Int("skipped", report.Skipped),
		zap.Int("hits", report.Hits),
		zap.Strings("histograms", files))
	return report, nil
}

func siftImage(path string, det keypoint.Detector, match MatchOptions) shard {
	rec, err := annotation.Read(annotation.PathFor(path))
	if err != nil {
		return shard{err: err}
	}
	if err := CheckModelName(rec.Meta.Model); err != nil {
		return shard{err: fmt.Errorf("annotation of %s: %w", path, err)}
	}

	img, err := imgio.Open(path)
	if err != nil {
		return shard{err: fmt.Errorf("opening %s: %w", path, err)}
	}

	kps, err := det.Detect(img)
	if err != nil {
		return shard{err: fmt.Errorf("detecting keypoints in %s: %w", path, err)}
	}

	ids := make([]int, len(rec.Vertices))
	for i, v := range rec.Vertices {
		ids[i] = v.ID
	}

	ix := NewIndex(rec.Vertices, imageHeight(img))
	return shard{
		model:     rec.Meta.Model,
		ids:       ids,
		hits:      ix.Match(kps, match),
		keypoints: len(kps),
	}
}

func imageHeight(img image.Image) int {
	return img.Bounds().Dy()
}
