package lsconv

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// DirDimensionProber returns a dimension probe that resolves image
// references against the files in dir and reads their pixel dimensions.
//
// Task image references are upload paths or URLs, so only the base name
// (with the extension stripped) is matched against the directory contents.
func DirDimensionProber(dir string) (func(imageRef string) (float64, float64, error), error) {
	files, err := filesByExtInDir(dir, "")
	if err != nil {
		return nil, err
	}
	namesToExt := mapFileNamesToExtensions(files)

	return func(imageRef string) (float64, float64, error) {
		base := filepath.Base(imageRef)
		ext := filepath.Ext(base)
		baseNoExt := base[:len(base)-len(ext)]

		fileExt, found := namesToExt[baseNoExt]
		if !found {
			return 0, 0, fmt.Errorf("no image file matching %q in %q", base, dir)
		}

		config, _, err := decodeImageConfig(filepath.Join(dir, baseNoExt+"."+fileExt))
		if err != nil {
			return 0, 0, err
		}
		return float64(config.Width), float64(config.Height), nil
	}, nil
}

// ResizeOptions controls ResizeDatasetImages.
type ResizeOptions struct {
	LongerSide         int    // Target length for the longer side; zero keeps the aspect ratio.
	ShorterSide        int    // Target length for the shorter side; zero keeps the aspect ratio.
	DownsamplingFilter string // One of nearest, box, linear, gaussian, lanczos.
	UpsamplingFilter   string
	Encoding           string // Output encoding, jpg or png.
	JPEGQuality        int    // Quality for JPEG outputs, [1, 100].
}

// ResizeDatasetImages resizes every image referenced by the dataset, writes
// the results to outDir and rescales the affected image and annotation
// records (bbox, area, keypoints) by the per-image scale factors.
//
// Images that cannot be loaded are skipped with a diagnostic; their records
// stay untouched.
func ResizeDatasetImages(ds *COCODataset, imageDir, outDir string, opts ResizeOptions) error {
	downsample, err := resampleFilterByName(opts.DownsamplingFilter)
	if err != nil {
		return err
	}
	upsample, err := resampleFilterByName(opts.UpsamplingFilter)
	if err != nil {
		return err
	}

	var fileExt string
	switch strings.ToLower(opts.Encoding) {
	case "jpg", "jpeg":
		fileExt = ".jpg"
	case "png":
		fileExt = ".png"
	default:
		return fmt.Errorf("unsupported output encoding %q", opts.Encoding)
	}

	for i := range ds.Images {
		entry := &ds.Images[i]
		path := filepath.Join(imageDir, filepath.Base(entry.FileName))

		img, _, err := loadImage(path)
		if err != nil {
			log.Printf("Failed to load %q: %v, skipping", path, err)
			continue
		}

		resized, scaleWidth, scaleHeight :=
			resizeImage(img, opts.LongerSide, opts.ShorterSide, downsample, upsample)

		base := filepath.Base(path)
		outPath := filepath.Join(outDir, base[:len(base)-len(filepath.Ext(base))]+fileExt)
		if err := saveImage(outPath, resized, opts.JPEGQuality); err != nil {
			return err
		}

		entry.FileName = outPath
		entry.Width = math.Round(entry.Width * scaleWidth)
		entry.Height = math.Round(entry.Height * scaleHeight)
		rescaleAnnotations(ds, entry.ID, scaleWidth, scaleHeight)
	}

	return nil
}

// rescaleAnnotations scales the bbox, area and keypoints of every annotation
// attached to imageID.
func rescaleAnnotations(ds *COCODataset, imageID int, scaleWidth, scaleHeight float64) {
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		if a.ImageID != imageID {
			continue
		}

		a.BBox[0] *= scaleWidth
		a.BBox[1] *= scaleHeight
		a.BBox[2] *= scaleWidth
		a.BBox[3] *= scaleHeight
		a.Area = a.BBox[2] * a.BBox[3]
		for j := 0; j+2 < len(a.Keypoints); j += 3 {
			a.Keypoints[j] *= scaleWidth
			a.Keypoints[j+1] *= scaleHeight
		}
	}
}

// resampleFilterByName selects the imaging resampling filter for a name.
// The empty name selects the box filter.
func resampleFilterByName(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box", "":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("unknown resampling filter %q", name)
}

// resizeImage resamples the image to match the longer and shorter sides (one
// may be 0, keeping the aspect ratio).
//
// Returns the resized image along with the width and height scale factors.
func resizeImage(img image.Image, longerSide, shorterSide int,
	downsamplingFilter, upsamplingFilter imaging.ResampleFilter) (
	resized image.Image, scaleWidth, scaleHeight float64) {

	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()

	imgLonger := imgWidth
	imgShorter := imgHeight
	isLandscape := true
	if imgHeight > imgWidth {
		imgLonger = imgHeight
		imgShorter = imgWidth
		isLandscape = false
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}

	// Select the filter based on the direction of the rescaling operation.
	var filter imaging.ResampleFilter
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = downsamplingFilter
	} else {
		filter = upsamplingFilter
	}

	if isLandscape {
		resized = imaging.Resize(img, longerSide, shorterSide, filter)
		scaleWidth = float64(longerSide) / float64(imgLonger)
		scaleHeight = float64(shorterSide) / float64(imgShorter)
	} else { // Portrait.
		resized = imaging.Resize(img, shorterSide, longerSide, filter)
		scaleWidth = float64(shorterSide) / float64(imgShorter)
		scaleHeight = float64(longerSide) / float64(imgLonger)
	}

	return resized, scaleWidth, scaleHeight
}

// decodeImageConfig opens the file at path and returns the results of
// image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// loadImage reads and decodes the image at path and returns the results of
// image.Decode.
func loadImage(path string) (img image.Image, format string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return image.Decode(f)
}

// Saves the image to path, encoding it as PNG or JPG, depending on the file
// extension of path.
func saveImage(path string, img image.Image, jpegQuality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	return err
}
