// Converts Label Studio annotation exports to COCO keypoint datasets, with
// optional TFRecord export and image resizing, and converts COCO datasets
// back to Label Studio import tasks.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sensorable/lsconv"
)

var (
	convertFrom format // The source format.
	convertTo   format // The target format.

	configFilePath   string // The labeling config XML.
	labelFilePath    string // The input label file.
	labelOutFilePath string // The output label file.
	imageDirPath     string // The directory with the annotated images.
	imageOutDirPath  string // The output directory for resized images.

	traverseBy    string // Task traversal mode for Label Studio output.
	numShardFiles int    // The number of TFRecord shard files to create.

	imageResizeLonger       int    // The target length for the longer side of the image.
	imageResizeShorter      int    // The target length for the shorter side of the image.
	imageDownsamplingFilter string // The algorithm to use when downsampling.
	imageUpsamplingFilter   string // The algorithm to use when upsampling.
	imageOutEncoding        string // The file type for image outputs.
	imageJPEGQuality        int    // The JPEG quality for JPEG outputs.
)

type format int

// The known label formats.
const (
	Unknown format = iota
	LabelStudio
	COCO
	TFRecord
)

func formatFrom(s string) format {
	switch s {
	case "labelstudio":
		return LabelStudio
	case "coco":
		return COCO
	case "tfrecord":
		return TFRecord
	}
	return Unknown
}

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  labelstudio input options:\t-labels <file> -config <file> [-images <dir>]")
		_, _ = fmt.Fprintln(os.Stderr, "  coco input options:\t\t-labels <file> [-images <dir>]")
		_, _ = fmt.Fprintln(os.Stderr, "  coco output options:\t\t-labels-out <file>")
		_, _ = fmt.Fprintln(os.Stderr, "  labelstudio output options:\t-labels-out <file> [-traverse-by <mode>]")
		_, _ = fmt.Fprintln(os.Stderr, "  tfrecord output options:\t-labels-out <file> -images <dir> [-num-shards]")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Format arguments.
	from := flag.String("from", "labelstudio", "The source `format` {labelstudio, coco}")
	to := flag.String("to", "coco", "The target `format` {coco, tfrecord, labelstudio}")

	// Path arguments.
	flag.StringVar(&configFilePath, "config", configFilePath,
		"The `path` to the labeling config XML (required for labelstudio input)")
	flag.StringVar(&labelFilePath, "labels", labelFilePath,
		"The `path` to the label input file")
	flag.StringVar(&labelOutFilePath, "labels-out", labelOutFilePath,
		"The `path` to the label output file")
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the image directory (dimension probing, tfrecord output, resizing)")
	flag.StringVar(&imageOutDirPath, "images-out", imageOutDirPath,
		"The `path` to the image output directory (only required when resizing)")

	// Output arguments.
	flag.StringVar(&traverseBy, "traverse-by", lsconv.TraverseAnnotations,
		"Task traversal `mode` for labelstudio output {annotations, images}")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Image processing arguments.
	flag.IntVar(&imageResizeLonger, "resize-longer", imageResizeLonger,
		"The target `length` for the longer side of the image (zero to keep aspect ratio)")
	flag.IntVar(&imageResizeShorter, "resize-shorter", imageResizeShorter,
		"The target `length` for the shorter side of the image (zero to keep aspect ratio)")
	flag.StringVar(&imageDownsamplingFilter, "downsample-filter", "box",
		"The filter to use when downsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageUpsamplingFilter, "upsample-filter", "linear",
		"The filter to use when upsampling an image {nearest, box, linear, gaussian, lanczos}")
	flag.StringVar(&imageOutEncoding, "image-enc", "jpg",
		"The `encoding` for output images {jpg, png}")
	flag.IntVar(&imageJPEGQuality, "jpeg-quality", 90,
		"The quality to use when encoding JPEGs [1, 100]")

	// Parse and validate flags.
	flag.Parse()

	convertFrom = formatFrom(*from)
	convertTo = formatFrom(*to)

	// Validate the conversion direction.
	if convertFrom == LabelStudio && (convertTo == COCO || convertTo == TFRecord) {
		// OK.
	} else if convertFrom == COCO && convertTo == LabelStudio {
		// OK.
	} else {
		printUsageAndExit("Unsupported conversion direction")
	}

	// Validate input arguments.
	if labelFilePath == "" {
		printUsageAndExit("Missing label input path argument")
	}
	if convertFrom == LabelStudio && configFilePath == "" {
		printUsageAndExit("Missing labeling config path argument")
	}

	// Validate output arguments.
	if labelOutFilePath == "" {
		printUsageAndExit("Missing label output path argument")
	}
	if convertTo == TFRecord && imageDirPath == "" {
		printUsageAndExit("Missing image directory path argument (required for tfrecord output)")
	}
	if traverseBy != lsconv.TraverseAnnotations && traverseBy != lsconv.TraverseImages {
		printUsageAndExit("Invalid value for -traverse-by: ", traverseBy)
	}

	// Image processing arguments.
	doResize := imageResizeLonger > 0 || imageResizeShorter > 0
	if doResize && (imageDirPath == "" || imageOutDirPath == "") {
		printUsageAndExit("Missing image input or output directory path (required when resizing)")
	}
	if imageJPEGQuality < 1 || imageJPEGQuality > 100 {
		imageJPEGQuality = 92
		log.Print("Invalid JPEG quality, setting it to ", imageJPEGQuality)
	}

	// Clean path arguments.
	labelFilePath = filepath.Clean(labelFilePath)
	labelOutFilePath = filepath.Clean(labelOutFilePath)
	if labelFilePath == labelOutFilePath {
		printUsageAndExit("The label input and output paths cannot be identical")
	}
	if configFilePath != "" {
		configFilePath = filepath.Clean(configFilePath)
	}
	if imageDirPath != "" {
		imageDirPath = filepath.Clean(imageDirPath)
	}
	if imageOutDirPath != "" {
		imageOutDirPath = filepath.Clean(imageOutDirPath)
		if imageDirPath == imageOutDirPath {
			printUsageAndExit("The image input and output paths cannot be identical")
		}
	}
}

func main() {
	// The dimension probe is only available with an image directory.
	var probe func(imageRef string) (float64, float64, error)
	if imageDirPath != "" {
		var err error
		probe, err = lsconv.DirDimensionProber(imageDirPath)
		if err != nil {
			log.Fatal("Failed to read the image directory: ", err)
		}
	}

	switch convertFrom {
	case LabelStudio:
		converter, err := lsconv.NewConverter(configFilePath)
		if err != nil {
			log.Fatal("Failed to parse the labeling config: ", err)
		}
		converter.ProbeImageDims = probe

		tasks, err := lsconv.FromLabelStudio(labelFilePath)
		if err != nil {
			log.Fatal("Failed to parse the input: ", err)
		}

		ds, stats := converter.ToCOCO(tasks)

		// TFRecord output embeds the image bytes, so it must read the resized
		// images when resizing took place.
		tfImageDir := imageDirPath
		if imageResizeLonger > 0 || imageResizeShorter > 0 {
			tfImageDir = imageOutDirPath
			err := lsconv.ResizeDatasetImages(ds, imageDirPath, imageOutDirPath,
				lsconv.ResizeOptions{
					LongerSide:         imageResizeLonger,
					ShorterSide:        imageResizeShorter,
					DownsamplingFilter: imageDownsamplingFilter,
					UpsamplingFilter:   imageUpsamplingFilter,
					Encoding:           imageOutEncoding,
					JPEGQuality:        imageJPEGQuality,
				})
			if err != nil {
				log.Fatal("Image processing failed: ", err)
			}
		}

		switch convertTo {
		case COCO:
			err = lsconv.WriteCOCO(labelOutFilePath, ds)
		case TFRecord:
			err = lsconv.WriteTFRecord(labelOutFilePath, ds, tfImageDir, numShardFiles)
		}
		if err != nil {
			log.Fatal("Conversion failed: ", err)
		}

		log.Printf("Total images: %d, images with annotations: %d, annotations: %d",
			stats.Images, stats.ImagesWithAnnotations, stats.Annotations)

	case COCO:
		ds, err := lsconv.FromCOCO(labelFilePath)
		if err != nil {
			log.Fatal("Failed to parse the input: ", err)
		}

		tasks, err := lsconv.ToLabelStudio(ds, imageDirPath, traverseBy, probe)
		if err != nil {
			log.Fatal("Conversion failed: ", err)
		}
		if err := lsconv.WriteLabelStudio(labelOutFilePath, tasks); err != nil {
			log.Fatal("Conversion failed: ", err)
		}
	}

	log.Print("Successfully wrote labels to ", labelOutFilePath)
}
