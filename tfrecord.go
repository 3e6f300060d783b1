package lsconv

// TFRecord keypoint detection export functionality.

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
)

// TFFeatureMap maps feature names to their values. Values must be
// convertible to tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// tfExampleFeatures builds the feature map for one dataset image and its
// annotations. Box and keypoint coordinates are normalised to [0, 1].
func tfExampleFeatures(img *COCOImage, annotations []*COCOAnnotation,
	categoryNames map[int]string, imgData []byte, format string) TFFeatureMap {

	f := make(TFFeatureMap, 16)
	f["image/height"] = int(img.Height)
	f["image/width"] = int(img.Width)
	f["image/filename"] = img.FileName
	f["image/source_id"] = fmt.Sprint(img.ID)
	f["image/encoded"] = imgData
	f["image/format"] = format

	numLabels := len(annotations)
	xmins := make([]float32, numLabels)
	ymins := make([]float32, numLabels)
	xmaxs := make([]float32, numLabels)
	ymaxs := make([]float32, numLabels)
	classes := make([]string, numLabels)
	classIDs := make([]int64, numLabels)
	var kpXs, kpYs []float32
	for i, a := range annotations {
		xmins[i] = float32(a.BBox[0] / img.Width)
		ymins[i] = float32(a.BBox[1] / img.Height)
		xmaxs[i] = float32((a.BBox[0] + a.BBox[2]) / img.Width)
		ymaxs[i] = float32((a.BBox[1] + a.BBox[3]) / img.Height)
		classes[i] = categoryNames[a.CategoryID]
		classIDs[i] = int64(a.CategoryID)

		for j := 0; j+2 < len(a.Keypoints); j += 3 {
			kpXs = append(kpXs, float32(a.Keypoints[j]/img.Width))
			kpYs = append(kpYs, float32(a.Keypoints[j+1]/img.Height))
		}
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs
	f["image/object/keypoint/x"] = kpXs
	f["image/object/keypoint/y"] = kpYs

	return f
}

// WriteTFRecord serialises the dataset to one or more TFRecord files stored
// under recordFilePath (with suffixes added when numShards > 1). The image
// bytes are read from imageDir, matched by base name.
//
// Images whose file cannot be read or decoded are skipped with a diagnostic.
func WriteTFRecord(recordFilePath string, ds *COCODataset, imageDir string,
	numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	categoryNames := make(map[int]string, len(ds.Categories))
	for _, c := range ds.Categories {
		categoryNames[c.ID] = c.Name
	}

	// Group annotations by image.
	byImage := make(map[int][]*COCOAnnotation, len(ds.Images))
	for i := range ds.Annotations {
		a := &ds.Annotations[i]
		byImage[a.ImageID] = append(byImage[a.ImageID], a)
	}

	fmtShardSuffix := func(idx int) string {
		return fmt.Sprintf("-%05d-of-%05d", idx, numShards)
	}

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(ds.Images)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one image at a time.
	for i := range ds.Images {
		img := &ds.Images[i]

		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++

			if shardFile != nil {
				_ = shardFile.Close()
				shardFile = nil
			}

			shardPath := recordFilePath
			if numShards > 1 {
				shardPath += fmtShardSuffix(shardIdx)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("failed to create shard at %q: %v", shardPath, err)
			}
			shardFile = f
		}

		// Read the image and convert it to an example.
		path := filepath.Join(imageDir, filepath.Base(img.FileName))
		_, format, err := decodeImageConfig(path)
		if err != nil {
			log.Printf("Failed to decode the image metadata of %q: %v, skipping", path, err)
			continue
		}
		imgData, err := readFile(path)
		if err != nil {
			log.Printf("Failed to read the image %q: %v, skipping", path, err)
			continue
		}

		features := tfExampleFeatures(img, byImage[img.ID], categoryNames, imgData, format)
		enc, err := proto.Marshal(example.New(features))
		if err != nil {
			log.Print("Failed to marshal example: ", err)
			continue
		}

		if err := tfrecord.Write(shardFile, enc); err != nil {
			log.Print("Failed to write example: ", err)
			break
		}
	}

	if shardFile != nil {
		shardFile.Close()
	}

	return nil
}
