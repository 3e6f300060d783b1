package lsconv

// Label Studio labeling config specific functionality.

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
)

// Category is a single label category within one taxonomy.
type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Hotkey    string `json:"hotkey,omitempty"`
	LabelType string `json:"label_type"`
}

// Taxonomy is an ordered enumeration of label categories together with a
// name to ID mapping. IDs are assigned 1-based in document order.
//
// Duplicate names are not deduplicated: the ID map keeps the last entry while
// the category list keeps both.
type Taxonomy struct {
	Categories []Category
	NameToID   map[string]int
}

// add appends a category with the next ID and updates the name mapping.
func (t *Taxonomy) add(name, color, hotkey, labelType string) {
	c := Category{
		ID:        len(t.Categories) + 1,
		Name:      name,
		Color:     color,
		Hotkey:    hotkey,
		LabelType: labelType,
	}
	t.Categories = append(t.Categories, c)
	t.NameToID[c.Name] = c.ID
}

// LabelConfig holds the two taxonomies declared by a labeling config.
// Rectangle and polygon labels use independent ID spaces and are never
// merged or cross-referenced.
type LabelConfig struct {
	Rect Taxonomy
	Poly Taxonomy
}

// ParseLabelConfig reads and parses the labeling config XML at path.
func ParseLabelConfig(path string) (*LabelConfig, error) {
	enc, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read the labeling config %q: %v", path, err)
	}

	config, err := parseLabelConfig(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the labeling config %q: %v", path, err)
	}
	return config, nil
}

// parseLabelConfig extracts the RectangleLabels and PolygonLabels groups from
// the config markup. The groups may be nested at any depth within the view,
// so the element tree is walked token by token.
func parseLabelConfig(enc []byte) (*LabelConfig, error) {
	config := &LabelConfig{
		Rect: Taxonomy{NameToID: make(map[string]int)},
		Poly: Taxonomy{NameToID: make(map[string]int)},
	}

	dec := xml.NewDecoder(bytes.NewReader(enc))
	var group *Taxonomy
	var labelType string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "RectangleLabels":
				group, labelType = &config.Rect, "rectangle"
			case "PolygonLabels":
				group, labelType = &config.Poly, "polygon"
			case "Label":
				if group == nil {
					continue
				}
				var name, color, hotkey string
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "value":
						name = a.Value
					case "background":
						color = a.Value
					case "hotkey":
						hotkey = a.Value
					}
				}
				group.add(name, color, hotkey, labelType)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "RectangleLabels", "PolygonLabels":
				group = nil
			}
		}
	}

	return config, nil
}
