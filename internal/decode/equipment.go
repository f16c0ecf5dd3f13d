package decode

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// AttributeBag is one equipment or outage record read schema-on-read: every
// child element (or JSON member) becomes a string attribute keyed by its
// lower-cased tag name. Upstream schemas for these feeds vary across feed
// versions, so no struct shape is imposed at decode time; the normalizer
// picks out the attributes it actually consumes.
type AttributeBag map[string]string

// Get returns the attribute for key, or "" when absent.
func (b AttributeBag) Get(key string) string {
	return b[strings.ToLower(key)]
}

// First returns the first non-empty attribute among keys. Used where upstream
// renditions of the same feed disagree on field names.
func (b AttributeBag) First(keys ...string) string {
	for _, key := range keys {
		if v := b.Get(key); v != "" {
			return v
		}
	}
	return ""
}

// EquipmentXML parses nested <equipment> elements generically: every child
// element's tag becomes an attribute on the resulting bag. Text of nested
// children is flattened into the direct child's value.
func EquipmentXML(feedName string, raw []byte) ([]AttributeBag, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	var bags []AttributeBag

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &Error{Feed: feedName, Err: err}
		}
		start, ok := token.(xml.StartElement)
		if !ok || !strings.EqualFold(start.Name.Local, "equipment") {
			continue
		}
		bag, err := readEquipmentElement(decoder)
		if err != nil {
			return nil, &Error{Feed: feedName, Err: err}
		}
		bags = append(bags, bag)
	}
	return bags, nil
}

// readEquipmentElement consumes tokens up to the matching </equipment>,
// recording each direct child element as one attribute.
func readEquipmentElement(decoder *xml.Decoder) (AttributeBag, error) {
	bag := AttributeBag{}
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			value, err := readElementText(decoder)
			if err != nil {
				return nil, err
			}
			bag[strings.ToLower(t.Name.Local)] = value
		case xml.EndElement:
			return bag, nil
		}
	}
}

// readElementText concatenates character data until the element closes,
// descending through any nested elements.
func readElementText(decoder *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		token, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// EquipmentJSON parses the JSON rendition of the equipment/outage feeds: a
// sequence of flat objects. Scalar values are stringified into the same
// attribute-bag shape the XML decoder produces, so the normalizer is
// indifferent to which rendition upstream served.
func EquipmentJSON(feedName string, raw []byte) ([]AttributeBag, error) {
	var records []map[string]any
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &Error{Feed: feedName, Err: err}
	}

	bags := make([]AttributeBag, 0, len(records))
	for _, record := range records {
		bag := AttributeBag{}
		for key, value := range record {
			bag[strings.ToLower(key)] = stringifyScalar(value)
		}
		bags = append(bags, bag)
	}
	return bags, nil
}

func stringifyScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		// JSON numbers arrive as float64; render integers without a
		// trailing ".0" so IDs survive the round trip.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
