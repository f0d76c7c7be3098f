package ingest

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"

	apperrors "github.com/nikita-patel378/shoe-knowledgegraph-construction/backend/pkg/errors"
)

// Record is one document from the extraction artifact, after defaulting
type Record struct {
	Title           string
	Authors         []string
	PublicationYear *int
	SourceFile      string
	Abstract        []string
	// Keypoints keeps its source positions so later keypoint ids do not shift.
	// An empty string is a keypoint with empty text; positions that held a
	// non-string value are listed in InvalidKeypoints and are not stored.
	Keypoints        []string
	InvalidKeypoints []int
}

// KeypointValid reports whether the keypoint at 0-based position j can be stored
func (r Record) KeypointValid(j int) bool {
	for _, bad := range r.InvalidKeypoints {
		if bad == j {
			return false
		}
	}
	return true
}

// ParsedRecord is a Record with its position in the artifact and what went wrong
type ParsedRecord struct {
	Ordinal  int
	Record   Record
	Warnings []string
	Err      error // set when the element was not an object; Record is zero
}

// ParseRecords decodes the extraction artifact element by element. Only an
// artifact that is not a JSON array fails as a whole.
func ParseRecords(data []byte) ([]ParsedRecord, error) {
	if !gjson.ValidBytes(data) {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeIngest, "extraction artifact is not valid JSON", nil)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, apperrors.NewBaseError(apperrors.ErrorTypeIngest, "extraction artifact must be a JSON array", nil)
	}

	var parsed []ParsedRecord
	ordinal := 0
	root.ForEach(func(_, value gjson.Result) bool {
		ordinal++
		parsed = append(parsed, parseRecord(ordinal, value))
		return true
	})
	return parsed, nil
}

func parseRecord(ordinal int, value gjson.Result) ParsedRecord {
	p := ParsedRecord{Ordinal: ordinal}
	if !value.IsObject() {
		p.Err = apperrors.NewIngestMalformedRecord(ordinal, "expected an object, got "+value.Type.String())
		return p
	}

	warn := func(format string, args ...interface{}) {
		p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
	}

	p.Record.Title = stringField(value, "title", true, warn)
	p.Record.SourceFile = stringField(value, "source_file", true, warn)
	authors, _ := stringList(value, "authors", warn)
	p.Record.Authors = compact(authors)
	abstract, _ := stringList(value, "abstract", warn)
	p.Record.Abstract = compact(abstract)
	p.Record.Keypoints, p.Record.InvalidKeypoints = stringList(value, "keypoints", warn)
	p.Record.PublicationYear = yearField(value, warn)

	return p
}

func stringField(obj gjson.Result, key string, required bool, warn func(string, ...interface{})) string {
	v := obj.Get(key)
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		if required {
			warn("%s missing, defaulted to empty string", key)
		}
		return ""
	case v.Type == gjson.String:
		return v.Str
	default:
		warn("%s has type %s, defaulted to empty string", key, v.Type)
		return ""
	}
}

// stringList returns one entry per array element. Non-string elements become ""
// and their positions are returned in invalid. A bare string is accepted as a
// one-element list.
func stringList(obj gjson.Result, key string, warn func(string, ...interface{})) (out []string, invalid []int) {
	v := obj.Get(key)
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return []string{}, nil
	case v.Type == gjson.String:
		return []string{v.Str}, nil
	case !v.IsArray():
		warn("%s has type %s, defaulted to empty list", key, v.Type)
		return []string{}, nil
	}

	elems := v.Array()
	out = make([]string, len(elems))
	for i, e := range elems {
		if e.Type != gjson.String {
			warn("%s[%d] has type %s, skipped", key, i, e.Type)
			invalid = append(invalid, i)
			continue
		}
		out[i] = e.Str
	}
	return out, invalid
}

func yearField(obj gjson.Result, warn func(string, ...interface{})) *int {
	v := obj.Get("publication_year")
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		warn("publication_year %q is not an integer, defaulted to null", v.Raw)
		return nil
	}
	year := int(v.Num)
	return &year
}

func compact(list []string) []string {
	out := list[:0]
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
