package translate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Detection statuses reported by the service.
const (
	StatusDetected  = "detected"
	StatusUncertain = "uncertain"
)

// Detection is the decoded answer to a language identification request:
// either DetectionOk or DetectionParseError.
type Detection interface {
	detection()
}

// DetectionOk is a well-formed answer.
type DetectionOk struct {
	Code       string
	Name       string
	Confidence float64
	Status     string
}

// DetectionParseError is an answer that did not match the expected shape.
type DetectionParseError struct {
	Raw string
	Err error
}

func (DetectionOk) detection()         {}
func (DetectionParseError) detection() {}

// Matches reports whether the detected language has the same base language
// as tag.
func (d DetectionOk) Matches(tag string) bool {
	want, err := language.Parse(tag)
	if err != nil {
		return false
	}
	got, err := language.Parse(d.Code)
	if err != nil {
		return false
	}
	wb, _ := want.Base()
	gb, _ := got.Base()
	return wb == gb
}

func (e DetectionParseError) Error() string {
	return fmt.Sprintf("malformed detection %q: %v", e.Raw, e.Err)
}

// ParseDetection decodes and validates a detection reply. It never fails:
// anything unexpected becomes a DetectionParseError.
func ParseDetection(raw string) Detection {
	var wire struct {
		Code       *string  `json:"code"`
		Name       *string  `json:"name"`
		Confidence *float64 `json:"confidence"`
		Status     *string  `json:"status"`
	}

	body := strings.TrimSpace(StripFence(raw))
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return DetectionParseError{Raw: raw, Err: err}
	}
	if dec.More() {
		return DetectionParseError{Raw: raw, Err: errors.New("trailing data after object")}
	}

	switch {
	case wire.Code == nil || *wire.Code == "":
		return DetectionParseError{Raw: raw, Err: errors.New("missing code")}
	case wire.Name == nil:
		return DetectionParseError{Raw: raw, Err: errors.New("missing name")}
	case wire.Confidence == nil:
		return DetectionParseError{Raw: raw, Err: errors.New("missing confidence")}
	case *wire.Confidence < 0 || *wire.Confidence > 1:
		return DetectionParseError{Raw: raw, Err: fmt.Errorf("confidence %v out of range", *wire.Confidence)}
	case wire.Status == nil:
		return DetectionParseError{Raw: raw, Err: errors.New("missing status")}
	case *wire.Status != StatusDetected && *wire.Status != StatusUncertain:
		return DetectionParseError{Raw: raw, Err: fmt.Errorf("unknown status %q", *wire.Status)}
	}
	if _, err := language.Parse(*wire.Code); err != nil {
		return DetectionParseError{Raw: raw, Err: fmt.Errorf("invalid code: %w", err)}
	}

	return DetectionOk{
		Code:       *wire.Code,
		Name:       *wire.Name,
		Confidence: *wire.Confidence,
		Status:     *wire.Status,
	}
}
