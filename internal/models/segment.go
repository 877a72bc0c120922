package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SegmentType is the closed set of script segment kinds.
type SegmentType string

// Segment types in broadcast order.
const (
	SegmentIntro         SegmentType = "intro"
	SegmentMarketWrap    SegmentType = "market_wrap"
	SegmentStockDeepdive SegmentType = "stock_deepdive"
	SegmentOutro         SegmentType = "outro"
)

// SegmentTypes lists every valid segment type.
var SegmentTypes = []SegmentType{SegmentIntro, SegmentMarketWrap, SegmentStockDeepdive, SegmentOutro}

// ErrUnknownSegmentType is returned for segment types outside the closed set.
var ErrUnknownSegmentType = errors.New("unknown segment type")

// ErrEmptySegment is returned for segments with no text.
var ErrEmptySegment = errors.New("empty segment text")

// ParseSegmentType validates a segment type string.
func ParseSegmentType(s string) (SegmentType, error) {
	t := SegmentType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSegmentType, s)
	}
	return t, nil
}

// Valid reports whether t is one of SegmentTypes.
func (t SegmentType) Valid() bool {
	switch t {
	case SegmentIntro, SegmentMarketWrap, SegmentStockDeepdive, SegmentOutro:
		return true
	}
	return false
}

// UnmarshalJSON rejects unknown segment types.
func (t *SegmentType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("segment type: %w", err)
	}
	parsed, err := ParseSegmentType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ScriptSegment is one spoken unit of an episode.
// AudioPath stays empty until synthesis writes the segment's audio.
type ScriptSegment struct {
	Type      SegmentType `json:"segment_type"`
	Text      string      `json:"text"`
	AudioPath string      `json:"audio_path,omitempty"`
}

// Validate checks type membership and non-empty text.
func (s ScriptSegment) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSegmentType, s.Type)
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("%w: %s", ErrEmptySegment, s.Type)
	}
	return nil
}

// Preview returns at most n runes of the segment text.
func (s ScriptSegment) Preview(n int) string {
	r := []rune(s.Text)
	if len(r) <= n {
		return s.Text
	}
	return string(r[:n]) + "..."
}
