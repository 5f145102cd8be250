package splitter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"unicode/utf8"
)

// Strategy selects how the source text is segmented
type Strategy string

const (
	StrategyCharacterCount Strategy = "character_count"
	StrategyChapterKeyword Strategy = "chapter_keyword"
	StrategyRatio          Strategy = "ratio"
	StrategyFixedCount     Strategy = "fixed_count"
)

// DefaultChapterPattern matches English "chapter/section/part N" headings,
// including roman numerals, and Chinese 第N章 style headings.
const DefaultChapterPattern = `(?im)^(?:chapter|section|part)\b[\s:.-]*(?:\d+|[ivxlcdm]+)|(?m)^第[\d一二三四五六七八九十百千零〇两]+[章节回篇部集]`

var (
	ErrUnknownStrategy = errors.New("unknown split strategy")
	ErrInvalidParams   = errors.New("invalid splitter configuration")
	ErrEmptyText       = errors.New("text must not be empty")
)

// Params carries the strategy specific parameters. Only the fields of the
// selected strategy are consulted.
type Params struct {
	// character_count
	MaxCharacters int `json:"max_characters,omitempty"`

	// chapter_keyword; an empty pattern selects DefaultChapterPattern
	Pattern               string `json:"pattern,omitempty"`
	FallbackMaxCharacters int    `json:"fallback_max_characters,omitempty"`

	// ratio
	Ratios []float64 `json:"ratios,omitempty"`

	// fixed_count
	Segments int `json:"segments,omitempty"`
}

// Segment is one segment of the source text. Character offsets count runes,
// byte offsets count UTF-8 bytes; starts are inclusive, ends exclusive.
// Segments tile the source with no gaps or overlaps.
type Segment struct {
	Index           int    `json:"index"`
	Text            string `json:"-"`
	StartOffset     int    `json:"start_offset"`
	EndOffset       int    `json:"end_offset"`
	ByteStartOffset int    `json:"byte_start_offset"`
	ByteEndOffset   int    `json:"byte_end_offset"`
	CharacterCount  int    `json:"character_count"`
	ByteCount       int    `json:"byte_count"`
}

// Split segments text using the given strategy. The returned segments carry
// their text and tile the source exactly; empty slices produced by a
// strategy are dropped, so every returned segment is non-empty.
func Split(text string, strategy Strategy, params Params) ([]Segment, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	runes := []rune(text)

	var (
		cuts []int
		err  error
	)
	switch strategy {
	case StrategyCharacterCount:
		cuts, err = characterCuts(len(runes), params.MaxCharacters)
	case StrategyChapterKeyword:
		cuts, err = chapterCuts(text, len(runes), params)
	case StrategyRatio:
		cuts, err = ratioCuts(len(runes), params.Ratios)
	case StrategyFixedCount:
		cuts, err = fixedCuts(len(runes), params.Segments)
	default:
		return nil, fmt.Errorf("%q: %w", strategy, ErrUnknownStrategy)
	}
	if err != nil {
		return nil, err
	}

	return buildSegments(runes, cuts), nil
}

// characterCuts packs runes greedily into slices of at most maxCharacters.
func characterCuts(total, maxCharacters int) ([]int, error) {
	if maxCharacters < 1 {
		return nil, fmt.Errorf("max_characters must be at least 1: %w", ErrInvalidParams)
	}
	cuts := []int{0}
	for cut := maxCharacters; cut < total; cut += maxCharacters {
		cuts = append(cuts, cut)
	}
	return cuts, nil
}

// chapterCuts starts a segment at every heading match. Text before the
// first heading forms the opening segment. Without any match the text
// either falls back to character packing or stays whole.
func chapterCuts(text string, total int, params Params) ([]int, error) {
	if params.FallbackMaxCharacters < 0 {
		return nil, fmt.Errorf("fallback_max_characters must not be negative: %w", ErrInvalidParams)
	}
	pattern := params.Pattern
	if pattern == "" {
		pattern = DefaultChapterPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %v: %w", pattern, err, ErrInvalidParams)
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if params.FallbackMaxCharacters > 0 {
			return characterCuts(total, params.FallbackMaxCharacters)
		}
		return []int{0}, nil
	}

	cuts := []int{0}
	previous := 0
	for _, match := range matches {
		cut := utf8.RuneCountInString(text[:match[0]])
		if cut > previous {
			cuts = append(cuts, cut)
			previous = cut
		}
	}
	return cuts, nil
}

// ratioCuts places boundaries at the cumulative ratio shares of the rune
// count, rounding each boundary; whatever rounding leaves over lands in the
// final segment.
func ratioCuts(total int, ratios []float64) ([]int, error) {
	if len(ratios) == 0 {
		return nil, fmt.Errorf("ratios must not be empty: %w", ErrInvalidParams)
	}
	var sum float64
	for _, ratio := range ratios {
		if ratio <= 0 {
			return nil, fmt.Errorf("ratios must be positive: %w", ErrInvalidParams)
		}
		sum += ratio
	}

	cuts := []int{0}
	cumulative := 0.0
	previous := 0
	for _, ratio := range ratios[:len(ratios)-1] {
		cumulative += ratio
		cut := int(math.Round(cumulative / sum * float64(total)))
		if cut < previous {
			cut = previous
		}
		if cut > total {
			cut = total
		}
		cuts = append(cuts, cut)
		previous = cut
	}
	return cuts, nil
}

// fixedCuts divides the runes into count slices differing in size by at
// most one rune, longer slices first.
func fixedCuts(total, count int) ([]int, error) {
	if count < 1 {
		return nil, fmt.Errorf("segments must be at least 1: %w", ErrInvalidParams)
	}
	base := total / count
	remainder := total % count
	cuts := make([]int, 0, count)
	offset := 0
	for i := 0; i < count; i++ {
		cuts = append(cuts, offset)
		size := base
		if i < remainder {
			size++
		}
		offset += size
	}
	return cuts, nil
}

// buildSegments turns segment start offsets into tiled segments, dropping
// empty slices and numbering the survivors from 1.
func buildSegments(runes []rune, cuts []int) []Segment {
	segments := make([]Segment, 0, len(cuts))
	byteOffset := 0
	for i, start := range cuts {
		end := len(runes)
		if i+1 < len(cuts) {
			end = cuts[i+1]
		}
		if start >= end {
			continue
		}
		text := string(runes[start:end])
		segment := Segment{
			Index:           len(segments) + 1,
			Text:            text,
			StartOffset:     start,
			EndOffset:       end,
			ByteStartOffset: byteOffset,
			ByteEndOffset:   byteOffset + len(text),
			CharacterCount:  end - start,
			ByteCount:       len(text),
		}
		byteOffset = segment.ByteEndOffset
		segments = append(segments, segment)
	}
	return segments
}
