package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"reelkeeper/internal/media"
	"reelkeeper/internal/services"
)

// Parser extracts metadata from a file path.
type Parser interface {
	Name() string
	Parse(path string) (media.Metadata, error)
}

// Chain runs parsers in order. The first valid result short-circuits; when no
// parser is valid the highest-confidence invalid result is returned with an
// error.
type Chain struct {
	parsers []Parser
}

// NewChain builds a chain from parsers in priority order.
func NewChain(parsers ...Parser) *Chain {
	filtered := make([]Parser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil {
			filtered = append(filtered, p)
		}
	}
	return &Chain{parsers: filtered}
}

// Default returns the structured parser followed by the regex fallback.
func Default() *Chain {
	return NewChain(NewStructured(), NewRegex())
}

// Outcome describes how a chain arrived at its result.
type Outcome struct {
	Metadata     media.Metadata
	FallbackUsed bool
	Err          error
}

// Parse runs the chain against path.
func (c *Chain) Parse(path string) Outcome {
	var (
		best     media.Metadata
		haveBest bool
		errs     []string
	)
	for i, p := range c.parsers {
		meta, err := safeParse(p, path)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		if meta.Parser == "" {
			meta.Parser = p.Name()
		}
		if meta.Valid() {
			if !haveBest || !best.Valid() || meta.Confidence > best.Confidence {
				best, haveBest = meta, true
			}
			if i == 0 {
				return Outcome{Metadata: best}
			}
			continue
		}
		if !haveBest || (!best.Valid() && meta.Confidence > best.Confidence) {
			best, haveBest = meta, true
		}
	}
	outcome := Outcome{Metadata: best, FallbackUsed: len(c.parsers) > 1}
	if best.Valid() {
		return outcome
	}
	detail := "no parser produced a usable title"
	if len(errs) > 0 {
		detail = strings.Join(errs, "; ")
	}
	outcome.Err = services.Wrap(services.ErrDataProcessing, "parser", "parse", filepath.Base(path)+": "+detail, nil)
	return outcome
}

func safeParse(p Parser, path string) (meta media.Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = media.Metadata{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return p.Parse(path)
}

func stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
