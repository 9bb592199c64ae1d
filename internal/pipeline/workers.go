package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"reelkeeper/internal/logging"
	"reelkeeper/internal/media"
	"reelkeeper/internal/parser"
)

// TagParseError marks files whose name could not be parsed into usable metadata.
const TagParseError = "parse_error"

type parserPool struct {
	chain    *parser.Chain
	logger   *slog.Logger
	counters parserCounters
}

// run drains in until it is closed. Every parse outcome, including faults, is
// forwarded so no admitted file disappears.
func (p *parserPool) run(ctx context.Context, in *Queue[FileDescriptor], out *Queue[*media.ScannedFile]) error {
	for {
		desc, err := in.Get(ctx)
		if errors.Is(err, ErrQueueClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := out.Put(ctx, p.parse(desc)); err != nil {
			return err
		}
	}
}

func (p *parserPool) parse(desc FileDescriptor) (file *media.ScannedFile) {
	file = &media.ScannedFile{
		Path:    desc.Path,
		Size:    desc.Size,
		ModTime: desc.ModTime,
		Status:  media.StatusPending,
	}
	defer func() {
		if r := recover(); r != nil {
			p.counters.errors.Add(1)
			file.Status = media.StatusError
			file.Err = fmt.Sprintf("parser panic: %v", r)
			file.AddTag(TagParseError)
		}
	}()

	outcome := p.chain.Parse(desc.Path)
	file.Metadata = outcome.Metadata
	p.counters.parsed.Add(1)
	p.counters.recordParser(outcome.Metadata.Parser)
	if outcome.FallbackUsed {
		p.counters.fallbackUsed.Add(1)
	}
	if outcome.Err != nil {
		p.counters.errors.Add(1)
		file.Status = media.StatusError
		file.Err = outcome.Err.Error()
		file.AddTag(TagParseError)
		p.logger.Debug("filename not parsed",
			logging.String("path", desc.Path),
			logging.Float64("confidence", outcome.Metadata.Confidence),
			logging.Error(outcome.Err),
		)
		return file
	}
	file.Status = media.StatusParsed
	return file
}
