package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries extractors in order and returns the first non-blank text.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a Chain over extractors.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// ExtractText implements Extractor.
func (c *Chain) ExtractText(ctx context.Context, path string) (string, error) {
	if len(c.extractors) == 0 {
		return "", eris.New("ocr: empty extractor chain")
	}

	var errs []error
	for i, ext := range c.extractors {
		text, err := ext.ExtractText(ctx, path)
		if err == nil && !blank(text) {
			return text, nil
		}
		if err == nil {
			err = eris.New("ocr: no text found")
		}
		errs = append(errs, fmt.Errorf("%T: %w", ext, err))
		if ctx.Err() != nil {
			break
		}
		if i < len(c.extractors)-1 {
			zap.L().Warn("ocr: extractor failed, trying next",
				zap.String("path", path),
				zap.String("extractor", fmt.Sprintf("%T", ext)),
				zap.Error(err),
			)
		}
	}
	return "", unavailable(path, errors.Join(errs...))
}
