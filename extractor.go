package bqtools

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/xerrors"
)

// extractor extracts data from source such as Cloud Storage.
type extractor interface {
	extract(context.Context, Object) (io.Reader, func(), error)
}

type defaultExtractor struct {
	storage *storage.Client
}

func newDefaultExtractor(ctx context.Context) (extractor, error) {
	s, err := storage.NewClient(ctx)
	if err != nil {
		return nil, xerrors.Errorf("failed to build storage client: %w", err)
	}

	return &defaultExtractor{storage: s}, nil
}

func (e *defaultExtractor) extract(ctx context.Context, o Object) (io.Reader, func(), error) {
	l := log.Ctx(ctx)

	r, err := e.storage.Bucket(o.Bucket).Object(o.Name).NewReader(ctx)
	if err != nil {
		l.Error().Msgf("failed to initialize object reader: %v", err)
		return nil, nil, xerrors.Errorf("failed to get reader of %s: %w", o.FullPath(), err)
	}
	l.Debug().Msgf("reading %s (%d bytes)", o.FullPath(), r.Attrs.Size)

	return r, func() { r.Close() }, nil
}
