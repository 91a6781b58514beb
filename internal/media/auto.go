package media

import (
	"context"
	"errors"
	"fmt"
)

// AutoOpener tries a primary backend first and falls back to a second one for
// containers or codecs the primary cannot handle.
type AutoOpener struct {
	primary  Opener
	fallback Opener
}

// NewAutoOpener returns an opener preferring primary.
func NewAutoOpener(primary, fallback Opener) *AutoOpener {
	return &AutoOpener{primary: primary, fallback: fallback}
}

// Name implements Opener.
func (o *AutoOpener) Name() string {
	return fmt.Sprintf("%s+%s", o.primary.Name(), o.fallback.Name())
}

// Open implements Opener.
func (o *AutoOpener) Open(ctx context.Context, path string) (Asset, error) {
	asset, err := o.primary.Open(ctx, path)
	if err == nil {
		return &autoAsset{opener: o, path: path, asset: asset}, nil
	}
	if !errors.Is(err, ErrUnsupportedFormat) {
		return nil, err
	}

	fb, fbErr := o.fallback.Open(ctx, path)
	if fbErr != nil {
		return nil, errors.Join(err, fbErr)
	}
	return fb, nil
}

type autoAsset struct {
	opener *AutoOpener
	path   string
	asset  Asset
	extra  Asset
}

func (a *autoAsset) AudioTrack(ctx context.Context) (Track, error) {
	track, err := a.asset.AudioTrack(ctx)
	if err == nil || !needsFallback(err) {
		return track, err
	}

	if a.extra == nil {
		fb, fbErr := a.opener.fallback.Open(ctx, a.path)
		if fbErr != nil {
			return nil, errors.Join(err, fbErr)
		}
		a.extra = fb
	}
	return a.extra.AudioTrack(ctx)
}

func (a *autoAsset) Close() error {
	err := a.asset.Close()
	if a.extra != nil {
		err = errors.Join(err, a.extra.Close())
	}
	return err
}

func needsFallback(err error) bool {
	return errors.Is(err, ErrUnsupportedCodec) || errors.Is(err, ErrUnsupportedFormat)
}
