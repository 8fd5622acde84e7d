// Package imageopt re-encodes images during production builds. Failures are
// never fatal: the original bytes are returned and the error is logged.
package imageopt

import (
	"bytes"
	"context"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"log/slog"

	"git.home.luguber.info/inful/assetpipe/internal/config"
	"git.home.luguber.info/inful/assetpipe/internal/foundation/errors"
	"git.home.luguber.info/inful/assetpipe/internal/logfields"
	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

// Options is the static encoder configuration.
type Options struct {
	JPEGQuality    int
	PNGCompression png.CompressionLevel
}

// OptionsFrom converts the project file section into encoder options.
func OptionsFrom(o config.ImageOptions) Options {
	level := png.BestCompression
	switch o.PNGCompression {
	case "default":
		level = png.DefaultCompression
	case "speed":
		level = png.BestSpeed
	case "none":
		level = png.NoCompression
	}
	quality := o.JPEGQuality
	if quality == 0 {
		quality = jpeg.DefaultQuality
	}
	return Options{JPEGQuality: quality, PNGCompression: level}
}

// Optimizer dispatches image content to an encoder by extension.
type Optimizer struct {
	opts     Options
	enabled  bool
	logger   *slog.Logger
	recorder metrics.Recorder
}

// New returns an optimizer. When enabled is false every call passes content through.
func New(opts Options, enabled bool, logger *slog.Logger, recorder metrics.Recorder) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Optimizer{opts: opts, enabled: enabled, logger: logger, recorder: recorder}
}

// Transform returns optimized content for the file at sourcePath, or content
// unchanged when optimization is disabled, the format is unknown or has no
// encoder, encoding fails, or the result is not smaller.
func (o *Optimizer) Transform(ctx context.Context, content []byte, sourcePath string) []byte {
	if !o.enabled {
		return content
	}
	codec := CodecFor(sourcePath)
	switch codec.Capability() {
	case CapabilityNone:
		return content
	case CapabilityPassThrough:
		o.logger.Debug("No encoder for image format; copying unchanged",
			logfields.Asset(sourcePath), logfields.Codec(codec.String()))
		o.recorder.IncImageResult(codec.String(), metrics.ImagePassThrough)
		return content
	}
	if ctx.Err() != nil {
		return content
	}

	encoded, err := o.encode(codec, content)
	if err != nil {
		cerr := errors.ImageError("image optimization failed").
			WithCause(err).
			WithContext("path", sourcePath).
			WithContext("codec", codec.String()).
			Build()
		o.logger.Warn(cerr.Message(), logfields.Asset(sourcePath), logfields.Codec(codec.String()), logfields.Error(err))
		o.recorder.IncImageResult(codec.String(), metrics.ImageFailed)
		return content
	}
	if len(encoded) >= len(content) {
		o.recorder.IncImageResult(codec.String(), metrics.ImageKept)
		return content
	}
	o.logger.Debug("Image optimized",
		logfields.Asset(sourcePath),
		logfields.Codec(codec.String()),
		slog.Int("before", len(content)),
		slog.Int("after", len(encoded)))
	o.recorder.IncImageResult(codec.String(), metrics.ImageOptimized)
	return encoded
}

func (o *Optimizer) encode(codec Codec, content []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch codec {
	case CodecJPEG:
		img, err := jpeg.Decode(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.opts.JPEGQuality}); err != nil {
			return nil, err
		}
	case CodecPNG:
		img, err := png.Decode(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		enc := png.Encoder{CompressionLevel: o.opts.PNGCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case CodecGIF:
		anim, err := gif.DecodeAll(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		if err := gif.EncodeAll(&buf, anim); err != nil {
			return nil, err
		}
	default:
		return nil, image.ErrFormat
	}
	return buf.Bytes(), nil
}
