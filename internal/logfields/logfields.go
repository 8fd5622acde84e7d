package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuildHash  = "build_hash"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyEntry      = "entry"
	KeyAsset      = "asset"
	KeyKey        = "manifest_key"
	KeyPath       = "path"
	KeyCodec      = "codec"
	KeyTemplate   = "template"
	KeySpriteSet  = "sprite_set"
	KeyCount      = "count"
	KeyAddr       = "addr"
	KeyMethod     = "method"
	KeyURL        = "url"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func BuildHash(h string) slog.Attr     { return slog.String(KeyBuildHash, h) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Entry(name string) slog.Attr      { return slog.String(KeyEntry, name) }
func Asset(p string) slog.Attr         { return slog.String(KeyAsset, p) }
func Key(k string) slog.Attr           { return slog.String(KeyKey, k) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Codec(c string) slog.Attr         { return slog.String(KeyCodec, c) }
func Template(name string) slog.Attr   { return slog.String(KeyTemplate, name) }
func SpriteSet(name string) slog.Attr  { return slog.String(KeySpriteSet, name) }
func Count(n int) slog.Attr            { return slog.Int(KeyCount, n) }
func Addr(a string) slog.Attr          { return slog.String(KeyAddr, a) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
