package middleware

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/architeacher/posts/pkg/logger"
	"github.com/architeacher/posts/pkg/metrics"
	"github.com/architeacher/posts/services/svc-posts/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

const (
	encodingGzip     = "gzip"
	encodingBrotli   = "br"
	encodingDeflate  = "deflate"
	encodingIdentity = "identity"
	encodingAny      = "*"

	compressionAlgorithmKey = "algorithm"

	httpCompressionTotal           = "http_compression_total"
	httpCompressionOriginalBytes   = "http_compression_original_bytes"
	httpCompressionCompressedBytes = "http_compression_compressed_bytes"
)

// DefaultCompressibleTypes are compressed when no content types are configured.
var DefaultCompressibleTypes = []string{
	"application/json",
	"application/problem+json",
	"application/merge-patch+json",
	"text/plain",
}

// serverPreference breaks ties between encodings of equal quality.
var serverPreference = []string{encodingGzip, encodingBrotli, encodingDeflate}

type acceptedEncoding struct {
	name    string
	quality float64
}

type encoderPools struct {
	gzip    sync.Pool
	brotli  sync.Pool
	deflate sync.Pool
}

func newEncoderPools(level int) *encoderPools {
	return &encoderPools{
		gzip: sync.Pool{New: func() any {
			w, _ := gzip.NewWriterLevel(io.Discard, level)

			return w
		}},
		brotli: sync.Pool{New: func() any {
			return brotli.NewWriterLevel(io.Discard, level)
		}},
		deflate: sync.Pool{New: func() any {
			w, _ := flate.NewWriter(io.Discard, level)

			return w
		}},
	}
}

// encoder returns a writer for encoding that sends into dst, plus the func
// that hands it back to its pool once closed.
func (p *encoderPools) encoder(encoding string, dst io.Writer) (io.WriteCloser, func()) {
	switch encoding {
	case encodingGzip:
		w := p.gzip.Get().(*gzip.Writer)
		w.Reset(dst)

		return w, func() { p.gzip.Put(w) }
	case encodingBrotli:
		w := p.brotli.Get().(*brotli.Writer)
		w.Reset(dst)

		return w, func() { p.brotli.Put(w) }
	default:
		w := p.deflate.Get().(*flate.Writer)
		w.Reset(dst)

		return w, func() { p.deflate.Put(w) }
	}
}

// Compression encodes response bodies with gzip, brotli or deflate according
// to the request's Accept-Encoding. Bodies shorter than cfg.MinSize and
// content types outside the configured list are written unchanged.
func Compression(cfg config.Compression, log logger.Logger, metricsClient metrics.Client) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	contentTypes := cfg.ContentTypes
	if len(contentTypes) == 0 {
		contentTypes = DefaultCompressibleTypes
	}

	pools := newEncoderPools(cfg.Level)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hasPathPrefix(r.URL.Path, cfg.SkipPaths) || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)

				return
			}

			header := r.Header.Get("Accept-Encoding")
			if header == "" {
				next.ServeHTTP(w, r)

				return
			}

			encodings := parseAcceptEncoding(header)
			encoding := selectEncoding(encodings)

			if encoding == "" && rejectsIdentity(encodings) {
				log.WithContext(r.Context()).Debug().
					Str("accept_encoding", header).
					Msg("no acceptable content encoding")

				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusNotAcceptable)
				_, _ = w.Write([]byte(`{"title":"Not Acceptable","status":406,"detail":"no acceptable content encoding"}`))

				return
			}

			w.Header().Add("Vary", "Accept-Encoding")

			if encoding == "" {
				next.ServeHTTP(w, r)

				return
			}

			cw := &compressWriter{
				ResponseWriter: w,
				pools:          pools,
				encoding:       encoding,
				minSize:        cfg.MinSize,
				contentTypes:   contentTypes,
			}

			defer func() {
				if err := cw.Close(); err != nil {
					log.WithContext(r.Context()).Warn().Err(err).Msg("failed to finish compressed response")
				}

				if cw.encoder != nil && metricsClient != nil {
					attr := attribute.String(compressionAlgorithmKey, encoding)

					metricsClient.Inc(r.Context(), httpCompressionTotal, 1, attr)
					metricsClient.Inc(r.Context(), httpCompressionOriginalBytes, cw.originalBytes, attr)
					metricsClient.Inc(r.Context(), httpCompressionCompressedBytes, cw.counter.n, attr)
				}
			}()

			next.ServeHTTP(cw, r)
		})
	}
}

func parseAcceptEncoding(header string) []acceptedEncoding {
	var encodings []acceptedEncoding

	for part := range strings.SplitSeq(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")

		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		enc := acceptedEncoding{name: name, quality: 1}

		for param := range strings.SplitSeq(params, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok || strings.TrimSpace(key) != "q" {
				continue
			}

			if q, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
				enc.quality = q
			}
		}

		encodings = append(encodings, enc)
	}

	return encodings
}

// selectEncoding picks the supported encoding with the highest quality. An
// empty result means the body goes out unencoded.
func selectEncoding(encodings []acceptedEncoding) string {
	var (
		best        string
		bestQuality float64
		bestRank    int
	)

	for rank, name := range serverPreference {
		quality, ok := qualityOf(encodings, name)
		if !ok || quality <= 0 {
			continue
		}

		if best == "" || quality > bestQuality || quality == bestQuality && rank < bestRank {
			best, bestQuality, bestRank = name, quality, rank
		}
	}

	return best
}

// qualityOf resolves the quality of name, falling back to a wildcard entry.
func qualityOf(encodings []acceptedEncoding, name string) (float64, bool) {
	wildcard, hasWildcard := 0.0, false

	for _, enc := range encodings {
		switch enc.name {
		case name:
			return enc.quality, true
		case encodingAny:
			wildcard, hasWildcard = enc.quality, true
		}
	}

	return wildcard, hasWildcard
}

func rejectsIdentity(encodings []acceptedEncoding) bool {
	quality, ok := qualityOf(encodings, encodingIdentity)

	return ok && quality == 0
}

func hasPathPrefix(path string, prefixes []string) bool {
	return slices.ContainsFunc(prefixes, func(prefix string) bool {
		return prefix != "" && strings.HasPrefix(path, prefix)
	})
}

type byteCounter struct {
	w io.Writer
	n int64
}

func (c *byteCounter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)

	return n, err
}

// compressWriter holds the body back until it has seen cfg.MinSize bytes, then
// commits to either the encoder or the plain writer.
type compressWriter struct {
	http.ResponseWriter
	pools        *encoderPools
	encoding     string
	minSize      int
	contentTypes []string

	status        int
	buf           []byte
	committed     bool
	encoder       io.WriteCloser
	release       func()
	counter       byteCounter
	originalBytes int64
}

func (w *compressWriter) WriteHeader(code int) {
	if w.committed || w.status != 0 {
		return
	}

	w.status = code

	if code < http.StatusOK || code == http.StatusNoContent || code == http.StatusNotModified || !w.compressible() {
		_ = w.commit(false)
	}
}

func (w *compressWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}

	w.originalBytes += int64(len(b))

	if w.committed {
		if w.encoder != nil {
			return w.encoder.Write(b)
		}

		return w.ResponseWriter.Write(b)
	}

	w.buf = append(w.buf, b...)

	if len(w.buf) >= w.minSize {
		if err := w.commit(true); err != nil {
			return 0, err
		}
	}

	return len(b), nil
}

func (w *compressWriter) Flush() {
	if !w.committed && w.status != 0 {
		_ = w.commit(len(w.buf) > 0)
	}

	if f, ok := w.encoder.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *compressWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Close commits a short body unencoded and finishes the encoder stream.
func (w *compressWriter) Close() error {
	if !w.committed && w.status != 0 {
		if err := w.commit(false); err != nil {
			return err
		}
	}

	if w.encoder == nil {
		return nil
	}

	err := w.encoder.Close()
	w.release()

	return err
}

func (w *compressWriter) commit(encode bool) error {
	w.committed = true

	if encode {
		w.Header().Set("Content-Encoding", w.encoding)
		w.Header().Del("Content-Length")

		w.counter.w = w.ResponseWriter
		w.encoder, w.release = w.pools.encoder(w.encoding, &w.counter)
	}

	w.ResponseWriter.WriteHeader(w.status)

	if len(w.buf) == 0 {
		return nil
	}

	buf := w.buf
	w.buf = nil

	var err error

	if w.encoder != nil {
		_, err = w.encoder.Write(buf)
	} else {
		_, err = w.ResponseWriter.Write(buf)
	}

	return err
}

func (w *compressWriter) compressible() bool {
	if w.Header().Get("Content-Encoding") != "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(w.Header().Get("Content-Type"))
	if err != nil {
		return false
	}

	return slices.ContainsFunc(w.contentTypes, func(allowed string) bool {
		return strings.EqualFold(allowed, mediaType)
	})
}
