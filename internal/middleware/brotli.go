package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

type BrotliConfig struct {
	Quality   int
	Skipper   func(c *gin.Context) bool
	MinLength int
}

var DefaultBrotliConfig = BrotliConfig{
	Quality:   brotli.DefaultCompression,
	MinLength: 1024,
	Skipper:   nil,
}

// Content types that are already compressed: report downloads and uploaded
// documents.
var incompressibleTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument",
	"application/zip",
	"image/",
}

// brotliWriter buffers the body until MinLength bytes have been written, then
// decides once whether to compress. Everything after the decision goes
// straight through.
type brotliWriter struct {
	gin.ResponseWriter
	quality   int
	minLength int
	buf       []byte
	decided   bool
	writer    *brotli.Writer
}

func (bw *brotliWriter) Write(data []byte) (int, error) {
	if bw.decided {
		if bw.writer != nil {
			return bw.writer.Write(data)
		}
		return bw.ResponseWriter.Write(data)
	}

	bw.buf = append(bw.buf, data...)
	if len(bw.buf) < bw.minLength {
		return len(data), nil
	}
	if err := bw.decide(true); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (bw *brotliWriter) WriteString(s string) (int, error) {
	return bw.Write([]byte(s))
}

// decide fixes the encoding and drains the buffer.
func (bw *brotliWriter) decide(large bool) error {
	bw.decided = true
	if large && compressible(bw.ResponseWriter.Header().Get("Content-Type")) {
		bw.ResponseWriter.Header().Set("Content-Encoding", "br")
		bw.ResponseWriter.Header().Del("Content-Length")
		bw.writer = brotli.NewWriterLevel(bw.ResponseWriter, bw.quality)
	}
	if len(bw.buf) == 0 {
		return nil
	}
	var err error
	if bw.writer != nil {
		_, err = bw.writer.Write(bw.buf)
	} else {
		_, err = bw.ResponseWriter.Write(bw.buf)
	}
	bw.buf = nil
	return err
}

// Flush is called by streaming endpoints. A pending buffer is sent as is.
func (bw *brotliWriter) Flush() {
	if !bw.decided {
		_ = bw.decide(false)
	}
	if bw.writer != nil {
		_ = bw.writer.Flush()
	}
	bw.ResponseWriter.Flush()
}

func (bw *brotliWriter) close() error {
	if !bw.decided {
		if err := bw.decide(false); err != nil {
			return err
		}
	}
	if bw.writer != nil {
		return bw.writer.Close()
	}
	return nil
}

func Brotli() gin.HandlerFunc {
	return BrotliWithConfig(DefaultBrotliConfig)
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < 0 || cfg.Quality > 11 {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultBrotliConfig.MinLength
	}

	return func(c *gin.Context) {
		if isUpgrade(c) || (cfg.Skipper != nil && cfg.Skipper(c)) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")

		bw := &brotliWriter{
			ResponseWriter: c.Writer,
			quality:        cfg.Quality,
			minLength:      cfg.MinLength,
		}
		defer func() {
			if err := bw.close(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Writer = bw
		c.Next()
	}
}

// isUpgrade reports a WebSocket handshake, which must reach the handler with
// the original writer so it can be hijacked.
func isUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func compressible(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, t := range incompressibleTypes {
		if strings.HasPrefix(ct, t) {
			return false
		}
	}
	return true
}

func acceptsBrotli(r *http.Request) bool {
	ae := r.Header.Get("Accept-Encoding")
	for _, enc := range strings.Split(ae, ",") {
		enc = strings.TrimSpace(strings.ToLower(enc))
		if enc == "br" || (strings.HasPrefix(enc, "br;") && !strings.HasSuffix(enc, "q=0")) {
			return true
		}
	}
	return false
}
