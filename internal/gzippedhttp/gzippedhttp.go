// Package gzippedhttp accepts gzip-encoded request bodies. Response
// compression is left to chi's middleware.Compress.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/schoolproject/internal/logger"
)

// CompressedReader decompresses a gzip request body and closes both layers.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zr, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zr,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

func (c *CompressedReader) Close() error {
	if err := c.zr.Close(); err != nil {
		_ = c.r.Close()
		return err
	}
	return c.r.Close()
}

// UngzipRequest swaps a body sent with "Content-Encoding: gzip" for its
// decompressed stream and drops the header, so form parsing sees plain data.
// A body that is not valid gzip is answered with 400.
func UngzipRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		body, err := NewCompressedReader(request.Body)
		if err != nil {
			logger.Log.Debugln("malformed gzip request body", zap.Error(err))
			response.WriteHeader(http.StatusBadRequest)
			return
		}
		defer body.Close()

		request.Body = body
		request.Header.Del("Content-Encoding")
		request.ContentLength = -1

		h.ServeHTTP(response, request)
	})
}
