package middleware

import (
	"net/http"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorHandler answers errors that handlers pushed with c.Error instead of
// mapping them: bind errors become a 400, anything else a 500 that carries
// only the request id. The cause is logged, never sent.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		requestID := c.GetString(RequestIDKey)
		last := c.Errors.Last()

		log.Error().
			Str("request_id", requestID).
			Str("route", c.FullPath()).
			Str("method", c.Request.Method).
			Dict("params", paramsDict(c)).
			Strs("errors", c.Errors.Errors()).
			Msg("unhandled error")

		if c.Writer.Written() {
			return
		}
		if last.IsType(gin.ErrorTypeBind) {
			c.AbortWithStatusJSON(http.StatusBadRequest, apierror.New(last.Error()).ConRequestID(requestID))
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Interno(requestID))
	}
}

// Recovery turns a panic into the same 500 body as ErrorHandler.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetString(RequestIDKey)
				log.Error().
					Str("request_id", requestID).
					Str("route", c.FullPath()).
					Dict("params", paramsDict(c)).
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.Interno(requestID))
			}
		}()
		c.Next()
	}
}

// Logger writes one access line per request. The route template and its
// parameters (pedido, producto, mesa) make lines searchable by entity;
// 4xx log at warn and 5xx at error.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = log.Error()
		case status >= http.StatusBadRequest:
			ev = log.Warn()
		}
		ev.Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Dict("params", paramsDict(c)).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func paramsDict(c *gin.Context) *zerolog.Event {
	d := zerolog.Dict()
	for _, p := range c.Params {
		d.Str(p.Key, p.Value)
	}
	return d
}
