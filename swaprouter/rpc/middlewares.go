package rpc

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// zerologMiddleware writes one access log line per request. Probe and scrape
// traffic under /server/ is logged at debug level.
func zerologMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		rw := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(rw, r)

		level := zerolog.InfoLevel
		switch {
		case rw.Status() >= http.StatusInternalServerError:
			level = zerolog.ErrorLevel
		case strings.HasPrefix(r.URL.Path, "/server/"):
			level = zerolog.DebugLevel
		}
		Logger.WithLevel(level).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.Status()).
			Int("bytes", rw.BytesWritten()).
			Dur("took", time.Since(begin)).
			Str("remote", r.RemoteAddr).
			Msg("http")
	})
}

// zerologRecoverer turns handler panics into a 500. Aborted handlers keep
// unwinding so net/http can drop the connection.
func zerologRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			Logger.Error().
				Interface("panic", rvr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("path", r.URL.Path).
				Msg("handler panicked")
			w.WriteHeader(http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// corsAllowedHeaders are the request headers connect clients send from browsers.
var corsAllowedHeaders = []string{
	"Accept",
	"Accept-Encoding",
	"Content-Type",
	"Content-Encoding",
	"Connect-Protocol-Version",
	"Connect-Timeout-Ms",
	"Connect-Accept-Encoding",
	"Connect-Content-Encoding",
	"X-Request-Id",
}

// corsExposedHeaders lets browsers read connect's compression and error headers.
var corsExposedHeaders = []string{
	"Content-Encoding",
	"Connect-Content-Encoding",
	"X-Request-Id",
}

// newCORSHandler wraps next with the origin allowlist. An empty list allows
// every origin without credentials.
func newCORSHandler(allowedOrigins []string, next http.Handler) http.Handler {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	wildcard := slices.Contains(origins, "*")

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   corsAllowedHeaders,
		ExposedHeaders:   corsExposedHeaders,
		AllowCredentials: !wildcard,
		MaxAge:           int((2 * time.Hour).Seconds()),
	}).Handler(next)
}

// loggingInterceptor logs every procedure call with its connect code.
func loggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			begin := time.Now()
			resp, err := next(ctx, req)

			ev := Logger.Info()
			if err != nil {
				code := connect.CodeOf(err)
				ev = Logger.Warn()
				if code == connect.CodeInternal {
					ev = Logger.Error()
				}
				ev = ev.Err(err).Str("code", code.String())
			}
			ev.Str("procedure", req.Spec().Procedure).
				Str("protocol", req.Peer().Protocol).
				Dur("took", time.Since(begin)).
				Msg("rpc")
			return resp, err
		}
	}
}

// noCacheInterceptor keeps quotes and compiled groups out of caches, they go
// stale with the next committed round.
func noCacheInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			resp, err := next(ctx, req)
			if err == nil && resp != nil {
				resp.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
			}
			return resp, err
		}
	}
}

// validationInterceptor rejects request messages that fail their own Validate.
func validationInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if v, ok := req.Any().(interface{ Validate() error }); ok {
				if err := v.Validate(); err != nil {
					Logger.Debug().
						Str("procedure", req.Spec().Procedure).
						Err(err).
						Msg("Request validation failed")
					return nil, connect.NewError(connect.CodeInvalidArgument, err)
				}
			}
			return next(ctx, req)
		}
	}
}

// recoverHandler answers a panicking procedure with CodeInternal.
func recoverHandler(_ context.Context, spec connect.Spec, _ http.Header, p any) error {
	Logger.Error().
		Interface("panic", p).
		Str("procedure", spec.Procedure).
		Msg("procedure panicked")
	return connect.NewError(connect.CodeInternal, errors.New("internal error"))
}
