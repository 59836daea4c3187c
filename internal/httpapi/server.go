package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatgate/internal/session"
	"chatgate/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	GenerateText(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (string, error)
	GenerateJSON(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (any, error)
	GenerateStream(ctx context.Context, messages []types.ChatMessage, override types.CompletionParams) (*session.ChatStream, error)
	LoadModel(ctx context.Context, modelID string) error
	SetDefaultParams(p types.CompletionParams)
	DefaultParams() types.CompletionParams
	Models() []types.ModelDescriptor
	CurrentModel() *types.ModelDescriptor
	Ready() bool
	Status() types.StatusResponse
	Subscribe(fn func(session.Event)) func()
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Post("/chat", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}
		ctx, cancel := chatContext(r)
		defer cancel()
		start := time.Now()
		text, err := svc.GenerateText(ctx, req.Messages, deref(req.Params))
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, err)
			logChatEnd(r, statusForError(err), time.Since(start), err)
			return
		}
		writeJSON(w, types.ChatResponse{Text: text})
		logChatEnd(r, http.StatusOK, time.Since(start), nil)
	})

	r.Post("/chat/json", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}
		ctx, cancel := chatContext(r)
		defer cancel()
		start := time.Now()
		result, err := svc.GenerateJSON(ctx, req.Messages, deref(req.Params))
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, err)
			logChatEnd(r, statusForError(err), time.Since(start), err)
			return
		}
		raw := json.RawMessage("null")
		if result != nil {
			b, merr := json.Marshal(result)
			if merr != nil {
				writeJSONError(w, http.StatusInternalServerError, "failed to encode result")
				return
			}
			raw = b
		}
		writeJSON(w, types.ChatJSONResponse{Result: raw})
		logChatEnd(r, http.StatusOK, time.Since(start), nil)
	})

	r.Post("/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeChatRequest(w, r)
		if !ok {
			return
		}
		ctx, cancel := chatContext(r)
		defer cancel()
		start := time.Now()
		stream, err := svc.GenerateStream(ctx, req.Messages, deref(req.Params))
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, err)
			logChatEnd(r, statusForError(err), time.Since(start), err)
			return
		}
		defer stream.Close()

		w.Header().Set("Content-Type", "application/x-ndjson")
		var flush func()
		if f, ok := w.(http.Flusher); ok {
			flush = f.Flush
		}
		writer := io.Writer(w)
		lvl := requestLogLevel(r)
		if lvl >= LevelDebug {
			writer = io.MultiWriter(w, &loggingLineWriter{})
		}
		enc := json.NewEncoder(writer)
		for {
			chunk, rerr := stream.Recv()
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					logChatEnd(r, http.StatusOK, time.Since(start), nil)
					return
				}
				if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
					return
				}
				// Headers are out; report the failure as a terminal NDJSON record.
				_ = enc.Encode(types.ErrorResponse{Error: rerr.Error(), Code: statusForError(rerr)})
				if flush != nil {
					flush()
				}
				logChatEnd(r, statusForError(rerr), time.Since(start), rerr)
				return
			}
			if err := enc.Encode(chunk); err != nil {
				return
			}
			if flush != nil {
				flush()
			}
		}
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelsResponse{Models: svc.Models()})
	})

	r.Get("/models/current", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.CurrentModelResponse{Model: svc.CurrentModel()})
	})

	r.Post("/models/load", func(w http.ResponseWriter, r *http.Request) {
		if !requireJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.LoadModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if err := svc.LoadModel(joinedCtx, req.Model); err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, err)
			return
		}
		writeJSON(w, svc.Status())
	})

	r.Put("/params", func(w http.ResponseWriter, r *http.Request) {
		if !requireJSON(w, r) {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var p types.CompletionParams
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		svc.SetDefaultParams(p)
		writeJSON(w, svc.DefaultParams())
	})

	r.Get("/params", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.DefaultParams())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		sseClients.Inc()
		defer sseClients.Dec()

		// Subscribe before the headers go out so a client that saw the 200
		// never misses events published right after connect.
		events := make(chan session.Event, 16)
		unsubscribe := svc.Subscribe(func(e session.Event) {
			select {
			case events <- e:
			default: // slow client, drop
			}
		})
		defer unsubscribe()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		keepalive := time.NewTicker(30 * time.Second)
		defer keepalive.Stop()
		for {
			select {
			case <-joinedCtx.Done():
				return
			case <-keepalive.C:
				fmt.Fprint(w, ": keepalive\n\n")
				flusher.Flush()
			case e := <-events:
				b, err := json.Marshal(map[string]any{
					"model":  e.ModelID,
					"fields": e.Fields,
				})
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Name, b)
				flusher.Flush()
			}
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeChatRequest validates content type, bounds the body and decodes the
// common chat payload. Writes the error response itself on failure.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (types.ChatRequest, bool) {
	var req types.ChatRequest
	if !requireJSON(w, r) {
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if len(req.Messages) == 0 {
		writeJSONError(w, http.StatusBadRequest, "messages are required")
		return req, false
	}
	for _, m := range req.Messages {
		if strings.TrimSpace(m.Content) == "" && m.Role != types.RoleAssistant {
			writeJSONError(w, http.StatusBadRequest, "message content is required")
			return req, false
		}
	}
	return req, true
}

func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	return true
}

// chatContext joins the request context with the server base context and the
// optional chat timeout.
func chatContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	if chatTimeout > 0 {
		tctx, tcancel := context.WithTimeout(ctx, time.Duration(chatTimeout)*time.Second)
		return tctx, func() { tcancel(); cancel() }
	}
	return ctx, cancel
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

func logChatEnd(r *http.Request, status int, dur time.Duration, err error) {
	if requestLogLevel(r) < LevelInfo {
		return
	}
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Int("status", status).Dur("dur", dur)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		if err != nil {
			z = z.Err(err)
		}
		z.Msg("chat end")
		return
	}
	if err != nil {
		log.Printf("chat end path=%s status=%d dur=%s err=%v", r.URL.Path, status, dur, err)
		return
	}
	log.Printf("chat end path=%s status=%d dur=%s", r.URL.Path, status, dur)
}

func deref(p *types.CompletionParams) types.CompletionParams {
	if p == nil {
		return types.CompletionParams{}
	}
	return *p
}
