package main

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	agent "github.com/DipperMason/rpn-calculator/internal"
	"github.com/DipperMason/rpn-calculator/internal/config"
	"github.com/DipperMason/rpn-calculator/internal/store"
)

const maxBody = 64 << 10

var (
	configPath = flag.String("config", "", "YAML config file")
	listen     = flag.String("listen", "", "address to listen on, overrides the config")
)

type history interface {
	Record(ctx context.Context, e store.Entry) (int64, error)
	List(ctx context.Context, user string, limit int) ([]store.Entry, error)
}

// Service evaluates expressions for authenticated users and keeps their
// history.
type Service struct {
	history history
	secret  []byte
	ttl     time.Duration
	workers int
	log     *slog.Logger
	now     func() time.Time
}

func NewService(h history, cfg config.Config, log *slog.Logger) (*Service, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, errors.Wrap(err, "generate token secret")
		}
		log.Warn("no secret configured, tokens will not survive a restart")
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = config.Default().TokenTTL
	}
	return &Service{
		history: h,
		secret:  secret,
		ttl:     ttl,
		workers: cfg.Workers,
		log:     log,
		now:     time.Now,
	}, nil
}

func (s *Service) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/login", s.login).Methods(http.MethodPost)
	r.Handle("/evaluate", s.isAuthorized(http.HandlerFunc(s.evaluate))).Methods(http.MethodPost)
	r.Handle("/batch", s.isAuthorized(http.HandlerFunc(s.batch))).Methods(http.MethodPost)
	r.Handle("/history", s.isAuthorized(http.HandlerFunc(s.listHistory))).Methods(http.MethodGet)
	return r
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// evaluation is the wire form of one outcome. Result is text because JSON
// has no Inf or NaN.
type evaluation struct {
	Expression string     `json:"expression"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Message    string     `json:"message,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	user := strings.TrimSpace(r.FormValue("user"))
	if user == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "user is required"})
		return
	}
	token, err := s.issueToken(user)
	if err != nil {
		s.log.Error("issue token", "user", user, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}
	s.log.Info("token issued", "user", user)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeJSON(w, status, errorBody{Error: "bad_request", Message: "Error reading request body"})
		return "", false
	}
	return string(body), true
}

// record stores one outcome and converts it to its wire form.
func (s *Service) record(ctx context.Context, user, expression string, v float64, evalErr error) evaluation {
	entry := store.Entry{Expression: expression, Result: v, User: user}
	ev := evaluation{Expression: expression}
	if evalErr != nil {
		kind, _ := agent.KindOf(evalErr)
		entry.ErrorKind = kind.String()
		ev.Error = entry.ErrorKind
		ev.Message = agent.Message(evalErr)
	} else {
		ev.Result = agent.FormatResult(v)
	}
	s.log.Info("evaluated", "user", user, "expression", expression, "kind", entry.ErrorKind)

	if s.history != nil {
		if _, err := s.history.Record(ctx, entry); err != nil {
			s.log.Warn("history not recorded", "user", user, "error", err)
		}
	}
	return ev
}

func (s *Service) evaluate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	expression := strings.TrimRight(body, "\r\n")
	v, err := agent.Evaluate(expression)
	ev := s.record(r.Context(), userFrom(r.Context()), expression, v, err)

	status := http.StatusOK
	if err != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ev)
}

func (s *Service) batch(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}

	outcomes, err := agent.EvaluateAll(r.Context(), lines, s.workers)
	if err != nil {
		s.log.Info("batch canceled", "error", err)
		return
	}
	user := userFrom(r.Context())
	out := make([]evaluation, len(outcomes))
	for i, o := range outcomes {
		out[i] = s.record(r.Context(), user, o.Expression, o.Value, o.Err)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	if s.history == nil {
		writeJSON(w, http.StatusOK, []evaluation{})
		return
	}

	entries, err := s.history.List(r.Context(), userFrom(r.Context()), limit)
	if err != nil {
		s.log.Error("list history", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
		return
	}
	out := make([]evaluation, 0, len(entries))
	for _, e := range entries {
		createdAt := e.CreatedAt
		ev := evaluation{Expression: e.Expression, Error: e.ErrorKind, CreatedAt: &createdAt}
		if e.ErrorKind == "" {
			ev.Result = agent.FormatResult(e.Result)
		}
		out = append(out, ev)
	}
	writeJSON(w, http.StatusOK, out)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	db, err := store.Open(cfg.Database)
	if err != nil {
		logger.Error("open history", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	svc, err := NewService(db, cfg, logger)
	if err != nil {
		logger.Error("start service", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           svc.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("calculator service listening", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("serve", "error", err)
	}
}
