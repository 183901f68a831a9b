package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"growth.service/api"
	dm "growth.service/data/models"
	"growth.service/logger"
	sm "growth.service/models"
)

const (
	DefaultAddr = ":8080"

	maxBodyBytes = 1 << 20
)

func GetHttpServer(sc *ServiceContext) *http.Server {
	addr := sc.Config.Server.Addr
	if addr == "" {
		addr = DefaultAddr
	}

	return &http.Server{
		Addr:           addr,
		Handler:        sc.Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   sc.Config.Server.RequestTimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func (sc *ServiceContext) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogging)
	if sc.Config.Server.RequestTimeout > 0 {
		r.Use(RequestTimeout(sc.Config.Server.RequestTimeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", sc.ping)
		r.Get("/instruments", sc.instruments)

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", sc.dashboard)
			r.Post("/", sc.dashboard)
			r.Get("/export.csv", sc.exportCSV)
			r.Post("/export.csv", sc.exportCSV)
			r.Get("/charts/growth.png", sc.growthChart)
			r.Post("/charts/growth.png", sc.growthChart)
			r.Get("/charts/risk.png", sc.riskChart)
			r.Post("/charts/risk.png", sc.riskChart)
		})
	})

	return r
}

func (sc *ServiceContext) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(&sm.Message{Message: "pong"}))
}

func (sc *ServiceContext) instruments(w http.ResponseWriter, r *http.Request) {
	res := sm.GetInstrumentsResource(sc.Config.Dashboard)
	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(&res))
}

func (sc *ServiceContext) dashboard(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDashboardRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := sc.RunDashboard(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sm.GetServiceResponseOk(res))
}

func (sc *ServiceContext) exportCSV(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDashboardRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	table, err := sc.ExportTable(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, table); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", CSVContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, CSVFileName))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (sc *ServiceContext) growthChart(w http.ResponseWriter, r *http.Request) {
	sc.writeChart(w, r, sc.GrowthChart)
}

func (sc *ServiceContext) riskChart(w http.ResponseWriter, r *http.Request) {
	sc.writeChart(w, r, sc.RiskChart)
}

func (sc *ServiceContext) writeChart(w http.ResponseWriter, r *http.Request, render func(context.Context, sm.DashboardRequest) ([]byte, error)) {
	req, err := decodeDashboardRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}

	png, err := render(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// decodeDashboardRequest reads a json body on POST and query parameters otherwise.
// Fields left out stay zero (or nil) so the configured defaults apply.
func decodeDashboardRequest(r *http.Request) (sm.DashboardRequest, error) {
	var req sm.DashboardRequest

	if r.Method == http.MethodPost {
		dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, fmt.Errorf("%w: %w", sm.ErrInvalidRequest, err)
		}
		return req, nil
	}

	return parseDashboardQuery(r.URL.Query())
}

// parseDashboardQuery reads symbols=AAPL,MSFT&start=2024-01-01&capital=1000&currency=ARS&fx=1200&benchmark=true
func parseDashboardQuery(query url.Values) (sm.DashboardRequest, error) {
	var req sm.DashboardRequest

	if query.Has("symbols") {
		req.Symbols = []string{}
		for _, v := range query["symbols"] {
			for _, s := range strings.Split(v, ",") {
				if s = strings.TrimSpace(s); s != "" {
					req.Symbols = append(req.Symbols, s)
				}
			}
		}
	}

	req.StartDate = query.Get("start")
	req.Currency = query.Get("currency")

	var err error
	if v := query.Get("capital"); v != "" {
		if req.InitialCapital, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("%w: capital %q is not a number", sm.ErrInvalidRequest, v)
		}
	}
	if v := query.Get("fx"); v != "" {
		if req.FxRate, err = strconv.ParseFloat(v, 64); err != nil {
			return req, fmt.Errorf("%w: fx %q is not a number", sm.ErrInvalidRequest, v)
		}
	}
	if v := query.Get("benchmark"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: benchmark %q is not a boolean", sm.ErrInvalidRequest, v)
		}
		req.IncludeBenchmark = &b
	}

	return req, nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, sm.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrInsufficientData), errors.Is(err, dm.ErrInvalidSeries):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		logger.Get().Errorw("request failed", "error", err)
	}
	writeJSON(w, status, sm.GetServiceResponseError(err.Error()))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Get().Errorw("error encoding response", "error", err)
	}
}
