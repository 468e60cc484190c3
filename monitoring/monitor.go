// Package monitoring serves recorded analysis runs over HTTP.
package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sarchlab/milbus/bus"
	"github.com/sarchlab/milbus/datarecording"
	"github.com/sarchlab/milbus/monitoring/web"
	"github.com/sarchlab/milbus/tracing"
)

// Monitor is a web server that shows the analysis runs stored in a database.
type Monitor struct {
	reader     datarecording.DataReader
	portNumber int
	logger     *slog.Logger
	server     *http.Server
}

// NewMonitor creates a new Monitor that reads from the given reader.
func NewMonitor(reader datarecording.DataReader) *Monitor {
	reader.MapTable(tracing.RunTable, tracing.RunEntry{})
	reader.MapTable(tracing.MessageTable, tracing.MessageEntry{})
	reader.MapTable(tracing.IterationTable, tracing.IterationEntry{})
	reader.MapTable(datarecording.ExecTable, datarecording.ExecInfo{})

	return &Monitor{
		reader: reader,
		logger: slog.Default(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port number not allowed, using a random port",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", m.listRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", m.runDetails).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/messages", m.listMessages).
		Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/iterations/{message}", m.listIterations).
		Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/exec", m.listExecInfo).Methods(http.MethodGet)

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	m.server = &http.Server{Handler: m.Router()}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitoring server stopped", "error", err)
		}
	}()

	m.logger.Info("serving analysis results", "url", url)

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type runList struct {
	Total int                 `json:"total"`
	Runs  []*tracing.RunEntry `json:"runs"`
}

func (m *Monitor) listRuns(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		m.writeError(w, http.StatusBadRequest, err)
		return
	}

	results, total, err := m.reader.Query(r.Context(), tracing.RunTable, params)
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, runList{Total: total, Runs: entries[tracing.RunEntry](results)})
}

func (m *Monitor) runDetails(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	results, _, err := m.reader.Query(r.Context(), tracing.RunTable,
		datarecording.QueryParams{Where: "RunID = ?", Args: []any{id}})
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	if len(results) == 0 {
		m.writeError(w, http.StatusNotFound, fmt.Errorf("run %s not found", id))
		return
	}

	m.writeJSON(w, results[0])
}

type messageList struct {
	Total    int                     `json:"total"`
	Messages []*tracing.MessageEntry `json:"messages"`
}

func (m *Monitor) listMessages(w http.ResponseWriter, r *http.Request) {
	params, err := pageParams(r)
	if err != nil {
		m.writeError(w, http.StatusBadRequest, err)
		return
	}

	params.Where = "RunID = ?"
	params.Args = []any{mux.Vars(r)["id"]}
	params.OrderBy = "Priority ASC, Name ASC"

	if s := r.URL.Query().Get("verdict"); s != "" {
		verdict, err := bus.ParseVerdict(s)
		if err != nil || verdict == bus.VerdictUnknown {
			m.writeError(w, http.StatusBadRequest,
				fmt.Errorf("invalid verdict %q", s))
			return
		}

		params.Where += " AND Verdict = ?"
		params.Args = append(params.Args, verdict.String())
	}

	results, total, err := m.reader.Query(r.Context(), tracing.MessageTable,
		params)
	if err != nil {
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, messageList{
		Total:    total,
		Messages: entries[tracing.MessageEntry](results),
	})
}

type iterationList struct {
	Iterations []*tracing.IterationEntry `json:"iterations"`
}

func (m *Monitor) listIterations(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	results, _, err := m.reader.Query(r.Context(), tracing.IterationTable,
		datarecording.QueryParams{
			Where:   "RunID = ? AND Message = ?",
			Args:    []any{vars["id"], vars["message"]},
			OrderBy: "K ASC",
		})
	if err != nil {
		m.writeError(w, http.StatusNotFound,
			fmt.Errorf("iterations of %s not recorded: %w", vars["message"], err))
		return
	}

	if len(results) == 0 {
		m.writeError(w, http.StatusNotFound,
			fmt.Errorf("iterations of %s not recorded", vars["message"]))
		return
	}

	m.writeJSON(w, iterationList{
		Iterations: entries[tracing.IterationEntry](results),
	})
}

func (m *Monitor) listExecInfo(w http.ResponseWriter, r *http.Request) {
	results, _, err := m.reader.Query(r.Context(), datarecording.ExecTable,
		datarecording.QueryParams{
			Where: "RunID IN (SELECT RunID FROM " + datarecording.ExecTable +
				" WHERE Property = ? AND Value = ?)",
			Args: []any{datarecording.AnalysisRunProperty, mux.Vars(r)["id"]},
		})
	if err != nil {
		m.writeError(w, http.StatusNotFound, err)
		return
	}

	m.writeJSON(w, entries[datarecording.ExecInfo](results))
}

func pageParams(r *http.Request) (datarecording.QueryParams, error) {
	params := datarecording.QueryParams{}
	query := r.URL.Query()

	var err error

	if s := query.Get("limit"); s != "" {
		params.Limit, err = strconv.Atoi(s)
		if err != nil || params.Limit < 0 {
			return params, fmt.Errorf("invalid limit %q", s)
		}
	}

	if s := query.Get("offset"); s != "" {
		params.Offset, err = strconv.Atoi(s)
		if err != nil || params.Offset < 0 {
			return params, fmt.Errorf("invalid offset %q", s)
		}
	}

	return params, nil
}

func entries[T any](results []any) []*T {
	list := make([]*T, 0, len(results))
	for _, r := range results {
		list = append(list, r.(*T))
	}

	return list
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		m.logger.Error("failed to write response", "error", err)
	}
}

func (m *Monitor) writeError(w http.ResponseWriter, status int, err error) {
	m.logger.Debug("request failed", "status", status, "error", err)
	http.Error(w, err.Error(), status)
}
