package rest

import (
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mohitkumar/eventflow/engine"
	"github.com/mohitkumar/eventflow/logger"
	"github.com/mohitkumar/eventflow/model"
	"github.com/mohitkumar/eventflow/transport"
	"github.com/mohitkumar/eventflow/util"
	"go.uber.org/zap"
)

var bodyDecoder = util.NewJsonEncoderDecoder[any]()

// replyGrace lets the flow's own timeout answer before the request gives up.
const replyGrace = time.Second

func (s *Server) HandleRunFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["flow"]
	f, ok := s.flows.GetFlow(flowId)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Flow "+flowId+" not found")
		return
	}
	defer r.Body.Close()
	data, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "unable to read request body")
		return
	}
	var body any
	if len(strings.TrimSpace(string(data))) > 0 {
		decoded, err := bodyDecoder.Decode(data)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		body = *decoded
	}
	headers := make(map[string]any, len(r.Header))
	for k := range r.Header {
		headers[strings.ToLower(k)] = r.Header.Get(k)
	}
	query := make(map[string]any)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	req := transport.NewEvent(model.FlowManagerRoute).SetHeader(engine.HeaderFlowId, f.Id)
	req.Body = map[string]any{
		"body":   body,
		"header": headers,
		"method": r.Method,
		"query":  query,
	}
	reply, err := s.tp.Request(r.Context(), req, f.TTL+replyGrace)
	if err != nil {
		logger.Error("error running flow", zap.String("flow", f.Id), zap.Error(err))
		var timeout transport.TimeoutError
		if errors.As(err, &timeout) {
			respondWithError(w, http.StatusRequestTimeout, err.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}
	status := reply.Status
	if status < 100 || status > 599 {
		status = http.StatusOK
	}
	switch b := reply.Body.(type) {
	case nil:
		w.WriteHeader(status)
	case string:
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		w.Write([]byte(b))
	case []byte:
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(status)
		w.Write(b)
	default:
		respondWithJSON(w, status, b)
	}
}

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"flows": s.flows.FlowIds()})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	flowId := mux.Vars(r)["flow"]
	f, ok := s.flows.GetFlow(flowId)
	if !ok {
		logger.Info("flow does not exist", zap.String("flow", flowId))
		respondWithError(w, http.StatusNotFound, "Flow "+flowId+" not found")
		return
	}
	tasks := make([]string, 0, len(f.Tasks))
	for name := range f.Tasks {
		tasks = append(tasks, name)
	}
	sort.Strings(tasks)
	respondOK(w, map[string]any{
		"id":          f.Id,
		"description": f.Description,
		"ttl":         f.TTL.Milliseconds(),
		"first.task":  f.FirstTask,
		"tasks":       tasks,
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]any{"status": "UP", "flows": len(s.flows.FlowIds()), "instances": s.flows.InstanceCount()})
}
