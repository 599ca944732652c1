// Package stub is an in-memory stand-in for the test management service. It
// accepts both submission routes, checks credentials and required fields, and
// keeps what it was sent so callers can inspect it.
package stub

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/patrickmn/go-cache"
	"github.com/tidwall/gjson"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	RecordRoute = "record"
	LegacyRoute = "legacy"
)

var log = logf.Log.WithName("spira-stub")

// Run is a submission accepted by the stub.
type Run struct {
	ID                string `json:"id"`
	Route             string `json:"route"`
	ProjectID         int    `json:"projectId"`
	TestCaseID        int    `json:"testCaseId"`
	ExecutionStatusID int    `json:"executionStatusId,omitempty"`
	Status            string `json:"status,omitempty"`
	Body              string `json:"body"`
	seq               int64
}

type failure struct {
	code int
	body string
}

// Server serves the stub API. The zero value is not usable, use NewServer.
type Server struct {
	user   string
	apiKey string
	runs   *cache.Cache
	lastID int64
	router *mux.Router

	lock     sync.Mutex
	failures []failure
}

// NewServer returns a stub accepting the given credentials.
func NewServer(user, apiKey string) *Server {
	s := &Server{
		user:   user,
		apiKey: apiKey,
		runs:   cache.New(cache.NoExpiration, 0),
	}
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/", homePage)
	router.HandleFunc("/Services/v6_0/RestService.svc/projects/{projectId:[0-9]+}/test-runs/record", s.recordTestRun).Methods("POST")
	router.HandleFunc("/api/v1/test-runs", s.legacyTestRun).Methods("POST")
	router.HandleFunc("/runs", s.listRuns).Methods("GET")
	router.HandleFunc("/fail/{code:[0-9]{3}}", s.queueFailure).Methods("POST")
	s.router = router
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FailNext makes the next submission answer with code and body.
func (s *Server) FailNext(code int, body string) {
	s.lock.Lock()
	s.failures = append(s.failures, failure{code: code, body: body})
	s.lock.Unlock()
}

// Runs returns the accepted submissions in arrival order.
func (s *Server) Runs() []Run {
	items := s.runs.Items()
	runs := make([]Run, 0, len(items))
	for _, item := range items {
		runs = append(runs, item.Object.(Run))
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].seq < runs[j].seq })
	return runs
}

func homePage(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, "Spira stub\n")
}

func (s *Server) nextFailure() *failure {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.failures) == 0 {
		return nil
	}
	f := s.failures[0]
	s.failures = s.failures[1:]
	return &f
}

func (s *Server) store(run Run) Run {
	run.seq = atomic.AddInt64(&s.lastID, 1)
	if run.ID == "" {
		run.ID = strconv.FormatInt(run.seq, 10)
	}
	s.runs.Set(run.ID, run, cache.NoExpiration)
	return run
}

func (s *Server) recordTestRun(w http.ResponseWriter, r *http.Request) {
	user, key, ok := r.BasicAuth()
	if !ok || user != s.user || key != s.apiKey {
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if f := s.nextFailure(); f != nil {
		writeError(w, f.code, f.body)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	projectID, _ := strconv.Atoi(mux.Vars(r)["projectId"])
	testCaseID := gjson.Get(body, "TestCaseId").Int()
	statusID := gjson.Get(body, "ExecutionStatusId").Int()
	switch {
	case testCaseID <= 0:
		writeError(w, http.StatusBadRequest, "TestCaseId is required")
		return
	case statusID < 1 || statusID > 6:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("ExecutionStatusId %d is not valid", statusID))
		return
	case gjson.Get(body, "RunnerTestName").String() == "":
		writeError(w, http.StatusBadRequest, "RunnerTestName is required")
		return
	}

	run := s.store(Run{
		Route:             RecordRoute,
		ProjectID:         projectID,
		TestCaseID:        int(testCaseID),
		ExecutionStatusID: int(statusID),
		Body:              body,
	})
	log.Info("recorded test run", "id", run.ID, "testCaseId", run.TestCaseID, "executionStatusId", run.ExecutionStatusID)

	seq, _ := strconv.Atoi(run.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"TestRunId":         seq,
		"ProjectId":         projectID,
		"TestCaseId":        run.TestCaseID,
		"ExecutionStatusId": run.ExecutionStatusID,
		"RunnerTestName":    gjson.Get(body, "RunnerTestName").String(),
	})
}

func (s *Server) legacyTestRun(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer "+s.apiKey {
		writeError(w, http.StatusUnauthorized, "Authentication failed")
		return
	}
	if f := s.nextFailure(); f != nil {
		writeError(w, f.code, f.body)
		return
	}
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	testCaseID := gjson.Get(body, "test_case_id").Int()
	if testCaseID <= 0 {
		writeError(w, http.StatusBadRequest, "test_case_id is required")
		return
	}

	run := s.store(Run{
		ID:         uuid.New().String(),
		Route:      LegacyRoute,
		ProjectID:  int(gjson.Get(body, "project_id").Int()),
		TestCaseID: int(testCaseID),
		Status:     gjson.Get(body, "status").String(),
		Body:       body,
	})
	log.Info("recorded legacy test run", "id", run.ID, "testCaseId", run.TestCaseID, "status", run.Status)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": run.ID, "status": run.Status})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Runs())
}

// queueFailure is the HTTP form of FailNext; the request body becomes the
// response body.
func (s *Server) queueFailure(w http.ResponseWriter, r *http.Request) {
	code, _ := strconv.Atoi(mux.Vars(r)["code"])
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.FailNext(code, string(data))
	w.WriteHeader(http.StatusNoContent)
}

func readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "expected application/json")
		return "", false
	}
	data, err := ioutil.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if !gjson.ValidBytes(data) {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return "", false
	}
	return string(data), true
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(code)
	fmt.Fprint(w, message)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "failed to write response")
	}
}
