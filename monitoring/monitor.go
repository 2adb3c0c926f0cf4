// Package monitoring turns a placement engine into a web server so that it can
// be inspected and driven from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/eviction"
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/monitoring/web"
	"github.com/sarchlab/hvmm/sim"
)

// randomPID is accepted in place of a process id by allocate and access.
const randomPID = "random"

// Monitor serves an engine over HTTP. Requests are applied to the engine one
// at a time.
type Monitor struct {
	lock        sync.Mutex
	engine      *placement.Engine
	portNumber  int
	profileTime time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	idGenerator      sim.IDGenerator
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		profileTime: time.Second,
		idGenerator: sim.NewParallelIDGenerator(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithProfileTime sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileTime(d time.Duration) *Monitor {
	m.profileTime = d
	return m
}

// RegisterEngine registers the engine that the monitor drives.
func (m *Monitor) RegisterEngine(e *placement.Engine) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.engine = e
}

// Do runs f while no request is being served. Callers that drive the
// registered engine outside HTTP use it.
func (m *Monitor) Do(f func()) {
	m.lock.Lock()
	defer m.lock.Unlock()

	f()
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        m.idGenerator.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router that serves the API and the web page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", m.snapshot).Methods(http.MethodGet)
	api.HandleFunc("/history", m.history).Methods(http.MethodGet)
	api.HandleFunc("/process/{pid}", m.describeProcess).Methods(http.MethodGet)
	api.HandleFunc("/allocate/{pid}", m.allocate).Methods(http.MethodPost)
	api.HandleFunc("/access/{pid}", m.access).Methods(http.MethodPost)
	api.HandleFunc("/dirty/{pid}", m.markDirty).Methods(http.MethodPost)
	api.HandleFunc("/cache/{pid}", m.addToCache).Methods(http.MethodPost)
	api.HandleFunc("/terminate/{pid}", m.terminate).Methods(http.MethodPost)
	api.HandleFunc("/clear_cache", m.clearCache).Methods(http.MethodPost)
	api.HandleFunc("/reconfigure", m.reconfigure).Methods(http.MethodPost)
	api.HandleFunc("/policy/{name}", m.setPolicy).Methods(http.MethodPost)
	api.HandleFunc("/reset", m.reset).Methods(http.MethodPost)
	api.HandleFunc("/engine", m.serializeEngine).Methods(http.MethodGet)
	api.HandleFunc("/field/{json}", m.listFieldValue).Methods(http.MethodGet)
	api.HandleFunc("/progress", m.listProgressBars).Methods(http.MethodGet)
	api.HandleFunc("/resource", m.listResources).Methods(http.MethodGet)
	api.HandleFunc("/profile", m.collectProfile).Methods(http.MethodGet)

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()
	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

type operationRsp struct {
	Outcome  string             `json:"outcome,omitempty"`
	Events   []placement.Event  `json:"events"`
	Snapshot placement.Snapshot `json:"snapshot"`
}

type errorRsp struct {
	Error string `json:"error"`
}

type reconfigureReq struct {
	RAM   int `json:"ram"`
	Swap  int `json:"swap"`
	Cache int `json:"cache"`
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	writeJSON(w, http.StatusOK, m.engine.Snapshot())
}

func (m *Monitor) history(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	outcomes := m.engine.History()
	rsp := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		rsp = append(rsp, o.String())
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) describeProcess(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	pid, err := m.engine.Catalog().Parse(mux.Vars(r)["pid"])
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := m.engine.Describe(pid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (m *Monitor) allocate(w http.ResponseWriter, r *http.Request) {
	m.applyToProcess(w, r, m.engine.PickAvailable, m.engine.Allocate)
}

func (m *Monitor) markDirty(w http.ResponseWriter, r *http.Request) {
	m.applyToProcess(w, r, nil, m.engine.MarkDirty)
}

func (m *Monitor) addToCache(w http.ResponseWriter, r *http.Request) {
	m.applyToProcess(w, r, nil, m.engine.AddToCache)
}

func (m *Monitor) terminate(w http.ResponseWriter, r *http.Request) {
	m.applyToProcess(w, r, nil, m.engine.Terminate)
}

func (m *Monitor) access(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	pid, err := m.pidFromRequest(r, m.engine.PickExisting)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := m.engine.Access(pid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationRsp{
		Outcome:  result.Outcome.String(),
		Events:   result.Events,
		Snapshot: m.engine.Snapshot(),
	})
}

func (m *Monitor) applyToProcess(
	w http.ResponseWriter,
	r *http.Request,
	pick func() (vm.PID, bool),
	op func(vm.PID) ([]placement.Event, error),
) {
	m.lock.Lock()
	defer m.lock.Unlock()

	pid, err := m.pidFromRequest(r, pick)
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := op(pid)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, operationRsp{
		Events:   events,
		Snapshot: m.engine.Snapshot(),
	})
}

func (m *Monitor) pidFromRequest(
	r *http.Request,
	pick func() (vm.PID, bool),
) (vm.PID, error) {
	s := mux.Vars(r)["pid"]

	if pick != nil && strings.EqualFold(s, randomPID) {
		pid, ok := pick()
		if !ok {
			return 0, fmt.Errorf("%w: no process to pick", placement.ErrNotFound)
		}

		return pid, nil
	}

	return m.engine.Catalog().Parse(s)
}

func (m *Monitor) clearCache(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	events := m.engine.ClearCache()

	writeJSON(w, http.StatusOK, operationRsp{
		Events:   events,
		Snapshot: m.engine.Snapshot(),
	})
}

func (m *Monitor) reconfigure(w http.ResponseWriter, r *http.Request) {
	req := reconfigureReq{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRsp{Error: err.Error()})
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	err = m.engine.Reconfigure(req.RAM, req.Swap, req.Cache)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m.engine.Snapshot())
}

func (m *Monitor) setPolicy(w http.ResponseWriter, r *http.Request) {
	p, err := eviction.ParsePolicy(mux.Vars(r)["name"])
	if err != nil {
		writeError(w, err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	err = m.engine.SetPolicy(p)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m.engine.Snapshot())
}

func (m *Monitor) reset(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.engine.Reset()

	writeJSON(w, http.StatusOK, m.engine.Snapshot())
}

func (m *Monitor) serializeEngine(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorRsp{Error: err.Error()})
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorRsp{Error: err.Error()})
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}

	writeJSON(w, http.StatusOK, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		writeJSON(w, http.StatusConflict, errorRsp{Error: err.Error()})
		return
	}

	time.Sleep(m.profileTime)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, http.StatusOK, prof)
}

// statusOf maps an engine error to an HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, placement.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, placement.ErrUnknownProcess),
		errors.Is(err, placement.ErrInvalidConfig),
		errors.Is(err, vm.ErrMalformedPID),
		errors.Is(err, vm.ErrPIDOutOfRange),
		errors.Is(err, eviction.ErrUnknownPolicy):
		return http.StatusBadRequest
	case errors.Is(err, placement.ErrAlreadyAllocated),
		errors.Is(err, placement.ErrNotInRAM),
		errors.Is(err, placement.ErrCacheDisabled),
		errors.Is(err, placement.ErrTerminated),
		errors.Is(err, placement.ErrEvictionImpossible),
		errors.Is(err, placement.ErrProcessLost):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusOf(err), errorRsp{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
