package monitoring_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/monitoring"
)

type snapshotRsp struct {
	Time   uint64 `json:"time"`
	Config struct {
		RAMCapacity   int    `json:"ram_capacity"`
		SwapCapacity  int    `json:"swap_capacity"`
		CacheCapacity int    `json:"cache_capacity"`
		Policy        string `json:"policy"`
	} `json:"config"`
	RAM       []string `json:"ram"`
	Swap      []string `json:"swap"`
	Cache     []string `json:"cache"`
	Dirty     []string `json:"dirty"`
	HitRate   string   `json:"hit_rate"`
	Thrashing bool     `json:"thrashing"`
}

type eventRsp struct {
	Kind   string `json:"kind"`
	PID    string `json:"pid"`
	Detail string `json:"detail"`
}

type operationRsp struct {
	Outcome  string      `json:"outcome"`
	Events   []eventRsp  `json:"events"`
	Snapshot snapshotRsp `json:"snapshot"`
}

type errorRsp struct {
	Error string `json:"error"`
}

var _ = Describe("Monitor", func() {
	var (
		engine  *placement.Engine
		monitor *monitoring.Monitor
		handler http.Handler
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	kindsOf := func(rsp operationRsp) []string {
		kinds := []string{}
		for _, e := range rsp.Events {
			kinds = append(kinds, e.Kind)
		}

		return kinds
	}

	BeforeEach(func() {
		engine = placement.MakeBuilder().WithSeed(1).Build("Engine")
		monitor = monitoring.NewMonitor().
			WithProfileTime(10 * time.Millisecond)
		monitor.RegisterEngine(engine)
		handler = monitor.Handler()
	})

	It("should report the snapshot", func() {
		rec := do(http.MethodGet, "/api/snapshot", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))

		snapshot := snapshotRsp{}
		decode(rec, &snapshot)
		Expect(snapshot.Config.RAMCapacity).To(Equal(4))
		Expect(snapshot.Config.SwapCapacity).To(Equal(4))
		Expect(snapshot.Config.CacheCapacity).To(Equal(3))
		Expect(snapshot.Config.Policy).To(Equal("FIFO"))
		Expect(snapshot.RAM).To(BeEmpty())
		Expect(snapshot.HitRate).To(Equal("N/A"))
	})

	It("should allocate a process", func() {
		rec := do(http.MethodPost, "/api/allocate/p1", "")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := operationRsp{}
		decode(rec, &rsp)
		Expect(kindsOf(rsp)).To(Equal([]string{"Allocated"}))
		Expect(rsp.Events[0].PID).To(Equal("P1"))
		Expect(rsp.Snapshot.RAM).To(Equal([]string{"P1"}))
	})

	It("should allocate a random process", func() {
		rec := do(http.MethodPost, "/api/allocate/random", "")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := operationRsp{}
		decode(rec, &rsp)
		Expect(rsp.Snapshot.RAM).To(HaveLen(1))
	})

	It("should reject malformed process ids", func() {
		rec := do(http.MethodPost, "/api/allocate/X1", "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rsp := errorRsp{}
		decode(rec, &rsp)
		Expect(rsp.Error).To(ContainSubstring("malformed"))
	})

	It("should reject out of range process ids", func() {
		rec := do(http.MethodPost, "/api/allocate/P99", "")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report conflicts", func() {
		do(http.MethodPost, "/api/allocate/P1", "")

		rec := do(http.MethodPost, "/api/allocate/P1", "")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should report missing processes", func() {
		rec := do(http.MethodPost, "/api/access/P2", "")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should not pick a random process when nothing is allocated", func() {
		rec := do(http.MethodPost, "/api/access/random", "")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should serve a RAM hit and then a cache hit", func() {
		do(http.MethodPost, "/api/allocate/P1", "")

		first := operationRsp{}
		decode(do(http.MethodPost, "/api/access/P1", ""), &first)
		Expect(first.Outcome).To(Equal("RAM hit"))
		Expect(first.Snapshot.Cache).To(Equal([]string{"P1"}))

		second := operationRsp{}
		decode(do(http.MethodPost, "/api/access/P1", ""), &second)
		Expect(second.Outcome).To(Equal("cache hit"))
		Expect(second.Snapshot.HitRate).To(Equal("100.0%"))
	})

	It("should mark dirty, cache and terminate", func() {
		do(http.MethodPost, "/api/allocate/P1", "")

		rsp := operationRsp{}
		decode(do(http.MethodPost, "/api/dirty/P1", ""), &rsp)
		Expect(rsp.Snapshot.Dirty).To(Equal([]string{"P1"}))

		decode(do(http.MethodPost, "/api/cache/P1", ""), &rsp)
		Expect(rsp.Snapshot.Cache).To(Equal([]string{"P1"}))

		decode(do(http.MethodPost, "/api/clear_cache", ""), &rsp)
		Expect(kindsOf(rsp)).To(ContainElement("CacheCleared"))
		Expect(rsp.Snapshot.Cache).To(BeEmpty())

		decode(do(http.MethodPost, "/api/terminate/P1", ""), &rsp)
		Expect(kindsOf(rsp)).To(ContainElement("Terminated"))
		Expect(rsp.Snapshot.RAM).To(BeEmpty())

		rec := do(http.MethodPost, "/api/allocate/P1", "")
		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should not cache processes that are not in RAM", func() {
		rec := do(http.MethodPost, "/api/cache/P3", "")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should describe a process", func() {
		do(http.MethodPost, "/api/allocate/P2", "")

		rec := do(http.MethodGet, "/api/process/P2", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		info := map[string]any{}
		decode(rec, &info)
		Expect(info["pid"]).To(Equal("P2"))
		Expect(info["location"]).To(Equal("ram"))
	})

	It("should reconfigure", func() {
		do(http.MethodPost, "/api/allocate/P1", "")

		rec := do(http.MethodPost, "/api/reconfigure",
			`{"ram": 2, "swap": 1, "cache": 0}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		snapshot := snapshotRsp{}
		decode(rec, &snapshot)
		Expect(snapshot.Config.RAMCapacity).To(Equal(2))
		Expect(snapshot.Config.SwapCapacity).To(Equal(1))
		Expect(snapshot.Config.CacheCapacity).To(Equal(0))
		Expect(snapshot.RAM).To(BeEmpty())
	})

	It("should reject invalid configurations", func() {
		rec := do(http.MethodPost, "/api/reconfigure",
			`{"ram": 0, "swap": 1, "cache": 1}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPost, "/api/reconfigure", `not json`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		Expect(engine.Config().RAMCapacity).To(Equal(4))
	})

	It("should change the policy", func() {
		rec := do(http.MethodPost, "/api/policy/lru", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		snapshot := snapshotRsp{}
		decode(rec, &snapshot)
		Expect(snapshot.Config.Policy).To(Equal("LRU"))

		rec = do(http.MethodPost, "/api/policy/clock", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should reset", func() {
		do(http.MethodPost, "/api/allocate/P1", "")
		do(http.MethodPost, "/api/access/P1", "")

		rec := do(http.MethodPost, "/api/reset", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		snapshot := snapshotRsp{}
		decode(rec, &snapshot)
		Expect(snapshot.RAM).To(BeEmpty())
		Expect(snapshot.Cache).To(BeEmpty())
		Expect(snapshot.HitRate).To(Equal("N/A"))
	})

	It("should report the access history", func() {
		do(http.MethodPost, "/api/allocate/P1", "")
		do(http.MethodPost, "/api/access/P1", "")

		rec := do(http.MethodGet, "/api/history", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		history := []string{}
		decode(rec, &history)
		Expect(history).To(HaveLen(1))
	})

	It("should list progress bars", func() {
		bar := monitor.CreateProgressBar("script", 10)
		bar.IncrementInProgress(3)
		bar.MoveInProgressToFinished(2)

		rec := do(http.MethodGet, "/api/progress", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		bars := []map[string]any{}
		decode(rec, &bars)
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("script"))
		Expect(bars[0]["total"]).To(BeNumerically("==", 10))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 2))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))

		monitor.CompleteProgressBar(bar)

		decode(do(http.MethodGet, "/api/progress", ""), &bars)
		Expect(bars).To(BeEmpty())
	})

	It("should report resource usage", func() {
		rec := do(http.MethodGet, "/api/resource", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := map[string]any{}
		decode(rec, &rsp)
		Expect(rsp["memory_size"]).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		rec := do(http.MethodGet, "/api/profile", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the dashboard", func() {
		rec := do(http.MethodGet, "/", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})
})
