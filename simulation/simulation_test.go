package simulation

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/hvmm/datarecording"
	"github.com/sarchlab/hvmm/mem/vm"
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/tracing"
)

var _ = Describe("Simulation", func() {
	var simulation *Simulation

	AfterEach(func() {
		if simulation != nil {
			Expect(simulation.Terminate()).To(Succeed())
			simulation = nil
		}
	})

	It("should build an engine without recording or monitoring", func() {
		simulation = MakeBuilder().Build()

		Expect(simulation.ID()).ToNot(BeEmpty())
		Expect(simulation.GetEngine().Config()).
			To(Equal(placement.DefaultConfig()))
		Expect(simulation.GetDataRecorder()).To(BeNil())
		Expect(simulation.GetMonitor()).To(BeNil())
		Expect(simulation.MonitorURL()).To(BeEmpty())
	})

	It("should count what the engine does", func() {
		simulation = MakeBuilder().Build()

		simulation.Do(func(e *placement.Engine) {
			_, err := e.Allocate(vm.PID(1))
			Expect(err).ToNot(HaveOccurred())

			_, err = e.Allocate(vm.PID(1))
			Expect(err).To(MatchError(placement.ErrAlreadyAllocated))
		})

		total, failed := simulation.GetCounter().OperationCount(placement.OpAllocate)
		Expect(total).To(Equal(uint64(2)))
		Expect(failed).To(Equal(uint64(1)))
		Expect(simulation.GetCounter().EventCount(placement.EventAllocated)).
			To(Equal(uint64(1)))
	})

	It("should log events at the requested level", func() {
		buf := &bytes.Buffer{}
		simulation = MakeBuilder().
			WithLogLevel(tracing.LevelInfo).
			WithLogOutput(buf).
			Build()

		simulation.Do(func(e *placement.Engine) {
			_, _ = e.Allocate(vm.PID(3))
		})

		Expect(buf.String()).To(ContainSubstring("Allocated P3"))
	})

	It("should apply the configuration and the seed", func() {
		c := placement.Config{
			RAMCapacity:   1,
			SwapCapacity:  0,
			CacheCapacity: 0,
			Policy:        placement.DefaultConfig().Policy,
		}

		a := MakeBuilder().WithConfig(c).WithSeed(7).Build()
		b := MakeBuilder().WithConfig(c).WithSeed(7).Build()

		Expect(a.GetEngine().Config()).To(Equal(c))
		Expect(a.GetEngine().Describe(vm.PID(1))).
			To(Equal(must(b.GetEngine().Describe(vm.PID(1)))))
	})

	It("should record into a custom output file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "custom")

		simulation = MakeBuilder().WithOutputFileName(path).Build()
		Expect(simulation.GetDataRecorder()).ToNot(BeNil())

		simulation.Do(func(e *placement.Engine) {
			_, _ = e.Allocate(vm.PID(1))
			_, _ = e.Access(vm.PID(1))
		})

		Expect(simulation.Terminate()).To(Succeed())
		Expect(simulation.Terminate()).To(Succeed())

		simulation.Do(func(e *placement.Engine) {
			_, _ = e.Allocate(vm.PID(2))
		})

		reader, err := datarecording.Open(path + ".sqlite3")
		Expect(err).NotTo(HaveOccurred())
		defer reader.Close()

		reader.MapTable(tracing.StatsTableName, tracing.StatsEntry{})

		_, total, err := reader.Query(context.Background(),
			tracing.StatsTableName, datarecording.QueryParams{})
		Expect(err).ToNot(HaveOccurred())
		Expect(total).To(Equal(2))
	})

	It("should generate the output file name", func() {
		simulation = MakeBuilder().WithRecording().Build()

		filename := "hvmm_sim_" + simulation.ID() + ".sqlite3"
		DeferCleanup(os.Remove, filename)

		Expect(simulation.Terminate()).To(Succeed())
		Expect(filename).To(BeAnExistingFile())
	})

	It("should serve the engine when monitoring", func() {
		simulation = MakeBuilder().WithMonitor().Build()

		Expect(simulation.GetMonitor()).ToNot(BeNil())
		Expect(simulation.MonitorURL()).To(HavePrefix("http://localhost:"))

		simulation.Do(func(e *placement.Engine) {
			_, _ = e.Allocate(vm.PID(1))
		})

		rsp, err := http.Get(simulation.MonitorURL() + "/api/snapshot")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should panic on a monitor port without a monitor", func() {
		Expect(func() { MakeBuilder().WithMonitorPort(8080).Build() }).
			To(Panic())
	})

	It("should panic on an invalid configuration", func() {
		c := placement.DefaultConfig()
		c.RAMCapacity = 0

		Expect(func() { MakeBuilder().WithConfig(c).Build() }).To(Panic())
	})
})

func must[T any](v T, err error) T {
	Expect(err).ToNot(HaveOccurred())
	return v
}
