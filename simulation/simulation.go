// Package simulation assembles an engine with the services that observe and
// serve it.
package simulation

import (
	"github.com/sarchlab/hvmm/datarecording"
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/monitoring"
	"github.com/sarchlab/hvmm/tracing"
)

// A Simulation owns an engine together with its tracers, its optional data
// recorder and its optional monitor.
type Simulation struct {
	id     string
	engine *placement.Engine

	counter      *tracing.CountTracer
	dataRecorder datarecording.DataRecorder
	dbTracer     *tracing.DBTracer
	execRecorder *datarecording.ExecRecorder

	monitor    *monitoring.Monitor
	monitorURL string

	terminated bool
}

// ID returns the unique id of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() *placement.Engine {
	return s.engine
}

// GetCounter returns the tracer that counts events and operations.
func (s *Simulation) GetCounter() *tracing.CountTracer {
	return s.counter
}

// GetDataRecorder returns the data recorder, or nil if nothing is recorded.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor, or nil if the simulation has none.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the address of the monitor server, or "" if the
// simulation has no monitor.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// Do runs f against the engine. When a monitor is running, f does not
// overlap with HTTP requests.
func (s *Simulation) Do(f func(e *placement.Engine)) {
	if s.monitor == nil {
		f(s.engine)
		return
	}

	s.monitor.Do(func() { f(s.engine) })
}

// Terminate flushes and closes the recording. Engine operations after
// Terminate are no longer recorded. Calling it more than once has no effect.
func (s *Simulation) Terminate() error {
	if s.terminated {
		return nil
	}

	s.terminated = true

	if s.dataRecorder == nil {
		return nil
	}

	tracing.StopTrace(s.engine, s.dbTracer)
	s.dbTracer.Terminate()
	s.execRecorder.End()

	return s.dataRecorder.Close()
}
