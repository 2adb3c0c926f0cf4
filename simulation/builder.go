package simulation

import (
	"io"
	"log"
	"os"

	"github.com/rs/xid"

	"github.com/sarchlab/hvmm/datarecording"
	"github.com/sarchlab/hvmm/mem/vm/placement"
	"github.com/sarchlab/hvmm/monitoring"
	"github.com/sarchlab/hvmm/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	config         placement.Config
	seed           int64
	logLevel       tracing.Level
	logOutput      io.Writer
	recordOn       bool
	outputFileName string
	monitorOn      bool
	monitorPort    int
}

// MakeBuilder creates a new builder. By default the simulation logs nothing,
// records nothing and runs without a monitor.
func MakeBuilder() Builder {
	return Builder{
		config:    placement.DefaultConfig(),
		seed:      1,
		logLevel:  tracing.LevelQuiet,
		logOutput: os.Stderr,
	}
}

// WithConfig sets the capacities and the policy of the engine.
func (b Builder) WithConfig(c placement.Config) Builder {
	b.config = c
	return b
}

// WithSeed sets the seed of the engine's random source.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithLogLevel sets how much the engine events are logged.
func (b Builder) WithLogLevel(level tracing.Level) Builder {
	b.logLevel = level
	return b
}

// WithLogOutput sets where the engine events are logged.
func (b Builder) WithLogOutput(w io.Writer) Builder {
	b.logOutput = w
	return b
}

// WithRecording records events and statistics into a database with a
// generated name.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName records into <filename>.sqlite3.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename
	return b
}

// WithMonitor starts a monitor server for the engine.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if err := b.config.Validate(); err != nil {
		panic(err)
	}

	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if b.logOutput == nil {
		panic("log output must not be nil")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{}
	s.id = xid.New().String()

	s.engine = placement.MakeBuilder().
		WithConfig(b.config).
		WithSeed(b.seed).
		Build("Engine")

	s.engine.AcceptHook(
		tracing.NewEventLogger(log.New(b.logOutput, "", 0), b.logLevel))

	s.counter = tracing.NewCountTracer()
	tracing.CollectTrace(s.engine, s.counter)

	if b.recordOn {
		b.buildRecording(s)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitorURL = s.monitor.StartServer()
	}

	return s
}

func (b Builder) buildRecording(s *Simulation) {
	outputPath := b.outputFileName
	if outputPath == "" {
		outputPath = "hvmm_sim_" + s.id
	}

	s.dataRecorder = datarecording.New(outputPath)

	s.execRecorder = datarecording.NewExecRecorder(s.dataRecorder)
	s.execRecorder.Start()

	s.dbTracer = tracing.NewDBTracer(s.dataRecorder)
	tracing.CollectTrace(s.engine, s.dbTracer)
}
