package tracing

import (
	"context"

	"github.com/sarchlab/hvmm/datarecording"
)

// A Report summarizes a recording made by a DBTracer.
type Report struct {
	Exec       []datarecording.ExecInfo
	Operations int
	Failed     int

	// Final is the stats row of the last operation, nil if nothing ran.
	Final *StatsEntry

	// Events counts the recorded events per kind.
	Events map[string]int
}

// ReadReport reads a recording back.
func ReadReport(ctx context.Context, r datarecording.DataReader) (Report, error) {
	r.MapTable(EventTableName, EventEntry{})
	r.MapTable(StatsTableName, StatsEntry{})
	r.MapTable(datarecording.ExecTableName, datarecording.ExecInfo{})

	report := Report{}

	exec, _, err := r.Query(ctx, datarecording.ExecTableName,
		datarecording.QueryParams{})
	if err != nil {
		return report, err
	}

	for _, e := range exec {
		report.Exec = append(report.Exec, *e.(*datarecording.ExecInfo))
	}

	last, total, err := r.Query(ctx, StatsTableName,
		datarecording.QueryParams{OrderBy: "Time DESC", Limit: 1})
	if err != nil {
		return report, err
	}

	report.Operations = total
	if len(last) > 0 {
		report.Final = last[0].(*StatsEntry)
	}

	_, report.Failed, err = r.Query(ctx, StatsTableName,
		datarecording.QueryParams{Where: "Error != ''", Limit: 1})
	if err != nil {
		return report, err
	}

	report.Events, err = r.CountBy(ctx, EventTableName, "Kind")
	if err != nil {
		return report, err
	}

	return report, nil
}
