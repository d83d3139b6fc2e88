// Package jobs instruments asynchronous provider jobs (submit, poll, fetch result)
// with OpenTelemetry spans and metrics.
package jobs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumenter records pending jobs, job duration and outcomes.
type Instrumenter struct {
	tracer      trace.Tracer
	jobsPending metric.Int64UpDownCounter
	jobDuration metric.Float64Histogram
	jobsTotal   metric.Int64Counter
	pollsTotal  metric.Int64Counter
}

// NewInstrumenter creates the job instruments under the given metric prefix.
func NewInstrumenter(tracer trace.Tracer, meter metric.Meter, prefix string) (*Instrumenter, error) {
	jobsPending, err := meter.Int64UpDownCounter(
		fmt.Sprintf("%s_jobs_pending", prefix),
		metric.WithDescription("Provider jobs submitted and not yet finished"),
	)
	if err != nil {
		return nil, err
	}

	jobDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_job_duration_seconds", prefix),
		metric.WithDescription("Time from submit to result for provider jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	jobsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_jobs_total", prefix),
		metric.WithDescription("Provider jobs by type and status"),
	)
	if err != nil {
		return nil, err
	}

	pollsTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_job_polls_total", prefix),
		metric.WithDescription("Status polls issued while waiting for provider jobs"),
	)
	if err != nil {
		return nil, err
	}

	return &Instrumenter{
		tracer:      tracer,
		jobsPending: jobsPending,
		jobDuration: jobDuration,
		jobsTotal:   jobsTotal,
		pollsTotal:  pollsTotal,
	}, nil
}

// Track wraps the wait for one job. fn receives a poll callback to call once per status request.
func (i *Instrumenter) Track(ctx context.Context, jobType, jobID string, fn func(ctx context.Context, poll func()) error) error {
	typeAttr := attribute.String("job.type", jobType)

	i.jobsPending.Add(ctx, 1, metric.WithAttributes(typeAttr))
	defer i.jobsPending.Add(ctx, -1, metric.WithAttributes(typeAttr))

	ctx, span := i.tracer.Start(ctx, "job."+jobType,
		trace.WithAttributes(
			typeAttr,
			attribute.String("job.id", jobID),
		),
	)
	defer span.End()

	polls := 0
	poll := func() {
		polls++
		i.pollsTotal.Add(ctx, 1, metric.WithAttributes(typeAttr))
	}

	start := time.Now()
	err := fn(ctx, poll)
	duration := time.Since(start).Seconds()

	status := "success"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.Int("job.polls", polls))

	attrs := metric.WithAttributes(typeAttr, attribute.String("status", status))
	i.jobDuration.Record(ctx, duration, attrs)
	i.jobsTotal.Add(ctx, 1, attrs)

	return err
}
