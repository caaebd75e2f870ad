package report

import (
	"context"
	"errors"

	"github.com/andresmejia3/keybench/internal/pipeline"
)

// Sink receives one report per configuration pair.
type Sink interface {
	Write(ctx context.Context, r pipeline.Report) error
	Close() error
}

type multiSink []Sink

// Multi fans every report out to all sinks. Every sink is attempted even
// when an earlier one fails.
func Multi(sinks ...Sink) Sink {
	return multiSink(sinks)
}

func (m multiSink) Write(ctx context.Context, r pipeline.Report) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Write(ctx, r))
	}
	return errors.Join(errs...)
}

func (m multiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
