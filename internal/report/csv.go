package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/andresmejia3/keybench/internal/pipeline"
)

var (
	detectorHeader = []string{"Detector Type", "#keypoints", "Detection Time (ms)"}
	combinedHeader = []string{
		"Detector Type", "Descriptor Type",
		"averageKeypointsDetectors", "averageKeypointsDescriptors",
		"averageDetectorsDetectionTime (ms)", "averageTotalDetectionTime (ms)",
		"status",
	}
)

// CSVSink writes the detector summary and the combined summary as two CSV tables.
type CSVSink struct {
	detector *csv.Writer
	combined *csv.Writer
	closers  []io.Closer
}

// NewCSVWriter writes both tables to the given writers. Headers are written immediately.
func NewCSVWriter(detector, combined io.Writer) (*CSVSink, error) {
	s := &CSVSink{detector: csv.NewWriter(detector), combined: csv.NewWriter(combined)}
	if err := s.writeRow(s.detector, detectorHeader); err != nil {
		return nil, err
	}
	if err := s.writeRow(s.combined, combinedHeader); err != nil {
		return nil, err
	}
	return s, nil
}

// NewCSVSink creates (or truncates) the two CSV files.
func NewCSVSink(detectorPath, combinedPath string) (*CSVSink, error) {
	detFile, err := os.Create(detectorPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector report: %w", err)
	}
	combFile, err := os.Create(combinedPath)
	if err != nil {
		detFile.Close()
		return nil, fmt.Errorf("failed to create combined report: %w", err)
	}

	s, err := NewCSVWriter(detFile, combFile)
	if err != nil {
		detFile.Close()
		combFile.Close()
		return nil, err
	}
	s.closers = []io.Closer{detFile, combFile}
	return s, nil
}

// Write appends one row to each table and flushes, so a crash later in the
// run keeps the rows already written.
func (s *CSVSink) Write(_ context.Context, r pipeline.Report) error {
	detRow := []string{
		string(r.Pair.Detector),
		formatCount(r.AverageKeypointsDetected()),
		formatMs(r.AverageDetectorTimeMs()),
	}
	if err := s.writeRow(s.detector, detRow); err != nil {
		return err
	}

	combRow := []string{
		string(r.Pair.Detector),
		string(r.Pair.Descriptor),
		formatCount(r.AverageKeypointsDetected()),
		formatCount(r.AverageKeypointsDescribed()),
		formatMs(r.AverageDetectorTimeMs()),
		formatMs(r.AverageTotalTimeMs()),
		string(r.Status),
	}
	return s.writeRow(s.combined, combRow)
}

func (s *CSVSink) writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Close flushes and closes any files the sink opened.
func (s *CSVSink) Close() error {
	s.detector.Flush()
	s.combined.Flush()
	errs := []error{s.detector.Error(), s.combined.Error()}
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatMs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
