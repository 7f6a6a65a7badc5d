package modulerunner

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapReporterLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := NewZapReporter(zap.New(core))

	r.Report("all good", ReportOptions{Timestamp: true})
	r.Report("went wrong", ReportOptions{Err: errors.New("boom")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if entries[0].Level != zap.InfoLevel || entries[0].Message != "all good" {
		t.Errorf("entry 0: %+v", entries[0])
	}
	if entries[1].Level != zap.ErrorLevel || entries[1].Message != "went wrong" {
		t.Errorf("entry 1: %+v", entries[1])
	}
}

func TestZapReporterNilLogger(t *testing.T) {
	r := NewZapReporter(nil)
	r.Report("dropped", ReportOptions{})
}
