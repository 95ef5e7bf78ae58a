package log

import (
	"bytes"
	"io/ioutil"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	type spec struct {
		name     string
		expLevel Level
		expErr   bool
	}
	specs := []spec{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{" notice ", Notice, false},
		{"Warning", Warning, false},
		{"error", Error, false},
		{"verbose", Error, true},
		{"", Error, true},
	}

	for index, s := range specs {
		level, err := ParseLevel(s.name)
		if s.expErr && err == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
		if !s.expErr && err != nil {
			t.Fatalf("[spec %d] expected no error; got %v", index, err)
		}
		if level != s.expLevel {
			t.Fatalf("[spec %d] expected level %s; got %s", index, s.expLevel, level)
		}
	}
}

func TestModuleLevels(t *testing.T) {
	defer func() {
		SetLevel(Notice)
		SetModuleLevel("test builder", Notice)
		SetSink(ioutil.Discard)
	}()

	var buf bytes.Buffer
	SetLevel(Warning)
	SetModuleLevel("test builder", Debug)
	SetSink(&buf)

	New("test builder").Debugf("built %d nodes", 3)
	New("test renderer").Noticef("rendered pass %d", 1)
	New("test renderer").Warning("slow tracer")

	out := buf.String()
	if !strings.Contains(out, "[test builder] [DEBU] built 3 nodes") {
		t.Fatalf("expected module debug output; got %q", out)
	}
	if strings.Contains(out, "rendered pass") {
		t.Fatalf("expected notice output below the global level to be dropped; got %q", out)
	}
	if !strings.Contains(out, "[test renderer] [WARN] slow tracer") {
		t.Fatalf("expected warning output; got %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Fatalf("expected plain output for a buffer sink; got %q", out)
	}
}

func TestLevelString(t *testing.T) {
	if Warning.String() != "warning" || Level(42).String() != "error" || Level(-1).String() != "debug" {
		t.Fatal("unexpected level names")
	}
}
