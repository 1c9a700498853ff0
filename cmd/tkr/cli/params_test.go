// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

type pathFlags struct {
	dir string
}

func (p *pathFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&p.dir, "tickets-dir", "", "store directory")
}

func TestBindFlagsTypes(t *testing.T) {
	var params struct {
		Title    string        `flag:"title,t" desc:"title"`
		Full     bool          `flag:"full" default:"true" desc:"full"`
		Priority int           `flag:"priority,p" default:"2" desc:"priority"`
		Debounce time.Duration `flag:"debounce" default:"200ms" desc:"debounce"`
		Keys     []string      `flag:"recipient" desc:"recipients"`
		ignored  string
		Paths    pathFlags
	}
	flagSet := FlagsFromParams("test", &params)

	if params.Priority != 2 || !params.Full || params.Debounce != 200*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", params)
	}

	err := flagSet.Parse([]string{
		"-t", "Fix build", "--full=false", "-p", "0",
		"--debounce", "1s", "--recipient", "a,b", "--recipient", "c",
		"--tickets-dir", "/tmp/t",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Title != "Fix build" || params.Full || params.Priority != 0 || params.Debounce != time.Second {
		t.Errorf("params = %+v", params)
	}
	if strings.Join(params.Keys, ",") != "a,b,c" {
		t.Errorf("Keys = %v", params.Keys)
	}
	if params.Paths.dir != "/tmp/t" {
		t.Errorf("FlagBinder field not bound: %q", params.Paths.dir)
	}
	_ = params.ignored
}

func TestBindFlagsEmbedded(t *testing.T) {
	type shared struct {
		Project string `flag:"project" desc:"project"`
	}
	var params struct {
		shared
		JSONOutput
	}
	flagSet := FlagsFromParams("test", &params)
	if err := flagSet.Parse([]string{"--project", "core", "--json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if params.Project != "core" || !params.OutputJSON {
		t.Errorf("params = %+v", params)
	}
}

func TestBindFlagsErrors(t *testing.T) {
	var notStruct int
	if err := BindFlags(&notStruct, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a non-struct")
	}

	var unsupported struct {
		Ratio float32 `flag:"ratio"`
	}
	if err := BindFlags(&unsupported, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted float32")
	}

	var badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault, pflag.NewFlagSet("x", pflag.ContinueOnError)); err == nil {
		t.Error("BindFlags accepted a non-numeric int default")
	}
}
