// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"strings"
)

// Stage names a pipeline step.
type Stage string

const (
	StageAcquire   Stage = "acquire"
	StageClassify  Stage = "classify"
	StageAnalyze   Stage = "analyze"
	StageAggregate Stage = "aggregate"
)

// AllStages lists every stage in execution order.
var AllStages = []Stage{StageAcquire, StageClassify, StageAnalyze, StageAggregate}

// Stages is the set of stages a run may execute.
type Stages map[Stage]bool

// ParseStages builds a set from names. "all" or an empty list selects every stage.
func ParseStages(names []string) (Stages, error) {
	s := Stages{}
	for _, n := range names {
		for _, part := range strings.Split(n, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if part == "all" {
				return Only(AllStages...), nil
			}
			st := Stage(part)
			if !st.valid() {
				return nil, fmt.Errorf("unknown stage %q (want one of acquire, classify, analyze, aggregate)", part)
			}
			s[st] = true
		}
	}
	if len(s) == 0 {
		return Only(AllStages...), nil
	}
	return s, nil
}

// Only returns a set holding exactly the given stages.
func Only(stages ...Stage) Stages {
	s := make(Stages, len(stages))
	for _, st := range stages {
		s[st] = true
	}
	return s
}

// Has reports whether st is selected.
func (s Stages) Has(st Stage) bool { return s[st] }

// Names returns the selected stages in execution order.
func (s Stages) Names() []string {
	var out []string
	for _, st := range AllStages {
		if s[st] {
			out = append(out, string(st))
		}
	}
	return out
}

func (st Stage) valid() bool {
	for _, known := range AllStages {
		if st == known {
			return true
		}
	}
	return false
}
