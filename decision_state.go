// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bishop

import (
	"fmt"
	"strings"
)

// DecisionState is an ordered, append-only log of which decision nodes were
// visited during a Run and the boolean outcome observed at each. It exists
// purely for diagnostics and is surfaced only in error responses.
type DecisionState struct {
	visits []decisionVisit
}

type decisionVisit struct {
	Callback string
	Outcome  bool
}

func newDecisionState() *DecisionState {
	return &DecisionState{}
}

func (d *DecisionState) record(callback string, outcome bool) {
	d.visits = append(d.visits, decisionVisit{Callback: callback, Outcome: outcome})
}

// String renders the visited callbacks as "name=outcome" pairs in visit
// order, suitable as the diagnostic body of a synthetic 5xx response.
func (d *DecisionState) String() string {
	if d == nil || len(d.visits) == 0 {
		return "(no decisions recorded)"
	}
	var b strings.Builder
	for i, v := range d.visits {
		if i > 0 {
			b.WriteString(" -> ")
		}
		fmt.Fprintf(&b, "%s=%t", v.Callback, v.Outcome)
	}
	return b.String()
}
