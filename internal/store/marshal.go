package store

import (
	"fmt"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/synth"
)

// Run is a recorded conformance run.
type Run struct {
	ID         string           `json:"id" yaml:"id"`
	Endpoint   string           `json:"endpoint" yaml:"endpoint"`
	RecordedAt string           `json:"recorded_at" yaml:"recorded_at"`
	Pass       bool             `json:"pass" yaml:"pass"`
	Passed     int              `json:"passed" yaml:"passed"`
	Failed     int              `json:"failed" yaml:"failed"`
	Skipped    int              `json:"skipped" yaml:"skipped"`
	Outcomes   []report.Outcome `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	Plans      []PlanRecord     `json:"plans,omitempty" yaml:"plans,omitempty"`
}

// PlanRecord is a synthesized plan as stored.
type PlanRecord struct {
	Position    int    `json:"position" yaml:"position"`
	Name        string `json:"name" yaml:"name"`
	Kind        string `json:"kind" yaml:"kind"`
	Target      string `json:"target" yaml:"target"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`

	// Request is the canonical JSON body the plan sends.
	Request string `json:"request" yaml:"request"`
}

// PlanRecords converts synthesized plans for storage, keeping their order.
func PlanRecords(plans []synth.Plan) ([]PlanRecord, error) {
	out := make([]PlanRecord, 0, len(plans))
	for i, p := range plans {
		req, err := marshalRequest(p)
		if err != nil {
			return nil, err
		}
		out = append(out, PlanRecord{
			Position:    i,
			Name:        p.Name,
			Kind:        string(p.Kind),
			Target:      p.Target,
			Fingerprint: p.Fingerprint,
			Request:     req,
		})
	}
	return out, nil
}

// marshalRequest encodes a plan's request body as canonical JSON.
func marshalRequest(p synth.Plan) (string, error) {
	data, err := ndc.MarshalCanonical(p.Request())
	if err != nil {
		return "", fmt.Errorf("marshal request for %s: %w", p.Name, err)
	}
	return string(data), nil
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
