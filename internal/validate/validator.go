package validate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/roach88/ndc-test/internal/ndc"
	"github.com/roach88/ndc-test/internal/report"
	"github.com/roach88/ndc-test/internal/transport"
)

// Check names for the document-level units.
const (
	CheckCapabilities = "capabilities"
	CheckVersion      = "capabilities: version"
	CheckFeatures     = "capabilities: features"
	CheckSchema       = "schema"
	CheckObjectTypes  = "schema: object_types"
	CheckCollections  = "schema: collections"
	CheckFunctions    = "schema: functions"
	CheckProcedures   = "schema: procedures"
)

// Getter fetches a document from the connector and decodes it into out.
type Getter interface {
	Get(ctx context.Context, path string, out any) error
}

// Validator fetches and checks connector documents.
type Validator struct {
	client     Getter
	constraint *semver.Constraints
	structure  *structure
	logger     *zap.Logger
}

// Option configures a Validator.
type Option func(*options)

type options struct {
	versionConstraint string
	logger            *zap.Logger
}

// WithVersionConstraint sets the semver range the capabilities version must
// satisfy. Defaults to ndc.DefaultVersionConstraint.
func WithVersionConstraint(c string) Option {
	return func(o *options) {
		if c != "" {
			o.versionConstraint = c
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates a Validator reading documents through client. client may be
// nil when only the Check methods are used.
func New(client Getter, opts ...Option) (*Validator, error) {
	o := options{
		versionConstraint: ndc.DefaultVersionConstraint,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	constraint, err := semver.NewConstraint(o.versionConstraint)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "invalid version constraint %q", o.versionConstraint),
			"use a semver range such as ^0.1.0",
		)
	}
	st, err := newStructure()
	if err != nil {
		return nil, err
	}

	return &Validator{
		client:     client,
		constraint: constraint,
		structure:  st,
		logger:     o.logger,
	}, nil
}

// FetchCapabilities retrieves GET /capabilities, checks it and records the
// outcomes in rep.
//
// A transport failure is returned marked with report.ErrUnreachable. A
// document that fails its structural check is returned as an error marked
// with report.ErrStructural; the run may continue without it.
func (v *Validator) FetchCapabilities(ctx context.Context, rep *report.Report) (*ndc.CapabilitiesResponse, error) {
	v.logger.Info("validating capabilities")

	raw, err := v.fetch(ctx, ndc.PathCapabilities, CheckCapabilities, rep)
	if err != nil {
		return nil, err
	}
	caps, outcomes := v.CheckCapabilities(raw)
	rep.RecordAll(outcomes)
	if caps == nil {
		return nil, errors.Mark(errors.New("capabilities document is malformed"), report.ErrStructural)
	}
	return caps, nil
}

// FetchSchema retrieves GET /schema, checks it and records the outcomes in
// rep. Errors are marked as for FetchCapabilities.
func (v *Validator) FetchSchema(ctx context.Context, rep *report.Report) (*ndc.SchemaResponse, error) {
	v.logger.Info("validating schema")

	raw, err := v.fetch(ctx, ndc.PathSchema, CheckSchema, rep)
	if err != nil {
		return nil, err
	}
	schema, outcomes := v.CheckSchema(raw)
	rep.RecordAll(outcomes)
	if schema == nil {
		return nil, errors.Mark(errors.New("schema document is malformed"), report.ErrStructural)
	}
	return schema, nil
}

func (v *Validator) fetch(ctx context.Context, path, check string, rep *report.Report) (json.RawMessage, error) {
	if v.client == nil {
		return nil, errors.AssertionFailedf("validator has no client")
	}

	var raw json.RawMessage
	err := v.client.Get(ctx, path, &raw)
	if err == nil {
		return raw, nil
	}

	var decodeErr *transport.DecodeError
	if errors.As(err, &decodeErr) {
		rep.Record(report.Fail(check, report.KindStructural,
			issuef("", ErrMalformedDocument, "%v", decodeErr.Err).Error()))
		return nil, errors.Mark(errors.Wrapf(err, "fetch %s", path), report.ErrStructural)
	}

	err = errors.Mark(errors.Wrapf(err, "fetch %s", path), report.ErrUnreachable)
	v.logger.Error("connector unreachable", zap.String("path", path), zap.Error(err))
	rep.Record(report.Fail(check, report.KindUnreachable, err.Error()))
	return nil, err
}

// CheckCapabilities checks a raw capabilities document. The returned document
// is nil when it is structurally unusable.
func (v *Validator) CheckCapabilities(raw []byte) (*ndc.CapabilitiesResponse, []report.Outcome) {
	if issues := v.structure.checkCapabilities(raw); len(issues) > 0 {
		return nil, []report.Outcome{report.Fail(CheckCapabilities, report.KindStructural, reason(issues))}
	}

	var caps ndc.CapabilitiesResponse
	if err := json.Unmarshal(raw, &caps); err != nil {
		is := issuef("", ErrMalformedDocument, "%v", err)
		return nil, []report.Outcome{report.Fail(CheckCapabilities, report.KindStructural, is.Error())}
	}

	outcomes := []report.Outcome{
		report.Pass(CheckCapabilities),
		v.checkVersion(caps.Version),
		checkFeatures(caps.Capabilities),
	}
	return &caps, outcomes
}

func (v *Validator) checkVersion(version string) report.Outcome {
	ver, err := semver.NewVersion(version)
	if err != nil {
		is := issuef("version", ErrInvalidVersion, "%q is not a semantic version", version)
		return report.Fail(CheckVersion, report.KindStructural, is.Error())
	}
	if !v.constraint.Check(ver) {
		is := issuef("version", ErrUnsupportedVersion, "%s does not satisfy %s", ver, v.constraint)
		return report.Fail(CheckVersion, report.KindStructural, is.Error())
	}
	v.logger.Debug("capabilities version accepted", zap.String("version", ver.String()))
	return report.Pass(CheckVersion)
}

func checkFeatures(c ndc.Capabilities) report.Outcome {
	var issues []Issue
	if c.Relationships != nil && c.Relationships.OrderByAggregate != nil && !c.SupportsAggregates() {
		issues = append(issues, issuef("capabilities.relationships.order_by_aggregate",
			ErrFeatureCombination, "declared without query.aggregates"))
	}
	if len(issues) > 0 {
		return report.Fail(CheckFeatures, report.KindStructural, reason(issues))
	}
	return report.Pass(CheckFeatures)
}

// CheckSchema checks a raw schema document. The returned document is nil when
// it is structurally unusable; otherwise every soft failure is reported as an
// outcome and the document is returned for best-effort synthesis.
func (v *Validator) CheckSchema(raw []byte) (*ndc.SchemaResponse, []report.Outcome) {
	if issues := v.structure.checkSchema(raw); len(issues) > 0 {
		return nil, []report.Outcome{report.Fail(CheckSchema, report.KindStructural, reason(issues))}
	}

	var schema ndc.SchemaResponse
	if err := json.Unmarshal(raw, &schema); err != nil {
		is := issuef("", ErrMalformedDocument, "%v", err)
		return nil, []report.Outcome{report.Fail(CheckSchema, report.KindStructural, is.Error())}
	}

	outcomes := []report.Outcome{report.Pass(CheckSchema)}
	outcomes = append(outcomes, v.checkObjectTypes(&schema)...)
	outcomes = append(outcomes, v.checkCollections(&schema)...)
	outcomes = append(outcomes, v.checkCommands(&schema)...)
	return &schema, outcomes
}

func (v *Validator) checkObjectTypes(s *ndc.SchemaResponse) []report.Outcome {
	var issues []Issue
	for _, dup := range s.ScalarTypes.Duplicates() {
		issues = append(issues, issuef("scalar_types."+dup, ErrDuplicateName, "duplicate scalar type"))
	}
	for _, dup := range s.ObjectTypes.Duplicates() {
		issues = append(issues, issuef("object_types."+dup, ErrDuplicateName, "duplicate object type"))
	}
	for _, name := range s.ObjectTypes.Keys() {
		if s.ScalarTypes.Has(name) {
			issues = append(issues, issuef("object_types."+name, ErrDuplicateName, "also declared as a scalar type"))
		}
	}

	outcomes := []report.Outcome{outcome(CheckObjectTypes, issues)}

	r := resolver{schema: s}
	for _, obj := range s.ObjectTypes.Entries() {
		check := "object_type " + obj.Key
		v.logger.Debug("validating", zap.String("check", check))
		outcomes = append(outcomes, outcome(check, r.fields(obj.Key, obj.Value)))
	}
	return outcomes
}

func (v *Validator) checkCollections(s *ndc.SchemaResponse) []report.Outcome {
	names := make([]string, len(s.Collections))
	for i, c := range s.Collections {
		names[i] = c.Name
	}
	var issues []Issue
	for _, dup := range duplicates(names) {
		issues = append(issues, issuef("collections."+dup, ErrDuplicateName, "duplicate collection"))
	}
	outcomes := []report.Outcome{outcome(CheckCollections, issues)}

	r := resolver{schema: s}
	for _, c := range s.Collections {
		check := "collection " + c.Name
		v.logger.Debug("validating", zap.String("check", check))

		obj, hasRow := s.ObjectTypes.Get(c.Type)
		outcomes = append(outcomes, outcome(check, collectionIssues(s, c, obj, hasRow)))

		columns := check + ": columns"
		if hasRow {
			outcomes = append(outcomes, outcome(columns, r.fields(c.Name, obj)))
		} else {
			outcomes = append(outcomes, report.Skip(columns, fmt.Sprintf("row type %q not declared", c.Type)))
		}

		outcomes = append(outcomes, outcome(check+": arguments", r.arguments(c.Name, c.Arguments)))
	}
	return outcomes
}

// collectionIssues checks the row type and the constraints declared on c.
func collectionIssues(s *ndc.SchemaResponse, c ndc.CollectionInfo, row ndc.ObjectType, hasRow bool) []Issue {
	if !hasRow {
		return []Issue{issuef(c.Name+".type", ErrMissingRowType, "object type %q is not declared", c.Type)}
	}

	var issues []Issue
	for _, name := range sortedKeys(c.UniquenessConstraints) {
		for _, col := range c.UniquenessConstraints[name].UniqueColumns {
			if !row.Fields.Has(col) {
				issues = append(issues, issuef(c.Name+".uniqueness_constraints."+name,
					ErrUnknownColumn, "unknown column %q", col))
			}
		}
	}
	for _, fk := range c.ForeignKeys.Entries() {
		field := c.Name + ".foreign_keys." + fk.Key
		if _, ok := s.Collection(fk.Value.ForeignCollection); !ok {
			issues = append(issues, issuef(field, ErrUnknownCollection,
				"collection %q is not declared", fk.Value.ForeignCollection))
		}
		for _, col := range sortedKeys(fk.Value.ColumnMapping) {
			if !row.Fields.Has(col) {
				issues = append(issues, issuef(field, ErrUnknownColumn, "unknown column %q", col))
			}
		}
	}
	return issues
}

func (v *Validator) checkCommands(s *ndc.SchemaResponse) []report.Outcome {
	r := resolver{schema: s}

	fnNames := make([]string, len(s.Functions))
	for i, f := range s.Functions {
		fnNames[i] = f.Name
	}
	var fnIssues []Issue
	for _, dup := range duplicates(fnNames) {
		fnIssues = append(fnIssues, issuef("functions."+dup, ErrDuplicateName, "duplicate function"))
	}
	// Functions are queried like collections, so the names share a namespace.
	for _, name := range fnNames {
		if _, ok := s.Collection(name); ok {
			fnIssues = append(fnIssues, issuef("functions."+name, ErrDuplicateName, "also declared as a collection"))
		}
	}
	outcomes := []report.Outcome{outcome(CheckFunctions, fnIssues)}
	for _, f := range s.Functions {
		check := "function " + f.Name
		v.logger.Debug("validating", zap.String("check", check))
		outcomes = append(outcomes, outcome(check, commandIssues(r, f.Name, f.Arguments, f.ResultType)))
	}

	procNames := make([]string, len(s.Procedures))
	for i, p := range s.Procedures {
		procNames[i] = p.Name
	}
	var procIssues []Issue
	for _, dup := range duplicates(procNames) {
		procIssues = append(procIssues, issuef("procedures."+dup, ErrDuplicateName, "duplicate procedure"))
	}
	outcomes = append(outcomes, outcome(CheckProcedures, procIssues))
	for _, p := range s.Procedures {
		check := "procedure " + p.Name
		v.logger.Debug("validating", zap.String("check", check))
		outcomes = append(outcomes, outcome(check, commandIssues(r, p.Name, p.Arguments, p.ResultType)))
	}
	return outcomes
}

func commandIssues(r resolver, name string, args ndc.OrderedMap[ndc.ArgumentInfo], result ndc.Type) []Issue {
	issues := r.arguments(name, args)
	if is := r.check(name+".result_type", result); is != nil {
		issues = append(issues, *is)
	}
	return issues
}

func outcome(check string, issues []Issue) report.Outcome {
	if len(issues) == 0 {
		return report.Pass(check)
	}
	return report.Fail(check, report.KindStructural, reason(issues))
}
