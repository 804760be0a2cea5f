package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/cockroachdb/errors"
)

//go:embed documents.cue
var documentsCUE string

// maxStructureIssues caps how many CUE errors are surfaced per document.
const maxStructureIssues = 5

// structure checks raw documents against the embedded CUE definitions.
type structure struct {
	mu           sync.Mutex
	ctx          *cue.Context
	capabilities cue.Value
	schema       cue.Value
}

func newStructure() (*structure, error) {
	ctx := cuecontext.New()
	defs := ctx.CompileString(documentsCUE, cue.Filename("documents.cue"))
	if err := defs.Err(); err != nil {
		return nil, errors.Wrap(err, "compile document definitions")
	}
	return &structure{
		ctx:          ctx,
		capabilities: defs.LookupPath(cue.ParsePath("#CapabilitiesResponse")),
		schema:       defs.LookupPath(cue.ParsePath("#SchemaResponse")),
	}, nil
}

func (s *structure) checkCapabilities(raw []byte) []Issue {
	return s.check(s.capabilities, raw)
}

func (s *structure) checkSchema(raw []byte) []Issue {
	return s.check(s.schema, raw)
}

// check unifies the document with def. The document is decoded into plain Go
// values first so that duplicate JSON keys collapse instead of conflicting;
// duplicates are reported later by the resolver.
func (s *structure) check(def cue.Value, raw []byte) []Issue {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []Issue{issuef("", ErrMalformedDocument, "invalid JSON: %v", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.ctx.Encode(doc)
	if err := v.Err(); err != nil {
		return []Issue{issuef("", ErrMalformedDocument, "%v", err)}
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return cueIssues(err)
	}
	return nil
}

func cueIssues(err error) []Issue {
	var issues []Issue
	for _, e := range cueerrors.Errors(err) {
		if len(issues) == maxStructureIssues {
			break
		}
		format, args := e.Msg()
		issues = append(issues, Issue{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
			Code:    ErrMissingField,
		})
	}
	if len(issues) == 0 {
		issues = append(issues, issuef("", ErrMissingField, "%v", err))
	}
	return issues
}
