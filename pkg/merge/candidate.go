package merge

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dukex/flowedit/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed candidate.schema.json
var candidateSchema string

// ErrInvalidCandidate indicates a generated document is not a workflow graph.
var ErrInvalidCandidate = errors.New("invalid generated workflow")

// CandidateError lists the schema violations of a rejected document.
type CandidateError struct {
	Problems []string
}

func (e *CandidateError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidCandidate, strings.Join(e.Problems, "; "))
}

func (e *CandidateError) Unwrap() error {
	return ErrInvalidCandidate
}

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(candidateSchema))
})

// DecodeCandidate validates raw against the generated workflow schema and decodes it.
// Dangling references are not checked here; ReplaceAll drops them.
func DecodeCandidate(raw []byte) (*models.GeneratedWorkflow, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile candidate schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, &CandidateError{Problems: []string{err.Error()}}
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return nil, &CandidateError{Problems: problems}
	}

	var candidate models.GeneratedWorkflow
	if err := json.Unmarshal(raw, &candidate); err != nil {
		return nil, &CandidateError{Problems: []string{err.Error()}}
	}

	return &candidate, nil
}
