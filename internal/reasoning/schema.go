package reasoning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const analyzeSchemaJSON = `{
  "type": "object",
  "required": ["gaps", "match_score"],
  "properties": {
    "gaps": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "description", "importance"],
        "properties": {
          "category": {"enum": ["skills", "experience", "keywords", "metrics"]},
          "description": {"type": "string", "minLength": 1},
          "importance": {"enum": ["high", "medium", "low"]},
          "question": {"type": "string"}
        }
      }
    },
    "match_score": {"type": "integer", "minimum": 0, "maximum": 100}
  }
}`

const synthesizeSchemaJSON = `{
  "type": "object",
  "required": ["resume_text", "score", "gaps_addressed", "gaps_remaining", "improvements"],
  "properties": {
    "resume_text": {"type": "string", "minLength": 1},
    "resume": {"type": ["object", "null"]},
    "score": {"type": "integer", "minimum": 0, "maximum": 100},
    "gaps_addressed": {"type": "array", "items": {"type": "string"}},
    "gaps_remaining": {"type": "array", "items": {"type": "string"}},
    "improvements": {"type": "array", "items": {"type": "string"}}
  }
}`

const resumeSchemaJSON = `{
  "type": "object",
  "properties": {
    "contact": {"type": "object"},
    "summary": {"type": "string"},
    "experience": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["company", "title"],
        "properties": {
          "company": {"type": "string"},
          "title": {"type": "string"},
          "responsibilities": {"type": "array", "items": {"type": "string"}},
          "achievements": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "education": {"type": "array", "items": {"type": "object"}},
    "skills": {"type": "array", "items": {"type": "string"}},
    "certifications": {"type": "array", "items": {"type": "string"}},
    "languages": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	analyzeSchema    = mustSchema(analyzeSchemaJSON)
	synthesizeSchema = mustSchema(synthesizeSchemaJSON)
	resumeSchema     = mustSchema(resumeSchemaJSON)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compile schema: %v", err))
	}
	return s
}

// ValidateAnalyze checks raw analyze output against its contract.
func ValidateAnalyze(raw []byte) error { return validate(analyzeSchema, raw) }

// ValidateSynthesize checks raw synthesis output against its contract.
func ValidateSynthesize(raw []byte) error { return validate(synthesizeSchema, raw) }

// ValidateResume checks raw parse output.
func ValidateResume(raw []byte) error { return validate(resumeSchema, raw) }

func validate(schema *gojsonschema.Schema, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrMalformed, strings.Join(msgs, "; "))
}
