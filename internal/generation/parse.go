package generation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/phrazzld/scry-forge/internal/domain"
)

const taskEnvelopeSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

// schemaPrinter formats schema violation messages.
var schemaPrinter = message.NewPrinter(language.English)

// taskEnvelopeSchema is the compiled schema every batch reply must satisfy.
var taskEnvelopeSchema = mustCompileSchema(taskEnvelopeSchemaJSON, "task_envelope.schema.json")

func mustCompileSchema(raw string, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal([]byte(raw), &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ParseTasks decodes a provider reply of the form {"tasks": [...]} into domain
// tasks. A missing, malformed or schema-violating envelope is a provider
// failure. Individual items that do not decode into a known task variant are
// skipped and counted in the returned skipped value.
func ParseTasks(raw string) (tasks []domain.Task, skipped int, err error) {
	obj, err := ExtractObject(raw)
	if err != nil {
		return nil, 0, err
	}

	var doc any
	if err := json.Unmarshal([]byte(obj), &doc); err != nil {
		return nil, 0, fmt.Errorf("%w: %w: %v", ErrProviderFailure, ErrInvalidResponse, err)
	}
	if err := taskEnvelopeSchema.Validate(doc); err != nil {
		return nil, 0, fmt.Errorf("%w: %w: %s", ErrProviderFailure, ErrInvalidResponse, schemaMessage(err))
	}

	var envelope struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(obj), &envelope); err != nil {
		return nil, 0, fmt.Errorf("%w: %w: %v", ErrProviderFailure, ErrInvalidResponse, err)
	}

	tasks = make([]domain.Task, 0, len(envelope.Tasks))
	for _, item := range envelope.Tasks {
		t, err := domain.UnmarshalTask(item)
		if err != nil {
			skipped++
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, skipped, nil
}

// DecodeObject extracts the first JSON object in raw and decodes it into dst.
func DecodeObject(raw string, dst any) error {
	obj, err := ExtractObject(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), dst); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrProviderFailure, ErrInvalidResponse, err)
	}
	return nil
}

func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var parts []string
	collectSchemaErrors(ve, &parts)
	return strings.Join(parts, "; ")
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
