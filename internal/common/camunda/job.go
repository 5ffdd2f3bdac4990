// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/validation"
)

// DecodeVariables checks the job variables against schema, then unmarshals
// them into target. Schema violations become SCHEMA_VALIDATION_FAILED; a body
// that is not JSON becomes INVALID_INPUT.
func DecodeVariables(job entities.Job, taskType string, schema map[string]interface{}, target interface{}) error {
	variables := job.GetVariables()
	if variables == "" {
		variables = "{}"
	}

	result, err := validation.ValidateJSON(schema, variables)
	if err != nil {
		return errors.NewInvalidInputError(err)
	}
	if !result.Valid {
		return errors.NewSchemaValidationFailedError(taskType, result.Error())
	}

	if err := json.Unmarshal([]byte(variables), target); err != nil {
		return errors.NewInvalidInputError(err)
	}
	return nil
}

// CompleteJob sends the output object as the job's result variables.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		return err
	}
	_, err = request.Send(ctx)
	return err
}
