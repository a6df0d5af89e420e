// Package errs defines the error taxonomy shared by every stage of the
// reasoning-chain engine. Every kind shares the single *Error type and is
// told apart by its Kind tag: callers use errors.As to obtain the *Error and
// then compare Kind().
package errs

import "fmt"

// Kind identifies one of the error categories the core distinguishes.
type Kind string

const (
	KindPlanningFailed      Kind = "PlanningFailed"
	KindOrchestrationFailed Kind = "OrchestrationFailed"
	KindToolNotFound        Kind = "ToolNotFound"
	KindParameterValidation Kind = "ParameterValidation"
	KindToolExecutionError  Kind = "ToolExecutionError"
	KindDependencyUnsatisfied Kind = "DependencyUnsatisfied"
	KindCancelled           Kind = "Cancelled"
	KindReentry             Kind = "Reentry"
	KindReasonerSchema      Kind = "ReasonerSchemaError"
	KindInternal            Kind = "Internal"
)

// Error is the common shape for every taxonomy member.
type Error struct {
	kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Kind reports the machine-readable tag for this error.
func (e *Error) Kind() string { return string(e.kind) }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// PlanningFailed reports a Reasoner failure during the Planning stage.
func PlanningFailed(cause error, detail string) *Error {
	return wrapErr(KindPlanningFailed, cause, "Planning failed: %s", detail)
}

// OrchestrationFailed reports a failure while building a ToolExecutionPlan.
func OrchestrationFailed(cause error, detail string) *Error {
	return wrapErr(KindOrchestrationFailed, cause, "Orchestration failed: %s", detail)
}

// ToolNotFound reports that a step references a tool absent from the Bridge cache.
func ToolNotFound(toolName string) *Error {
	return newErr(KindToolNotFound, "tool %q not found in catalog", toolName)
}

// ParameterValidation reports a failed Bridge.Validate call. schemaAndExample
// is pre-formatted text containing the full schema and a concrete example call.
func ParameterValidation(toolName, detail, schemaAndExample string) *Error {
	return newErr(KindParameterValidation, "%s\n\n%s", detail, schemaAndExample)
}

// ToolExecutionError reports a Tool Transport invocation failure.
func ToolExecutionError(toolName string, cause error) *Error {
	return wrapErr(KindToolExecutionError, cause, "tool %q execution failed", toolName)
}

// DependencyUnsatisfied reports that a step was skipped because a dependency
// did not succeed.
func DependencyUnsatisfied(stepNumber int, dep int) *Error {
	return newErr(KindDependencyUnsatisfied, "step %d depends on step %d which did not succeed", stepNumber, dep)
}

// Cancelled reports a workflow aborted by a cancellation request.
func Cancelled() *Error {
	return newErr(KindCancelled, "Workflow cancelled by user")
}

// Reentry reports a rejected concurrent run on a session already processing.
func Reentry() *Error {
	return newErr(KindReentry, "a reasoning chain is already processing for this session")
}

// ReasonerSchemaError reports a structured-output response that failed
// schema validation. Never silently coerced.
func ReasonerSchemaError(schemaName string, cause error) *Error {
	return wrapErr(KindReasonerSchema, cause, "reasoner response did not match schema %q", schemaName)
}

// Internal wraps an unexpected failure. The caller sees a generic message;
// Cause carries the detail for server-side logging.
func Internal(cause error, detail string) *Error {
	return wrapErr(KindInternal, cause, "internal error: %s", detail)
}
