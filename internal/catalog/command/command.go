// Package command defines the catalog's command surface: the Command
// interface, the CommandType routing keys, BaseCommand and CommandResult.
// Every catalog mutation and query is a Command executed by the dispatcher.
package command

import (
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Command represents an explicit intent entering the catalog.
type Command interface {
	// ID returns unique command identifier for tracing/correlation
	ID() string
	// Type returns the command type for routing to handlers
	Type() CommandType
	// Validate checks command preconditions before execution
	Validate() error
	// CreatedAt returns when command was created
	CreatedAt() time.Time
}

// CommandType identifies the kind of command for handler routing.
type CommandType string

const (
	// Data model commands

	CmdCreateDataModel CommandType = "create_data_model"
	CmdUpdateDataModel CommandType = "update_data_model"
	CmdDeleteDataModel CommandType = "delete_data_model"

	// Schema registry commands

	CmdCreateSchema          CommandType = "create_schema"
	CmdUpdateSchema          CommandType = "update_schema"
	CmdAddField              CommandType = "add_field"
	CmdUpdateField           CommandType = "update_field"
	CmdRemoveField           CommandType = "remove_field"
	CmdAddSchemaTag          CommandType = "add_schema_tag"
	CmdRemoveSchemaTag       CommandType = "remove_schema_tag"
	CmdAddKeyDefinition      CommandType = "add_key_definition"
	CmdRemoveKeyDefinition   CommandType = "remove_key_definition"
	CmdAddKeyField           CommandType = "add_key_field"
	CmdRemoveKeyField        CommandType = "remove_key_field"
	CmdReorderKeyFields      CommandType = "reorder_key_fields"
	CmdDeleteSchemaVersion   CommandType = "delete_schema_version"
	CmdDeleteSchemaKey       CommandType = "delete_schema_key"
	CmdPublishSchema         CommandType = "publish_schema"
	CmdPublishRelatedSchemas CommandType = "publish_related_schemas"

	// Transformation commands

	CmdCreateTransformation  CommandType = "create_transformation"
	CmdUpdateTransformation  CommandType = "update_transformation"
	CmdAddSimpleRule         CommandType = "add_simple_rule"
	CmdUpdateSimpleRule      CommandType = "update_simple_rule"
	CmdRemoveSimpleRule      CommandType = "remove_simple_rule"
	CmdAddGraphNode          CommandType = "add_graph_node"
	CmdUpdateGraphNode       CommandType = "update_graph_node"
	CmdRemoveGraphNode       CommandType = "remove_graph_node"
	CmdAddGraphEdge          CommandType = "add_graph_edge"
	CmdRemoveGraphEdge       CommandType = "remove_graph_edge"
	CmdAddOutputBinding      CommandType = "add_output_binding"
	CmdRemoveOutputBinding   CommandType = "remove_output_binding"
	CmdAddTransformReference CommandType = "add_transform_reference"
	CmdRemoveTransformRef    CommandType = "remove_transform_reference"
	CmdDeleteTransformation  CommandType = "delete_transformation"
	CmdPublishTransformation CommandType = "publish_transformation"

	// Validation spec commands

	CmdCreateValidation          CommandType = "create_validation"
	CmdUpdateValidation          CommandType = "update_validation"
	CmdAddValidationRule         CommandType = "add_validation_rule"
	CmdUpdateValidationRule      CommandType = "update_validation_rule"
	CmdRemoveValidationRule      CommandType = "remove_validation_rule"
	CmdAddValidationReference    CommandType = "add_validation_reference"
	CmdRemoveValidationReference CommandType = "remove_validation_reference"
	CmdDeleteValidation          CommandType = "delete_validation"
	CmdPublishValidation         CommandType = "publish_validation"

	// Queries

	CmdGetDataModel               CommandType = "get_data_model"
	CmdFindDataModel              CommandType = "find_data_model"
	CmdGetSchema                  CommandType = "get_schema"
	CmdGetTransformation          CommandType = "get_transformation"
	CmdGetValidation              CommandType = "get_validation"
	CmdListSchemaVersions         CommandType = "list_schema_versions"
	CmdListTransformationVersions CommandType = "list_transformation_versions"
	CmdListValidationVersions     CommandType = "list_validation_versions"
	CmdValidateEntity             CommandType = "validate_entity"
	CmdCompileTransformation      CommandType = "compile_transformation"
)

// String returns the string representation of the CommandType.
func (ct CommandType) String() string {
	return string(ct)
}

// CommandSource identifies where the command originated.
type CommandSource string

const (
	// SourceCLI indicates the command came from a CLI subcommand.
	SourceCLI CommandSource = "cli"
	// SourcePlan indicates the command was produced from a plan file.
	SourcePlan CommandSource = "plan"
	// SourceWatcher indicates a plan re-apply triggered by a file change.
	SourceWatcher CommandSource = "watcher"
	// SourceInternal indicates the command was system-generated.
	SourceInternal CommandSource = "internal"
)

// String returns the string representation of the CommandSource.
func (cs CommandSource) String() string {
	return string(cs)
}

// BaseCommand provides common fields for all commands.
// Concrete command types should embed this struct.
type BaseCommand struct {
	id          string
	cmdType     CommandType
	createdAt   time.Time
	source      CommandSource
	traceID     string
	spanContext trace.SpanContext
}

// NewBaseCommand creates a BaseCommand with a generated UUID and current timestamp.
func NewBaseCommand(cmdType CommandType, source CommandSource) BaseCommand {
	return BaseCommand{
		id:        uuid.New().String(),
		cmdType:   cmdType,
		createdAt: time.Now(),
		source:    source,
	}
}

// ID returns the unique command identifier.
func (b *BaseCommand) ID() string {
	return b.id
}

// Type returns the command type for handler routing.
func (b *BaseCommand) Type() CommandType {
	return b.cmdType
}

// CreatedAt returns when the command was created.
func (b *BaseCommand) CreatedAt() time.Time {
	return b.createdAt
}

// Source returns the origin of this command.
func (b *BaseCommand) Source() CommandSource {
	return b.source
}

// TraceID returns the correlation ID for related commands.
// A valid SpanContext takes precedence over a manually set trace ID.
func (b *BaseCommand) TraceID() string {
	if b.spanContext.IsValid() {
		return b.spanContext.TraceID().String()
	}
	return b.traceID
}

// SetTraceID sets the correlation ID for command tracing.
func (b *BaseCommand) SetTraceID(traceID string) {
	b.traceID = traceID
}

// SpanContext returns the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SpanContext() trace.SpanContext {
	return b.spanContext
}

// SetSpanContext sets the OpenTelemetry span context for trace propagation.
func (b *BaseCommand) SetSpanContext(sc trace.SpanContext) {
	b.spanContext = sc
}

// Validate is a no-op for BaseCommand. Concrete commands should override this.
func (b *BaseCommand) Validate() error {
	return nil
}

// CommandResult contains the outcome of command execution.
type CommandResult struct {
	// Success indicates whether the command executed successfully.
	Success bool
	// Events contains domain events to publish after commit.
	Events []any
	// Error contains the error if Success is false.
	Error error
	// Data carries the new id for create commands and the payload for queries.
	Data any
}

func newBase(cmdType CommandType, source CommandSource) *BaseCommand {
	base := NewBaseCommand(cmdType, source)
	return &base
}
