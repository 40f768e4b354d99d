package tracing

// Span attribute keys.
const (
	AttrCommandID     = "command.id"
	AttrCommandType   = "command.type"
	AttrCommandSource = "command.source"

	AttrEntityKind = "catalog.entity.kind"
	AttrEntityID   = "catalog.entity.id"
	AttrTenantID   = "catalog.tenant.id"

	AttrSpecID        = "transformation.id"
	AttrSpecVersion   = "transformation.version"
	AttrSpecMode      = "transformation.mode"
	AttrCacheHit      = "compile.cache_hit"
	AttrNodeCount     = "compile.node_count"
	AttrRuleCount     = "compile.rule_count"
	AttrIssueCount    = "validate.issue_count"
	AttrPublishedBy   = "publish.published_by"
	AttrArchivedCount = "publish.archived_count"

	AttrErrorMessage = "error.message"
	AttrErrorType    = "error.type"
)

// Resource attribute keys describing the catalog process.
const (
	AttrServiceName      = "service.name"
	AttrStoreDriver      = "catalog.store.driver"
	AttrCompileCache     = "compile.cache.enabled"
	AttrCompileCacheTTLs = "compile.cache.ttl_seconds"
)

// Span name prefixes.
const (
	SpanPrefixCommand  = "command.execute."
	SpanPrefixCompile  = "compile."
	SpanPrefixValidate = "validate."
)

// Span event names.
const (
	EventCacheMiss       = "compile.cache_miss"
	EventVersionArchived = "publish.version_archived"
	EventErrorOccurred   = "error.occurred"
)
