package handler_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/specforge/internal/catalog/command"
	"github.com/zjrosen/specforge/internal/catalog/compiler"
	"github.com/zjrosen/specforge/internal/catalog/dispatcher"
	"github.com/zjrosen/specforge/internal/catalog/domain"
	"github.com/zjrosen/specforge/internal/catalog/handler"
	"github.com/zjrosen/specforge/internal/catalog/validator"
	"github.com/zjrosen/specforge/internal/infrastructure/sqlstore"
	"github.com/zjrosen/specforge/internal/mocks"
	"github.com/zjrosen/specforge/internal/pubsub"
	"github.com/zjrosen/specforge/internal/testutil"
)

// ===========================================================================
// Test Helpers
// ===========================================================================

const src = command.SourceInternal

type harness struct {
	t   testing.TB
	db  *sqlstore.DB
	d   *dispatcher.Dispatcher
	bus *pubsub.Broker[any]
}

func newHarness(t testing.TB, opts ...handler.Option) *harness {
	t.Helper()
	db := testutil.NewTestDB(t)
	bus := pubsub.NewBroker[any]()
	t.Cleanup(bus.Close)
	d := dispatcher.New(dispatcher.WithEventBus(bus))
	handler.New(db, validator.New(), opts...).Register(d)
	return &harness{t: t, db: db, d: d, bus: bus}
}

func (h *harness) exec(cmd command.Command) *command.CommandResult {
	h.t.Helper()
	res, err := h.d.Execute(context.Background(), cmd)
	require.NoError(h.t, err)
	require.True(h.t, res.Success)
	return res
}

func (h *harness) fail(cmd command.Command) error {
	h.t.Helper()
	_, err := h.d.Execute(context.Background(), cmd)
	require.Error(h.t, err)
	return err
}

func (h *harness) id(cmd command.Command) string {
	h.t.Helper()
	id, ok := h.exec(cmd).Data.(string)
	require.True(h.t, ok, "create commands return the new id")
	return id
}

func (h *harness) schema(id string) *domain.DataSchema {
	h.t.Helper()
	s, err := h.db.Store().Schemas().Get(context.Background(), id)
	require.NoError(h.t, err)
	return s
}

func (h *harness) createSchema(role domain.SchemaRole, key string) string {
	return h.id(command.NewCreateSchemaCommand(src, testutil.Tenant, role, key))
}

func (h *harness) addScalar(schemaID, path string) string {
	cmd := command.NewAddFieldCommand(src, schemaID, path, domain.FieldScalar)
	cmd.ScalarType = domain.ScalarString
	return h.id(cmd)
}

func (h *harness) addObject(schemaID, path, elementID string) string {
	cmd := command.NewAddFieldCommand(src, schemaID, path, domain.FieldObject)
	cmd.ElementSchemaID = elementID
	return h.id(cmd)
}

// masterSchema creates a Draft Master schema keyed on "id".
func (h *harness) masterSchema(key string) string {
	id := h.createSchema(domain.RoleMaster, key)
	h.addScalar(id, "id")
	keyID := h.id(command.NewAddKeyDefinitionCommand(src, id, key+"_pk", true))
	h.id(command.NewAddKeyFieldCommand(src, keyID, "id", 0))
	return id
}

func (h *harness) publishSchema(id string) *handler.PublishResult {
	h.t.Helper()
	res := h.exec(command.NewPublishSchemaCommand(src, id, "alice"))
	return res.Data.(*handler.PublishResult)
}

// ===========================================================================
// Scenario Tests
// ===========================================================================

func TestEndToEnd_SchemaToCompiledPlan(t *testing.T) {
	h := newHarness(t)

	modelID := h.id(command.NewCreateDataModelCommand(src, testutil.Tenant, "crm", "CRM", ""))

	address := h.masterSchema("address")
	h.addScalar(address, "city")
	h.publishSchema(address)

	createCustomer := command.NewCreateSchemaCommand(src, testutil.Tenant, domain.RoleMaster, "customer")
	createCustomer.DataModelID = modelID
	customer := h.id(createCustomer)
	h.addScalar(customer, "id")
	h.addObject(customer, "address", address)
	keyID := h.id(command.NewAddKeyDefinitionCommand(src, customer, "customer_pk", true))
	h.id(command.NewAddKeyFieldCommand(src, keyID, "id", 0))
	h.exec(command.NewAddSchemaTagCommand(src, customer, "pii"))
	h.publishSchema(customer)

	crm := h.createSchema(domain.RoleIncoming, "crm_customer")
	h.addScalar(crm, "cid")
	h.addScalar(crm, "town")
	h.publishSchema(crm)

	spec := h.id(command.NewCreateTransformationCommand(src, testutil.Tenant, crm, customer, domain.ModeSimple, domain.OneToOne))
	second := 1
	rule := command.NewAddSimpleRuleCommand(src, spec, "town", "address.city")
	rule.Order = &second
	h.id(rule)
	h.id(command.NewAddSimpleRuleCommand(src, spec, "cid", "id"))

	// Draft specs do not compile.
	_, err := h.d.Execute(context.Background(), command.NewCompileTransformationCommand(src, spec))
	require.ErrorIs(t, err, domain.ErrNotPublished)

	h.exec(command.NewPublishTransformationCommand(src, spec, "alice"))

	plan := h.exec(command.NewCompileTransformationCommand(src, spec)).Data.(*compiler.CompiledTransformationSpec)
	require.Equal(t, crm, plan.SourceSchemaID)
	require.Equal(t, customer, plan.TargetSchemaID)
	require.Len(t, plan.SimpleRules, 2)
	require.Equal(t, "address.city", plan.SimpleRules[0].TargetPath)
	require.Equal(t, "id", plan.SimpleRules[1].TargetPath, "appended after the highest order")

	got := h.schema(customer)
	require.Equal(t, domain.StatusPublished, got.Status())
	require.Equal(t, "alice", got.PublishedBy())
	require.NotNil(t, got.PublishedAt())
	require.Equal(t, modelID, got.DataModelID())
}

func TestPublishRelatedSchemas_PublishesInOrder(t *testing.T) {
	h := newHarness(t)
	line := h.masterSchema("order_line")
	order := h.masterSchema("order")
	h.addObject(order, "line", line)

	res := h.exec(command.NewPublishRelatedSchemasCommand(src, order, "alice", []string{line, order}))
	require.Equal(t, []string{line, order}, res.Data)
	require.Equal(t, domain.StatusPublished, h.schema(line).Status())
	require.Equal(t, domain.StatusPublished, h.schema(order).Status())
}

func TestPublishRelatedSchemas_StopsAtFirstFailure(t *testing.T) {
	h := newHarness(t)
	line := h.masterSchema("order_line")
	keyless := h.createSchema(domain.RoleMaster, "keyless")
	h.addScalar(keyless, "id")
	later := h.masterSchema("later")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := h.bus.Subscribe(ctx)

	res, err := h.d.Execute(ctx, command.NewPublishRelatedSchemasCommand(src, line, "alice", []string{line, keyless, later}))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	require.False(t, res.Success)
	require.Equal(t, []string{line}, res.Data, "committed ids are reported alongside the error")

	require.Equal(t, domain.StatusPublished, h.schema(line).Status())
	require.Equal(t, domain.StatusDraft, h.schema(keyless).Status())
	require.Equal(t, domain.StatusDraft, h.schema(later).Status())

	ev := <-sub
	require.Equal(t, pubsub.PublishedEvent, ev.Type)
	require.Equal(t, line, ev.Payload.(domain.VersionPublished).ID)
}

func TestPublishRelatedSchemas_SkipsNonDraftAndRequiresRoot(t *testing.T) {
	h := newHarness(t)
	a := h.masterSchema("a")
	h.publishSchema(a)
	b := h.masterSchema("b")

	res := h.exec(command.NewPublishRelatedSchemasCommand(src, b, "alice", []string{a, b}))
	require.Equal(t, []string{b}, res.Data)

	err := h.fail(command.NewPublishRelatedSchemasCommand(src, "missing-root", "alice", []string{b}))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// ===========================================================================
// Lifecycle Tests
// ===========================================================================

func TestCreateSchema_VersionsAreMonotonic(t *testing.T) {
	h := newHarness(t)
	for want := 1; want <= 3; want++ {
		id := h.createSchema(domain.RoleIncoming, "feed")
		require.Equal(t, want, h.schema(id).Version())
	}
	// Other groups count from 1.
	require.Equal(t, 1, h.schema(h.createSchema(domain.RoleMaster, "feed")).Version())
}

func TestCreateSchema_VersionsMonotonicAfterDeleteProperty(t *testing.T) {
	h := newHarness(t)
	n := 0
	rapid.Check(t, func(rt *rapid.T) {
		n++
		key := fmt.Sprintf("feed_%d", n)
		latest := 0
		for _, del := range rapid.SliceOfN(rapid.Bool(), 1, 6).Draw(rt, "deletes") {
			id := h.createSchema(domain.RoleIncoming, key)
			if v := h.schema(id).Version(); v != latest+1 {
				rt.Fatalf("created version %d, latest is %d", v, latest)
			}
			if del {
				h.exec(command.NewDeleteSchemaVersionCommand(src, id))
				continue
			}
			latest++
		}
	})
}

func TestPublish_SupersedesPreviousVersion(t *testing.T) {
	h := newHarness(t)
	v1 := h.masterSchema("customer")
	h.publishSchema(v1)
	v2 := h.masterSchema("customer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := h.bus.Subscribe(ctx)

	res := h.publishSchema(v2)
	require.Equal(t, 2, res.Version)
	require.Equal(t, []string{v1}, res.ArchivedIDs)
	require.Equal(t, domain.StatusArchived, h.schema(v1).Status())
	require.Equal(t, domain.StatusPublished, h.schema(v2).Status())

	archived := <-sub
	require.Equal(t, pubsub.ArchivedEvent, archived.Type)
	require.Equal(t, domain.VersionArchived{Kind: domain.KindSchema, ID: v1, SupersededBy: v2}, archived.Payload)
	published := <-sub
	require.Equal(t, pubsub.PublishedEvent, published.Type)

	// Archived and Published versions are frozen.
	require.ErrorIs(t, h.fail(command.NewAddSchemaTagCommand(src, v1, "late")), domain.ErrNotDraft)
	require.ErrorIs(t, h.fail(command.NewPublishSchemaCommand(src, v2, "bob")), domain.ErrNotDraft)
}

func TestPublish_ValidationFailureLeavesDraft(t *testing.T) {
	h := newHarness(t)
	id := h.createSchema(domain.RoleMaster, "keyless")
	h.addScalar(id, "id")

	err := h.fail(command.NewPublishSchemaCommand(src, id, "alice"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.NotEmpty(t, verr.Issues)
	require.Equal(t, domain.StatusDraft, h.schema(id).Status())
}

func TestPublish_ConsultsInjectedValidator(t *testing.T) {
	db := testutil.NewTestDB(t)
	v := mocks.NewMockValidator(t)
	d := dispatcher.New()
	handler.New(db, v).Register(d)

	f := testutil.NewBuilder(t, db.Store()).
		WithSchema("feed", domain.RoleIncoming, "feed", testutil.Scalar("a", domain.ScalarString)).
		Build()
	id := f.SchemaID("feed")

	v.EXPECT().ValidateSchema(mock.Anything, mock.Anything, id, true).
		Return(validator.Result{Valid: false, Errors: []domain.Issue{{Field: "fields", Message: "nope"}}}, nil).Once()

	_, err := d.Execute(context.Background(), command.NewPublishSchemaCommand(src, id, "alice"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	require.ErrorContains(t, err, "nope")
}

// ===========================================================================
// Schema Registry Tests
// ===========================================================================

func TestAddField_ElementSchemaChecks(t *testing.T) {
	h := newHarness(t)
	master := h.createSchema(domain.RoleMaster, "customer")
	incoming := h.createSchema(domain.RoleIncoming, "crm_address")

	err := h.fail(objectField(master, "address", "missing"))
	require.ErrorIs(t, err, domain.ErrInvalidReference)

	err = h.fail(objectField(master, "address", incoming))
	require.ErrorIs(t, err, domain.ErrInvalidReference)
	require.ErrorContains(t, err, "role")

	// Shape invariants are checked before the store is touched.
	bad := command.NewAddFieldCommand(src, master, "name", domain.FieldScalar)
	require.ErrorIs(t, h.fail(bad), domain.ErrInvalidArgument)

	// A schema may nest itself.
	h.addObject(master, "parent", master)
	require.Len(t, h.schema(master).Fields(), 1)
}

func TestAddField_ArchivedElementRejected(t *testing.T) {
	h := newHarness(t)
	v1 := h.masterSchema("address")
	h.publishSchema(v1)
	h.publishSchema(h.masterSchema("address"))

	customer := h.createSchema(domain.RoleMaster, "customer")
	err := h.fail(objectField(customer, "address", v1))
	require.ErrorIs(t, err, domain.ErrInvalidReference)
	require.ErrorContains(t, err, "Archived")
}

func TestAddField_ElementCycleWarnsByDefault(t *testing.T) {
	h := newHarness(t)
	a := h.createSchema(domain.RoleMaster, "a")
	b := h.createSchema(domain.RoleMaster, "b")
	h.addObject(a, "b", b)
	h.addObject(b, "a", a)
	require.Len(t, h.schema(b).Fields(), 1)
}

func TestAddField_ElementCycleRejectedWhenConfigured(t *testing.T) {
	h := newHarness(t, handler.WithRejectElementCycles(true))
	a := h.createSchema(domain.RoleMaster, "a")
	b := h.createSchema(domain.RoleMaster, "b")
	h.addObject(a, "b", b)

	err := h.fail(objectField(b, "a", a))
	require.ErrorIs(t, err, domain.ErrInvalidReference)
	require.ErrorContains(t, err, "cycle")
	require.Empty(t, h.schema(b).Fields(), "rejected field is rolled back")
}

func TestUpdateField_KeyedFieldStaysScalar(t *testing.T) {
	h := newHarness(t)
	element := h.createSchema(domain.RoleMaster, "element")
	id := h.masterSchema("customer")
	fieldID := h.schema(id).Fields()[0].ID

	update := command.NewUpdateFieldCommand(src, id, fieldID)
	object := domain.FieldObject
	update.FieldType = &object
	update.ElementSchemaID = element
	require.ErrorIs(t, h.fail(update), domain.ErrInUse)

	require.ErrorIs(t, h.fail(command.NewRemoveFieldCommand(src, id, fieldID)), domain.ErrInUse)

	required := true
	update = command.NewUpdateFieldCommand(src, id, fieldID)
	update.Required = &required
	h.exec(update)
	field, _ := h.schema(id).Field(fieldID)
	require.True(t, field.Required)
}

func TestKeyFields_AddRemoveReorder(t *testing.T) {
	h := newHarness(t)
	id := h.createSchema(domain.RoleMaster, "address")
	for _, p := range []string{"postcode", "street", "number"} {
		h.addScalar(id, p)
	}
	keyID := h.id(command.NewAddKeyDefinitionCommand(src, id, "address_pk", true))
	postcode := h.id(command.NewAddKeyFieldCommand(src, keyID, "postcode", 0))
	street := h.id(command.NewAddKeyFieldCommand(src, keyID, "street", 1))
	number := h.id(command.NewAddKeyFieldCommand(src, keyID, "number", 2))

	require.ErrorIs(t, h.fail(command.NewAddKeyFieldCommand(src, keyID, "street", 5)), domain.ErrDuplicate)
	require.ErrorIs(t, h.fail(command.NewAddKeyDefinitionCommand(src, id, "alt", true)), domain.ErrDuplicate)
	require.ErrorIs(t, h.fail(command.NewAddKeyFieldCommand(src, "missing-key", "street", 5)), domain.ErrNotFound)

	// Not a permutation: nothing changes.
	require.ErrorIs(t, h.fail(command.NewReorderKeyFieldsCommand(src, keyID, []string{number, street})), domain.ErrInvalidArgument)

	h.exec(command.NewReorderKeyFieldsCommand(src, keyID, []string{number, postcode, street}))
	key, _ := h.schema(id).KeyDefinition(keyID)
	require.Equal(t, []string{"number", "postcode", "street"}, keyPaths(key))

	h.exec(command.NewRemoveKeyFieldCommand(src, keyID, postcode))
	key, _ = h.schema(id).KeyDefinition(keyID)
	sorted := key.SortedFields()
	require.Equal(t, []string{"number", "street"}, keyPaths(key))
	require.Equal(t, []int{0, 1}, []int{sorted[0].Order, sorted[1].Order})

	h.exec(command.NewRemoveKeyDefinitionCommand(src, id, keyID))
	require.Empty(t, h.schema(id).Keys())
}

func TestKeyDefinition_MasterOnly(t *testing.T) {
	h := newHarness(t)
	id := h.createSchema(domain.RoleIncoming, "feed")
	require.ErrorIs(t, h.fail(command.NewAddKeyDefinitionCommand(src, id, "pk", true)), domain.ErrInvalidArgument)
}

func TestSchemaTags(t *testing.T) {
	h := newHarness(t)
	id := h.createSchema(domain.RoleIncoming, "feed")
	tagID := h.id(command.NewAddSchemaTagCommand(src, id, "pii"))
	require.ErrorIs(t, h.fail(command.NewAddSchemaTagCommand(src, id, "pii")), domain.ErrDuplicate)

	res := h.exec(command.NewRemoveSchemaTagCommand(src, id, "pii"))
	require.Equal(t, tagID, res.Data)
	require.Empty(t, h.schema(id).Tags())
	require.ErrorIs(t, h.fail(command.NewRemoveSchemaTagCommand(src, id, "pii")), domain.ErrNotFound)
}

func TestUpdateSchema_AttachesDataModel(t *testing.T) {
	h := newHarness(t)
	modelID := h.id(command.NewCreateDataModelCommand(src, testutil.Tenant, "crm", "CRM", ""))
	id := h.createSchema(domain.RoleIncoming, "feed")

	update := command.NewUpdateSchemaCommand(src, id)
	desc := "CRM feed"
	update.Description = &desc
	update.DataModelID = &modelID
	h.exec(update)

	s := h.schema(id)
	require.Equal(t, modelID, s.DataModelID())
	require.Equal(t, "CRM feed", s.Description())

	// Attached schemas pin the data model.
	require.ErrorIs(t, h.fail(command.NewDeleteDataModelCommand(src, modelID)), domain.ErrInUse)

	none := ""
	update = command.NewUpdateSchemaCommand(src, id)
	update.DataModelID = &none
	h.exec(update)
	h.exec(command.NewDeleteDataModelCommand(src, modelID))
}

func TestSchema_UnknownDataModelCheckedAtValidation(t *testing.T) {
	h := newHarness(t)

	create := command.NewCreateSchemaCommand(src, testutil.Tenant, domain.RoleIncoming, "feed")
	create.DataModelID = "model-not-created-yet"
	id := h.id(create)
	require.Equal(t, "model-not-created-yet", h.schema(id).DataModelID())

	other := h.createSchema(domain.RoleIncoming, "orders")
	missing := "also-missing"
	update := command.NewUpdateSchemaCommand(src, other)
	update.DataModelID = &missing
	h.exec(update)
	require.Equal(t, "also-missing", h.schema(other).DataModelID())

	res := h.exec(command.NewValidateEntityCommand(src, domain.KindSchema, id, false))
	result := res.Data.(validator.Result)
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, domain.Issue{
		Field:   "dataModelId",
		Message: "data model model-not-created-yet does not exist",
	})

	err := h.fail(command.NewPublishSchemaCommand(src, id, "alice"))
	require.ErrorIs(t, err, domain.ErrValidationFailed)
	require.ErrorContains(t, err, "model-not-created-yet")
	require.Equal(t, domain.StatusDraft, h.schema(id).Status())
}

func TestDataModel_CreateUpdateDuplicate(t *testing.T) {
	h := newHarness(t)
	id := h.id(command.NewCreateDataModelCommand(src, testutil.Tenant, "crm", "CRM", ""))
	require.ErrorIs(t, h.fail(command.NewCreateDataModelCommand(src, testutil.Tenant, "crm", "Other", "")), domain.ErrDuplicate)

	name := "Customer Relations"
	h.exec(command.NewUpdateDataModelCommand(src, id, &name, nil))
	model := h.exec(command.NewGetCommand(src, command.CmdGetDataModel, id)).Data.(*domain.DataModel)
	require.Equal(t, "Customer Relations", model.Name())
}

// ===========================================================================
// Delete Tests
// ===========================================================================

func TestDeleteSchemaVersion_LatestOnly(t *testing.T) {
	h := newHarness(t)
	v1 := h.createSchema(domain.RoleIncoming, "feed")
	v2 := h.createSchema(domain.RoleIncoming, "feed")

	require.ErrorIs(t, h.fail(command.NewDeleteSchemaVersionCommand(src, v1)), domain.ErrInvalidArgument)
	h.exec(command.NewDeleteSchemaVersionCommand(src, v2))
	h.exec(command.NewDeleteSchemaVersionCommand(src, v1))

	_, err := h.db.Store().Schemas().Get(context.Background(), v1)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSchemaVersion_ReferencedIsInUse(t *testing.T) {
	h := newHarness(t)
	address := h.createSchema(domain.RoleMaster, "address")
	customer := h.createSchema(domain.RoleMaster, "customer")
	h.addObject(customer, "address", address)

	require.ErrorIs(t, h.fail(command.NewDeleteSchemaVersionCommand(src, address)), domain.ErrInUse)

	feed := h.createSchema(domain.RoleIncoming, "feed")
	h.id(command.NewCreateValidationCommand(src, testutil.Tenant, feed, ""))
	require.ErrorIs(t, h.fail(command.NewDeleteSchemaVersionCommand(src, feed)), domain.ErrInUse)

	// Self-nesting does not pin a schema.
	tree := h.createSchema(domain.RoleMaster, "tree")
	h.addObject(tree, "parent", tree)
	h.exec(command.NewDeleteSchemaVersionCommand(src, tree))
}

func TestDeleteSchemaKey(t *testing.T) {
	h := newHarness(t)
	v1 := h.createSchema(domain.RoleMaster, "address")
	v2 := h.createSchema(domain.RoleMaster, "address")
	customer := h.createSchema(domain.RoleMaster, "customer")
	field := h.addObject(customer, "address", v1)

	err := h.fail(command.NewDeleteSchemaKeyCommand(src, testutil.Tenant, "address", domain.RoleMaster))
	require.ErrorIs(t, err, domain.ErrInUse)

	h.exec(command.NewRemoveFieldCommand(src, customer, field))
	res := h.exec(command.NewDeleteSchemaKeyCommand(src, testutil.Tenant, "address", domain.RoleMaster))
	require.ElementsMatch(t, []string{v1, v2}, res.Data)

	err = h.fail(command.NewDeleteSchemaKeyCommand(src, testutil.Tenant, "address", domain.RoleMaster))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTransformation_ReferencedChildIsInUse(t *testing.T) {
	db := testutil.NewTestDB(t)
	d := dispatcher.New()
	handler.New(db, validator.New()).Register(d)
	f := testutil.NewBuilder(t, db.Store()).WithCustomerCatalog().Build()
	ctx := context.Background()

	_, err := d.Execute(ctx, command.NewDeleteTransformationCommand(src, f.TransformationID("address_map")))
	require.ErrorIs(t, err, domain.ErrInUse)

	_, err = d.Execute(ctx, command.NewDeleteTransformationCommand(src, f.TransformationID("customer_map")))
	require.NoError(t, err)
	_, err = d.Execute(ctx, command.NewDeleteTransformationCommand(src, f.TransformationID("address_map")))
	require.NoError(t, err)
}

// ===========================================================================
// Transformation Tests
// ===========================================================================

func TestTransformation_AdvancedGraphEditing(t *testing.T) {
	h := newHarness(t)
	in := h.createSchema(domain.RoleIncoming, "order_in")
	h.addScalar(in, "net")
	out := h.createSchema(domain.RoleIncoming, "order_out")
	h.addScalar(out, "gross")

	spec := h.id(command.NewCreateTransformationCommand(src, testutil.Tenant, in, out, domain.ModeAdvanced, domain.OneToOne))
	source := h.id(command.NewAddGraphNodeCommand(src, spec, "src", domain.NodeSource))
	expr := h.id(command.NewAddGraphNodeCommand(src, spec, "total", domain.NodeExpression))
	edge := h.id(command.NewAddGraphEdgeCommand(src, spec, source, expr, "amount", 0))
	h.id(command.NewAddOutputBindingCommand(src, spec, "gross", expr))

	require.ErrorIs(t, h.fail(command.NewAddSimpleRuleCommand(src, spec, "net", "gross")), domain.ErrWrongMode)
	require.ErrorIs(t, h.fail(command.NewAddGraphNodeCommand(src, spec, "src", domain.NodeMap)), domain.ErrDuplicate)
	require.ErrorIs(t, h.fail(command.NewAddGraphEdgeCommand(src, spec, source, "foreign", "x", 0)), domain.ErrInvalidReference)

	cfg := `{"expr":"amount * 1.2"}`
	h.exec(command.NewUpdateGraphNodeCommand(src, spec, expr, domain.GraphNodeUpdate{Config: &cfg}))

	h.exec(command.NewRemoveSpecChildCommand(src, command.CmdRemoveGraphEdge, spec, edge))
	h.exec(command.NewRemoveSpecChildCommand(src, command.CmdRemoveGraphNode, spec, expr))

	got, err := h.db.Store().Transformations().Get(context.Background(), spec)
	require.NoError(t, err)
	body := got.Body().(*domain.AdvancedBody)
	require.Len(t, body.Nodes, 1)
	require.Empty(t, body.Edges)
	require.Empty(t, body.Bindings, "removing a node drops its bindings")
}

func TestTransformation_CreateRequiresSchemas(t *testing.T) {
	h := newHarness(t)
	in := h.createSchema(domain.RoleIncoming, "in")
	err := h.fail(command.NewCreateTransformationCommand(src, testutil.Tenant, in, "missing", domain.ModeSimple, domain.OneToOne))
	require.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestTransformReference_ChildMustBePublished(t *testing.T) {
	db := testutil.NewTestDB(t)
	d := dispatcher.New()
	handler.New(db, validator.New()).Register(d)
	f := testutil.NewBuilder(t, db.Store()).
		WithCustomerCatalog().
		WithTransformation("draft_child", "crm_address", "address", domain.ModeSimple).
		Build()
	ctx := context.Background()
	parent := f.TransformationID("customer_map")

	_, err := d.Execute(ctx, command.NewAddTransformReferenceCommand(src, parent, "addr", "address", f.TransformationID("draft_child")))
	require.ErrorIs(t, err, domain.ErrNotPublished)

	_, err = d.Execute(ctx, command.NewAddTransformReferenceCommand(src, parent, "addr", "address", "missing"))
	require.ErrorIs(t, err, domain.ErrInvalidReference)

	// The pair is already delegated by the fixture.
	_, err = d.Execute(ctx, command.NewAddTransformReferenceCommand(src, parent, "addr", "address", f.TransformationID("address_map")))
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestUpdateTransformation_Cardinality(t *testing.T) {
	h := newHarness(t)
	in := h.createSchema(domain.RoleIncoming, "in")
	spec := h.id(command.NewCreateTransformationCommand(src, testutil.Tenant, in, in, domain.ModeSimple, domain.OneToOne))

	update := command.NewUpdateTransformationCommand(src, spec)
	many := domain.OneToMany
	update.Cardinality = &many
	h.exec(update)

	got := h.exec(command.NewGetCommand(src, command.CmdGetTransformation, spec)).Data.(*domain.TransformationSpec)
	require.Equal(t, domain.OneToMany, got.Cardinality())
}

// ===========================================================================
// Validation Tests
// ===========================================================================

func TestValidation_RulesAndReferences(t *testing.T) {
	db := testutil.NewTestDB(t)
	d := dispatcher.New()
	handler.New(db, validator.New()).Register(d)
	f := testutil.NewBuilder(t, db.Store()).WithCustomerCatalog().Build()
	ctx := context.Background()

	res, err := d.Execute(ctx, command.NewCreateValidationCommand(src, testutil.Tenant, f.SchemaID("customer"), "v2"))
	require.NoError(t, err)
	spec := res.Data.(string)

	res, err = d.Execute(ctx, command.NewAddValidationRuleCommand(src, spec, domain.RuleField, domain.SeverityError, ""))
	require.NoError(t, err)
	ruleID := res.Data.(string)

	_, err = d.Execute(ctx, command.NewAddValidationReferenceCommand(src, spec, "address", f.ValidationID("customer_rules")))
	require.ErrorIs(t, err, domain.ErrNotPublished)
	_, err = d.Execute(ctx, command.NewAddValidationReferenceCommand(src, spec, "address", f.ValidationID("address_rules")))
	require.NoError(t, err)

	warning := domain.SeverityWarning
	_, err = d.Execute(ctx, command.NewUpdateValidationRuleCommand(src, spec, ruleID, domain.ValidationRuleUpdate{Severity: &warning}))
	require.NoError(t, err)

	res, err = d.Execute(ctx, command.NewGetCommand(src, command.CmdGetValidation, spec))
	require.NoError(t, err)
	got := res.Data.(*domain.ValidationSpec)
	require.Equal(t, 2, got.Version())
	require.Equal(t, "{}", got.Rules()[0].Parameters)
	require.Equal(t, domain.SeverityWarning, got.Rules()[0].Severity)
	require.Len(t, got.References(), 1)

	_, err = d.Execute(ctx, command.NewRemoveSpecChildCommand(src, command.CmdRemoveValidationRule, spec, ruleID))
	require.NoError(t, err)

	// address_rules is referenced by customer_rules.
	_, err = d.Execute(ctx, command.NewDeleteValidationCommand(src, f.ValidationID("address_rules")))
	require.ErrorIs(t, err, domain.ErrInUse)
	_, err = d.Execute(ctx, command.NewDeleteValidationCommand(src, f.ValidationID("customer_rules")))
	require.ErrorIs(t, err, domain.ErrInvalidArgument, "only the latest version can be deleted")
}

// ===========================================================================
// Query Tests
// ===========================================================================

func TestQueries_ListVersionsAndValidate(t *testing.T) {
	h := newHarness(t)
	v1 := h.masterSchema("customer")
	h.publishSchema(v1)
	v2 := h.createSchema(domain.RoleMaster, "customer")

	res := h.exec(command.NewListSchemaVersionsCommand(src, testutil.Tenant, "customer", domain.RoleMaster))
	versions := res.Data.([]*domain.DataSchema)
	require.Len(t, versions, 2)
	require.Equal(t, []string{v1, v2}, []string{versions[0].ID(), versions[1].ID()})

	res = h.exec(command.NewValidateEntityCommand(src, domain.KindSchema, v2, false))
	result := res.Data.(validator.Result)
	require.False(t, result.Valid, "Master schema without keys")

	res = h.exec(command.NewValidateEntityCommand(src, domain.KindSchema, v1, true))
	require.True(t, res.Data.(validator.Result).Valid)

	require.ErrorIs(t, h.fail(command.NewGetCommand(src, command.CmdGetSchema, "missing")), domain.ErrNotFound)
}

func TestEvents_EntityChangedAfterCommit(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := h.bus.Subscribe(ctx)

	id := h.createSchema(domain.RoleIncoming, "feed")
	fieldID := h.addScalar(id, "a")

	want := []domain.EntityChanged{
		{Kind: domain.KindSchema, ID: id, Change: domain.ChangeCreated},
		{Kind: domain.KindField, ID: fieldID, ParentID: id, Change: domain.ChangeCreated},
	}
	for _, w := range want {
		select {
		case ev := <-sub:
			require.Equal(t, pubsub.CreatedEvent, ev.Type)
			require.Equal(t, w, ev.Payload)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func objectField(schemaID, path, elementID string) *command.AddFieldCommand {
	cmd := command.NewAddFieldCommand(src, schemaID, path, domain.FieldObject)
	cmd.ElementSchemaID = elementID
	return cmd
}

func keyPaths(k domain.KeyDefinition) []string {
	var paths []string
	for _, kf := range k.SortedFields() {
		paths = append(paths, kf.FieldPath)
	}
	return paths
}
