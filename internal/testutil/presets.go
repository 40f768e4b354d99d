package testutil

import "github.com/zjrosen/specforge/internal/catalog/domain"

// WithCustomerCatalog adds a small CRM-to-master catalog.
//
// Structure:
//
//	crm_address (Incoming) --address_map--> address (Master)
//	crm_customer (Incoming) --customer_map--> customer (Master)
//	  customer_map delegates addr -> address to address_map
//	address_rules validates address; customer_rules delegates to it
//
// Everything is Published except customer_map and customer_rules, which
// stay Draft so tests can publish them.
func (b *Builder) WithCustomerCatalog() *Builder {
	published := Status(domain.StatusPublished)
	return b.
		WithSchema("address", domain.RoleMaster, "address", published,
			Required("street", domain.ScalarString),
			Required("city", domain.ScalarString),
			Required("postcode", domain.ScalarString),
			PrimaryKey("address_pk", "postcode", "street")).
		WithSchema("customer", domain.RoleMaster, "customer", published,
			Required("id", domain.ScalarGUID),
			Scalar("name", domain.ScalarString),
			Object("address", "address"),
			ScalarArray("emails", domain.ScalarString),
			PrimaryKey("customer_pk", "id"),
			Tags("crm", "pii")).
		WithSchema("crm_address", domain.RoleIncoming, "crm_address", published,
			Scalar("street", domain.ScalarString),
			Scalar("town", domain.ScalarString),
			Scalar("zip", domain.ScalarString)).
		WithSchema("crm_customer", domain.RoleIncoming, "crm_customer", published,
			Scalar("customer_id", domain.ScalarString),
			Scalar("full_name", domain.ScalarString),
			Object("addr", "crm_address")).
		WithTransformation("address_map", "crm_address", "address", domain.ModeSimple,
			SpecStatus(domain.StatusPublished),
			Rule("street", "street"),
			Rule("town", "city"),
			Rule("zip", "postcode")).
		WithTransformation("customer_map", "crm_customer", "customer", domain.ModeSimple,
			Rule("customer_id", "id"),
			Rule("full_name", "name"),
			TransformRef("addr", "address", "address_map")).
		WithValidation("address_rules", "address",
			ValidationStatus(domain.StatusPublished),
			ValidationRule(domain.RuleField)).
		WithValidation("customer_rules", "customer",
			ValidationRule(domain.RuleField),
			ValidationRule(domain.RuleCrossField),
			ValidationRef("address", "address_rules"))
}

// WithOrderGraph adds a Draft Advanced spec computing an order total.
//
// Structure:
//
//	src (Source) --amount--> total (Expression) <--rate-- vat (Constant)
//	total -> gross_total
//	src   -> order_id
func (b *Builder) WithOrderGraph() *Builder {
	published := Status(domain.StatusPublished)
	return b.
		WithSchema("order_in", domain.RoleIncoming, "order_in", published,
			Scalar("order_no", domain.ScalarString),
			Scalar("net", domain.ScalarDecimal)).
		WithSchema("order", domain.RoleMaster, "order", published,
			Required("order_id", domain.ScalarString),
			Scalar("gross_total", domain.ScalarDecimal),
			PrimaryKey("order_pk", "order_id")).
		WithTransformation("order_graph", "order_in", "order", domain.ModeAdvanced,
			Node("src", domain.NodeSource, `{"path":"$"}`),
			Node("vat", domain.NodeConstant, `{"value":1.2}`),
			Node("total", domain.NodeExpression, `{"expr":"amount * rate"}`),
			Edge("src", "total", "amount", 0),
			Edge("vat", "total", "rate", 0),
			Binding("gross_total", "total"),
			Binding("order_id", "src"))
}
