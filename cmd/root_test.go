package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/specforge/internal/catalog/domain"
)

var samplePlan = filepath.Join("..", "internal", "plan", "testdata", "catalog.yaml")

// writeConfig points the catalog at a fresh SQLite file and returns the
// config path.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := "database:\n  path: " + filepath.Join(dir, "catalog.db") + "\ntracing:\n  enabled: false\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return path
}

func resetFlags() {
	cfgFile, debug = "", false
	applyWatch = false
	publishedBy = ""
	validateForPublish = false
	compileFormat = "json"
	describeRaw, describeFormat = false, ""
	diffContext = 3
	versionsFormat = ""
	configForce = false
}

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// appliedIDs maps plan refs to the ids printed by apply. Only entity rows
// carry a hyphenated uuid; the summary's trace id is bare hex.
func appliedIDs(t *testing.T, output string) map[string]string {
	t.Helper()
	ids := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 || strings.HasPrefix(fields[0], "✓") || strings.HasPrefix(fields[0], "✗") {
			continue
		}
		for _, f := range fields[1:] {
			if len(f) != 36 {
				continue
			}
			if _, err := uuid.Parse(f); err == nil {
				ids[fields[0]] = f
				break
			}
		}
	}
	return ids
}

func TestAppliedIDs_IgnoresSummaryTraceID(t *testing.T) {
	id := uuid.NewString()
	output := "crm                  data model             " + id + " \n" +
		"✓ applied 1 entities, 1 commands trace c489b88de860e738516f68a6bf649597\n"

	require.Equal(t, map[string]string{"crm": id}, appliedIDs(t, output))
}

func applySample(t *testing.T, configPath string) map[string]string {
	t.Helper()
	out, err := run(t, configPath, "apply", samplePlan)
	require.NoError(t, err, out)
	require.Contains(t, out, "applied 9 entities")
	ids := appliedIDs(t, out)
	require.Len(t, ids, 9)
	return ids
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]domain.EntityKind{
		"schema":         domain.KindSchema,
		"Transformation": domain.KindTransformation,
		"validation":     domain.KindValidation,
		"datamodel":      domain.KindDataModel,
	} {
		got, err := parseKind(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := parseKind("field")
	require.ErrorContains(t, err, `unknown kind "field"`)
}

func TestMigrate(t *testing.T) {
	out, err := run(t, writeConfig(t), "migrate")
	require.NoError(t, err)
	require.Contains(t, out, "sqlite catalog at schema version 1")
}

func TestApply_InvalidPlanFails(t *testing.T) {
	plan := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(plan, []byte("tenant: t\nschemas:\n  - ref: a\n    role: Boss\n    key: a\n"), 0o600))

	out, err := run(t, writeConfig(t), "apply", plan)
	require.Error(t, err)
	require.Contains(t, out, "apply failed")
}

func TestCompile(t *testing.T) {
	cfgPath := writeConfig(t)
	ids := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "compile", ids["customer_map"])
	require.NoError(t, err)
	var plan map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Equal(t, ids["customer_map"], plan["id"])
	require.Len(t, plan["simpleRules"], 2)

	out, err = run(t, cfgPath, "compile", ids["customer_map"], "--format", "yaml")
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(out), &plan))
	require.Equal(t, "Simple", plan["mode"])

	_, err = run(t, cfgPath, "compile", ids["customer_map"], "--format", "xml")
	require.ErrorContains(t, err, `unknown format "xml"`)
}

func TestValidate(t *testing.T) {
	cfgPath := writeConfig(t)
	ids := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "validate", "schema", ids["address"], "--for-publish")
	require.NoError(t, err)
	require.Contains(t, out, "✓ valid")

	_, err = run(t, cfgPath, "validate", "schema", uuid.NewString())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = run(t, cfgPath, "validate", "datamodel", ids["crm"])
	require.ErrorContains(t, err, "cannot validate a data model")
}

func TestDescribe(t *testing.T) {
	cfgPath := writeConfig(t)
	ids := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "describe", "schema", ids["address"], "--raw")
	require.NoError(t, err)
	require.Contains(t, out, "# Schema address (Master) v1")
	require.Contains(t, out, "- **address_pk** (primary): `postcode`, `street`")

	out, err = run(t, cfgPath, "describe", "datamodel", ids["crm"], "--format", "json")
	require.NoError(t, err)
	var model map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &model))
	require.Equal(t, "crm", model["key"])

	out, err = run(t, cfgPath, "describe", "transformation", ids["customer_map"])
	require.NoError(t, err)
	require.Contains(t, out, "Transformation Simple v1")
}

func TestPublish(t *testing.T) {
	cfgPath := writeConfig(t)
	ids := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "publish", "validation", ids["customer_rules"], "--by", "bob")
	require.NoError(t, err)
	require.Contains(t, out, "published validation spec "+ids["customer_rules"]+" v1 by bob")

	_, err = run(t, cfgPath, "publish", "validation", ids["customer_rules"])
	require.Error(t, err)

	_, err = run(t, cfgPath, "publish", "datamodel", ids["crm"])
	require.ErrorContains(t, err, "has no versions to publish")
}

func TestPublishRelated_SkipsPublished(t *testing.T) {
	cfgPath := writeConfig(t)
	ids := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "publish-related", ids["customer"], ids["address"], ids["customer"])
	require.NoError(t, err)
	require.NotContains(t, out, "published")
}

func TestVersionsAndDiff(t *testing.T) {
	cfgPath := writeConfig(t)
	first := applySample(t, cfgPath)
	second := applySample(t, cfgPath)

	out, err := run(t, cfgPath, "versions", "schema", "tenant-a", "address", "Master")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "Archived")
	require.Contains(t, lines[1], first["address"])
	require.Contains(t, lines[2], "Published")

	out, err = run(t, cfgPath, "versions", "schema", "tenant-a", "address", "Master", "--format", "json")
	require.NoError(t, err)
	var versions []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &versions))
	require.Len(t, versions, 2)

	_, err = run(t, cfgPath, "versions", "schema", "tenant-a", "address", "Boss")
	require.ErrorContains(t, err, `unknown role "Boss"`)

	out, err = run(t, cfgPath, "diff", "schema", first["address"], second["address"])
	require.NoError(t, err)
	require.Contains(t, out, "--- address v1")
	require.Contains(t, out, "+++ address v2")
	require.Contains(t, out, "-version: 1")
	require.Contains(t, out, "+version: 2")
}

func TestConfigInitAndSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := run(t, path, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, path)

	_, err = run(t, path, "config", "init")
	require.ErrorContains(t, err, "already exists")

	_, err = run(t, path, "config", "set", "schemas.reject_element_cycles", "true")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "reject_element_cycles: true")
	require.Contains(t, string(data), "# Schema registry policy")
}
