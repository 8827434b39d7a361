package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, FormatTable, cfg.Format)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "UTC", cfg.TimeZone)
	assert.Empty(t, cfg.CustomAttributes)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "buildlens.yaml", `
project: src/A/A.csproj
format: json
database: /tmp/builds.db
timezone: Local
where: succeeded
attributes:
  - name: tfm
    expression: tfm
  - name: lang
    expression: props["LangVersion"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "src/A/A.csproj", cfg.ProjectFile)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.Equal(t, "/tmp/builds.db", cfg.Database)
	assert.Equal(t, "succeeded", cfg.Where)
	assert.Equal(t, "info", cfg.LogLevel, "defaults survive a partial file")
	require.Len(t, cfg.CustomAttributes, 2)
	assert.Equal(t, CustomAttribute{Name: "lang", Expression: `props["LangVersion"]`}, cfg.CustomAttributes[1])

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Local", loc.String())
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "buildlens.yaml", "format: json\n")
	t.Setenv("BUILDLENS_FORMAT", "yaml")
	t.Setenv("BUILDLENS_OTEL", "true")
	t.Setenv("BUILDLENS_ATTRIBUTES", `first=compiler.args[0];ok=succeeded`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, FormatYAML, cfg.Format)
	assert.True(t, cfg.OTEL)
	require.Len(t, cfg.CustomAttributes, 2)
	assert.Equal(t, "first", cfg.CustomAttributes[0].Name)
	assert.Equal(t, "compiler.args[0]", cfg.CustomAttributes[0].Expression)
	assert.Empty(t, cfg.Attributes)
}

func TestLoad_DotEnv(t *testing.T) {
	dotenv := writeFile(t, ".env", "BUILDLENS_PARENT_ID='env[\"PARENT\"]'\n")
	t.Cleanup(func() { _ = os.Unsetenv("BUILDLENS_PARENT_ID") })

	cfg, err := Load("", dotenv)
	require.NoError(t, err)
	assert.Equal(t, `env["PARENT"]`, cfg.ParentID)
}

func TestLoad_MissingDotEnv(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load .env")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "format: [json\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_InvalidAttributesEnv(t *testing.T) {
	t.Setenv("BUILDLENS_ATTRIBUTES", "no_equals")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid attribute format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad format", func(c *Config) { c.Format = "xml" }, "invalid format"},
		{"bad timezone", func(c *Config) { c.TimeZone = "Mars/Olympus" }, "invalid timezone"},
		{"empty attribute name", func(c *Config) { c.CustomAttributes = []CustomAttribute{{Expression: "tfm"}} }, "name cannot be empty"},
		{"empty attribute expression", func(c *Config) { c.CustomAttributes = []CustomAttribute{{Name: "x"}} }, "expression cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation_EmptyIsUTC(t *testing.T) {
	cfg := Default()
	cfg.TimeZone = ""

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestParseCustomAttribute(t *testing.T) {
	attr, err := ParseCustomAttribute(`check=foo=="bar"`)
	require.NoError(t, err)
	assert.Equal(t, "check", attr.Name)
	assert.Equal(t, `foo=="bar"`, attr.Expression)

	attr, err = ParseCustomAttribute("  name  =  value  ")
	require.NoError(t, err)
	assert.Equal(t, "name", attr.Name)
	assert.Equal(t, "value", attr.Expression)

	attr, err = ParseCustomAttribute("extra.attribute.name=tfm")
	require.NoError(t, err)
	assert.Equal(t, "extra.attribute.name", attr.Name)
}

func TestParseCustomAttribute_Errors(t *testing.T) {
	tests := []struct {
		input   string
		wantErr string
	}{
		{"invalid_no_equals", "invalid attribute format"},
		{"=value", "name cannot be empty"},
		{"name=", "expression cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseCustomAttribute(tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := ParseCustomAttribute("oops")
	assert.Contains(t, err.Error(), "NAME=EXPR")
}

func TestParseAttributeString_Valid(t *testing.T) {
	attrs, err := ParseAttributeString(`foo=bar;baz=env["TEST"];tfm=tfm`)

	require.NoError(t, err)
	require.Len(t, attrs, 3)
	assert.Equal(t, "foo", attrs[0].Name)
	assert.Equal(t, "bar", attrs[0].Expression)
	assert.Equal(t, "baz", attrs[1].Name)
	assert.Equal(t, `env["TEST"]`, attrs[1].Expression)
	assert.Equal(t, "tfm", attrs[2].Name)
}

func TestParseAttributeString_Empty(t *testing.T) {
	attrs, err := ParseAttributeString("")
	require.NoError(t, err)
	assert.Nil(t, attrs)
}

func TestParseAttributeString_Whitespace(t *testing.T) {
	attrs, err := ParseAttributeString("  foo  =  bar  ;  baz  =  qux  ")

	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "foo", attrs[0].Name)
	assert.Equal(t, "bar", attrs[0].Expression)
	assert.Equal(t, "baz", attrs[1].Name)
	assert.Equal(t, "qux", attrs[1].Expression)
}

func TestParseAttributeString_EmptySections(t *testing.T) {
	attrs, err := ParseAttributeString("foo=bar;;baz=qux;")

	require.NoError(t, err)
	require.Len(t, attrs, 2)
	assert.Equal(t, "foo", attrs[0].Name)
	assert.Equal(t, "baz", attrs[1].Name)
}

func TestParseAttributeString_InvalidSection(t *testing.T) {
	_, err := ParseAttributeString("foo=bar;=qux")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name cannot be empty")
}

func TestOTELConfig_GetEndpoint(t *testing.T) {
	tests := []struct {
		name         string
		cfg          OTELConfig
		wantEndpoint string
		wantInsecure bool
	}{
		{"default", OTELConfig{}, "localhost:4318", true},
		{"exporter endpoint", OTELConfig{ExporterEndpoint: "collector:4318"}, "collector:4318", true},
		{"traces endpoint wins", OTELConfig{ExporterEndpoint: "a:1", TracesEndpoint: "b:2"}, "b:2", true},
		{"http scheme and path", OTELConfig{ExporterEndpoint: "http://collector:4318/v1/traces"}, "collector:4318", true},
		{"https scheme", OTELConfig{TracesEndpoint: "https://otel.example.com"}, "otel.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEndpoint, tt.cfg.GetEndpoint())
			assert.Equal(t, tt.wantInsecure, tt.cfg.Insecure())
		})
	}
}

func TestOTELConfig_ParseResourceAttributes(t *testing.T) {
	cfg := OTELConfig{ResourceAttributes: "team=build, env = ci,broken,=nokey"}

	assert.Equal(t, []attribute.KeyValue{
		attribute.String("team", "build"),
		attribute.String("env", "ci"),
	}, cfg.ParseResourceAttributes())

	assert.Nil(t, (&OTELConfig{}).ParseResourceAttributes())
}

func TestOTELConfig_ParseHeaders(t *testing.T) {
	cfg := OTELConfig{Headers: "Authorization=Bearer abc,x-team=build"}
	assert.Equal(t, map[string]string{"Authorization": "Bearer abc", "x-team": "build"}, cfg.ParseHeaders())

	assert.Nil(t, (&OTELConfig{}).ParseHeaders())
}

func TestParseOTELConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "ci-builds")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")

	cfg, err := ParseOTELConfig()
	require.NoError(t, err)
	assert.Equal(t, "ci-builds", cfg.ServiceName)
	assert.Equal(t, "collector:4318", cfg.GetEndpoint())
}
