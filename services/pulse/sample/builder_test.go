package sample

import (
	"testing"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDocument = `{
  "openapi": "3.0.0",
  "paths": {},
  "components": {
    "schemas": {
      "Item": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "price": {"type": "number"},
          "active": {"type": "boolean"},
          "count": {"type": "integer"}
        }
      },
      "Node": {
        "type": "object",
        "properties": {
          "child": {"$ref": "#/components/schemas/Node"}
        }
      }
    }
  }
}`

func testEndpoint() registry.EndpointInfo {
	return registry.EndpointInfo{
		ID:     "GET /items/{item_id}",
		Method: "GET",
		Path:   "/items/{item_id}",
	}
}

func TestPayloadBuilder_Parameters(t *testing.T) {
	t.Parallel()

	pb := NewPayloadBuilder([]byte(testDocument))
	require.False(t, pb.IsInterfaceNil())

	t.Run("explicit example wins", func(t *testing.T) {
		t.Parallel()

		endpoint := testEndpoint()
		endpoint.PathParameters = []registry.ParameterInfo{
			{Name: "item_id", Required: true, Raw: `{"name":"item_id","in":"path","example":42,"schema":{"type":"integer"}}`},
		}
		endpoint.HasPathParams = true

		payload := pb.Build(endpoint)
		require.NotNil(t, payload)
		assert.Equal(t, float64(42), payload.PathParams["item_id"])
		assert.Equal(t, common.PayloadSourceGenerated, payload.Source)
	})
	t.Run("schema types map to representative values", func(t *testing.T) {
		t.Parallel()

		endpoint := testEndpoint()
		endpoint.PathParameters = []registry.ParameterInfo{
			{Name: "item_id", Required: true, Raw: `{"name":"item_id","in":"path","schema":{"type":"integer"}}`},
		}
		endpoint.QueryParameters = []registry.ParameterInfo{
			{Name: "q", Required: true, Raw: `{"name":"q","in":"query","required":true,"schema":{"type":"string"}}`},
			{Name: "page", Required: false, Raw: `{"name":"page","in":"query","schema":{"type":"integer"}}`},
		}
		endpoint.HeaderParameters = []registry.ParameterInfo{
			{Name: "X-Tenant", Required: true, Raw: `{"name":"X-Tenant","in":"header","required":true,"schema":{"type":"string"}}`},
		}

		payload := pb.Build(endpoint)
		require.NotNil(t, payload)
		assert.Equal(t, 1, payload.PathParams["item_id"])
		assert.Equal(t, "sample", payload.Query["q"])
		assert.Equal(t, "sample", payload.Headers["X-Tenant"])

		// optional query parameters are left out
		assert.NotContains(t, payload.Query, "page")
	})
	t.Run("missing schema falls back to a plain string", func(t *testing.T) {
		t.Parallel()

		endpoint := testEndpoint()
		endpoint.PathParameters = []registry.ParameterInfo{
			{Name: "item_id", Required: true, Raw: `{"name":"item_id","in":"path"}`},
		}

		payload := pb.Build(endpoint)
		require.NotNil(t, payload)
		assert.Equal(t, "sample", payload.PathParams["item_id"])
	})
}

func TestPayloadBuilder_RequestBody(t *testing.T) {
	t.Parallel()

	pb := NewPayloadBuilder([]byte(testDocument))

	buildWithSchema := func(schema string) *common.ProbePayload {
		endpoint := registry.EndpointInfo{
			ID:                   "POST /items",
			Method:               "POST",
			Path:                 "/items",
			HasRequestBody:       true,
			RequestBodyMediaType: "application/json",
			RequestBodySchema:    schema,
		}
		return pb.Build(endpoint)
	}

	t.Run("object schema", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"type":"object","properties":{"name":{"type":"string"},"price":{"type":"number"},"tags":{"type":"array","items":{"type":"string"}}}}`)
		require.NotNil(t, payload)

		body, ok := payload.Body.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "sample", body["name"])
		assert.Equal(t, 1.0, body["price"])
		assert.Equal(t, []interface{}{"sample"}, body["tags"])
		assert.Equal(t, "application/json", payload.MediaType)
	})
	t.Run("ref resolution", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"$ref":"#/components/schemas/Item"}`)
		require.NotNil(t, payload)

		body, ok := payload.Body.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "sample", body["name"])
		assert.Equal(t, true, body["active"])
		assert.Equal(t, 1, body["count"])
	})
	t.Run("self-referential schema stops at the depth cap", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"$ref":"#/components/schemas/Node"}`)
		require.NotNil(t, payload)

		// the chain of nested objects ends in the generic sample instead of
		// recursing forever
		depth := 0
		current := payload.Body
		for {
			node, isObject := current.(map[string]interface{})
			if !isObject {
				break
			}
			depth++
			current = node["child"]
		}
		assert.Equal(t, "sample", current)
		assert.LessOrEqual(t, depth, maxSchemaDepth)
	})
	t.Run("unresolvable ref is treated as unconstrained", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"$ref":"#/components/schemas/Missing"}`)
		require.NotNil(t, payload)
		assert.Equal(t, "sample", payload.Body)
	})
	t.Run("precedence default then example then enum", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"type":"string","default":"from-default","example":"from-example"}`)
		require.NotNil(t, payload)
		assert.Equal(t, "from-default", payload.Body)

		payload = buildWithSchema(`{"type":"string","example":"from-example","enum":["a","b"]}`)
		require.NotNil(t, payload)
		assert.Equal(t, "from-example", payload.Body)

		payload = buildWithSchema(`{"type":"string","enum":["a","b"]}`)
		require.NotNil(t, payload)
		assert.Equal(t, "a", payload.Body)
	})
	t.Run("string formats", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"type":"object","properties":{"when":{"type":"string","format":"date-time"},"day":{"type":"string","format":"date"},"mail":{"type":"string","format":"email"},"id":{"type":"string","format":"uuid"}}}`)
		require.NotNil(t, payload)

		body := payload.Body.(map[string]interface{})
		assert.Equal(t, "2024-01-01T00:00:00Z", body["when"])
		assert.Equal(t, "2024-01-01", body["day"])
		assert.Equal(t, "user@example.com", body["mail"])
		assert.Equal(t, "00000000-0000-0000-0000-000000000000", body["id"])
	})
	t.Run("anyOf picks the first option", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"anyOf":[{"type":"integer"},{"type":"string"}]}`)
		require.NotNil(t, payload)
		assert.Equal(t, 1, payload.Body)
	})
	t.Run("additionalProperties-only object", func(t *testing.T) {
		t.Parallel()

		payload := buildWithSchema(`{"type":"object","additionalProperties":{"type":"integer"}}`)
		require.NotNil(t, payload)
		assert.Equal(t, map[string]interface{}{"key": 1}, payload.Body)
	})
}
