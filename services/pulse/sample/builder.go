package sample

import (
	"strings"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

var log = logger.GetOrCreate("pulse/sample")

const (
	maxSchemaDepth = 8
	refPrefix      = "#/"
	sampleString   = "sample"
	zeroUUID       = "00000000-0000-0000-0000-000000000000"
)

// payloadBuilder synthesizes minimal valid probe payloads from the OpenAPI
// schemas of an endpoint. The document is kept around to resolve $ref pointers
type payloadBuilder struct {
	doc []byte
}

// NewPayloadBuilder creates a new payload builder over the given OpenAPI document
func NewPayloadBuilder(doc []byte) *payloadBuilder {
	return &payloadBuilder{
		doc: doc,
	}
}

// Build synthesizes a payload for the endpoint: a representative value for
// every path parameter and every required query/header parameter, plus a
// request body when the endpoint declares one
func (pb *payloadBuilder) Build(endpoint registry.EndpointInfo) *common.ProbePayload {
	payload := &common.ProbePayload{
		PathParams: make(map[string]interface{}),
		Query:      make(map[string]interface{}),
		Headers:    make(map[string]interface{}),
		Source:     common.PayloadSourceGenerated,
	}

	for _, param := range endpoint.PathParameters {
		payload.PathParams[param.Name] = pb.valueForParameter(param)
	}
	for _, param := range endpoint.QueryParameters {
		if !param.Required {
			continue
		}
		payload.Query[param.Name] = pb.valueForParameter(param)
	}
	for _, param := range endpoint.HeaderParameters {
		if !param.Required {
			continue
		}
		payload.Headers[param.Name] = pb.valueForParameter(param)
	}

	if endpoint.HasRequestBody {
		schema := gjson.Parse(endpoint.RequestBodySchema)
		payload.Body = pb.valueFromSchema(schema, 0)
		payload.MediaType = endpoint.RequestBodyMediaType
	}

	return payload
}

// valueForParameter follows the OpenAPI precedence for parameter examples:
// an explicit example wins, then a content-wrapped schema, then the plain schema
func (pb *payloadBuilder) valueForParameter(param registry.ParameterInfo) interface{} {
	raw := gjson.Parse(param.Raw)

	example := raw.Get("example")
	if example.Exists() {
		return example.Value()
	}

	content := raw.Get("content")
	if content.IsObject() {
		var value interface{} = sampleString
		content.ForEach(func(_, media gjson.Result) bool {
			value = pb.valueFromSchema(media.Get("schema"), 0)
			return false
		})
		return value
	}

	return pb.valueFromSchema(raw.Get("schema"), 0)
}

// valueFromSchema produces one representative value for a JSON schema node.
// Beyond the depth cap the generic sample stands in, bounding both recursion
// depth and synthesized size on cyclic schemas
func (pb *payloadBuilder) valueFromSchema(schema gjson.Result, depth int) interface{} {
	if depth > maxSchemaDepth {
		return sampleString
	}
	if !schema.Exists() || !schema.IsObject() {
		return sampleString
	}

	ref := schema.Get("$ref").String()
	if ref != "" {
		resolved, ok := pb.resolveRef(ref)
		if !ok {
			// an unresolved reference is treated as an unconstrained schema
			return sampleString
		}
		return pb.valueFromSchema(resolved, depth+1)
	}

	if def := schema.Get("default"); def.Exists() {
		return def.Value()
	}
	if example := schema.Get("example"); example.Exists() {
		return example.Value()
	}
	if enum := schema.Get("enum"); enum.IsArray() {
		values := enum.Array()
		if len(values) > 0 {
			return values[0].Value()
		}
	}

	for _, composite := range []string{"anyOf", "oneOf"} {
		options := schema.Get(composite)
		if !options.IsArray() {
			continue
		}
		arr := options.Array()
		if len(arr) > 0 {
			return pb.valueFromSchema(arr[0], depth+1)
		}
	}

	switch schema.Get("type").String() {
	case "string":
		return stringForFormat(schema.Get("format").String())
	case "integer":
		return 1
	case "number":
		return 1.0
	case "boolean":
		return true
	case "array":
		return []interface{}{pb.valueFromSchema(schema.Get("items"), depth+1)}
	case "object":
		return pb.objectFromSchema(schema, depth)
	}

	if schema.Get("properties").IsObject() || schema.Get("additionalProperties").Exists() {
		return pb.objectFromSchema(schema, depth)
	}

	return sampleString
}

func (pb *payloadBuilder) objectFromSchema(schema gjson.Result, depth int) interface{} {
	result := make(map[string]interface{})

	properties := schema.Get("properties")
	if properties.IsObject() {
		properties.ForEach(func(name, prop gjson.Result) bool {
			result[name.String()] = pb.valueFromSchema(prop, depth+1)
			return true
		})
		return result
	}

	additional := schema.Get("additionalProperties")
	if additional.IsObject() {
		result["key"] = pb.valueFromSchema(additional, depth+1)
	}

	return result
}

// resolveRef looks up a local "#/components/schemas/X" pointer in the document
func (pb *payloadBuilder) resolveRef(ref string) (gjson.Result, bool) {
	if !strings.HasPrefix(ref, refPrefix) {
		return gjson.Result{}, false
	}

	path := strings.ReplaceAll(strings.TrimPrefix(ref, refPrefix), "/", ".")
	resolved := gjson.GetBytes(pb.doc, path)
	if !resolved.Exists() {
		return gjson.Result{}, false
	}

	return resolved, true
}

func stringForFormat(format string) string {
	switch format {
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "date":
		return "2024-01-01"
	case "email":
		return "user@example.com"
	case "uuid":
		return zeroUUID
	default:
		return sampleString
	}
}

// IsInterfaceNil returns true if the value under the interface is nil
func (pb *payloadBuilder) IsInterfaceNil() bool {
	return pb == nil
}
