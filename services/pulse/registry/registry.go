package registry

import (
	"crypto/sha256"
	"sort"
	"strings"
	"sync"

	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/tidwall/gjson"
)

var log = logger.GetOrCreate("pulse/registry")

var allowedMethods = map[string]string{
	"get":     "GET",
	"post":    "POST",
	"put":     "PUT",
	"patch":   "PATCH",
	"delete":  "DELETE",
	"head":    "HEAD",
	"options": "OPTIONS",
}

const preferredMediaType = "application/json"

// ParameterInfo holds one declared parameter. Raw is the parameter object as
// JSON text, the payload synthesizer extracts schema/example details from it
type ParameterInfo struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Raw      string `json:"-"`
}

// EndpointInfo describes one discovered operation, keyed "<METHOD> <path>"
type EndpointInfo struct {
	ID                   string          `json:"id"`
	Method               string          `json:"method"`
	Path                 string          `json:"path"`
	Summary              string          `json:"summary"`
	Tags                 []string        `json:"tags"`
	RequiresInput        bool            `json:"requires_input"`
	HasPathParams        bool            `json:"has_path_params"`
	HasRequestBody       bool            `json:"has_request_body"`
	PathParameters       []ParameterInfo `json:"-"`
	QueryParameters      []ParameterInfo `json:"-"`
	HeaderParameters     []ParameterInfo `json:"-"`
	RequestBodyMediaType string          `json:"request_body_media_type,omitempty"`
	RequestBodySchema    string          `json:"-"`
}

// endpointRegistry discovers the application's endpoints from an OpenAPI 3
// document. Parsing is skipped when the document hash is unchanged. Malformed
// documents yield an empty catalog, never an error
type endpointRegistry struct {
	mut             sync.RWMutex
	doc             []byte
	schemaHash      [sha256.Size]byte
	parsed          bool
	endpoints       []EndpointInfo
	excludePrefixes []string
}

// NewEndpointRegistry creates a new endpoint registry
func NewEndpointRegistry(excludePrefixes []string) *endpointRegistry {
	prefixes := make([]string, 0, len(excludePrefixes))
	for _, prefix := range excludePrefixes {
		if prefix != "/" {
			prefix = strings.TrimSuffix(prefix, "/")
		}
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}

	return &endpointRegistry{
		excludePrefixes: prefixes,
	}
}

// Refresh re-parses the catalog from the provided OpenAPI document if it
// changed since the last call
func (er *endpointRegistry) Refresh(doc []byte) {
	er.mut.Lock()
	defer er.mut.Unlock()

	hash := sha256.Sum256(doc)
	if er.parsed && hash == er.schemaHash {
		return
	}

	er.doc = doc
	er.schemaHash = hash
	er.endpoints = er.parse(doc)
	er.parsed = true

	log.Debug("refreshed endpoint catalog", "endpoints", len(er.endpoints))
}

func (er *endpointRegistry) parse(doc []byte) []EndpointInfo {
	endpoints := make([]EndpointInfo, 0)

	paths := gjson.GetBytes(doc, "paths")
	if !paths.IsObject() {
		return endpoints
	}

	paths.ForEach(func(pathKey, pathItem gjson.Result) bool {
		path := pathKey.String()
		if !pathItem.IsObject() {
			return true
		}
		if er.isExcluded(path) {
			return true
		}

		commonParams := pathItem.Get("parameters")

		pathItem.ForEach(func(opKey, operation gjson.Result) bool {
			method, isMethod := allowedMethods[strings.ToLower(opKey.String())]
			if !isMethod {
				return true
			}
			if !operation.IsObject() {
				return true
			}

			endpoints = append(endpoints, buildEndpoint(path, method, operation, commonParams))
			return true
		})
		return true
	})

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})

	return endpoints
}

func buildEndpoint(path string, method string, operation gjson.Result, commonParams gjson.Result) EndpointInfo {
	endpoint := EndpointInfo{
		ID:     method + " " + path,
		Method: method,
		Path:   path,
	}

	endpoint.Summary = operation.Get("summary").String()
	if endpoint.Summary == "" {
		endpoint.Summary = operation.Get("operationId").String()
	}

	operation.Get("tags").ForEach(func(_, tag gjson.Result) bool {
		endpoint.Tags = append(endpoint.Tags, tag.String())
		return true
	})

	requiredQueryOrHeader := false
	collect := func(param gjson.Result) {
		info := ParameterInfo{
			Name:     param.Get("name").String(),
			Required: param.Get("required").Bool(),
			Raw:      param.Raw,
		}

		switch param.Get("in").String() {
		case "path":
			// path parameters are required by definition
			info.Required = true
			endpoint.PathParameters = append(endpoint.PathParameters, info)
		case "query":
			endpoint.QueryParameters = append(endpoint.QueryParameters, info)
			requiredQueryOrHeader = requiredQueryOrHeader || info.Required
		case "header":
			endpoint.HeaderParameters = append(endpoint.HeaderParameters, info)
			requiredQueryOrHeader = requiredQueryOrHeader || info.Required
		}
	}

	commonParams.ForEach(func(_, param gjson.Result) bool {
		collect(param)
		return true
	})
	operation.Get("parameters").ForEach(func(_, param gjson.Result) bool {
		collect(param)
		return true
	})

	content := operation.Get("requestBody.content")
	if content.IsObject() {
		mediaType := ""
		schema := ""
		content.ForEach(func(key, value gjson.Result) bool {
			if mediaType == "" || key.String() == preferredMediaType {
				mediaType = key.String()
				schema = value.Get("schema").Raw
			}
			return key.String() != preferredMediaType
		})

		endpoint.HasRequestBody = true
		endpoint.RequestBodyMediaType = mediaType
		endpoint.RequestBodySchema = schema
	}

	endpoint.HasPathParams = len(endpoint.PathParameters) > 0
	endpoint.RequiresInput = endpoint.HasPathParams || endpoint.HasRequestBody || requiredQueryOrHeader

	return endpoint
}

func (er *endpointRegistry) isExcluded(path string) bool {
	for _, prefix := range er.excludePrefixes {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}

// ListEndpoints returns a copy of the discovered endpoints, sorted by path
// then method
func (er *endpointRegistry) ListEndpoints() []EndpointInfo {
	er.mut.RLock()
	defer er.mut.RUnlock()

	endpoints := make([]EndpointInfo, len(er.endpoints))
	copy(endpoints, er.endpoints)

	return endpoints
}

// EndpointMap returns the endpoints keyed by their id
func (er *endpointRegistry) EndpointMap() map[string]EndpointInfo {
	er.mut.RLock()
	defer er.mut.RUnlock()

	endpointMap := make(map[string]EndpointInfo, len(er.endpoints))
	for _, endpoint := range er.endpoints {
		endpointMap[endpoint.ID] = endpoint
	}

	return endpointMap
}

// AutoProbeTargets returns the endpoints that can be probed without any
// caller-provided input
func (er *endpointRegistry) AutoProbeTargets() []EndpointInfo {
	er.mut.RLock()
	defer er.mut.RUnlock()

	targets := make([]EndpointInfo, 0, len(er.endpoints))
	for _, endpoint := range er.endpoints {
		if !endpoint.RequiresInput {
			targets = append(targets, endpoint)
		}
	}

	return targets
}

// Document returns the raw OpenAPI document the catalog was parsed from
func (er *endpointRegistry) Document() []byte {
	er.mut.RLock()
	defer er.mut.RUnlock()

	return er.doc
}

// IsInterfaceNil returns true if the value under the interface is nil
func (er *endpointRegistry) IsInterfaceNil() bool {
	return er == nil
}
