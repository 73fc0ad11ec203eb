package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"elib/services/api/internal/server"
)

const defaultDocPath = "services/api/openapi.yaml"

type openAPIDoc struct {
	Paths      map[string]map[string]yaml.Node `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

func main() {
	path := defaultDocPath
	switch len(os.Args) {
	case 1:
	case 2:
		path = os.Args[1]
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [openapi.yaml]\n", os.Args[0])
		os.Exit(2)
	}

	doc, err := loadDoc(path)
	if err != nil {
		exitErr(err)
	}
	if err := check(doc, server.Routes); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func check(doc openAPIDoc, routes []server.Route) error {
	errResp, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	if err := validateErrorResponse(errResp); err != nil {
		return err
	}
	return ensureSameRoutes(documentedRoutes(doc), routes)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

// validateErrorResponse pins the schema to the envelope the server writes.
func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"status", "statusCode", "message"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
	}
	want := map[string]string{
		"status":     "string",
		"statusCode": "integer",
		"message":    "string",
		"requestId":  "string",
		"errorStack": "array",
	}
	for name, typ := range want {
		prop, ok := s.Properties[name]
		if !ok || prop.Type != typ {
			return fmt.Errorf("ErrorResponse.%s must be %s", name, typ)
		}
	}
	if stack := s.Properties["errorStack"]; stack.Items == nil || stack.Items.Type != "string" {
		return errors.New("ErrorResponse.errorStack.items must be string")
	}
	return nil
}

func documentedRoutes(doc openAPIDoc) []server.Route {
	var out []server.Route
	for path, item := range doc.Paths {
		for method := range item {
			if httpMethods[strings.ToLower(method)] {
				out = append(out, server.Route{Method: strings.ToUpper(method), Path: path})
			}
		}
	}
	return out
}

func ensureSameRoutes(documented, served []server.Route) error {
	doc := routeSet(documented)
	srv := routeSet(served)
	var missing, extra []string
	for key := range srv {
		if !doc[key] {
			missing = append(missing, key)
		}
	}
	for key := range doc {
		if !srv[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	if len(missing) > 0 {
		return fmt.Errorf("routes not documented: %s", strings.Join(missing, ", "))
	}
	if len(extra) > 0 {
		return fmt.Errorf("documented routes not served: %s", strings.Join(extra, ", "))
	}
	return nil
}

func routeSet(routes []server.Route) map[string]bool {
	out := make(map[string]bool, len(routes))
	for _, r := range routes {
		out[r.Method+" "+r.Path] = true
	}
	return out
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
