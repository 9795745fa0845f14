package mcpservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/poad/aws-lambda-mcp-server/mcp"
)

type greetArgs struct {
	Name     string `json:"name" jsonschema:"description=Name to greet."`
	Shout    bool   `json:"shout,omitempty"`
	internal string //nolint:unused // unexported fields must not leak into the schema
}

func TestNewToolSchemaReflection(t *testing.T) {
	tool := NewTool("greet", func(ctx context.Context, args greetArgs) (*mcp.CallToolResult, error) {
		return TextResult("hi " + args.Name), nil
	}, WithToolDescription("Greets someone."))

	if tool.Descriptor.Name != "greet" {
		t.Fatalf("unexpected name: %q", tool.Descriptor.Name)
	}
	if tool.Descriptor.Description != "Greets someone." {
		t.Fatalf("unexpected description: %q", tool.Descriptor.Description)
	}

	schema := tool.Descriptor.InputSchema
	if schema.Type != "object" {
		t.Fatalf("unexpected schema type: %q", schema.Type)
	}
	if schema.AdditionalProperties {
		t.Fatalf("additionalProperties must default to false")
	}
	nameProp, ok := schema.Properties["name"]
	if !ok {
		t.Fatalf("missing name property: %+v", schema.Properties)
	}
	if nameProp.Type != "string" || nameProp.Description != "Name to greet." {
		t.Fatalf("unexpected name property: %+v", nameProp)
	}
	if _, ok := schema.Properties["internal"]; ok {
		t.Fatalf("unexported field leaked into the schema")
	}

	var hasName bool
	for _, r := range schema.Required {
		if r == "name" {
			hasName = true
		}
		if r == "shout" {
			t.Fatalf("omitempty field must not be required")
		}
	}
	if !hasName {
		t.Fatalf("name must be required, got %v", schema.Required)
	}
}

func TestNewToolStrictDecoding(t *testing.T) {
	tool := NewTool("greet", func(ctx context.Context, args greetArgs) (*mcp.CallToolResult, error) {
		return TextResult("hi " + args.Name), nil
	})

	res, err := tool.Handler(context.Background(), &mcp.CallToolRequestReceived{
		Name:      "greet",
		Arguments: json.RawMessage(`{"name":"alice","surprise":true}`),
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected an error result for unknown fields, got %+v", res)
	}
	if len(res.Content) == 0 || !strings.Contains(res.Content[0].Text, "invalid arguments") {
		t.Fatalf("unexpected error content: %+v", res.Content)
	}
}

func TestNewToolLenientDecoding(t *testing.T) {
	tool := NewTool("greet", func(ctx context.Context, args greetArgs) (*mcp.CallToolResult, error) {
		return TextResult("hi " + args.Name), nil
	}, WithToolAllowAdditionalProperties(true))

	if !tool.Descriptor.InputSchema.AdditionalProperties {
		t.Fatalf("schema must advertise additionalProperties=true")
	}

	res, err := tool.Handler(context.Background(), &mcp.CallToolRequestReceived{
		Name:      "greet",
		Arguments: json.RawMessage(`{"name":"alice","surprise":true}`),
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %+v", res)
	}
}

func TestToolsContainerPagination(t *testing.T) {
	makeTool := func(name string) StaticTool {
		return NewTool(name, func(ctx context.Context, args struct{}) (*mcp.CallToolResult, error) {
			return TextResult(name), nil
		})
	}
	c := NewToolsContainer(makeTool("a"), makeTool("b"), makeTool("c"))
	c.SetPageSize(2)

	ctx := context.Background()
	page, err := c.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "a" || page.Items[1].Name != "b" {
		t.Fatalf("unexpected first page: %+v", page.Items)
	}
	if page.NextCursor == nil {
		t.Fatalf("expected a next cursor")
	}

	page, err = c.ListTools(ctx, page.NextCursor)
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "c" {
		t.Fatalf("unexpected second page: %+v", page.Items)
	}
	if page.NextCursor != nil {
		t.Fatalf("unexpected cursor on the final page: %q", *page.NextCursor)
	}

	garbage := "not-a-number"
	page, err = c.ListTools(ctx, &garbage)
	if err != nil {
		t.Fatalf("garbage cursor: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("garbage cursor must restart pagination, got %+v", page.Items)
	}
}

func TestToolsContainerAddAndReplace(t *testing.T) {
	makeTool := func(name string) StaticTool {
		return NewTool(name, func(ctx context.Context, args struct{}) (*mcp.CallToolResult, error) {
			return TextResult(name), nil
		})
	}
	c := NewToolsContainer(makeTool("a"))

	if !c.Add(makeTool("b")) {
		t.Fatalf("adding a new name must succeed")
	}
	if c.Add(makeTool("a")) {
		t.Fatalf("adding a duplicate name must fail")
	}
	if got := len(c.Snapshot()); got != 2 {
		t.Fatalf("unexpected tool count %d", got)
	}

	c.Replace(makeTool("x"))
	snap := c.Snapshot()
	if len(snap) != 1 || snap[0].Name != "x" {
		t.Fatalf("unexpected tools after replace: %+v", snap)
	}
}

func TestToolsContainerCallTool(t *testing.T) {
	c := NewToolsContainer(NewTool("fail", func(ctx context.Context, args struct{}) (*mcp.CallToolResult, error) {
		return nil, fmt.Errorf("backend exploded")
	}))

	if _, err := c.CallTool(context.Background(), &mcp.CallToolRequestReceived{Name: "nope"}); err == nil {
		t.Fatalf("expected an error for an unknown tool")
	}
	if _, err := c.CallTool(context.Background(), &mcp.CallToolRequestReceived{}); err == nil {
		t.Fatalf("expected an error for a missing name")
	}
	if _, err := c.CallTool(context.Background(), &mcp.CallToolRequestReceived{Name: "fail"}); err == nil {
		t.Fatalf("expected the handler error to propagate")
	}
}
